package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/headline-lab/headline-lab/internal/engine"
	"github.com/headline-lab/headline-lab/internal/stats"
	"github.com/headline-lab/headline-lab/internal/store"
)

type HealthResponse struct {
	Status        string `json:"status"`
	TestsCount    int    `json:"tests_count"`
	DBSizeBytes   int64  `json:"db_size_bytes"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var dbSize int64
	row := s.store.DB().QueryRow("SELECT page_count * page_size FROM pragma_page_count(), pragma_page_size()")
	_ = row.Scan(&dbSize)

	response := HealthResponse{
		Status:        "ok",
		TestsCount:    len(s.engine.List()),
		DBSizeBytes:   dbSize,
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
	}

	writeJSON(w, http.StatusOK, response)
}

// BeaconRequest is one incoming telemetry event. Engagement beacons may
// carry a time-on-page sample (seconds), a scroll-depth sample
// (percent), or both.
type BeaconRequest struct {
	TestID      string   `json:"t"`
	VariantID   string   `json:"v"`
	EventType   string   `json:"e"`
	TimeOnPage  *float64 `json:"top,omitempty"`
	ScrollDepth *float64 `json:"sd,omitempty"`
	VisitorID   string   `json:"vid,omitempty"`
}

func (s *Server) handleBeacon(w http.ResponseWriter, r *http.Request) {
	// Beacons come straight from article pages on other origins.
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if !s.limiter.Allow() {
		http.Error(w, "Too many requests", http.StatusTooManyRequests)
		return
	}

	var req BeaconRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	if req.TestID == "" || req.VariantID == "" {
		http.Error(w, "Missing required fields", http.StatusBadRequest)
		return
	}

	var value float64
	switch req.EventType {
	case store.EventImpression:
		s.engine.RecordImpression(req.TestID, req.VariantID)
	case store.EventClick:
		s.engine.RecordClick(req.TestID, req.VariantID)
	case store.EventEngagement:
		s.engine.RecordEngagement(req.TestID, req.VariantID, engine.EngagementSample{
			TimeOnPage:  req.TimeOnPage,
			ScrollDepth: req.ScrollDepth,
		})
		if req.TimeOnPage != nil {
			value = *req.TimeOnPage
		} else if req.ScrollDepth != nil {
			value = *req.ScrollDepth
		}
	default:
		http.Error(w, "Invalid event type", http.StatusBadRequest)
		return
	}

	// The engine is the source of truth; the event log is best-effort.
	if err := s.store.RecordEvent(r.Context(), req.TestID, req.VariantID, req.EventType, req.VisitorID, value); err != nil {
		slog.Error("failed to log beacon event", "err", err, "test", req.TestID)
	}

	w.WriteHeader(http.StatusNoContent)
}

// CreateTestRequest starts a new headline test.
type CreateTestRequest struct {
	ArticleID string   `json:"article_id"`
	Headlines []string `json:"headlines"`
}

func (s *Server) handleTests(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		tests := s.engine.List()
		summaries := make([]*engine.Summary, 0, len(tests))
		for _, t := range tests {
			if sum := s.engine.ExportTestData(t.ID); sum != nil {
				summaries = append(summaries, sum)
			}
		}
		writeJSON(w, http.StatusOK, summaries)

	case http.MethodPost:
		var req CreateTestRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid JSON", http.StatusBadRequest)
			return
		}
		if req.ArticleID == "" || len(req.Headlines) == 0 {
			http.Error(w, "article_id and headlines are required", http.StatusBadRequest)
			return
		}

		test := s.engine.CreateTest(req.ArticleID, req.Headlines)
		if test == nil {
			http.Error(w, "Failed to create test", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusCreated, s.engine.ExportTestData(test.ID))

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// AnalysisResponse pairs the engine's export summary with the classical
// significance readout over the click data.
type AnalysisResponse struct {
	Summary         *engine.Summary `json:"summary"`
	LeadingVariant  string          `json:"leading_variant"`
	ConfidenceLevel float64         `json:"confidence_level"`
	Confident       bool            `json:"confident"`
}

// handleTest routes /api/tests/{id}, /api/tests/{id}/complete and
// /api/tests/{id}/variant.
func (s *Server) handleTest(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/tests/")
	id, action, _ := strings.Cut(rest, "/")
	if id == "" {
		http.NotFound(w, r)
		return
	}

	switch action {
	case "":
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		s.handleTestResults(w, r, id)

	case "complete":
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if s.engine.CompleteTest(id) == nil && s.engine.Get(id) == nil {
			http.Error(w, "Test not found", http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, s.engine.ExportTestData(id))

	case "variant":
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Access-Control-Allow-Origin", "*")
		v := s.engine.VariantForDisplay(id)
		if v == nil {
			http.Error(w, "Test not found", http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"id": v.ID, "text": v.Text})

	default:
		http.NotFound(w, r)
	}
}

func (s *Server) handleTestResults(w http.ResponseWriter, r *http.Request, id string) {
	if t := s.engine.Get(id); t != nil {
		result := stats.Analyze(t)
		resp := AnalysisResponse{
			Summary:         s.engine.ExportTestData(id),
			LeadingVariant:  result.Variants[result.LeadingVariant].ID,
			ConfidenceLevel: result.ConfidenceLevel,
			Confident:       result.Confident,
		}
		writeJSON(w, http.StatusOK, resp)
		return
	}

	// Fall back to the archive for tests from a previous process run.
	archived, err := s.store.GetArchivedTest(context.Background(), id)
	if err == store.ErrNotFound {
		http.Error(w, "Test not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, AnalysisResponse{
		Summary:        archivedSummary(archived),
		LeadingVariant: archived.WinnerID,
	})
}

// archivedSummary projects an archived test into the same summary shape
// the live engine exports.
func archivedSummary(a *store.ArchivedTest) *engine.Summary {
	s := &engine.Summary{
		TestID:    a.ID,
		ArticleID: a.ArticleID,
		Status:    engine.Status(a.Status),
		StartedAt: a.StartedAt,
		Duration:  a.CompletedAt.Sub(a.StartedAt),
		Winner:    a.WinnerID,
		Variants:  make([]engine.VariantSummary, len(a.Variants)),
	}
	for i, v := range a.Variants {
		s.Variants[i] = engine.VariantSummary{
			ID:             v.ID,
			Text:           v.Text,
			Impressions:    v.Impressions,
			Clicks:         v.Clicks,
			ClickRate:      formatPct(v.ClickRate),
			AvgTimeOnPage:  formatSeconds(v.AvgTimeOnPage),
			AvgScrollDepth: formatPct1(v.AvgScrollDepth),
			CompositeScore: v.CompositeScore,
		}
	}
	return s
}

func formatPct(v float64) string { return fmt.Sprintf("%.2f%%", v) }

func formatPct1(v float64) string { return fmt.Sprintf("%.1f%%", v) }

func formatSeconds(v float64) string { return fmt.Sprintf("%.1fs", v) }

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "err", err)
	}
}
