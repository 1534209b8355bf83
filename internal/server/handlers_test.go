package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/headline-lab/headline-lab/internal/config"
	"github.com/headline-lab/headline-lab/internal/engine"
	"github.com/headline-lab/headline-lab/internal/server"
	"github.com/headline-lab/headline-lab/internal/store"
)

type fixture struct {
	engine  *engine.Engine
	store   *store.SQLiteStore
	handler http.Handler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	eng := engine.New(engine.Config{TestDuration: time.Hour, MaxVariants: 8})
	t.Cleanup(eng.Close)

	srv := server.New(eng, st, config.ServerConfig{
		Port:            0,
		BeaconRateLimit: 10000,
		BeaconBurst:     10000,
	})

	return &fixture{engine: eng, store: st, handler: srv.Handler()}
}

func (f *fixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request: %v", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func (f *fixture) createTest(t *testing.T, articleID string, headlines ...string) *engine.Summary {
	t.Helper()

	rec := f.do(t, http.MethodPost, "/api/tests", map[string]any{
		"article_id": articleID,
		"headlines":  headlines,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create returned %d: %s", rec.Code, rec.Body.String())
	}

	var summary engine.Summary
	if err := json.Unmarshal(rec.Body.Bytes(), &summary); err != nil {
		t.Fatalf("decode create response: %v", err)
	}
	return &summary
}

func TestHandleHealth(t *testing.T) {
	f := newFixture(t)
	f.createTest(t, "story-1", "A", "B")

	rec := f.do(t, http.MethodGet, "/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("health returned %d", rec.Code)
	}

	var resp server.HealthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode health: %v", err)
	}
	if resp.Status != "ok" {
		t.Errorf("Status = %q, want ok", resp.Status)
	}
	if resp.TestsCount != 1 {
		t.Errorf("TestsCount = %d, want 1", resp.TestsCount)
	}
}

func TestCreateTest_Validation(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/tests", map[string]any{"article_id": "x"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing headlines returned %d, want 400", rec.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/tests", bytes.NewReader([]byte("{not json")))
	rec2 := httptest.NewRecorder()
	f.handler.ServeHTTP(rec2, req)
	if rec2.Code != http.StatusBadRequest {
		t.Errorf("invalid JSON returned %d, want 400", rec2.Code)
	}

	rec3 := f.do(t, http.MethodDelete, "/api/tests", nil)
	if rec3.Code != http.StatusMethodNotAllowed {
		t.Errorf("DELETE returned %d, want 405", rec3.Code)
	}
}

func TestBeaconFlow(t *testing.T) {
	f := newFixture(t)
	summary := f.createTest(t, "story-1", "A", "B")
	v := summary.Variants[0].ID

	for i := 0; i < 4; i++ {
		rec := f.do(t, http.MethodPost, "/b", map[string]any{
			"t": summary.TestID, "v": v, "e": "impression",
		})
		if rec.Code != http.StatusNoContent {
			t.Fatalf("impression beacon returned %d: %s", rec.Code, rec.Body.String())
		}
	}
	rec := f.do(t, http.MethodPost, "/b", map[string]any{
		"t": summary.TestID, "v": v, "e": "click",
	})
	if rec.Code != http.StatusNoContent {
		t.Fatalf("click beacon returned %d", rec.Code)
	}
	rec = f.do(t, http.MethodPost, "/b", map[string]any{
		"t": summary.TestID, "v": v, "e": "engagement", "top": 42.5, "sd": 80,
	})
	if rec.Code != http.StatusNoContent {
		t.Fatalf("engagement beacon returned %d", rec.Code)
	}

	got := f.engine.Get(summary.TestID).Variants[0]
	if got.Impressions != 4 || got.Clicks != 1 {
		t.Errorf("counters = %d/%d, want 4/1", got.Impressions, got.Clicks)
	}
	if len(got.TimeOnPage) != 1 || len(got.ScrollDepth) != 1 {
		t.Errorf("engagement samples = %d/%d, want 1/1", len(got.TimeOnPage), len(got.ScrollDepth))
	}

	// Beacons land in the event log too.
	events, err := f.store.GetEvents(context.Background(), summary.TestID)
	if err != nil {
		t.Fatalf("GetEvents: %v", err)
	}
	if len(events) != 6 {
		t.Errorf("len(events) = %d, want 6", len(events))
	}
}

func TestBeacon_Validation(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/b", map[string]any{"t": "x", "v": "v0", "e": "explode"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad event type returned %d, want 400", rec.Code)
	}

	rec = f.do(t, http.MethodPost, "/b", map[string]any{"e": "impression"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing ids returned %d, want 400", rec.Code)
	}

	// Unknown test ids are accepted: the engine no-ops per contract.
	rec = f.do(t, http.MethodPost, "/b", map[string]any{"t": "ghost", "v": "v0", "e": "impression"})
	if rec.Code != http.StatusNoContent {
		t.Errorf("unknown-test beacon returned %d, want 204", rec.Code)
	}

	rec = f.do(t, http.MethodOptions, "/b", nil)
	if rec.Code != http.StatusNoContent {
		t.Errorf("OPTIONS returned %d, want 204", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("missing CORS header on preflight")
	}

	rec = f.do(t, http.MethodGet, "/b", nil)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET returned %d, want 405", rec.Code)
	}
}

func TestBeacon_RateLimit(t *testing.T) {
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	eng := engine.New(engine.Config{TestDuration: time.Hour, MaxVariants: 8})
	t.Cleanup(eng.Close)

	srv := server.New(eng, st, config.ServerConfig{BeaconRateLimit: 1, BeaconBurst: 2})
	f := &fixture{engine: eng, store: st, handler: srv.Handler()}

	limited := false
	for i := 0; i < 10; i++ {
		rec := f.do(t, http.MethodPost, "/b", map[string]any{"t": "x", "v": "v0", "e": "impression"})
		if rec.Code == http.StatusTooManyRequests {
			limited = true
			break
		}
	}
	if !limited {
		t.Error("beacon endpoint never rate-limited a burst")
	}
}

func TestVariantEndpoint(t *testing.T) {
	f := newFixture(t)
	summary := f.createTest(t, "story-1", "A", "B", "C")

	seen := map[string]bool{}
	for i := 0; i < 200; i++ {
		rec := f.do(t, http.MethodGet, "/api/tests/"+summary.TestID+"/variant", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("variant endpoint returned %d", rec.Code)
		}
		var v map[string]string
		if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
			t.Fatalf("decode variant: %v", err)
		}
		seen[v["id"]] = true
	}
	if len(seen) != 3 {
		t.Errorf("saw %d distinct variants over 200 draws, want 3", len(seen))
	}

	rec := f.do(t, http.MethodGet, "/api/tests/ghost/variant", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown test returned %d, want 404", rec.Code)
	}
}

func TestCompleteEndpoint(t *testing.T) {
	f := newFixture(t)
	summary := f.createTest(t, "story-1", "A", "B")
	b := summary.Variants[1].ID

	f.do(t, http.MethodPost, "/b", map[string]any{"t": summary.TestID, "v": b, "e": "impression"})
	f.do(t, http.MethodPost, "/b", map[string]any{"t": summary.TestID, "v": b, "e": "click"})

	rec := f.do(t, http.MethodPost, "/api/tests/"+summary.TestID+"/complete", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("complete returned %d", rec.Code)
	}
	var done engine.Summary
	if err := json.Unmarshal(rec.Body.Bytes(), &done); err != nil {
		t.Fatalf("decode complete response: %v", err)
	}
	if done.Status != engine.StatusCompleted || done.Winner != b {
		t.Errorf("got status %q winner %q, want completed/%s", done.Status, done.Winner, b)
	}

	// Completing again is an idempotent no-op that reports the result.
	rec = f.do(t, http.MethodPost, "/api/tests/"+summary.TestID+"/complete", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("second complete returned %d, want 200", rec.Code)
	}

	rec = f.do(t, http.MethodPost, "/api/tests/ghost/complete", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown test returned %d, want 404", rec.Code)
	}
}

func TestResultsEndpoint(t *testing.T) {
	f := newFixture(t)
	summary := f.createTest(t, "story-1", "A", "B")

	rec := f.do(t, http.MethodGet, "/api/tests/"+summary.TestID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("results returned %d", rec.Code)
	}
	var resp server.AnalysisResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode results: %v", err)
	}
	if resp.Summary == nil || resp.Summary.TestID != summary.TestID {
		t.Errorf("results summary missing or mismatched: %+v", resp.Summary)
	}

	rec = f.do(t, http.MethodGet, "/api/tests/ghost", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown test returned %d, want 404", rec.Code)
	}
}

// Tests completed in a previous process live only in the archive; the
// results endpoint falls back to it.
func TestResultsEndpoint_ArchiveFallback(t *testing.T) {
	f := newFixture(t)

	archived := &store.ArchivedTest{
		ID:        "story-old-1",
		ArticleID: "story-old",
		Status:    "completed",
		WinnerID:  "v1",
		Variants: []store.VariantResult{
			{ID: "v0", Text: "A", Impressions: 100, Clicks: 10, ClickRate: 10, CompositeScore: 6},
			{ID: "v1", Text: "B", Impressions: 100, Clicks: 30, ClickRate: 30, CompositeScore: 18},
		},
		StartedAt:   time.Now().Add(-time.Hour).Truncate(time.Second),
		CompletedAt: time.Now().Truncate(time.Second),
	}
	if err := f.store.ArchiveTest(context.Background(), archived); err != nil {
		t.Fatalf("ArchiveTest: %v", err)
	}

	rec := f.do(t, http.MethodGet, "/api/tests/story-old-1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("archived results returned %d", rec.Code)
	}
	var resp server.AnalysisResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode archived results: %v", err)
	}
	if resp.Summary.Winner != "v1" {
		t.Errorf("archived winner = %q, want v1", resp.Summary.Winner)
	}
	if resp.Summary.Variants[1].ClickRate != "30.00%" {
		t.Errorf("archived click rate = %q, want 30.00%%", resp.Summary.Variants[1].ClickRate)
	}
}

func TestListTests(t *testing.T) {
	f := newFixture(t)
	f.createTest(t, "story-1", "A", "B")
	f.createTest(t, "story-2", "C", "D")

	rec := f.do(t, http.MethodGet, "/api/tests", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list returned %d", rec.Code)
	}
	var summaries []*engine.Summary
	if err := json.Unmarshal(rec.Body.Bytes(), &summaries); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(summaries) != 2 {
		t.Fatalf("len(summaries) = %d, want 2", len(summaries))
	}
	for _, s := range summaries {
		if len(s.Variants) != 2 {
			t.Errorf("test %s has %d variants, want 2", s.TestID, len(s.Variants))
		}
	}
}
