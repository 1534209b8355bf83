package store

import (
	"time"

	"github.com/headline-lab/headline-lab/internal/engine"
)

// Event types recorded in the telemetry log.
const (
	EventImpression = "impression"
	EventClick      = "click"
	EventEngagement = "engagement"
)

// VariantResult is the per-variant outcome persisted with an archived
// test. It is stored as a JSON column.
type VariantResult struct {
	ID             string  `json:"id"`
	Text           string  `json:"text"`
	Impressions    int     `json:"impressions"`
	Clicks         int     `json:"clicks"`
	ClickRate      float64 `json:"click_rate"`
	AvgTimeOnPage  float64 `json:"avg_time_on_page"`
	AvgScrollDepth float64 `json:"avg_scroll_depth"`
	CompositeScore float64 `json:"composite_score"`
}

// ArchivedTest is a completed headline test as persisted. The live
// registry is in-memory only; archiving is what survives a restart.
type ArchivedTest struct {
	ID          string
	ArticleID   string
	Status      string
	WinnerID    string
	Variants    []VariantResult
	StartedAt   time.Time
	CompletedAt time.Time
}

// Event is one raw telemetry beacon. Value carries the sample for
// engagement events (seconds or percent) and is zero otherwise.
type Event struct {
	ID        string
	TestID    string
	VariantID string
	EventType string
	Value     float64
	VisitorID string
	CreatedAt time.Time
}

// NewArchivedTest converts a completed engine test snapshot into its
// archive form.
func NewArchivedTest(t *engine.Test) *ArchivedTest {
	a := &ArchivedTest{
		ID:          t.ID,
		ArticleID:   t.ArticleID,
		Status:      string(t.Status),
		StartedAt:   t.StartTime,
		CompletedAt: t.CompletedAt,
		Variants:    make([]VariantResult, len(t.Variants)),
	}
	if t.Winner != nil {
		a.WinnerID = t.Winner.ID
	}
	for i, v := range t.Variants {
		a.Variants[i] = VariantResult{
			ID:             v.ID,
			Text:           v.Text,
			Impressions:    v.Impressions,
			Clicks:         v.Clicks,
			ClickRate:      v.ClickRate,
			AvgTimeOnPage:  v.AvgTimeOnPage,
			AvgScrollDepth: v.AvgScrollDepth,
			CompositeScore: v.CompositeScore,
		}
	}
	return a
}
