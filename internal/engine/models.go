package engine

import "time"

type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
)

// Variant is one candidate headline under test.
//
// Impressions and Clicks only move forward. ClickRate is derived and
// recomputed on every recording; AvgTimeOnPage, AvgScrollDepth and
// CompositeScore are only filled in when the owning test completes.
type Variant struct {
	ID          string
	Text        string
	Impressions int
	Clicks      int
	ClickRate   float64 // percent, rounded to 2 decimals
	TimeOnPage  []float64
	ScrollDepth []float64

	AvgTimeOnPage  float64
	AvgScrollDepth float64
	CompositeScore float64
}

// Test is one timed headline experiment. Status moves from running to
// completed exactly once; Winner is set at that transition and never
// changes afterwards.
type Test struct {
	ID          string
	ArticleID   string
	Variants    []*Variant
	StartTime   time.Time
	EndTime     time.Time
	Status      Status
	Winner      *Variant
	CompletedAt time.Time

	timer *time.Timer
}

// EngagementSample carries optional per-pageview engagement telemetry.
// Nil fields are simply not recorded.
type EngagementSample struct {
	TimeOnPage  *float64 // seconds
	ScrollDepth *float64 // percent, 0-100
}

// VariantSummary is the display-friendly projection of a variant.
type VariantSummary struct {
	ID             string  `json:"id"`
	Text           string  `json:"text"`
	Impressions    int     `json:"impressions"`
	Clicks         int     `json:"clicks"`
	ClickRate      string  `json:"click_rate"`
	AvgTimeOnPage  string  `json:"avg_time_on_page"`
	AvgScrollDepth string  `json:"avg_scroll_depth"`
	CompositeScore float64 `json:"composite_score"`
}

// Summary is the export projection of a test: formatted strings and a
// duration, no new computation beyond what the test already holds.
type Summary struct {
	TestID    string           `json:"test_id"`
	ArticleID string           `json:"article_id"`
	Status    Status           `json:"status"`
	StartedAt time.Time        `json:"started_at"`
	Duration  time.Duration    `json:"duration"`
	Winner    string           `json:"winner,omitempty"`
	Variants  []VariantSummary `json:"variants"`
}

func (v *Variant) clone() *Variant {
	c := *v
	c.TimeOnPage = append([]float64(nil), v.TimeOnPage...)
	c.ScrollDepth = append([]float64(nil), v.ScrollDepth...)
	return &c
}

func (t *Test) clone() *Test {
	c := *t
	c.timer = nil
	c.Variants = make([]*Variant, len(t.Variants))
	for i, v := range t.Variants {
		c.Variants[i] = v.clone()
	}
	if t.Winner != nil {
		c.Winner = t.Winner.clone()
	}
	return &c
}
