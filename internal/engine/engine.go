// Package engine runs timed headline experiments: it allocates variants
// to pageviews, accumulates telemetry, and picks a winner by composite
// score when a test's window closes.
package engine

import (
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"sort"
	"sync"
	"time"
)

// Config holds the knobs applied at engine construction.
type Config struct {
	// TestDuration is how long a test runs before it auto-completes.
	TestDuration time.Duration
	// MaxVariants caps how many headlines a single test may carry;
	// extra headlines are dropped, not rejected.
	MaxVariants int
}

// DefaultConfig returns the stock settings: 30 minute tests, 8 variants.
func DefaultConfig() Config {
	return Config{
		TestDuration: 30 * time.Minute,
		MaxVariants:  8,
	}
}

// Engine owns the in-process registry of headline tests. All state is
// guarded by a single mutex; every method is safe for concurrent use and
// every returned Test or Variant is a snapshot, never shared state.
//
// The registry grows for the life of the engine: completed tests stay
// queryable and eviction is the host's responsibility.
type Engine struct {
	mu    sync.Mutex
	tests map[string]*Test
	cfg   Config
	rng   *rand.Rand
	now   func() time.Time

	// onComplete, when set, receives a snapshot of every test that
	// completes (timer or explicit). Used to archive results.
	onComplete func(*Test)
}

// New builds an engine. Zero or negative config values fall back to the
// defaults.
func New(cfg Config) *Engine {
	def := DefaultConfig()
	if cfg.TestDuration <= 0 {
		cfg.TestDuration = def.TestDuration
	}
	if cfg.MaxVariants <= 0 {
		cfg.MaxVariants = def.MaxVariants
	}
	return &Engine{
		tests: make(map[string]*Test),
		cfg:   cfg,
		rng:   rand.New(rand.NewSource(time.Now().UnixNano())),
		now:   time.Now,
	}
}

// OnComplete registers a hook invoked (outside the engine lock) with a
// snapshot of each test after it completes.
func (e *Engine) OnComplete(fn func(*Test)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onComplete = fn
}

// CreateTest registers a new test for articleID over the given candidate
// headlines and arms its auto-completion timer. Headlines beyond the
// variant cap are dropped with a warning. Returns a snapshot of the new
// test, or nil if no headlines were given.
func (e *Engine) CreateTest(articleID string, headlines []string) *Test {
	if len(headlines) == 0 {
		slog.Warn("headline test needs at least one variant", "article", articleID)
		return nil
	}

	e.mu.Lock()

	if len(headlines) > e.cfg.MaxVariants {
		slog.Warn("truncating headline variants",
			"article", articleID,
			"requested", len(headlines),
			"max", e.cfg.MaxVariants,
		)
		headlines = headlines[:e.cfg.MaxVariants]
	}

	start := e.now()
	id := fmt.Sprintf("%s-%d", articleID, start.UnixMilli())

	variants := make([]*Variant, len(headlines))
	for i, text := range headlines {
		variants[i] = &Variant{
			ID:   fmt.Sprintf("v%d", i),
			Text: text,
		}
	}

	t := &Test{
		ID:        id,
		ArticleID: articleID,
		Variants:  variants,
		StartTime: start,
		EndTime:   start.Add(e.cfg.TestDuration),
		Status:    StatusRunning,
	}
	t.timer = time.AfterFunc(e.cfg.TestDuration, func() {
		e.CompleteTest(id)
	})
	e.tests[id] = t

	snap := t.clone()
	e.mu.Unlock()

	slog.Info("headline test created", "test", id, "variants", len(variants))
	return snap
}

// RecordImpression counts one display of a variant. Silent no-op if the
// test is unknown, no longer running, or the variant id does not match.
func (e *Engine) RecordImpression(testID, variantID string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	t, ok := e.tests[testID]
	if !ok || t.Status != StatusRunning {
		return
	}
	if v := t.variant(variantID); v != nil {
		v.Impressions++
		v.ClickRate = clickRate(v.Clicks, v.Impressions)
	}
}

// RecordClick counts one click-through on a variant. Same gating as
// RecordImpression.
func (e *Engine) RecordClick(testID, variantID string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	t, ok := e.tests[testID]
	if !ok || t.Status != StatusRunning {
		return
	}
	if v := t.variant(variantID); v != nil {
		v.Clicks++
		v.ClickRate = clickRate(v.Clicks, v.Impressions)
	}
}

// RecordEngagement appends time-on-page / scroll-depth samples to a
// variant. Unlike impressions and clicks this is gated only on the test
// existing, not on it still running: engagement beacons routinely arrive
// after a test window closes, from sessions that started inside it.
func (e *Engine) RecordEngagement(testID, variantID string, sample EngagementSample) {
	e.mu.Lock()
	defer e.mu.Unlock()

	t, ok := e.tests[testID]
	if !ok {
		return
	}
	v := t.variant(variantID)
	if v == nil {
		return
	}
	if sample.TimeOnPage != nil {
		v.TimeOnPage = append(v.TimeOnPage, *sample.TimeOnPage)
	}
	if sample.ScrollDepth != nil {
		v.ScrollDepth = append(v.ScrollDepth, *sample.ScrollDepth)
	}
}

// CompleteTest finalizes a test: scores every variant, picks the winner,
// and flips the status. It is idempotent — the auto-completion timer and
// an explicit call can race freely, the second caller gets nil. Returns
// a snapshot of the completed test.
func (e *Engine) CompleteTest(testID string) *Test {
	e.mu.Lock()

	t, ok := e.tests[testID]
	if !ok || t.Status == StatusCompleted {
		e.mu.Unlock()
		return nil
	}

	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}

	var winner *Variant
	for _, v := range t.Variants {
		v.AvgTimeOnPage = mean(v.TimeOnPage)
		v.AvgScrollDepth = mean(v.ScrollDepth)
		v.CompositeScore = compositeScore(v.ClickRate, v.AvgTimeOnPage, v.AvgScrollDepth)
		if winner == nil || v.CompositeScore > winner.CompositeScore {
			winner = v
		}
	}

	t.Winner = winner
	t.Status = StatusCompleted
	t.CompletedAt = e.now()

	snap := t.clone()
	hook := e.onComplete
	e.mu.Unlock()

	slog.Info("headline test completed", "test", testID, "winner", snap.Winner.ID)
	if hook != nil {
		hook(snap)
	}
	return snap
}

// VariantForDisplay picks which headline to show for one pageview: a
// uniformly random variant while the test runs (deliberately no adaptive
// weighting), the winner once it completes, nil if the test is unknown.
func (e *Engine) VariantForDisplay(testID string) *Variant {
	e.mu.Lock()
	defer e.mu.Unlock()

	t, ok := e.tests[testID]
	if !ok {
		return nil
	}
	if t.Status == StatusCompleted {
		if t.Winner == nil {
			return nil
		}
		return t.Winner.clone()
	}
	return t.Variants[e.rng.Intn(len(t.Variants))].clone()
}

// Get returns a snapshot of a test, or nil if unknown.
func (e *Engine) Get(testID string) *Test {
	e.mu.Lock()
	defer e.mu.Unlock()

	t, ok := e.tests[testID]
	if !ok {
		return nil
	}
	return t.clone()
}

// List returns snapshots of all registered tests, newest first.
func (e *Engine) List() []*Test {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]*Test, 0, len(e.tests))
	for _, t := range e.tests {
		out = append(out, t.clone())
	}
	sortTestsByStart(out)
	return out
}

// ExportTestData projects a test into its display summary: formatted
// percentages and a duration measured to completion, or to now if the
// test is still running. Nil if the test is unknown.
func (e *Engine) ExportTestData(testID string) *Summary {
	e.mu.Lock()
	defer e.mu.Unlock()

	t, ok := e.tests[testID]
	if !ok {
		return nil
	}

	end := t.CompletedAt
	if t.Status != StatusCompleted {
		end = e.now()
	}

	s := &Summary{
		TestID:    t.ID,
		ArticleID: t.ArticleID,
		Status:    t.Status,
		StartedAt: t.StartTime,
		Duration:  end.Sub(t.StartTime),
		Variants:  make([]VariantSummary, len(t.Variants)),
	}
	if t.Winner != nil {
		s.Winner = t.Winner.ID
	}
	for i, v := range t.Variants {
		s.Variants[i] = VariantSummary{
			ID:             v.ID,
			Text:           v.Text,
			Impressions:    v.Impressions,
			Clicks:         v.Clicks,
			ClickRate:      fmt.Sprintf("%.2f%%", v.ClickRate),
			AvgTimeOnPage:  fmt.Sprintf("%.1fs", v.AvgTimeOnPage),
			AvgScrollDepth: fmt.Sprintf("%.1f%%", v.AvgScrollDepth),
			CompositeScore: v.CompositeScore,
		}
	}
	return s
}

// Close disarms every pending auto-completion timer. Running tests stay
// in the registry but will no longer self-complete.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, t := range e.tests {
		if t.timer != nil {
			t.timer.Stop()
			t.timer = nil
		}
	}
}

func sortTestsByStart(tests []*Test) {
	sort.Slice(tests, func(i, j int) bool {
		return tests[i].StartTime.After(tests[j].StartTime)
	})
}

func (t *Test) variant(id string) *Variant {
	for _, v := range t.Variants {
		if v.ID == id {
			return v
		}
	}
	return nil
}

// clickRate is clicks/impressions as a percentage, rounded to two
// decimals; zero when there are no impressions.
func clickRate(clicks, impressions int) float64 {
	if impressions == 0 {
		return 0
	}
	rate := float64(clicks) / float64(impressions) * 100
	return math.Round(rate*100) / 100
}

// compositeScore blends click rate, time on page, and scroll depth.
// The trailing *100 on the scroll term is kept as-is from the scoring
// scheme this engine reproduces; it scales that term well beyond its
// nominal 15% weight.
func compositeScore(rate, avgTime, avgScroll float64) float64 {
	return rate*0.6 + (avgTime/60)*0.25 + (avgScroll/100)*0.15*100
}

func mean(samples []float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	sum := 0.0
	for _, s := range samples {
		sum += s
	}
	return sum / float64(len(samples))
}
