package stats_test

import (
	"testing"

	"github.com/headline-lab/headline-lab/internal/engine"
	"github.com/headline-lab/headline-lab/internal/stats"
)

func TestSignificanceTest_ClearWinner(t *testing.T) {
	// 30% vs 10% over 1000 impressions each is overwhelming.
	confidence := stats.SignificanceTest(300, 1000, 100, 1000)
	if confidence < 0.99 {
		t.Errorf("confidence = %f, want >= 0.99", confidence)
	}
}

func TestSignificanceTest_NoData(t *testing.T) {
	if got := stats.SignificanceTest(0, 0, 0, 0); got != 0.5 {
		t.Errorf("confidence with no data = %f, want 0.5", got)
	}
	if got := stats.SignificanceTest(10, 100, 0, 0); got != 0.5 {
		t.Errorf("confidence with one-sided data = %f, want 0.5", got)
	}
}

func TestSignificanceTest_EqualRates(t *testing.T) {
	confidence := stats.SignificanceTest(50, 500, 50, 500)
	if confidence < 0.45 || confidence > 0.55 {
		t.Errorf("confidence for equal rates = %f, want ~0.5", confidence)
	}
}

func TestSignificanceTest_SmallSampleInconclusive(t *testing.T) {
	// 2/10 vs 1/10 is nowhere near significant.
	confidence := stats.SignificanceTest(2, 10, 1, 10)
	if confidence >= 0.95 {
		t.Errorf("confidence = %f, want < 0.95 for tiny samples", confidence)
	}
}

func testSnapshot(variants ...*engine.Variant) *engine.Test {
	return &engine.Test{
		ID:       "story-9-1",
		Variants: variants,
	}
}

func TestAnalyze_ChallengerLeads(t *testing.T) {
	result := stats.Analyze(testSnapshot(
		&engine.Variant{ID: "v0", Text: "Control", Impressions: 1000, Clicks: 100},
		&engine.Variant{ID: "v1", Text: "Challenger", Impressions: 1000, Clicks: 300},
	))

	if result.LeadingVariant != 1 {
		t.Errorf("LeadingVariant = %d, want 1", result.LeadingVariant)
	}
	if !result.Confident {
		t.Errorf("expected a confident result, got %f", result.ConfidenceLevel)
	}
	if result.Variants[1].Rate != 0.3 {
		t.Errorf("challenger rate = %f, want 0.3", result.Variants[1].Rate)
	}
}

func TestAnalyze_ControlLeads(t *testing.T) {
	result := stats.Analyze(testSnapshot(
		&engine.Variant{ID: "v0", Impressions: 1000, Clicks: 300},
		&engine.Variant{ID: "v1", Impressions: 1000, Clicks: 100},
		&engine.Variant{ID: "v2", Impressions: 1000, Clicks: 150},
	))

	if result.LeadingVariant != 0 {
		t.Errorf("LeadingVariant = %d, want 0 (control)", result.LeadingVariant)
	}
	// Control is measured against the best challenger (v2).
	if !result.Confident {
		t.Errorf("expected a confident result, got %f", result.ConfidenceLevel)
	}
}

func TestAnalyze_NoImpressions(t *testing.T) {
	result := stats.Analyze(testSnapshot(
		&engine.Variant{ID: "v0"},
		&engine.Variant{ID: "v1"},
	))

	if result.ConfidenceLevel != 0.5 {
		t.Errorf("ConfidenceLevel = %f, want 0.5 with no data", result.ConfidenceLevel)
	}
	if result.Confident {
		t.Error("no-data result marked confident")
	}
}

func TestAnalyze_SingleVariant(t *testing.T) {
	result := stats.Analyze(testSnapshot(&engine.Variant{ID: "v0", Impressions: 10, Clicks: 5}))

	if result.ConfidenceLevel != 0 {
		t.Errorf("ConfidenceLevel = %f, want 0 for a single variant", result.ConfidenceLevel)
	}
}
