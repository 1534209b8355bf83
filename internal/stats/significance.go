// Package stats adds classical significance analysis on top of the
// engine's composite scoring: Wilson intervals per variant and a
// two-proportion z-test between the leader and the control. The engine
// still picks winners by composite score; this package only reports how
// much the click data alone supports that call.
package stats

import (
	"math"

	"github.com/headline-lab/headline-lab/internal/engine"
)

// VariantResult holds click statistics for a single headline variant.
type VariantResult struct {
	ID          string
	Text        string
	Impressions int
	Clicks      int
	Rate        float64
	CILower     float64
	CIUpper     float64
}

// Result is the significance analysis of one test.
type Result struct {
	Variants        []VariantResult
	LeadingVariant  int
	ConfidenceLevel float64 // 0-1 that the leader beats the control
	Confident       bool    // >= 95%
}

// SignificanceTest runs a two-proportion z-test and returns the
// confidence (0-1) that variant A's true rate exceeds variant B's.
func SignificanceTest(aClicks, aImpressions, bClicks, bImpressions int) float64 {
	if aImpressions == 0 || bImpressions == 0 {
		return 0.5 // need data on both sides
	}

	pA := float64(aClicks) / float64(aImpressions)
	pB := float64(bClicks) / float64(bImpressions)

	pooled := float64(aClicks+bClicks) / float64(aImpressions+bImpressions)
	se := math.Sqrt(pooled * (1 - pooled) * (1/float64(aImpressions) + 1/float64(bImpressions)))

	if se == 0 {
		switch {
		case pA > pB:
			return 1.0
		case pA < pB:
			return 0.0
		default:
			return 0.5
		}
	}

	return normalCDF((pA - pB) / se)
}

// normalCDF approximates the standard normal CDF via the
// Abramowitz-Stegun erf expansion (formula 7.1.26).
func normalCDF(x float64) float64 {
	a1 := 0.254829592
	a2 := -0.284496736
	a3 := 1.421413741
	a4 := -1.453152027
	a5 := 1.061405429
	p := 0.3275911

	sign := 1.0
	if x < 0 {
		sign = -1.0
	}
	x = math.Abs(x) / math.Sqrt2

	t := 1.0 / (1.0 + p*x)
	y := 1.0 - (((((a5*t+a4)*t)+a3)*t+a2)*t+a1)*t*math.Exp(-x*x)

	return 0.5 * (1.0 + sign*y)
}

// Analyze computes per-variant click statistics for a test snapshot and
// the confidence that the click-rate leader beats the control (the
// first variant). With fewer than two variants the confidence stays 0.
func Analyze(t *engine.Test) *Result {
	variants := make([]VariantResult, len(t.Variants))
	leading := 0
	maxRate := 0.0

	for i, v := range t.Variants {
		rate := 0.0
		if v.Impressions > 0 {
			rate = float64(v.Clicks) / float64(v.Impressions)
		}
		lower, upper := WilsonInterval(v.Clicks, v.Impressions, 0.95)

		variants[i] = VariantResult{
			ID:          v.ID,
			Text:        v.Text,
			Impressions: v.Impressions,
			Clicks:      v.Clicks,
			Rate:        rate,
			CILower:     lower,
			CIUpper:     upper,
		}
		if rate > maxRate {
			maxRate = rate
			leading = i
		}
	}

	var confidence float64
	if len(variants) >= 2 {
		if leading == 0 {
			// Control leads; measure it against the best challenger.
			challenger := 1
			best := 0.0
			for i := 1; i < len(variants); i++ {
				if variants[i].Rate > best {
					best = variants[i].Rate
					challenger = i
				}
			}
			confidence = SignificanceTest(
				variants[0].Clicks, variants[0].Impressions,
				variants[challenger].Clicks, variants[challenger].Impressions,
			)
		} else {
			confidence = SignificanceTest(
				variants[leading].Clicks, variants[leading].Impressions,
				variants[0].Clicks, variants[0].Impressions,
			)
		}
	}

	return &Result{
		Variants:        variants,
		LeadingVariant:  leading,
		ConfidenceLevel: confidence,
		Confident:       confidence >= 0.95,
	}
}
