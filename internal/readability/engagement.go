package readability

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Article is the minimal record the engagement predictor needs.
type Article struct {
	Title string
	Body  string
}

// Factor explains one triggered scoring rule.
type Factor struct {
	Factor string
	Impact string
}

// EngagementPrediction scores how shareable an article is and how likely
// readers are to finish it. Scores are additive points, not percentages:
// no upper clamp is applied here, so the aggregate can exceed 100 and
// display layers are expected to cap their bars themselves.
type EngagementPrediction struct {
	Shareability         int
	CompletionLikelihood int
	Factors              []Factor
}

var (
	digitRe      = regexp.MustCompile(`\d`)
	imageRe      = regexp.MustCompile(`(?i)<img[\s>]`)
	blockquoteRe = regexp.MustCompile(`(?i)<blockquote[\s>]`)
)

// PredictEngagement applies a fixed set of additive heuristics to an
// article. Each rule fires independently and appends an explanatory
// factor; rule order only affects the order of the factor list.
func PredictEngagement(article Article) EngagementPrediction {
	var p EngagementPrediction

	stats := CalculateReadingStats(article.Body)
	titleLen := utf8.RuneCountInString(article.Title)

	if titleLen >= 40 && titleLen <= 70 {
		p.Shareability += 20
		p.Factors = append(p.Factors, Factor{"Optimal headline length", "shareability +20"})
	}
	if digitRe.MatchString(article.Title) {
		p.Shareability += 15
		p.Factors = append(p.Factors, Factor{"Number in headline", "shareability +15"})
	}
	if strings.Contains(article.Title, "?") {
		p.Shareability += 10
		p.Factors = append(p.Factors, Factor{"Question headline", "shareability +10"})
	}
	if stats.Readability.FleschScore >= 60 {
		p.CompletionLikelihood += 25
		p.Factors = append(p.Factors, Factor{"Good readability", "completion +25"})
	}
	if stats.WordCount >= 1000 && stats.WordCount <= 2000 {
		p.CompletionLikelihood += 20
		p.Factors = append(p.Factors, Factor{"Optimal length", "completion +20"})
	}
	if imageRe.MatchString(article.Body) {
		p.Shareability += 15
		p.CompletionLikelihood += 10
		p.Factors = append(p.Factors, Factor{"Contains images", "shareability +15, completion +10"})
	}
	if blockquoteRe.MatchString(article.Body) {
		p.Shareability += 10
		p.Factors = append(p.Factors, Factor{"Contains quotes", "shareability +10"})
	}

	return p
}
