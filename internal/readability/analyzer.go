package readability

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Words per minute assumed for the reading-time estimate.
const wordsPerMinute = 225

// ReadingTime is the estimated time to read an article.
type ReadingTime struct {
	Minutes int
	Display string
}

// Readability holds the Flesch-based readability scores.
type Readability struct {
	FleschScore  int     // Flesch Reading Ease, rounded to nearest integer
	GradeLevel   float64 // Flesch-Kincaid grade, rounded to one decimal
	ReadingLevel string
}

// ReadingStats is a snapshot of lexical statistics for one piece of
// article markup. It is computed fresh on every call and holds no state.
type ReadingStats struct {
	WordCount      int
	CharacterCount int
	SentenceCount  int
	ParagraphCount int
	ReadingTime    ReadingTime
	Readability    Readability
}

var (
	tagRe       = regexp.MustCompile(`<[^>]*>`)
	sentenceRe  = regexp.MustCompile(`[.!?]+`)
	paragraphRe = regexp.MustCompile(`(?i)</p>|<br\s*/?>|\n+`)
	nonLetterRe = regexp.MustCompile(`[^a-z]`)
	silentEndRe = regexp.MustCompile(`(?:[^laeiouy]es|ed|[^laeiouy]e)$`)
	vowelRunRe  = regexp.MustCompile(`[aeiouy]{1,2}`)
)

// StripMarkup removes anything that looks like a tag from markup and
// returns the remaining text. It is a heuristic, not a parser: malformed
// or nested markup can leak fragments into the output, which is
// acceptable for a readability estimate.
func StripMarkup(markup string) string {
	return strings.TrimSpace(tagRe.ReplaceAllString(markup, " "))
}

// CalculateReadingStats computes word/sentence/paragraph counts, reading
// time, and Flesch readability scores for article markup.
//
// When the text has no words or no sentences the Flesch formulas are
// undefined; this implementation reports score 0 and grade 0 instead of
// NaN, which lands in the hardest reading-level bucket.
func CalculateReadingStats(markup string) ReadingStats {
	text := StripMarkup(markup)

	words := strings.Fields(text)
	wordCount := len(words)

	sentenceCount := 0
	for _, s := range sentenceRe.Split(text, -1) {
		if strings.TrimSpace(s) != "" {
			sentenceCount++
		}
	}

	// Paragraph boundaries are counted in the original markup, not the
	// stripped text.
	paragraphCount := 0
	for _, p := range paragraphRe.Split(markup, -1) {
		if StripMarkup(p) != "" {
			paragraphCount++
		}
	}

	minutes := int(math.Ceil(float64(wordCount) / wordsPerMinute))

	syllables := 0
	for _, w := range words {
		syllables += CountSyllables(w)
	}

	flesch, grade := fleschScores(wordCount, sentenceCount, syllables)

	return ReadingStats{
		WordCount:      wordCount,
		CharacterCount: utf8.RuneCountInString(text),
		SentenceCount:  sentenceCount,
		ParagraphCount: paragraphCount,
		ReadingTime: ReadingTime{
			Minutes: minutes,
			Display: fmt.Sprintf("%d min read", minutes),
		},
		Readability: Readability{
			FleschScore:  int(math.Round(flesch)),
			GradeLevel:   math.Round(grade*10) / 10,
			ReadingLevel: ReadingLevel(flesch),
		},
	}
}

// fleschScores returns the raw Flesch Reading Ease and Flesch-Kincaid
// grade. Zero words or zero sentences yields (0, 0).
func fleschScores(words, sentences, syllables int) (flesch, grade float64) {
	if words == 0 || sentences == 0 {
		return 0, 0
	}

	wordsPerSentence := float64(words) / float64(sentences)
	syllablesPerWord := float64(syllables) / float64(words)

	flesch = 206.835 - 1.015*wordsPerSentence - 84.6*syllablesPerWord
	grade = 0.39*wordsPerSentence + 11.8*syllablesPerWord - 15.59
	return flesch, grade
}

// CountSyllables estimates the syllable count of a single word using the
// classic heuristic: short words count as one; otherwise silent endings
// and a leading y are stripped and runs of up to two vowels (y included)
// each count as one syllable. The rule order is deliberate, since the
// Flesch constants above are calibrated against this estimator.
func CountSyllables(word string) int {
	w := nonLetterRe.ReplaceAllString(strings.ToLower(word), "")
	if len(w) <= 3 {
		return 1
	}

	w = silentEndRe.ReplaceAllString(w, "")
	w = strings.TrimPrefix(w, "y")

	groups := vowelRunRe.FindAllString(w, -1)
	if len(groups) == 0 {
		return 1
	}
	return len(groups)
}

// ReadingLevel buckets a raw (unrounded) Flesch Reading Ease score.
// Thresholds apply in strict descending order, first match wins.
func ReadingLevel(flesch float64) string {
	switch {
	case flesch >= 90:
		return "Very Easy (5th grade)"
	case flesch >= 80:
		return "Easy (6th grade)"
	case flesch >= 70:
		return "Fairly Easy (7th grade)"
	case flesch >= 60:
		return "Standard (8th-9th grade)"
	case flesch >= 50:
		return "Fairly Difficult (10th-12th grade)"
	case flesch >= 30:
		return "Difficult (College)"
	default:
		return "Very Difficult (Professional)"
	}
}
