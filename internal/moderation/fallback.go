package moderation

import (
	"strings"
	"unicode"

	goahocorasick "github.com/anknown/ahocorasick"
	"github.com/abadojack/whatlanggo"

	"github.com/viebook/viebook/internal/ai"
)

// Fallback produces local approximations of the remote meaning and policy
// classifiers. It runs only when the remote service is unreachable; results
// are deliberately lenient so an AI outage never blocks submission outright.
type Fallback struct {
	matcher *goahocorasick.Machine
}

func NewFallback(bannedTerms []string) (*Fallback, error) {
	f := &Fallback{}
	if len(bannedTerms) == 0 {
		return f, nil
	}
	patterns := make([][]rune, 0, len(bannedTerms))
	for _, term := range bannedTerms {
		normalized := normalizeRunes([]rune(term))
		if len(normalized) == 0 {
			continue
		}
		patterns = append(patterns, normalized)
	}
	if len(patterns) == 0 {
		return f, nil
	}
	machine := new(goahocorasick.Machine)
	if err := machine.Build(patterns); err != nil {
		return nil, err
	}
	f.matcher = machine
	return f, nil
}

// Moderate scans normalized text for banned terms. With no term list the
// heuristic is majority-pass: everything goes through unflagged.
func (f *Fallback) Moderate(text string) *ai.ModerationResult {
	result := &ai.ModerationResult{
		Categories:     map[string]bool{},
		CategoryScores: map[string]float64{},
	}
	if f.matcher == nil {
		return result
	}
	normalized := normalizeRunes([]rune(text))
	if len(normalized) == 0 {
		return result
	}
	hits := f.matcher.MultiPatternSearch(normalized, false)
	if len(hits) == 0 {
		return result
	}
	score := float64(len(hits)) / 10
	if score > 1 {
		score = 1
	}
	result.Flagged = true
	result.Categories["banned_terms"] = true
	result.CategoryScores["banned_terms"] = score
	return result
}

// CheckMeaning approximates the meaningfulness classifier with language
// detection plus word-shape checks. Gibberish tends to detect with low
// confidence and have few repeated words.
func (f *Fallback) CheckMeaning(text string) *ai.MeaningResult {
	trimmed := strings.TrimSpace(text)
	words := strings.Fields(trimmed)
	if len(words) < 5 {
		return &ai.MeaningResult{
			HasMeaning:    false,
			MeaningScore:  0,
			MeaningReason: "too few words to evaluate",
		}
	}

	info := whatlanggo.Detect(trimmed)
	confidence := info.Confidence

	distinct := make(map[string]bool, len(words))
	longRun := 0
	for _, word := range words {
		distinct[strings.ToLower(word)] = true
		if len([]rune(word)) > 24 {
			longRun++
		}
	}
	distinctRatio := float64(len(distinct)) / float64(len(words))
	garbageRatio := float64(longRun) / float64(len(words))

	score := confidence * 100
	if distinctRatio < 0.1 || garbageRatio > 0.3 {
		score = score / 2
	}
	if score > 100 {
		score = 100
	}
	return &ai.MeaningResult{
		HasMeaning:    score >= 40,
		MeaningScore:  score,
		MeaningReason: "heuristic language check (" + info.Lang.String() + ")",
	}
}

// normalizeRunes lowercases, maps leet-speak back to letters and strips
// punctuation/whitespace so obfuscated terms still match.
func normalizeRunes(input []rune) []rune {
	out := make([]rune, 0, len(input))
	for _, r := range input {
		clean := simplifyRune(r)
		if isNoise(clean) {
			continue
		}
		out = append(out, unicode.ToLower(clean))
	}
	return out
}

func simplifyRune(r rune) rune {
	switch r {
	case '4', '@':
		return 'a'
	case '3':
		return 'e'
	case '1', '!', '|':
		return 'i'
	case '0':
		return 'o'
	case '5', '$':
		return 's'
	default:
		return r
	}
}

func isNoise(r rune) bool {
	return unicode.IsPunct(r) || unicode.IsSpace(r) || unicode.IsSymbol(r)
}
