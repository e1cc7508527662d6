package moderation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestModerateNoTermListPassesEverything(t *testing.T) {
	fallback, err := NewFallback(nil)
	require.NoError(t, err)

	result := fallback.Moderate("any content at all")
	require.False(t, result.Flagged)
	require.Empty(t, result.Categories)
}

func TestModerateFlagsBannedTerm(t *testing.T) {
	fallback, err := NewFallback([]string{"contraband"})
	require.NoError(t, err)

	result := fallback.Moderate("this chapter mentions contraband openly")
	require.True(t, result.Flagged)
	require.True(t, result.Categories["banned_terms"])
	require.Greater(t, result.CategoryScores["banned_terms"], float64(0))
}

func TestModerateMatchesObfuscatedTerm(t *testing.T) {
	fallback, err := NewFallback([]string{"contraband"})
	require.NoError(t, err)

	// Leet-speak and injected punctuation are normalized away.
	result := fallback.Moderate("smuggling c0ntr4-b4nd across the border")
	require.True(t, result.Flagged)
}

func TestModerateCleanTextNotFlagged(t *testing.T) {
	fallback, err := NewFallback([]string{"contraband"})
	require.NoError(t, err)

	result := fallback.Moderate("a quiet story about fishing villages")
	require.False(t, result.Flagged)
}

func TestCheckMeaningTooFewWords(t *testing.T) {
	fallback, err := NewFallback(nil)
	require.NoError(t, err)

	result := fallback.CheckMeaning("just three words")
	require.False(t, result.HasMeaning)
	require.Zero(t, result.MeaningScore)
}

func TestCheckMeaningNaturalLanguagePasses(t *testing.T) {
	fallback, err := NewFallback(nil)
	require.NoError(t, err)

	text := "The old fisherman walked slowly along the shore every morning, " +
		"watching the boats return with their catch while the village woke around him."
	result := fallback.CheckMeaning(text)
	require.True(t, result.HasMeaning)
	require.GreaterOrEqual(t, result.MeaningScore, float64(40))
	require.Contains(t, result.MeaningReason, "heuristic language check")
}

func TestCheckMeaningRepetitionPenalized(t *testing.T) {
	fallback, err := NewFallback(nil)
	require.NoError(t, err)

	repeated := strings.TrimSpace(strings.Repeat("lorem ", 100))
	result := fallback.CheckMeaning(repeated)
	natural := fallback.CheckMeaning("The old fisherman walked slowly along the shore every morning watching boats return")
	require.Less(t, result.MeaningScore, natural.MeaningScore)
}

func TestNormalizeRunes(t *testing.T) {
	require.Equal(t, "contraband", string(normalizeRunes([]rune("C0nTr4-B4nd!"))))
	require.Equal(t, "sis", string(normalizeRunes([]rune("$1 5"))))
	require.Empty(t, normalizeRunes([]rune("  ...  ")))
}
