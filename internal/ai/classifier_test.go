package ai

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeGenerator struct {
	response   string
	err        error
	calls      int
	lastPrompt string
}

func (f *fakeGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	f.calls++
	f.lastPrompt = prompt
	return f.response, f.err
}

func TestCheckMeaningParsesResponse(t *testing.T) {
	gen := &fakeGenerator{response: `{"has_meaning": true, "meaning_score": 87, "meaning_reason": "coherent prose"}`}
	classifier := NewClassifier(gen, ClassifierConfig{})

	result, err := classifier.CheckMeaning(context.Background(), "some chapter text")
	require.NoError(t, err)
	require.True(t, result.HasMeaning)
	require.Equal(t, float64(87), result.MeaningScore)
	require.Equal(t, "coherent prose", result.MeaningReason)
}

func TestCheckMeaningScoreDefaultsWhenAbsent(t *testing.T) {
	gen := &fakeGenerator{response: `{"has_meaning": true}`}
	classifier := NewClassifier(gen, ClassifierConfig{})

	result, err := classifier.CheckMeaning(context.Background(), "text")
	require.NoError(t, err)
	require.Equal(t, float64(100), result.MeaningScore)
}

func TestCheckMeaningZeroScoreKept(t *testing.T) {
	gen := &fakeGenerator{response: `{"has_meaning": false, "meaning_score": 0}`}
	classifier := NewClassifier(gen, ClassifierConfig{})

	result, err := classifier.CheckMeaning(context.Background(), "asdf asdf")
	require.NoError(t, err)
	require.False(t, result.HasMeaning)
	require.Zero(t, result.MeaningScore)
}

func TestCheckMeaningMissingRequiredField(t *testing.T) {
	gen := &fakeGenerator{response: `{"meaning_score": 50}`}
	classifier := NewClassifier(gen, ClassifierConfig{})

	_, err := classifier.CheckMeaning(context.Background(), "text")
	require.Error(t, err)
}

func TestCheckMeaningStripsCodeFence(t *testing.T) {
	gen := &fakeGenerator{response: "```json\n{\"has_meaning\": true, \"meaning_score\": 70}\n```"}
	classifier := NewClassifier(gen, ClassifierConfig{})

	result, err := classifier.CheckMeaning(context.Background(), "text")
	require.NoError(t, err)
	require.Equal(t, float64(70), result.MeaningScore)
}

func TestCheckMeaningClampsOutOfRangeScore(t *testing.T) {
	gen := &fakeGenerator{response: `{"has_meaning": true, "meaning_score": 250}`}
	classifier := NewClassifier(gen, ClassifierConfig{})

	result, err := classifier.CheckMeaning(context.Background(), "text")
	require.NoError(t, err)
	require.Equal(t, float64(100), result.MeaningScore)
}

func TestClassifierTruncatesOverLongInput(t *testing.T) {
	gen := &fakeGenerator{response: `{"has_meaning": true}`}
	classifier := NewClassifier(gen, ClassifierConfig{MaxInputChars: 10})

	_, err := classifier.CheckMeaning(context.Background(), strings.Repeat("x", 10)+"OVERFLOW")
	require.NoError(t, err)
	require.Contains(t, gen.lastPrompt, strings.Repeat("x", 10))
	require.NotContains(t, gen.lastPrompt, "OVERFLOW")
}

func TestClassifierKeepsInputWithinLimit(t *testing.T) {
	gen := &fakeGenerator{response: `{"has_meaning": true}`}
	classifier := NewClassifier(gen, ClassifierConfig{MaxInputChars: 100})

	_, err := classifier.CheckMeaning(context.Background(), "a short and complete draft")
	require.NoError(t, err)
	require.Contains(t, gen.lastPrompt, "a short and complete draft")
}

func TestCheckMeaningGeneratorErrorPropagates(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("boom")}
	classifier := NewClassifier(gen, ClassifierConfig{})

	_, err := classifier.CheckMeaning(context.Background(), "text")
	require.Error(t, err)
}

func TestModerateParsesResponse(t *testing.T) {
	gen := &fakeGenerator{response: `{"flagged": true, "categories": {"violence": true}, "category_scores": {"violence": 0.91}}`}
	classifier := NewClassifier(gen, ClassifierConfig{})

	result, err := classifier.Moderate(context.Background(), "text")
	require.NoError(t, err)
	require.True(t, result.Flagged)
	require.True(t, result.Categories["violence"])
	require.Equal(t, 0.91, result.CategoryScores["violence"])
}

func TestModerateNilMapsBecomeEmpty(t *testing.T) {
	gen := &fakeGenerator{response: `{"flagged": false}`}
	classifier := NewClassifier(gen, ClassifierConfig{})

	result, err := classifier.Moderate(context.Background(), "text")
	require.NoError(t, err)
	require.NotNil(t, result.Categories)
	require.NotNil(t, result.CategoryScores)
}

func TestModerateMissingFlaggedRejected(t *testing.T) {
	gen := &fakeGenerator{response: `{"categories": {}}`}
	classifier := NewClassifier(gen, ClassifierConfig{})

	_, err := classifier.Moderate(context.Background(), "text")
	require.Error(t, err)
}

func TestCheckSpellingDefaults(t *testing.T) {
	gen := &fakeGenerator{response: `{"errors": []}`}
	classifier := NewClassifier(gen, ClassifierConfig{})

	result, err := classifier.CheckSpelling(context.Background(), "text")
	require.NoError(t, err)
	require.True(t, result.IsCorrect)
	require.True(t, result.HasMeaning)
	require.Equal(t, float64(100), result.MeaningScore)
}

func TestCheckSpellingErrorsImplyIncorrect(t *testing.T) {
	gen := &fakeGenerator{response: `{"errors": [{"wrong": "recieve", "suggestion": "receive"}]}`}
	classifier := NewClassifier(gen, ClassifierConfig{})

	result, err := classifier.CheckSpelling(context.Background(), "text")
	require.NoError(t, err)
	require.False(t, result.IsCorrect)
	require.Len(t, result.Errors, 1)
	require.Equal(t, "receive", result.Errors[0].Suggestion)
}

func TestClassifyCachesByTextAndFeature(t *testing.T) {
	gen := &fakeGenerator{response: `{"has_meaning": true}`}
	classifier := NewClassifier(gen, ClassifierConfig{})

	_, err := classifier.CheckMeaning(context.Background(), "same text")
	require.NoError(t, err)
	_, err = classifier.CheckMeaning(context.Background(), "same text")
	require.NoError(t, err)
	require.Equal(t, 1, gen.calls)

	_, err = classifier.CheckMeaning(context.Background(), "different text")
	require.NoError(t, err)
	require.Equal(t, 2, gen.calls)
}

func TestExtractJSONObject(t *testing.T) {
	require.Equal(t, `{"a": 1}`, extractJSONObject("Here you go:\n```json\n{\"a\": 1}\n```\nHope that helps"))
	require.Equal(t, `{"a": 1}`, extractJSONObject(`{"a": 1}`))
	require.Equal(t, `{"nested": {"b": 2}}`, extractJSONObject(`prefix {"nested": {"b": 2}} suffix`))
}
