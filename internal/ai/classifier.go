package ai

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// MeaningResult is the validated shape of the meaningfulness classifier.
type MeaningResult struct {
	HasMeaning    bool    `json:"has_meaning"`
	MeaningScore  float64 `json:"meaning_score"`
	MeaningReason string  `json:"meaning_reason"`
}

// ModerationResult is the validated shape of the policy classifier.
type ModerationResult struct {
	Flagged        bool               `json:"flagged"`
	Categories     map[string]bool    `json:"categories"`
	CategoryScores map[string]float64 `json:"category_scores"`
}

type SpellingError struct {
	Wrong       string `json:"wrong"`
	Suggestion  string `json:"suggestion"`
	Explanation string `json:"explanation"`
}

type SpellingResult struct {
	Errors        []SpellingError `json:"errors"`
	HasMeaning    bool            `json:"has_meaning"`
	MeaningScore  float64         `json:"meaning_score"`
	MeaningReason string          `json:"meaning_reason"`
	IsCorrect     bool            `json:"is_correct"`
}

type ClassifierConfig struct {
	Timeout       int
	MaxInputChars int
}

// Classifier turns free-form model output into strict result types. Raw
// responses are duck-typed (fields optional, sometimes fenced or
// string-encoded), so every field goes through explicit defaulting here
// before anything downstream sees it.
type Classifier struct {
	gen   IGenerator
	cfg   ClassifierConfig
	cache *expirable.LRU[string, string]
}

func NewClassifier(gen IGenerator, cfg ClassifierConfig) *Classifier {
	return &Classifier{
		gen:   gen,
		cfg:   cfg,
		cache: expirable.NewLRU[string, string](10000, nil, 2*time.Hour),
	}
}

func (c *Classifier) CheckMeaning(ctx context.Context, text string) (*MeaningResult, error) {
	text = c.truncateInput(text)
	prompt := fmt.Sprintf(`You are a content quality classifier for a book publishing platform.
Decide whether the following chapter text is meaningful written content, as
opposed to gibberish, keyboard mashing, repeated filler, or random characters.
Respond with ONLY a JSON object:
{"has_meaning": bool, "meaning_score": number 0-100, "meaning_reason": "short explanation"}

TEXT:
%s`, text)
	raw, err := c.classify(ctx, "meaning", prompt)
	if err != nil {
		return nil, err
	}
	var parsed struct {
		HasMeaning    *bool          `json:"has_meaning"`
		MeaningScore  *float64       `json:"meaning_score"`
		MeaningReason stringOrAbsent `json:"meaning_reason"`
	}
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, fmt.Errorf("parse meaning response: %w", err)
	}
	if parsed.HasMeaning == nil {
		return nil, fmt.Errorf("meaning response missing has_meaning")
	}
	result := &MeaningResult{
		HasMeaning:    *parsed.HasMeaning,
		MeaningScore:  100,
		MeaningReason: string(parsed.MeaningReason),
	}
	// Default 100 only when the field is absent, not when present-but-zero.
	if parsed.MeaningScore != nil {
		result.MeaningScore = clampScore(*parsed.MeaningScore)
	}
	return result, nil
}

func (c *Classifier) Moderate(ctx context.Context, text string) (*ModerationResult, error) {
	text = c.truncateInput(text)
	prompt := fmt.Sprintf(`You are a content moderation classifier for a book publishing platform.
Check the following chapter text against these categories: hate, harassment,
sexual/minors, violence, self-harm, illicit.
Respond with ONLY a JSON object:
{"flagged": bool, "categories": {"<name>": bool, ...}, "category_scores": {"<name>": number 0-1, ...}}

TEXT:
%s`, text)
	raw, err := c.classify(ctx, "moderation", prompt)
	if err != nil {
		return nil, err
	}
	var parsed struct {
		Flagged        *bool              `json:"flagged"`
		Categories     map[string]bool    `json:"categories"`
		CategoryScores map[string]float64 `json:"category_scores"`
	}
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, fmt.Errorf("parse moderation response: %w", err)
	}
	if parsed.Flagged == nil {
		return nil, fmt.Errorf("moderation response missing flagged")
	}
	result := &ModerationResult{
		Flagged:        *parsed.Flagged,
		Categories:     parsed.Categories,
		CategoryScores: parsed.CategoryScores,
	}
	if result.Categories == nil {
		result.Categories = map[string]bool{}
	}
	if result.CategoryScores == nil {
		result.CategoryScores = map[string]float64{}
	}
	return result, nil
}

func (c *Classifier) CheckSpelling(ctx context.Context, text string) (*SpellingResult, error) {
	text = c.truncateInput(text)
	prompt := fmt.Sprintf(`You are a Vietnamese and English spelling and grammar checker.
Find spelling mistakes in the chapter text below, and also judge whether the
text is meaningful content.
Respond with ONLY a JSON object:
{"errors": [{"wrong": "...", "suggestion": "...", "explanation": "..."}],
 "has_meaning": bool, "meaning_score": number 0-100, "meaning_reason": "...",
 "is_correct": bool}

TEXT:
%s`, text)
	raw, err := c.classify(ctx, "spelling", prompt)
	if err != nil {
		return nil, err
	}
	var parsed struct {
		Errors        []SpellingError `json:"errors"`
		HasMeaning    *bool           `json:"has_meaning"`
		MeaningScore  *float64        `json:"meaning_score"`
		MeaningReason string          `json:"meaning_reason"`
		IsCorrect     *bool           `json:"is_correct"`
	}
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, fmt.Errorf("parse spelling response: %w", err)
	}
	result := &SpellingResult{
		Errors:        parsed.Errors,
		HasMeaning:    true,
		MeaningScore:  100,
		MeaningReason: parsed.MeaningReason,
		IsCorrect:     len(parsed.Errors) == 0,
	}
	if parsed.HasMeaning != nil {
		result.HasMeaning = *parsed.HasMeaning
	}
	if parsed.MeaningScore != nil {
		result.MeaningScore = clampScore(*parsed.MeaningScore)
	}
	if parsed.IsCorrect != nil {
		result.IsCorrect = *parsed.IsCorrect
	}
	return result, nil
}

func (c *Classifier) classify(ctx context.Context, feature, prompt string) (string, error) {
	if c.gen == nil {
		return "", ErrUnavailable
	}
	cacheKey := c.cacheKey(feature, prompt)
	if cached, ok := c.cache.Get(cacheKey); ok {
		return cached, nil
	}
	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(c.cfg.Timeout)*time.Second)
		defer cancel()
	}
	resp, err := c.gen.Generate(ctx, prompt)
	if err != nil {
		return "", err
	}
	clean := extractJSONObject(resp)
	if clean == "" {
		return "", fmt.Errorf("empty classifier response")
	}
	c.cache.Add(cacheKey, clean)
	return clean, nil
}

// truncateInput caps the text embedded into prompts. Over-long chapters are
// classified on their prefix; the submission length limit is enforced
// elsewhere, this only bounds token spend per call.
func (c *Classifier) truncateInput(text string) string {
	if c.cfg.MaxInputChars <= 0 {
		return text
	}
	runes := []rune(text)
	if len(runes) <= c.cfg.MaxInputChars {
		return text
	}
	return string(runes[:c.cfg.MaxInputChars])
}

func (c *Classifier) cacheKey(feature, text string) string {
	hash := sha256.Sum256([]byte(text))
	return feature + ":" + hex.EncodeToString(hash[:])
}

// stringOrAbsent tolerates models that wrap a reason in a nested structure or
// return a bare number; anything non-string decodes to its JSON text.
type stringOrAbsent string

func (s *stringOrAbsent) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		*s = stringOrAbsent(str)
		return nil
	}
	*s = stringOrAbsent(strings.Trim(string(data), `"`))
	return nil
}

func clampScore(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// extractJSONObject strips markdown fences and any prose around the first
// top-level JSON object.
func extractJSONObject(output string) string {
	clean := strings.TrimSpace(output)
	clean = strings.TrimPrefix(clean, "```json")
	clean = strings.TrimPrefix(clean, "```")
	clean = strings.TrimSuffix(clean, "```")
	clean = strings.TrimSpace(clean)
	start := strings.Index(clean, "{")
	end := strings.LastIndex(clean, "}")
	if start >= 0 && end > start {
		return clean[start : end+1]
	}
	return clean
}
