package pipeline

import (
	"fmt"
	"strings"
)

type Draft struct {
	Title  string `json:"title"`
	Price  int64  `json:"price"`
	IsFree bool   `json:"is_free"`
}

type ContentLimits struct {
	MinChars int
	MaxChars int
}

const (
	minTitleChars = 3
	maxTitleChars = 200
)

// Violation names the exact precondition that failed so the UI can route the
// author back to the right step. There is never a generic "invalid" outcome.
type Violation struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// ContentBoundsViolation reports the length violation for the text, or nil
// when it fits the limits. The same bounds gate both submission and chain
// runs, so an unsubmittable draft never spends a remote moderation call.
func ContentBoundsViolation(text string, limits ContentLimits) *Violation {
	chars := len([]rune(text))
	if chars < limits.MinChars {
		return &Violation{
			Field:  "content",
			Reason: fmt.Sprintf("content too short: %d characters, minimum is %d", chars, limits.MinChars),
		}
	}
	if chars > limits.MaxChars {
		return &Violation{
			Field:  "content",
			Reason: fmt.Sprintf("content too long: %d characters, maximum is %d", chars, limits.MaxChars),
		}
	}
	return nil
}

// Evaluate applies the submission preconditions. Field checks run for every
// submitter; the gate-chain requirement applies to owners only, and demands
// results computed against the current text.
func (s *Session) Evaluate(draft Draft, limits ContentLimits) []Violation {
	s.mu.Lock()
	defer s.mu.Unlock()

	var violations []Violation
	title := strings.TrimSpace(draft.Title)
	if n := len([]rune(title)); n < minTitleChars || n > maxTitleChars {
		violations = append(violations, Violation{
			Field:  "title",
			Reason: fmt.Sprintf("title must be %d-%d characters", minTitleChars, maxTitleChars),
		})
	}
	if !draft.IsFree && draft.Price < 0 {
		violations = append(violations, Violation{
			Field:  "price",
			Reason: "price must be zero or positive, or the chapter marked free",
		})
	}
	if v := ContentBoundsViolation(s.text, limits); v != nil {
		violations = append(violations, *v)
	}
	// Fail fast on field errors before demanding (or spending) gate runs.
	if len(violations) > 0 {
		return violations
	}

	if s.Submitter.BypassesModeration() {
		return nil
	}
	if s.lastCheckedText != s.text {
		violations = append(violations, Violation{
			Field:  "checks",
			Reason: "content changed since last check, run checks again",
		})
		return violations
	}
	for _, gate := range GateOrder {
		result := s.chain.Get(gate)
		if result.Passed() {
			continue
		}
		reason := fmt.Sprintf("%s check has not passed", gate)
		if result.Status == StatusFailed && result.Message != "" {
			reason = result.Message
		}
		violations = append(violations, Violation{
			Field:  string(gate),
			Reason: reason,
		})
	}
	return violations
}
