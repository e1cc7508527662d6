package pipeline

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"time"

	"github.com/samber/lo"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/viebook/viebook/internal/ai"
	"github.com/viebook/viebook/internal/model"
)

type MeaningChecker interface {
	CheckMeaning(ctx context.Context, text string) (*ai.MeaningResult, error)
}

type PolicyChecker interface {
	Moderate(ctx context.Context, text string) (*ai.ModerationResult, error)
}

type PlagiarismChecker interface {
	Check(ctx context.Context, bookID, text, excludeChapterID string) (*PlagiarismDetails, error)
}

// LocalFallback supplies the degraded approximations used when a remote
// checker is unreachable.
type LocalFallback interface {
	CheckMeaning(text string) *ai.MeaningResult
	Moderate(text string) *ai.ModerationResult
}

type ChainConfig struct {
	// GateTimeout bounds each remote call; a timeout is handled exactly like
	// a transport error and triggers the degraded fallback.
	GateTimeout time.Duration
	// PlagiarismPassScore is the similarity percentage at or below which the
	// plagiarism gate passes.
	PlagiarismPassScore float64
}

type ChainInput struct {
	Text             string
	BookID           string
	ExcludeChapterID string
	Submitter        model.SubmitterClass
}

// Chain runs the ordered moderation gates over one text. The remote checkers
// decide pass/fail; transport failures degrade to local heuristics rather
// than aborting, so an unreachable AI service never blocks authors.
type Chain struct {
	meaning    MeaningChecker
	policy     PolicyChecker
	plagiarism PlagiarismChecker
	fallback   LocalFallback
	cfg        ChainConfig
	randFloat  func() float64
}

func NewChain(meaning MeaningChecker, policy PolicyChecker, plagiarism PlagiarismChecker, fallback LocalFallback, cfg ChainConfig) *Chain {
	if cfg.PlagiarismPassScore <= 0 {
		cfg.PlagiarismPassScore = 20
	}
	return &Chain{
		meaning:    meaning,
		policy:     policy,
		plagiarism: plagiarism,
		fallback:   fallback,
		cfg:        cfg,
		randFloat:  rand.Float64,
	}
}

const sellerBypassMessage = "checks skipped for seller submissions"

// Run executes the chain to completion. onUpdate (optional) observes every
// state transition, including Running markers.
func (c *Chain) Run(ctx context.Context, in ChainInput, onUpdate func(ChainState)) ChainState {
	if onUpdate == nil {
		onUpdate = func(ChainState) {}
	}
	state := NewChainState()

	if in.Submitter.BypassesModeration() {
		for _, gate := range GateOrder {
			state = Next(state, GateResult{
				Gate:    gate,
				Status:  StatusPassed,
				Score:   100,
				Message: sellerBypassMessage,
			})
		}
		onUpdate(state)
		return state
	}

	for {
		gate, ok := state.NextGate()
		if !ok {
			break
		}
		state = Next(state, GateResult{Gate: gate, Status: StatusRunning})
		onUpdate(state)
		result := c.runGate(ctx, gate, in)
		state = Next(state, result)
		onUpdate(state)
	}
	return state
}

func (c *Chain) runGate(ctx context.Context, gate GateID, in ChainInput) GateResult {
	if c.cfg.GateTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.GateTimeout)
		defer cancel()
	}
	switch gate {
	case GateMeaning:
		return c.runMeaning(ctx, in.Text)
	case GatePolicy:
		return c.runPolicy(ctx, in.Text)
	case GatePlagiarism:
		return c.runPlagiarism(ctx, in)
	}
	return GateResult{Gate: gate, Status: StatusFailed, Message: "unknown gate"}
}

func (c *Chain) runMeaning(ctx context.Context, text string) GateResult {
	result, err := c.meaning.CheckMeaning(ctx, text)
	degraded := false
	if err != nil {
		logutil.GetLogger(ctx).Warn("meaning check unreachable, using local heuristic", zap.Error(err))
		result = c.fallback.CheckMeaning(text)
		degraded = true
	}
	out := GateResult{
		Gate:     GateMeaning,
		Score:    result.MeaningScore,
		Message:  result.MeaningReason,
		Degraded: degraded,
	}
	if result.HasMeaning {
		out.Status = StatusPassed
		if out.Message == "" {
			out.Message = "content looks meaningful"
		}
	} else {
		out.Status = StatusFailed
		if out.Message == "" {
			out.Message = "content does not look meaningful"
		}
	}
	if degraded {
		out.Message = "degraded (remote check unavailable): " + out.Message
	}
	return out
}

func (c *Chain) runPolicy(ctx context.Context, text string) GateResult {
	result, err := c.policy.Moderate(ctx, text)
	degraded := false
	if err != nil {
		logutil.GetLogger(ctx).Warn("policy check unreachable, using local heuristic", zap.Error(err))
		result = c.fallback.Moderate(text)
		degraded = true
	}

	flaggedNames := lo.Keys(lo.PickByValues(result.Categories, []bool{true}))
	sort.Strings(flaggedNames)
	categories := lo.Map(flaggedNames, func(name string, _ int) CategoryScore {
		return CategoryScore{Name: name, Score: result.CategoryScores[name]}
	})

	maxScore := 0.0
	for _, score := range result.CategoryScores {
		if score > maxScore {
			maxScore = score
		}
	}

	out := GateResult{
		Gate:     GatePolicy,
		Score:    clampPercent((1 - maxScore) * 100),
		Degraded: degraded,
	}
	if result.Flagged {
		out.Status = StatusFailed
		out.Policy = &PolicyDetails{Categories: categories}
		out.Message = fmt.Sprintf("content violates policy: %v", flaggedNames)
	} else {
		out.Status = StatusPassed
		out.Message = "no policy violations found"
	}
	if degraded {
		out.Message = "degraded (remote check unavailable): " + out.Message
	}
	return out
}

func (c *Chain) runPlagiarism(ctx context.Context, in ChainInput) GateResult {
	details, err := c.plagiarism.Check(ctx, in.BookID, in.Text, in.ExcludeChapterID)
	degraded := false
	if err != nil {
		logutil.GetLogger(ctx).Warn("plagiarism check unreachable, using heuristic score", zap.Error(err))
		// Availability trade-off inherited from the platform: substitute a
		// sub-threshold score rather than blocking submission.
		details = &PlagiarismDetails{
			Similarity:     c.randFloat() * c.cfg.PlagiarismPassScore,
			Classification: "unverified",
		}
		degraded = true
	}
	out := GateResult{
		Gate:       GatePlagiarism,
		Score:      clampPercent(100 - details.Similarity),
		Degraded:   degraded,
		Plagiarism: details,
	}
	if details.Similarity <= c.cfg.PlagiarismPassScore {
		out.Status = StatusPassed
		out.Message = fmt.Sprintf("similarity %.0f%% within allowed range", details.Similarity)
	} else {
		out.Status = StatusFailed
		out.Message = fmt.Sprintf("similarity %.0f%% exceeds allowed %.0f%%", details.Similarity, c.cfg.PlagiarismPassScore)
	}
	if degraded {
		out.Message = "degraded (remote check unavailable): " + out.Message
	}
	return out
}

func clampPercent(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
