package service

import (
	"context"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/viebook/viebook/internal/ai"
	"github.com/viebook/viebook/internal/model"
	"github.com/viebook/viebook/internal/pipeline"
	appErr "github.com/viebook/viebook/internal/pkg/errors"
)

type countingMeaning struct{ calls atomic.Int32 }

func (f *countingMeaning) CheckMeaning(ctx context.Context, text string) (*ai.MeaningResult, error) {
	f.calls.Add(1)
	return &ai.MeaningResult{HasMeaning: true, MeaningScore: 95}, nil
}

type countingPolicy struct{ calls atomic.Int32 }

func (f *countingPolicy) Moderate(ctx context.Context, text string) (*ai.ModerationResult, error) {
	f.calls.Add(1)
	return &ai.ModerationResult{
		Categories:     map[string]bool{},
		CategoryScores: map[string]float64{},
	}, nil
}

type countingPlagiarism struct{ calls atomic.Int32 }

func (f *countingPlagiarism) Check(ctx context.Context, bookID, text, excludeChapterID string) (*pipeline.PlagiarismDetails, error) {
	f.calls.Add(1)
	return &pipeline.PlagiarismDetails{Similarity: 5, Classification: "original"}, nil
}

type quietFallback struct{}

func (quietFallback) CheckMeaning(text string) *ai.MeaningResult {
	return &ai.MeaningResult{HasMeaning: true, MeaningScore: 50}
}

func (quietFallback) Moderate(text string) *ai.ModerationResult {
	return &ai.ModerationResult{
		Categories:     map[string]bool{},
		CategoryScores: map[string]float64{},
	}
}

type checkTestEnv struct {
	svc        *PipelineService
	session    *pipeline.Session
	meaning    *countingMeaning
	policy     *countingPolicy
	plagiarism *countingPlagiarism
}

func newCheckTestEnv(t *testing.T) *checkTestEnv {
	t.Helper()
	env := &checkTestEnv{
		meaning:    &countingMeaning{},
		policy:     &countingPolicy{},
		plagiarism: &countingPlagiarism{},
	}
	chain := pipeline.NewChain(env.meaning, env.policy, env.plagiarism, quietFallback{}, pipeline.ChainConfig{})
	store := pipeline.NewStore(time.Minute)
	env.svc = NewPipelineService(store, nil, chain, nil, nil, nil, nil, nil,
		pipeline.ContentLimits{MinChars: 50, MaxChars: 50000})
	env.session = pipeline.NewSession("user-1", "book-1", "", model.SubmitterOwner)
	store.Put(env.session)
	return env
}

func (e *checkTestEnv) checkerCalls() int32 {
	return e.meaning.calls.Load() + e.policy.calls.Load() + e.plagiarism.calls.Load()
}

func TestRunChecksRejectsTooShortText(t *testing.T) {
	env := newCheckTestEnv(t)
	env.session.SetText("tiny")

	_, err := env.svc.RunChecks("user-1", env.session.ID)
	require.ErrorIs(t, err, appErr.ErrInvalid)
	require.Contains(t, err.Error(), "content too short")
	require.Zero(t, env.checkerCalls())
}

func TestRunChecksRejectsTooLongText(t *testing.T) {
	env := newCheckTestEnv(t)
	env.session.SetText(strings.Repeat("a", 50001))

	_, err := env.svc.RunChecks("user-1", env.session.ID)
	require.ErrorIs(t, err, appErr.ErrInvalid)
	require.Contains(t, err.Error(), "content too long")
	require.Zero(t, env.checkerCalls())
}

func TestRunChecksRunsChainWithinBounds(t *testing.T) {
	env := newCheckTestEnv(t)
	env.session.SetText(strings.Repeat("a perfectly ordinary sentence. ", 10))

	_, err := env.svc.RunChecks("user-1", env.session.ID)
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		return env.session.Snapshot().UpToDate
	}, time.Second, 10*time.Millisecond)
	require.Equal(t, int32(1), env.meaning.calls.Load())
	require.Equal(t, int32(1), env.policy.calls.Load())
	require.Equal(t, int32(1), env.plagiarism.calls.Load())
}
