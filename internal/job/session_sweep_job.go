package job

import (
	"context"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/viebook/viebook/internal/service"
)

// SessionSweepJob evicts authoring sessions idle past their TTL. Sessions are
// in-memory only, so this is purely about bounding memory.
type SessionSweepJob struct {
	pipeline *service.PipelineService
}

func NewSessionSweepJob(pipeline *service.PipelineService) *SessionSweepJob {
	return &SessionSweepJob{pipeline: pipeline}
}

func (j *SessionSweepJob) Name() string {
	return "session_sweep"
}

func (j *SessionSweepJob) Run(ctx context.Context) error {
	if j.pipeline == nil {
		return nil
	}
	removed := j.pipeline.SweepSessions()
	if removed > 0 {
		logutil.GetLogger(ctx).Info("idle sessions evicted", zap.Int("count", removed))
	}
	return nil
}
