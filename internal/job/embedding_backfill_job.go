package job

import (
	"context"

	"github.com/viebook/viebook/internal/service"
)

// EmbeddingBackfillJob re-syncs chapters whose fire-and-forget embedding sync
// failed, keeping plagiarism coverage complete.
type EmbeddingBackfillJob struct {
	chapters  *service.ChapterService
	batchSize uint
}

func NewEmbeddingBackfillJob(chapters *service.ChapterService, batchSize uint) *EmbeddingBackfillJob {
	if batchSize == 0 {
		batchSize = 20
	}
	return &EmbeddingBackfillJob{chapters: chapters, batchSize: batchSize}
}

func (j *EmbeddingBackfillJob) Name() string {
	return "embedding_backfill"
}

func (j *EmbeddingBackfillJob) Run(ctx context.Context) error {
	if j.chapters == nil {
		return nil
	}
	_, err := j.chapters.ProcessPendingEmbeddings(ctx, j.batchSize)
	return err
}
