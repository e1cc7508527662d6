package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/viebook/viebook/internal/ai"
	"github.com/viebook/viebook/internal/model"
	"github.com/viebook/viebook/internal/pipeline"
	"github.com/viebook/viebook/internal/repo"
)

const (
	taskTypeQuery    = "RETRIEVAL_QUERY"
	taskTypeDocument = "RETRIEVAL_DOCUMENT"

	// maxQueryChunks bounds embedding calls per check so a very long draft
	// cannot fan out into hundreds of requests.
	maxQueryChunks = 24
)

// PlagiarismService scores a draft against the embedded chunks of the book's
// existing chapters. Similarity is cosine, reported as a percentage; the
// draft's own chapter is always excluded so editing never self-matches.
type PlagiarismService struct {
	embedder   ai.IEmbedder
	chunks     *repo.ChunkRepo
	chapters   *repo.ChapterRepo
	maxMatches int
}

func NewPlagiarismService(embedder ai.IEmbedder, chunks *repo.ChunkRepo, chapters *repo.ChapterRepo, maxMatches int) *PlagiarismService {
	if maxMatches <= 0 {
		maxMatches = 5
	}
	return &PlagiarismService{
		embedder:   embedder,
		chunks:     chunks,
		chapters:   chapters,
		maxMatches: maxMatches,
	}
}

func (s *PlagiarismService) Check(ctx context.Context, bookID, text, excludeChapterID string) (*pipeline.PlagiarismDetails, error) {
	parts := ai.ChunkText(text)
	if len(parts) == 0 {
		return &pipeline.PlagiarismDetails{Similarity: 0, Classification: classify(0)}, nil
	}
	if len(parts) > maxQueryChunks {
		parts = parts[:maxQueryChunks]
	}

	best := map[string]pipeline.PlagiarismMatch{}
	maxSimilarity := 0.0
	for _, part := range parts {
		vec, err := s.embedder.Embed(ctx, part.Content, taskTypeQuery)
		if err != nil {
			return nil, fmt.Errorf("embed query chunk: %w", err)
		}
		hits, err := s.chunks.NearestInBook(ctx, bookID, excludeChapterID, vec, s.maxMatches)
		if err != nil {
			return nil, fmt.Errorf("nearest neighbour search: %w", err)
		}
		for _, hit := range hits {
			similarity := clamp01(hit.Similarity) * 100
			if similarity > maxSimilarity {
				maxSimilarity = similarity
			}
			prev, ok := best[hit.ChapterID]
			if !ok || similarity > prev.Similarity {
				best[hit.ChapterID] = pipeline.PlagiarismMatch{
					ChapterID:    hit.ChapterID,
					ChapterTitle: hit.ChapterTitle,
					BookTitle:    hit.BookTitle,
					Excerpt:      truncateRunes(hit.Content, 200),
					Similarity:   similarity,
				}
			}
		}
	}

	matches := make([]pipeline.PlagiarismMatch, 0, len(best))
	for _, match := range best {
		matches = append(matches, match)
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].Similarity > matches[j].Similarity })
	if len(matches) > s.maxMatches {
		matches = matches[:s.maxMatches]
	}
	return &pipeline.PlagiarismDetails{
		Similarity:     maxSimilarity,
		Classification: classify(maxSimilarity),
		Matches:        matches,
	}, nil
}

// SyncChapter re-embeds a chapter's content and swaps the stored chunks in one
// transaction, then flips the chapter's embedding state.
func (s *PlagiarismService) SyncChapter(ctx context.Context, chapter *model.Chapter) error {
	parts := ai.ChunkText(chapter.Content)
	rows := make([]model.ChapterChunk, 0, len(parts))
	now := time.Now().UnixMilli()
	for _, part := range parts {
		vec, err := s.embedder.Embed(ctx, part.Content, taskTypeDocument)
		if err != nil {
			return fmt.Errorf("embed chapter %s chunk %d: %w", chapter.ID, part.Position, err)
		}
		rows = append(rows, model.ChapterChunk{
			ID:        newID(),
			ChapterID: chapter.ID,
			BookID:    chapter.BookID,
			Position:  part.Position,
			Content:   part.Content,
			Embedding: vec,
			Ctime:     now,
		})
	}
	if err := s.chunks.ReplaceForChapter(ctx, chapter.ID, rows); err != nil {
		return fmt.Errorf("replace chunks for chapter %s: %w", chapter.ID, err)
	}
	if err := s.chapters.UpdateEmbeddingState(ctx, chapter.ID, model.EmbeddingStateSynced, now); err != nil {
		return err
	}
	logutil.GetLogger(ctx).Info("chapter embeddings synced",
		zap.String("chapter_id", chapter.ID), zap.Int("chunks", len(rows)))
	return nil
}

func classify(similarity float64) string {
	switch {
	case similarity <= 20:
		return "original"
	case similarity <= 60:
		return "partial overlap"
	default:
		return "likely duplicate"
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func truncateRunes(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + "..."
}
