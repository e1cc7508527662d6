package repo

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/viebook/viebook/internal/model"
)

func seedChapter(t *testing.T, chapters *ChapterRepo, bookID, id, content string) {
	t.Helper()
	now := time.Now().UnixMilli()
	require.NoError(t, chapters.Create(context.Background(), &model.Chapter{
		ID:             id,
		BookID:         bookID,
		Title:          "Chapter " + id,
		Content:        content,
		State:          ChapterStateNormal,
		EmbeddingState: model.EmbeddingStatePending,
		Ctime:          now,
		Mtime:          now,
	}))
}

func testVector(fill float32) []float32 {
	vec := make([]float32, 768)
	for i := range vec {
		vec[i] = fill
	}
	vec[0] = 1
	return vec
}

func TestChunkRepoReplaceAndSearch(t *testing.T) {
	conn := openTestDB(t)
	books := NewBookRepo(conn)
	chapters := NewChapterRepo(conn)
	chunks := NewChunkRepo(conn)

	seedBook(t, books, "book-1")
	seedChapter(t, chapters, "book-1", "ch-old", "published chapter")
	seedChapter(t, chapters, "book-1", "ch-new", "draft chapter")
	now := time.Now().UnixMilli()

	rows := []model.ChapterChunk{
		{ID: "ck-1", ChapterID: "ch-old", BookID: "book-1", Position: 0, Content: "first slice", Embedding: testVector(0.1), Ctime: now},
		{ID: "ck-2", ChapterID: "ch-old", BookID: "book-1", Position: 1, Content: "second slice", Embedding: testVector(0.9), Ctime: now},
	}
	require.NoError(t, chunks.ReplaceForChapter(context.Background(), "ch-old", rows))

	count, err := chunks.CountByChapter(context.Background(), "ch-old")
	require.NoError(t, err)
	require.Equal(t, 2, count)

	// Searching with ch-old excluded must not see its own chunks.
	hits, err := chunks.NearestInBook(context.Background(), "book-1", "ch-old", testVector(0.1), 5)
	require.NoError(t, err)
	require.Empty(t, hits)

	hits, err = chunks.NearestInBook(context.Background(), "book-1", "ch-new", testVector(0.1), 5)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	require.Equal(t, "ch-old", hits[0].ChapterID)
	require.GreaterOrEqual(t, hits[0].Similarity, hits[1].Similarity)

	// Replace swaps the chunk set atomically.
	require.NoError(t, chunks.ReplaceForChapter(context.Background(), "ch-old", rows[:1]))
	count, err = chunks.CountByChapter(context.Background(), "ch-old")
	require.NoError(t, err)
	require.Equal(t, 1, count)

	require.NoError(t, chunks.DeleteByChapter(context.Background(), "ch-old"))
	count, err = chunks.CountByChapter(context.Background(), "ch-old")
	require.NoError(t, err)
	require.Zero(t, count)
}
