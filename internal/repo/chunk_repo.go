package repo

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pgvector/pgvector-go"

	"github.com/viebook/viebook/internal/model"
)

type ChunkRepo struct {
	db *sqlx.DB
}

func NewChunkRepo(db *sqlx.DB) *ChunkRepo {
	return &ChunkRepo{db: db}
}

// ReplaceForChapter swaps a chapter's chunk rows atomically so a half-written
// embedding sync never leaves a mix of old and new chunks behind.
func (r *ChunkRepo) ReplaceForChapter(ctx context.Context, chapterID string, chunks []model.ChapterChunk) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM chapter_chunks WHERE chapter_id = $1", chapterID); err != nil {
		return err
	}
	const insert = `INSERT INTO chapter_chunks (id, chapter_id, book_id, position, content, embedding, ctime)
	VALUES ($1, $2, $3, $4, $5, $6, $7)`
	for _, chunk := range chunks {
		if _, err := tx.ExecContext(ctx, insert,
			chunk.ID, chunk.ChapterID, chunk.BookID, chunk.Position,
			chunk.Content, pgvector.NewVector(chunk.Embedding), chunk.Ctime,
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (r *ChunkRepo) DeleteByChapter(ctx context.Context, chapterID string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM chapter_chunks WHERE chapter_id = $1", chapterID)
	return err
}

func (r *ChunkRepo) CountByChapter(ctx context.Context, chapterID string) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, "SELECT COUNT(1) FROM chapter_chunks WHERE chapter_id = $1", chapterID)
	return count, err
}

// NearestInBook runs a cosine-distance search over the book's chunks,
// excluding the chapter being re-checked so a chapter never matches its own
// prior text.
func (r *ChunkRepo) NearestInBook(ctx context.Context, bookID, excludeChapterID string, embedding []float32, topK int) ([]model.ChunkMatch, error) {
	const query = `SELECT cc.chapter_id,
	       ch.title AS chapter_title,
	       b.title AS book_title,
	       cc.content,
	       1 - (cc.embedding <=> $1) AS similarity
	FROM chapter_chunks cc
	JOIN chapters ch ON ch.id = cc.chapter_id AND ch.state = $2
	JOIN books b ON b.id = cc.book_id
	WHERE cc.book_id = $3 AND cc.chapter_id <> $4
	ORDER BY cc.embedding <=> $1
	LIMIT $5`
	matches := make([]model.ChunkMatch, 0, topK)
	err := r.db.SelectContext(ctx, &matches, query,
		pgvector.NewVector(embedding), ChapterStateNormal, bookID, excludeChapterID, topK)
	if err != nil {
		return nil, err
	}
	return matches, nil
}
