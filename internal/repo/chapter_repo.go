package repo

import (
	"context"
	"database/sql"
	"errors"

	"github.com/didi/gendry/builder"
	"github.com/jmoiron/sqlx"

	"github.com/viebook/viebook/internal/model"
	appErr "github.com/viebook/viebook/internal/pkg/errors"
)

const (
	ChapterStateNormal  = 1
	ChapterStateDeleted = 2
)

var chapterFields = []string{
	"id", "book_id", "title", "content", "price", "is_free",
	"source_url", "state", "embedding_state", "ctime", "mtime",
}

type ChapterRepo struct {
	db *sqlx.DB
}

func NewChapterRepo(db *sqlx.DB) *ChapterRepo {
	return &ChapterRepo{db: db}
}

func (r *ChapterRepo) Create(ctx context.Context, chapter *model.Chapter) error {
	data := map[string]interface{}{
		"id":              chapter.ID,
		"book_id":         chapter.BookID,
		"title":           chapter.Title,
		"content":         chapter.Content,
		"price":           chapter.Price,
		"is_free":         chapter.IsFree,
		"source_url":      chapter.SourceURL,
		"state":           chapter.State,
		"embedding_state": chapter.EmbeddingState,
		"ctime":           chapter.Ctime,
		"mtime":           chapter.Mtime,
	}
	sqlStr, args, err := builder.BuildInsert("chapters", []map[string]interface{}{data})
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, r.db.Rebind(sqlStr), args...)
	return err
}

func (r *ChapterRepo) GetByID(ctx context.Context, chapterID string) (*model.Chapter, error) {
	where := map[string]interface{}{
		"id":    chapterID,
		"state": ChapterStateNormal,
	}
	sqlStr, args, err := builder.BuildSelect("chapters", where, chapterFields)
	if err != nil {
		return nil, err
	}
	var chapter model.Chapter
	if err := r.db.GetContext(ctx, &chapter, r.db.Rebind(sqlStr), args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErr.ErrNotFound
		}
		return nil, err
	}
	return &chapter, nil
}

func (r *ChapterRepo) ListByBook(ctx context.Context, bookID string, limit, offset uint) ([]model.Chapter, error) {
	where := map[string]interface{}{
		"book_id":  bookID,
		"state":    ChapterStateNormal,
		"_orderby": "ctime asc",
	}
	if limit > 0 {
		where["_limit"] = []uint{offset, limit}
	}
	sqlStr, args, err := builder.BuildSelect("chapters", where, chapterFields)
	if err != nil {
		return nil, err
	}
	chapters := make([]model.Chapter, 0)
	if err := r.db.SelectContext(ctx, &chapters, r.db.Rebind(sqlStr), args...); err != nil {
		return nil, err
	}
	return chapters, nil
}

// ListPendingEmbeddings returns chapters whose chunk embeddings have not been
// synced yet. The backfill job retries these.
func (r *ChapterRepo) ListPendingEmbeddings(ctx context.Context, limit uint) ([]model.Chapter, error) {
	where := map[string]interface{}{
		"embedding_state": model.EmbeddingStatePending,
		"state":           ChapterStateNormal,
		"_orderby":        "ctime asc",
		"_limit":          []uint{0, limit},
	}
	sqlStr, args, err := builder.BuildSelect("chapters", where, chapterFields)
	if err != nil {
		return nil, err
	}
	chapters := make([]model.Chapter, 0)
	if err := r.db.SelectContext(ctx, &chapters, r.db.Rebind(sqlStr), args...); err != nil {
		return nil, err
	}
	return chapters, nil
}

func (r *ChapterRepo) UpdateEmbeddingState(ctx context.Context, chapterID string, state int, mtime int64) error {
	where := map[string]interface{}{
		"id": chapterID,
	}
	update := map[string]interface{}{
		"embedding_state": state,
		"mtime":           mtime,
	}
	sqlStr, args, err := builder.BuildUpdate("chapters", where, update)
	if err != nil {
		return err
	}
	result, err := r.db.ExecContext(ctx, r.db.Rebind(sqlStr), args...)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return appErr.ErrNotFound
	}
	return nil
}

func (r *ChapterRepo) Delete(ctx context.Context, chapterID string, mtime int64) error {
	where := map[string]interface{}{
		"id":    chapterID,
		"state": ChapterStateNormal,
	}
	update := map[string]interface{}{
		"state": ChapterStateDeleted,
		"mtime": mtime,
	}
	sqlStr, args, err := builder.BuildUpdate("chapters", where, update)
	if err != nil {
		return err
	}
	result, err := r.db.ExecContext(ctx, r.db.Rebind(sqlStr), args...)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return appErr.ErrNotFound
	}
	return nil
}
