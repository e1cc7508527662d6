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
	BookStateNormal  = 1
	BookStateDeleted = 2
)

var bookFields = []string{"id", "owner_id", "title", "submitter_class", "state", "ctime", "mtime"}

type BookRepo struct {
	db *sqlx.DB
}

func NewBookRepo(db *sqlx.DB) *BookRepo {
	return &BookRepo{db: db}
}

func (r *BookRepo) Create(ctx context.Context, book *model.Book) error {
	data := map[string]interface{}{
		"id":              book.ID,
		"owner_id":        book.OwnerID,
		"title":           book.Title,
		"submitter_class": string(book.SubmitterClass),
		"state":           book.State,
		"ctime":           book.Ctime,
		"mtime":           book.Mtime,
	}
	sqlStr, args, err := builder.BuildInsert("books", []map[string]interface{}{data})
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, r.db.Rebind(sqlStr), args...)
	return err
}

func (r *BookRepo) GetByID(ctx context.Context, bookID string) (*model.Book, error) {
	where := map[string]interface{}{
		"id":    bookID,
		"state": BookStateNormal,
	}
	sqlStr, args, err := builder.BuildSelect("books", where, bookFields)
	if err != nil {
		return nil, err
	}
	var book model.Book
	if err := r.db.GetContext(ctx, &book, r.db.Rebind(sqlStr), args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErr.ErrNotFound
		}
		return nil, err
	}
	return &book, nil
}

func (r *BookRepo) ListByOwner(ctx context.Context, ownerID string, limit, offset uint) ([]model.Book, error) {
	where := map[string]interface{}{
		"owner_id": ownerID,
		"state":    BookStateNormal,
		"_orderby": "ctime desc",
	}
	if limit > 0 {
		where["_limit"] = []uint{offset, limit}
	}
	sqlStr, args, err := builder.BuildSelect("books", where, bookFields)
	if err != nil {
		return nil, err
	}
	books := make([]model.Book, 0)
	if err := r.db.SelectContext(ctx, &books, r.db.Rebind(sqlStr), args...); err != nil {
		return nil, err
	}
	return books, nil
}
