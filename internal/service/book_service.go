package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/viebook/viebook/internal/model"
	appErr "github.com/viebook/viebook/internal/pkg/errors"
	"github.com/viebook/viebook/internal/repo"
)

type BookService struct {
	books *repo.BookRepo
}

func NewBookService(books *repo.BookRepo) *BookService {
	return &BookService{books: books}
}

func (s *BookService) Create(ctx context.Context, ownerID, title string, submitter model.SubmitterClass) (*model.Book, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", appErr.ErrInvalid)
	}
	if !submitter.Valid() {
		return nil, fmt.Errorf("%w: unknown submitter class: %s", appErr.ErrInvalid, submitter)
	}
	now := time.Now().UnixMilli()
	book := &model.Book{
		ID:             newID(),
		OwnerID:        ownerID,
		Title:          title,
		SubmitterClass: submitter,
		State:          repo.BookStateNormal,
		Ctime:          now,
		Mtime:          now,
	}
	if err := s.books.Create(ctx, book); err != nil {
		return nil, err
	}
	return book, nil
}

// Get loads a book and enforces that the caller owns it.
func (s *BookService) Get(ctx context.Context, userID, bookID string) (*model.Book, error) {
	book, err := s.books.GetByID(ctx, bookID)
	if err != nil {
		return nil, err
	}
	if book.OwnerID != userID {
		return nil, appErr.ErrForbidden
	}
	return book, nil
}

func (s *BookService) ListByOwner(ctx context.Context, ownerID string, limit, offset uint) ([]model.Book, error) {
	if limit == 0 || limit > 100 {
		limit = 100
	}
	return s.books.ListByOwner(ctx, ownerID, limit, offset)
}
