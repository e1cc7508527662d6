package service

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/xxxsen/common/logutil"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"go.uber.org/zap"

	"github.com/viebook/viebook/internal/model"
	appErr "github.com/viebook/viebook/internal/pkg/errors"
	"github.com/viebook/viebook/internal/repo"
)

type ChapterService struct {
	chapters   *repo.ChapterRepo
	books      *repo.BookRepo
	plagiarism *PlagiarismService
	markdown   goldmark.Markdown
}

func NewChapterService(chapters *repo.ChapterRepo, books *repo.BookRepo, plagiarism *PlagiarismService) *ChapterService {
	return &ChapterService{
		chapters:   chapters,
		books:      books,
		plagiarism: plagiarism,
		markdown:   goldmark.New(goldmark.WithExtensions(extension.GFM)),
	}
}

// Create persists the chapter and kicks off embedding sync in the background.
// The chapter is readable immediately; plagiarism coverage catches up when the
// sync lands (or via the backfill job if it fails here).
func (s *ChapterService) Create(ctx context.Context, chapter *model.Chapter) error {
	now := time.Now().UnixMilli()
	if chapter.ID == "" {
		chapter.ID = newID()
	}
	chapter.State = repo.ChapterStateNormal
	chapter.EmbeddingState = model.EmbeddingStatePending
	chapter.Ctime = now
	chapter.Mtime = now
	if err := s.chapters.Create(ctx, chapter); err != nil {
		return err
	}
	go func() {
		syncCtx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		if err := s.plagiarism.SyncChapter(syncCtx, chapter); err != nil {
			logutil.GetLogger(syncCtx).Warn("embedding sync failed, backfill will retry",
				zap.String("chapter_id", chapter.ID), zap.Error(err))
		}
	}()
	return nil
}

// Get loads a chapter and enforces book ownership.
func (s *ChapterService) Get(ctx context.Context, userID, chapterID string) (*model.Chapter, error) {
	chapter, err := s.chapters.GetByID(ctx, chapterID)
	if err != nil {
		return nil, err
	}
	book, err := s.books.GetByID(ctx, chapter.BookID)
	if err != nil {
		return nil, err
	}
	if book.OwnerID != userID {
		return nil, appErr.ErrForbidden
	}
	return chapter, nil
}

func (s *ChapterService) ListByBook(ctx context.Context, userID, bookID string, limit, offset uint) ([]model.Chapter, error) {
	book, err := s.books.GetByID(ctx, bookID)
	if err != nil {
		return nil, err
	}
	if book.OwnerID != userID {
		return nil, appErr.ErrForbidden
	}
	if limit == 0 || limit > 100 {
		limit = 100
	}
	return s.chapters.ListByBook(ctx, bookID, limit, offset)
}

// PreviewHTML renders the chapter content as HTML for the reading preview.
func (s *ChapterService) PreviewHTML(ctx context.Context, userID, chapterID string) (string, error) {
	chapter, err := s.Get(ctx, userID, chapterID)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := s.markdown.Convert([]byte(chapter.Content), &buf); err != nil {
		return "", fmt.Errorf("render chapter %s: %w", chapterID, err)
	}
	return buf.String(), nil
}

// ProcessPendingEmbeddings syncs chapters whose async embedding sync never
// completed. Called from the backfill cron job.
func (s *ChapterService) ProcessPendingEmbeddings(ctx context.Context, limit uint) (int, error) {
	pending, err := s.chapters.ListPendingEmbeddings(ctx, limit)
	if err != nil {
		return 0, err
	}
	synced := 0
	for i := range pending {
		if err := s.plagiarism.SyncChapter(ctx, &pending[i]); err != nil {
			logutil.GetLogger(ctx).Warn("embedding backfill failed for chapter",
				zap.String("chapter_id", pending[i].ID), zap.Error(err))
			continue
		}
		synced++
	}
	return synced, nil
}
