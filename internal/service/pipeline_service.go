package service

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/viebook/viebook/internal/ai"
	"github.com/viebook/viebook/internal/extract"
	"github.com/viebook/viebook/internal/filestore"
	"github.com/viebook/viebook/internal/model"
	"github.com/viebook/viebook/internal/pipeline"
	appErr "github.com/viebook/viebook/internal/pkg/errors"
	"github.com/viebook/viebook/internal/repo"
)

// PipelineService orchestrates the chapter authoring flow: session lifecycle,
// document extraction, the moderation gate chain and final submission. All
// slow work runs detached from the request; handlers only ever see snapshots.
type PipelineService struct {
	sessions   *pipeline.Store
	resolver   *extract.Resolver
	chain      *pipeline.Chain
	classifier *ai.Classifier
	books      *repo.BookRepo
	chapters   *repo.ChapterRepo
	chapterSvc *ChapterService
	files      filestore.Store
	limits     pipeline.ContentLimits

	mu      sync.Mutex
	sources map[string]string // session ID -> stored source URL
}

func NewPipelineService(
	sessions *pipeline.Store,
	resolver *extract.Resolver,
	chain *pipeline.Chain,
	classifier *ai.Classifier,
	books *repo.BookRepo,
	chapters *repo.ChapterRepo,
	chapterSvc *ChapterService,
	files filestore.Store,
	limits pipeline.ContentLimits,
) *PipelineService {
	return &PipelineService{
		sessions:   sessions,
		resolver:   resolver,
		chain:      chain,
		classifier: classifier,
		books:      books,
		chapters:   chapters,
		chapterSvc: chapterSvc,
		files:      files,
		limits:     limits,
		sources:    make(map[string]string),
	}
}

func (s *PipelineService) CreateSession(ctx context.Context, userID, bookID, chapterID string) (*pipeline.Session, error) {
	book, err := s.books.GetByID(ctx, bookID)
	if err != nil {
		return nil, err
	}
	if book.OwnerID != userID {
		return nil, appErr.ErrForbidden
	}
	if chapterID != "" {
		chapter, err := s.chapters.GetByID(ctx, chapterID)
		if err != nil {
			return nil, err
		}
		if chapter.BookID != bookID {
			return nil, fmt.Errorf("%w: chapter belongs to another book", appErr.ErrInvalid)
		}
	}
	session := pipeline.NewSession(userID, bookID, chapterID, book.SubmitterClass)
	s.sessions.Put(session)
	return session, nil
}

func (s *PipelineService) GetSession(userID, sessionID string) (*pipeline.Session, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return nil, appErr.ErrNotFound
	}
	if session.UserID != userID {
		return nil, appErr.ErrForbidden
	}
	return session, nil
}

// UploadDocument stores the original file and starts extraction. The call
// returns once extraction is scheduled; progress is polled via the session.
func (s *PipelineService) UploadDocument(ctx context.Context, userID, sessionID, filename string, data []byte) (pipeline.SessionView, error) {
	session, err := s.GetSession(userID, sessionID)
	if err != nil {
		return pipeline.SessionView{}, err
	}
	doc := extract.NewUploadedDocument(filename, data)
	if doc.Kind == extract.KindUnsupported {
		return pipeline.SessionView{}, fmt.Errorf("%w: %s", appErr.ErrUnsupportedFormat, filename)
	}

	key := sourceKey(session.ID, doc.Kind)
	if err := s.files.Save(ctx, key, bytes.NewReader(data), int64(len(data))); err != nil {
		return pipeline.SessionView{}, fmt.Errorf("%w: store original document: %v", appErr.ErrUploadFailed, err)
	}
	s.mu.Lock()
	s.sources[session.ID] = s.files.URL(key)
	s.mu.Unlock()

	version := session.BeginExtraction()
	go s.runExtraction(session, version, doc)
	return session.Snapshot(), nil
}

func (s *PipelineService) runExtraction(session *pipeline.Session, version int64, doc extract.UploadedDocument) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()
	result, err := s.resolver.Resolve(ctx, doc, func(p extract.Progress) {
		session.ApplyExtractionProgress(version, p)
	})
	if err != nil {
		logutil.GetLogger(ctx).Error("document extraction failed",
			zap.String("session_id", session.ID), zap.Error(err))
		session.FailExtraction(version, err)
		return
	}
	if !session.CompleteExtraction(version, result) {
		logutil.GetLogger(ctx).Info("extraction result discarded, session moved on",
			zap.String("session_id", session.ID))
	}
}

func (s *PipelineService) SetText(userID, sessionID, text string) (pipeline.SessionView, error) {
	session, err := s.GetSession(userID, sessionID)
	if err != nil {
		return pipeline.SessionView{}, err
	}
	session.SetText(text)
	return session.Snapshot(), nil
}

// RunChecks starts the gate chain for the current text. Out-of-bounds text is
// rejected before any gate runs. Re-running over unchanged, already-checked
// text is a no-op returning the existing results.
func (s *PipelineService) RunChecks(userID, sessionID string) (pipeline.SessionView, error) {
	session, err := s.GetSession(userID, sessionID)
	if err != nil {
		return pipeline.SessionView{}, err
	}
	if v := pipeline.ContentBoundsViolation(session.Text(), s.limits); v != nil {
		return pipeline.SessionView{}, fmt.Errorf("%w: %s", appErr.ErrInvalid, v.Reason)
	}
	text, version, ok := session.BeginChecks()
	if !ok {
		return session.Snapshot(), nil
	}
	go s.runChecks(session, version, text)
	return session.Snapshot(), nil
}

func (s *PipelineService) runChecks(session *pipeline.Session, version int64, text string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()
	state := s.chain.Run(ctx, pipeline.ChainInput{
		Text:             text,
		BookID:           session.BookID,
		ExcludeChapterID: session.ChapterID,
		Submitter:        session.Submitter,
	}, func(st pipeline.ChainState) {
		session.ApplyChainUpdate(version, st)
	})
	if !session.FinishChecks(version, state, text) {
		logutil.GetLogger(ctx).Info("check results discarded, text changed mid-run",
			zap.String("session_id", session.ID))
	}
}

// Spelling runs the assistive spell check over the current text. It never
// gates submission.
func (s *PipelineService) Spelling(ctx context.Context, userID, sessionID string) (*ai.SpellingResult, error) {
	session, err := s.GetSession(userID, sessionID)
	if err != nil {
		return nil, err
	}
	text := session.Text()
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: no content to check", appErr.ErrInvalid)
	}
	return s.classifier.CheckSpelling(ctx, text)
}

// Submit runs the gatekeeper and, when clean, persists the chapter and
// retires the session.
func (s *PipelineService) Submit(ctx context.Context, userID, sessionID string, draft pipeline.Draft) ([]pipeline.Violation, *model.Chapter, error) {
	session, err := s.GetSession(userID, sessionID)
	if err != nil {
		return nil, nil, err
	}
	if violations := session.Evaluate(draft, s.limits); len(violations) > 0 {
		return violations, nil, nil
	}

	s.mu.Lock()
	sourceURL := s.sources[session.ID]
	s.mu.Unlock()

	chapter := &model.Chapter{
		BookID:    session.BookID,
		Title:     strings.TrimSpace(draft.Title),
		Content:   session.Text(),
		Price:     draft.Price,
		IsFree:    draft.IsFree,
		SourceURL: sourceURL,
	}
	if err := s.chapterSvc.Create(ctx, chapter); err != nil {
		return nil, nil, err
	}
	s.sessions.Delete(session.ID)
	s.mu.Lock()
	delete(s.sources, session.ID)
	s.mu.Unlock()
	return nil, chapter, nil
}

// SweepSessions evicts idle sessions, dropping their source-file bookkeeping
// with them.
func (s *PipelineService) SweepSessions() int {
	removed := s.sessions.Sweep()
	s.mu.Lock()
	for id := range s.sources {
		if _, ok := s.sessions.Get(id); !ok {
			delete(s.sources, id)
		}
	}
	s.mu.Unlock()
	return removed
}

func sourceKey(sessionID string, kind extract.Kind) string {
	if kind == extract.KindPdf {
		return sessionID + ".pdf"
	}
	return sessionID + ".txt"
}
