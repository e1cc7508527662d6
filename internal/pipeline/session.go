package pipeline

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/viebook/viebook/internal/extract"
	"github.com/viebook/viebook/internal/model"
)

type ExtractionPhase string

const (
	ExtractionIdle    ExtractionPhase = "idle"
	ExtractionRunning ExtractionPhase = "running"
	ExtractionDone    ExtractionPhase = "done"
	ExtractionFailed  ExtractionPhase = "failed"
)

type ExtractionState struct {
	Phase    ExtractionPhase  `json:"phase"`
	Method   extract.Method   `json:"method,omitempty"`
	Progress extract.Progress `json:"progress"`
	Error    string           `json:"error,omitempty"`
}

// Session is the aggregate holding one chapter-authoring flow: the current
// text, the extraction state and the gate chain results. Every mutation of
// the text bumps the version token; async work captures the token at start
// and its results are discarded if the token no longer matches, so a slow
// OCR or gate response for an old document can never clobber a newer one.
type Session struct {
	ID        string
	UserID    string
	BookID    string
	ChapterID string
	Submitter model.SubmitterClass

	mu              sync.Mutex
	version         int64
	text            string
	lastCheckedText string
	checking        bool
	chain           ChainState
	gateStarted     time.Time
	extraction      ExtractionState
	createdAt       time.Time
	touchedAt       time.Time
}

func NewSession(userID, bookID, chapterID string, submitter model.SubmitterClass) *Session {
	now := time.Now()
	return &Session{
		ID:         uuid.NewString(),
		UserID:     userID,
		BookID:     bookID,
		ChapterID:  chapterID,
		Submitter:  submitter,
		version:    1,
		chain:      NewChainState(),
		extraction: ExtractionState{Phase: ExtractionIdle},
		createdAt:  now,
		touchedAt:  now,
	}
}

func (s *Session) Version() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version
}

func (s *Session) Text() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.text
}

// SetText replaces the working text, invalidating all three gate results
// atomically. Returns the new version token.
func (s *Session) SetText(text string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if text == s.text {
		return s.version
	}
	s.version++
	s.text = text
	s.chain = NewChainState()
	s.checking = false
	s.touchedAt = time.Now()
	return s.version
}

// BeginExtraction marks a new document upload. It supersedes the current
// text immediately, so in-flight work keyed to older versions gets dropped.
func (s *Session) BeginExtraction() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.version++
	s.chain = NewChainState()
	s.checking = false
	s.extraction = ExtractionState{
		Phase:    ExtractionRunning,
		Progress: extract.Progress{Status: "starting", Percent: 0},
	}
	s.touchedAt = time.Now()
	return s.version
}

func (s *Session) ApplyExtractionProgress(version int64, p extract.Progress) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if version != s.version || s.extraction.Phase != ExtractionRunning {
		return false
	}
	s.extraction.Progress = p
	return true
}

func (s *Session) CompleteExtraction(version int64, result *extract.ExtractionResult) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if version != s.version {
		return false
	}
	// Extracted text is a text change like any other: bump the token so a
	// chain run started mid-extraction cannot land on the new text.
	s.version++
	s.text = result.Text
	s.chain = NewChainState()
	s.extraction = ExtractionState{
		Phase:    ExtractionDone,
		Method:   result.Method,
		Progress: extract.Progress{Status: "done", Percent: 100},
	}
	s.touchedAt = time.Now()
	return true
}

// FailExtraction clears in-flight progress; no partial text is retained.
func (s *Session) FailExtraction(version int64, err error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if version != s.version {
		return false
	}
	s.extraction = ExtractionState{
		Phase: ExtractionFailed,
		Error: err.Error(),
	}
	s.touchedAt = time.Now()
	return true
}

// NeedsCheck reports whether the gate chain must run before submission.
func (s *Session) NeedsCheck() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.needsCheckLocked()
}

func (s *Session) needsCheckLocked() bool {
	return s.lastCheckedText != s.text || !s.chain.AllPassed()
}

// BeginChecks captures the text and version for a chain run. It refuses to
// start when a run is already in flight, or when the current text was already
// checked (the idempotent no-op case).
func (s *Session) BeginChecks() (text string, version int64, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.checking {
		return "", 0, false
	}
	if s.lastCheckedText == s.text && s.chainTerminalLocked() {
		return "", 0, false
	}
	s.checking = true
	s.chain = NewChainState()
	s.touchedAt = time.Now()
	return s.text, s.version, true
}

// chainTerminalLocked reports whether the last run finished (passed or hit a
// failed gate) as opposed to never having started.
func (s *Session) chainTerminalLocked() bool {
	for _, gate := range GateOrder {
		switch s.chain.Get(gate).Status {
		case StatusFailed:
			return true
		case StatusPassed:
			continue
		default:
			return false
		}
	}
	return true
}

// ApplyChainUpdate publishes an intermediate chain state. Stale versions are
// discarded silently.
func (s *Session) ApplyChainUpdate(version int64, state ChainState) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if version != s.version {
		return false
	}
	s.chain = state
	if _, running := state.Running(); running {
		s.gateStarted = time.Now()
	}
	return true
}

// FinishChecks records the terminal chain state along with the exact text it
// was computed against.
func (s *Session) FinishChecks(version int64, state ChainState, text string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checking = false
	if version != s.version {
		return false
	}
	s.chain = state
	s.lastCheckedText = text
	s.touchedAt = time.Now()
	return true
}

func (s *Session) Chain() ChainState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.chain
}

func (s *Session) TouchedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.touchedAt
}

// SessionView is the JSON-ready snapshot handlers return.
type SessionView struct {
	ID           string               `json:"id"`
	BookID       string               `json:"book_id"`
	ChapterID    string               `json:"chapter_id,omitempty"`
	Submitter    model.SubmitterClass `json:"submitter_class"`
	Version      int64                `json:"version"`
	Content      string               `json:"content"`
	ContentChars int                  `json:"content_chars"`
	Extraction   ExtractionState      `json:"extraction"`
	Chain        ChainState           `json:"checks"`
	Checking     bool                 `json:"checking"`
	UpToDate     bool                 `json:"checks_up_to_date"`
	GateProgress map[GateID]float64   `json:"gate_progress,omitempty"`
}

func (s *Session) Snapshot() SessionView {
	s.mu.Lock()
	defer s.mu.Unlock()
	view := SessionView{
		ID:           s.ID,
		BookID:       s.BookID,
		ChapterID:    s.ChapterID,
		Submitter:    s.Submitter,
		Version:      s.version,
		Content:      s.text,
		ContentChars: len([]rune(s.text)),
		Extraction:   s.extraction,
		Chain:        s.chain,
		Checking:     s.checking,
		UpToDate:     s.lastCheckedText == s.text && s.chain.AllPassed(),
	}
	if gate, running := s.chain.Running(); running {
		view.GateProgress = map[GateID]float64{
			gate: EstimatePercent(time.Since(s.gateStarted)),
		}
	}
	return view
}
