package pipeline

import (
	"sync"
	"time"
)

// Store keeps live sessions in memory. Sessions are ephemeral by design:
// nothing here survives a restart, and a cron sweep evicts the ones idle past
// their TTL.
type Store struct {
	mu       sync.Mutex
	ttl      time.Duration
	sessions map[string]*Session
	now      func() time.Time
}

func NewStore(ttl time.Duration) *Store {
	return &Store{
		ttl:      ttl,
		sessions: make(map[string]*Session),
		now:      time.Now,
	}
}

func (st *Store) Put(session *Session) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.sessions[session.ID] = session
}

func (st *Store) Get(id string) (*Session, bool) {
	st.mu.Lock()
	session, ok := st.sessions[id]
	st.mu.Unlock()
	if !ok {
		return nil, false
	}
	if st.ttl > 0 && st.now().Sub(session.TouchedAt()) > st.ttl {
		st.Delete(id)
		return nil, false
	}
	return session, true
}

func (st *Store) Delete(id string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	delete(st.sessions, id)
}

func (st *Store) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}

// Sweep evicts sessions idle past the TTL and returns how many were removed.
func (st *Store) Sweep() int {
	if st.ttl <= 0 {
		return 0
	}
	st.mu.Lock()
	ids := make([]string, 0, len(st.sessions))
	deadline := st.now().Add(-st.ttl)
	for id, session := range st.sessions {
		if session.TouchedAt().Before(deadline) {
			ids = append(ids, id)
		}
	}
	for _, id := range ids {
		delete(st.sessions, id)
	}
	st.mu.Unlock()
	return len(ids)
}
