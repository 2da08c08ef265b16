package app

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hireloop/sigproxy/internal/core"
	"github.com/hireloop/sigproxy/internal/domain"
)

var ErrDuplicateSession = errors.New("session id already bound")

type sessionEntry struct {
	Session *domain.Session
	Conn    core.SignalConnection
	Cancel  context.CancelFunc
}

// SessionRef is a read-only view handed to the reaper.
type SessionRef struct {
	ID      domain.SessionID
	Session *domain.Session
	Conn    core.SignalConnection
}

// Store is the in-memory session collection. It is constructor-injected
// into the signal controller and the reaper rather than being a package
// global, so tests get isolated instances and the mutex is the single
// synchronization point for the map.
type Store struct {
	mu       sync.RWMutex
	sessions map[domain.SessionID]*sessionEntry
}

func NewStore() *Store {
	return &Store{
		sessions: make(map[domain.SessionID]*sessionEntry),
	}
}

// Bind registers a freshly created session with its transport. The id
// generation scheme makes collisions unreachable in practice; a duplicate
// still refuses the bind rather than silently stealing the entry.
func (s *Store) Bind(sess *domain.Session, conn core.SignalConnection, cancel context.CancelFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[sess.ID]; ok {
		return ErrDuplicateSession
	}
	s.sessions[sess.ID] = &sessionEntry{Session: sess, Conn: conn, Cancel: cancel}
	log.Info().Str("module", "app.store").Str("sid", string(sess.ID)).Msg("bound session")
	return nil
}

// Get returns the live session, if any. Absence is a normal condition
// after cleanup; callers treat it as a signal to drop the operation.
func (s *Store) Get(id domain.SessionID) (*domain.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if e, ok := s.sessions[id]; ok {
		return e.Session, true
	}
	return nil, false
}

func (s *Store) Conn(id domain.SessionID) (core.SignalConnection, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if e, ok := s.sessions[id]; ok {
		return e.Conn, true
	}
	return nil, false
}

// Touch records inbound activity on the session.
func (s *Store) Touch(id domain.SessionID, t time.Time) {
	s.mu.RLock()
	e, ok := s.sessions[id]
	s.mu.RUnlock()
	if ok {
		e.Session.Touch(t)
	}
}

// Rename rebinds an entry under a client-supplied id. The old id must be
// live and the new one unused, otherwise the entry stays as it was.
func (s *Store) Rename(oldID, newID domain.SessionID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.sessions[oldID]
	if !ok {
		return false
	}
	if _, taken := s.sessions[newID]; taken {
		return false
	}
	delete(s.sessions, oldID)
	e.Session.ID = newID
	s.sessions[newID] = e
	log.Info().Str("module", "app.store").Str("sid", string(oldID)).Str("new_sid", string(newID)).Msg("renamed session")
	return true
}

// Remove unbinds the session, cancels its context and returns the session
// for final cleanup. Idempotent: removing an unknown id is a no-op.
func (s *Store) Remove(id domain.SessionID) (*domain.Session, bool) {
	s.mu.Lock()
	e, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()
	if !ok {
		return nil, false
	}
	if e.Cancel != nil {
		e.Cancel()
	}
	e.Session.SetState(domain.StateClosed)
	log.Info().Str("module", "app.store").Str("sid", string(id)).Msg("removed session")
	return e.Session, true
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Snapshot is used by the reaper to sweep without holding the map lock
// across socket operations.
func (s *Store) Snapshot() []SessionRef {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]SessionRef, 0, len(s.sessions))
	for id, e := range s.sessions {
		out = append(out, SessionRef{ID: id, Session: e.Session, Conn: e.Conn})
	}
	return out
}
