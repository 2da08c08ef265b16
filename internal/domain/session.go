// Package domain contains entity without logic, just meta-data
package domain

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pion/webrtc/v4"
)

type SessionID string

// SessionState tracks where a connection is in the offer/answer handshake.
type SessionState string

const (
	StateAwaitingOffer SessionState = "awaiting_offer"
	StateNegotiating   SessionState = "negotiating"
	StateActive        SessionState = "active"
	StateClosed        SessionState = "closed"
)

// Session is one candidate's interview connection attempt. All signaling
// state lives here; media never touches this process. Mutations are guarded
// by the session's own mutex since handlers and the reaper run on different
// goroutines.
type Session struct {
	ID        SessionID
	CreatedAt time.Time

	mu           sync.Mutex
	lastActivity time.Time
	state        SessionState
	transcript   []string
	offer        *webrtc.SessionDescription
	answer       *webrtc.SessionDescription
	candidates   []webrtc.ICECandidateInit
}

// NewSession avoids raw literals in adapters and keeps construction obvious.
func NewSession(now time.Time) *Session {
	return &Session{
		ID:           SessionID(uuid.NewString()),
		CreatedAt:    now,
		lastActivity: now,
		state:        StateAwaitingOffer,
	}
}

// Touch advances lastActivity. Never moves it backwards.
func (s *Session) Touch(t time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.After(s.lastActivity) {
		s.lastActivity = t
	}
}

func (s *Session) LastActivity() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActivity
}

func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) SetState(st SessionState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = st
}

func (s *Session) SetOffer(sd webrtc.SessionDescription) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.offer = &sd
}

func (s *Session) Offer() *webrtc.SessionDescription {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.offer
}

func (s *Session) SetAnswer(sd webrtc.SessionDescription) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.answer = &sd
}

func (s *Session) Answer() *webrtc.SessionDescription {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.answer
}

// AddCandidate appends an ICE candidate and returns how many are stored.
// Candidates are kept for diagnostics; in the hybrid architecture they are
// not forwarded anywhere.
func (s *Session) AddCandidate(c webrtc.ICECandidateInit) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.candidates = append(s.candidates, c)
	return len(s.candidates)
}

func (s *Session) Candidates() []webrtc.ICECandidateInit {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]webrtc.ICECandidateInit, len(s.candidates))
	copy(out, s.candidates)
	return out
}

// AppendTranscript adds a fragment and returns the joined transcript so far.
func (s *Session) AppendTranscript(text string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transcript = append(s.transcript, text)
	return strings.Join(s.transcript, " ")
}

func (s *Session) Transcript() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return strings.Join(s.transcript, " ")
}
