package app

import (
	"context"
	"testing"
	"time"

	"github.com/hireloop/sigproxy/internal/core"
	"github.com/hireloop/sigproxy/internal/domain"
)

type fakeConn struct {
	sent   []core.Frame
	closed bool
}

func (f *fakeConn) TrySend(fr core.Frame) error {
	f.sent = append(f.sent, fr)
	return nil
}

func (f *fakeConn) Close() { f.closed = true }

func bindSession(t *testing.T, s *Store, at time.Time) (*domain.Session, *fakeConn, context.CancelFunc) {
	t.Helper()
	sess := domain.NewSession(at)
	conn := &fakeConn{}
	_, cancel := context.WithCancel(context.Background())
	if err := s.Bind(sess, conn, cancel); err != nil {
		t.Fatalf("bind: %v", err)
	}
	return sess, conn, cancel
}

func TestStoreBindAndGet(t *testing.T) {
	s := NewStore()
	sess, _, _ := bindSession(t, s, time.Now())

	got, ok := s.Get(sess.ID)
	if !ok {
		t.Fatalf("expected session in store")
	}
	if got.ID != sess.ID {
		t.Fatalf("expected %s, got %s", sess.ID, got.ID)
	}
	if s.Len() != 1 {
		t.Fatalf("expected 1 session, got %d", s.Len())
	}
}

func TestStoreBindDuplicateRefused(t *testing.T) {
	s := NewStore()
	sess, _, _ := bindSession(t, s, time.Now())

	if err := s.Bind(sess, &fakeConn{}, nil); err != ErrDuplicateSession {
		t.Fatalf("expected ErrDuplicateSession, got %v", err)
	}
}

func TestStoreGetMissingIsNormal(t *testing.T) {
	s := NewStore()
	if _, ok := s.Get("nope"); ok {
		t.Fatalf("expected not found")
	}
	if _, ok := s.Remove("nope"); ok {
		t.Fatalf("expected remove of unknown id to be a no-op")
	}
}

func TestStoreTouch(t *testing.T) {
	s := NewStore()
	base := time.Now()
	sess, _, _ := bindSession(t, s, base)

	later := base.Add(time.Minute)
	s.Touch(sess.ID, later)
	if !sess.LastActivity().Equal(later) {
		t.Fatalf("expected touch to advance lastActivity")
	}
}

func TestStoreRemoveCancelsContext(t *testing.T) {
	s := NewStore()
	sess := domain.NewSession(time.Now())
	ctx, cancel := context.WithCancel(context.Background())
	if err := s.Bind(sess, &fakeConn{}, cancel); err != nil {
		t.Fatalf("bind: %v", err)
	}

	removed, ok := s.Remove(sess.ID)
	if !ok {
		t.Fatalf("expected removal")
	}
	if removed.State() != domain.StateClosed {
		t.Fatalf("expected closed state, got %s", removed.State())
	}
	select {
	case <-ctx.Done():
	default:
		t.Fatalf("expected session context to be cancelled")
	}
	if _, ok := s.Get(sess.ID); ok {
		t.Fatalf("expected session gone after remove")
	}
}

func TestStoreRename(t *testing.T) {
	s := NewStore()
	sess, _, _ := bindSession(t, s, time.Now())
	oldID := sess.ID

	if !s.Rename(oldID, "client-chosen") {
		t.Fatalf("expected rename to succeed")
	}
	if _, ok := s.Get(oldID); ok {
		t.Fatalf("old id should be gone")
	}
	got, ok := s.Get("client-chosen")
	if !ok || got.ID != "client-chosen" {
		t.Fatalf("expected session under new id")
	}

	other, _, _ := bindSession(t, s, time.Now())
	if s.Rename(other.ID, "client-chosen") {
		t.Fatalf("rename onto taken id must be refused")
	}
}

func TestStoreSnapshot(t *testing.T) {
	s := NewStore()
	a, _, _ := bindSession(t, s, time.Now())
	b, _, _ := bindSession(t, s, time.Now())

	refs := s.Snapshot()
	if len(refs) != 2 {
		t.Fatalf("expected 2 refs, got %d", len(refs))
	}
	ids := map[domain.SessionID]bool{}
	for _, r := range refs {
		ids[r.ID] = true
		if r.Conn == nil || r.Session == nil {
			t.Fatalf("snapshot ref missing fields")
		}
	}
	if !ids[a.ID] || !ids[b.ID] {
		t.Fatalf("snapshot missing sessions")
	}
}
