package client

import (
	"testing"

	"github.com/rjsadow/fixproxy/internal/fixwire"
)

type fakeSession struct {
	id       uint64
	username string
	bound    bool
	ready    bool
	ticks    int
	closed   bool
}

func (f *fakeSession) SessionID() uint64 { return f.id }
func (f *fakeSession) Username() (string, bool) {
	return f.username, f.bound
}
func (f *fakeSession) Ready() bool                          { return f.ready }
func (f *fakeSession) Tick()                                { f.ticks++ }
func (f *fakeSession) Deliver(fixwire.Business) error       { return nil }
func (f *fakeSession) Close()                               { f.closed = true }

func TestManagerRegisterAndGet(t *testing.T) {
	m := NewManager()
	s := &fakeSession{id: 1, username: "alice", bound: true, ready: true}
	m.Register(s)

	got, ok := m.Get(1)
	if !ok || got != s {
		t.Fatal("expected Get(1) to return the registered session")
	}
	if _, ok := m.Get(2); ok {
		t.Error("expected Get(2) to report false")
	}
}

func TestManagerRemoveClosesAndDrops(t *testing.T) {
	m := NewManager()
	s := &fakeSession{id: 5}
	m.Register(s)

	m.Remove(5)

	if !s.closed {
		t.Error("expected Remove to close the session")
	}
	if _, ok := m.Get(5); ok {
		t.Error("expected the session to be gone after Remove")
	}
}

func TestManagerTickFansOutToEverySession(t *testing.T) {
	m := NewManager()
	a, b := &fakeSession{id: 1}, &fakeSession{id: 2}
	m.Register(a)
	m.Register(b)

	m.Tick()

	if a.ticks != 1 || b.ticks != 1 {
		t.Errorf("expected both sessions ticked once, got %d and %d", a.ticks, b.ticks)
	}
}

func TestManagerStopClosesEverySession(t *testing.T) {
	m := NewManager()
	a, b := &fakeSession{id: 1}, &fakeSession{id: 2}
	m.Register(a)
	m.Register(b)

	m.Stop()

	if !a.closed || !b.closed {
		t.Error("expected Stop to close every session")
	}
	if len(m.All()) != 0 {
		t.Error("expected no sessions to remain after Stop")
	}
}

func TestManagerAllReturnsEveryLiveSession(t *testing.T) {
	m := NewManager()
	m.Register(&fakeSession{id: 1})
	m.Register(&fakeSession{id: 2})

	if len(m.All()) != 2 {
		t.Errorf("expected 2 sessions, got %d", len(m.All()))
	}
}
