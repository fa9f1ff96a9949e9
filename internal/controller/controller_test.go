package controller

import (
	"testing"

	"github.com/rjsadow/fixproxy/internal/client"
	"github.com/rjsadow/fixproxy/internal/crypto"
	"github.com/rjsadow/fixproxy/internal/fixwire"
	"github.com/rjsadow/fixproxy/internal/server"
	"github.com/rjsadow/fixproxy/internal/shared"
)

type fakeClientSession struct {
	id        uint64
	username  string
	ready     bool
	delivered []fixwire.Business
	err       error
}

func (f *fakeClientSession) SessionID() uint64            { return f.id }
func (f *fakeClientSession) Username() (string, bool)     { return f.username, f.ready }
func (f *fakeClientSession) Ready() bool                  { return f.ready }
func (f *fakeClientSession) Tick()                        {}
func (f *fakeClientSession) Close()                       {}
func (f *fakeClientSession) Deliver(msg fixwire.Business) error {
	f.delivered = append(f.delivered, msg)
	return f.err
}

func newTestShared(t *testing.T) *shared.Shared {
	t.Helper()
	validator, err := crypto.New(crypto.ModeSimple)
	if err != nil {
		t.Fatal(err)
	}
	sh := shared.New(nil, validator)
	if err := sh.AddUser(shared.User{Component: "sim", Username: "alice", Password: "secret", StrategyID: 1}); err != nil {
		t.Fatal(err)
	}
	return sh
}

func TestRouteToClientDeliversToBoundSession(t *testing.T) {
	sh := newTestShared(t)
	if _, err := sh.SessionLogon(42, "alice", "secret", ""); err != nil {
		t.Fatal(err)
	}

	clients := client.NewManager()
	fs := &fakeClientSession{id: 42, username: "alice", ready: true}
	clients.Register(fs)

	c := New(sh, server.NewManager(), clients, nil)

	if err := c.RouteToClient("alice", fixwire.ExecutionReport{ClOrdID: "1"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(fs.delivered) != 1 {
		t.Fatalf("expected one delivered message, got %d", len(fs.delivered))
	}
}

func TestRouteToClientErrorsWhenUnbound(t *testing.T) {
	sh := newTestShared(t)
	clients := client.NewManager()
	c := New(sh, server.NewManager(), clients, nil)

	if err := c.RouteToClient("alice", fixwire.ExecutionReport{}); err == nil {
		t.Error("expected an error for an unbound username")
	}
}

func TestBroadcastSkipsNotReadySessions(t *testing.T) {
	sh := newTestShared(t)
	clients := client.NewManager()
	ready := &fakeClientSession{id: 1, ready: true}
	notReady := &fakeClientSession{id: 2, ready: false}
	clients.Register(ready)
	clients.Register(notReady)

	c := New(sh, server.NewManager(), clients, nil)
	c.Broadcast(fixwire.SecurityList{SecurityRespID: "1"})

	if len(ready.delivered) != 1 {
		t.Errorf("expected the ready session to receive the broadcast, got %d deliveries", len(ready.delivered))
	}
	if len(notReady.delivered) != 0 {
		t.Error("expected the not-ready session to be skipped")
	}
}

func TestRouteToServerErrorsWithoutConfiguredComponent(t *testing.T) {
	sh := shared.New(nil, nil)
	c := New(sh, server.NewManager(), client.NewManager(), nil)

	if err := c.RouteToServer("ghost", fixwire.NewOrderSingle{}); err == nil {
		t.Error("expected an error for a username with no configured venue component")
	}
}
