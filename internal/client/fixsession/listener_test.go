package fixsession

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/rjsadow/fixproxy/internal/client"
	"github.com/rjsadow/fixproxy/internal/config"
	"github.com/rjsadow/fixproxy/internal/fixwire"
	"github.com/rjsadow/fixproxy/internal/shared"
)

type noopDispatcher struct{}

func (noopDispatcher) RouteToServer(string, fixwire.Business) error { return nil }

func TestListenerAcceptsAndRegistersSession(t *testing.T) {
	sh := shared.New(nil, nil)
	registered := make(chan client.Session, 1)
	posted := make(chan func(), 4)

	post := func(fn func()) { posted <- fn }

	l := NewListener("127.0.0.1:0", config.Default(), sh, noopDispatcher{}, nil, post, func(s client.Session) {
		registered <- s
	})

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	l.ln = ln
	addr := ln.Addr().String()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go l.Run(ctx)

	conn, err := net.DialTimeout("tcp", addr, time.Second)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()

	select {
	case fn := <-posted:
		fn()
	case <-time.After(time.Second):
		t.Fatal("expected a post call after accept")
	}

	select {
	case s := <-registered:
		if s == nil {
			t.Error("expected a non-nil registered session")
		}
	case <-time.After(time.Second):
		t.Fatal("expected a session to be registered")
	}
}

func TestListenerRejectsRateLimitedConnections(t *testing.T) {
	sh := shared.New(nil, nil)
	registered := make(chan client.Session, 20)
	post := func(fn func()) { fn() }

	l := NewListener("127.0.0.1:0", config.Default(), sh, noopDispatcher{}, nil, post, func(s client.Session) {
		registered <- s
	})

	for i := 0; i < 20; i++ {
		l.handleAccept(&fakeConn{})
	}

	if len(registered) >= 20 {
		t.Error("expected the rate limiter to reject at least some of the burst")
	}
}

type fakeConn struct {
	net.Conn
}

func (f *fakeConn) RemoteAddr() net.Addr { return fakeAddr("203.0.113.5:4000") }
func (f *fakeConn) Close() error         { return nil }
func (f *fakeConn) Read([]byte) (int, error) {
	return 0, net.ErrClosed
}

type fakeAddr string

func (a fakeAddr) Network() string { return "tcp" }
func (a fakeAddr) String() string  { return string(a) }
