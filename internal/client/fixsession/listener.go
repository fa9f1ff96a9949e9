package fixsession

import (
	"context"
	"log/slog"
	"net"

	"github.com/rjsadow/fixproxy/internal/audit"
	"github.com/rjsadow/fixproxy/internal/client"
	"github.com/rjsadow/fixproxy/internal/config"
	"github.com/rjsadow/fixproxy/internal/ratelimit"
	"github.com/rjsadow/fixproxy/internal/shared"
)

// Listener accepts downstream FIX connections on a TCP socket and hands
// each one to the controller's event loop for registration, mirroring
// guacamole.Handler's accept-then-dispatch shape but for raw TCP rather
// than an HTTP upgrade.
type Listener struct {
	addr     string
	cfg      *config.Config
	shared   *shared.Shared
	dispatch client.Dispatcher
	rec      audit.Recorder
	post     func(func())
	register func(client.Session)
	limiter  *ratelimit.Limiter

	ln net.Listener
}

// NewListener constructs a Listener bound to addr. register is called on
// the event-loop goroutine (via post) once a session has completed its
// TCP accept, so the caller can hand the session to its client.Manager.
func NewListener(addr string, cfg *config.Config, sh *shared.Shared, dispatch client.Dispatcher, rec audit.Recorder, post func(func()), register func(client.Session)) *Listener {
	return &Listener{
		addr:     addr,
		cfg:      cfg,
		shared:   sh,
		dispatch: dispatch,
		rec:      rec,
		post:     post,
		register: register,
		limiter:  ratelimit.New(5, 10),
	}
}

// Run listens and accepts until ctx is cancelled or the listener fails.
// If a net.Listener is already set it is used as-is; otherwise Run
// listens on the configured address.
func (l *Listener) Run(ctx context.Context) error {
	ln := l.ln
	if ln == nil {
		var err error
		ln, err = net.Listen("tcp", l.addr)
		if err != nil {
			return err
		}
		l.ln = ln
	}

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				slog.Error("fixsession accept failed", "error", err)
				return err
			}
		}
		l.handleAccept(conn)
	}
}

func (l *Listener) handleAccept(conn net.Conn) {
	host, _, err := net.SplitHostPort(conn.RemoteAddr().String())
	if err != nil {
		host = conn.RemoteAddr().String()
	}
	if !l.limiter.Allow(host) {
		slog.Warn("fixsession rejecting connection, rate limited", "remote", host)
		conn.Close()
		return
	}

	// Registration mutates shared state (NextSessionID, the manager's
	// session map) so it must run on the event loop, exactly like
	// server.Session's own frame handling.
	l.post(func() {
		id := l.shared.NextSessionID()
		sess := New(id, conn, l.cfg, l.shared, l.dispatch, l.rec, l.post)
		l.register(sess)
		go sess.Serve()
	})
}

// Close stops accepting new connections.
func (l *Listener) Close() error {
	if l.ln != nil {
		return l.ln.Close()
	}
	return nil
}
