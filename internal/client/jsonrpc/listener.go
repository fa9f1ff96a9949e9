package jsonrpc

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/rjsadow/fixproxy/internal/audit"
	"github.com/rjsadow/fixproxy/internal/client"
	"github.com/rjsadow/fixproxy/internal/config"
	"github.com/rjsadow/fixproxy/internal/middleware"
	"github.com/rjsadow/fixproxy/internal/ratelimit"
	"github.com/rjsadow/fixproxy/internal/shared"
)

// upgrader mirrors websocket.Proxy's configuration; CheckOrigin is
// permissive because the JSON-RPC listener,
// like the VNC proxy it's grounded on, expects to sit behind a
// trusted reverse proxy that has already authorized the origin.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Listener serves the JSON-RPC dialect's HTTP surface: GET /symbols and
// the WebSocket upgrade endpoint, both rate-limited per remote IP.
type Listener struct {
	addr     string
	cfg      *config.Config
	shared   *shared.Shared
	dispatch client.Dispatcher
	rec      audit.Recorder
	post     func(func())
	register func(client.Session)
	limiter  *ratelimit.Limiter

	srv *http.Server
}

// NewListener constructs a Listener bound to addr. register is invoked
// on the event-loop goroutine once a WebSocket session has been
// accepted, exactly like fixsession.Listener.
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

func (l *Listener) mux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/symbols", middleware.SecureHeadersFunc(l.handleSymbols))
	mux.HandleFunc("/ws", middleware.SecureHeadersFunc(l.handleWebSocket))
	return mux
}

// Run starts the HTTP server and blocks until ctx is cancelled or the
// server fails.
func (l *Listener) Run(ctx context.Context) error {
	l.srv = &http.Server{
		Addr:    l.addr,
		Handler: middleware.RequestID(l.mux()),
	}

	errCh := make(chan error, 1)
	go func() {
		if err := l.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		return l.srv.Close()
	case err := <-errCh:
		return err
	}
}

func (l *Listener) handleSymbols(w http.ResponseWriter, r *http.Request) {
	if !l.limiter.Allow(ratelimit.ClientIP(r)) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(struct {
		Symbols []string `json:"symbols"`
	}{Symbols: l.cfg.Symbols})
}

func (l *Listener) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if !l.limiter.Allow(ratelimit.ClientIP(r)) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("jsonrpc websocket upgrade failed", "error", err)
		return
	}

	l.post(func() {
		id := l.shared.NextSessionID()
		sess := New(id, conn, l.cfg, l.shared, l.dispatch, l.rec, l.post)
		l.register(sess)
		go sess.Serve()
	})
}

// Close shuts down the HTTP server immediately.
func (l *Listener) Close() error {
	if l.srv != nil {
		return l.srv.Close()
	}
	return nil
}
