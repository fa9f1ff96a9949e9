// Package controller implements component C5: the single-threaded
// event loop that owns Shared and both managers, and the two Dispatcher
// implementations (server.Dispatcher, client.Dispatcher) that route
// business traffic between the server-side venue sessions and the
// client-side downstream sessions. Grounded on guacamole.SessionRegistry's
// shared-resource-plus-callback shape and on server.Session's own
// `post func(func())` marshaling idiom, generalized here to be the one
// place that idiom terminates.
package controller

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rjsadow/fixproxy/internal/audit"
	"github.com/rjsadow/fixproxy/internal/client"
	"github.com/rjsadow/fixproxy/internal/fixwire"
	"github.com/rjsadow/fixproxy/internal/server"
	"github.com/rjsadow/fixproxy/internal/shared"
)

// tickInterval drives Shared.SessionCleanup and both managers' Tick on
// a once-a-second heartbeat/reap cadence.
const tickInterval = time.Second

// Controller is the process's single event-loop goroutine. Every
// mutation of Shared, server.Manager, or client.Manager happens inside
// Run, reached either by the select loop's own ticker or by a closure
// submitted through Post from an I/O goroutine.
type Controller struct {
	shared  *shared.Shared
	servers *server.Manager
	clients *client.Manager
	rec     audit.Recorder

	postCh chan func()
}

// New constructs a Controller over the given shared state and managers.
func New(sh *shared.Shared, servers *server.Manager, clients *client.Manager, rec audit.Recorder) *Controller {
	return &Controller{
		shared:  sh,
		servers: servers,
		clients: clients,
		rec:     rec,
		postCh:  make(chan func(), 256),
	}
}

// Post schedules fn to run on the event-loop goroutine. Safe to call
// from any goroutine; this is the callback every listener and session
// read-loop is given as their `post`.
func (c *Controller) Post(fn func()) {
	c.postCh <- fn
}

// Run starts the venue sessions and processes posted closures and the
// tick timer until ctx is cancelled.
func (c *Controller) Run(ctx context.Context) {
	c.servers.Start(ctx)

	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.shutdown()
			return
		case fn := <-c.postCh:
			fn()
		case <-ticker.C:
			c.tick()
		}
	}
}

func (c *Controller) tick() {
	c.servers.Tick()
	c.clients.Tick()
	c.shared.SessionCleanup(func(sessionID uint64) {
		c.clients.Remove(sessionID)
	})
}

func (c *Controller) shutdown() {
	c.clients.Stop()
	c.servers.Stop()
}

// RouteToClient implements server.Dispatcher: deliver a venue response
// to the downstream client session bound to username.
func (c *Controller) RouteToClient(username string, msg fixwire.Business) error {
	sessionID, ok := c.shared.SessionFind(username)
	if !ok {
		return fmt.Errorf("controller: no client session bound to %q", username)
	}
	sess, ok := c.clients.Get(sessionID)
	if !ok {
		return fmt.Errorf("controller: session %d not registered", sessionID)
	}
	if !sess.Ready() {
		return fmt.Errorf("controller: session %d not ready", sessionID)
	}
	return sess.Deliver(msg)
}

// Broadcast implements server.Dispatcher: deliver msg to every ready
// client session. Used for security definitions and similar
// reference-data pushes with no single routing key.
func (c *Controller) Broadcast(msg fixwire.Business) {
	for _, sess := range c.clients.All() {
		if !sess.Ready() {
			continue
		}
		if err := sess.Deliver(msg); err != nil {
			slog.Warn("controller broadcast delivery failed", "session_id", sess.SessionID(), "error", err)
		}
	}
}

// RouteToServer implements client.Dispatcher: forward a client-
// originated business request to the upstream venue session the
// username's component maps to.
func (c *Controller) RouteToServer(username string, msg fixwire.Business) error {
	component, ok := c.shared.ComponentFor(username)
	if !ok {
		return fmt.Errorf("controller: %q has no configured venue component", username)
	}
	sess, ok := c.servers.Get(component)
	if !ok {
		return fmt.Errorf("controller: no venue session for component %q", component)
	}
	return sess.Send(msg)
}
