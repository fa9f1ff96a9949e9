// Manager follows the same single-event-loop discipline as
// server.Manager/server.Session: every method here is only ever called
// from the controller's event-loop goroutine. Listener accept loops run
// on their own goroutine and must marshal registration back onto that
// loop (see fixsession.Listener/jsonrpc.Listener's use of their `post`
// callback), mirroring server.Session's own accept-then-post pattern.
package client

import "github.com/rjsadow/fixproxy/internal/fixwire"

// Session is what the manager and controller need from either client
// session variant, regardless of wire format.
type Session interface {
	SessionID() uint64

	// Username returns the bound username and true once the session has
	// completed logon; ("", false) beforehand.
	Username() (string, bool)

	// Ready reports whether the session can currently receive routed
	// traffic: it is bound to a username and currently ready.
	Ready() bool

	// Tick runs per-second heartbeat/logon-timeout bookkeeping.
	Tick()

	// Deliver pushes a routed business message down to this client,
	// whether individually routed or broadcast.
	Deliver(msg fixwire.Business) error

	// Close tears down the session's connection immediately.
	Close()
}

// Dispatcher is what a client session needs from the controller: route
// a client-originated business request to the upstream venue session
// bound to username.
type Dispatcher interface {
	RouteToServer(username string, msg fixwire.Business) error
}

// Manager owns every live client session (component C4's client-side
// half), keyed by session id.
type Manager struct {
	sessions map[uint64]Session
}

// NewManager constructs an empty Manager.
func NewManager() *Manager {
	return &Manager{sessions: make(map[uint64]Session)}
}

// Register adds a session to the active set. Must be called from the
// event-loop goroutine (via the owning listener's `post`).
func (m *Manager) Register(s Session) {
	m.sessions[s.SessionID()] = s
}

// Remove drops a session from the active set during the zombie-reaping
// sweep; it is the manager's half of shared.SessionCleanup's callback.
func (m *Manager) Remove(id uint64) {
	if s, ok := m.sessions[id]; ok {
		s.Close()
		delete(m.sessions, id)
	}
}

// Get looks up a session by id, used by the controller when routing a
// response to the client bound to a username.
func (m *Manager) Get(id uint64) (Session, bool) {
	s, ok := m.sessions[id]
	return s, ok
}

// All returns every live session, used for the security_definition
// broadcast.
func (m *Manager) All() []Session {
	out := make([]Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s)
	}
	return out
}

// Tick runs heartbeat/timeout bookkeeping for every session.
func (m *Manager) Tick() {
	for _, s := range m.sessions {
		s.Tick()
	}
}

// Stop closes every live session on shutdown.
func (m *Manager) Stop() {
	for id, s := range m.sessions {
		s.Close()
		delete(m.sessions, id)
	}
}
