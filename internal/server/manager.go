package server

import "context"

// Manager owns every venue-facing Session (component C4's server-side
// half): one Session per configured venue, started together and ticked
// together by the controller's timer.
type Manager struct {
	sessions map[string]*Session
}

// NewManager constructs an empty Manager; call Add for each configured
// venue before Start.
func NewManager() *Manager {
	return &Manager{sessions: make(map[string]*Session)}
}

// Add registers a session under its venue component name.
func (m *Manager) Add(s *Session) {
	m.sessions[s.Component()] = s
}

// Start launches every session's reconnect-forever Run loop in its own
// goroutine; Run itself exits when ctx is cancelled.
func (m *Manager) Start(ctx context.Context) {
	for _, s := range m.sessions {
		go s.Run(ctx)
	}
}

// Get returns the session bound to a venue component, the one a
// user record's component field names.
func (m *Manager) Get(component string) (*Session, bool) {
	s, ok := m.sessions[component]
	return s, ok
}

// Tick runs heartbeat bookkeeping for every session, called once per
// second by the controller's event loop.
func (m *Manager) Tick() {
	for _, s := range m.sessions {
		s.Tick()
	}
}

// Stop is invoked on shutdown. Individual sessions react
// to ctx cancellation in Run; Stop additionally drops any live
// connection immediately rather than waiting for the next read to fail.
func (m *Manager) Stop() {
	for _, s := range m.sessions {
		if s.conn != nil {
			s.conn.Close()
		}
	}
}
