// Package shared implements the state every session and manager in the
// proxy reads or mutates: the symbol allow-list, the user/credential
// table, the username↔session binding, the zombie reap queue, and the
// process-wide request-id counter.
//
// Per §5, the proxy's concurrency model is a single-threaded cooperative
// event loop: every call into Shared happens from that one goroutine, so
// Shared carries no locks at all. Callers that spawn their own
// goroutines (e.g. a venue TCP read loop) must hand results back onto
// the event loop rather than calling Shared directly.
package shared

import (
	"fmt"
	"strconv"

	"github.com/rjsadow/fixproxy/internal/crypto"
)

// User is one registered credential/routing record, per §3 "User record".
type User struct {
	Component  string
	Username   string
	Password   string
	Accounts   []string
	StrategyID uint32
}

// Shared is the process-wide aggregate described in §4.1. SessionID is a
// process-wide monotonically increasing counter (§3 "Session id"),
// allocated by NextSessionID and never reused.
type Shared struct {
	symbols   *SymbolSet
	validator *crypto.Validator

	users map[string]User // username -> User

	usernameToSession map[string]uint64 // username -> session_id
	sessionToUsername map[uint64]string // session_id -> username

	sessionsToRemove map[uint64]struct{}

	nextSessionID uint64
	nextRequestID uint64
}

// New constructs a Shared with the given symbol allow-list and crypto
// validator; both are supplied fully-formed by the caller (main.go),
// since they are themselves built from config.
func New(symbols *SymbolSet, validator *crypto.Validator) *Shared {
	return &Shared{
		symbols:           symbols,
		validator:         validator,
		users:             make(map[string]User),
		usernameToSession: make(map[string]uint64),
		sessionToUsername: make(map[uint64]string),
		sessionsToRemove:  make(map[uint64]struct{}),
	}
}

// Include reports whether a symbol matches the configured allow-list.
func (s *Shared) Include(symbol string) bool {
	return s.symbols.Include(symbol)
}

// NextSessionID allocates a fresh, process-wide unique session id.
func (s *Shared) NextSessionID() uint64 {
	s.nextSessionID++
	return s.nextSessionID
}

// CreateRequestID returns a monotonic numeric request id, unique for the
// process lifetime (§4.1).
func (s *Shared) CreateRequestID() string {
	s.nextRequestID++
	return strconv.FormatUint(s.nextRequestID, 10)
}

// AddUser registers credentials. It is idempotent on
// (username, password, strategy_id); a conflicting re-registration of an
// existing username fails with ErrAlreadyExists (§4.1).
func (s *Shared) AddUser(u User) error {
	existing, ok := s.users[u.Username]
	if ok {
		if existing.Password == u.Password && existing.StrategyID == u.StrategyID {
			return nil
		}
		return fmt.Errorf("%w: %s", ErrAlreadyExists, u.Username)
	}
	s.users[u.Username] = u
	return nil
}

// RemoveUser removes credentials and any live binding for username.
func (s *Shared) RemoveUser(username string) {
	delete(s.users, username)
	if sessionID, ok := s.usernameToSession[username]; ok {
		delete(s.usernameToSession, username)
		delete(s.sessionToUsername, sessionID)
	}
}

// User looks up a registered user record.
func (s *Shared) User(username string) (User, bool) {
	u, ok := s.users[username]
	return u, ok
}

// SessionLogon validates credentials and, on success, establishes the
// username↔session_id binding and returns the user's strategy id (§4.1).
func (s *Shared) SessionLogon(sessionID uint64, username, password, rawData string) (uint32, error) {
	u, ok := s.users[username]
	if !ok {
		return 0, ErrInvalidPassword
	}
	if _, bound := s.usernameToSession[username]; bound {
		return 0, ErrAlreadyLoggedOn
	}
	if !s.validator.Validate(password, u.Password, rawData) {
		return 0, ErrInvalidPassword
	}

	s.usernameToSession[username] = sessionID
	s.sessionToUsername[sessionID] = username
	return u.StrategyID, nil
}

// SessionLogout removes the binding for sessionID, if one exists.
func (s *Shared) SessionLogout(sessionID uint64) error {
	username, ok := s.sessionToUsername[sessionID]
	if !ok {
		return ErrNotLoggedOn
	}
	delete(s.sessionToUsername, sessionID)
	delete(s.usernameToSession, username)
	return nil
}

// SessionRemove enqueues sessionID for reaping. Safe to call during
// iteration over the active-sessions map (§4.1, §9 "Zombie reaping").
func (s *Shared) SessionRemove(sessionID uint64) {
	s.sessionsToRemove[sessionID] = struct{}{}
}

// SessionCleanup drains the reap queue, invoking fn for each queued
// session id and removing any lingering binding. Invoked by the manager
// on the controller's timer tick (§4.6).
func (s *Shared) SessionCleanup(fn func(sessionID uint64)) {
	if len(s.sessionsToRemove) == 0 {
		return
	}
	pending := s.sessionsToRemove
	s.sessionsToRemove = make(map[uint64]struct{})
	for sessionID := range pending {
		if username, ok := s.sessionToUsername[sessionID]; ok {
			delete(s.sessionToUsername, sessionID)
			delete(s.usernameToSession, username)
		}
		fn(sessionID)
	}
}

// SessionFind looks up the session id bound to username (§4.1, §4.6
// "Server → client routing").
func (s *Shared) SessionFind(username string) (uint64, bool) {
	id, ok := s.usernameToSession[username]
	return id, ok
}

// ComponentFor returns the upstream venue component a username routes
// through (§4.6 "Client → server routing": "via the user record's
// component field").
func (s *Shared) ComponentFor(username string) (string, bool) {
	u, ok := s.users[username]
	if !ok {
		return "", false
	}
	return u.Component, true
}
