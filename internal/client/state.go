// Package client holds the pieces common to both client session variants
// (FIX and JSON-RPC): the shared state machine and the
// manager that tracks registered sessions, fans out timer ticks, and
// drops reaped zombies. Accepting connections and the variant-specific
// wire handling live in the fixsession and jsonrpc subpackages.
package client

import "fmt"

// State is a client session's place in the downstream state machine.
// Initial = WaitingLogon; terminal = Zombie.
type State int

const (
	WaitingLogon State = iota
	WaitingCreateRoute
	Ready
	WaitingRemoveRoute
	Zombie
)

func (s State) String() string {
	switch s {
	case WaitingLogon:
		return "WAITING_LOGON"
	case WaitingCreateRoute:
		return "WAITING_CREATE_ROUTE"
	case Ready:
		return "READY"
	case WaitingRemoveRoute:
		return "WAITING_REMOVE_ROUTE"
	case Zombie:
		return "ZOMBIE"
	default:
		return "UNKNOWN"
	}
}

// IsTerminal reports whether the session has reached Zombie, the
// terminal state in which the session is reaped.
func (s State) IsTerminal() bool {
	return s == Zombie
}

var validTransitions = map[State][]State{
	WaitingLogon:       {WaitingCreateRoute, Ready, Zombie},
	WaitingCreateRoute: {Ready, Zombie},
	Ready:              {WaitingRemoveRoute, Zombie},
	WaitingRemoveRoute: {Zombie},
	Zombie:             {},
}

// CanTransition reports whether from->to is a valid step in the client
// state diagram.
func CanTransition(from, to State) bool {
	for _, target := range validTransitions[from] {
		if target == to {
			return true
		}
	}
	return false
}

// TransitionError reports an attempted transition the state machine does
// not allow.
type TransitionError struct {
	SessionID uint64
	From      State
	To        State
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("client session %d: invalid state transition %s -> %s", e.SessionID, e.From, e.To)
}
