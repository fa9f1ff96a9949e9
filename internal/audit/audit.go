// Package audit implements the compliance journal: an append-only
// record of logons, logouts, and execution reports, kept separately
// from the (intentionally non-persisted) FIX sequence-number/session
// state.
//
// The Recorder interface and the fan-out/no-op implementations follow a
// pluggable-sink pattern: a Recorder that derives its own aggregate from
// the event stream is the model for any future consumer that wants to
// tally volumes without touching the controller.
package audit

import (
	"context"
	"time"
)

// Event identifies the kind of occurrence being journaled.
type Event string

const (
	EventLogon            Event = "logon"
	EventLogonFailed      Event = "logon_failed"
	EventLogout           Event = "logout"
	EventSessionReaped    Event = "session_reaped"
	EventNewOrderSingle   Event = "new_order_single"
	EventOrderCancel      Event = "order_cancel_request"
	EventExecutionReport  Event = "execution_report"
	EventBusinessReject   Event = "business_message_reject"
)

// Record is one journal row: who did what, when, and through which
// session, plus a free-form detail string (e.g. a ClOrdID or reject
// reason) for post-trade review.
type Record struct {
	SessionID uint64    `json:"session_id"`
	Username  string    `json:"username"`
	Event     Event     `json:"event"`
	Timestamp time.Time `json:"timestamp"`
	Detail    string    `json:"detail,omitempty"`
}

// Recorder is implemented by anything that wants to observe the journal
// stream. Implementations must not block the caller for long — client
// sessions call OnEvent from the controller's single event-loop
// goroutine, so a slow recorder stalls every session.
type Recorder interface {
	OnEvent(ctx context.Context, rec Record)
}

// NoopRecorder discards every record; used when no audit_dsn is
// configured.
type NoopRecorder struct{}

func (NoopRecorder) OnEvent(context.Context, Record) {}

// MultiRecorder fans a record out to every child recorder, so the SQLite
// journal can run alongside e.g. a future metrics collector without
// either one owning the call site.
type MultiRecorder struct {
	recorders []Recorder
}

// NewMultiRecorder builds a MultiRecorder from the given recorders. Nil
// entries are skipped so callers can pass an optional recorder directly.
func NewMultiRecorder(recorders ...Recorder) *MultiRecorder {
	filtered := make([]Recorder, 0, len(recorders))
	for _, r := range recorders {
		if r != nil {
			filtered = append(filtered, r)
		}
	}
	return &MultiRecorder{recorders: filtered}
}

func (m *MultiRecorder) OnEvent(ctx context.Context, rec Record) {
	for _, r := range m.recorders {
		r.OnEvent(ctx, rec)
	}
}
