package server

import (
	"testing"

	"github.com/rjsadow/fixproxy/internal/config"
	"github.com/rjsadow/fixproxy/internal/shared"
)

func TestManagerGetReturnsSessionByComponent(t *testing.T) {
	m := NewManager()
	s := NewSession(config.Venue{Component: "sim"}, config.Default(), shared.New(nil, nil), nil, func(func()) {})
	m.Add(s)

	got, ok := m.Get("sim")
	if !ok || got != s {
		t.Fatalf("expected Get(%q) to return the registered session", "sim")
	}

	if _, ok := m.Get("missing"); ok {
		t.Error("expected Get to report false for an unregistered component")
	}
}

func TestManagerTickDoesNotPanicWithDisconnectedSessions(t *testing.T) {
	m := NewManager()
	m.Add(NewSession(config.Venue{Component: "a"}, config.Default(), shared.New(nil, nil), nil, func(func()) {}))
	m.Add(NewSession(config.Venue{Component: "b"}, config.Default(), shared.New(nil, nil), nil, func(func()) {}))

	m.Tick()
}
