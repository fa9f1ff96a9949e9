package fixsession

import (
	"net"
	"testing"
	"time"

	"github.com/rjsadow/fixproxy/internal/client"
	"github.com/rjsadow/fixproxy/internal/config"
	"github.com/rjsadow/fixproxy/internal/crypto"
	"github.com/rjsadow/fixproxy/internal/fixwire"
	"github.com/rjsadow/fixproxy/internal/shared"
)

type recordingDispatcher struct {
	routed []fixwire.Business
	err    error
}

func (d *recordingDispatcher) RouteToServer(username string, msg fixwire.Business) error {
	d.routed = append(d.routed, msg)
	return d.err
}

func newTestSession(t *testing.T, sh *shared.Shared, dispatch client.Dispatcher) (*Session, net.Conn) {
	t.Helper()
	serverConn, clientConn := net.Pipe()
	t.Cleanup(func() { clientConn.Close() })

	s := &Session{
		cfg:           config.Default(),
		shared:        sh,
		dispatch:      dispatch,
		post:          func(fn func()) { fn() },
		state:         client.WaitingLogon,
		conn:          serverConn,
		sendCh:        make(chan []byte, 16),
		done:          make(chan struct{}),
		logonDeadline: time.Now().Add(time.Minute),
	}
	return s, clientConn
}

func newTestShared(t *testing.T) *shared.Shared {
	t.Helper()
	symbols, err := shared.NewSymbolSet([]string{"^BTCUSD$"})
	if err != nil {
		t.Fatal(err)
	}
	validator, err := crypto.New(crypto.ModeSimple)
	if err != nil {
		t.Fatal(err)
	}
	sh := shared.New(symbols, validator)
	if err := sh.AddUser(shared.User{Component: "sim", Username: "alice", Password: "secret", StrategyID: 7}); err != nil {
		t.Fatal(err)
	}
	return sh
}

func TestOnLogonSuccessTransitionsReady(t *testing.T) {
	sh := newTestShared(t)
	s, _ := newTestSession(t, sh, &recordingDispatcher{})

	s.onLogon(fixwire.EncodeLogon(30, "alice", "secret", ""))

	if s.state != client.Ready {
		t.Fatalf("expected state Ready, got %v", s.state)
	}
	if s.username != "alice" || s.strategy != 7 {
		t.Errorf("unexpected username/strategy: %q %d", s.username, s.strategy)
	}
	select {
	case raw := <-s.sendCh:
		header, _, err := fixwire.Decode(raw)
		if err != nil {
			t.Fatal(err)
		}
		if header.MsgType != fixwire.MsgTypeLogon {
			t.Errorf("expected a Logon ack, got msg type %q", header.MsgType)
		}
	default:
		t.Fatal("expected a Logon ack to be queued")
	}
}

func TestOnLogonFailureSendsLogoutAndCloses(t *testing.T) {
	sh := newTestShared(t)
	s, _ := newTestSession(t, sh, &recordingDispatcher{})

	s.onLogon(fixwire.EncodeLogon(30, "alice", "wrong-password", ""))

	if s.state == client.Ready {
		t.Fatal("expected logon failure to not reach Ready")
	}
	select {
	case raw := <-s.sendCh:
		header, _, err := fixwire.Decode(raw)
		if err != nil {
			t.Fatal(err)
		}
		if header.MsgType != fixwire.MsgTypeLogout {
			t.Errorf("expected a Logout, got msg type %q", header.MsgType)
		}
	default:
		t.Fatal("expected a Logout to be queued")
	}
}

func TestFilterAndStampRejectsUnknownSymbol(t *testing.T) {
	sh := newTestShared(t)
	s, _ := newTestSession(t, sh, &recordingDispatcher{})
	s.username = "alice"
	s.strategy = 7

	_, reason := s.filterAndStamp(fixwire.NewOrderSingle{ClOrdID: "1", Symbol: "ETHUSD"})
	if reason == "" {
		t.Fatal("expected an unknown-symbol rejection")
	}
}

func TestFilterAndStampStampsPartiesForAllowedSymbol(t *testing.T) {
	sh := newTestShared(t)
	s, _ := newTestSession(t, sh, &recordingDispatcher{})
	s.username = "alice"
	s.strategy = 7

	biz, reason := s.filterAndStamp(fixwire.NewOrderSingle{ClOrdID: "1", Symbol: "BTCUSD"})
	if reason != "" {
		t.Fatalf("unexpected rejection: %s", reason)
	}
	nos := biz.(fixwire.NewOrderSingle)
	if !fixwire.HasParty(nos.Parties, fixwire.PartyRoleClientID) {
		t.Error("expected a stamped client-id party")
	}
	if !fixwire.HasParty(nos.Parties, fixwire.PartyRoleOrderOriginationTrader) {
		t.Error("expected a stamped strategy party")
	}
}

func TestFilterAndStampPreservesExistingParties(t *testing.T) {
	sh := newTestShared(t)
	s, _ := newTestSession(t, sh, &recordingDispatcher{})
	s.username = "alice"
	s.strategy = 7

	existing := []fixwire.Party{{ID: "custom", Source: "D", Role: fixwire.PartyRoleClientID}}
	biz, _ := s.filterAndStamp(fixwire.NewOrderSingle{ClOrdID: "1", Symbol: "BTCUSD", Parties: existing})
	nos := biz.(fixwire.NewOrderSingle)
	if len(nos.Parties) != 2 {
		t.Fatalf("expected the existing client-id party preserved plus one stamped party, got %+v", nos.Parties)
	}
	if nos.Parties[0].ID != "custom" {
		t.Errorf("expected the client-supplied party preserved first, got %+v", nos.Parties[0])
	}
}

func TestOnBusinessRejectsWhenNotReady(t *testing.T) {
	sh := newTestShared(t)
	dispatch := &recordingDispatcher{}
	s, _ := newTestSession(t, sh, dispatch)

	s.onBusiness(fixwire.MsgTypeNewOrderSingle, nil)

	if len(dispatch.routed) != 0 {
		t.Error("expected nothing routed while the session is not ready")
	}
	select {
	case raw := <-s.sendCh:
		header, _, derr := fixwire.Decode(raw)
		if derr != nil {
			t.Fatal(derr)
		}
		if header.MsgType != fixwire.MsgTypeReject {
			t.Errorf("expected a session-level Reject, got %q", header.MsgType)
		}
	default:
		t.Fatal("expected a Reject to be queued")
	}
}

func TestOnBusinessRoutesWhenReady(t *testing.T) {
	sh := newTestShared(t)
	dispatch := &recordingDispatcher{}
	s, _ := newTestSession(t, sh, dispatch)
	s.state = client.Ready
	s.username = "alice"
	s.strategy = 7

	_, body, err := fixwire.EncodeBusiness(fixwire.NewOrderSingle{ClOrdID: "1", Symbol: "BTCUSD"})
	if err != nil {
		t.Fatal(err)
	}
	s.onBusiness(fixwire.MsgTypeNewOrderSingle, body)

	if len(dispatch.routed) != 1 {
		t.Fatalf("expected exactly one routed message, got %d", len(dispatch.routed))
	}
}
