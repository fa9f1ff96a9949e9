package jsonrpc

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"
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

// newConnPair spins up a one-shot WebSocket server and dials it, handing
// back both ends so tests can drive a Session's conn field with a real
// *websocket.Conn without going through Listener.
func newConnPair(t *testing.T) (server, clientSide *websocket.Conn) {
	t.Helper()
	var upgrader = websocket.Upgrader{}
	serverCh := make(chan *websocket.Conn, 1)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Error(err)
			return
		}
		serverCh <- c
	}))
	t.Cleanup(srv.Close)

	wsURL := "ws" + srv.URL[len("http"):]
	clientConn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { clientConn.Close() })

	select {
	case sc := <-serverCh:
		t.Cleanup(func() { sc.Close() })
		return sc, clientConn
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for server-side websocket conn")
		return nil, nil
	}
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

func newTestSession(t *testing.T, sh *shared.Shared, dispatch client.Dispatcher) *Session {
	t.Helper()
	conn, _ := newConnPair(t)
	return &Session{
		cfg:           config.Default(),
		shared:        sh,
		dispatch:      dispatch,
		post:          func(fn func()) { fn() },
		state:         client.WaitingLogon,
		conn:          conn,
		sendCh:        make(chan Envelope, 16),
		done:          make(chan struct{}),
		logonDeadline: time.Now().Add(time.Minute),
	}
}

func logonParamsRaw(t *testing.T, username, password, rawData string) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(logonParams{Username: username, Password: password, RawData: rawData})
	if err != nil {
		t.Fatal(err)
	}
	return raw
}

func TestOnLogonSuccessTransitionsReady(t *testing.T) {
	sh := newTestShared(t)
	s := newTestSession(t, sh, &recordingDispatcher{})

	s.onLogon(Envelope{ID: float64(1), Params: logonParamsRaw(t, "alice", "secret", "")})

	if s.state != client.Ready {
		t.Fatalf("expected state Ready, got %v", s.state)
	}
	select {
	case env := <-s.sendCh:
		if env.Error != nil {
			t.Fatalf("unexpected error envelope: %+v", env.Error)
		}
		if env.Result != "OK" {
			t.Errorf("expected result OK, got %v", env.Result)
		}
	default:
		t.Fatal("expected a result envelope to be queued")
	}
}

func TestOnLogonFailureSendsErrorEnvelope(t *testing.T) {
	sh := newTestShared(t)
	s := newTestSession(t, sh, &recordingDispatcher{})

	s.onLogon(Envelope{ID: float64(1), Params: logonParamsRaw(t, "alice", "wrong", "")})

	if s.state == client.Ready {
		t.Fatal("expected logon failure to not reach Ready")
	}
	select {
	case env := <-s.sendCh:
		if env.Error == nil {
			t.Fatal("expected an error envelope")
		}
	default:
		t.Fatal("expected an error envelope to be queued")
	}
}

func TestOnBusinessRejectsWhenNotReady(t *testing.T) {
	sh := newTestShared(t)
	dispatch := &recordingDispatcher{}
	s := newTestSession(t, sh, dispatch)

	s.onBusiness(Envelope{Method: "new_order_single", ID: float64(1), Params: json.RawMessage(`{}`)})

	if len(dispatch.routed) != 0 {
		t.Error("expected nothing routed while the session is not ready")
	}
	select {
	case env := <-s.sendCh:
		if env.Error == nil {
			t.Fatal("expected an error envelope")
		}
	default:
		t.Fatal("expected an error envelope to be queued")
	}
}

func TestOnBusinessRoutesWhenReady(t *testing.T) {
	sh := newTestShared(t)
	dispatch := &recordingDispatcher{}
	s := newTestSession(t, sh, dispatch)
	s.state = client.Ready
	s.username = "alice"
	s.strategy = 7

	params, err := json.Marshal(newOrderSingleParams{ClOrdID: "1", Symbol: "BTCUSD"})
	if err != nil {
		t.Fatal(err)
	}
	s.onBusiness(Envelope{Method: "new_order_single", ID: float64(1), Params: params})

	if len(dispatch.routed) != 1 {
		t.Fatalf("expected exactly one routed message, got %d", len(dispatch.routed))
	}
	nos, ok := dispatch.routed[0].(fixwire.NewOrderSingle)
	if !ok {
		t.Fatalf("expected a NewOrderSingle, got %T", dispatch.routed[0])
	}
	if !fixwire.HasParty(nos.Parties, fixwire.PartyRoleClientID) {
		t.Error("expected the routed order to carry a stamped client-id party")
	}
}

func TestOnBusinessRejectsUnknownSymbol(t *testing.T) {
	sh := newTestShared(t)
	dispatch := &recordingDispatcher{}
	s := newTestSession(t, sh, dispatch)
	s.state = client.Ready
	s.username = "alice"
	s.strategy = 7

	params, err := json.Marshal(newOrderSingleParams{ClOrdID: "1", Symbol: "ETHUSD"})
	if err != nil {
		t.Fatal(err)
	}
	s.onBusiness(Envelope{Method: "new_order_single", ID: float64(1), Params: params})

	if len(dispatch.routed) != 0 {
		t.Error("expected the unknown symbol to be rejected before routing")
	}
}

func TestDeliverSendsNotificationWithoutID(t *testing.T) {
	sh := newTestShared(t)
	s := newTestSession(t, sh, &recordingDispatcher{})
	s.state = client.Ready

	if err := s.Deliver(fixwire.ExecutionReport{ClOrdID: "1", OrderID: "o1"}); err != nil {
		t.Fatal(err)
	}

	select {
	case env := <-s.sendCh:
		if env.Method != "execution_report" {
			t.Errorf("expected method execution_report, got %q", env.Method)
		}
		if env.ID != nil {
			t.Errorf("expected no id on a notification, got %v", env.ID)
		}
	default:
		t.Fatal("expected a notification to be queued")
	}
}
