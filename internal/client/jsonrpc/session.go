package jsonrpc

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rjsadow/fixproxy/internal/audit"
	"github.com/rjsadow/fixproxy/internal/client"
	"github.com/rjsadow/fixproxy/internal/config"
	"github.com/rjsadow/fixproxy/internal/fixwire"
	"github.com/rjsadow/fixproxy/internal/shared"
)

// sendQueueCapacity mirrors fixsession.sendQueueCapacity: a slow
// JSON-RPC client gets disconnected rather than stalling the event loop.
const sendQueueCapacity = 256

// Session is one accepted WebSocket connection speaking JSON-RPC 2.0.
// It implements the same client.Session contract as fixsession.Session
// so client.Manager/the controller can treat both dialects uniformly;
// only the wire representation differs.
type Session struct {
	id       uint64
	cfg      *config.Config
	shared   *shared.Shared
	dispatch client.Dispatcher
	rec      audit.Recorder
	post     func(func())

	state    client.State
	username string
	strategy uint32

	conn   *websocket.Conn
	sendCh chan Envelope
	done   chan struct{}

	lastRecvAt    time.Time
	logonDeadline time.Time
}

// New constructs a jsonrpc.Session for an already-upgraded WebSocket
// connection and starts its write pump.
func New(id uint64, conn *websocket.Conn, cfg *config.Config, sh *shared.Shared, dispatch client.Dispatcher, rec audit.Recorder, post func(func())) *Session {
	now := time.Now()
	s := &Session{
		id:            id,
		cfg:           cfg,
		shared:        sh,
		dispatch:      dispatch,
		rec:           rec,
		post:          post,
		state:         client.WaitingLogon,
		conn:          conn,
		sendCh:        make(chan Envelope, sendQueueCapacity),
		done:          make(chan struct{}),
		lastRecvAt:    now,
		logonDeadline: now.Add(cfg.LogonTimeout),
	}
	go s.writePump()
	return s
}

func (s *Session) SessionID() uint64 { return s.id }

func (s *Session) Username() (string, bool) {
	return s.username, s.state == client.Ready
}

func (s *Session) Ready() bool { return s.state == client.Ready }

func (s *Session) Close() {
	if s.conn != nil {
		s.conn.Close()
	}
}

func (s *Session) writePump() {
	for {
		select {
		case env, ok := <-s.sendCh:
			if !ok {
				return
			}
			if err := s.conn.WriteJSON(env); err != nil {
				slog.Warn("jsonrpc write failed", "session_id", s.id, "error", err)
				s.conn.Close()
				return
			}
		case <-s.done:
			return
		}
	}
}

// Serve reads JSON-RPC envelopes off the WebSocket until it closes,
// posting each decoded envelope (and the eventual disconnect) onto the
// controller's event loop, mirroring fixsession.Session.Serve.
func (s *Session) Serve() {
	defer close(s.done)
	defer s.conn.Close()

	for {
		var env Envelope
		if err := s.conn.ReadJSON(&env); err != nil {
			break
		}
		env := env
		s.post(func() { s.handleEnvelope(env) })
	}
	s.post(func() { s.onDisconnect() })
}

func (s *Session) onDisconnect() {
	if s.state == client.Zombie {
		return
	}
	s.state = client.Zombie
	s.shared.SessionRemove(s.id)
}

func (s *Session) send(env Envelope) {
	select {
	case s.sendCh <- env:
	default:
		slog.Error("jsonrpc send queue full, dropping connection", "session_id", s.id)
		s.conn.Close()
	}
}

// Tick mirrors fixsession.Session.Tick: logon-timeout enforcement while
// waiting, and idle-disconnect detection once ready. JSON-RPC has no
// FIX-style heartbeat/TestRequest exchange of its own, so liveness is
// judged purely from the last inbound message.
func (s *Session) Tick() {
	now := time.Now()
	switch s.state {
	case client.WaitingLogon:
		if now.After(s.logonDeadline) {
			s.state = client.Zombie
			s.conn.Close()
			s.shared.SessionRemove(s.id)
		}
	case client.Ready:
		if now.Sub(s.lastRecvAt) > 2*s.cfg.PingFreq {
			s.logoutAndReap("heartbeat timeout")
		}
	}
}

func (s *Session) logoutAndReap(reason string) {
	if s.username != "" {
		s.shared.SessionLogout(s.id)
	}
	s.send(notification("logout", map[string]string{"text": reason}))
	s.state = client.Zombie
	s.conn.Close()
	s.shared.SessionRemove(s.id)
}

func (s *Session) handleEnvelope(env Envelope) {
	s.lastRecvAt = time.Now()

	if s.state == client.WaitingLogon && env.Method != "logon" {
		s.send(errorEnvelope(env.ID, errCodeInvalidRequest, "expected logon"))
		s.conn.Close()
		return
	}

	switch env.Method {
	case "logon":
		s.onLogon(env)
	case "logout":
		s.onLogout(env)
	default:
		s.onBusiness(env)
	}
}

func (s *Session) onLogon(env Envelope) {
	var p logonParams
	if err := json.Unmarshal(env.Params, &p); err != nil {
		s.send(errorEnvelope(env.ID, errCodeInvalidParams, "malformed logon params"))
		s.conn.Close()
		return
	}

	strategy, err := s.shared.SessionLogon(s.id, p.Username, p.Password, p.RawData)
	if err != nil {
		s.send(errorEnvelope(env.ID, errCodeBusiness, shared.CatalogText(err)))
		s.auditEvent(audit.EventLogonFailed, shared.CatalogText(err))
		s.conn.Close()
		return
	}

	s.username = p.Username
	s.strategy = strategy
	s.state = client.Ready
	s.send(resultOK(env.ID))
	s.auditEvent(audit.EventLogon, "")
}

func (s *Session) onLogout(env Envelope) {
	if s.state != client.Ready {
		s.conn.Close()
		return
	}
	s.shared.SessionLogout(s.id)
	s.send(resultOK(env.ID))
	s.state = client.Zombie
	s.auditEvent(audit.EventLogout, "")
	s.conn.Close()
	s.shared.SessionRemove(s.id)
}

func (s *Session) stampedParties(existing []fixwire.Party) []fixwire.Party {
	out := existing
	if !fixwire.HasParty(existing, fixwire.PartyRoleClientID) {
		out = append(out, fixwire.Party{ID: s.username, Source: fixwire.PartyIDSourceProprietary, Role: fixwire.PartyRoleClientID})
	}
	if !fixwire.HasParty(existing, fixwire.PartyRoleOrderOriginationTrader) {
		out = append(out, fixwire.Party{ID: fmt.Sprintf("%d", s.strategy), Source: fixwire.PartyIDSourceProprietary, Role: fixwire.PartyRoleOrderOriginationTrader})
	}
	return out
}

func (s *Session) onBusiness(env Envelope) {
	if s.state != client.Ready {
		s.send(errorEnvelope(env.ID, errCodeInvalidRequest, "session not ready"))
		return
	}

	biz, err := parseBusinessParams(env.Method, env.Params)
	if err != nil {
		s.send(errorEnvelope(env.ID, errCodeMethodNotFound, err.Error()))
		return
	}

	biz, rejectReason := s.filterAndStamp(biz)
	if rejectReason != "" {
		s.send(errorEnvelope(env.ID, errCodeBusiness, rejectReason))
		s.auditEvent(audit.EventBusinessReject, rejectReason)
		return
	}

	if err := s.dispatch.RouteToServer(s.username, biz); err != nil {
		s.send(errorEnvelope(env.ID, errCodeBusiness, shared.CatalogText(err)))
		return
	}
	s.send(resultOK(env.ID))
	s.auditBusiness(biz)
}

// filterAndStamp mirrors fixsession.Session.filterAndStamp for the
// order-management requests, since the two wire variants are
// functionally equivalent. It has no MarketDataRequest case, because
// parseBusinessParams never produces one.
func (s *Session) filterAndStamp(biz fixwire.Business) (fixwire.Business, string) {
	switch v := biz.(type) {
	case fixwire.NewOrderSingle:
		if !s.shared.Include(v.Symbol) {
			return biz, "unknown symbol"
		}
		v.Parties = s.stampedParties(v.Parties)
		return v, ""
	case fixwire.OrderCancelRequest:
		if !s.shared.Include(v.Symbol) {
			return biz, "unknown symbol"
		}
		v.Parties = s.stampedParties(v.Parties)
		return v, ""
	case fixwire.OrderCancelReplaceRequest:
		if !s.shared.Include(v.Symbol) {
			return biz, "unknown symbol"
		}
		v.Parties = s.stampedParties(v.Parties)
		return v, ""
	case fixwire.OrderStatusRequest:
		if v.Symbol != "" && !s.shared.Include(v.Symbol) {
			return biz, "unknown symbol"
		}
		v.Parties = s.stampedParties(v.Parties)
		return v, ""
	case fixwire.OrderMassStatusRequest:
		v.Parties = s.stampedParties(v.Parties)
		return v, ""
	case fixwire.OrderMassCancelRequest:
		v.Parties = s.stampedParties(v.Parties)
		return v, ""
	default:
		return biz, ""
	}
}

// Deliver implements client.Session: push a routed response or broadcast
// down to this client as a JSON-RPC notification,
// {method: "<event_type>", params: <payload>}, with no id.
func (s *Session) Deliver(biz fixwire.Business) error {
	if s.state != client.Ready {
		return fmt.Errorf("jsonrpc: session %d not ready", s.id)
	}
	s.send(notification(businessEventName(biz), biz))
	if _, ok := biz.(fixwire.ExecutionReport); ok {
		s.auditEvent(audit.EventExecutionReport, "")
	}
	return nil
}

func (s *Session) auditEvent(ev audit.Event, detail string) {
	if s.rec == nil {
		return
	}
	s.rec.OnEvent(context.Background(), audit.Record{SessionID: s.id, Username: s.username, Event: ev, Timestamp: time.Now(), Detail: detail})
}

func (s *Session) auditBusiness(biz fixwire.Business) {
	switch v := biz.(type) {
	case fixwire.NewOrderSingle:
		s.auditEvent(audit.EventNewOrderSingle, v.ClOrdID)
	case fixwire.OrderCancelRequest:
		s.auditEvent(audit.EventOrderCancel, v.ClOrdID)
	}
}
