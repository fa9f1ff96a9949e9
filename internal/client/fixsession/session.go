// Package fixsession implements the FIX-variant downstream client
// session: a FIX acceptor role, the mirror image of
// server.Session's initiator role. It reuses the same header/sequence/
// heartbeat discipline but adds the pieces only the downstream side
// needs — logon-timeout enforcement, symbol filtering, and party-id
// stamping — grounded on server/session.go's connect-then-frame-then-
// dispatch shape and on guacamole/session.go's per-connection accept
// loop for the listener half (listener.go).
package fixsession

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/rjsadow/fixproxy/internal/audit"
	"github.com/rjsadow/fixproxy/internal/client"
	"github.com/rjsadow/fixproxy/internal/config"
	"github.com/rjsadow/fixproxy/internal/fixwire"
	"github.com/rjsadow/fixproxy/internal/shared"
)

// sendQueueCapacity bounds pending outbound frames per session, mirroring
// server.Session's backpressure treatment.
const sendQueueCapacity = 256

// Session is one accepted FIX connection from a downstream client.
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

	conn   net.Conn
	sendCh chan []byte
	done   chan struct{}

	outboundSeq uint64
	inboundSeq  uint64

	connectedAt      time.Time
	lastSendAt       time.Time
	lastRecvAt       time.Time
	logonDeadline    time.Time
	pendingTestReqID string
}

// New constructs a fixsession.Session for an already-accepted net.Conn
// and starts its write loop; the read loop is Serve, which the caller
// starts. Registration with the manager happens via post, exactly as
// server.Session hands frames back to the event loop.
func New(id uint64, conn net.Conn, cfg *config.Config, sh *shared.Shared, dispatch client.Dispatcher, rec audit.Recorder, post func(func())) *Session {
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
		sendCh:        make(chan []byte, sendQueueCapacity),
		done:          make(chan struct{}),
		connectedAt:   now,
		lastSendAt:    now,
		lastRecvAt:    now,
		logonDeadline: now.Add(cfg.LogonTimeout),
	}
	go s.writeLoop()
	return s
}

// SessionID implements client.Session.
func (s *Session) SessionID() uint64 { return s.id }

// Username implements client.Session.
func (s *Session) Username() (string, bool) {
	return s.username, s.state == client.Ready
}

// Ready implements client.Session.
func (s *Session) Ready() bool { return s.state == client.Ready }

// Close implements client.Session.
func (s *Session) Close() {
	if s.conn != nil {
		s.conn.Close()
	}
}

func (s *Session) writeLoop() {
	for {
		select {
		case buf, ok := <-s.sendCh:
			if !ok {
				return
			}
			if _, err := s.conn.Write(buf); err != nil {
				slog.Warn("fixsession write failed", "session_id", s.id, "error", err)
				s.conn.Close()
				return
			}
		case <-s.done:
			return
		}
	}
}

// Serve reads frames off the connection until it closes, posting each
// decoded frame (and the final disconnect) onto the controller's event
// loop. Run this in its own goroutine, one per accepted connection.
func (s *Session) Serve() {
	defer close(s.done)
	defer s.conn.Close()

	var scanner fixwire.Scanner
	buf := make([]byte, 4096)
	for {
		n, err := s.conn.Read(buf)
		if n > 0 {
			frames, ferr := scanner.Feed(buf[:n])
			for _, frame := range frames {
				frame := frame
				s.post(func() { s.handleFrame(frame) })
			}
			if ferr != nil {
				break
			}
		}
		if err != nil {
			break
		}
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

func (s *Session) send(raw []byte) {
	select {
	case s.sendCh <- raw:
	default:
		slog.Error("fixsession send queue full, dropping connection", "session_id", s.id)
		s.conn.Close()
	}
}

func (s *Session) nextOutboundHeader(msgType string) fixwire.Header {
	s.outboundSeq++
	s.lastSendAt = time.Now()
	return fixwire.Header{
		MsgType:      msgType,
		SenderCompID: s.cfg.ClientCompID,
		TargetCompID: s.username,
		MsgSeqNum:    s.outboundSeq,
		SendingTime:  time.Now(),
	}
}

func (s *Session) encodeAndSend(msgType string, body []fixwire.Field) {
	raw, err := fixwire.Encode(s.nextOutboundHeader(msgType), body)
	if err != nil {
		slog.Error("fixsession encode failed", "session_id", s.id, "error", err)
		return
	}
	s.send(raw)
}

// Tick runs the per-second bookkeeping: enforce the logon timeout
// while WAITING_LOGON, and reap a client that hasn't sent a heartbeat
// within ping_freq*2.
func (s *Session) Tick() {
	switch s.state {
	case client.Zombie:
		return
	case client.WaitingLogon:
		if time.Now().After(s.logonDeadline) {
			slog.Info("fixsession logon timeout", "session_id", s.id)
			s.state = client.Zombie
			s.conn.Close()
			s.shared.SessionRemove(s.id)
		}
		return
	}

	if time.Since(s.lastSendAt) >= s.cfg.PingFreq && s.pendingTestReqID == "" {
		s.pendingTestReqID = fmt.Sprintf("%d", s.outboundSeq+1)
		s.encodeAndSend(fixwire.MsgTypeTestRequest, fixwire.EncodeTestRequest(s.pendingTestReqID))
	}

	if time.Since(s.lastRecvAt) >= 2*s.cfg.PingFreq {
		slog.Info("fixsession heartbeat timeout, logging out", "session_id", s.id, "username", s.username)
		s.logoutAndReap("heartbeat timeout")
	}
}

func (s *Session) logoutAndReap(text string) {
	s.encodeAndSend(fixwire.MsgTypeLogout, fixwire.EncodeLogout(text))
	s.shared.SessionLogout(s.id)
	s.state = client.Zombie
	s.conn.Close()
	s.shared.SessionRemove(s.id)
}

func (s *Session) handleFrame(raw []byte) {
	s.lastRecvAt = time.Now()

	header, body, err := fixwire.Decode(raw)
	if err != nil {
		slog.Warn("fixsession decode error, dropping connection", "session_id", s.id, "error", err)
		s.conn.Close()
		return
	}

	if s.state != client.WaitingLogon {
		if s.inboundSeq != 0 && header.MsgSeqNum != s.inboundSeq+1 {
			s.logoutAndReap("msg_seq_num mismatch")
			return
		}
	}
	s.inboundSeq = header.MsgSeqNum

	if s.state == client.WaitingLogon && header.MsgType != fixwire.MsgTypeLogon {
		s.encodeAndSend(fixwire.MsgTypeReject, fixwire.EncodeReject(header.MsgSeqNum, 0, header.MsgType, "", "expected Logon"))
		s.conn.Close()
		return
	}

	switch header.MsgType {
	case fixwire.MsgTypeLogon:
		s.onLogon(body)
	case fixwire.MsgTypeLogout:
		s.onLogout()
	case fixwire.MsgTypeHeartbeat:
		if id := fixwire.ParseHeartbeat(body); id != "" && id == s.pendingTestReqID {
			s.pendingTestReqID = ""
		}
	case fixwire.MsgTypeTestRequest:
		s.encodeAndSend(fixwire.MsgTypeHeartbeat, fixwire.EncodeHeartbeat(fixwire.ParseTestRequest(body)))
	default:
		s.onBusiness(header.MsgType, body)
	}
}

func (s *Session) onLogon(body []fixwire.Field) {
	if s.state != client.WaitingLogon {
		slog.Warn("fixsession unexpected logon", "session_id", s.id, "state", s.state)
		return
	}

	logon := fixwire.ParseLogon(body)
	strategyID, err := s.shared.SessionLogon(s.id, logon.Username, logon.Password, logon.RawData)
	if err != nil {
		reason := shared.CatalogText(err)
		s.encodeAndSend(fixwire.MsgTypeLogout, fixwire.EncodeLogout(reason))
		s.auditEvent(audit.EventLogonFailed, reason)
		s.conn.Close()
		return
	}

	s.username = logon.Username
	s.strategy = strategyID
	s.state = client.Ready
	s.encodeAndSend(fixwire.MsgTypeLogon, fixwire.EncodeLogon(int(s.cfg.PingFreq.Seconds()), "", "", ""))
	s.auditEvent(audit.EventLogon, "")
}

func (s *Session) onLogout() {
	if s.state != client.Ready {
		s.conn.Close()
		return
	}
	s.shared.SessionLogout(s.id)
	s.encodeAndSend(fixwire.MsgTypeLogout, nil)
	s.state = client.WaitingRemoveRoute
	s.auditEvent(audit.EventLogout, "")
	s.state = client.Zombie
	s.conn.Close()
	s.shared.SessionRemove(s.id)
}

// stampedParties builds the client-id and trader-id Party blocks,
// appended after (not replacing) whatever the client already sent.
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

func (s *Session) onBusiness(msgType string, body []fixwire.Field) {
	if s.state != client.Ready {
		s.encodeAndSend(fixwire.MsgTypeReject, fixwire.EncodeReject(0, 0, msgType, "", "session not ready"))
		return
	}

	biz, err := fixwire.ParseBusiness(msgType, body)
	if err != nil {
		slog.Warn("fixsession unhandled msg type", "session_id", s.id, "msg_type", msgType)
		return
	}

	biz, rejectReason := s.filterAndStamp(biz)
	if rejectReason != "" {
		s.reject(msgType, shared.ErrorNotReady, rejectReason)
		return
	}

	if err := s.dispatch.RouteToServer(s.username, biz); err != nil {
		s.reject(msgType, shared.ErrorNotReady, shared.CatalogText(err))
		return
	}
	s.auditBusiness(biz)
}

// filterAndStamp validates a request's symbol(s) against the shared
// allow-list and, for order-management requests, stamps the client's
// party identification. It returns the (possibly updated) Business
// value and a non-empty rejectReason if the symbol check failed.
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
	case fixwire.MarketDataRequest:
		for _, sym := range v.Symbols {
			if !s.shared.Include(sym) {
				return biz, "unknown symbol"
			}
		}
		return v, ""
	default:
		return biz, ""
	}
}

func (s *Session) reject(refMsgType, reason, text string) {
	s.encodeAndSend(fixwire.MsgTypeBusinessMessageReject, []fixwire.Field{
		{Tag: fixwire.TagRefMsgType, Value: refMsgType},
		{Tag: fixwire.TagBusinessRejectReason, Value: reason},
		{Tag: fixwire.TagText, Value: text},
	})
	s.auditEvent(audit.EventBusinessReject, text)
}

// Deliver implements client.Session: encode and send a routed response
// or broadcast back down to this client.
func (s *Session) Deliver(biz fixwire.Business) error {
	if s.state != client.Ready {
		return fmt.Errorf("fixsession: session %d not ready", s.id)
	}
	msgType, body, err := fixwire.EncodeBusiness(biz)
	if err != nil {
		return err
	}
	s.encodeAndSend(msgType, body)
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
