// Package server implements the venue-facing FIX client-role session:
// dialling a venue, logging on,
// downloading the security list, and dispatching/receiving business
// traffic. The TCP dial-then-frame-then-dispatch shape is grounded on
// guacamole/session.go's SharedSession (which dials guacd, then runs a
// broadcastLoop reading ';'-delimited instructions off the TCP
// connection); here the connection has exactly one consumer (the venue
// session itself) rather than guacamole's fan-out to many WS clients,
// and the delimiter is FIX's length-prefixed SOH framing instead of a
// bare ';'.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/rjsadow/fixproxy/internal/config"
	"github.com/rjsadow/fixproxy/internal/fixwire"
	"github.com/rjsadow/fixproxy/internal/shared"
)

// Dispatcher is what a server session needs from the controller: deliver
// a decoded business message to the client bound to username, and
// broadcast a reference-data message (security_definition) to every
// client session.
type Dispatcher interface {
	RouteToClient(username string, msg fixwire.Business) error
	Broadcast(msg fixwire.Business)
}

// sendQueueCapacity bounds the number of not-yet-written outbound
// messages per session; exceeding it is treated as a fatal backpressure
// failure for the session.
const sendQueueCapacity = 256

// Session is one FIX client-role connection to a single upstream venue.
type Session struct {
	component string
	venue     config.Venue
	cfg       *config.Config
	shared    *shared.Shared
	dispatch  Dispatcher
	post      func(func())

	state State

	conn   net.Conn
	sendCh chan []byte
	done   chan struct{}

	outboundSeq uint64
	inboundSeq  uint64

	lastSendAt  time.Time
	pendingTestReqID string

	// exchange -> set of symbols confirmed via SecurityDefinition.
	symbolsByExchange map[string]map[string]struct{}
	securityReqID     string
}

// NewSession constructs a server session for one venue. It does not dial;
// call Run to connect and drive the session until it disconnects.
func NewSession(venue config.Venue, cfg *config.Config, sh *shared.Shared, dispatch Dispatcher, post func(func())) *Session {
	return &Session{
		component:         venue.Component,
		venue:             venue,
		cfg:               cfg,
		shared:            sh,
		dispatch:          dispatch,
		post:              post,
		state:             Disconnected,
		symbolsByExchange: make(map[string]map[string]struct{}),
	}
}

// Component returns the venue component name this session routes for.
func (s *Session) Component() string { return s.component }

// Ready reports whether the session can currently accept business
// traffic.
func (s *Session) Ready() bool { return s.state == Ready }

// Run dials the venue and services the connection until ctx is done or
// the connection drops, reconnecting with backoff on every disconnect
// and retrying indefinitely until connected or told to shut down.
func (s *Session) Run(ctx context.Context) {
	backoff := time.Second
	const maxBackoff = 30 * time.Second

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if err := s.connectAndServe(ctx); err != nil {
			slog.Warn("server session disconnected", "component", s.component, "error", err)
		}

		s.post(func() { s.transitionTo(Disconnected) })

		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}

func (s *Session) connectAndServe(ctx context.Context) error {
	dialer := net.Dialer{Timeout: s.cfg.ConnectionTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", s.venue.Address)
	if err != nil {
		return fmt.Errorf("dial %s: %w", s.venue.Address, err)
	}

	sendCh := make(chan []byte, sendQueueCapacity)
	done := make(chan struct{})

	go s.writeLoop(conn, sendCh, done)

	// s.conn/s.sendCh/s.done/the sequence counters are also read by the
	// event-loop goroutine (Tick, Send, handleFrame, Manager.Stop), so
	// they're assigned there too, via post, rather than written here on
	// the dial goroutine.
	ready := make(chan struct{})
	s.post(func() {
		s.conn = conn
		s.sendCh = sendCh
		s.done = done
		s.outboundSeq = 0
		s.inboundSeq = 0
		s.transitionTo(LogonSent)
		s.sendLogon()
		close(ready)
	})
	select {
	case <-ready:
	case <-ctx.Done():
		close(done)
		conn.Close()
		return ctx.Err()
	}

	return s.readLoop(conn, done)
}

func (s *Session) writeLoop(conn net.Conn, sendCh chan []byte, done chan struct{}) {
	for {
		select {
		case buf, ok := <-sendCh:
			if !ok {
				return
			}
			if _, err := conn.Write(buf); err != nil {
				slog.Warn("server session write failed", "component", s.component, "error", err)
				conn.Close()
				return
			}
		case <-done:
			return
		}
	}
}

func (s *Session) readLoop(conn net.Conn, done chan struct{}) error {
	defer func() {
		close(done)
		conn.Close()
	}()

	var scanner fixwire.Scanner
	buf := make([]byte, 4096)
	for {
		n, err := conn.Read(buf)
		if n > 0 {
			frames, ferr := scanner.Feed(buf[:n])
			for _, frame := range frames {
				frame := frame
				s.post(func() { s.handleFrame(frame) })
			}
			if ferr != nil {
				return ferr
			}
		}
		if err != nil {
			return err
		}
	}
}

// send enqueues a fully-encoded wire message; a full queue is a fatal
// backpressure condition and tears the connection down.
func (s *Session) send(raw []byte) {
	select {
	case s.sendCh <- raw:
	default:
		slog.Error("server session send queue full, dropping connection", "component", s.component)
		if s.conn != nil {
			s.conn.Close()
		}
	}
}

func (s *Session) nextOutboundHeader(msgType string) fixwire.Header {
	s.outboundSeq++
	s.lastSendAt = time.Now()
	return fixwire.Header{
		MsgType:      msgType,
		SenderCompID: s.venue.SenderCompID,
		TargetCompID: s.venue.TargetCompID,
		MsgSeqNum:    s.outboundSeq,
		SendingTime:  time.Now(),
	}
}

func (s *Session) encodeAndSend(msgType string, body []fixwire.Field) {
	raw, err := fixwire.Encode(s.nextOutboundHeader(msgType), body)
	if err != nil {
		slog.Error("server session encode failed", "component", s.component, "error", err)
		return
	}
	s.send(raw)
}

func (s *Session) sendLogon() {
	body := fixwire.EncodeLogon(int(s.cfg.PingFreq.Seconds()), s.venue.Username, s.venue.Password, "")
	s.encodeAndSend(fixwire.MsgTypeLogon, body)
}

func (s *Session) transitionTo(to State) {
	if !CanTransition(s.state, to) {
		slog.Error("server session invalid transition", "component", s.component, "from", s.state, "to", to)
		return
	}
	s.state = to
}

// Tick runs the per-second heartbeat bookkeeping. It is called directly
// by the controller's own loop (not via Post — the controller already
// *is* the event-loop goroutine).
func (s *Session) Tick() {
	if s.state == Disconnected || s.conn == nil {
		return
	}
	if time.Since(s.lastSendAt) >= s.cfg.PingFreq && s.pendingTestReqID == "" {
		s.pendingTestReqID = fmt.Sprintf("%d", s.outboundSeq+1)
		s.encodeAndSend(fixwire.MsgTypeTestRequest, fixwire.EncodeTestRequest(s.pendingTestReqID))
	}
}

// handleFrame decodes and processes one raw FIX message; it always runs
// inside the controller's event-loop goroutine.
func (s *Session) handleFrame(raw []byte) {
	header, body, err := fixwire.Decode(raw)
	if err != nil {
		slog.Warn("server session decode error, dropping connection", "component", s.component, "error", err)
		if s.conn != nil {
			s.conn.Close()
		}
		return
	}

	if s.inboundSeq != 0 && header.MsgSeqNum != s.inboundSeq+1 {
		s.encodeAndSend(fixwire.MsgTypeLogout, fixwire.EncodeLogout("msg_seq_num mismatch"))
		if s.conn != nil {
			s.conn.Close()
		}
		return
	}
	s.inboundSeq = header.MsgSeqNum

	switch header.MsgType {
	case fixwire.MsgTypeLogon:
		s.onLogonResponse()
	case fixwire.MsgTypeLogout:
		if s.conn != nil {
			s.conn.Close()
		}
	case fixwire.MsgTypeHeartbeat:
		if id := fixwire.ParseHeartbeat(body); id != "" && id == s.pendingTestReqID {
			s.pendingTestReqID = ""
		}
	case fixwire.MsgTypeTestRequest:
		s.encodeAndSend(fixwire.MsgTypeHeartbeat, fixwire.EncodeHeartbeat(fixwire.ParseTestRequest(body)))
	case fixwire.MsgTypeSecurityList:
		s.onSecurityList(body)
	default:
		s.onBusiness(header.MsgType, body)
	}
}

func (s *Session) onLogonResponse() {
	switch s.state {
	case LogonSent:
		s.transitionTo(GetSecurityList)
		s.securityReqID = s.shared.CreateRequestID()
		s.encodeAndSend(fixwire.MsgTypeSecurityListRequest, []fixwire.Field{{Tag: fixwire.TagSecurityReqID, Value: s.securityReqID}})
	default:
		slog.Warn("server session unexpected logon response", "component", s.component, "state", s.state)
	}
}

func (s *Session) onSecurityList(body []fixwire.Field) {
	if s.state != GetSecurityList {
		return
	}
	biz, err := fixwire.ParseBusiness(fixwire.MsgTypeSecurityList, body)
	if err != nil {
		slog.Warn("server session bad security list", "component", s.component, "error", err)
		return
	}
	list := biz.(fixwire.SecurityList)
	for _, entry := range list.Entries {
		if !s.shared.Include(entry.Symbol) {
			continue
		}
		set, ok := s.symbolsByExchange[entry.Exchange]
		if !ok {
			set = make(map[string]struct{})
			s.symbolsByExchange[entry.Exchange] = set
		}
		set[entry.Symbol] = struct{}{}

		reqID := s.shared.CreateRequestID()
		s.encodeAndSend(fixwire.MsgTypeSecurityDefinitionRequest, []fixwire.Field{
			{Tag: fixwire.TagSecurityReqID, Value: reqID},
			{Tag: fixwire.TagSymbol, Value: entry.Symbol},
			{Tag: fixwire.TagSecurityExchange, Value: entry.Exchange},
		})
	}
	s.transitionTo(Ready)
}

func (s *Session) onBusiness(msgType string, body []fixwire.Field) {
	biz, err := fixwire.ParseBusiness(msgType, body)
	if err != nil {
		slog.Warn("server session unhandled msg type", "component", s.component, "msg_type", msgType)
		return
	}

	switch biz.(type) {
	case fixwire.SecurityDefinition:
		s.dispatch.Broadcast(biz)
		return
	}

	if err := s.dispatch.RouteToClient(s.venue.Username, biz); err != nil {
		slog.Debug("server session: no client to route to", "component", s.component, "error", err)
	}
}

// Send forwards a client-originated business request to the venue:
// allocate seq, stamp header, encode, hand to the connection.
func (s *Session) Send(biz fixwire.Business) error {
	if s.state != Ready {
		return shared.ErrNotReady
	}
	msgType, body, err := fixwire.EncodeBusiness(biz)
	if err != nil {
		return err
	}
	s.encodeAndSend(msgType, body)
	return nil
}
