package fixwire

import (
	"fmt"
	"strconv"
)

// Business is the sum type over the FIX business messages the proxy
// understands (§4.2, §4.3). Per §9's "visitor-style dispatch" note, code
// that needs to act differently per variant type-switches on the
// concrete type rather than branching on a msg-type string.
type Business interface {
	business()
}

// --- Order management ---

type NewOrderSingle struct {
	ClOrdID  string
	Symbol   string
	Side     string
	OrderQty string
	OrdType  string
	Price    string
	Parties  []Party
}

func (NewOrderSingle) business() {}

type OrderCancelRequest struct {
	ClOrdID    string
	OrigClOrdID string
	Symbol     string
	Side       string
	Parties    []Party
}

func (OrderCancelRequest) business() {}

type OrderCancelReplaceRequest struct {
	ClOrdID     string
	OrigClOrdID string
	Symbol      string
	OrderQty    string
	Price       string
	Parties     []Party
}

func (OrderCancelReplaceRequest) business() {}

type OrderStatusRequest struct {
	ClOrdID string
	Symbol  string
	Parties []Party
}

func (OrderStatusRequest) business() {}

type OrderMassStatusRequest struct {
	MassStatusReqID string
	Parties         []Party
}

func (OrderMassStatusRequest) business() {}

type OrderMassCancelRequest struct {
	MassCancelReqID string
	Parties         []Party
}

func (OrderMassCancelRequest) business() {}

type OrderMassCancelReport struct {
	MassCancelReqID  string
	MassCancelRespID string
}

func (OrderMassCancelReport) business() {}

type ExecutionReport struct {
	OrderID  string
	ClOrdID  string
	ExecID   string
	OrdStatus string
	Symbol   string
	Side     string
	OrderQty string
	Parties  []Party
}

func (ExecutionReport) business() {}

type OrderCancelReject struct {
	OrderID     string
	ClOrdID     string
	OrigClOrdID string
	OrdStatus   string
	Text        string
}

func (OrderCancelReject) business() {}

type BusinessMessageReject struct {
	RefSeqNum  string
	RefMsgType string
	Reason     string
	Text       string
}

func (BusinessMessageReject) business() {}

// --- Market data ---

type MarketDataRequest struct {
	MDReqID             string
	SubscriptionReqType string
	MarketDepth         string
	Symbols             []string
}

func (MarketDataRequest) business() {}

type MarketDataSnapshotFullRefresh struct {
	MDReqID string
	Symbol  string
}

func (MarketDataSnapshotFullRefresh) business() {}

type MarketDataIncrementalRefresh struct {
	MDReqID string
}

func (MarketDataIncrementalRefresh) business() {}

type MarketDataRequestReject struct {
	MDReqID string
	Text    string
}

func (MarketDataRequestReject) business() {}

// --- Security reference data (§4.2 "Security download") ---

type SecurityListRequest struct {
	SecurityReqID string
}

func (SecurityListRequest) business() {}

// SecurityListEntry is one (exchange, symbol) record within a
// SecurityList chunk.
type SecurityListEntry struct {
	Exchange string
	Symbol   string
}

type SecurityList struct {
	SecurityRespID string
	Entries        []SecurityListEntry
}

func (SecurityList) business() {}

type SecurityDefinitionRequest struct {
	SecurityReqID string
	Symbol        string
	Exchange      string
}

func (SecurityDefinitionRequest) business() {}

type SecurityDefinition struct {
	Symbol   string
	Exchange string
}

func (SecurityDefinition) business() {}

// ParseBusiness decodes a message body into its semantic Business value
// based on msgType. Unsupported types return an error rather than a nil
// interface so callers can distinguish "not a business message we know"
// from "valid but empty".
func ParseBusiness(msgType string, body []Field) (Business, error) {
	m := &Msg{Body: body}
	switch msgType {
	case MsgTypeNewOrderSingle:
		clOrdID, _ := m.Get(TagClOrdID)
		symbol, _ := m.Get(TagSymbol)
		side, _ := m.Get(TagSide)
		qty, _ := m.Get(TagOrderQty)
		ordType, _ := m.Get(TagOrdType)
		price, _ := m.Get(TagPrice)
		return NewOrderSingle{ClOrdID: clOrdID, Symbol: symbol, Side: side, OrderQty: qty, OrdType: ordType, Price: price, Parties: Parties(body)}, nil
	case MsgTypeOrderCancelRequest:
		clOrdID, _ := m.Get(TagClOrdID)
		orig, _ := m.Get(TagOrigClOrdID)
		symbol, _ := m.Get(TagSymbol)
		side, _ := m.Get(TagSide)
		return OrderCancelRequest{ClOrdID: clOrdID, OrigClOrdID: orig, Symbol: symbol, Side: side, Parties: Parties(body)}, nil
	case MsgTypeOrderCancelReplaceRequest:
		clOrdID, _ := m.Get(TagClOrdID)
		orig, _ := m.Get(TagOrigClOrdID)
		symbol, _ := m.Get(TagSymbol)
		qty, _ := m.Get(TagOrderQty)
		price, _ := m.Get(TagPrice)
		return OrderCancelReplaceRequest{ClOrdID: clOrdID, OrigClOrdID: orig, Symbol: symbol, OrderQty: qty, Price: price, Parties: Parties(body)}, nil
	case MsgTypeOrderStatusRequest:
		clOrdID, _ := m.Get(TagClOrdID)
		symbol, _ := m.Get(TagSymbol)
		return OrderStatusRequest{ClOrdID: clOrdID, Symbol: symbol, Parties: Parties(body)}, nil
	case MsgTypeOrderMassStatusRequest:
		id, _ := m.Get(TagMassStatusReqID)
		return OrderMassStatusRequest{MassStatusReqID: id, Parties: Parties(body)}, nil
	case MsgTypeOrderMassCancelRequest:
		id, _ := m.Get(TagMassCancelReqID)
		return OrderMassCancelRequest{MassCancelReqID: id, Parties: Parties(body)}, nil
	case MsgTypeOrderMassCancelReport:
		req, _ := m.Get(TagMassCancelReqID)
		resp, _ := m.Get(TagMassCancelRespID)
		return OrderMassCancelReport{MassCancelReqID: req, MassCancelRespID: resp}, nil
	case MsgTypeExecutionReport:
		orderID, _ := m.Get(TagOrderID)
		clOrdID, _ := m.Get(TagClOrdID)
		execID, _ := m.Get(TagExecID)
		status, _ := m.Get(TagOrdStatus)
		symbol, _ := m.Get(TagSymbol)
		side, _ := m.Get(TagSide)
		qty, _ := m.Get(TagOrderQty)
		return ExecutionReport{OrderID: orderID, ClOrdID: clOrdID, ExecID: execID, OrdStatus: status, Symbol: symbol, Side: side, OrderQty: qty, Parties: Parties(body)}, nil
	case MsgTypeOrderCancelReject:
		orderID, _ := m.Get(TagOrderID)
		clOrdID, _ := m.Get(TagClOrdID)
		orig, _ := m.Get(TagOrigClOrdID)
		status, _ := m.Get(TagOrdStatus)
		text, _ := m.Get(TagText)
		return OrderCancelReject{OrderID: orderID, ClOrdID: clOrdID, OrigClOrdID: orig, OrdStatus: status, Text: text}, nil
	case MsgTypeBusinessMessageReject:
		refSeq, _ := m.Get(TagBusinessRejectRefID)
		refType, _ := m.Get(TagRefMsgType)
		reason, _ := m.Get(TagBusinessRejectReason)
		text, _ := m.Get(TagText)
		return BusinessMessageReject{RefSeqNum: refSeq, RefMsgType: refType, Reason: reason, Text: text}, nil
	case MsgTypeMarketDataRequest:
		id, _ := m.Get(TagMDReqID)
		subType, _ := m.Get(TagSubscriptionReqType)
		depth, _ := m.Get(TagMarketDepth)
		return MarketDataRequest{MDReqID: id, SubscriptionReqType: subType, MarketDepth: depth, Symbols: m.GetAll(TagSymbol)}, nil
	case MsgTypeMarketDataSnapshotFullRefresh:
		id, _ := m.Get(TagMDReqID)
		symbol, _ := m.Get(TagSymbol)
		return MarketDataSnapshotFullRefresh{MDReqID: id, Symbol: symbol}, nil
	case MsgTypeMarketDataIncrementalRefresh:
		id, _ := m.Get(TagMDReqID)
		return MarketDataIncrementalRefresh{MDReqID: id}, nil
	case MsgTypeMarketDataRequestReject:
		id, _ := m.Get(TagMDReqID)
		text, _ := m.Get(TagText)
		return MarketDataRequestReject{MDReqID: id, Text: text}, nil
	case MsgTypeSecurityListRequest:
		id, _ := m.Get(TagSecurityReqID)
		return SecurityListRequest{SecurityReqID: id}, nil
	case MsgTypeSecurityList:
		id, _ := m.Get(TagSecurityRespID)
		exchanges := m.GetAll(TagSecurityExchange)
		symbols := m.GetAll(TagSymbol)
		entries := make([]SecurityListEntry, 0, len(symbols))
		for i := range symbols {
			exch := ""
			if i < len(exchanges) {
				exch = exchanges[i]
			}
			entries = append(entries, SecurityListEntry{Exchange: exch, Symbol: symbols[i]})
		}
		return SecurityList{SecurityRespID: id, Entries: entries}, nil
	case MsgTypeSecurityDefinitionRequest:
		id, _ := m.Get(TagSecurityReqID)
		symbol, _ := m.Get(TagSymbol)
		exch, _ := m.Get(TagSecurityExchange)
		return SecurityDefinitionRequest{SecurityReqID: id, Symbol: symbol, Exchange: exch}, nil
	case MsgTypeSecurityDefinition:
		symbol, _ := m.Get(TagSymbol)
		exch, _ := m.Get(TagSecurityExchange)
		return SecurityDefinition{Symbol: symbol, Exchange: exch}, nil
	default:
		return nil, fmt.Errorf("fixwire: unsupported business msg type %q", msgType)
	}
}

// EncodeBusiness renders a Business value into its wire msg type and
// body fields, the inverse of ParseBusiness.
func EncodeBusiness(b Business) (msgType string, body []Field, err error) {
	switch v := b.(type) {
	case NewOrderSingle:
		body = []Field{{TagClOrdID, v.ClOrdID}, {TagSymbol, v.Symbol}, {TagSide, v.Side}, {TagOrderQty, v.OrderQty}, {TagOrdType, v.OrdType}}
		if v.Price != "" {
			body = append(body, Field{TagPrice, v.Price})
		}
		for _, p := range v.Parties {
			body = AppendParty(body, p)
		}
		return MsgTypeNewOrderSingle, body, nil
	case OrderCancelRequest:
		body = []Field{{TagClOrdID, v.ClOrdID}, {TagOrigClOrdID, v.OrigClOrdID}, {TagSymbol, v.Symbol}, {TagSide, v.Side}}
		for _, p := range v.Parties {
			body = AppendParty(body, p)
		}
		return MsgTypeOrderCancelRequest, body, nil
	case OrderCancelReplaceRequest:
		body = []Field{{TagClOrdID, v.ClOrdID}, {TagOrigClOrdID, v.OrigClOrdID}, {TagSymbol, v.Symbol}, {TagOrderQty, v.OrderQty}, {TagPrice, v.Price}}
		for _, p := range v.Parties {
			body = AppendParty(body, p)
		}
		return MsgTypeOrderCancelReplaceRequest, body, nil
	case OrderStatusRequest:
		body = []Field{{TagClOrdID, v.ClOrdID}, {TagSymbol, v.Symbol}}
		for _, p := range v.Parties {
			body = AppendParty(body, p)
		}
		return MsgTypeOrderStatusRequest, body, nil
	case OrderMassStatusRequest:
		body = []Field{{TagMassStatusReqID, v.MassStatusReqID}}
		for _, p := range v.Parties {
			body = AppendParty(body, p)
		}
		return MsgTypeOrderMassStatusRequest, body, nil
	case OrderMassCancelRequest:
		body = []Field{{TagMassCancelReqID, v.MassCancelReqID}}
		for _, p := range v.Parties {
			body = AppendParty(body, p)
		}
		return MsgTypeOrderMassCancelRequest, body, nil
	case OrderMassCancelReport:
		return MsgTypeOrderMassCancelReport, []Field{{TagMassCancelReqID, v.MassCancelReqID}, {TagMassCancelRespID, v.MassCancelRespID}}, nil
	case ExecutionReport:
		body = []Field{{TagOrderID, v.OrderID}, {TagClOrdID, v.ClOrdID}, {TagExecID, v.ExecID}, {TagOrdStatus, v.OrdStatus}, {TagSymbol, v.Symbol}, {TagSide, v.Side}, {TagOrderQty, v.OrderQty}}
		for _, p := range v.Parties {
			body = AppendParty(body, p)
		}
		return MsgTypeExecutionReport, body, nil
	case OrderCancelReject:
		return MsgTypeOrderCancelReject, []Field{{TagOrderID, v.OrderID}, {TagClOrdID, v.ClOrdID}, {TagOrigClOrdID, v.OrigClOrdID}, {TagOrdStatus, v.OrdStatus}, {TagText, v.Text}}, nil
	case BusinessMessageReject:
		return MsgTypeBusinessMessageReject, []Field{{TagBusinessRejectRefID, v.RefSeqNum}, {TagRefMsgType, v.RefMsgType}, {TagBusinessRejectReason, v.Reason}, {TagText, v.Text}}, nil
	case MarketDataRequest:
		body = []Field{{TagMDReqID, v.MDReqID}, {TagSubscriptionReqType, v.SubscriptionReqType}, {TagMarketDepth, v.MarketDepth}, {TagNoRelatedSym, strconv.Itoa(len(v.Symbols))}}
		for _, s := range v.Symbols {
			body = append(body, Field{TagSymbol, s})
		}
		return MsgTypeMarketDataRequest, body, nil
	case MarketDataSnapshotFullRefresh:
		return MsgTypeMarketDataSnapshotFullRefresh, []Field{{TagMDReqID, v.MDReqID}, {TagSymbol, v.Symbol}}, nil
	case MarketDataIncrementalRefresh:
		return MsgTypeMarketDataIncrementalRefresh, []Field{{TagMDReqID, v.MDReqID}}, nil
	case MarketDataRequestReject:
		return MsgTypeMarketDataRequestReject, []Field{{TagMDReqID, v.MDReqID}, {TagText, v.Text}}, nil
	case SecurityListRequest:
		return MsgTypeSecurityListRequest, []Field{{TagSecurityReqID, v.SecurityReqID}}, nil
	case SecurityList:
		for _, e := range v.Entries {
			body = append(body, Field{TagSecurityExchange, e.Exchange}, Field{TagSymbol, e.Symbol})
		}
		return MsgTypeSecurityList, append([]Field{{TagSecurityRespID, v.SecurityRespID}}, body...), nil
	case SecurityDefinitionRequest:
		return MsgTypeSecurityDefinitionRequest, []Field{{TagSecurityReqID, v.SecurityReqID}, {TagSymbol, v.Symbol}, {TagSecurityExchange, v.Exchange}}, nil
	case SecurityDefinition:
		return MsgTypeSecurityDefinition, []Field{{TagSymbol, v.Symbol}, {TagSecurityExchange, v.Exchange}}, nil
	default:
		return "", nil, fmt.Errorf("fixwire: unsupported business value %T", b)
	}
}
