package jsonrpc

import (
	"encoding/json"
	"fmt"

	"github.com/rjsadow/fixproxy/internal/fixwire"
)

// logonParams is the params object of a "logon" request.
type logonParams struct {
	Username string `json:"username"`
	Password string `json:"password"`
	RawData  string `json:"raw_data"`
}

type orderStatusRequestParams struct {
	ClOrdID string `json:"cl_ord_id"`
	Symbol  string `json:"symbol"`
}

func (p orderStatusRequestParams) toBusiness() fixwire.Business {
	return fixwire.OrderStatusRequest{ClOrdID: p.ClOrdID, Symbol: p.Symbol}
}

type newOrderSingleParams struct {
	ClOrdID  string `json:"cl_ord_id"`
	Symbol   string `json:"symbol"`
	Side     string `json:"side"`
	OrderQty string `json:"order_qty"`
	OrdType  string `json:"ord_type"`
	Price    string `json:"price"`
}

func (p newOrderSingleParams) toBusiness() fixwire.Business {
	return fixwire.NewOrderSingle{
		ClOrdID:  p.ClOrdID,
		Symbol:   p.Symbol,
		Side:     p.Side,
		OrderQty: p.OrderQty,
		OrdType:  p.OrdType,
		Price:    p.Price,
	}
}

type orderCancelRequestParams struct {
	ClOrdID     string `json:"cl_ord_id"`
	OrigClOrdID string `json:"orig_cl_ord_id"`
	Symbol      string `json:"symbol"`
	Side        string `json:"side"`
}

func (p orderCancelRequestParams) toBusiness() fixwire.Business {
	return fixwire.OrderCancelRequest{
		ClOrdID:     p.ClOrdID,
		OrigClOrdID: p.OrigClOrdID,
		Symbol:      p.Symbol,
		Side:        p.Side,
	}
}

type orderCancelReplaceRequestParams struct {
	ClOrdID     string `json:"cl_ord_id"`
	OrigClOrdID string `json:"orig_cl_ord_id"`
	Symbol      string `json:"symbol"`
	OrderQty    string `json:"order_qty"`
	Price       string `json:"price"`
}

func (p orderCancelReplaceRequestParams) toBusiness() fixwire.Business {
	return fixwire.OrderCancelReplaceRequest{
		ClOrdID:     p.ClOrdID,
		OrigClOrdID: p.OrigClOrdID,
		Symbol:      p.Symbol,
		OrderQty:    p.OrderQty,
		Price:       p.Price,
	}
}

type orderMassStatusRequestParams struct {
	MassStatusReqID string `json:"mass_status_req_id"`
}

func (p orderMassStatusRequestParams) toBusiness() fixwire.Business {
	return fixwire.OrderMassStatusRequest{MassStatusReqID: p.MassStatusReqID}
}

type orderMassCancelRequestParams struct {
	MassCancelReqID string `json:"mass_cancel_req_id"`
}

func (p orderMassCancelRequestParams) toBusiness() fixwire.Business {
	return fixwire.OrderMassCancelRequest{MassCancelReqID: p.MassCancelReqID}
}

// parseBusinessParams decodes method's params into the matching Business
// value. Unknown methods return an error the caller turns into a
// "method not found" JSON-RPC error.
func parseBusinessParams(method string, raw json.RawMessage) (fixwire.Business, error) {
	switch method {
	case "order_status_request":
		var p orderStatusRequestParams
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, err
		}
		return p.toBusiness(), nil
	case "new_order_single":
		var p newOrderSingleParams
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, err
		}
		return p.toBusiness(), nil
	case "order_cancel_request":
		var p orderCancelRequestParams
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, err
		}
		return p.toBusiness(), nil
	case "order_cancel_replace_request":
		var p orderCancelReplaceRequestParams
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, err
		}
		return p.toBusiness(), nil
	case "order_mass_status_request":
		var p orderMassStatusRequestParams
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, err
		}
		return p.toBusiness(), nil
	case "order_mass_cancel_request":
		var p orderMassCancelRequestParams
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, err
		}
		return p.toBusiness(), nil
	default:
		return nil, fmt.Errorf("jsonrpc: unsupported method %q", method)
	}
}

// businessEventName maps an outbound Business value to the notification
// method name used to deliver it, as in {method: "<event_type>"}.
func businessEventName(b fixwire.Business) string {
	switch b.(type) {
	case fixwire.ExecutionReport:
		return "execution_report"
	case fixwire.OrderCancelReject:
		return "order_cancel_reject"
	case fixwire.BusinessMessageReject:
		return "business_message_reject"
	case fixwire.OrderMassCancelReport:
		return "order_mass_cancel_report"
	case fixwire.SecurityList:
		return "security_list"
	case fixwire.MarketDataSnapshotFullRefresh:
		return "market_data_snapshot_full_refresh"
	case fixwire.MarketDataIncrementalRefresh:
		return "market_data_incremental_refresh"
	case fixwire.MarketDataRequestReject:
		return "market_data_request_reject"
	default:
		return "business_event"
	}
}
