package jsonrpc

import (
	"encoding/json"
	"testing"

	"github.com/rjsadow/fixproxy/internal/fixwire"
)

func TestParseBusinessParamsNewOrderSingle(t *testing.T) {
	raw := json.RawMessage(`{"cl_ord_id":"1","symbol":"BTCUSD","side":"1","order_qty":"10","ord_type":"2","price":"100"}`)
	biz, err := parseBusinessParams("new_order_single", raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	nos, ok := biz.(fixwire.NewOrderSingle)
	if !ok {
		t.Fatalf("expected NewOrderSingle, got %T", biz)
	}
	if nos.ClOrdID != "1" || nos.Symbol != "BTCUSD" {
		t.Errorf("unexpected decoded fields: %+v", nos)
	}
}

func TestParseBusinessParamsUnknownMethod(t *testing.T) {
	if _, err := parseBusinessParams("not_a_method", json.RawMessage(`{}`)); err == nil {
		t.Error("expected an error for an unsupported method")
	}
}

func TestParseBusinessParamsMassRequests(t *testing.T) {
	biz, err := parseBusinessParams("order_mass_cancel_request", json.RawMessage(`{"mass_cancel_req_id":"m1"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v, ok := biz.(fixwire.OrderMassCancelRequest); !ok || v.MassCancelReqID != "m1" {
		t.Errorf("unexpected decode: %+v", biz)
	}
}

func TestBusinessEventNameMapsKnownTypes(t *testing.T) {
	cases := []struct {
		biz  fixwire.Business
		want string
	}{
		{fixwire.ExecutionReport{}, "execution_report"},
		{fixwire.OrderCancelReject{}, "order_cancel_reject"},
		{fixwire.BusinessMessageReject{}, "business_message_reject"},
		{fixwire.OrderMassCancelReport{}, "order_mass_cancel_report"},
	}
	for _, c := range cases {
		if got := businessEventName(c.biz); got != c.want {
			t.Errorf("businessEventName(%T) = %q, want %q", c.biz, got, c.want)
		}
	}
}
