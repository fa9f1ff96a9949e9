package fixwire

import "testing"

func TestBusinessRoundTripNewOrderSingle(t *testing.T) {
	nos := NewOrderSingle{
		ClOrdID:  "x1",
		Symbol:   "BTC-USD",
		Side:     "1",
		OrderQty: "10",
		OrdType:  "2",
		Price:    "50000",
	}
	nos.Parties = []Party{
		{ID: "alice", Source: PartyIDSourceProprietary, Role: PartyRoleClientID},
		{ID: "1", Source: PartyIDSourceProprietary, Role: PartyRoleOrderOriginationTrader},
	}

	msgType, body, err := EncodeBusiness(nos)
	if err != nil {
		t.Fatalf("EncodeBusiness: %v", err)
	}
	if msgType != MsgTypeNewOrderSingle {
		t.Fatalf("msg type = %q, want %q", msgType, MsgTypeNewOrderSingle)
	}

	parsed, err := ParseBusiness(msgType, body)
	if err != nil {
		t.Fatalf("ParseBusiness: %v", err)
	}
	got, ok := parsed.(NewOrderSingle)
	if !ok {
		t.Fatalf("parsed type = %T, want NewOrderSingle", parsed)
	}
	if got.ClOrdID != nos.ClOrdID || got.Symbol != nos.Symbol || got.Side != nos.Side {
		t.Errorf("round trip mismatch: got %+v want %+v", got, nos)
	}
	if len(got.Parties) != 2 {
		t.Fatalf("expected 2 party blocks, got %d", len(got.Parties))
	}
	if !HasParty(got.Parties, PartyRoleClientID) {
		t.Error("expected a client-id party block to survive the round trip")
	}
}

func TestPartiesPreservesOrderAndConflictDetection(t *testing.T) {
	var body []Field
	body = AppendParty(body, Party{ID: "existing", Source: "P", Role: 1})
	body = AppendParty(body, Party{ID: "alice", Source: PartyIDSourceProprietary, Role: PartyRoleClientID})

	parties := Parties(body)
	if len(parties) != 2 {
		t.Fatalf("expected 2 parties, got %d", len(parties))
	}
	if parties[0].ID != "existing" {
		t.Error("expected the client-supplied party block to come first")
	}
	if !HasParty(parties, PartyRoleClientID) {
		t.Error("expected HasParty to find the stamped client-id role")
	}
	if HasParty(parties, 99) {
		t.Error("HasParty should not find a role that was never stamped")
	}
}

func TestBusinessMessageRejectRoundTrip(t *testing.T) {
	reject := BusinessMessageReject{RefSeqNum: "5", RefMsgType: MsgTypeNewOrderSingle, Reason: "1", Text: "unknown symbol"}
	msgType, body, err := EncodeBusiness(reject)
	if err != nil {
		t.Fatalf("EncodeBusiness: %v", err)
	}
	parsed, err := ParseBusiness(msgType, body)
	if err != nil {
		t.Fatalf("ParseBusiness: %v", err)
	}
	got := parsed.(BusinessMessageReject)
	if got != reject {
		t.Errorf("got %+v, want %+v", got, reject)
	}
}

func TestLogonRoundTrip(t *testing.T) {
	body := EncodeLogon(30, "alice", "s3cret", "")
	logon := ParseLogon(body)
	if logon.HeartBtInt != 30 || logon.Username != "alice" || logon.Password != "s3cret" {
		t.Errorf("got %+v", logon)
	}
	if !logon.ResetSeqNumFlag {
		t.Error("expected reset_seq_num_flag to be set per §4.2")
	}
}
