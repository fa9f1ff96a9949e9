package fixwire

import "strconv"

// Admin messages are handled by the session state machines directly
// (§4.2, §4.3) rather than routed through the controller, so they are
// modelled as simple builders/extractors instead of Business variants.

// Logon is the decoded form of an inbound Logon (35=A).
type Logon struct {
	HeartBtInt      int
	EncryptMethod   string
	ResetSeqNumFlag bool
	Username        string
	Password        string
	RawData         string
}

// ParseLogon extracts a Logon's fields from a decoded body.
func ParseLogon(body []Field) Logon {
	m := &Msg{Body: body}
	heartBtInt, _ := m.GetInt(TagHeartBtInt)
	encryptMethod, _ := m.Get(TagEncryptMethod)
	reset, _ := m.Get(TagResetSeqNumFlag)
	username, _ := m.Get(TagUsername)
	password, _ := m.Get(TagPassword)
	rawData, _ := m.Get(TagRawData)
	return Logon{
		HeartBtInt:      int(heartBtInt),
		EncryptMethod:   encryptMethod,
		ResetSeqNumFlag: reset == "Y",
		Username:        username,
		Password:        password,
		RawData:         rawData,
	}
}

// EncodeLogon builds the body fields for an outbound Logon, per §4.2:
// heart_bt_int = ping_freq, reset_seq_num_flag = Y, encrypt_method = none.
func EncodeLogon(heartBtInt int, username, password, rawData string) []Field {
	body := []Field{
		{TagEncryptMethod, "0"},
		{TagHeartBtInt, strconv.Itoa(heartBtInt)},
		{TagResetSeqNumFlag, "Y"},
	}
	if username != "" {
		body = append(body, Field{TagUsername, username})
	}
	if password != "" {
		body = append(body, Field{TagPassword, password})
	}
	if rawData != "" {
		body = append(body, Field{TagRawData, rawData}, Field{TagRawDataLength, strconv.Itoa(len(rawData))})
	}
	return body
}

// EncodeLogout builds the body fields for a Logout carrying a text
// reason, typically a catalog string from the shared package.
func EncodeLogout(text string) []Field {
	if text == "" {
		return nil
	}
	return []Field{{TagText, text}}
}

// ParseLogout extracts the text reason, if any, from a Logout body.
func ParseLogout(body []Field) string {
	m := &Msg{Body: body}
	text, _ := m.Get(TagText)
	return text
}

// EncodeHeartbeat builds the body for a Heartbeat, optionally echoing a
// TestReqID (§4.2: "answered with a Heartbeat echoing its test_req_id").
func EncodeHeartbeat(testReqID string) []Field {
	if testReqID == "" {
		return nil
	}
	return []Field{{TagTestReqID, testReqID}}
}

// ParseHeartbeat extracts the echoed TestReqID, if present.
func ParseHeartbeat(body []Field) string {
	m := &Msg{Body: body}
	id, _ := m.Get(TagTestReqID)
	return id
}

// EncodeTestRequest builds the body for an outbound TestRequest.
func EncodeTestRequest(testReqID string) []Field {
	return []Field{{TagTestReqID, testReqID}}
}

// ParseTestRequest extracts the TestReqID from an inbound TestRequest.
func ParseTestRequest(body []Field) string {
	m := &Msg{Body: body}
	id, _ := m.Get(TagTestReqID)
	return id
}

// EncodeReject builds the body for a session-level Reject (35=3),
// referencing the offending sequence number, tag, and message type.
func EncodeReject(refSeqNum uint64, refTagID int, refMsgType, reason, text string) []Field {
	body := []Field{{TagRefSeqNum, strconv.FormatUint(refSeqNum, 10)}}
	if refTagID != 0 {
		body = append(body, Field{TagRefTagID, strconv.Itoa(refTagID)})
	}
	if refMsgType != "" {
		body = append(body, Field{TagRefMsgType, refMsgType})
	}
	if reason != "" {
		body = append(body, Field{TagSessionRejectReason, reason})
	}
	if text != "" {
		body = append(body, Field{TagText, text})
	}
	return body
}

// ResendRequest is the decoded form of an inbound ResendRequest (35=2).
// Neither session type parses inbound ResendRequests: one that arrives
// goes down the unhandled-message path and is logged and dropped, and
// the proxy does no gap-filling of its own.
type ResendRequest struct {
	BeginSeqNo uint64
	EndSeqNo   uint64
}

// ParseResendRequest extracts the requested sequence range.
func ParseResendRequest(body []Field) ResendRequest {
	m := &Msg{Body: body}
	begin, _ := m.GetInt(TagBeginSeqNo)
	end, _ := m.GetInt(TagEndSeqNo)
	return ResendRequest{BeginSeqNo: uint64(begin), EndSeqNo: uint64(end)}
}
