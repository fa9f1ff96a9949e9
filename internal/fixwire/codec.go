// Package fixwire implements the FIX 4.4 tag=value/SOH wire codec the
// rest of the proxy treats as a fixed external contract (§6). It is a
// small, real codec rather than a stub so the module builds and tests
// standalone; framing and buffering follow the carry-buffer discipline
// guacamole's TCP relay uses for its own ';'-delimited instructions,
// generalised here to FIX's length-prefixed, SOH-terminated framing.
package fixwire

import (
	"bytes"
	"fmt"
	"strconv"
	"time"
)

const soh = byte(0x01)

const timeLayout = "20060102-15:04:05.000"

// Encode renders a header and body into a complete FIX message, computing
// BodyLength (tag 9) and the trailing checksum (tag 10) as the wire
// protocol requires.
func Encode(h Header, body []Field) ([]byte, error) {
	if h.BeginString == "" {
		h.BeginString = "FIX.4.4"
	}
	if h.MsgType == "" {
		return nil, fmt.Errorf("fixwire: encode: missing msg type")
	}

	var mid bytes.Buffer
	writeField(&mid, TagMsgType, h.MsgType)
	writeField(&mid, TagSenderCompID, h.SenderCompID)
	writeField(&mid, TagTargetCompID, h.TargetCompID)
	writeField(&mid, TagMsgSeqNum, strconv.FormatUint(h.MsgSeqNum, 10))
	writeField(&mid, TagSendingTime, h.SendingTime.UTC().Format(timeLayout))
	for _, f := range body {
		writeField(&mid, f.Tag, f.Value)
	}

	bodyLen := mid.Len()

	var out bytes.Buffer
	writeField(&out, TagBeginString, h.BeginString)
	writeField(&out, TagBodyLength, strconv.Itoa(bodyLen))
	out.Write(mid.Bytes())

	checksum := checksumOf(out.Bytes())
	writeField(&out, TagCheckSum, fmt.Sprintf("%03d", checksum))

	return out.Bytes(), nil
}

// Decode parses one complete, SOH-delimited FIX message (as produced by
// Scanner.Feed) into a Header and its body fields. It validates the
// checksum and the declared body length.
func Decode(raw []byte) (Header, []Field, error) {
	raw = bytes.TrimSuffix(raw, []byte{soh})
	parts := bytes.Split(raw, []byte{soh})

	var h Header
	var body []Field
	haveBegin, haveBodyLen, haveChecksum := false, false, false
	declaredLen := 0

	for i, part := range parts {
		tag, value, err := splitTagValue(part)
		if err != nil {
			return Header{}, nil, fmt.Errorf("fixwire: decode: field %d: %w", i, err)
		}
		switch tag {
		case TagBeginString:
			h.BeginString = value
			haveBegin = true
		case TagBodyLength:
			n, err := strconv.Atoi(value)
			if err != nil {
				return Header{}, nil, fmt.Errorf("fixwire: decode: bad body length: %w", err)
			}
			declaredLen = n
			haveBodyLen = true
		case TagMsgType:
			h.MsgType = value
		case TagSenderCompID:
			h.SenderCompID = value
		case TagTargetCompID:
			h.TargetCompID = value
		case TagMsgSeqNum:
			n, err := strconv.ParseUint(value, 10, 64)
			if err != nil {
				return Header{}, nil, fmt.Errorf("fixwire: decode: bad msg seq num: %w", err)
			}
			h.MsgSeqNum = n
		case TagSendingTime:
			t, err := time.Parse(timeLayout, value)
			if err == nil {
				h.SendingTime = t
			}
		case TagCheckSum:
			haveChecksum = true
		default:
			body = append(body, Field{Tag: tag, Value: value})
		}
	}

	if !haveBegin || !haveBodyLen || !haveChecksum {
		return Header{}, nil, fmt.Errorf("fixwire: decode: missing required header field(s)")
	}
	if h.MsgType == "" {
		return Header{}, nil, fmt.Errorf("fixwire: decode: missing msg type")
	}

	if err := verifyChecksum(raw); err != nil {
		return Header{}, nil, err
	}
	if err := verifyBodyLength(raw, declaredLen); err != nil {
		return Header{}, nil, err
	}

	return h, body, nil
}

func writeField(buf *bytes.Buffer, tag int, value string) {
	buf.WriteString(strconv.Itoa(tag))
	buf.WriteByte('=')
	buf.WriteString(value)
	buf.WriteByte(soh)
}

func splitTagValue(field []byte) (int, string, error) {
	idx := bytes.IndexByte(field, '=')
	if idx < 0 {
		return 0, "", fmt.Errorf("field %q has no '='", field)
	}
	tag, err := strconv.Atoi(string(field[:idx]))
	if err != nil {
		return 0, "", fmt.Errorf("non-numeric tag in %q: %w", field, err)
	}
	return tag, string(field[idx+1:]), nil
}

func checksumOf(data []byte) int {
	sum := 0
	for _, b := range data {
		sum += int(b)
	}
	return sum % 256
}

func verifyChecksum(raw []byte) error {
	idx := bytes.LastIndex(raw, []byte("10="))
	if idx < 0 || idx == 0 {
		return fmt.Errorf("fixwire: decode: no checksum field")
	}
	want := checksumOf(raw[:idx])
	got, err := strconv.Atoi(string(raw[idx+3:]))
	if err != nil {
		return fmt.Errorf("fixwire: decode: bad checksum value: %w", err)
	}
	if got != want {
		return fmt.Errorf("fixwire: decode: checksum mismatch: got %d want %d", got, want)
	}
	return nil
}

func verifyBodyLength(raw []byte, declared int) error {
	// Body starts right after the BodyLength field and ends right before
	// the checksum field.
	bodyStart := bytes.IndexByte(raw, soh)
	if bodyStart < 0 {
		return fmt.Errorf("fixwire: decode: malformed message")
	}
	secondField := bytes.IndexByte(raw[bodyStart+1:], soh)
	if secondField < 0 {
		return fmt.Errorf("fixwire: decode: malformed message")
	}
	bodyStart = bodyStart + 1 + secondField + 1

	checksumStart := bytes.LastIndex(raw, []byte("10="))
	if checksumStart < bodyStart {
		return fmt.Errorf("fixwire: decode: malformed message")
	}
	actual := checksumStart - bodyStart
	if actual != declared {
		return fmt.Errorf("fixwire: decode: body length mismatch: got %d want %d", actual, declared)
	}
	return nil
}
