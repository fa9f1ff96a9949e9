package fixwire

import (
	"bytes"
	"fmt"
	"strconv"
)

// Scanner extracts complete, checksum-terminated FIX messages out of a
// byte stream that may deliver partial messages across reads. Grounded
// on guacamole/proxy.go's relayTCPToWS carry-buffer: leftover bytes from
// an incomplete message are kept in carry and prefixed onto the next
// Feed call, the same way guacamole holds back a partial ';'-delimited
// instruction.
type Scanner struct {
	carry []byte
}

// Feed appends data to the carry buffer and returns every complete FIX
// message found (each still including its 8=.../10=... envelope, ready
// for Decode). Bytes that don't yet form a complete message are retained
// for the next call.
func (s *Scanner) Feed(data []byte) ([][]byte, error) {
	s.carry = append(s.carry, data...)

	var messages [][]byte
	for {
		msg, rest, ok, err := extractOne(s.carry)
		if err != nil {
			return messages, err
		}
		if !ok {
			s.carry = rest
			break
		}
		messages = append(messages, msg)
		s.carry = rest
	}
	return messages, nil
}

// extractOne looks for one complete 8=.../10=nnn\x01 message at the
// front of buf. It returns ok=false (with buf unmodified as the
// remainder) if the buffer doesn't yet contain a full message.
func extractOne(buf []byte) (msg []byte, rest []byte, ok bool, err error) {
	if len(buf) == 0 {
		return nil, buf, false, nil
	}

	// Locate "9=" field to learn the declared body length.
	bodyLenIdx := bytes.Index(buf, []byte("\x019="))
	beginOK := bytes.HasPrefix(buf, []byte("8="))
	if !beginOK {
		return nil, buf, false, fmt.Errorf("fixwire: scanner: stream does not start with BeginString")
	}
	if bodyLenIdx < 0 {
		return nil, buf, false, nil // need more data
	}

	valueStart := bodyLenIdx + 3
	valueEnd := bytes.IndexByte(buf[valueStart:], soh)
	if valueEnd < 0 {
		return nil, buf, false, nil // need more data
	}
	valueEnd += valueStart

	bodyLen, err := strconv.Atoi(string(buf[valueStart:valueEnd]))
	if err != nil {
		return nil, buf, false, fmt.Errorf("fixwire: scanner: bad body length: %w", err)
	}

	bodyStart := valueEnd + 1
	needed := bodyStart + bodyLen // up to and including the byte before "10="
	// The checksum field itself is "10=nnn\x01", exactly 7 bytes.
	total := needed + 7
	if len(buf) < total {
		return nil, buf, false, nil // need more data
	}
	if !bytes.HasPrefix(buf[needed:], []byte("10=")) {
		return nil, buf, false, fmt.Errorf("fixwire: scanner: checksum field not where body length said it would be")
	}

	return buf[:total], buf[total:], true, nil
}
