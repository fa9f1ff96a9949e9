// Package crypto implements the credential validator used during FIX and
// JSON-RPC logon: a constant-time plaintext comparison, or an HMAC-SHA256
// challenge-response scheme keyed on the shared secret configured per user.
package crypto

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
)

// Mode selects how Validator.Validate interprets password/secret/raw_data.
type Mode string

const (
	// ModeSimple compares password against secret directly, constant-time.
	ModeSimple Mode = "simple"

	// ModeHMACSHA256 treats secret as an HMAC key, raw_data as the message,
	// and password as the base64-encoded digest to check against.
	ModeHMACSHA256 Mode = "hmac_sha256"
)

// Validator validates logon credentials under a fixed mode for the
// lifetime of the process; it holds no mutable state and is safe for
// concurrent use (though the proxy only ever calls it from the event loop).
type Validator struct {
	mode Mode
}

// New constructs a Validator for the given mode. An unrecognised mode
// is rejected at construction time so misconfiguration fails at startup.
func New(mode Mode) (*Validator, error) {
	switch mode {
	case ModeSimple, ModeHMACSHA256:
		return &Validator{mode: mode}, nil
	default:
		return nil, fmt.Errorf("crypto: unknown mode %q", mode)
	}
}

// Mode reports the validator's configured mode.
func (v *Validator) Mode() Mode {
	return v.mode
}

// Validate checks password against secret (and, in hmac_sha256 mode,
// raw_data) and reports whether the credential is valid. All comparisons
// are constant-time regardless of mode.
func (v *Validator) Validate(password, secret, rawData string) bool {
	switch v.mode {
	case ModeSimple:
		return constantTimeEqual(password, secret)
	case ModeHMACSHA256:
		if rawData == "" {
			return false
		}
		mac := hmac.New(sha256.New, []byte(secret))
		mac.Write([]byte(rawData))
		digest := base64.StdEncoding.EncodeToString(mac.Sum(nil))
		return constantTimeEqual(password, digest)
	default:
		return false
	}
}

func constantTimeEqual(a, b string) bool {
	if len(a) != len(b) {
		// subtle.ConstantTimeCompare requires equal length; a length
		// mismatch is itself not a secret worth hiding the timing of,
		// but we still run a same-cost comparison against a same-length
		// buffer to avoid a fast path on the length check alone for
		// callers relying on the duration contract.
		return subtle.ConstantTimeCompare([]byte(a), []byte(a)) == 1 && false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
