// Package config loads the proxy's TOML configuration file: the symbol
// allow-list, the user table, and the venue/listener/crypto settings.
// It follows a two-stage Load/validate pattern: build defaults, overlay
// the file, overlay flag overrides, then validate once.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Default* are the exported default constants so callers and tests can
// reference the same values main.go falls back to.
const (
	DefaultListenPort       = 9880
	DefaultPingFreq         = 30 * time.Second
	DefaultLogonTimeout     = 10 * time.Second
	DefaultEncodeBufferSize = 1 << 16 // 64KiB
	DefaultCryptoMode       = "simple"
)

// User is one entry of the config file's user table.
type User struct {
	Component  string `toml:"component"`
	Username   string `toml:"username"`
	Password   string `toml:"password"`
	Accounts   []string `toml:"accounts"`
	StrategyID uint32 `toml:"strategy_id"`
}

// Venue describes one upstream FIX venue the server side dials.
type Venue struct {
	Component     string `toml:"component"`
	Address       string `toml:"address"`
	SenderCompID  string `toml:"sender_comp_id"`
	TargetCompID  string `toml:"target_comp_id"`
	Username      string `toml:"username"`
	Password      string `toml:"password"`
	TLSEnabled    bool   `toml:"tls_enabled"`
}

// Test holds narrow feature toggles that gate already-specified
// operations rather than adding new scope.
type Test struct {
	EnableOrderMassCancel bool `toml:"enable_order_mass_cancel"`
	DisableRemoveClOrdID  bool `toml:"disable_remove_cl_ord_id"`
}

// Config is the fully-resolved, validated configuration for one proxy
// process: one listener for downstream clients, one or more upstream
// venues, the user table, and the symbol allow-list.
type Config struct {
	// Listener (client-facing)
	ListenAddress   string        `toml:"listen_address"`
	ListenPort      int           `toml:"listen_port"`
	JSONRPCAddress  string        `toml:"jsonrpc_address"`
	ClientCompID    string        `toml:"client_comp_id"`

	// Venue (server-facing)
	Venues []Venue `toml:"venues"`

	// Session tuning
	PingFreq         time.Duration `toml:"ping_freq"`
	LogonTimeout     time.Duration `toml:"logon_timeout"`
	EncodeBufferSize int           `toml:"encode_buffer_size"`

	// Credentials
	CryptoMode string `toml:"crypto_mode"`
	Users      []User `toml:"users"`

	// Symbol allow-list, as regular expressions
	Symbols []string `toml:"symbols"`

	// Audit journal
	AuditDSN string `toml:"audit_dsn"`

	Test Test `toml:"test"`

	// TLSValidateCertificate gates whether the venue TLS dialer verifies
	// the peer certificate chain.
	TLSValidateCertificate bool `toml:"tls_validate_certificate"`
	ConnectionTimeout      time.Duration `toml:"connection_timeout"`
}

// ValidationError describes one failed configuration field, mirroring the
// teacher's config.ValidationError.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Message)
}

// ValidationErrors aggregates every ValidationError found during Validate
// so a misconfigured deployment sees every problem in a single error,
// not just the first.
type ValidationErrors []*ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "config: no validation errors"
	}
	msg := fmt.Sprintf("config: %d validation error(s):", len(e))
	for _, v := range e {
		msg += "\n  - " + v.Error()
	}
	return msg
}

// Default returns a Config populated with the package defaults; callers
// overlay a TOML file and flag values on top of it before validating.
func Default() *Config {
	return &Config{
		ListenPort:       DefaultListenPort,
		PingFreq:         DefaultPingFreq,
		LogonTimeout:     DefaultLogonTimeout,
		EncodeBufferSize: DefaultEncodeBufferSize,
		CryptoMode:       DefaultCryptoMode,
		ConnectionTimeout: 10 * time.Second,
	}
}

// Load reads and parses a TOML config file on top of Default(), then
// validates the result. It does not apply CLI flag overrides; callers
// that accept flags should mutate the returned Config before calling
// Validate again (see LoadWithFlags).
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Flags holds the CLI overrides main.go accepts on top of the config
// file. A zero value for any field leaves the corresponding config
// value untouched.
type Flags struct {
	ListenAddress  string
	ListenPort     int
	JSONRPCAddress string
	AuditDSN       string
}

// LoadWithFlags loads path the same way Load does, then overlays any
// non-zero fields from flags before validating. Flags win over the file
// because they're what an operator typed on the command line most
// recently.
func LoadWithFlags(path string, flags Flags) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	if flags.ListenAddress != "" {
		cfg.ListenAddress = flags.ListenAddress
	}
	if flags.ListenPort != 0 {
		cfg.ListenPort = flags.ListenPort
	}
	if flags.JSONRPCAddress != "" {
		cfg.JSONRPCAddress = flags.JSONRPCAddress
	}
	if flags.AuditDSN != "" {
		cfg.AuditDSN = flags.AuditDSN
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the resolved config for internal consistency. It
// collects every problem found rather than stopping at the first.
func (c *Config) Validate() error {
	var errs ValidationErrors

	if c.ListenPort <= 0 || c.ListenPort > 65535 {
		errs = append(errs, &ValidationError{"listen_port", "must be between 1 and 65535"})
	}
	if c.PingFreq <= 0 {
		errs = append(errs, &ValidationError{"ping_freq", "must be positive"})
	}
	if c.LogonTimeout <= 0 {
		errs = append(errs, &ValidationError{"logon_timeout", "must be positive"})
	}
	if c.EncodeBufferSize <= 0 {
		errs = append(errs, &ValidationError{"encode_buffer_size", "must be positive"})
	}
	if c.CryptoMode != "simple" && c.CryptoMode != "hmac_sha256" {
		errs = append(errs, &ValidationError{"crypto_mode", "must be 'simple' or 'hmac_sha256'"})
	}
	if len(c.Venues) == 0 {
		errs = append(errs, &ValidationError{"venues", "at least one upstream venue is required"})
	}
	seenComponents := make(map[string]bool)
	for i, v := range c.Venues {
		if v.Component == "" {
			errs = append(errs, &ValidationError{fmt.Sprintf("venues[%d].component", i), "must not be empty"})
		} else if seenComponents[v.Component] {
			errs = append(errs, &ValidationError{fmt.Sprintf("venues[%d].component", i), "duplicate component"})
		}
		seenComponents[v.Component] = true
		if v.Address == "" {
			errs = append(errs, &ValidationError{fmt.Sprintf("venues[%d].address", i), "must not be empty"})
		}
	}
	seenUsers := make(map[string]bool)
	for i, u := range c.Users {
		if u.Username == "" {
			errs = append(errs, &ValidationError{fmt.Sprintf("users[%d].username", i), "must not be empty"})
			continue
		}
		if seenUsers[u.Username] {
			errs = append(errs, &ValidationError{fmt.Sprintf("users[%d].username", i), "duplicate username"})
		}
		seenUsers[u.Username] = true
		if !seenComponents[u.Component] {
			errs = append(errs, &ValidationError{fmt.Sprintf("users[%d].component", i), "references unknown venue component"})
		}
	}
	for i, pattern := range c.Symbols {
		if pattern == "" {
			errs = append(errs, &ValidationError{fmt.Sprintf("symbols[%d]", i), "must not be empty"})
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}
