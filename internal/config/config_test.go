package config

import "testing"

func TestValidateRejectsMissingVenue(t *testing.T) {
	cfg := Default()
	cfg.Users = []User{{Username: "alice", Component: "sim", Password: "x"}}

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error for a config with no venues")
	}
	verrs, ok := err.(ValidationErrors)
	if !ok {
		t.Fatalf("expected ValidationErrors, got %T", err)
	}
	found := false
	for _, v := range verrs {
		if v.Field == "venues" {
			found = true
		}
	}
	if !found {
		t.Error("expected a 'venues' validation error")
	}
}

func TestValidateRejectsUnknownUserComponent(t *testing.T) {
	cfg := Default()
	cfg.Venues = []Venue{{Component: "sim", Address: "127.0.0.1:9000"}}
	cfg.Users = []User{{Username: "alice", Component: "other", Password: "x"}}

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error for a user referencing an unknown venue")
	}
}

func TestValidateAcceptsWellFormedConfig(t *testing.T) {
	cfg := Default()
	cfg.Venues = []Venue{{Component: "sim", Address: "127.0.0.1:9000", SenderCompID: "PROXY", TargetCompID: "SIM"}}
	cfg.Users = []User{{Username: "alice", Component: "sim", Password: "s3cret", StrategyID: 1}}
	cfg.Symbols = []string{"^BTC.*"}

	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected a well-formed config to validate, got %v", err)
	}
}

func TestValidationErrorsError(t *testing.T) {
	errs := ValidationErrors{{Field: "a", Message: "bad"}, {Field: "b", Message: "worse"}}
	msg := errs.Error()
	if msg == "" {
		t.Fatal("expected a non-empty error message")
	}
}
