package domain

import (
	"errors"
	"testing"
	"time"
)

func TestValidateReportsFirstMissingField(t *testing.T) {
	tests := []struct {
		name  string
		v     interface{ Validate() error }
		field string
	}{
		{"team without name", &Team{}, "name"},
		{"agent without name", &Agent{TeamID: "t1"}, "name"},
		{"key without provider", &APIKey{Name: "prod"}, "provider"},
		{"key without secret", &APIKey{Name: "prod", Provider: "openai"}, "key"},
		{"tool without agent", &Tool{Name: "search"}, "agent"},
		{"credentials without email", Credentials{Password: "x"}, "email"},
		{"credentials without secret", Credentials{Email: "a@b.com"}, "password"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.v.Validate()
			var vErr *ValidationError
			if !errors.As(err, &vErr) {
				t.Fatalf("Expected ValidationError, got %v", err)
			}
			if vErr.Field != tt.field {
				t.Errorf("Expected field %q, got %q", tt.field, vErr.Field)
			}
		})
	}
}

func TestValidateAcceptsComplete(t *testing.T) {
	if err := (&Team{Name: "Support"}).Validate(); err != nil {
		t.Errorf("Unexpected error: %v", err)
	}
	if err := (Credentials{Email: "a@b.com", Code: "123456"}).Validate(); err != nil {
		t.Errorf("Unexpected error: %v", err)
	}
}

func TestSessionDisplayName(t *testing.T) {
	s := &Session{Email: "a@b.com"}
	if got := s.DisplayName(); got != "a@b.com" {
		t.Errorf("Expected email fallback, got %q", got)
	}
	s.FirstName, s.LastName = "Ada", "Lovelace"
	if got := s.DisplayName(); got != "Ada Lovelace" {
		t.Errorf("Expected full name, got %q", got)
	}
}

func TestFormatTimestamp(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	ts := time.Date(2024, 3, 1, 12, 30, 5, 7_000_000, loc)
	if got, want := FormatTimestamp(ts), "2024-03-01T10:30:05.007Z"; got != want {
		t.Errorf("FormatTimestamp() = %q, want %q", got, want)
	}
}
