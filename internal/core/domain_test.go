package core

import (
	"errors"
	"testing"
	"time"
)

func TestParseDateTime(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"rfc3339 with offset", "2024-03-15T10:30:00+02:00", false},
		{"rfc3339 utc", "2024-01-15T08:00:00Z", false},
		{"no zone", "2024-01-15T08:00:00", false},
		{"date only", "2024-01-15", false},
		{"garbage", "not-a-date", true},
		{"empty", "", true},
		{"impossible calendar date", "2024-02-30T00:00:00Z", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseDateTime(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseDateTime(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestMonthLabel(t *testing.T) {
	jan := time.Date(2024, time.January, 15, 0, 0, 0, 0, time.UTC)
	if got := MonthLabel(jan); got != "Jan 2024" {
		t.Errorf("MonthLabel() = %q, want %q", got, "Jan 2024")
	}
	// Same month, different year: distinct labels.
	jan23 := time.Date(2023, time.January, 15, 0, 0, 0, 0, time.UTC)
	if MonthLabel(jan) == MonthLabel(jan23) {
		t.Error("month labels for different years must not collide")
	}
}

func TestTransaction_Validate(t *testing.T) {
	valid := txWith("Acme", 1000)

	tests := []struct {
		name    string
		mutate  func(*Transaction)
		wantErr error
	}{
		{"valid", func(*Transaction) {}, nil},
		{"missing account", func(tx *Transaction) { tx.AccountNumber = " " }, ErrEmptyAccountNumber},
		{"bad date", func(tx *Transaction) { tx.DateTime = "15/03/2024" }, ErrInvalidDateTime},
		{"unknown currency", func(tx *Transaction) { tx.CurrencyCode = "usd" }, ErrInvalidCurrency},
		{"unknown type", func(tx *Transaction) { tx.Type = "eft" }, ErrInvalidType},
		{"missing merchant name", func(tx *Transaction) { tx.Merchant.Name = "" }, ErrEmptyMerchantName},
		{"missing category key", func(tx *Transaction) { tx.Merchant.Category.Key = "" }, ErrEmptyCategoryKey},
		{"negative amount is allowed", func(tx *Transaction) { tx.CentsAmount = -500 }, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := valid
			tt.mutate(&tx)
			err := tx.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
