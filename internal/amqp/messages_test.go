package amqp

import (
	"testing"
)

func TestTransactionCreatedMessage_RoundTrip(t *testing.T) {
	msg := NewTransactionCreatedMessage("7b0d2c1e-4f43-4a2b-9c33-2f9e01a55a10")

	body, err := msg.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON() error = %v", err)
	}

	got, err := TransactionCreatedMessageFromJSON(body)
	if err != nil {
		t.Fatalf("FromJSON() error = %v", err)
	}
	if got.ID != msg.ID {
		t.Errorf("FromJSON() ID = %q, want %q", got.ID, msg.ID)
	}
	if got.Timestamp.IsZero() {
		t.Error("FromJSON() Timestamp is zero")
	}
}

func TestTransactionCreatedMessageFromJSON_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body []byte
	}{
		{"not json", []byte("nope")},
		{"missing id", []byte(`{"timestamp":"2024-03-15T10:30:00Z"}`)},
		{"empty object", []byte(`{}`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := TransactionCreatedMessageFromJSON(tt.body); err == nil {
				t.Error("FromJSON() error = nil, want error")
			}
		})
	}
}
