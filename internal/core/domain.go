package core

import (
	"errors"
	"strings"
	"time"
)

const (
	CurrencyZAR CurrencyCode = "zar"

	TypeCard TransactionType = "card"
)

type (
	CurrencyCode string

	TransactionType string

	Card struct {
		ID      string `json:"id"`
		Display string `json:"display"`
	}

	Country struct {
		Code   string `json:"code"`
		Alpha3 string `json:"alpha3"`
		Name   string `json:"name"`
	}

	Category struct {
		Code string `json:"code"`
		Key  string `json:"key"`
		Name string `json:"name"`
	}

	Merchant struct {
		Name     string   `json:"name"`
		City     string   `json:"city"`
		Country  Country  `json:"country"`
		Category Category `json:"category"`
	}

	// Transaction is immutable once persisted. Tags are stamped exactly once,
	// at ingestion time, and never edited afterward.
	Transaction struct {
		ID            string          `json:"id,omitempty"`
		AccountNumber string          `json:"accountNumber"`
		DateTime      string          `json:"dateTime"`
		CentsAmount   int64           `json:"centsAmount"`
		CurrencyCode  CurrencyCode    `json:"currencyCode"`
		Type          TransactionType `json:"type"`
		Reference     string          `json:"reference"`
		Card          Card            `json:"card"`
		Merchant      Merchant        `json:"merchant"`
		Tags          []string        `json:"tags"`
	}
)

var (
	ErrEmptyAccountNumber = errors.New("empty account number")
	ErrInvalidDateTime    = errors.New("invalid date time")
	ErrInvalidCurrency    = errors.New("invalid currency code")
	ErrInvalidType        = errors.New("invalid transaction type")
	ErrEmptyMerchantName  = errors.New("empty merchant name")
	ErrEmptyCategoryKey   = errors.New("empty category key")
)

// dateTimeLayouts are the accepted ISO-8601 shapes, most specific first.
var dateTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ParseDateTime parses an ISO-8601 date-time string into a calendar time.
func ParseDateTime(s string) (time.Time, error) {
	for _, layout := range dateTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, ErrInvalidDateTime
}

// MonthLabel formats a time as a month bucket key, e.g. "Jan 2024".
// The year is part of the label so the same month in different years
// never collides.
func MonthLabel(t time.Time) string {
	return t.Format("Jan 2006")
}

func (c CurrencyCode) Validate() error {
	switch c {
	case CurrencyZAR:
		return nil
	default:
		return ErrInvalidCurrency
	}
}

func (t TransactionType) Validate() error {
	switch t {
	case TypeCard:
		return nil
	default:
		return ErrInvalidType
	}
}

func (t Transaction) Validate() error {
	if strings.TrimSpace(t.AccountNumber) == "" {
		return ErrEmptyAccountNumber
	}
	if _, err := ParseDateTime(t.DateTime); err != nil {
		return err
	}
	if err := t.CurrencyCode.Validate(); err != nil {
		return err
	}
	if err := t.Type.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(t.Merchant.Name) == "" {
		return ErrEmptyMerchantName
	}
	if strings.TrimSpace(t.Merchant.Category.Key) == "" {
		return ErrEmptyCategoryKey
	}
	return nil
}
