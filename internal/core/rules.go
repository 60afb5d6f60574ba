// Package core holds the domain types and the rule-matching logic applied
// to every incoming transaction.
package core

type Operator string

// Comparison operators a tag rule may carry. The set is closed: anything
// else never matches.
const (
	OpLess         Operator = "<"
	OpLessEqual    Operator = "<="
	OpEqual        Operator = "=="
	OpGreater      Operator = ">"
	OpGreaterEqual Operator = ">="
)

// Compare evaluates "a <op> b". Unknown operators compare false.
func (op Operator) Compare(a, b int64) bool {
	switch op {
	case OpLess:
		return a < b
	case OpLessEqual:
		return a <= b
	case OpEqual:
		return a == b
	case OpGreater:
		return a > b
	case OpGreaterEqual:
		return a >= b
	default:
		return false
	}
}

// TagRule is an authored condition that stamps its Name onto matching
// transactions at ingestion time. A rule is an amount rule when both
// CentsAmount and AmountOperator are present, otherwise a merchant rule
// when MerchantName is present. Rules only affect new transactions while
// ApplyFuture is set.
type TagRule struct {
	Name           string   `json:"name"`
	MerchantName   string   `json:"merchantName,omitempty"`
	CentsAmount    *int64   `json:"centsAmount,omitempty"`
	AmountOperator Operator `json:"amountOperator,omitempty"`
	ApplyFuture    bool     `json:"applyFuture"`
}

// Matches reports whether the rule applies to the transaction. Amount-rule
// logic takes precedence when both shapes are present. A rule carrying a
// threshold without an operator (or vice versa) is malformed and matches
// nothing; it is skipped rather than rejected.
func (r TagRule) Matches(t Transaction) bool {
	if r.CentsAmount != nil && r.AmountOperator != "" {
		return r.AmountOperator.Compare(t.CentsAmount, *r.CentsAmount)
	}
	if r.MerchantName != "" {
		return r.MerchantName == t.Merchant.Name
	}
	return false
}

// EvaluateRules returns the tag names of every rule matching the
// transaction, in rule order. Names are not deduplicated: two matching
// rules sharing a name stamp it twice.
func EvaluateRules(t Transaction, rules []TagRule) []string {
	var tags []string
	for _, r := range rules {
		if !r.ApplyFuture {
			continue
		}
		if r.Matches(t) {
			tags = append(tags, r.Name)
		}
	}
	return tags
}
