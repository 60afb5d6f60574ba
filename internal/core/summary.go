package core

// MonthlySpend is a month bucket total, keyed by a MonthLabel.
type MonthlySpend struct {
	Label string
	Cents int64
}

// CategorySpend is a per-category-name total over the full history.
type CategorySpend struct {
	Name  string
	Cents int64
}
