package services

import (
	"context"
	"fmt"
	"log/slog"

	"tally/internal/auth"
	"tally/internal/core"
	"tally/internal/storage"
)

// SpendingScanner is the projection surface the reducers fold over.
type SpendingScanner interface {
	ScanDatedAmounts(ctx context.Context) ([]storage.DatedAmount, error)
	ScanCategoryAmounts(ctx context.Context) ([]storage.CategoryAmount, error)
}

// SpendingService answers the two aggregate queries with full-scan
// streaming reductions. Both entry points require an authenticated caller
// and reject before touching the store.
type SpendingService struct {
	scanner SpendingScanner
}

func NewSpendingService(scanner SpendingScanner) *SpendingService {
	return &SpendingService{scanner: scanner}
}

// ByMonth totals cents per calendar month over the full history. Records
// whose date does not parse are dropped, never errored. Buckets come back
// in first-encounter order over the ascending-date scan, so the result is
// reproducible for a fixed collection.
func (s *SpendingService) ByMonth(ctx context.Context) ([]core.MonthlySpend, error) {
	if _, ok := auth.IdentityFromContext(ctx); !ok {
		return nil, auth.ErrUnauthenticated
	}

	rows, err := s.scanner.ScanDatedAmounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("scan transactions: %w", err)
	}

	totals := make(map[string]int64)
	var order []string
	skipped := 0
	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		ts, err := core.ParseDateTime(row.DateTime)
		if err != nil {
			skipped++
			continue
		}
		label := core.MonthLabel(ts)
		if _, seen := totals[label]; !seen {
			order = append(order, label)
		}
		totals[label] += row.Cents
	}

	if skipped > 0 {
		slog.WarnContext(ctx, "Skipped records with malformed dates during monthly aggregation",
			"skipped", skipped)
	}

	out := make([]core.MonthlySpend, 0, len(order))
	for _, label := range order {
		out = append(out, core.MonthlySpend{Label: label, Cents: totals[label]})
	}
	return out, nil
}

// ByCategory totals cents per merchant category name over the full
// history. Scan order does not matter; integer summation is commutative.
func (s *SpendingService) ByCategory(ctx context.Context) ([]core.CategorySpend, error) {
	if _, ok := auth.IdentityFromContext(ctx); !ok {
		return nil, auth.ErrUnauthenticated
	}

	rows, err := s.scanner.ScanCategoryAmounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("scan transactions: %w", err)
	}

	totals := make(map[string]int64)
	var order []string
	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if _, seen := totals[row.Name]; !seen {
			order = append(order, row.Name)
		}
		totals[row.Name] += row.Cents
	}

	out := make([]core.CategorySpend, 0, len(order))
	for _, name := range order {
		out = append(out, core.CategorySpend{Name: name, Cents: totals[name]})
	}
	return out, nil
}
