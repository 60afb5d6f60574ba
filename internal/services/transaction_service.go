// Package services orchestrates ingestion and the spending reducers over
// the storage and messaging layers.
package services

import (
	"context"
	"fmt"
	"log/slog"

	"tally/internal/core"
)

// TransactionStore is the write/read surface the ingestion pipeline needs.
type TransactionStore interface {
	CreateTransaction(ctx context.Context, t core.Transaction) (string, error)
	ListRules(ctx context.Context) ([]core.TagRule, error)
}

// CreatedPublisher announces persisted transactions to the index worker.
type CreatedPublisher interface {
	PublishTransactionCreated(ctx context.Context, id string) error
}

// TransactionService runs the ingestion pipeline: validate, tag, persist,
// announce.
type TransactionService struct {
	store     TransactionStore
	publisher CreatedPublisher
}

func NewTransactionService(store TransactionStore, publisher CreatedPublisher) *TransactionService {
	return &TransactionService{
		store:     store,
		publisher: publisher,
	}
}

// Ingest validates the transaction, stamps tags from the live rule set and
// persists it, returning the generated identifier. Tags are decided here
// and only here; the persisted document is never amended. Any failure
// before the write aborts with nothing persisted. The created notification
// is best-effort: ingestion has already succeeded by the time it is
// published, so a publish failure is logged and swallowed.
func (s *TransactionService) Ingest(ctx context.Context, t core.Transaction) (string, error) {
	if err := t.Validate(); err != nil {
		return "", fmt.Errorf("validate transaction: %w", err)
	}

	rules, err := s.store.ListRules(ctx)
	if err != nil {
		return "", fmt.Errorf("load tag rules: %w", err)
	}

	tags := core.EvaluateRules(t, rules)
	if tags == nil {
		tags = []string{}
	}
	t.Tags = tags

	id, err := s.store.CreateTransaction(ctx, t)
	if err != nil {
		return "", fmt.Errorf("persist transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction ingested",
		"id", id,
		"merchant", t.Merchant.Name,
		"cents_amount", t.CentsAmount,
		"tags", tags)

	if s.publisher == nil {
		slog.WarnContext(ctx, "No publisher configured, skipping created notification", "id", id)
		return id, nil
	}
	if err := s.publisher.PublishTransactionCreated(ctx, id); err != nil {
		slog.ErrorContext(ctx, "Failed to publish created notification",
			"id", id, "error", err)
		// Ingestion already succeeded; the worker sweep picks this up.
	}

	return id, nil
}
