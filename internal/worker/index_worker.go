// Package worker maintains the derived category lookup index from
// transaction created notifications.
package worker

import (
	"context"
	"fmt"
	"log/slog"

	"tally/internal/amqp"
	"tally/internal/core"
)

// IndexStore is the storage surface the index worker needs.
type IndexStore interface {
	GetTransaction(ctx context.Context, id string) (core.Transaction, error)
	UpsertCategory(ctx context.Context, c core.Category) error
	ListUnindexed(ctx context.Context, limit int) ([]string, error)
	MarkIndexed(ctx context.Context, id string) error
}

// IndexWorker consumes created notifications and upserts each
// transaction's merchant category into the lookup index. The index is a
// best-effort derivative: failures here are logged and swallowed, never
// surfaced to the ingestion that produced the transaction.
type IndexWorker struct {
	store     IndexStore
	batchSize int
}

func NewIndexWorker(store IndexStore, batchSize int) *IndexWorker {
	return &IndexWorker{
		store:     store,
		batchSize: batchSize,
	}
}

// HandleCreated processes one created notification. It always returns nil
// so deliveries are acked rather than retried; the periodic sweep covers
// anything that failed here. Re-delivery of the same notification is safe
// because the category upsert-merge is idempotent.
func (w *IndexWorker) HandleCreated(ctx context.Context, msg *amqp.TransactionCreatedMessage) error {
	if err := w.indexTransaction(ctx, msg.ID); err != nil {
		slog.ErrorContext(ctx, "Failed to update category index",
			"id", msg.ID, "error", err)
	}
	return nil
}

func (w *IndexWorker) indexTransaction(ctx context.Context, id string) error {
	t, err := w.store.GetTransaction(ctx, id)
	if err != nil {
		return fmt.Errorf("get transaction: %w", err)
	}

	if err := w.store.UpsertCategory(ctx, t.Merchant.Category); err != nil {
		return fmt.Errorf("upsert category: %w", err)
	}

	if err := w.store.MarkIndexed(ctx, id); err != nil {
		// The category made it into the index; only the bookkeeping
		// failed. The sweep will redo the idempotent upsert.
		slog.WarnContext(ctx, "Failed to mark transaction indexed", "id", id, "error", err)
		return nil
	}

	slog.InfoContext(ctx, "Category index updated",
		"id", id,
		"category_key", t.Merchant.Category.Key)

	return nil
}

// SweepUnindexed indexes transactions whose notification was lost.
// Recovery path for at-least-once delivery gaps; safe to run any time.
func (w *IndexWorker) SweepUnindexed(ctx context.Context) error {
	ids, err := w.store.ListUnindexed(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("list unindexed transactions: %w", err)
	}

	if len(ids) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Sweeping unindexed transactions", "count", len(ids))

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := w.indexTransaction(ctx, id); err != nil {
			slog.ErrorContext(ctx, "Failed to index transaction during sweep",
				"id", id, "error", err)
		}
	}

	return nil
}

// StartupCheck runs one larger sweep at worker boot to drain anything
// missed while the worker was down.
func (w *IndexWorker) StartupCheck(ctx context.Context) error {
	ids, err := w.store.ListUnindexed(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("list unindexed transactions for startup check: %w", err)
	}

	if len(ids) == 0 {
		slog.InfoContext(ctx, "No unindexed transactions found on startup")
		return nil
	}

	slog.InfoContext(ctx, "Found unindexed transactions on startup, processing...",
		"count", len(ids))

	indexed := 0
	failed := 0
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := w.indexTransaction(ctx, id); err != nil {
			slog.ErrorContext(ctx, "Failed to index transaction during startup check",
				"id", id, "error", err)
			failed++
			continue
		}
		indexed++
	}

	slog.InfoContext(ctx, "Startup index check completed",
		"total", len(ids),
		"indexed", indexed,
		"failed", failed)

	return nil
}
