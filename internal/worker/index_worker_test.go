package worker

import (
	"context"
	"errors"
	"testing"

	"tally/internal/amqp"
	"tally/internal/core"
)

type fakeIndexStore struct {
	transactions map[string]core.Transaction
	index        map[string]core.Category
	indexed      map[string]bool
	upserts      int
	upsertErr    error
	getErr       error
}

func newFakeIndexStore() *fakeIndexStore {
	return &fakeIndexStore{
		transactions: make(map[string]core.Transaction),
		index:        make(map[string]core.Category),
		indexed:      make(map[string]bool),
	}
}

func (f *fakeIndexStore) GetTransaction(_ context.Context, id string) (core.Transaction, error) {
	if f.getErr != nil {
		return core.Transaction{}, f.getErr
	}
	t, ok := f.transactions[id]
	if !ok {
		return core.Transaction{}, errors.New("not found")
	}
	return t, nil
}

func (f *fakeIndexStore) UpsertCategory(_ context.Context, c core.Category) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.upserts++
	existing := f.index[c.Key]
	if c.Code != "" {
		existing.Code = c.Code
	}
	if c.Name != "" {
		existing.Name = c.Name
	}
	existing.Key = c.Key
	f.index[c.Key] = existing
	return nil
}

func (f *fakeIndexStore) ListUnindexed(_ context.Context, limit int) ([]string, error) {
	var ids []string
	for id := range f.transactions {
		if !f.indexed[id] {
			ids = append(ids, id)
		}
		if len(ids) == limit {
			break
		}
	}
	return ids, nil
}

func (f *fakeIndexStore) MarkIndexed(_ context.Context, id string) error {
	f.indexed[id] = true
	return nil
}

func storedTransaction(id, categoryKey string) core.Transaction {
	return core.Transaction{
		ID:           id,
		DateTime:     "2024-03-15T10:30:00Z",
		CentsAmount:  5000,
		CurrencyCode: core.CurrencyZAR,
		Type:         core.TypeCard,
		Merchant: core.Merchant{
			Name:     "Acme",
			Category: core.Category{Code: "5411", Key: categoryKey, Name: "Groceries"},
		},
	}
}

func TestIndexWorker_HandleCreated(t *testing.T) {
	t.Run("upserts the merchant category and marks indexed", func(t *testing.T) {
		store := newFakeIndexStore()
		store.transactions["tx-1"] = storedTransaction("tx-1", "groceries")
		w := NewIndexWorker(store, 10)

		err := w.HandleCreated(context.Background(), &amqp.TransactionCreatedMessage{ID: "tx-1"})
		if err != nil {
			t.Fatalf("HandleCreated() error = %v", err)
		}
		if got := store.index["groceries"]; got.Name != "Groceries" {
			t.Errorf("index entry = %+v, want Groceries", got)
		}
		if !store.indexed["tx-1"] {
			t.Error("transaction not marked indexed")
		}
	})

	t.Run("redelivery leaves the index unchanged", func(t *testing.T) {
		store := newFakeIndexStore()
		store.transactions["tx-1"] = storedTransaction("tx-1", "groceries")
		w := NewIndexWorker(store, 10)

		msg := &amqp.TransactionCreatedMessage{ID: "tx-1"}
		if err := w.HandleCreated(context.Background(), msg); err != nil {
			t.Fatalf("HandleCreated() error = %v", err)
		}
		before := store.index["groceries"]
		if err := w.HandleCreated(context.Background(), msg); err != nil {
			t.Fatalf("HandleCreated() second delivery error = %v", err)
		}
		if store.index["groceries"] != before {
			t.Errorf("index changed on redelivery: %+v -> %+v", before, store.index["groceries"])
		}
		if len(store.index) != 1 {
			t.Errorf("index has %d entries, want 1", len(store.index))
		}
	})

	t.Run("store failure is swallowed, never propagated", func(t *testing.T) {
		store := newFakeIndexStore()
		store.transactions["tx-1"] = storedTransaction("tx-1", "groceries")
		store.upsertErr = errors.New("store unavailable")
		w := NewIndexWorker(store, 10)

		if err := w.HandleCreated(context.Background(), &amqp.TransactionCreatedMessage{ID: "tx-1"}); err != nil {
			t.Errorf("HandleCreated() error = %v, want nil (best-effort index)", err)
		}
	})

	t.Run("unknown transaction is swallowed", func(t *testing.T) {
		store := newFakeIndexStore()
		w := NewIndexWorker(store, 10)

		if err := w.HandleCreated(context.Background(), &amqp.TransactionCreatedMessage{ID: "ghost"}); err != nil {
			t.Errorf("HandleCreated() error = %v, want nil", err)
		}
	})
}

func TestIndexWorker_SweepUnindexed(t *testing.T) {
	store := newFakeIndexStore()
	store.transactions["tx-1"] = storedTransaction("tx-1", "groceries")
	store.transactions["tx-2"] = storedTransaction("tx-2", "fuel")
	w := NewIndexWorker(store, 10)

	if err := w.SweepUnindexed(context.Background()); err != nil {
		t.Fatalf("SweepUnindexed() error = %v", err)
	}
	if len(store.index) != 2 {
		t.Errorf("index has %d entries, want 2", len(store.index))
	}
	if !store.indexed["tx-1"] || !store.indexed["tx-2"] {
		t.Error("sweep did not mark all transactions indexed")
	}

	// A second sweep finds nothing to do.
	upserts := store.upserts
	if err := w.SweepUnindexed(context.Background()); err != nil {
		t.Fatalf("SweepUnindexed() second pass error = %v", err)
	}
	if store.upserts != upserts {
		t.Errorf("second sweep performed %d extra upserts, want 0", store.upserts-upserts)
	}
}

func TestIndexWorker_StartupCheck(t *testing.T) {
	store := newFakeIndexStore()
	store.transactions["tx-1"] = storedTransaction("tx-1", "groceries")
	w := NewIndexWorker(store, 2)

	if err := w.StartupCheck(context.Background()); err != nil {
		t.Fatalf("StartupCheck() error = %v", err)
	}
	if !store.indexed["tx-1"] {
		t.Error("startup check did not index pending transaction")
	}
}
