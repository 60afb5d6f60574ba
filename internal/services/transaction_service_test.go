package services

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"tally/internal/core"
)

type fakeStore struct {
	rules     []core.TagRule
	rulesErr  error
	createErr error
	created   []core.Transaction
	nextID    string
}

func (f *fakeStore) CreateTransaction(_ context.Context, t core.Transaction) (string, error) {
	if f.createErr != nil {
		return "", f.createErr
	}
	f.created = append(f.created, t)
	if f.nextID != "" {
		return f.nextID, nil
	}
	return "generated-id", nil
}

func (f *fakeStore) ListRules(context.Context) ([]core.TagRule, error) {
	if f.rulesErr != nil {
		return nil, f.rulesErr
	}
	return f.rules, nil
}

type recordingPublisher struct {
	published []string
	err       error
}

func (p *recordingPublisher) PublishTransactionCreated(_ context.Context, id string) error {
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, id)
	return nil
}

func validTransaction() core.Transaction {
	return core.Transaction{
		AccountNumber: "1234567890",
		DateTime:      "2024-03-15T10:30:00Z",
		CentsAmount:   5000,
		CurrencyCode:  core.CurrencyZAR,
		Type:          core.TypeCard,
		Merchant: core.Merchant{
			Name:     "Acme",
			Category: core.Category{Code: "5411", Key: "groceries", Name: "Groceries"},
		},
	}
}

func TestTransactionService_Ingest(t *testing.T) {
	threshold := int64(1000)

	t.Run("stamps matching tags before the single write", func(t *testing.T) {
		store := &fakeStore{rules: []core.TagRule{
			{Name: "spendy", CentsAmount: &threshold, AmountOperator: core.OpGreater, ApplyFuture: true},
			{Name: "acme", MerchantName: "Acme", ApplyFuture: true},
			{Name: "dormant", MerchantName: "Acme", ApplyFuture: false},
		}}
		pub := &recordingPublisher{}
		svc := NewTransactionService(store, pub)

		id, err := svc.Ingest(context.Background(), validTransaction())
		if err != nil {
			t.Fatalf("Ingest() error = %v", err)
		}
		if id != "generated-id" {
			t.Errorf("Ingest() id = %q, want generated-id", id)
		}
		if len(store.created) != 1 {
			t.Fatalf("store received %d writes, want 1", len(store.created))
		}
		if got, want := store.created[0].Tags, []string{"spendy", "acme"}; !reflect.DeepEqual(got, want) {
			t.Errorf("persisted tags = %v, want %v", got, want)
		}
		if !reflect.DeepEqual(pub.published, []string{"generated-id"}) {
			t.Errorf("published ids = %v, want [generated-id]", pub.published)
		}
	})

	t.Run("no matching rules stamps an empty tag list", func(t *testing.T) {
		store := &fakeStore{}
		svc := NewTransactionService(store, &recordingPublisher{})

		if _, err := svc.Ingest(context.Background(), validTransaction()); err != nil {
			t.Fatalf("Ingest() error = %v", err)
		}
		if store.created[0].Tags == nil || len(store.created[0].Tags) != 0 {
			t.Errorf("persisted tags = %v, want empty non-nil list", store.created[0].Tags)
		}
	})

	t.Run("invalid transaction never reaches the store", func(t *testing.T) {
		store := &fakeStore{}
		svc := NewTransactionService(store, &recordingPublisher{})

		tx := validTransaction()
		tx.AccountNumber = ""
		_, err := svc.Ingest(context.Background(), tx)
		if !errors.Is(err, core.ErrEmptyAccountNumber) {
			t.Errorf("Ingest() error = %v, want ErrEmptyAccountNumber", err)
		}
		if len(store.created) != 0 {
			t.Errorf("store received %d writes, want 0", len(store.created))
		}
	})

	t.Run("rule load failure aborts before any write", func(t *testing.T) {
		store := &fakeStore{rulesErr: errors.New("store unavailable")}
		svc := NewTransactionService(store, &recordingPublisher{})

		if _, err := svc.Ingest(context.Background(), validTransaction()); err == nil {
			t.Error("Ingest() error = nil, want error")
		}
		if len(store.created) != 0 {
			t.Errorf("store received %d writes, want 0", len(store.created))
		}
	})

	t.Run("persist failure surfaces to the caller", func(t *testing.T) {
		store := &fakeStore{createErr: errors.New("disk full")}
		pub := &recordingPublisher{}
		svc := NewTransactionService(store, pub)

		if _, err := svc.Ingest(context.Background(), validTransaction()); err == nil {
			t.Error("Ingest() error = nil, want error")
		}
		if len(pub.published) != 0 {
			t.Errorf("published %d notifications, want 0", len(pub.published))
		}
	})

	t.Run("publish failure does not fail ingestion", func(t *testing.T) {
		store := &fakeStore{}
		svc := NewTransactionService(store, &recordingPublisher{err: errors.New("broker down")})

		id, err := svc.Ingest(context.Background(), validTransaction())
		if err != nil {
			t.Fatalf("Ingest() error = %v, want nil despite publish failure", err)
		}
		if id == "" {
			t.Error("Ingest() returned empty id")
		}
	})

	t.Run("nil publisher is tolerated", func(t *testing.T) {
		store := &fakeStore{}
		svc := NewTransactionService(store, nil)

		if _, err := svc.Ingest(context.Background(), validTransaction()); err != nil {
			t.Errorf("Ingest() error = %v, want nil", err)
		}
	})
}
