package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/AgenticDao/CryptoA2A/internal/models"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(context.Background(), filepath.Join(t.TempDir(), "a2a.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(s.Close)
	return s
}

func saveTestTransaction(t *testing.T, s *SQLiteStore, id string, status models.TransactionStatus) {
	t.Helper()
	err := s.SaveTransaction(context.Background(), &models.Transaction{
		ID:        id,
		From:      "agent-1",
		To:        "0x2222222222222222222222222222222222222222",
		Value:     "100",
		Chain:     "ethereum",
		Status:    status,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestUpdateTransactionStatus(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	saveTestTransaction(t, s, "tx-1", models.StatusPending)

	if err := s.UpdateTransactionStatus(ctx, "tx-1", models.StatusConfirmed); err != nil {
		t.Fatal(err)
	}
	got, err := s.GetTransaction(ctx, "tx-1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != models.StatusConfirmed {
		t.Fatalf("status = %q", got.Status)
	}

	// Writing the same terminal status again is a no-op, not a conflict.
	if err := s.UpdateTransactionStatus(ctx, "tx-1", models.StatusConfirmed); err != nil {
		t.Fatalf("idempotent terminal write: %v", err)
	}
}

func TestUpdateTransactionStatusTerminalGuard(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	saveTestTransaction(t, s, "tx-1", models.StatusConfirmed)

	err := s.UpdateTransactionStatus(ctx, "tx-1", models.StatusPending)
	if !errors.Is(err, ErrStatusConflict) {
		t.Fatalf("regression from confirmed: %v", err)
	}

	got, err := s.GetTransaction(ctx, "tx-1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != models.StatusConfirmed {
		t.Fatalf("terminal status was overwritten: %q", got.Status)
	}
}

func TestUpdateTransactionStatusUnknownID(t *testing.T) {
	s := newTestStore(t)

	err := s.UpdateTransactionStatus(context.Background(), "no-such-tx", models.StatusConfirmed)
	if !errors.Is(err, ErrTransactionNotFound) {
		t.Fatalf("missing row must not read as a conflict: %v", err)
	}
}

func TestSaveTransactionUpsert(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	saveTestTransaction(t, s, "tx-1", "")

	updated := &models.Transaction{
		ID:        "tx-1",
		From:      "agent-1",
		To:        "0x2222222222222222222222222222222222222222",
		Value:     "100",
		Chain:     "ethereum",
		Signed:    true,
		Signature: "sig",
		Hash:      "0xabc",
		Status:    models.StatusPending,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.SaveTransaction(ctx, updated); err != nil {
		t.Fatal(err)
	}

	got, err := s.GetTransaction(ctx, "tx-1")
	if err != nil {
		t.Fatal(err)
	}
	if !got.Signed || got.Signature != "sig" || got.Hash != "0xabc" || got.Status != models.StatusPending {
		t.Fatalf("upsert lost fields: %+v", got)
	}

	byHash, err := s.GetTransactionByHash(ctx, "0xabc")
	if err != nil {
		t.Fatal(err)
	}
	if byHash == nil || byHash.ID != "tx-1" {
		t.Fatalf("lookup by hash: %+v", byHash)
	}
}
