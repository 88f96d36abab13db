package sqlite

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/mmynk/splitpay/internal/models"
	"github.com/mmynk/splitpay/internal/storage"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

// Identities in store tests are opaque strings; key validity is the engine's
// concern, not the store's.
func testSplit(payer string, legs ...models.Leg) *models.Split {
	var total uint64
	for _, leg := range legs {
		total += leg.Amount
	}
	return &models.Split{
		Payer:       payer,
		Token:       "usdx",
		TotalAmount: total,
		Legs:        legs,
	}
}

func TestSQLiteStore(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	t.Run("CreateSplit assigns monotonic IDs", func(t *testing.T) {
		first := testSplit("payer1", models.Leg{Participant: "a", Amount: 100})
		second := testSplit("payer1", models.Leg{Participant: "b", Amount: 50})

		if err := store.CreateSplit(ctx, first); err != nil {
			t.Fatalf("CreateSplit failed: %v", err)
		}
		if err := store.CreateSplit(ctx, second); err != nil {
			t.Fatalf("CreateSplit failed: %v", err)
		}
		if first.ID == 0 {
			t.Error("expected first split ID to be assigned")
		}
		if second.ID <= first.ID {
			t.Errorf("expected IDs to increase: first=%d second=%d", first.ID, second.ID)
		}
		if first.CreatedAt == 0 {
			t.Error("expected CreatedAt to be set")
		}
	})

	t.Run("GetSplit retrieves complete split", func(t *testing.T) {
		original := testSplit("payer2",
			models.Leg{Participant: "alice", Amount: 100},
			models.Leg{Participant: "bob", Amount: 50},
		)
		original.Deadline = 12345
		original.MetaHash = "00ff"

		if err := store.CreateSplit(ctx, original); err != nil {
			t.Fatalf("CreateSplit failed: %v", err)
		}

		retrieved, err := store.GetSplit(ctx, original.ID)
		if err != nil {
			t.Fatalf("GetSplit failed: %v", err)
		}
		if retrieved.Payer != "payer2" || retrieved.Token != "usdx" {
			t.Errorf("split fields mismatch: %+v", retrieved)
		}
		if retrieved.TotalAmount != 150 {
			t.Errorf("TotalAmount = %d, want 150", retrieved.TotalAmount)
		}
		if retrieved.Deadline != 12345 || retrieved.MetaHash != "00ff" {
			t.Errorf("deadline/meta mismatch: %+v", retrieved)
		}
		if retrieved.Settled {
			t.Error("new split must not be settled")
		}
		if len(retrieved.Legs) != 2 {
			t.Fatalf("got %d legs, want 2", len(retrieved.Legs))
		}
		// Legs come back in creation order.
		if retrieved.Legs[0].Participant != "alice" || retrieved.Legs[0].Amount != 100 {
			t.Errorf("leg 0 = %+v", retrieved.Legs[0])
		}
		if retrieved.Legs[1].Participant != "bob" || retrieved.Legs[1].Amount != 50 {
			t.Errorf("leg 1 = %+v", retrieved.Legs[1])
		}
	})

	t.Run("GetSplit returns ErrSplitNotFound", func(t *testing.T) {
		_, err := store.GetSplit(ctx, 999999)
		if !errors.Is(err, storage.ErrSplitNotFound) {
			t.Errorf("err = %v, want ErrSplitNotFound", err)
		}
	})

	t.Run("duplicate participant rejected by schema", func(t *testing.T) {
		dup := testSplit("payer3",
			models.Leg{Participant: "carol", Amount: 10},
			models.Leg{Participant: "carol", Amount: 20},
		)
		if err := store.CreateSplit(ctx, dup); err == nil {
			t.Error("expected duplicate participant legs to fail creation")
		}
		// The whole creation rolled back; no partial split exists.
		if dup.ID != 0 {
			if _, err := store.GetSplit(ctx, dup.ID); !errors.Is(err, storage.ErrSplitNotFound) {
				t.Errorf("partial split persisted: %v", err)
			}
		}
	})

	t.Run("RequiredAmount", func(t *testing.T) {
		split := testSplit("payer4",
			models.Leg{Participant: "dave", Amount: 75},
		)
		if err := store.CreateSplit(ctx, split); err != nil {
			t.Fatalf("CreateSplit failed: %v", err)
		}

		amount, err := store.RequiredAmount(ctx, split.ID, "dave")
		if err != nil {
			t.Fatalf("RequiredAmount failed: %v", err)
		}
		if amount != 75 {
			t.Errorf("amount = %d, want 75", amount)
		}

		if _, err := store.RequiredAmount(ctx, split.ID, "mallory"); !errors.Is(err, storage.ErrNotParticipant) {
			t.Errorf("err = %v, want ErrNotParticipant", err)
		}
		if _, err := store.RequiredAmount(ctx, 999999, "dave"); !errors.Is(err, storage.ErrSplitNotFound) {
			t.Errorf("err = %v, want ErrSplitNotFound", err)
		}
	})
}

func TestSQLiteStoreSettle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	newSettleable := func(t *testing.T) *models.Split {
		split := testSplit("payer",
			models.Leg{Participant: "alice", Amount: 100},
			models.Leg{Participant: "bob", Amount: 50},
		)
		if err := store.CreateSplit(ctx, split); err != nil {
			t.Fatalf("CreateSplit failed: %v", err)
		}
		return split
	}

	t.Run("commit on successful transfer", func(t *testing.T) {
		split := newSettleable(t)
		transferred := false
		err := store.Settle(ctx, split.ID, split.Legs, func() error {
			transferred = true
			return nil
		})
		if err != nil {
			t.Fatalf("Settle failed: %v", err)
		}
		if !transferred {
			t.Fatal("transfer callback never ran")
		}

		after, err := store.GetSplit(ctx, split.ID)
		if err != nil {
			t.Fatalf("GetSplit failed: %v", err)
		}
		if !after.Settled {
			t.Error("split not marked settled")
		}
		for _, p := range []string{"alice", "bob"} {
			approved, err := store.Approved(ctx, split.ID, p)
			if err != nil {
				t.Fatalf("Approved failed: %v", err)
			}
			if !approved {
				t.Errorf("%s approval flag not set", p)
			}
		}

		events, err := store.ListEvents(ctx, split.ID)
		if err != nil {
			t.Fatalf("ListEvents failed: %v", err)
		}
		// created + 2 approvals + settled
		if len(events) != 4 {
			t.Fatalf("got %d events, want 4", len(events))
		}
		if events[0].Kind != models.EventSplitCreated {
			t.Errorf("event 0 kind = %s", events[0].Kind)
		}
		if events[1].Kind != models.EventParticipantApproved || events[1].Participant != "alice" || events[1].Amount != 100 {
			t.Errorf("event 1 = %+v", events[1])
		}
		if events[2].Kind != models.EventParticipantApproved || events[2].Participant != "bob" {
			t.Errorf("event 2 = %+v", events[2])
		}
		if events[3].Kind != models.EventSplitSettled || events[3].Amount != 150 {
			t.Errorf("event 3 = %+v", events[3])
		}
	})

	t.Run("rollback on failed transfer", func(t *testing.T) {
		split := newSettleable(t)
		wantErr := fmt.Errorf("ledger down")
		err := store.Settle(ctx, split.ID, split.Legs, func() error {
			return wantErr
		})
		if !errors.Is(err, wantErr) {
			t.Fatalf("Settle err = %v, want the transfer error", err)
		}

		after, err := store.GetSplit(ctx, split.ID)
		if err != nil {
			t.Fatalf("GetSplit failed: %v", err)
		}
		if after.Settled {
			t.Error("failed settlement left split settled")
		}
		for _, p := range []string{"alice", "bob"} {
			approved, err := store.Approved(ctx, split.ID, p)
			if err != nil {
				t.Fatalf("Approved failed: %v", err)
			}
			if approved {
				t.Errorf("failed settlement left %s approved", p)
			}
		}
		events, err := store.ListEvents(ctx, split.ID)
		if err != nil {
			t.Fatalf("ListEvents failed: %v", err)
		}
		if len(events) != 1 {
			t.Errorf("failed settlement left %d events, want only split_created", len(events))
		}
	})

	t.Run("settle twice rejected", func(t *testing.T) {
		split := newSettleable(t)
		if err := store.Settle(ctx, split.ID, split.Legs, func() error { return nil }); err != nil {
			t.Fatalf("first Settle failed: %v", err)
		}
		err := store.Settle(ctx, split.ID, split.Legs, func() error { return nil })
		if !errors.Is(err, storage.ErrAlreadySettled) {
			t.Errorf("second Settle err = %v, want ErrAlreadySettled", err)
		}
	})
}
