package ledger

import (
	"context"
	"testing"
)

func TestMemLedgerTransferFrom(t *testing.T) {
	ctx := context.Background()
	l := NewMemLedger()
	l.Mint("usdx", "alice", 100)
	l.Approve("usdx", "alice", "coordinator", 60)

	ok, err := l.TransferFrom(ctx, "usdx", "coordinator", "alice", "payer", 50)
	if err != nil || !ok {
		t.Fatalf("TransferFrom failed: ok=%v err=%v", ok, err)
	}
	if got := l.Balance("usdx", "alice"); got != 50 {
		t.Errorf("alice balance = %d, want 50", got)
	}
	if got := l.Balance("usdx", "payer"); got != 50 {
		t.Errorf("payer balance = %d, want 50", got)
	}

	// Allowance is consumed: 60 - 50 = 10 left.
	granted, err := l.Allowance(ctx, "usdx", "alice", "coordinator")
	if err != nil {
		t.Fatalf("Allowance failed: %v", err)
	}
	if granted != 10 {
		t.Errorf("remaining allowance = %d, want 10", granted)
	}

	ok, err = l.TransferFrom(ctx, "usdx", "coordinator", "alice", "payer", 20)
	if err != nil {
		t.Fatalf("TransferFrom errored: %v", err)
	}
	if ok {
		t.Error("transfer above remaining allowance was not refused")
	}
}

func TestMemLedgerTransferBatchAtomic(t *testing.T) {
	ctx := context.Background()
	l := NewMemLedger()
	l.Mint("usdx", "alice", 100)
	l.Mint("usdx", "bob", 40) // bob owes 50 but only holds 40
	l.Approve("usdx", "alice", "coordinator", 100)
	l.Approve("usdx", "bob", "coordinator", 50)

	err := l.TransferBatch(ctx, "usdx", "coordinator", "payer", []Transfer{
		{Owner: "alice", Amount: 100},
		{Owner: "bob", Amount: 50},
	})
	if err == nil {
		t.Fatal("batch with an uncovered transfer did not fail")
	}

	// Nothing moved, nothing consumed.
	if got := l.Balance("usdx", "alice"); got != 100 {
		t.Errorf("alice balance = %d, want 100 after failed batch", got)
	}
	if got := l.Balance("usdx", "payer"); got != 0 {
		t.Errorf("payer balance = %d, want 0 after failed batch", got)
	}
	if granted, _ := l.Allowance(ctx, "usdx", "alice", "coordinator"); granted != 100 {
		t.Errorf("alice allowance = %d, want 100 after failed batch", granted)
	}

	// Top bob up and the same batch goes through whole.
	l.Mint("usdx", "bob", 10)
	if err := l.TransferBatch(ctx, "usdx", "coordinator", "payer", []Transfer{
		{Owner: "alice", Amount: 100},
		{Owner: "bob", Amount: 50},
	}); err != nil {
		t.Fatalf("TransferBatch failed: %v", err)
	}
	if got := l.Balance("usdx", "payer"); got != 150 {
		t.Errorf("payer balance = %d, want 150", got)
	}
	if got := l.Balance("usdx", "alice"); got != 0 {
		t.Errorf("alice balance = %d, want 0", got)
	}
	if got := l.Balance("usdx", "bob"); got != 0 {
		t.Errorf("bob balance = %d, want 0", got)
	}
}
