// Package ledger defines the external token-ledger collaborator the settlement
// engine moves funds through. The coordinator never holds balances itself; it
// spends pre-granted allowances on the owners' behalf.
package ledger

import (
	"context"
	"errors"
)

var (
	// ErrInsufficientAllowance is returned when a transfer exceeds what the
	// owner has authorized the spender to move.
	ErrInsufficientAllowance = errors.New("insufficient allowance")

	// ErrInsufficientBalance is returned when an owner's balance cannot cover
	// a transfer.
	ErrInsufficientBalance = errors.New("insufficient balance")
)

// Transfer is one owner-to-recipient movement within a batch. The recipient
// and token are common to the whole batch.
type Transfer struct {
	Owner  string
	Amount uint64
}

// TokenLedger is the interface the settlement engine consumes. Implementations
// are external systems; the in-memory implementation in this package exists for
// tests and single-node development.
type TokenLedger interface {
	// Allowance reports how much owner has authorized spender to move.
	Allowance(ctx context.Context, token, owner, spender string) (uint64, error)

	// TransferFrom moves amount of token from owner to recipient, drawing on
	// the allowance owner granted spender. A refusal (insufficient allowance
	// or balance) is reported as ok=false with a nil error; err is reserved
	// for the ledger itself failing.
	TransferFrom(ctx context.Context, token, spender, owner, recipient string, amount uint64) (ok bool, err error)

	// TransferBatch applies every transfer to recipient, or none of them.
	// The all-or-nothing contract is what lets the engine promise atomic
	// settlement: implementations must not retain partial effects on error.
	TransferBatch(ctx context.Context, token, spender, recipient string, transfers []Transfer) error
}
