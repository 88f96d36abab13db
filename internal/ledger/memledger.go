package ledger

import (
	"context"
	"fmt"
	"sync"
)

// Ensure MemLedger implements TokenLedger
var _ TokenLedger = (*MemLedger)(nil)

// MemLedger is an in-memory token ledger with balances and spending
// allowances. It backs tests and single-node development deployments.
type MemLedger struct {
	mu sync.Mutex

	// balances[token][account]
	balances map[string]map[string]uint64
	// allowances[token][owner][spender]
	allowances map[string]map[string]map[string]uint64
}

// NewMemLedger creates an empty in-memory ledger.
func NewMemLedger() *MemLedger {
	return &MemLedger{
		balances:   make(map[string]map[string]uint64),
		allowances: make(map[string]map[string]map[string]uint64),
	}
}

// Mint credits amount of token to account.
func (l *MemLedger) Mint(token, account string, amount uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.balances[token] == nil {
		l.balances[token] = make(map[string]uint64)
	}
	l.balances[token][account] += amount
}

// Approve sets (not adds to) the allowance owner grants spender for token.
func (l *MemLedger) Approve(token, owner, spender string, amount uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.allowances[token] == nil {
		l.allowances[token] = make(map[string]map[string]uint64)
	}
	if l.allowances[token][owner] == nil {
		l.allowances[token][owner] = make(map[string]uint64)
	}
	l.allowances[token][owner][spender] = amount
}

// Balance reports account's balance of token.
func (l *MemLedger) Balance(token, account string) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[token][account]
}

// Allowance reports how much owner has authorized spender to move.
func (l *MemLedger) Allowance(_ context.Context, token, owner, spender string) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.allowances[token][owner][spender], nil
}

// TransferFrom moves amount from owner to recipient against owner's allowance
// to spender. Refusals report ok=false, never an error.
func (l *MemLedger) TransferFrom(_ context.Context, token, spender, owner, recipient string, amount uint64) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.check(token, spender, owner, amount); err != nil {
		return false, nil
	}
	l.apply(token, spender, owner, recipient, amount)
	return true, nil
}

// TransferBatch applies every transfer or none. All transfers are checked
// against allowances and balances before the first one is applied, under a
// single lock, so a failing entry leaves the ledger untouched.
func (l *MemLedger) TransferBatch(_ context.Context, token, spender, recipient string, transfers []Transfer) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	// Owners may appear once per batch; sum per owner anyway so the check
	// stays correct if a caller ever presents several transfers per owner.
	need := make(map[string]uint64, len(transfers))
	for _, t := range transfers {
		need[t.Owner] += t.Amount
	}
	for owner, amount := range need {
		if err := l.check(token, spender, owner, amount); err != nil {
			return fmt.Errorf("transfer from %s refused: %w", owner, err)
		}
	}

	for _, t := range transfers {
		l.apply(token, spender, t.Owner, recipient, t.Amount)
	}
	return nil
}

// check validates a prospective transfer. Caller holds l.mu.
func (l *MemLedger) check(token, spender, owner string, amount uint64) error {
	if l.allowances[token][owner][spender] < amount {
		return ErrInsufficientAllowance
	}
	if l.balances[token][owner] < amount {
		return ErrInsufficientBalance
	}
	return nil
}

// apply executes a checked transfer and consumes allowance. Caller holds l.mu.
func (l *MemLedger) apply(token, spender, owner, recipient string, amount uint64) {
	if amount == 0 {
		return
	}
	l.allowances[token][owner][spender] -= amount
	l.balances[token][owner] -= amount
	l.balances[token][recipient] += amount
}
