// Package storage provides abstractions for the authoritative split store.
package storage

import (
	"context"
	"errors"

	"github.com/mmynk/splitpay/internal/models"
)

var (
	// ErrSplitNotFound is returned when a split ID resolves to nothing.
	ErrSplitNotFound = errors.New("split not found")

	// ErrNotParticipant is returned by RequiredAmount when the identity holds
	// no leg in the split.
	ErrNotParticipant = errors.New("not a participant")

	// ErrAlreadySettled is returned when Settle is called for a split whose
	// settled flag is already set.
	ErrAlreadySettled = errors.New("split already settled")
)

// Store is the authoritative record of splits, legs, approval flags and the
// event log. It owns all of that state; nothing else writes it. The
// abstraction allows swapping storage backends without changing the engine.
type Store interface {
	// CreateSplit persists a new split together with all of its legs and a
	// split_created event, atomically. The split's ID and CreatedAt fields
	// are populated by the store; IDs increase monotonically.
	CreateSplit(ctx context.Context, split *models.Split) error

	// GetSplit retrieves a split and its legs in creation order.
	GetSplit(ctx context.Context, splitID uint64) (*models.Split, error)

	// RequiredAmount reports the amount participant owes in the split.
	// Returns ErrNotParticipant for identities holding no leg; a returned
	// amount is therefore always positive.
	RequiredAmount(ctx context.Context, splitID uint64, participant string) (uint64, error)

	// Approved reports whether the participant's approval flag is set for
	// the split. Flags only ever move from false to true.
	Approved(ctx context.Context, splitID uint64, participant string) (bool, error)

	// Settle marks every listed participant approved, flips the split's
	// settled flag and records the matching events, all in one transaction.
	// transfer runs after the mutations are staged and before they commit;
	// if it returns an error the transaction is rolled back and no effect
	// persists. This is what makes fund movement and state commit atomic.
	Settle(ctx context.Context, splitID uint64, legs []models.Leg, transfer func() error) error

	// ListEvents returns the split's event log, oldest first.
	ListEvents(ctx context.Context, splitID uint64) ([]*models.Event, error)

	// Close releases any resources held by the store.
	Close() error
}
