// Package engine implements the settlement engine: split creation rules and
// the all-or-nothing settlement pipeline.
package engine

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/mmynk/splitpay/internal/approval"
	"github.com/mmynk/splitpay/internal/ledger"
	"github.com/mmynk/splitpay/internal/metrics"
	"github.com/mmynk/splitpay/internal/models"
	"github.com/mmynk/splitpay/internal/storage"
)

// Creation errors (malformed requests).
var (
	ErrEmptyLegs            = errors.New("split must have at least one leg")
	ErrZeroAmount           = errors.New("leg amount must be positive")
	ErrDuplicateParticipant = errors.New("duplicate participant leg")
	ErrBadMetaHash          = errors.New("meta hash must be 32 bytes of hex")
	ErrTotalOverflow        = errors.New("total amount overflows")
)

// Settlement errors.
var (
	ErrBusy                  = errors.New("another settlement is in progress")
	ErrAlreadySettled        = errors.New("split already settled")
	ErrSplitExpired          = errors.New("split deadline passed")
	ErrApprovalExpired       = errors.New("approval deadline passed")
	ErrBatchMismatch         = errors.New("batch must cover every leg exactly once")
	ErrDuplicateEntry        = errors.New("participant appears twice in batch")
	ErrNotParticipant        = errors.New("not a participant of this split")
	ErrAmountMismatch        = errors.New("claimed amount does not match recorded leg")
	ErrAlreadyApproved       = errors.New("participant already approved")
	ErrBadSignature          = errors.New("signature did not verify")
	ErrInsufficientAllowance = errors.New("spending allowance below owed amount")
	ErrTransferFailed        = errors.New("token transfer failed")
)

// Config carries the deployment identity. NetworkID and InstanceID feed the
// digest domain tag; Spender is the coordinator's account on the external
// ledger, the one participants grant allowances to.
type Config struct {
	NetworkID  string
	InstanceID string
	Spender    string
}

// Coordinator validates approval batches against the split ledger and drives
// atomic settlements through the external token ledger.
type Coordinator struct {
	store  storage.Store
	tokens ledger.TokenLedger
	domain approval.Domain
	spender string

	// settleMu serializes settlements globally and, through TryLock, rejects
	// reentrant calls from a hostile token ledger instead of deadlocking on
	// them. Held for the full duration of Settle, released on every path.
	settleMu sync.Mutex
}

// New creates a Coordinator. The domain tag is derived once here and never
// recomputed; signatures are only valid against this exact deployment.
func New(store storage.Store, tokens ledger.TokenLedger, cfg Config) *Coordinator {
	return &Coordinator{
		store:   store,
		tokens:  tokens,
		domain:  approval.NewDomain(cfg.NetworkID, cfg.InstanceID),
		spender: cfg.Spender,
	}
}

// Domain exposes the deployment's digest domain so signers and tests can
// produce digests that match the coordinator's.
func (c *Coordinator) Domain() approval.Domain {
	return c.domain
}

// CreateSplit validates and stores a new split. No funds move. Any violated
// precondition rejects the whole request; no partial split is ever created.
func (c *Coordinator) CreateSplit(ctx context.Context, payer, token string, legs []models.Leg, deadline int64, metaHash string) (*models.Split, error) {
	if _, err := approval.ParseIdentity(payer); err != nil {
		return nil, fmt.Errorf("bad payer: %w", err)
	}
	if token == "" {
		return nil, errors.New("token must not be empty")
	}
	if len(legs) == 0 {
		return nil, ErrEmptyLegs
	}
	if metaHash != "" {
		if b, err := hex.DecodeString(metaHash); err != nil || len(b) != 32 {
			return nil, ErrBadMetaHash
		}
	}

	seen := make(map[string]struct{}, len(legs))
	var total uint64
	for _, leg := range legs {
		if _, err := approval.ParseIdentity(leg.Participant); err != nil {
			return nil, fmt.Errorf("bad participant: %w", err)
		}
		if leg.Amount == 0 {
			return nil, fmt.Errorf("%w: %s", ErrZeroAmount, leg.Participant)
		}
		if _, dup := seen[leg.Participant]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateParticipant, leg.Participant)
		}
		seen[leg.Participant] = struct{}{}
		if leg.Amount > math.MaxUint64-total {
			return nil, ErrTotalOverflow
		}
		total += leg.Amount
	}

	split := &models.Split{
		Payer:       payer,
		Token:       token,
		TotalAmount: total,
		Deadline:    deadline,
		MetaHash:    metaHash,
		Legs:        legs,
	}
	if err := c.store.CreateSplit(ctx, split); err != nil {
		return nil, err
	}

	metrics.SplitsCreated.Inc()
	slog.Info("split created",
		"split_id", split.ID,
		"payer", payer,
		"token", token,
		"total", total,
		"legs", len(legs),
		"deadline", deadline,
	)
	return split, nil
}

// RequiredAmount reports the amount participant owes in the split.
func (c *Coordinator) RequiredAmount(ctx context.Context, splitID uint64, participant string) (uint64, error) {
	return c.store.RequiredAmount(ctx, splitID, participant)
}

// GetSplit retrieves a split and its legs.
func (c *Coordinator) GetSplit(ctx context.Context, splitID uint64) (*models.Split, error) {
	return c.store.GetSplit(ctx, splitID)
}

// ListEvents returns the split's event log.
func (c *Coordinator) ListEvents(ctx context.Context, splitID uint64) ([]*models.Event, error) {
	return c.store.ListEvents(ctx, splitID)
}

// ApprovalDigest computes the digest a participant must sign for their leg.
// Token and payer come from the stored split, never from the caller.
func (c *Coordinator) ApprovalDigest(ctx context.Context, splitID uint64, participant string, deadline int64, salt [approval.SaltSize]byte) ([approval.DigestSize]byte, error) {
	var digest [approval.DigestSize]byte

	split, err := c.store.GetSplit(ctx, splitID)
	if err != nil {
		return digest, err
	}
	amount := split.RequiredAmount(participant)
	if amount == 0 {
		return digest, ErrNotParticipant
	}
	pubP, err := approval.ParseIdentity(participant)
	if err != nil {
		return digest, err
	}
	pubPayer, err := approval.ParseIdentity(split.Payer)
	if err != nil {
		return digest, err
	}
	return c.domain.Digest(splitID, pubP, pubPayer, split.Token, amount, deadline, salt), nil
}

// Settle validates the presented batch of approvals and, if every entry
// passes, moves every share to the payer and marks the split settled, all of
// it atomically. Any failing entry rejects the whole batch with no effect.
func (c *Coordinator) Settle(ctx context.Context, splitID uint64, entries []models.ApprovalEntry) error {
	if !c.settleMu.TryLock() {
		return ErrBusy
	}
	defer c.settleMu.Unlock()

	err := c.settle(ctx, splitID, entries)
	metrics.Settlements.WithLabelValues(outcome(err)).Inc()
	if err != nil {
		slog.Warn("settlement rejected", "split_id", splitID, "entries", len(entries), "error", err)
	}
	return err
}

func (c *Coordinator) settle(ctx context.Context, splitID uint64, entries []models.ApprovalEntry) error {
	split, err := c.store.GetSplit(ctx, splitID)
	if err != nil {
		return err
	}
	if split.Settled {
		return ErrAlreadySettled
	}

	now := time.Now().Unix()
	if split.Deadline != 0 && now > split.Deadline {
		return ErrSplitExpired
	}

	// Every leg must be covered exactly once. Together with the per-entry
	// amount match and duplicate rejection below, equal lengths guarantee a
	// bijection between entries and legs.
	if len(entries) != len(split.Legs) {
		return fmt.Errorf("%w: %d entries for %d legs", ErrBatchMismatch, len(entries), len(split.Legs))
	}

	payerKey, err := approval.ParseIdentity(split.Payer)
	if err != nil {
		return fmt.Errorf("stored payer corrupt: %w", err)
	}

	required := make(map[string]uint64, len(split.Legs))
	for _, leg := range split.Legs {
		required[leg.Participant] = leg.Amount
	}

	inBatch := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		if _, dup := inBatch[e.Participant]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateEntry, e.Participant)
		}
		inBatch[e.Participant] = struct{}{}

		want, ok := required[e.Participant]
		if !ok {
			return fmt.Errorf("%w: %s", ErrNotParticipant, e.Participant)
		}
		if e.Amount != want {
			return fmt.Errorf("%w: %s claimed %d, owes %d", ErrAmountMismatch, e.Participant, e.Amount, want)
		}
		if e.Deadline != 0 && now > e.Deadline {
			return fmt.Errorf("%w: %s", ErrApprovalExpired, e.Participant)
		}

		approved, err := c.store.Approved(ctx, splitID, e.Participant)
		if err != nil {
			return err
		}
		if approved {
			return fmt.Errorf("%w: %s", ErrAlreadyApproved, e.Participant)
		}

		pub, err := approval.ParseIdentity(e.Participant)
		if err != nil {
			return fmt.Errorf("%w: %s", ErrBadSignature, e.Participant)
		}
		digest := c.domain.Digest(splitID, pub, payerKey, split.Token, e.Amount, e.Deadline, e.Salt)
		if !approval.Verify(digest, e.Signature, pub) {
			return fmt.Errorf("%w: %s", ErrBadSignature, e.Participant)
		}
	}

	// Allowances are checked for the whole batch before anything moves, so a
	// short allowance on the last entry cannot strand earlier approvals.
	for _, e := range entries {
		granted, err := c.tokens.Allowance(ctx, split.Token, e.Participant, c.spender)
		if err != nil {
			return fmt.Errorf("allowance query failed for %s: %w", e.Participant, err)
		}
		if granted < e.Amount {
			return fmt.Errorf("%w: %s granted %d, owes %d", ErrInsufficientAllowance, e.Participant, granted, e.Amount)
		}
	}

	transfers := make([]ledger.Transfer, len(entries))
	for i, e := range entries {
		transfers[i] = ledger.Transfer{Owner: e.Participant, Amount: e.Amount}
	}

	err = c.store.Settle(ctx, splitID, split.Legs, func() error {
		if err := c.tokens.TransferBatch(ctx, split.Token, c.spender, split.Payer, transfers); err != nil {
			return fmt.Errorf("%w: %v", ErrTransferFailed, err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, storage.ErrAlreadySettled) {
			return ErrAlreadySettled
		}
		return err
	}

	metrics.TransfersMoved.Add(float64(split.TotalAmount))
	slog.Info("split settled",
		"split_id", splitID,
		"payer", split.Payer,
		"token", split.Token,
		"total", split.TotalAmount,
		"participants", len(entries),
	)
	return nil
}

// outcome maps a settlement result to its metrics label.
func outcome(err error) string {
	switch {
	case err == nil:
		return "settled"
	case errors.Is(err, ErrBusy):
		return "busy"
	case errors.Is(err, storage.ErrSplitNotFound):
		return "not_found"
	case errors.Is(err, ErrAlreadySettled):
		return "already_settled"
	case errors.Is(err, ErrSplitExpired), errors.Is(err, ErrApprovalExpired):
		return "expired"
	case errors.Is(err, ErrBatchMismatch), errors.Is(err, ErrDuplicateEntry):
		return "batch_mismatch"
	case errors.Is(err, ErrNotParticipant), errors.Is(err, ErrAmountMismatch):
		return "amount_mismatch"
	case errors.Is(err, ErrAlreadyApproved):
		return "replay"
	case errors.Is(err, ErrBadSignature):
		return "bad_signature"
	case errors.Is(err, ErrInsufficientAllowance):
		return "insufficient_allowance"
	case errors.Is(err, ErrTransferFailed):
		return "transfer_failed"
	default:
		return "error"
	}
}
