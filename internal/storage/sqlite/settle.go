package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/splitpay/internal/models"
	"github.com/mmynk/splitpay/internal/storage"
)

// Settle stages the approval flags, the settled flag and the matching events
// in one transaction, runs the external transfer while they are staged, and
// commits only if the transfer succeeds. A transfer error rolls everything
// back, so no approval flag or settled flag can outlive a failed settlement.
func (s *SQLiteStore) Settle(ctx context.Context, splitID uint64, legs []models.Leg, transfer func() error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().Unix()

	var payer string
	var total int64
	err = tx.QueryRowContext(ctx,
		"SELECT payer, total_amount FROM splits WHERE id = ? AND settled = 0",
		int64(splitID),
	).Scan(&payer, &total)
	if err == sql.ErrNoRows {
		// Either the split never existed or it already settled; the engine
		// has already distinguished the two for its error reporting.
		return storage.ErrAlreadySettled
	}
	if err != nil {
		return fmt.Errorf("failed to load split for settlement: %w", err)
	}

	for _, leg := range legs {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO approvals (split_id, participant, approved_at) VALUES (?, ?, ?)",
			int64(splitID), leg.Participant, now,
		); err != nil {
			return fmt.Errorf("failed to insert approval: %w", err)
		}
		if err := insertEvent(ctx, tx, &models.Event{
			SplitID:     splitID,
			Kind:        models.EventParticipantApproved,
			Participant: leg.Participant,
			Amount:      leg.Amount,
			CreatedAt:   now,
		}); err != nil {
			return err
		}
	}

	res, err := tx.ExecContext(ctx, "UPDATE splits SET settled = 1 WHERE id = ? AND settled = 0", int64(splitID))
	if err != nil {
		return fmt.Errorf("failed to mark split settled: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("failed to check settled update: %w", err)
	} else if n != 1 {
		return storage.ErrAlreadySettled
	}

	if err := insertEvent(ctx, tx, &models.Event{
		SplitID:     splitID,
		Kind:        models.EventSplitSettled,
		Participant: payer,
		Amount:      uint64(total),
		CreatedAt:   now,
	}); err != nil {
		return err
	}

	// Funds move while our mutations are staged but uncommitted, so a
	// transfer failure unwinds the flags along with the settled bit.
	if err := transfer(); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit settlement: %w", err)
	}
	return nil
}

// ListEvents returns the split's event log, oldest first.
func (s *SQLiteStore) ListEvents(ctx context.Context, splitID uint64) ([]*models.Event, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, split_id, kind, participant, amount, created_at FROM events WHERE split_id = ? ORDER BY rowid",
		int64(splitID),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	var events []*models.Event
	for rows.Next() {
		ev := &models.Event{}
		var amount int64
		if err := rows.Scan(&ev.ID, &ev.SplitID, &ev.Kind, &ev.Participant, &amount, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		ev.Amount = uint64(amount)
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate events: %w", err)
	}
	return events, nil
}

// insertEvent writes one event row inside tx, generating the event ID.
func insertEvent(ctx context.Context, tx *sql.Tx, ev *models.Event) error {
	if ev.ID == "" {
		ev.ID = uuid.New().String()
	}
	_, err := tx.ExecContext(ctx,
		"INSERT INTO events (id, split_id, kind, participant, amount, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		ev.ID, int64(ev.SplitID), string(ev.Kind), ev.Participant, int64(ev.Amount), ev.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert event: %w", err)
	}
	return nil
}
