// Package sqlite provides a SQLite-backed implementation of the storage.Store interface.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"github.com/mmynk/splitpay/internal/models"
	"github.com/mmynk/splitpay/internal/storage"
)

// Ensure SQLiteStore implements storage.Store
var _ storage.Store = (*SQLiteStore)(nil)

// SQLiteStore implements storage.Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// New creates a new SQLiteStore with the given database path.
// It creates the parent directories and runs migrations automatically.
func New(dbPath string) (*SQLiteStore, error) {
	// Create parent directory if it doesn't exist
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// Open database with pure Go driver
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	// Run migrations
	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateSplit persists a new split, its legs and the split_created event in
// one transaction. The caller has already validated the split; the legs
// UNIQUE constraint is the last line of defense against duplicate
// participants.
func (s *SQLiteStore) CreateSplit(ctx context.Context, split *models.Split) error {
	if split.CreatedAt == 0 {
		split.CreatedAt = time.Now().Unix()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		"INSERT INTO splits (payer, token, total_amount, created_at, deadline, meta_hash, settled) VALUES (?, ?, ?, ?, ?, ?, 0)",
		split.Payer, split.Token, int64(split.TotalAmount), split.CreatedAt, split.Deadline, split.MetaHash,
	)
	if err != nil {
		return fmt.Errorf("failed to insert split: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read split id: %w", err)
	}
	split.ID = uint64(id)

	for i, leg := range split.Legs {
		_, err = tx.ExecContext(ctx,
			"INSERT INTO legs (split_id, leg_index, participant, amount) VALUES (?, ?, ?, ?)",
			int64(split.ID), i, leg.Participant, int64(leg.Amount),
		)
		if err != nil {
			return fmt.Errorf("failed to insert leg: %w", err)
		}
	}

	if err := insertEvent(ctx, tx, &models.Event{
		SplitID:   split.ID,
		Kind:      models.EventSplitCreated,
		Amount:    split.TotalAmount,
		CreatedAt: split.CreatedAt,
	}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// GetSplit retrieves a split by ID, including all legs in creation order.
func (s *SQLiteStore) GetSplit(ctx context.Context, splitID uint64) (*models.Split, error) {
	split := &models.Split{}
	var total, amount int64
	err := s.db.QueryRowContext(ctx,
		"SELECT id, payer, token, total_amount, created_at, deadline, meta_hash, settled FROM splits WHERE id = ?",
		int64(splitID),
	).Scan(&split.ID, &split.Payer, &split.Token, &total, &split.CreatedAt, &split.Deadline, &split.MetaHash, &split.Settled)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %d", storage.ErrSplitNotFound, splitID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get split: %w", err)
	}
	split.TotalAmount = uint64(total)

	rows, err := s.db.QueryContext(ctx,
		"SELECT participant, amount FROM legs WHERE split_id = ? ORDER BY leg_index",
		int64(splitID),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get legs: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var leg models.Leg
		if err := rows.Scan(&leg.Participant, &amount); err != nil {
			return nil, fmt.Errorf("failed to scan leg: %w", err)
		}
		leg.Amount = uint64(amount)
		split.Legs = append(split.Legs, leg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate legs: %w", err)
	}

	return split, nil
}

// RequiredAmount reports the amount participant owes in the split. The legs
// UNIQUE index keys the lookup, so this stays a point query regardless of how
// many legs a split carries.
func (s *SQLiteStore) RequiredAmount(ctx context.Context, splitID uint64, participant string) (uint64, error) {
	var amount int64
	err := s.db.QueryRowContext(ctx,
		"SELECT amount FROM legs WHERE split_id = ? AND participant = ?",
		int64(splitID), participant,
	).Scan(&amount)
	if err == sql.ErrNoRows {
		// Distinguish "unknown split" from "known split, unknown participant".
		var one int
		if err := s.db.QueryRowContext(ctx, "SELECT 1 FROM splits WHERE id = ?", int64(splitID)).Scan(&one); err == sql.ErrNoRows {
			return 0, fmt.Errorf("%w: %d", storage.ErrSplitNotFound, splitID)
		} else if err != nil {
			return 0, fmt.Errorf("failed to check split existence: %w", err)
		}
		return 0, storage.ErrNotParticipant
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get required amount: %w", err)
	}
	return uint64(amount), nil
}

// Approved reports whether the participant's approval flag is set.
func (s *SQLiteStore) Approved(ctx context.Context, splitID uint64, participant string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		"SELECT 1 FROM approvals WHERE split_id = ? AND participant = ?",
		int64(splitID), participant,
	).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check approval: %w", err)
	}
	return true, nil
}
