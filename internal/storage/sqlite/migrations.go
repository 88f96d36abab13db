package sqlite

import "database/sql"

// migrations contains the SQL statements to set up the database schema.
// These run on startup to ensure tables exist.
//
// The UNIQUE(split_id, participant) constraint on legs backs the "one leg per
// participant" invariant even if a second writer ever appears, and doubles as
// the keyed lookup index for required-amount queries.
const schema = `
CREATE TABLE IF NOT EXISTS splits (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    payer TEXT NOT NULL,
    token TEXT NOT NULL,
    total_amount INTEGER NOT NULL,
    created_at INTEGER NOT NULL,
    deadline INTEGER NOT NULL DEFAULT 0,
    meta_hash TEXT NOT NULL DEFAULT '',
    settled INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS legs (
    split_id INTEGER NOT NULL,
    leg_index INTEGER NOT NULL,
    participant TEXT NOT NULL,
    amount INTEGER NOT NULL,
    PRIMARY KEY (split_id, leg_index),
    UNIQUE (split_id, participant),
    FOREIGN KEY (split_id) REFERENCES splits(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS approvals (
    split_id INTEGER NOT NULL,
    participant TEXT NOT NULL,
    approved_at INTEGER NOT NULL,
    PRIMARY KEY (split_id, participant),
    FOREIGN KEY (split_id) REFERENCES splits(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS events (
    id TEXT PRIMARY KEY,
    split_id INTEGER NOT NULL,
    kind TEXT NOT NULL,
    participant TEXT NOT NULL DEFAULT '',
    amount INTEGER NOT NULL DEFAULT 0,
    created_at INTEGER NOT NULL,
    FOREIGN KEY (split_id) REFERENCES splits(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_legs_split_id ON legs(split_id);
CREATE INDEX IF NOT EXISTS idx_events_split_id ON events(split_id);
`

// runMigrations executes the schema setup.
func runMigrations(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}
