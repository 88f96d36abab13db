package models

// EventKind distinguishes the audit-log record types.
type EventKind string

const (
	// EventSplitCreated is recorded when a split and its legs are stored.
	EventSplitCreated EventKind = "split_created"
	// EventParticipantApproved is recorded for each participant whose signature
	// was accepted during a successful settlement.
	EventParticipantApproved EventKind = "participant_approved"
	// EventSplitSettled is recorded when a split settles in full.
	EventSplitSettled EventKind = "split_settled"
)

// Event is one audit-log record. Events are written in the same storage
// transaction as the state change they describe, so the log never shows an
// effect that was later rolled back.
type Event struct {
	// ID is the unique identifier for the event (UUID format).
	ID string

	// SplitID is the split this event belongs to.
	SplitID uint64

	// Kind is the event type.
	Kind EventKind

	// Participant is set for participant_approved events, empty otherwise.
	Participant string

	// Amount is the amount moved or owed, where the kind carries one.
	Amount uint64

	// CreatedAt is the Unix timestamp when the event was recorded.
	CreatedAt int64
}
