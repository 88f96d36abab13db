package models

// Split represents a bill-splitting event: one payer fronted a payment and each
// participant owes the payer a fixed share of one token.
type Split struct {
	// ID is the split identifier, allocated monotonically by the store.
	ID uint64

	// Payer is the identity that receives funds on settlement.
	// Hex-encoded compressed secp256k1 public key. Immutable.
	Payer string

	// Token identifies the fungible asset being moved. Immutable.
	Token string

	// TotalAmount is the sum of all leg amounts, fixed at creation.
	TotalAmount uint64

	// CreatedAt is the Unix timestamp when the split was created.
	CreatedAt int64

	// Deadline is the Unix timestamp after which settlement is refused.
	// Zero means no expiry.
	Deadline int64

	// MetaHash is an opaque hex-encoded 32-byte hash of off-core metadata
	// (receipt, description). Not interpreted anywhere in the core.
	MetaHash string

	// Settled flips to true exactly once, on successful settlement.
	Settled bool

	// Legs are the obligations owed within this split, in creation order.
	Legs []Leg
}

// Leg is one participant's share within a split. Amounts are strictly positive;
// zero is reserved by the required-amount lookup to mean "not a participant".
type Leg struct {
	// Participant is the identity owing this share.
	// Hex-encoded compressed secp256k1 public key.
	Participant string

	// Amount owed, in the token's smallest unit.
	Amount uint64
}

// RequiredAmount returns the amount owed by participant, or zero if the
// participant holds no leg in this split.
func (s *Split) RequiredAmount(participant string) uint64 {
	for _, leg := range s.Legs {
		if leg.Participant == participant {
			return leg.Amount
		}
	}
	return 0
}

// ApprovalEntry is one participant's signed authorization within a settlement batch.
type ApprovalEntry struct {
	// Participant claiming this entry.
	Participant string

	// Amount the participant claims to owe. Must match the recorded leg.
	Amount uint64

	// Deadline is the Unix timestamp after which this approval expires.
	// Zero means no expiry. Chosen by the signer and bound into the digest.
	Deadline int64

	// Salt is signer-chosen randomness bound into the digest so that re-signing
	// the same obligation yields a fresh digest.
	Salt [32]byte

	// Signature is the 65-byte compact recoverable secp256k1 signature over
	// the approval digest.
	Signature [65]byte
}
