// Package models defines the core domain models for splitpay.
//
// # Models
//
//   - Split: one bill-splitting event with a payer, a token, and the share owed to
//     the payer by each participant
//   - Leg: one participant's fixed share within a split
//   - ApprovalEntry: a participant's signed authorization to pull their share
//   - Event: an audit-log record written atomically with the state change it describes
//
// Identities are hex-encoded 33-byte compressed secp256k1 public keys. Amounts are
// unsigned integers in the token's smallest unit; fractional amounts do not exist at
// this layer.
//
// # Lifecycle
//
// A split is created once, together with all of its legs, and after that mutates in
// exactly one way: its Settled flag flips to true on a successful settlement. Legs never
// change after creation. Approval flags (kept by the storage layer, not modeled here)
// move from false to true once and never reset.
package models
