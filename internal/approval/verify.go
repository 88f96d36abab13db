package approval

import (
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
)

// Verify reports whether sig is a valid compact recoverable signature over
// digest whose recovered key equals participant.
//
// Verification never faults: a malformed signature, a failed recovery or a
// recovered-key mismatch all report false. The settlement engine decides what
// a false means for the batch.
func Verify(digest [DigestSize]byte, sig [SignatureSize]byte, participant *secp256k1.PublicKey) bool {
	recovered, _, err := ecdsa.RecoverCompact(sig[:], digest[:])
	if err != nil {
		return false
	}
	return recovered.IsEqual(participant)
}
