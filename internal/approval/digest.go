// Package approval builds and verifies the signing digests that bind a
// participant's off-core signature to one specific obligation.
//
// A digest commits to the deployment (via the domain tag), the split, the
// participant, the split's stored token and payer, the amount, the approval
// deadline and a signer-chosen salt. Any change to any of these yields a
// different digest, so a signature cannot be replayed against another split,
// another deployment, or a re-priced obligation.
package approval

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"github.com/decred/dcrd/crypto/blake256"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

const (
	// DigestSize is the size of an approval digest in bytes.
	DigestSize = 32

	// SaltSize is the size of the signer-chosen salt in bytes.
	SaltSize = 32

	// SignatureSize is the size of a compact recoverable signature in bytes:
	// 1-byte recovery code followed by the 32-byte R and S values.
	SignatureSize = 65

	// schemeTag names the digest layout. Bump the version suffix if the field
	// layout below ever changes, so old signatures cannot verify against the
	// new encoding.
	schemeTag = "splitpay/approval/v1"
)

// Domain is the per-deployment domain-separation tag. It is computed once at
// startup and never changes for the lifetime of the deployment; digests from
// one deployment are meaningless to every other.
type Domain struct {
	tag [32]byte
}

// NewDomain derives the domain tag for a deployment. networkID names the
// environment the coordinator settles against (for example "simnet" or
// "mainnet"); instanceID names this particular deployment within it.
func NewDomain(networkID, instanceID string) Domain {
	h := blake256.New()
	h.Write([]byte(schemeTag))
	h.Write([]byte{0x00})
	h.Write([]byte(networkID))
	h.Write([]byte{0x00})
	h.Write([]byte(instanceID))

	var d Domain
	copy(d.tag[:], h.Sum(nil))
	return d
}

// Tag returns the 32-byte domain tag.
func (d Domain) Tag() [32]byte {
	return d.tag
}

// Digest computes the approval digest for one obligation. The field layout is
// fixed-width: variable-length inputs (the token identifier) are hashed to 32
// bytes first, so no two field encodings can collide across boundaries.
func (d Domain) Digest(splitID uint64, participant, payer *secp256k1.PublicKey,
	token string, amount uint64, deadline int64, salt [SaltSize]byte) [DigestSize]byte {

	tokenHash := blake256.Sum256([]byte(token))

	var buf [8]byte
	h := blake256.New()
	h.Write(d.tag[:])
	binary.BigEndian.PutUint64(buf[:], splitID)
	h.Write(buf[:])
	h.Write(participant.SerializeCompressed())
	h.Write(tokenHash[:])
	h.Write(payer.SerializeCompressed())
	binary.BigEndian.PutUint64(buf[:], amount)
	h.Write(buf[:])
	binary.BigEndian.PutUint64(buf[:], uint64(deadline))
	h.Write(buf[:])
	h.Write(salt[:])

	var digest [DigestSize]byte
	copy(digest[:], h.Sum(nil))
	return digest
}

// ParseIdentity decodes a hex-encoded compressed secp256k1 public key.
func ParseIdentity(s string) (*secp256k1.PublicKey, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("bad identity %q: %w", s, err)
	}
	if len(b) != secp256k1.PubKeyBytesLenCompressed {
		return nil, fmt.Errorf("bad identity %q: want %d bytes, got %d",
			s, secp256k1.PubKeyBytesLenCompressed, len(b))
	}
	return secp256k1.ParsePubKey(b)
}

// IdentityString encodes a public key in the canonical identity form used
// throughout the store and the API: lowercase hex of the compressed key.
func IdentityString(pub *secp256k1.PublicKey) string {
	return hex.EncodeToString(pub.SerializeCompressed())
}
