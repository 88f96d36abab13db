// Package signer produces the off-core approval signatures consumed by the
// settlement engine. It is the participant's side of the protocol: wallets,
// tests and the signctl CLI use it; the coordinator itself never signs.
package signer

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"

	"github.com/mmynk/splitpay/internal/approval"
)

// Request carries everything a participant must commit to when authorizing
// a pull of their share. Token and Payer must be read from the stored split,
// not trusted from whoever assembled the batch.
type Request struct {
	SplitID  uint64
	Payer    string
	Token    string
	Amount   uint64
	Deadline int64
	Salt     [approval.SaltSize]byte
}

// NewSalt returns fresh signer-chosen randomness for one approval.
func NewSalt() ([approval.SaltSize]byte, error) {
	var salt [approval.SaltSize]byte
	if _, err := rand.Read(salt[:]); err != nil {
		return salt, fmt.Errorf("failed to generate salt: %w", err)
	}
	return salt, nil
}

// Sign computes the approval digest for req under domain and signs it with
// key, returning the 65-byte compact recoverable signature.
func Sign(domain approval.Domain, key *secp256k1.PrivateKey, req Request) ([approval.SignatureSize]byte, error) {
	var sig [approval.SignatureSize]byte

	payer, err := approval.ParseIdentity(req.Payer)
	if err != nil {
		return sig, fmt.Errorf("bad payer: %w", err)
	}

	digest := domain.Digest(req.SplitID, key.PubKey(), payer, req.Token,
		req.Amount, req.Deadline, req.Salt)

	compact := ecdsa.SignCompact(key, digest[:], true)
	copy(sig[:], compact)
	return sig, nil
}

// GenerateKey returns a fresh participant key pair.
func GenerateKey() (*secp256k1.PrivateKey, error) {
	return secp256k1.GeneratePrivateKey()
}

// ParseKey decodes a hex-encoded 32-byte private key.
func ParseKey(s string) (*secp256k1.PrivateKey, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("bad private key: %w", err)
	}
	if len(b) != 32 {
		return nil, fmt.Errorf("bad private key: want 32 bytes, got %d", len(b))
	}
	return secp256k1.PrivKeyFromBytes(b), nil
}
