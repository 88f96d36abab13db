package approval

import (
	"testing"

	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
)

func TestVerify(t *testing.T) {
	key := testKey(t)
	payer := testKey(t)
	domain := NewDomain("simnet", "test")
	var salt [SaltSize]byte
	salt[5] = 0xaa

	digest := domain.Digest(7, key.PubKey(), payer.PubKey(), "usdx", 250, 0, salt)

	var sig [SignatureSize]byte
	copy(sig[:], ecdsa.SignCompact(key, digest[:], true))

	if !Verify(digest, sig, key.PubKey()) {
		t.Fatal("valid signature did not verify")
	}

	t.Run("wrong signer", func(t *testing.T) {
		other := testKey(t)
		if Verify(digest, sig, other.PubKey()) {
			t.Error("signature verified against a key that did not sign")
		}
	})

	t.Run("mutated digest", func(t *testing.T) {
		mutated := digest
		mutated[0] ^= 0x01
		if Verify(mutated, sig, key.PubKey()) {
			t.Error("signature verified against a mutated digest")
		}
	})

	t.Run("mutated signature", func(t *testing.T) {
		bad := sig
		bad[33] ^= 0x01
		if Verify(digest, bad, key.PubKey()) {
			t.Error("mutated signature verified")
		}
	})

	t.Run("garbage signature", func(t *testing.T) {
		var garbage [SignatureSize]byte
		if Verify(digest, garbage, key.PubKey()) {
			t.Error("zero signature verified")
		}
	})
}
