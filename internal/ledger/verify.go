package ledger

import (
	"crypto/ed25519"
	"encoding/base64"
	"encoding/hex"
	"fmt"
)

// Verifier checks single entries against the known public key. It is
// read-only and safe for concurrent use.
type Verifier struct {
	pub ed25519.PublicKey
}

// NewVerifier builds a Verifier from a hex-encoded Ed25519 public key.
func NewVerifier(pubHex string) (*Verifier, error) {
	if pubHex == "" {
		return nil, fmt.Errorf("%w: public key required", ErrKeyMissing)
	}
	pub, err := hex.DecodeString(pubHex)
	if err != nil {
		return nil, fmt.Errorf("%w: public key is not valid hex", ErrKeyMissing)
	}
	if len(pub) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("%w: public key must be %d bytes, got %d", ErrKeyMissing, ed25519.PublicKeySize, len(pub))
	}
	return &Verifier{pub: ed25519.PublicKey(pub)}, nil
}

// VerifyEntry re-derives the entry hash from the entry's own fields and its
// claimed previous hash, then checks the signature against it. Failure order
// is fixed: a malformed entry (missing signature, entry hash, or previous
// hash) fails before any cryptography runs, and a hash mismatch fails before
// the signature is examined. The returned error wraps ErrInvalidInput,
// ErrIntegrity, or ErrSignature so callers can classify the failure.
func (v *Verifier) VerifyEntry(e *Entry) error {
	if e.Signature == "" || e.EntryHash == "" || e.PreviousHash == "" {
		return fmt.Errorf("%w: entry missing signature, entry_hash, or previous_hash", ErrInvalidInput)
	}

	computed, err := ComputeEntryHash(e, e.PreviousHash)
	if err != nil {
		return err
	}
	if computed != e.EntryHash {
		return fmt.Errorf("%w: claimed %s, computed %s", ErrIntegrity, e.EntryHash, computed)
	}

	sig, err := base64.StdEncoding.DecodeString(e.Signature)
	if err != nil {
		return fmt.Errorf("%w: signature is not valid base64", ErrSignature)
	}
	if !ed25519.Verify(v.pub, []byte(computed), sig) {
		return fmt.Errorf("%w: signature does not verify for entry hash %s", ErrSignature, computed)
	}
	return nil
}

// PublicKey returns the hex verification key this Verifier was built with.
func (v *Verifier) PublicKey() string {
	return hex.EncodeToString(v.pub)
}
