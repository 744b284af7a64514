package ledger

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"
)

// Signer holds the process-lifetime Ed25519 private key and produces
// detached signatures over entry hashes. Construct it once at startup and
// pass it to the writer explicitly; it never exposes the private key.
type Signer struct {
	priv ed25519.PrivateKey
}

// NewSigner builds a Signer from a 32-byte hex seed. An empty or malformed
// seed is fatal: signing cannot proceed without a key.
func NewSigner(seedHex string) (*Signer, error) {
	seedHex = strings.TrimSpace(seedHex)
	if seedHex == "" {
		return nil, ErrKeyMissing
	}
	seed, err := hex.DecodeString(seedHex)
	if err != nil {
		return nil, fmt.Errorf("%w: private key is not valid hex", ErrKeyMissing)
	}
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("%w: private key seed must be %d bytes, got %d", ErrKeyMissing, ed25519.SeedSize, len(seed))
	}
	return &Signer{priv: ed25519.NewKeyFromSeed(seed)}, nil
}

// Sign signs the UTF-8 bytes of the hex entry hash — not the raw digest
// bytes. That asymmetry is a frozen wire-format decision; verification
// replicates it exactly. Returns the detached signature, base64-encoded.
func (s *Signer) Sign(entryHash string) (string, error) {
	if entryHash == "" {
		return "", fmt.Errorf("%w: entry hash cannot be empty", ErrInvalidInput)
	}
	sig := ed25519.Sign(s.priv, []byte(entryHash))
	return base64.StdEncoding.EncodeToString(sig), nil
}

// PublicKey returns the hex verification key for distribution to verifiers.
func (s *Signer) PublicKey() string {
	return hex.EncodeToString(s.priv.Public().(ed25519.PublicKey))
}

// GenerateKeypair produces a fresh (private seed, public key) hex pair for
// provisioning. Not part of the hot write path.
func GenerateKeypair() (privHex, pubHex string, err error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return "", "", fmt.Errorf("generate keypair: %w", err)
	}
	return hex.EncodeToString(priv.Seed()), hex.EncodeToString(pub), nil
}
