package ledger

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
)

// Genesis is the sentinel previous-hash for the very first entry in the
// entire chain. No later entry, in any partition, may use it.
const Genesis = "GENESIS"

var hexDigestRe = regexp.MustCompile(`^[0-9a-f]{64}$`)

// ValidPreviousHash reports whether s is an admissible previous-hash value:
// a 64-character lowercase hex digest or the Genesis sentinel.
func ValidPreviousHash(s string) bool {
	return s == Genesis || hexDigestRe.MatchString(s)
}

// ComputeEntryHash computes the chained content hash of an entry:
//
//	SHA-256( canonical(entry fields + previous_hash) || previous_hash )
//
// rendered as lowercase hex. EntryHash and Signature are excluded from the
// payload. The function is pure; the verifier depends on two calls with the
// same logical input producing byte-identical output.
func ComputeEntryHash(e *Entry, previousHash string) (string, error) {
	if !ValidPreviousHash(previousHash) {
		return "", fmt.Errorf("%w: previous hash must be a 64-char hex digest or %q", ErrInvalidInput, Genesis)
	}

	payload, err := canonicalBytes(e.hashFields(previousHash))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	h := sha256.New()
	h.Write(payload)
	h.Write([]byte(previousHash))
	return hex.EncodeToString(h.Sum(nil)), nil
}
