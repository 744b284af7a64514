package ledger

import "errors"

// Sentinel errors for the ledger failure taxonomy. Integrity and signature
// failures are terminal findings and must never be downgraded by callers;
// transient errors are retryable.
var (
	// ErrKeyMissing: no usable private or public key at construction.
	ErrKeyMissing = errors.New("ledger: signing key missing or unusable")

	// ErrInvalidInput: malformed previous hash, empty entry hash, or an
	// entry missing required fields. Rejects the single call, not the batch.
	ErrInvalidInput = errors.New("ledger: invalid input")

	// ErrIntegrity: recomputed hash does not match the stored entry hash.
	ErrIntegrity = errors.New("ledger: integrity failure")

	// ErrSignature: the Ed25519 check failed against the recomputed hash.
	ErrSignature = errors.New("ledger: signature invalid")

	// ErrTransient: storage or network failure, eligible for retry.
	ErrTransient = errors.New("ledger: transient I/O failure")
)
