package ledger

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/sawpanic/sigledger/internal/metrics"
)

// FailureKind classifies a verification failure.
type FailureKind string

const (
	FailMalformed        FailureKind = "malformed"
	FailMissingField     FailureKind = "missing_field"
	FailHashMismatch     FailureKind = "hash_mismatch"
	FailSignatureInvalid FailureKind = "signature_invalid"
	FailLinkageBroken    FailureKind = "linkage_broken"
)

// Failure is one point of divergence found during verification.
type Failure struct {
	Partition string      `json:"partition"`
	Line      int         `json:"line"`
	Kind      FailureKind `json:"kind"`
	Detail    string      `json:"detail"`
}

func (f Failure) String() string {
	return fmt.Sprintf("%s line %d: %s (%s)", f.Partition, f.Line, f.Kind, f.Detail)
}

// Outcome is the structured result of replaying one or more partitions. The
// chain is valid only when Failures is empty; the first failure is always
// the earliest point of divergence in replay order.
type Outcome struct {
	Valid      bool      `json:"valid"`
	Partitions int       `json:"partitions"`
	Entries    int       `json:"entries"`
	Failures   []Failure `json:"failures,omitempty"`
}

// FirstFailure returns the earliest failure, or nil when valid.
func (o *Outcome) FirstFailure() *Failure {
	if len(o.Failures) == 0 {
		return nil
	}
	return &o.Failures[0]
}

func (o *Outcome) addFailure(partition string, line int, kind FailureKind, detail string) {
	o.Valid = false
	o.Failures = append(o.Failures, Failure{Partition: partition, Line: line, Kind: kind, Detail: detail})
	metrics.VerifyFailures.WithLabelValues(string(kind)).Inc()
}

// ChainVerifier replays partitions in chronological order and verifies every
// entry's hash and signature plus every chain link, including the links
// across partition boundaries. It never mutates the store and is safe to run
// concurrently with an appender.
type ChainVerifier struct {
	store    *Store
	verifier *Verifier
}

// NewChainVerifier wires a ChainVerifier to its store and entry verifier.
func NewChainVerifier(store *Store, verifier *Verifier) *ChainVerifier {
	return &ChainVerifier{store: store, verifier: verifier}
}

// VerifyPartition replays a single partition in isolation. The first entry's
// previous hash is unconstrained here; only VerifyChain can know what it
// should be. Malformed JSON aborts the partition at the offending line;
// hash, signature, and intra-partition linkage failures are all collected so
// every bad line is reported, with the earliest always first.
func (cv *ChainVerifier) VerifyPartition(name string) *Outcome {
	out := &Outcome{Valid: true, Partitions: 1}
	cv.verifyPartition(name, "", out)
	return out
}

// VerifyChain replays every partition in chronological order. The chain is
// valid only if each partition is valid and each partition's first entry
// links to the previous partition's last entry hash, with the very first
// entry anchored at Genesis. An empty partition set is vacuously valid.
func (cv *ChainVerifier) VerifyChain() (*Outcome, error) {
	names, err := cv.store.Partitions()
	if err != nil {
		return nil, err
	}

	out := &Outcome{Valid: true, Partitions: len(names)}
	expectPrev := Genesis
	for _, name := range names {
		expectPrev = cv.verifyPartition(name, expectPrev, out)
	}

	log.Info().
		Int("partitions", out.Partitions).
		Int("entries", out.Entries).
		Bool("valid", out.Valid).
		Msg("chain verification complete")
	return out, nil
}

// verifyPartition checks one partition and returns the expected previous
// hash for the next partition: the last entry hash seen, or expectPrev
// unchanged when the partition holds no entries. expectPrev == "" means the
// first entry's link is not checked.
func (cv *ChainVerifier) verifyPartition(name string, expectPrev string, out *Outcome) string {
	entries, err := cv.store.ReadPartition(name)
	if err != nil {
		var perr *ParseError
		if errors.As(err, &perr) {
			// Fail fast: a malformed line invalidates the whole partition.
			out.addFailure(name, perr.Line, FailMalformed, perr.Err.Error())
			return expectPrev
		}
		out.addFailure(name, 0, FailMalformed, err.Error())
		return expectPrev
	}

	for i, e := range entries {
		line := i + 1
		out.Entries++

		if expectPrev != "" && e.PreviousHash != expectPrev {
			out.addFailure(name, line, FailLinkageBroken,
				fmt.Sprintf("previous_hash %s does not link to prior entry hash %s", e.PreviousHash, expectPrev))
		}

		if err := cv.verifier.VerifyEntry(e); err != nil {
			out.addFailure(name, line, classify(err), err.Error())
		}

		if e.EntryHash != "" {
			expectPrev = e.EntryHash
		}
	}
	return expectPrev
}

// classify maps an entry verification error onto its failure kind. Malformed
// entries are surfaced distinctly from cryptographic failures.
func classify(err error) FailureKind {
	switch {
	case errors.Is(err, ErrIntegrity):
		return FailHashMismatch
	case errors.Is(err, ErrSignature):
		return FailSignatureInvalid
	case errors.Is(err, ErrInvalidInput):
		return FailMissingField
	default:
		return FailMalformed
	}
}
