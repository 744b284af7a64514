package ledger

import (
	"context"
	"errors"
	"os"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/sawpanic/sigledger/internal/metrics"
)

// Writer appends deduplicated, chained, signed entries to the active daily
// partition. Single-writer model: exactly one process may append at a time;
// the writer provides no locking of its own.
type Writer struct {
	store          *Store
	signer         *Signer
	rulesetVersion string
	index          *IdentityIndex
	now            func() time.Time
}

// WriterOption customizes a Writer.
type WriterOption func(*Writer)

// WithIdentityIndex attaches a Redis identity index used to skip the
// chain-wide dedup scan once warmed.
func WithIdentityIndex(ix *IdentityIndex) WriterOption {
	return func(w *Writer) { w.index = ix }
}

// WithClock overrides the wall clock. Tests use it to pin the active
// partition.
func WithClock(now func() time.Time) WriterOption {
	return func(w *Writer) { w.now = now }
}

// NewWriter wires a Writer to its store and signer. The signer is injected,
// never constructed internally, so key ownership stays with the caller.
func NewWriter(store *Store, signer *Signer, rulesetVersion string, opts ...WriterOption) *Writer {
	w := &Writer{
		store:          store,
		signer:         signer,
		rulesetVersion: rulesetVersion,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Append admits a batch of candidates to the ledger and returns the count
// actually appended. Per batch: load chain state, then for each candidate in
// ascending timestamp order run dedup, build, hash, sign, persist, and
// advance the chain tip. Chaining is strictly sequential. Duplicates (same
// asset + timestamp anywhere in the logical chain) are skipped without
// error, and a candidate that fails validation is rejected alone — the rest
// of the batch still chains.
func (w *Writer) Append(ctx context.Context, candidates []Candidate) (int, error) {
	if len(candidates) == 0 {
		return 0, nil
	}

	batchID := uuid.New().String()
	logger := log.With().Str("batch_id", batchID).Logger()

	// Stable ascending-timestamp order keeps the chain's temporal order
	// aligned with record order.
	sorted := make([]Candidate, len(candidates))
	copy(sorted, candidates)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].TimestampUTC < sorted[j].TimestampUTC
	})

	previousHash, err := w.loadChainTip()
	if err != nil {
		return 0, err
	}

	seen, err := w.loadIdentities(ctx)
	if err != nil {
		return 0, err
	}

	partition := w.store.PartitionFor(w.now())
	appended := 0
	skipped := 0
	rejected := 0

	for i := range sorted {
		c := &sorted[i]
		if !c.State.Valid() {
			// One bad record never sinks the batch.
			logger.Warn().
				Str("asset", c.Asset).
				Str("state", string(c.State)).
				Msg("rejecting candidate with unknown state")
			rejected++
			metrics.CandidatesRejected.Inc()
			continue
		}

		id := c.IdentityKey()
		if _, dup := seen[id]; dup {
			logger.Debug().Str("identity", id).Msg("skipping duplicate candidate")
			skipped++
			metrics.DuplicatesSkipped.Inc()
			continue
		}

		entry := &Entry{
			Asset:          c.Asset,
			Score:          c.Score,
			State:          c.State,
			RulesetVersion: w.rulesetVersion,
			TimestampUTC:   c.TimestampUTC,
			PriceUSD:       c.PriceUSD,
			MarketCap:      c.MarketCap,
			SupplyTotal:    c.SupplyTotal,
			PreviousHash:   previousHash,
		}

		entryHash, err := ComputeEntryHash(entry, previousHash)
		if err != nil {
			return appended, err
		}
		entry.EntryHash = entryHash

		signature, err := w.signer.Sign(entryHash)
		if err != nil {
			return appended, err
		}
		entry.Signature = signature

		if err := w.store.Append(entry, partition); err != nil {
			return appended, err
		}

		previousHash = entryHash
		seen[id] = struct{}{}
		appended++
		metrics.EntriesAppended.Inc()

		if w.index != nil {
			if err := w.index.Add(ctx, id); err != nil {
				logger.Warn().Err(err).Msg("identity index add failed, continuing on file authority")
			}
		}
	}

	logger.Info().
		Str("partition", partition).
		Int("appended", appended).
		Int("skipped_duplicates", skipped).
		Int("rejected", rejected).
		Msg("append batch complete")
	return appended, nil
}

// loadChainTip resolves the previous hash to chain from: the last entry of
// the most recent non-empty partition. Genesis applies only when no
// partition holds any entry — a fresh daily partition after prior days must
// continue the chain, never restart it.
func (w *Writer) loadChainTip() (string, error) {
	last, _, err := w.store.LastEntry()
	if err != nil {
		return "", err
	}
	if last == nil {
		return Genesis, nil
	}
	return last.EntryHash, nil
}

// loadIdentities returns the identity keys of every entry in the chain.
// Prefers a warmed Redis index; otherwise scans the files and warms the
// index for next time. Any index failure degrades to the file scan.
func (w *Writer) loadIdentities(ctx context.Context) (map[string]struct{}, error) {
	if w.index != nil {
		ready, err := w.index.Ready(ctx)
		if err != nil {
			log.Warn().Err(err).Msg("identity index unavailable, falling back to partition scan")
		} else if ready {
			// Batch dedup still runs against an in-memory set; the index
			// pre-filters candidates already in the chain.
			keys, err := w.prefilter(ctx)
			if err == nil {
				return keys, nil
			}
			log.Warn().Err(err).Msg("identity index lookup failed, falling back to partition scan")
		}
	}

	keys, err := w.store.IdentityKeys()
	if err != nil {
		return nil, err
	}
	if w.index != nil {
		if err := w.index.Warm(ctx, keys); err != nil {
			log.Warn().Err(err).Msg("identity index warm failed")
		}
	}
	return keys, nil
}

// prefilter materializes the chain identity set from the warmed index,
// unioned with a fresh read of the active partition in case the index lost
// writes since the last warm.
func (w *Writer) prefilter(ctx context.Context) (map[string]struct{}, error) {
	keys, err := w.index.Members(ctx)
	if err != nil {
		return nil, err
	}

	active := w.store.PartitionFor(w.now())
	entries, err := w.store.ReadPartition(active)
	switch {
	case err == nil:
	case errors.Is(err, os.ErrNotExist):
		// Nothing written today yet.
		return keys, nil
	default:
		// Malformed line or a real read failure: the index alone is not
		// trustworthy, let the caller fall back to the full scan.
		return nil, err
	}
	for _, e := range entries {
		keys[e.IdentityKey()] = struct{}{}
	}
	return keys, nil
}
