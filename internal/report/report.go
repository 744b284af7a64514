// Package report aggregates recent ledger entries into a validation report:
// per-state score statistics and per-day volumes over a trailing window.
// It is a downstream reader of verified ledger contents and never writes to
// the ledger itself.
package report

import (
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sawpanic/sigledger/internal/atomicio"
	"github.com/sawpanic/sigledger/internal/ledger"
)

// StateStats summarizes scores for one verdict state.
type StateStats struct {
	Count     int     `json:"count"`
	MeanScore float64 `json:"mean_score"`
	MinScore  float64 `json:"min_score"`
	MaxScore  float64 `json:"max_score"`
}

// Report is the aggregate over the trailing window.
type Report struct {
	GeneratedAt  time.Time             `json:"generated_at"`
	WindowDays   int                   `json:"window_days"`
	TotalEntries int                   `json:"total_entries"`
	PerState     map[string]StateStats `json:"per_state"`
	PerDay       map[string]int        `json:"per_day"`
}

// Builder reads the ledger store and produces reports.
type Builder struct {
	store *ledger.Store
}

// NewBuilder wires a Builder to the ledger store.
func NewBuilder(store *ledger.Store) *Builder {
	return &Builder{store: store}
}

// Build aggregates every partition within the trailing window of days ending
// at now. Partitions older than the cutoff are skipped by name without being
// read. A malformed partition aborts the report: reports are only meaningful
// over a ledger that parses.
func (b *Builder) Build(days int, now time.Time) (*Report, error) {
	if days <= 0 {
		return nil, fmt.Errorf("window must be positive, got %d days", days)
	}
	cutoff := now.UTC().AddDate(0, 0, -days)

	names, err := b.store.Partitions()
	if err != nil {
		return nil, err
	}

	rep := &Report{
		GeneratedAt: now.UTC(),
		WindowDays:  days,
		PerState:    make(map[string]StateStats),
		PerDay:      make(map[string]int),
	}

	sums := make(map[string]float64)
	for _, name := range names {
		day, err := ledger.PartitionDate(name)
		if err != nil {
			log.Warn().Str("partition", name).Msg("skipping non-date partition name")
			continue
		}
		if day.Before(cutoff) {
			continue
		}

		entries, err := b.store.ReadPartition(name)
		if err != nil {
			return nil, fmt.Errorf("report over partition %s: %w", name, err)
		}

		for _, e := range entries {
			rep.TotalEntries++
			rep.PerDay[day.Format("2006-01-02")]++

			st := string(e.State)
			stats := rep.PerState[st]
			if stats.Count == 0 {
				stats.MinScore = math.Inf(1)
				stats.MaxScore = math.Inf(-1)
			}
			stats.Count++
			stats.MinScore = math.Min(stats.MinScore, e.Score)
			stats.MaxScore = math.Max(stats.MaxScore, e.Score)
			sums[st] += e.Score
			rep.PerState[st] = stats
		}
	}

	for st, stats := range rep.PerState {
		stats.MeanScore = sums[st] / float64(stats.Count)
		rep.PerState[st] = stats
	}
	return rep, nil
}

// Write persists the report atomically as indented JSON.
func (b *Builder) Write(rep *Report, path string) error {
	if err := atomicio.WriteJSON(path, rep); err != nil {
		return err
	}
	log.Info().Str("path", path).Int("entries", rep.TotalEntries).Msg("report written")
	return nil
}
