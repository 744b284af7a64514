// Package datasources produces candidate verdicts for the ledger writer:
// a Postgres query for fresh verdicts and an HTTP enrichment pass that
// attaches price, supply, and market cap before the record is hashed.
package datasources

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"

	"github.com/sawpanic/sigledger/internal/ledger"
)

// VerdictSource reads confirmed verdicts from the token_state_60s table.
type VerdictSource struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewVerdictSource wraps an open sqlx handle.
func NewVerdictSource(db *sqlx.DB, timeout time.Duration) *VerdictSource {
	return &VerdictSource{db: db, timeout: timeout}
}

// Open connects to Postgres and verifies the connection.
func Open(url string, timeout time.Duration) (*VerdictSource, error) {
	db, err := sqlx.Connect("postgres", url)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	return NewVerdictSource(db, timeout), nil
}

// Close releases the underlying connection pool.
func (s *VerdictSource) Close() error { return s.db.Close() }

type verdictRow struct {
	Token   string          `db:"token"`
	Verdict string          `db:"verdict"`
	Score   sql.NullFloat64 `db:"score"`
	EndsAt  time.Time       `db:"timestamp_utc"`
}

const verdictQuery = `
	SELECT
		token,
		verdict,
		credibility AS score,
		window_ends_at AS timestamp_utc
	FROM token_state_60s
	WHERE verdict IN ('BREAKOUT_CONFIRMED', 'ACCUMULATION', 'BREAKOUT_EARLY', 'UNWIND')
	  AND window_ends_at >= NOW() - ($1 * INTERVAL '1 minute')
	ORDER BY window_ends_at ASC`

// FetchNewVerdicts returns candidates from the last minutesBack minutes in
// ascending timestamp order. A NULL credibility becomes score 0.0;
// timestamps are normalized to ISO-8601 UTC.
func (s *VerdictSource) FetchNewVerdicts(ctx context.Context, minutesBack int) ([]ledger.Candidate, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var rows []verdictRow
	if err := s.db.SelectContext(ctx, &rows, verdictQuery, minutesBack); err != nil {
		return nil, fmt.Errorf("%w: fetch verdicts: %v", ledger.ErrTransient, err)
	}

	candidates := make([]ledger.Candidate, 0, len(rows))
	for _, row := range rows {
		score := 0.0
		if row.Score.Valid {
			score = row.Score.Float64
		}
		candidates = append(candidates, ledger.Candidate{
			Asset:        row.Token,
			Score:        score,
			State:        ledger.State(row.Verdict),
			TimestampUTC: row.EndsAt.UTC().Format(time.RFC3339),
		})
	}

	log.Debug().Int("count", len(candidates)).Int("minutes_back", minutesBack).Msg("fetched candidate verdicts")
	return candidates, nil
}
