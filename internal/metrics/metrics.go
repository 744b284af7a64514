package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Ledger counters. Registered on the default registry and exposed by the
// monitor command via promhttp.
var (
	EntriesAppended = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sigledger_entries_appended_total",
		Help: "Entries appended to the ledger",
	})

	DuplicatesSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sigledger_duplicates_skipped_total",
		Help: "Candidates skipped because their identity already exists in the chain",
	})

	CandidatesRejected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sigledger_candidates_rejected_total",
		Help: "Candidates rejected before signing for failing validation",
	})

	VerifyFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sigledger_verify_failures_total",
		Help: "Chain verification failures by kind",
	}, []string{"kind"})

	EnrichmentErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sigledger_enrichment_errors_total",
		Help: "Enrichment lookup failures by source",
	}, []string{"source"})
)
