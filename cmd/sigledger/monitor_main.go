package main

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/sawpanic/sigledger/internal/config"
	"github.com/sawpanic/sigledger/internal/ledger"
)

func newMonitorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "monitor",
		Short: "Serve /health and /metrics for the ledger",
		RunE:  runMonitor,
	}
	cmd.Flags().String("listen", "", "Listen address (overrides config)")
	return cmd
}

type healthResponse struct {
	Status     string `json:"status"`
	Partitions int    `json:"partitions"`
	LastEntry  string `json:"last_entry_hash,omitempty"`
	LastAsset  string `json:"last_asset,omitempty"`
}

func healthHandler(store *ledger.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		// Headers must be set before the status line goes out.
		w.Header().Set("Content-Type", "application/json")
		resp := healthResponse{Status: "ok"}

		names, err := store.Partitions()
		if err != nil {
			resp.Status = "degraded"
			w.WriteHeader(http.StatusServiceUnavailable)
		} else {
			resp.Partitions = len(names)
			if last, _, err := store.LastEntry(); err == nil && last != nil {
				resp.LastEntry = last.EntryHash
				resp.LastAsset = last.Asset
			}
		}

		json.NewEncoder(w).Encode(resp)
	}
}

func runMonitor(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	listen, _ := cmd.Flags().GetString("listen")

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if listen == "" {
		listen = cfg.Monitor.Listen
	}

	store := ledger.NewStore(cfg.Ledger.Dir)

	r := mux.NewRouter()
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/health", healthHandler(store)).Methods(http.MethodGet)

	srv := &http.Server{
		Addr:         listen,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	log.Info().Str("listen", listen).Msg("monitor server starting")
	return srv.ListenAndServe()
}
