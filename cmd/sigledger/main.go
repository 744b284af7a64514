package main

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

const (
	appName = "sigledger"
	version = "v1.1.0"
)

func main() {
	setupLogging()

	rootCmd := &cobra.Command{
		Use:     appName,
		Short:   "Append-only, tamper-evident signal ledger",
		Version: version,
		Long: `sigledger emits trading signal verdicts into an append-only, tamper-evident
ledger. Each entry is chained to its predecessor by a SHA-256 content hash and
signed with Ed25519, so any party holding only the public key can detect
tampering, reordering, or deletion.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().String("config", "config.yaml", "Path to YAML config file")

	rootCmd.AddCommand(newAppendCmd())
	rootCmd.AddCommand(newVerifyCmd())
	rootCmd.AddCommand(newKeygenCmd())
	rootCmd.AddCommand(newReportCmd())
	rootCmd.AddCommand(newMonitorCmd())

	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}

// setupLogging emits human-readable console output on a TTY and JSON lines
// otherwise.
func setupLogging() {
	zerolog.TimeFieldFormat = time.RFC3339
	if term.IsTerminal(int(os.Stderr.Fd())) {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
}
