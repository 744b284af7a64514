package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/sawpanic/sigledger/internal/config"
	"github.com/sawpanic/sigledger/internal/ledger"
	"github.com/sawpanic/sigledger/internal/report"
)

func newReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Aggregate recent ledger entries into a validation report",
		RunE:  runReport,
	}
	cmd.Flags().Int("days", 30, "Trailing window in days")
	cmd.Flags().String("out", "reports/validation.json", "Output path for the JSON report")
	return cmd
}

func runReport(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	days, _ := cmd.Flags().GetInt("days")
	outPath, _ := cmd.Flags().GetString("out")

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	builder := report.NewBuilder(ledger.NewStore(cfg.Ledger.Dir))
	rep, err := builder.Build(days, time.Now())
	if err != nil {
		return err
	}
	return builder.Write(rep, outPath)
}
