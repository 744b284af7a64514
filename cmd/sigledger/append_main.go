package main

import (
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/sawpanic/sigledger/internal/config"
	"github.com/sawpanic/sigledger/internal/datasources"
	"github.com/sawpanic/sigledger/internal/ledger"
	"github.com/sawpanic/sigledger/internal/secrets"
)

func newAppendCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "append",
		Short: "Fetch new verdicts and append them to the ledger",
		Long: `Fetches candidate verdicts from the database, enriches them with price and
supply data, and appends deduplicated, chained, signed entries to the active
daily partition. Duplicates (same asset and timestamp anywhere in the chain)
are skipped without error.`,
		RunE: runAppend,
	}
	cmd.Flags().Int("minutes-back", 60, "Verdict lookback window in minutes")
	cmd.Flags().Bool("no-enrich", false, "Skip price/supply enrichment")
	return cmd
}

func runAppend(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	minutesBack, _ := cmd.Flags().GetInt("minutes-back")
	noEnrich, _ := cmd.Flags().GetBool("no-enrich")

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if cfg.Database.URL == "" {
		return fmt.Errorf("database URL not configured (set database.url or SIGLEDGER_DATABASE_URL)")
	}

	ctx := cmd.Context()

	keySource := secrets.NewEnvSource(cfg.Ledger.PrivateKeyEnv)
	seedHex, err := keySource.PrivateKeyHex(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ledger.ErrKeyMissing, err)
	}
	signer, err := ledger.NewSigner(seedHex)
	if err != nil {
		return err
	}
	log.Info().Str("public_key", signer.PublicKey()).Msg("signer initialized")

	source, err := datasources.Open(cfg.Database.URL, time.Duration(cfg.Database.QueryTimeoutSeconds)*time.Second)
	if err != nil {
		return err
	}
	defer source.Close()

	candidates, err := source.FetchNewVerdicts(ctx, minutesBack)
	if err != nil {
		return err
	}
	if len(candidates) == 0 {
		log.Info().Msg("no new verdicts found")
		return nil
	}
	log.Info().Int("count", len(candidates)).Msg("found candidate verdicts")

	if !noEnrich {
		enricher := datasources.NewEnricher(
			cfg.Enrichment.PriceURL,
			cfg.Enrichment.RPCURL,
			time.Duration(cfg.Enrichment.TimeoutSeconds)*time.Second,
			cfg.Enrichment.RatePerSecond,
		)
		enricher.Enrich(ctx, candidates)
	}

	store := ledger.NewStore(cfg.Ledger.Dir)
	opts := []ledger.WriterOption{}
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, DB: cfg.Redis.DB})
		defer rdb.Close()
		opts = append(opts, ledger.WithIdentityIndex(ledger.NewIdentityIndex(rdb, "sigledger")))
	}

	writer := ledger.NewWriter(store, signer, cfg.Ledger.RulesetVersion, opts...)
	appended, err := writer.Append(ctx, candidates)
	if err != nil {
		return err
	}

	log.Info().Int("appended", appended).Int("candidates", len(candidates)).Msg("append run complete")
	return nil
}
