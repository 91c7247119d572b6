package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/aristath/lotofacil/internal/config"
	"github.com/aristath/lotofacil/internal/di"
	"github.com/aristath/lotofacil/internal/pipeline"
	"github.com/aristath/lotofacil/pkg/logger"
)

var (
	getGames        bool
	showPredictions bool
	storageFlag     string
	force           bool

	rootCmd = &cobra.Command{
		Use:          "lotofacil",
		Short:        "Ingest Lotofácil results and generate combinations",
		SilenceUsage: true,
	}

	runCmd = &cobra.Command{
		Use:   "run",
		Short: "Optionally fetch new draws, then print predictions or occurrences",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(cmd, pipeline.Options{Fetch: getGames, Force: force, Predict: showPredictions})
		},
	}

	ingestCmd = &cobra.Command{
		Use:   "ingest",
		Short: "Fetch the feed and persist new draws",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(cmd, pipeline.Options{Fetch: true, Force: force, IngestOnly: true})
		},
	}

	predictCmd = &cobra.Command{
		Use:   "predict",
		Short: "Generate combinations from the stored history",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(cmd, pipeline.Options{Fetch: getGames, Force: force, Predict: true})
		},
	}

	reportCmd = &cobra.Command{
		Use:   "report",
		Short: "Print how often each number was drawn",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(cmd, pipeline.Options{Fetch: getGames, Force: force})
		},
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API with scheduled ingests",
		RunE:  runServe, // serve.go
	}

	backupCmd = &cobra.Command{
		Use:   "backup",
		Short: "Upload one snapshot of the store to the backup bucket",
		RunE:  runBackup,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&storageFlag, "storage", "", "storage backend: excel, csv, database or sqlite (default from LOTOFACIL_STORAGE)")
	rootCmd.PersistentFlags().BoolVar(&force, "force", false, "fetch even if today's fetch already happened")

	runCmd.Flags().BoolVar(&getGames, "get-games", false, "fetch the latest results before running")
	runCmd.Flags().BoolVar(&showPredictions, "predictions", false, "print predictions instead of occurrences")
	predictCmd.Flags().BoolVar(&getGames, "get-games", false, "fetch the latest results first")
	reportCmd.Flags().BoolVar(&getGames, "get-games", false, "fetch the latest results first")

	rootCmd.AddCommand(runCmd, ingestCmd, predictCmd, reportCmd, serveCmd, backupCmd)
}

// bootstrap loads configuration, applies flag overrides and builds the logger.
// Logs go to stderr so stdout carries only results.
func bootstrap() (*config.Config, zerolog.Logger, error) {
	fallback := logger.New(logger.Config{Level: "info", Pretty: true, Output: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		fallback.Error().Err(err).Msg("Failed to load configuration")
		return nil, fallback, err
	}

	if storageFlag != "" {
		if !config.ValidStorage(storageFlag) {
			err := fmt.Errorf("invalid storage option %q, use excel, csv, database or sqlite", storageFlag)
			fallback.Error().Err(err).Msg("Aborting")
			return nil, fallback, err
		}
		cfg.Storage = storageFlag
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.LogPretty,
		File:   cfg.LogFile,
		Output: os.Stderr,
	})
	logger.SetGlobalLogger(log)

	return cfg, log, nil
}

func runBatch(cmd *cobra.Command, opts pipeline.Options) error {
	cfg, log, err := bootstrap()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	container, err := di.Wire(ctx, cfg, log)
	if err != nil {
		log.Error().Err(err).Msg("Failed to wire dependencies")
		return err
	}
	defer container.Close()

	res, err := container.Pipeline.Run(ctx, opts)
	if err != nil {
		return err
	}

	printResult(cmd.OutOrStdout(), res)
	return nil
}

func runBackup(cmd *cobra.Command, args []string) error {
	cfg, log, err := bootstrap()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	container, err := di.Wire(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer container.Close()

	if container.Backup == nil {
		return fmt.Errorf("backups are not configured, set BACKUP_S3_BUCKET")
	}

	key, err := container.Backup.Run(ctx)
	if err != nil {
		return err
	}
	if _, err := container.Backup.RotateOldBackups(ctx, cfg.Backup.RetentionDays); err != nil {
		log.Warn().Err(err).Msg("Backup rotation failed")
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Backup uploaded: %s\n", key)
	return nil
}
