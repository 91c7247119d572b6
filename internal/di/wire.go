// Package di provides dependency injection wiring and initialization.
package di

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/aristath/lotofacil/internal/clients/feed"
	"github.com/aristath/lotofacil/internal/config"
	"github.com/aristath/lotofacil/internal/domain"
	"github.com/aristath/lotofacil/internal/metrics"
	"github.com/aristath/lotofacil/internal/modules/combinations"
	"github.com/aristath/lotofacil/internal/modules/predictions"
	"github.com/aristath/lotofacil/internal/modules/scoring"
	"github.com/aristath/lotofacil/internal/pipeline"
	"github.com/aristath/lotofacil/internal/reliability"
	"github.com/aristath/lotofacil/internal/scheduler"
	"github.com/aristath/lotofacil/internal/storage"
	"github.com/rs/zerolog"
)

// Wire initializes all dependencies and returns a fully configured container.
// Order of operations:
// 1. Store
// 2. Feed client and fetch gate
// 3. Scorer, generator and prediction service
// 4. Backups (optional)
// 5. Pipeline
func Wire(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*Container, error) {
	c := &Container{
		Config:  cfg,
		Metrics: metrics.New(),
	}

	rules := domain.Rules{MaxNumber: cfg.MaxNumber, DrawSize: cfg.DrawSize}

	store, err := storage.New(storage.Config{
		Backend:  cfg.Storage,
		DataDir:  cfg.DataDir,
		Workbook: cfg.Workbook,
		Rules:    rules,
		Failures: c.Metrics,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize store: %w", err)
	}
	c.Store = store

	c.Feed = feed.NewClient(feed.Config{URL: cfg.FeedURL, Timeout: cfg.FeedTimeout}, log)

	gate, err := scheduler.NewGate(cfg.DataDir, cfg.SkipWeekday, log)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to initialize fetch gate: %w", err)
	}
	c.Gate = gate

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	c.Scorer = scoring.NewScorer(scoring.Config{
		MaxNumber:  cfg.MaxNumber,
		PoolSize:   cfg.PoolSize,
		SampleSize: cfg.SampleSize,
		ProbeCount: cfg.ProbeCount,
	}, scoring.NewLogisticTrainer(0, log), rand.New(rand.NewSource(seed)), log)

	c.Generator = combinations.NewGenerator(combinations.Config{
		MaxNumber:   cfg.MaxNumber,
		Count:       cfg.PredictionCount,
		MaxAttempts: cfg.MaxAttempts,
	}, rand.New(rand.NewSource(seed+1)), log)

	c.Predictions = predictions.NewService(predictions.Config{FixedCount: cfg.FixedCount}, c.Scorer, c.Generator, store, log)

	deps := pipeline.Deps{
		Store:     store,
		Feed:      c.Feed,
		Gate:      gate,
		Predictor: c.Predictions,
		Metrics:   c.Metrics,
	}

	if cfg.Backup.Enabled() {
		remote, err := reliability.NewS3Client(ctx, reliability.S3Config{
			Bucket:    cfg.Backup.Bucket,
			Endpoint:  cfg.Backup.Endpoint,
			Region:    cfg.Backup.Region,
			AccessKey: cfg.Backup.AccessKey,
			SecretKey: cfg.Backup.SecretKey,
		}, log)
		if err != nil {
			// backups are optional; the run continues without them
			log.Warn().Err(err).Msg("Failed to initialize backup client, backups disabled")
		} else {
			c.Backup = reliability.NewBackupService(store, remote, cfg.Backup.Prefix, log)
			deps.Backup = c.Backup
		}
	}

	c.Pipeline = pipeline.New(deps, log)

	log.Info().
		Str("storage", store.Name()).
		Bool("backups", c.Backup != nil).
		Int64("seed", seed).
		Msg("Dependency injection wiring completed successfully")

	return c, nil
}
