package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Ingester runs one fetch, reconcile and persist cycle.
type Ingester interface {
	Ingest(ctx context.Context) error
}

// IngestJob pulls new draws from the feed on a schedule
type IngestJob struct {
	ingester Ingester
	timeout  time.Duration
	log      zerolog.Logger
}

// NewIngestJob creates the job. timeout bounds a single run.
func NewIngestJob(ingester Ingester, timeout time.Duration, log zerolog.Logger) *IngestJob {
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &IngestJob{
		ingester: ingester,
		timeout:  timeout,
		log:      log.With().Str("job", "ingest_draws").Logger(),
	}
}

// Name returns the job name
func (j *IngestJob) Name() string {
	return "ingest_draws"
}

// Run executes the ingest
func (j *IngestJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	start := time.Now()
	if err := j.ingester.Ingest(ctx); err != nil {
		return err
	}
	j.log.Info().Dur("duration", time.Since(start)).Msg("Scheduled ingest finished")
	return nil
}
