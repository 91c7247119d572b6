package di

import (
	"fmt"
	"time"

	"github.com/aristath/lotofacil/internal/reliability"
	"github.com/aristath/lotofacil/internal/scheduler"
	"github.com/rs/zerolog"
)

// IngestTimeout bounds one scheduled ingest.
const IngestTimeout = 5 * time.Minute

// NewIngestJob returns the scheduled ingest bound to the container's pipeline.
func NewIngestJob(c *Container, log zerolog.Logger) *scheduler.IngestJob {
	return scheduler.NewIngestJob(c.Pipeline, IngestTimeout, log)
}

// RegisterJobs adds the serve-mode jobs to sched
func RegisterJobs(c *Container, sched *scheduler.Scheduler, log zerolog.Logger) error {
	ingest := NewIngestJob(c, log)
	if err := sched.AddJob(c.Config.Cron, ingest); err != nil {
		return fmt.Errorf("failed to register %s: %w", ingest.Name(), err)
	}

	if c.Backup != nil {
		backup := reliability.NewBackupJob(c.Backup, c.Config.Backup.RetentionDays, log)
		if err := sched.AddJob(c.Config.Backup.Cron, backup); err != nil {
			return fmt.Errorf("failed to register %s: %w", backup.Name(), err)
		}
	}
	return nil
}
