package di

import (
	"github.com/aristath/lotofacil/internal/clients/feed"
	"github.com/aristath/lotofacil/internal/config"
	"github.com/aristath/lotofacil/internal/metrics"
	"github.com/aristath/lotofacil/internal/modules/combinations"
	"github.com/aristath/lotofacil/internal/modules/predictions"
	"github.com/aristath/lotofacil/internal/modules/scoring"
	"github.com/aristath/lotofacil/internal/pipeline"
	"github.com/aristath/lotofacil/internal/reliability"
	"github.com/aristath/lotofacil/internal/scheduler"
	"github.com/aristath/lotofacil/internal/storage"
)

// Container holds every service of one process. It is the single source of
// truth handed to commands and the HTTP server.
type Container struct {
	Config  *config.Config
	Metrics *metrics.Metrics

	Store storage.Store
	Feed  *feed.Client
	Gate  *scheduler.Gate

	Scorer      *scoring.Scorer
	Generator   *combinations.Generator
	Predictions *predictions.Service
	Pipeline    *pipeline.Pipeline

	Backup *reliability.BackupService // nil when backups are not configured
}

// Close releases the store
func (c *Container) Close() error {
	if c.Store == nil {
		return nil
	}
	return c.Store.Close()
}
