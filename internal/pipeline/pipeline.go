// Package pipeline runs one batch: optional fetch, reconcile and persist,
// then predictions or the occurrence report.
//
// Runs are serialised inside one process. Two processes sharing a store are
// not coordinated and can lose each other's writes.
package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aristath/lotofacil/internal/domain"
	"github.com/aristath/lotofacil/internal/metrics"
	"github.com/aristath/lotofacil/internal/modules/occurrences"
	"github.com/aristath/lotofacil/internal/modules/predictions"
	"github.com/aristath/lotofacil/internal/storage"
	"github.com/rs/zerolog"
)

// Run modes, used as the metrics label
const (
	ModeIngest  = "ingest"
	ModePredict = "predict"
	ModeReport  = "report"
)

// Feed fetches raw draw payloads
type Feed interface {
	Fetch(ctx context.Context) ([]domain.RawDraw, error)
}

// Gate limits fetches to once per draw day
type Gate interface {
	ShouldFetchToday(now time.Time) bool
	MarkFetched(now time.Time)
}

// Predictor generates and persists predictions
type Predictor interface {
	Predict(ctx context.Context, history []domain.DrawRecord) ([]predictions.Prediction, error)
}

// Backup uploads a store snapshot
type Backup interface {
	Run(ctx context.Context) (string, error)
}

// Options select what a run does
type Options struct {
	Fetch      bool // pull the feed before anything else
	Force      bool // ignore the fetch gate
	Predict    bool // predictions instead of the occurrence report
	IngestOnly bool // stop after persisting
}

func (o Options) mode() string {
	switch {
	case o.IngestOnly:
		return ModeIngest
	case o.Predict:
		return ModePredict
	default:
		return ModeReport
	}
}

// Result is the outcome of one run
type Result struct {
	Mode        string                   `json:"mode"`
	Fetched     bool                     `json:"fetched"`
	Ingested    int                      `json:"ingested"`
	HistorySize int                      `json:"history_size"`
	Predictions []predictions.Prediction `json:"predictions,omitempty"`
	Occurrences []occurrences.Occurrence `json:"occurrences,omitempty"`
	BackupKey   string                   `json:"backup_key,omitempty"`
}

// Deps are the pipeline collaborators. Feed, Gate, Backup and Metrics may be nil.
type Deps struct {
	Store     storage.Store
	Feed      Feed
	Gate      Gate
	Predictor Predictor
	Backup    Backup
	Metrics   *metrics.Metrics
	Clock     func() time.Time
}

// Pipeline orchestrates runs
type Pipeline struct {
	mu   sync.Mutex
	deps Deps
	log  zerolog.Logger
}

// New creates a pipeline
func New(deps Deps, log zerolog.Logger) *Pipeline {
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	return &Pipeline{
		deps: deps,
		log:  log.With().Str("component", "pipeline").Logger(),
	}
}

// Run executes one batch. Only structural failures (malformed payloads,
// generation exhaustion) are returned; feed and store outages degrade.
func (p *Pipeline) Run(ctx context.Context, opts Options) (*Result, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	res, err := p.run(ctx, opts)
	if p.deps.Metrics != nil {
		p.deps.Metrics.RunFinished(opts.mode(), err)
	}
	if err != nil {
		p.log.Error().Err(err).Str("mode", opts.mode()).Msg("Run failed")
		return nil, err
	}
	return res, nil
}

// Ingest fetches and persists new draws, honouring the fetch gate.
func (p *Pipeline) Ingest(ctx context.Context) error {
	_, err := p.Run(ctx, Options{Fetch: true, IngestOnly: true})
	return err
}

func (p *Pipeline) run(ctx context.Context, opts Options) (*Result, error) {
	res := &Result{Mode: opts.mode()}

	history := p.deps.Store.Load(ctx)

	if opts.Fetch {
		merged, ingested, fetched, err := p.ingest(ctx, history, opts.Force)
		if err != nil {
			return nil, err
		}
		history = merged
		res.Fetched = fetched
		res.Ingested = ingested

		if ingested > 0 && p.deps.Backup != nil {
			key, err := p.deps.Backup.Run(ctx)
			if err != nil {
				p.log.Warn().Err(err).Msg("Backup failed")
			}
			res.BackupKey = key
		}
	}

	res.HistorySize = len(history)
	if p.deps.Metrics != nil {
		p.deps.Metrics.HistoryDraws.Set(float64(len(history)))
	}

	switch res.Mode {
	case ModeIngest:
	case ModePredict:
		preds, err := p.deps.Predictor.Predict(ctx, history)
		if err != nil {
			return nil, err
		}
		res.Predictions = preds
		if p.deps.Metrics != nil {
			p.deps.Metrics.PredictionsGenerated.Add(float64(len(preds)))
		}
	default:
		res.Occurrences = occurrences.Report(history)
	}

	p.log.Info().
		Str("mode", res.Mode).
		Int("history", res.HistorySize).
		Int("ingested", res.Ingested).
		Msg("Run complete")

	return res, nil
}

// ingest returns the merged history and how many draws it inserted or changed.
func (p *Pipeline) ingest(ctx context.Context, history []domain.DrawRecord, force bool) ([]domain.DrawRecord, int, bool, error) {
	if p.deps.Feed == nil {
		p.log.Warn().Msg("No feed configured, skipping fetch")
		return history, 0, false, nil
	}

	now := p.deps.Clock()
	if !force && p.deps.Gate != nil && !p.deps.Gate.ShouldFetchToday(now) {
		return history, 0, false, nil
	}

	incoming, err := p.deps.Feed.Fetch(ctx)
	if err != nil {
		p.log.Warn().Err(err).Msg("Feed unavailable, continuing with stored history")
		return history, 0, false, nil
	}

	merged, persisted, err := p.deps.Store.ReconcileAndPersist(ctx, history, incoming)
	if err != nil {
		return nil, 0, true, fmt.Errorf("failed to ingest draws: %w", err)
	}

	// An unsaved ingest leaves the gate open so a later run retries today.
	if p.deps.Gate != nil && persisted {
		p.deps.Gate.MarkFetched(now)
	}

	changed := countChanged(history, merged)
	if p.deps.Metrics != nil {
		p.deps.Metrics.DrawsIngested.Add(float64(changed))
	}
	return merged, changed, true, nil
}

func countChanged(before, after []domain.DrawRecord) int {
	prev := make(map[int]string, len(before))
	for _, d := range before {
		prev[d.DrawID] = d.DateString() + "|" + domain.SetKey(d.Numbers)
	}
	changed := 0
	for _, d := range after {
		if prev[d.DrawID] != d.DateString()+"|"+domain.SetKey(d.Numbers) {
			changed++
		}
	}
	return changed
}
