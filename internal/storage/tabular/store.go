// Package tabular implements the file-backed Record Store Adapter: an .xlsx
// workbook or plain .csv files.
//
// Numbers are stored as ", "-joined integers and normalized back into integer
// sets on load. Every write rewrites the whole sheet, draws sorted by draw_id
// descending.
package tabular

import (
	"archive/tar"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/aristath/lotofacil/internal/domain"
	"github.com/aristath/lotofacil/internal/modules/draws"
	"github.com/aristath/lotofacil/internal/storage/telemetry"
	"github.com/rs/zerolog"
)

var errShortRow = errors.New("row has too few columns")

// Config holds tabular store configuration
type Config struct {
	Path     string // .xlsx or .csv; the extension selects the format
	Rules    domain.Rules
	Failures telemetry.FailureRecorder
}

// Store is the tabular Record Store Adapter.
type Store struct {
	path       string
	book       workbook
	name       string
	reconciler *draws.Reconciler
	failures   telemetry.FailureRecorder
	log        zerolog.Logger
}

// New creates a tabular store. Nothing is touched on disk until the first write.
func New(cfg Config, log zerolog.Logger) *Store {
	name := "excel"
	if filepath.Ext(cfg.Path) == ".csv" {
		name = "csv"
	}
	return &Store{
		path:       cfg.Path,
		book:       newWorkbook(cfg.Path),
		name:       name,
		reconciler: draws.NewReconciler(cfg.Rules, log),
		failures:   cfg.Failures,
		log:        log.With().Str("store", name).Str("path", cfg.Path).Logger(),
	}
}

// Name returns the backend name
func (s *Store) Name() string {
	return s.name
}

// Load reads the draws sheet. A missing or unreadable file yields no draws.
func (s *Store) Load(ctx context.Context) []domain.DrawRecord {
	rows, err := s.book.ReadSheet(drawsSheet)
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to read draws, treating store as empty")
		telemetry.Record(s.failures, s.name, "load")
		return []domain.DrawRecord{}
	}
	if rows == nil {
		s.log.Info().Msg("File not found, starting with an empty history")
		return []domain.DrawRecord{}
	}

	result := make([]domain.DrawRecord, 0, len(rows))
	for i, row := range rows {
		if i == 0 && isHeader(row) {
			continue
		}
		rec, dateErr, err := rowToDraw(row)
		if err != nil {
			s.log.Warn().Err(err).Int("row", i+1).Msg("Unreadable draw row left in place")
			continue
		}
		if dateErr != nil {
			s.log.Warn().Err(dateErr).Int("draw_id", rec.DrawID).Msg("Stored draw date unreadable")
		}
		result = append(result, rec)
	}

	domain.SortByDrawIDDesc(result)
	return result
}

// ReconcileAndPersist merges incoming and rewrites the draws sheet. Stored rows
// that Load could not read are written back unchanged.
func (s *Store) ReconcileAndPersist(ctx context.Context, existing []domain.DrawRecord, incoming []domain.RawDraw) ([]domain.DrawRecord, bool, error) {
	merged, stats, err := s.reconciler.Merge(existing, incoming)
	if err != nil {
		return existing, false, fmt.Errorf("failed to reconcile draws: %w", err)
	}
	domain.SortByDrawIDDesc(merged)

	if !stats.Changed() {
		s.log.Debug().Msg("No draw changes, skipping rewrite")
		return merged, true, nil
	}

	// Re-read what is on disk; a file that cannot be read is never overwritten.
	stored, err := s.book.ReadSheet(drawsSheet)
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to re-read draws before rewrite, continuing without saving")
		telemetry.Record(s.failures, s.name, "persist")
		return merged, false, nil
	}
	carry := collectCarryOver(stored)

	if err := s.book.WriteSheet(drawsSheet, carry.drawRows(merged)); err != nil {
		s.log.Error().Err(err).Msg("Failed to persist draws, continuing without saving")
		telemetry.Record(s.failures, s.name, "persist")
		return merged, false, nil
	}

	s.log.Info().
		Int("inserted", stats.Inserted).
		Int("updated", stats.Updated).
		Int("total", len(merged)).
		Int("carried", len(carry.rows)).
		Msg("Draws file updated")
	return merged, true, nil
}

// LoadPredictions reads the predictions sheet, newest first.
func (s *Store) LoadPredictions(ctx context.Context) []domain.PredictionRecord {
	preds, err := s.readPredictions()
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to read predictions")
		telemetry.Record(s.failures, s.name, "load_predictions")
		return []domain.PredictionRecord{}
	}
	sort.SliceStable(preds, func(i, j int) bool {
		return preds[i].PredictionDate.After(preds[j].PredictionDate)
	})
	return preds
}

func (s *Store) readPredictions() ([]domain.PredictionRecord, error) {
	rows, err := s.book.ReadSheet(predictionsSheet)
	if err != nil {
		return nil, err
	}
	preds := make([]domain.PredictionRecord, 0, len(rows))
	for i, row := range rows {
		if i == 0 && isHeader(row) {
			continue
		}
		p, err := rowToPrediction(row)
		if err != nil {
			s.log.Warn().Err(err).Int("row", i+1).Msg("Skipping unreadable prediction row")
			continue
		}
		preds = append(preds, p)
	}
	return preds, nil
}

// SavePrediction appends rec unless the same combination is already stored.
func (s *Store) SavePrediction(ctx context.Context, rec domain.PredictionRecord) bool {
	preds, err := s.readPredictions()
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to read predictions, skipping save")
		telemetry.Record(s.failures, s.name, "save_prediction")
		return false
	}

	key := rec.Combination.Key()
	for _, p := range preds {
		if p.Combination.Key() == key {
			return false
		}
	}

	rows := make([][]string, 0, len(preds)+2)
	rows = append(rows, predictionsHeader)
	for _, p := range preds {
		rows = append(rows, predictionToRow(p))
	}
	rows = append(rows, predictionToRow(rec))

	if err := s.book.WriteSheet(predictionsSheet, rows); err != nil {
		s.log.Error().Err(err).Msg("Failed to save prediction")
		telemetry.Record(s.failures, s.name, "save_prediction")
		return false
	}
	return true
}

// Snapshot writes a tar archive of every existing file of the store.
func (s *Store) Snapshot(ctx context.Context, w io.Writer) error {
	tw := tar.NewWriter(w)
	for _, path := range s.book.Files() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := addFile(tw, path); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to archive %s: %w", path, err)
		}
	}
	return tw.Close()
}

func addFile(tw *tar.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}
	header, err := tar.FileInfoHeader(info, "")
	if err != nil {
		return err
	}
	header.Name = filepath.Base(path)
	if err := tw.WriteHeader(header); err != nil {
		return err
	}
	_, err = io.Copy(tw, f)
	return err
}

// Close is a no-op; files are opened per operation.
func (s *Store) Close() error {
	return nil
}
