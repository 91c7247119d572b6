// Package sqlstore implements the Record Store Adapter on SQLite.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/aristath/lotofacil/internal/database"
	"github.com/aristath/lotofacil/internal/domain"
	"github.com/aristath/lotofacil/internal/modules/draws"
	"github.com/aristath/lotofacil/internal/storage/telemetry"
	"github.com/rs/zerolog"
)

const backendName = "sqlite"

// Config holds sqlite store configuration
type Config struct {
	Path     string
	Profile  database.DatabaseProfile
	Rules    domain.Rules
	Failures telemetry.FailureRecorder
}

// Store is the SQLite Record Store Adapter. Draws are upserted per record
// inside one transaction.
type Store struct {
	db         *database.DB
	reconciler *draws.Reconciler
	failures   telemetry.FailureRecorder
	log        zerolog.Logger
}

// Open connects and migrates. Failures are logged and produce a degraded store.
func Open(cfg Config, log zerolog.Logger) *Store {
	s := &Store{
		reconciler: draws.NewReconciler(cfg.Rules, log),
		failures:   cfg.Failures,
		log:        log.With().Str("store", backendName).Str("path", cfg.Path).Logger(),
	}

	db, err := database.New(database.Config{Path: cfg.Path, Profile: cfg.Profile, Name: "lotofacil"})
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to open sqlite store, continuing without persistence")
		telemetry.Record(s.failures, backendName, "open")
		return s
	}
	if err := db.Migrate(); err != nil {
		db.Close()
		s.log.Error().Err(err).Msg("Failed to migrate sqlite store, continuing without persistence")
		telemetry.Record(s.failures, backendName, "open")
		return s
	}
	s.db = db
	return s
}

// Name returns the backend name
func (s *Store) Name() string {
	return backendName
}

func (s *Store) available(op string) bool {
	if s.db != nil {
		return true
	}
	s.log.Warn().Err(domain.ErrStoreUnavailable).Str("op", op).Msg("SQLite store unavailable")
	telemetry.Record(s.failures, backendName, op)
	return false
}

// Load returns every draw, newest first
func (s *Store) Load(ctx context.Context) []domain.DrawRecord {
	if !s.available("load") {
		return []domain.DrawRecord{}
	}

	rows, err := s.db.Conn().QueryContext(ctx, `SELECT draw_id, draw_date, numbers FROM draws ORDER BY draw_id DESC`)
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to query draws, treating store as empty")
		telemetry.Record(s.failures, backendName, "load")
		return []domain.DrawRecord{}
	}
	defer rows.Close()

	result := []domain.DrawRecord{}
	for rows.Next() {
		var (
			id      int
			date    string
			numbers string
		)
		if err := rows.Scan(&id, &date, &numbers); err != nil {
			s.log.Warn().Err(err).Msg("Skipping unreadable draw row")
			continue
		}
		parsed, err := domain.NormalizeNumbers(numbers)
		if err != nil {
			s.log.Warn().Err(err).Int("draw_id", id).Msg("Skipping draw row with unreadable numbers")
			continue
		}
		rec := domain.DrawRecord{DrawID: id, Numbers: parsed}
		if d, err := domain.ParseDrawDate(date); err == nil {
			rec.DrawDate = d
		}
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		s.log.Error().Err(err).Msg("Draw iteration failed, treating store as empty")
		telemetry.Record(s.failures, backendName, "load")
		return []domain.DrawRecord{}
	}
	return result
}

// ReconcileAndPersist merges incoming and upserts touched draws in one transaction.
func (s *Store) ReconcileAndPersist(ctx context.Context, existing []domain.DrawRecord, incoming []domain.RawDraw) ([]domain.DrawRecord, bool, error) {
	merged, stats, err := s.reconciler.Merge(existing, incoming)
	if err != nil {
		return existing, false, fmt.Errorf("failed to reconcile draws: %w", err)
	}
	domain.SortByDrawIDDesc(merged)

	if !stats.Changed() {
		return merged, true, nil
	}
	if !s.available("persist") {
		return merged, false, nil
	}

	touched := make(map[int]struct{}, len(incoming))
	for _, raw := range incoming {
		touched[raw.DrawID] = struct{}{}
	}

	err = database.WithTransaction(s.db.Conn(), func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO draws (draw_id, draw_date, numbers) VALUES (?, ?, ?)
			ON CONFLICT(draw_id) DO UPDATE SET
				draw_date = excluded.draw_date,
				numbers = excluded.numbers
		`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, rec := range merged {
			if _, ok := touched[rec.DrawID]; !ok {
				continue
			}
			if _, err := stmt.ExecContext(ctx, rec.DrawID, rec.DateString(), domain.FormatNumbers(rec.Numbers)); err != nil {
				return fmt.Errorf("upsert draw %d: %w", rec.DrawID, err)
			}
		}
		return nil
	})
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to persist draws, continuing without saving")
		telemetry.Record(s.failures, backendName, "persist")
		return merged, false, nil
	}

	s.log.Info().
		Int("inserted", stats.Inserted).
		Int("updated", stats.Updated).
		Int("total", len(merged)).
		Msg("Draws upserted")
	return merged, true, nil
}

// SavePrediction inserts rec unless its combination is already stored.
func (s *Store) SavePrediction(ctx context.Context, rec domain.PredictionRecord) bool {
	if !s.available("save_prediction") {
		return false
	}

	res, err := s.db.Conn().ExecContext(ctx, `
		INSERT INTO predictions (combination_key, id, combination, occurred_before, prediction_date)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(combination_key) DO NOTHING
	`,
		rec.Combination.Key(),
		rec.ID,
		domain.FormatNumbers(domain.NewCombination(rec.Combination)),
		boolToInt(rec.OccurredBefore),
		rec.PredictionDate.Unix(),
	)
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to save prediction")
		telemetry.Record(s.failures, backendName, "save_prediction")
		return false
	}
	n, err := res.RowsAffected()
	return err == nil && n > 0
}

// LoadPredictions returns stored predictions, newest first
func (s *Store) LoadPredictions(ctx context.Context) []domain.PredictionRecord {
	if !s.available("load_predictions") {
		return []domain.PredictionRecord{}
	}

	rows, err := s.db.Conn().QueryContext(ctx, `
		SELECT id, combination, occurred_before, prediction_date
		FROM predictions ORDER BY prediction_date DESC, combination_key
	`)
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to query predictions")
		telemetry.Record(s.failures, backendName, "load_predictions")
		return []domain.PredictionRecord{}
	}
	defer rows.Close()

	preds := []domain.PredictionRecord{}
	for rows.Next() {
		var (
			id          string
			combination string
			occurred    int
			at          int64
		)
		if err := rows.Scan(&id, &combination, &occurred, &at); err != nil {
			s.log.Warn().Err(err).Msg("Skipping unreadable prediction row")
			continue
		}
		numbers, err := domain.NormalizeNumbers(combination)
		if err != nil {
			s.log.Warn().Err(err).Str("id", id).Msg("Skipping prediction row with unreadable combination")
			continue
		}
		preds = append(preds, domain.PredictionRecord{
			ID:             id,
			Combination:    domain.Combination(numbers),
			OccurredBefore: occurred != 0,
			PredictionDate: time.Unix(at, 0).UTC(),
		})
	}
	if err := rows.Err(); err != nil {
		s.log.Error().Err(err).Msg("Prediction iteration failed")
		telemetry.Record(s.failures, backendName, "load_predictions")
		return []domain.PredictionRecord{}
	}
	return preds
}

// Snapshot vacuums the database into a temporary file and streams it.
func (s *Store) Snapshot(ctx context.Context, w io.Writer) error {
	if s.db == nil {
		return domain.ErrStoreUnavailable
	}

	dir, err := os.MkdirTemp("", "lotofacil-snapshot-")
	if err != nil {
		return fmt.Errorf("failed to create snapshot dir: %w", err)
	}
	defer os.RemoveAll(dir)

	target := filepath.Join(dir, "lotofacil.db")
	if err := s.db.VacuumInto(ctx, target); err != nil {
		return err
	}

	f, err := os.Open(target)
	if err != nil {
		return fmt.Errorf("failed to open snapshot: %w", err)
	}
	defer f.Close()

	_, err = io.Copy(w, f)
	return err
}

// Close closes the database
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
