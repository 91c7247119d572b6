// Package document implements the document Record Store Adapter on BadgerDB.
//
// Each draw is one msgpack document under draw:<zero padded id>; predictions
// live under prediction:<canonical combination key>. Writes are per-record
// upserts, never a bulk rewrite.
package document

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/aristath/lotofacil/internal/domain"
	"github.com/aristath/lotofacil/internal/modules/draws"
	"github.com/aristath/lotofacil/internal/storage/telemetry"
	"github.com/dgraph-io/badger/v4"
	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"
)

// Key prefixes for BadgerDB storage
const (
	drawKeyPrefix       = "draw:"
	predictionKeyPrefix = "prediction:"
	backendName         = "database"
)

// Config holds document store configuration
type Config struct {
	Dir      string
	InMemory bool // tests
	Rules    domain.Rules
	Failures telemetry.FailureRecorder
}

// drawDocument is the stored shape of a draw. Numbers is decoded loosely so
// documents written by older tools (numbers as a string) still load.
type drawDocument struct {
	DrawID   int    `msgpack:"draw_id"`
	DrawDate string `msgpack:"draw_date"`
	Numbers  any    `msgpack:"numbers"`
}

type predictionDocument struct {
	ID             string `msgpack:"id"`
	Combination    []int  `msgpack:"combination"`
	OccurredBefore bool   `msgpack:"occurred_before"`
	PredictionDate int64  `msgpack:"prediction_date"` // unix seconds
}

// Store is the BadgerDB-backed Record Store Adapter. A nil db means the store
// could not be opened; every operation then degrades.
type Store struct {
	db         *badger.DB
	reconciler *draws.Reconciler
	failures   telemetry.FailureRecorder
	log        zerolog.Logger
}

// Open opens (or creates) the badger directory. An open failure is logged and
// yields a store that reads empty and skips writes.
func Open(cfg Config, log zerolog.Logger) *Store {
	s := &Store{
		reconciler: draws.NewReconciler(cfg.Rules, log),
		failures:   cfg.Failures,
		log:        log.With().Str("store", backendName).Str("dir", cfg.Dir).Logger(),
	}

	opts := badger.DefaultOptions(cfg.Dir).WithLogger(badgerLogger{log: s.log})
	if cfg.InMemory {
		opts = opts.WithDir("").WithValueDir("").WithInMemory(true)
	}

	db, err := badger.Open(opts)
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to open document store, continuing without persistence")
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
	s.log.Warn().Err(domain.ErrStoreUnavailable).Str("op", op).Msg("Document store unavailable")
	telemetry.Record(s.failures, backendName, op)
	return false
}

func drawKey(id int) []byte {
	return []byte(fmt.Sprintf("%s%010d", drawKeyPrefix, id))
}

func predictionKey(c domain.Combination) []byte {
	return []byte(predictionKeyPrefix + c.Key())
}

// Load iterates every draw document. Read failures yield an empty collection.
func (s *Store) Load(ctx context.Context) []domain.DrawRecord {
	if !s.available("load") {
		return []domain.DrawRecord{}
	}

	result := []domain.DrawRecord{}
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(drawKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			var doc drawDocument
			if err := item.Value(func(val []byte) error {
				return msgpack.Unmarshal(val, &doc)
			}); err != nil {
				s.log.Warn().Err(err).Str("key", string(item.Key())).Msg("Skipping undecodable draw document")
				continue
			}

			rec, err := documentToDraw(doc)
			if err != nil {
				s.log.Warn().Err(err).Int("draw_id", doc.DrawID).Msg("Skipping draw document with unreadable numbers")
				continue
			}
			result = append(result, rec)
		}
		return nil
	})
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to read draws, treating store as empty")
		telemetry.Record(s.failures, backendName, "load")
		return []domain.DrawRecord{}
	}

	domain.SortByDrawIDDesc(result)
	return result
}

func documentToDraw(doc drawDocument) (domain.DrawRecord, error) {
	numbers, err := domain.NormalizeNumbers(doc.Numbers)
	if err != nil {
		return domain.DrawRecord{}, err
	}
	rec := domain.DrawRecord{DrawID: doc.DrawID, Numbers: numbers}
	if date, err := domain.ParseDrawDate(doc.DrawDate); err == nil {
		rec.DrawDate = date
	}
	return rec, nil
}

// ReconcileAndPersist merges incoming and upserts the draws it touched.
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

	written, expected := 0, 0
	for _, rec := range merged {
		if _, ok := touched[rec.DrawID]; !ok {
			continue
		}
		expected++
		if err := ctx.Err(); err != nil {
			s.log.Warn().Err(err).Msg("Persist interrupted")
			break
		}
		if err := s.upsertDraw(rec); err != nil {
			s.log.Error().Err(err).Int("draw_id", rec.DrawID).Msg("Failed to upsert draw")
			telemetry.Record(s.failures, backendName, "persist")
			continue
		}
		written++
	}

	s.log.Info().
		Int("inserted", stats.Inserted).
		Int("updated", stats.Updated).
		Int("written", written).
		Msg("Draw documents upserted")
	return merged, written == expected, nil
}

func (s *Store) upsertDraw(rec domain.DrawRecord) error {
	data, err := msgpack.Marshal(drawDocument{
		DrawID:   rec.DrawID,
		DrawDate: rec.DateString(),
		Numbers:  rec.Numbers,
	})
	if err != nil {
		return fmt.Errorf("marshal draw: %w", err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(drawKey(rec.DrawID), data)
	})
}

var errPredictionExists = errors.New("prediction exists")

// SavePrediction inserts rec keyed by its combination unless already present.
func (s *Store) SavePrediction(ctx context.Context, rec domain.PredictionRecord) bool {
	if !s.available("save_prediction") {
		return false
	}

	data, err := msgpack.Marshal(predictionDocument{
		ID:             rec.ID,
		Combination:    domain.NewCombination(rec.Combination),
		OccurredBefore: rec.OccurredBefore,
		PredictionDate: rec.PredictionDate.Unix(),
	})
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to encode prediction")
		return false
	}

	key := predictionKey(rec.Combination)
	err = s.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(key)
		if err == nil {
			return errPredictionExists
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		return txn.Set(key, data)
	})
	if errors.Is(err, errPredictionExists) {
		return false
	}
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to save prediction")
		telemetry.Record(s.failures, backendName, "save_prediction")
		return false
	}
	return true
}

// LoadPredictions returns every stored prediction, newest first.
func (s *Store) LoadPredictions(ctx context.Context) []domain.PredictionRecord {
	if !s.available("load_predictions") {
		return []domain.PredictionRecord{}
	}

	preds := []domain.PredictionRecord{}
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(predictionKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var doc predictionDocument
			if err := it.Item().Value(func(val []byte) error {
				return msgpack.Unmarshal(val, &doc)
			}); err != nil {
				s.log.Warn().Err(err).Msg("Skipping undecodable prediction document")
				continue
			}
			preds = append(preds, domain.PredictionRecord{
				ID:             doc.ID,
				Combination:    domain.Combination(doc.Combination),
				OccurredBefore: doc.OccurredBefore,
				PredictionDate: time.Unix(doc.PredictionDate, 0).UTC(),
			})
		}
		return nil
	})
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to read predictions")
		telemetry.Record(s.failures, backendName, "load_predictions")
		return []domain.PredictionRecord{}
	}

	sort.SliceStable(preds, func(i, j int) bool {
		return preds[i].PredictionDate.After(preds[j].PredictionDate)
	})
	return preds
}

// Snapshot streams a full badger backup.
func (s *Store) Snapshot(ctx context.Context, w io.Writer) error {
	if s.db == nil {
		return domain.ErrStoreUnavailable
	}
	if _, err := s.db.Backup(w, 0); err != nil {
		return fmt.Errorf("failed to back up document store: %w", err)
	}
	return nil
}

// Close closes the badger database
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}
