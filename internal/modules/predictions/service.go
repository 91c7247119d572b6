// Package predictions turns a draw history into persisted prediction records.
package predictions

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/aristath/lotofacil/internal/domain"
	"github.com/aristath/lotofacil/internal/modules/scoring"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Ranker produces the candidate pool in rank order.
type Ranker interface {
	Rank(history []domain.DrawRecord) []scoring.NumberScore
}

// Generator builds combinations around a fixed set.
type Generator interface {
	Generate(fixed []int) ([]domain.Combination, error)
}

// Sink persists predictions with insert-if-absent semantics.
type Sink interface {
	SavePrediction(ctx context.Context, rec domain.PredictionRecord) bool
}

// Prediction is a generated combination and whether it was newly stored.
type Prediction struct {
	domain.PredictionRecord
	Inserted bool `json:"inserted"`
}

// Config holds service settings. Clock defaults to time.Now.
type Config struct {
	FixedCount int
	Clock      func() time.Time
}

// Service runs rank, generate, the occurred-before check and persistence.
type Service struct {
	mu         sync.Mutex
	ranker     Ranker
	generator  Generator
	sink       Sink
	fixedCount int
	clock      func() time.Time
	log        zerolog.Logger
}

// NewService creates a prediction service.
func NewService(cfg Config, ranker Ranker, generator Generator, sink Sink, log zerolog.Logger) *Service {
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Service{
		ranker:     ranker,
		generator:  generator,
		sink:       sink,
		fixedCount: cfg.FixedCount,
		clock:      clock,
		log:        log.With().Str("component", "prediction_service").Logger(),
	}
}

// FixedNumbers takes the first n numbers of the pool, ascending.
func FixedNumbers(pool []int, n int) ([]int, error) {
	if n > len(pool) {
		return nil, fmt.Errorf("%w: pool has %d numbers, need %d", domain.ErrInvalidFixedNumbers, len(pool), n)
	}
	fixed := append([]int(nil), pool[:n]...)
	sort.Ints(fixed)
	return fixed, nil
}

// Predict returns the combinations in generation order. Generation errors end
// the call before anything is persisted.
func (s *Service) Predict(ctx context.Context, history []domain.DrawRecord) ([]Prediction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ranked := s.ranker.Rank(history)
	pool := scoring.Pool(ranked)

	fixed, err := FixedNumbers(pool, s.fixedCount)
	if err != nil {
		return nil, err
	}

	combos, err := s.generator.Generate(fixed)
	if err != nil {
		return nil, fmt.Errorf("failed to generate combinations: %w", err)
	}

	index := domain.NewHistoryIndex(history)
	now := s.clock().UTC()

	out := make([]Prediction, 0, len(combos))
	inserted := 0
	for _, c := range combos {
		rec := domain.PredictionRecord{
			ID:             uuid.New().String(),
			Combination:    c,
			OccurredBefore: index.Contains(c),
			PredictionDate: now,
		}
		ok := s.sink.SavePrediction(ctx, rec)
		if ok {
			inserted++
		}
		out = append(out, Prediction{PredictionRecord: rec, Inserted: ok})
	}

	s.log.Info().
		Ints("pool", pool).
		Ints("fixed", fixed).
		Int("combinations", len(out)).
		Int("inserted", inserted).
		Msg("Predictions generated")

	return out, nil
}
