// Package scoring ranks numbers by a classifier's mean predicted probability.
//
// The ranking is a weighting heuristic. Nothing here implies that higher
// ranked numbers are more likely to be drawn.
package scoring

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"github.com/aristath/lotofacil/internal/domain"
	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Config bounds training and inference.
type Config struct {
	MaxNumber  int
	PoolSize   int
	SampleSize int
	ProbeCount int
}

// DefaultConfig returns the Lotofácil defaults.
func DefaultConfig() Config {
	return Config{
		MaxNumber:  domain.DefaultMaxNumber,
		PoolSize:   14,
		SampleSize: 100,
		ProbeCount: 100,
	}
}

// NumberScore is one ranked number. Padded entries carry no score.
type NumberScore struct {
	Number int     `json:"number"`
	Score  float64 `json:"score"`
	Padded bool    `json:"padded,omitempty"`
}

// Scorer builds the candidate pool. It is not safe for concurrent use because
// it owns its random source.
type Scorer struct {
	cfg     Config
	trainer Trainer
	rng     *rand.Rand
	log     zerolog.Logger
}

// NewScorer creates a scorer. rng must not be shared with other goroutines.
func NewScorer(cfg Config, trainer Trainer, rng *rand.Rand, log zerolog.Logger) *Scorer {
	return &Scorer{
		cfg:     cfg,
		trainer: trainer,
		rng:     rng,
		log:     log.With().Str("component", "scorer").Logger(),
	}
}

// Fit trains a classifier on a bounded random sample of history. Each sample
// pairs one number drawn from a draw (scaled to [0,1)) with that draw's
// indicator vector over [1, MaxNumber].
func (s *Scorer) Fit(history []domain.DrawRecord) (Classifier, error) {
	features, targets, err := s.trainingSet(history)
	if err != nil {
		return nil, err
	}
	return s.trainer.Fit(features, targets)
}

// Rank fits on history and returns exactly PoolSize distinct numbers. A
// training failure is logged and yields a purely random pool.
func (s *Scorer) Rank(history []domain.DrawRecord) []NumberScore {
	model, err := s.Fit(history)
	if err != nil {
		s.log.Warn().Err(err).Int("history", len(history)).Msg("Training failed, using random pool")
		return s.pad(nil)
	}
	return s.RankWith(model)
}

// RankWith scores every number with model on uniform random probes. Numbers
// with non-finite scores are dropped; the pool is padded to PoolSize.
func (s *Scorer) RankWith(model Classifier) []NumberScore {
	probes := mat.NewDense(s.cfg.ProbeCount, 1, nil)
	for i := 0; i < s.cfg.ProbeCount; i++ {
		probes.Set(i, 0, s.rng.Float64())
	}

	probs, err := model.PredictScores(probes)
	if err != nil {
		s.log.Warn().Err(err).Msg("Inference failed, using random pool")
		return s.pad(nil)
	}

	_, classes := probs.Dims()
	scores := make([]NumberScore, 0, classes)
	for c := 0; c < classes && c < s.cfg.MaxNumber; c++ {
		mean := stat.Mean(mat.Col(nil, c, probs), nil)
		if math.IsNaN(mean) || math.IsInf(mean, 0) {
			continue
		}
		scores = append(scores, NumberScore{Number: c + 1, Score: mean})
	}

	sort.SliceStable(scores, func(i, j int) bool {
		if scores[i].Score != scores[j].Score {
			return scores[i].Score > scores[j].Score
		}
		return scores[i].Number < scores[j].Number
	})
	if len(scores) > s.cfg.PoolSize {
		scores = scores[:s.cfg.PoolSize]
	}

	return s.pad(scores)
}

// Pool returns the numbers of a ranking in rank order.
func Pool(ranked []NumberScore) []int {
	out := make([]int, len(ranked))
	for i, r := range ranked {
		out[i] = r.Number
	}
	return out
}

func (s *Scorer) trainingSet(history []domain.DrawRecord) (*mat.Dense, *mat.Dense, error) {
	usable := make([]domain.DrawRecord, 0, len(history))
	for _, d := range history {
		if len(d.Numbers) > 0 {
			usable = append(usable, d)
		}
	}
	if len(usable) < minSamples {
		return nil, nil, fmt.Errorf("%w: %d usable draws, need at least %d", domain.ErrTrainingFailed, len(usable), minSamples)
	}

	size := s.cfg.SampleSize
	if size <= 0 || size > len(usable) {
		size = len(usable)
	}

	features := mat.NewDense(size, 1, nil)
	targets := mat.NewDense(size, s.cfg.MaxNumber, nil)
	for row, i := range s.rng.Perm(len(usable))[:size] {
		d := usable[i]
		picked := d.Numbers[s.rng.Intn(len(d.Numbers))]
		features.Set(row, 0, float64(picked-1)/float64(s.cfg.MaxNumber))
		for _, n := range d.Numbers {
			if n >= 1 && n <= s.cfg.MaxNumber {
				targets.Set(row, n-1, 1)
			}
		}
	}
	return features, targets, nil
}

// pad appends uniformly random unused numbers until the pool is full.
func (s *Scorer) pad(scores []NumberScore) []NumberScore {
	used := make(map[int]bool, len(scores))
	for _, sc := range scores {
		used[sc.Number] = true
	}
	remaining := make([]int, 0, s.cfg.MaxNumber)
	for n := 1; n <= s.cfg.MaxNumber; n++ {
		if !used[n] {
			remaining = append(remaining, n)
		}
	}

	for len(scores) < s.cfg.PoolSize && len(remaining) > 0 {
		i := s.rng.Intn(len(remaining))
		scores = append(scores, NumberScore{Number: remaining[i], Padded: true})
		remaining = append(remaining[:i], remaining[i+1:]...)
	}
	return scores
}
