// Package combinations builds prediction combinations from fixed numbers.
package combinations

import (
	"fmt"
	"math/rand"

	"github.com/aristath/lotofacil/internal/domain"
	"github.com/rs/zerolog"
)

// Config controls generation.
type Config struct {
	MaxNumber int
	Count     int // combinations per run
	// MaxAttempts bounds every random draw, including redraws of numbers
	// that are already fixed.
	MaxAttempts int
}

// DefaultConfig returns the Lotofácil defaults.
func DefaultConfig() Config {
	return Config{
		MaxNumber:   domain.DefaultMaxNumber,
		Count:       11,
		MaxAttempts: 1000,
	}
}

// Generator extends a fixed set with one random number per combination.
type Generator struct {
	cfg Config
	rng *rand.Rand
	log zerolog.Logger
}

// NewGenerator creates a generator. rng must not be shared with other goroutines.
func NewGenerator(cfg Config, rng *rand.Rand, log zerolog.Logger) *Generator {
	return &Generator{
		cfg: cfg,
		rng: rng,
		log: log.With().Str("component", "combination_generator").Logger(),
	}
}

// Generate returns exactly Count pairwise distinct combinations (as sets),
// each the fixed numbers plus one other number in [1, MaxNumber], sorted
// ascending, in generation order. No partial result is returned on error.
func (g *Generator) Generate(fixed []int) ([]domain.Combination, error) {
	if err := g.validate(fixed); err != nil {
		return nil, err
	}

	available := g.cfg.MaxNumber - len(fixed)
	if available < g.cfg.Count {
		return nil, fmt.Errorf("%w: %d candidate numbers for %d combinations",
			domain.ErrGenerationExhausted, available, g.cfg.Count)
	}

	isFixed := make(map[int]bool, len(fixed))
	for _, n := range fixed {
		isFixed[n] = true
	}

	result := make([]domain.Combination, 0, g.cfg.Count)
	seen := make(map[string]bool, g.cfg.Count)
	attempts := 0
	duplicates := 0

	for len(result) < g.cfg.Count {
		extra := 0
		for {
			if attempts >= g.cfg.MaxAttempts {
				return nil, fmt.Errorf("%w: %d of %d combinations after %d attempts",
					domain.ErrGenerationExhausted, len(result), g.cfg.Count, attempts)
			}
			attempts++
			candidate := g.rng.Intn(g.cfg.MaxNumber) + 1
			if !isFixed[candidate] {
				extra = candidate
				break
			}
		}

		combo := domain.NewCombination(append(append([]int(nil), fixed...), extra))
		key := combo.Key()
		if seen[key] {
			duplicates++
			continue
		}
		seen[key] = true
		result = append(result, combo)
	}

	g.log.Debug().
		Int("combinations", len(result)).
		Int("attempts", attempts).
		Int("duplicates_rejected", duplicates).
		Msg("Combinations generated")

	return result, nil
}

func (g *Generator) validate(fixed []int) error {
	if len(fixed) >= g.cfg.MaxNumber {
		return fmt.Errorf("%w: %d fixed numbers leave no room in [1,%d]",
			domain.ErrInvalidFixedNumbers, len(fixed), g.cfg.MaxNumber)
	}
	if err := domain.ValidateNumberSet(fixed, g.cfg.MaxNumber); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidFixedNumbers, err)
	}
	return nil
}
