package scoring

import (
	"errors"
	"testing"

	"github.com/aristath/lotofacil/internal/domain"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestLogisticTrainer_LearnsOppositeClasses(t *testing.T) {
	// class 0 follows the feature, class 1 is its complement
	features := mat.NewDense(8, 1, []float64{0, 0, 0, 0, 1, 1, 1, 1})
	targets := mat.NewDense(8, 2, []float64{
		0, 1, 0, 1, 0, 1, 0, 1,
		1, 0, 1, 0, 1, 0, 1, 0,
	})

	model, err := NewLogisticTrainer(0.001, zerolog.Nop()).Fit(features, targets)
	require.NoError(t, err)

	probs, err := model.PredictScores(mat.NewDense(2, 1, []float64{0, 1}))
	require.NoError(t, err)

	assert.Less(t, probs.At(0, 0), 0.5)
	assert.Greater(t, probs.At(0, 1), 0.5)
	assert.Greater(t, probs.At(1, 0), 0.5)
	assert.Less(t, probs.At(1, 1), 0.5)
}

func TestLogisticTrainer_Failures(t *testing.T) {
	trainer := NewLogisticTrainer(0, zerolog.Nop())

	t.Run("too few samples", func(t *testing.T) {
		_, err := trainer.Fit(mat.NewDense(1, 1, []float64{0.5}), mat.NewDense(1, 2, []float64{1, 0}))
		assert.True(t, errors.Is(err, domain.ErrTrainingFailed))
	})

	t.Run("row mismatch", func(t *testing.T) {
		_, err := trainer.Fit(mat.NewDense(3, 1, nil), mat.NewDense(2, 2, nil))
		assert.True(t, errors.Is(err, domain.ErrTrainingFailed))
	})
}

func TestLogisticModel_ProbeWidthMismatch(t *testing.T) {
	model := &LogisticModel{weights: mat.NewDense(3, 2, nil)}
	_, err := model.PredictScores(mat.NewDense(4, 3, nil))
	assert.Error(t, err)
}

func TestSigmoidStable(t *testing.T) {
	assert.InDelta(t, 0.5, sigmoid(0), 1e-12)
	assert.InDelta(t, 1.0, sigmoid(800), 1e-12)
	assert.InDelta(t, 0.0, sigmoid(-800), 1e-12)
	assert.InDelta(t, 800.0, softplus(800), 1e-9)
}
