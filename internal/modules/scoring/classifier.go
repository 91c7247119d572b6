package scoring

import (
	"fmt"
	"math"

	"github.com/aristath/lotofacil/internal/domain"
	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"
)

// minSamples is the smallest training set a classifier will accept.
const minSamples = 2

// Trainer fits a Classifier on feature rows and multi-label indicator targets.
type Trainer interface {
	Fit(features, targets *mat.Dense) (Classifier, error)
}

// Classifier returns a probes x classes matrix of per-class probabilities.
type Classifier interface {
	PredictScores(probes *mat.Dense) (*mat.Dense, error)
}

// LogisticTrainer fits one L2-regularised logistic regression per class.
type LogisticTrainer struct {
	lambda float64
	log    zerolog.Logger
}

// NewLogisticTrainer creates a trainer. lambda <= 0 selects 0.01.
func NewLogisticTrainer(lambda float64, log zerolog.Logger) *LogisticTrainer {
	if lambda <= 0 {
		lambda = 0.01
	}
	return &LogisticTrainer{
		lambda: lambda,
		log:    log.With().Str("component", "logistic_trainer").Logger(),
	}
}

// LogisticModel is a fitted one-vs-rest logistic classifier.
type LogisticModel struct {
	// classes x (features+1); the last column is the intercept
	weights *mat.Dense
}

// Fit trains the model. Every failure wraps domain.ErrTrainingFailed.
func (t *LogisticTrainer) Fit(features, targets *mat.Dense) (Classifier, error) {
	n, f := features.Dims()
	tn, classes := targets.Dims()
	if n != tn {
		return nil, fmt.Errorf("%w: %d feature rows for %d target rows", domain.ErrTrainingFailed, n, tn)
	}
	if n < minSamples {
		return nil, fmt.Errorf("%w: %d samples, need at least %d", domain.ErrTrainingFailed, n, minSamples)
	}

	design := withIntercept(features)
	weights := mat.NewDense(classes, f+1, nil)
	for c := 0; c < classes; c++ {
		w, err := t.fitClass(design, mat.Col(nil, c, targets))
		if err != nil {
			return nil, fmt.Errorf("%w: class %d: %v", domain.ErrTrainingFailed, c, err)
		}
		weights.SetRow(c, w)
	}

	t.log.Debug().
		Int("samples", n).
		Int("classes", classes).
		Msg("Classifier trained")

	return &LogisticModel{weights: weights}, nil
}

func (t *LogisticTrainer) fitClass(x *mat.Dense, y []float64) ([]float64, error) {
	n, d := x.Dims()
	lambda := t.lambda
	scale := 1 / float64(n)

	problem := optimize.Problem{
		Func: func(w []float64) float64 {
			z := mat.NewVecDense(n, nil)
			z.MulVec(x, mat.NewVecDense(d, w))
			loss := 0.0
			for i := 0; i < n; i++ {
				zi := z.AtVec(i)
				loss += softplus(zi) - y[i]*zi
			}
			// intercept is not penalised
			return loss*scale + 0.5*lambda*floats.Dot(w[:d-1], w[:d-1])
		},
		Grad: func(grad, w []float64) {
			z := mat.NewVecDense(n, nil)
			z.MulVec(x, mat.NewVecDense(d, w))
			resid := mat.NewVecDense(n, nil)
			for i := 0; i < n; i++ {
				resid.SetVec(i, sigmoid(z.AtVec(i))-y[i])
			}
			g := mat.NewVecDense(d, grad)
			g.MulVec(x.T(), resid)
			g.ScaleVec(scale, g)
			for j := 0; j < d-1; j++ {
				grad[j] += lambda * w[j]
			}
		},
	}

	initial := make([]float64, d)
	settings := &optimize.Settings{GradientThreshold: 1e-6}

	result, err := optimize.Minimize(problem, initial, settings, &optimize.BFGS{})
	if err != nil {
		t.log.Debug().Err(err).Msg("BFGS failed, trying Nelder-Mead")
		result, err = optimize.Minimize(problem, initial, settings, &optimize.NelderMead{})
	}
	if err != nil {
		return nil, err
	}

	switch result.Status {
	case optimize.Success, optimize.GradientThreshold, optimize.FunctionConvergence, optimize.MethodConverge:
	default:
		return nil, fmt.Errorf("optimisation did not converge: %v", result.Status)
	}

	for _, v := range result.X {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("non-finite weights")
		}
	}
	return result.X, nil
}

// PredictScores implements Classifier.
func (m *LogisticModel) PredictScores(probes *mat.Dense) (*mat.Dense, error) {
	_, f := probes.Dims()
	classes, d := m.weights.Dims()
	if f != d-1 {
		return nil, fmt.Errorf("probe has %d features, model expects %d", f, d-1)
	}

	design := withIntercept(probes)
	rows, _ := design.Dims()
	out := mat.NewDense(rows, classes, nil)
	out.Mul(design, m.weights.T())
	out.Apply(func(_, _ int, v float64) float64 { return sigmoid(v) }, out)
	return out, nil
}

func withIntercept(features *mat.Dense) *mat.Dense {
	n, f := features.Dims()
	design := mat.NewDense(n, f+1, nil)
	design.Slice(0, n, 0, f).(*mat.Dense).Copy(features)
	for i := 0; i < n; i++ {
		design.Set(i, f, 1)
	}
	return design
}

func sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1 + e)
}

// softplus is log(1+exp(z)) without overflow.
func softplus(z float64) float64 {
	if z > 0 {
		return z + math.Log1p(math.Exp(-z))
	}
	return math.Log1p(math.Exp(z))
}
