package sqlstore

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aristath/lotofacil/internal/database"
	"github.com/aristath/lotofacil/internal/domain"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seq(from, to int) []int {
	out := make([]int, 0, to-from+1)
	for n := from; n <= to; n++ {
		out = append(out, n)
	}
	return out
}

type countingRecorder struct {
	ops []string
}

func (c *countingRecorder) StoreFailure(backend, op string) {
	c.ops = append(c.ops, backend+":"+op)
}

func newStore(t *testing.T) *Store {
	t.Helper()
	s := Open(Config{
		Path:    filepath.Join(t.TempDir(), "lotofacil.db"),
		Profile: database.ProfileCache,
		Rules:   domain.DefaultRules(),
	}, zerolog.Nop())
	require.NotNil(t, s.db)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestReconcileAndPersist_InsertThenUpdate(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	_, _, err := s.ReconcileAndPersist(ctx, s.Load(ctx), []domain.RawDraw{
		{DrawID: 2500, DrawDate: "07/01/2024", Numbers: seq(1, 15)},
		{DrawID: 2501, DrawDate: "08/01/2024", Numbers: seq(5, 19)},
	})
	require.NoError(t, err)

	changed := append(seq(1, 14), 16)
	_, _, err = s.ReconcileAndPersist(ctx, s.Load(ctx), []domain.RawDraw{{DrawID: 2500, DrawDate: "07/01/2024", Numbers: changed}})
	require.NoError(t, err)

	loaded := s.Load(ctx)
	require.Len(t, loaded, 2)
	assert.Equal(t, 2501, loaded[0].DrawID)
	assert.Equal(t, changed, loaded[1].Numbers)
	assert.Equal(t, time.Date(2024, 1, 7, 0, 0, 0, 0, time.UTC), loaded[1].DrawDate)
}

func TestReconcileAndPersist_Malformed(t *testing.T) {
	s := newStore(t)

	_, _, err := s.ReconcileAndPersist(context.Background(), nil, []domain.RawDraw{{DrawID: 1, DrawDate: "2024-01-07", Numbers: seq(1, 3)}})
	assert.True(t, errors.Is(err, domain.ErrMalformedRecord))
	assert.Empty(t, s.Load(context.Background()))
}

func TestSavePrediction_InsertIfAbsent(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	now := time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC)

	assert.True(t, s.SavePrediction(ctx, domain.PredictionRecord{ID: "a", Combination: domain.Combination(seq(1, 12)), PredictionDate: now}))
	assert.False(t, s.SavePrediction(ctx, domain.PredictionRecord{ID: "b", Combination: domain.Combination{12, 11, 10, 9, 8, 7, 6, 5, 4, 3, 2, 1}, PredictionDate: now}))
	assert.True(t, s.SavePrediction(ctx, domain.PredictionRecord{ID: "c", Combination: domain.Combination(seq(2, 13)), OccurredBefore: true, PredictionDate: now.Add(time.Minute)}))

	preds := s.LoadPredictions(ctx)
	require.Len(t, preds, 2)
	assert.Equal(t, "c", preds[0].ID)
	assert.True(t, preds[0].OccurredBefore)
	assert.Equal(t, domain.Combination(seq(1, 12)), preds[1].Combination)
}

func TestOpenFailureDegrades(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))

	s := Open(Config{Path: filepath.Join(blocker, "db", "x.db"), Rules: domain.DefaultRules()}, zerolog.Nop())
	ctx := context.Background()

	assert.Empty(t, s.Load(ctx))
	merged, persisted, err := s.ReconcileAndPersist(ctx, nil, []domain.RawDraw{{DrawID: 1, DrawDate: "2024-01-07", Numbers: seq(1, 15)}})
	require.NoError(t, err)
	assert.Len(t, merged, 1)
	assert.False(t, persisted)
	assert.Empty(t, s.LoadPredictions(ctx))
	assert.ErrorIs(t, s.Snapshot(ctx, &bytes.Buffer{}), domain.ErrStoreUnavailable)
}

func TestSnapshot(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	_, _, err := s.ReconcileAndPersist(ctx, nil, []domain.RawDraw{{DrawID: 1, DrawDate: "2024-01-07", Numbers: seq(1, 15)}})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, s.Snapshot(ctx, &buf))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("SQLite format 3")))
}

func TestLoadPredictions_SkipsUnreadableCombination(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	at := time.Date(2024, 1, 8, 10, 0, 0, 0, time.UTC)
	require.True(t, s.SavePrediction(ctx, domain.PredictionRecord{ID: "good", Combination: domain.Combination(seq(1, 12)), PredictionDate: at}))

	_, err := s.db.Conn().ExecContext(ctx, `
		INSERT INTO predictions (combination_key, id, combination, occurred_before, prediction_date)
		VALUES ('bad', 'bad', 'one, two', 0, ?)
	`, at.Add(time.Hour).Unix())
	require.NoError(t, err)

	preds := s.LoadPredictions(ctx)
	require.Len(t, preds, 1)
	assert.Equal(t, "good", preds[0].ID)
}

func TestLoadPredictions_ClosedDatabase(t *testing.T) {
	rec := &countingRecorder{}
	s := Open(Config{
		Path:     filepath.Join(t.TempDir(), "lotofacil.db"),
		Profile:  database.ProfileCache,
		Rules:    domain.DefaultRules(),
		Failures: rec,
	}, zerolog.Nop())
	require.NotNil(t, s.db)
	require.NoError(t, s.db.Close())

	assert.Empty(t, s.LoadPredictions(context.Background()))
	assert.Equal(t, []string{"sqlite:load_predictions"}, rec.ops)
}
