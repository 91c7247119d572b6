package document

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aristath/lotofacil/internal/domain"
	"github.com/dgraph-io/badger/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
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

func newMemoryStore(t *testing.T) *Store {
	t.Helper()
	s := Open(Config{InMemory: true, Rules: domain.DefaultRules()}, zerolog.Nop())
	require.NotNil(t, s.db)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestReconcileAndPersist_Upserts(t *testing.T) {
	ctx := context.Background()
	s := newMemoryStore(t)

	assert.Empty(t, s.Load(ctx))

	_, _, err := s.ReconcileAndPersist(ctx, s.Load(ctx), []domain.RawDraw{
		{DrawID: 2500, DrawDate: "2024-01-07", Numbers: seq(1, 15)},
		{DrawID: 2499, DrawDate: "2024-01-06", Numbers: seq(3, 17)},
	})
	require.NoError(t, err)

	changed := append(seq(1, 14), 16)
	merged, _, err := s.ReconcileAndPersist(ctx, s.Load(ctx), []domain.RawDraw{
		{DrawID: 2500, DrawDate: "2024-01-07", Numbers: changed},
	})
	require.NoError(t, err)
	require.Len(t, merged, 2)

	loaded := s.Load(ctx)
	require.Len(t, loaded, 2)
	assert.Equal(t, 2500, loaded[0].DrawID)
	assert.Equal(t, changed, loaded[0].Numbers)
	assert.Equal(t, time.Date(2024, 1, 7, 0, 0, 0, 0, time.UTC), loaded[0].DrawDate)
	assert.Equal(t, seq(3, 17), loaded[1].Numbers)
}

func TestReconcileAndPersist_Malformed(t *testing.T) {
	s := newMemoryStore(t)

	_, _, err := s.ReconcileAndPersist(context.Background(), nil, []domain.RawDraw{{DrawID: 1, DrawDate: "2024-01-07", Numbers: []any{"1", "x"}}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrMalformedRecord))
	assert.Empty(t, s.Load(context.Background()))
}

func TestLoad_LegacyStringNumbers(t *testing.T) {
	s := newMemoryStore(t)

	legacy, err := msgpack.Marshal(map[string]any{
		"draw_id":   7,
		"draw_date": "05/05/2005",
		"numbers":   "1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15",
	})
	require.NoError(t, err)
	broken, err := msgpack.Marshal(map[string]any{"draw_id": 8, "numbers": true})
	require.NoError(t, err)

	require.NoError(t, s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(drawKey(7), legacy); err != nil {
			return err
		}
		return txn.Set(drawKey(8), broken)
	}))

	loaded := s.Load(context.Background())
	require.Len(t, loaded, 1)
	assert.Equal(t, 7, loaded[0].DrawID)
	assert.Equal(t, seq(1, 15), loaded[0].Numbers)
}

func TestSavePrediction_InsertIfAbsent(t *testing.T) {
	ctx := context.Background()
	s := newMemoryStore(t)
	now := time.Date(2024, 1, 8, 12, 0, 0, 0, time.UTC)

	rec := domain.PredictionRecord{ID: "p1", Combination: domain.Combination(seq(1, 12)), PredictionDate: now}
	assert.True(t, s.SavePrediction(ctx, rec))

	reordered := domain.PredictionRecord{ID: "p2", Combination: domain.Combination{12, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11}, PredictionDate: now}
	assert.False(t, s.SavePrediction(ctx, reordered))

	preds := s.LoadPredictions(ctx)
	require.Len(t, preds, 1)
	assert.Equal(t, "p1", preds[0].ID)
	assert.Equal(t, now, preds[0].PredictionDate)
}

func TestOpenFailureDegrades(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))

	rec := &countingRecorder{}
	s := Open(Config{Dir: filepath.Join(blocker, "db"), Rules: domain.DefaultRules(), Failures: rec}, zerolog.Nop())
	ctx := context.Background()

	assert.Empty(t, s.Load(ctx))
	merged, persisted, err := s.ReconcileAndPersist(ctx, nil, []domain.RawDraw{{DrawID: 1, DrawDate: "2024-01-07", Numbers: seq(1, 15)}})
	require.NoError(t, err)
	assert.Len(t, merged, 1)
	assert.False(t, persisted)
	assert.False(t, s.SavePrediction(ctx, domain.PredictionRecord{Combination: domain.Combination(seq(1, 12))}))
	assert.ErrorIs(t, s.Snapshot(ctx, &bytes.Buffer{}), domain.ErrStoreUnavailable)
	assert.NoError(t, s.Close())

	assert.Contains(t, rec.ops, "database:open")
	assert.Contains(t, rec.ops, "database:persist")
}

func TestSnapshot_Backup(t *testing.T) {
	ctx := context.Background()
	s := newMemoryStore(t)
	_, _, err := s.ReconcileAndPersist(ctx, nil, []domain.RawDraw{{DrawID: 1, DrawDate: "2024-01-07", Numbers: seq(1, 15)}})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, s.Snapshot(ctx, &buf))
	assert.NotZero(t, buf.Len())
}
