package draws

import (
	"errors"
	"testing"

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

func newReconciler() *Reconciler {
	return NewReconciler(domain.DefaultRules(), zerolog.Nop())
}

func TestMerge_IntoEmptyThenUpdate(t *testing.T) {
	r := newReconciler()

	first := []domain.RawDraw{{DrawID: 2500, DrawDate: "2024-01-07", Numbers: seq(1, 15)}}
	merged, stats, err := r.Merge(nil, first)
	require.NoError(t, err)
	require.Len(t, merged, 1)
	assert.Equal(t, 1, stats.Inserted)

	changed := append(seq(1, 14), 16)
	second := []domain.RawDraw{{DrawID: 2500, DrawDate: "2024-01-07", Numbers: changed}}
	merged, stats, err = r.Merge(merged, second)
	require.NoError(t, err)
	require.Len(t, merged, 1, "update must not append")
	assert.Equal(t, 1, stats.Updated)
	assert.Contains(t, merged[0].Numbers, 16)
	assert.NotContains(t, merged[0].Numbers, 15)
}

func TestMerge_Idempotent(t *testing.T) {
	r := newReconciler()
	existing := []domain.DrawRecord{
		{DrawID: 1, Numbers: seq(1, 15)},
		{DrawID: 2, Numbers: seq(2, 16)},
	}
	batch := []domain.RawDraw{
		{DrawID: 2, DrawDate: "02/01/2024", Numbers: seq(3, 17)},
		{DrawID: 3, DrawDate: "03/01/2024", Numbers: seq(4, 18)},
	}

	once, _, err := r.Merge(existing, batch)
	require.NoError(t, err)
	twice, stats, err := r.Merge(once, batch)
	require.NoError(t, err)

	assert.Equal(t, once, twice)
	assert.False(t, stats.Changed())
	assert.Equal(t, 2, stats.Unchanged)
}

func TestMerge_UniqueDrawIDs(t *testing.T) {
	r := newReconciler()
	existing := []domain.DrawRecord{
		{DrawID: 1, Numbers: seq(1, 15)},
		{DrawID: 1, Numbers: seq(2, 16)},
	}
	batch := []domain.RawDraw{
		{DrawID: 5, DrawDate: "2024-01-07", Numbers: seq(1, 15)},
		{DrawID: 5, DrawDate: "2024-01-08", Numbers: seq(5, 19)},
		{DrawID: 1, DrawDate: "2024-01-01", Numbers: seq(1, 15)},
	}

	merged, _, err := r.Merge(existing, batch)
	require.NoError(t, err)

	seen := map[int]bool{}
	for _, d := range merged {
		assert.False(t, seen[d.DrawID], "draw_id %d duplicated", d.DrawID)
		seen[d.DrawID] = true
	}
	assert.Len(t, merged, 2)
}

func TestMerge_DoesNotMutateExisting(t *testing.T) {
	r := newReconciler()
	existing := []domain.DrawRecord{{DrawID: 1, Numbers: seq(1, 15)}}

	_, _, err := r.Merge(existing, []domain.RawDraw{{DrawID: 1, DrawDate: "2024-01-07", Numbers: seq(2, 16)}})
	require.NoError(t, err)

	assert.Equal(t, seq(1, 15), existing[0].Numbers)
}

func TestMerge_MalformedPayloadSurfaces(t *testing.T) {
	r := newReconciler()
	existing := []domain.DrawRecord{{DrawID: 1, Numbers: seq(1, 15)}}
	batch := []domain.RawDraw{
		{DrawID: 2, DrawDate: "2024-01-07", Numbers: seq(1, 15)},
		{DrawID: 3, DrawDate: "2024-01-08", Numbers: "x, y, z"},
	}

	merged, _, err := r.Merge(existing, batch)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrMalformedRecord))
	assert.Nil(t, merged, "no partial merge on malformed input")

	var mre *domain.MalformedRecordError
	require.True(t, errors.As(err, &mre))
	assert.Equal(t, 3, mre.DrawID)
}
