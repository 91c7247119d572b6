package occurrences

import (
	"testing"

	"github.com/aristath/lotofacil/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seq(from, to int) []int {
	out := []int{}
	for n := from; n <= to; n++ {
		out = append(out, n)
	}
	return out
}

func TestReport_SyntheticHistory(t *testing.T) {
	history := []domain.DrawRecord{
		{DrawID: 1, Numbers: seq(1, 15)},
		{DrawID: 2, Numbers: append(seq(1, 14), 16)},
		{DrawID: 3, Numbers: seq(2, 16)},
	}

	report := Report(history)
	require.Len(t, report, 16)

	byNumber := map[int]Occurrence{}
	sum := 0.0
	for _, o := range report {
		byNumber[o.Number] = o
		sum += o.Percentage
		assert.Equal(t, 45, o.Total)
	}

	assert.Equal(t, 2, byNumber[1].Count)
	assert.Equal(t, 2, byNumber[16].Count)
	assert.Equal(t, 3, byNumber[2].Count)
	assert.Equal(t, 2, byNumber[15].Count)
	assert.InDelta(t, 100.0, sum, 1e-9)

	// 2..14 occur three times and lead the report
	assert.Equal(t, 2, report[0].Number)
	assert.Equal(t, 3, report[0].Count)
	assert.Equal(t, 14, report[12].Number)
	assert.Equal(t, []int{1, 15, 16}, []int{report[13].Number, report[14].Number, report[15].Number})
}

func TestReport_Empty(t *testing.T) {
	assert.Empty(t, Report(nil))
}
