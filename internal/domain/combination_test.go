package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCombination_KeyIsOrderIndependent(t *testing.T) {
	a := Combination{3, 1, 2}
	b := Combination{1, 2, 3}

	assert.Equal(t, a.Key(), b.Key())
	assert.Equal(t, "1-2-3", a.Key())
	assert.Equal(t, Combination{3, 1, 2}, a, "Key must not reorder the receiver")
}

func TestNewCombination_SortsCopy(t *testing.T) {
	in := []int{5, 4}
	c := NewCombination(in)

	assert.Equal(t, Combination{4, 5}, c)
	assert.Equal(t, []int{5, 4}, in)
	assert.True(t, c.Contains(4))
	assert.False(t, c.Contains(6))
}

func TestParseSetKey(t *testing.T) {
	c, err := ParseSetKey("1-10-25")
	require.NoError(t, err)
	assert.Equal(t, Combination{1, 10, 25}, c)
}

func TestHistoryIndex(t *testing.T) {
	draws := []DrawRecord{
		{DrawID: 1, Numbers: []int{1, 2, 3}},
		{DrawID: 2, Numbers: []int{4, 5, 6}},
		{DrawID: 3, Numbers: []int{3, 2, 1}},
	}

	idx := NewHistoryIndex(draws)

	assert.Equal(t, 2, idx.Len())
	assert.True(t, idx.Contains([]int{2, 3, 1}))
	assert.True(t, idx.Contains(Combination{4, 5, 6}))
	assert.False(t, idx.Contains([]int{1, 2}))
}
