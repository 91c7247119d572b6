package domain

import (
	"sort"
	"strconv"
	"strings"
	"time"
)

// Combination is a candidate prediction. Equality is set equality; use Key
// to compare or index combinations.
type Combination []int

// NewCombination returns an ascending copy of numbers.
func NewCombination(numbers []int) Combination {
	c := append(Combination(nil), numbers...)
	sort.Ints(c)
	return c
}

// Key is the canonical, order-independent identity of a number set.
func (c Combination) Key() string {
	return SetKey(c)
}

// Contains reports whether n is part of the combination.
func (c Combination) Contains(n int) bool {
	for _, v := range c {
		if v == n {
			return true
		}
	}
	return false
}

// SetKey renders numbers as an ascending "-"-joined string.
func SetKey(numbers []int) string {
	sorted := append([]int(nil), numbers...)
	sort.Ints(sorted)

	var b strings.Builder
	for i, n := range sorted {
		if i > 0 {
			b.WriteByte('-')
		}
		b.WriteString(strconv.Itoa(n))
	}
	return b.String()
}

// ParseSetKey reverses SetKey.
func ParseSetKey(key string) (Combination, error) {
	numbers, err := ParseNumbers(strings.ReplaceAll(key, "-", ","))
	if err != nil {
		return nil, err
	}
	return Combination(numbers), nil
}

// PredictionRecord is the persisted outcome of one generated combination.
// At most one record exists per combination value.
type PredictionRecord struct {
	ID             string      `json:"id"`
	Combination    Combination `json:"combination"`
	OccurredBefore bool        `json:"occurred_before"`
	PredictionDate time.Time   `json:"prediction_date"`
}

// HistoryIndex answers "did this exact set already occur" in O(1). It is built
// once per run from the loaded history.
type HistoryIndex struct {
	keys map[string]struct{}
}

// NewHistoryIndex indexes the number set of every draw.
func NewHistoryIndex(draws []DrawRecord) *HistoryIndex {
	idx := &HistoryIndex{keys: make(map[string]struct{}, len(draws))}
	for _, d := range draws {
		idx.keys[SetKey(d.Numbers)] = struct{}{}
	}
	return idx
}

// Contains reports whether numbers, as a set, equals any indexed draw.
func (h *HistoryIndex) Contains(numbers []int) bool {
	_, ok := h.keys[SetKey(numbers)]
	return ok
}

// Len returns the number of distinct indexed sets.
func (h *HistoryIndex) Len() int {
	return len(h.keys)
}
