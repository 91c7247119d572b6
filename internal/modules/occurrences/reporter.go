// Package occurrences counts how often each number appears in the history.
package occurrences

import (
	"sort"

	"github.com/aristath/lotofacil/internal/domain"
)

// Occurrence is one row of the report.
type Occurrence struct {
	Number     int     `json:"number"`
	Count      int     `json:"count"`
	Total      int     `json:"total"`
	Percentage float64 `json:"percentage"`
}

// Report flattens every draw's numbers and returns per-number counts sorted by
// count descending, then number ascending. Numbers that never occurred are
// not listed.
func Report(history []domain.DrawRecord) []Occurrence {
	counts := make(map[int]int)
	total := 0
	for _, d := range history {
		for _, n := range d.Numbers {
			counts[n]++
			total++
		}
	}

	report := make([]Occurrence, 0, len(counts))
	for n, c := range counts {
		report = append(report, Occurrence{
			Number:     n,
			Count:      c,
			Total:      total,
			Percentage: float64(c) / float64(total) * 100,
		})
	}

	sort.Slice(report, func(i, j int) bool {
		if report[i].Count != report[j].Count {
			return report[i].Count > report[j].Count
		}
		return report[i].Number < report[j].Number
	})
	return report
}
