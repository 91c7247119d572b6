// Package domain holds the draw, combination and prediction types shared by
// the reconciler, the store adapters and the prediction pipeline.
package domain

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

const (
	// DefaultMaxNumber is the highest number that can be drawn.
	DefaultMaxNumber = 25
	// DefaultDrawSize is the number of distinct numbers in one official draw.
	DefaultDrawSize = 15
	// DateLayout is the canonical on-disk representation of a draw date.
	DateLayout = "2006-01-02"
)

// dateLayouts lists the formats accepted for incoming and stored draw dates.
// The feed publishes dd/mm/yyyy; stores write DateLayout.
var dateLayouts = []string{
	"02/01/2006",
	DateLayout,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// Rules describes the shape of a valid draw.
type Rules struct {
	MaxNumber int
	DrawSize  int
}

// DefaultRules returns the Lotofácil draw shape: 15 numbers out of 25.
func DefaultRules() Rules {
	return Rules{MaxNumber: DefaultMaxNumber, DrawSize: DefaultDrawSize}
}

// DrawRecord is one official draw. DrawID is the unique dedup key.
type DrawRecord struct {
	DrawID   int       `json:"draw_id"`
	DrawDate time.Time `json:"draw_date"`
	Numbers  []int     `json:"numbers"`
}

// DateString formats the draw date with DateLayout.
func (d DrawRecord) DateString() string {
	if d.DrawDate.IsZero() {
		return ""
	}
	return d.DrawDate.Format(DateLayout)
}

// RawDraw is an incoming, not yet validated draw payload. Numbers may hold any
// value the feed or a legacy store produced: a slice of strings or numbers, or
// a delimited string.
type RawDraw struct {
	DrawID   int    `json:"draw_id"`
	DrawDate string `json:"draw_date"`
	Numbers  any    `json:"numbers"`
}

// ToRecord validates the payload against rules and returns its canonical record.
// Failures are reported as *MalformedRecordError.
func (r RawDraw) ToRecord(rules Rules) (DrawRecord, error) {
	if r.DrawID <= 0 {
		return DrawRecord{}, &MalformedRecordError{DrawID: r.DrawID, Field: "draw_id", Err: fmt.Errorf("must be positive")}
	}

	date, err := ParseDrawDate(r.DrawDate)
	if err != nil {
		return DrawRecord{}, &MalformedRecordError{DrawID: r.DrawID, Field: "draw_date", Err: err}
	}

	numbers, err := NormalizeNumbers(r.Numbers)
	if err != nil {
		return DrawRecord{}, &MalformedRecordError{DrawID: r.DrawID, Field: "numbers", Err: err}
	}
	if err := ValidateDrawNumbers(numbers, rules); err != nil {
		return DrawRecord{}, &MalformedRecordError{DrawID: r.DrawID, Field: "numbers", Err: err}
	}

	return DrawRecord{DrawID: r.DrawID, DrawDate: date, Numbers: numbers}, nil
}

// ParseDrawDate accepts the feed format (dd/mm/yyyy) as well as ISO dates and
// timestamps. The result is truncated to a UTC calendar date.
func ParseDrawDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", s)
}

// CloneDraws returns a deep copy so callers can mutate the result freely.
func CloneDraws(draws []DrawRecord) []DrawRecord {
	out := make([]DrawRecord, len(draws))
	for i, d := range draws {
		out[i] = DrawRecord{
			DrawID:   d.DrawID,
			DrawDate: d.DrawDate,
			Numbers:  append([]int(nil), d.Numbers...),
		}
	}
	return out
}

// SortByDrawIDDesc orders draws newest first, the presentation order of every store.
func SortByDrawIDDesc(draws []DrawRecord) {
	sort.SliceStable(draws, func(i, j int) bool {
		return draws[i].DrawID > draws[j].DrawID
	})
}

// SortByDrawIDAsc orders draws oldest first, the order training data is built in.
func SortByDrawIDAsc(draws []DrawRecord) {
	sort.SliceStable(draws, func(i, j int) bool {
		return draws[i].DrawID < draws[j].DrawID
	})
}
