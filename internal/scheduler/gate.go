package scheduler

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// MarkerFile is the name of the last-fetch marker inside the data dir.
const MarkerFile = "last_fetch"

const markerLayout = "2006-01-02"

// Gate decides whether today's feed fetch should run. There is no draw on
// the skip weekday, and once a fetch succeeds the gate stays closed for the
// rest of the calendar day.
type Gate struct {
	marker string
	skip   time.Weekday
	noSkip bool
	log    zerolog.Logger
}

// NewGate creates a gate storing its marker in dataDir. skipWeekday is an
// English weekday name, or "none" / "" to fetch every day.
func NewGate(dataDir, skipWeekday string, log zerolog.Logger) (*Gate, error) {
	g := &Gate{
		marker: filepath.Join(dataDir, MarkerFile),
		log:    log.With().Str("component", "fetch_gate").Logger(),
	}

	day, ok, err := ParseWeekday(skipWeekday)
	if err != nil {
		return nil, err
	}
	g.skip = day
	g.noSkip = !ok
	return g, nil
}

// ParseWeekday parses an English weekday name or three letter abbreviation.
// ok is false for "none" and the empty string.
func ParseWeekday(s string) (day time.Weekday, ok bool, err error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" || s == "none" {
		return 0, false, nil
	}
	for d := time.Sunday; d <= time.Saturday; d++ {
		name := strings.ToLower(d.String())
		if s == name || s == name[:3] {
			return d, true, nil
		}
	}
	return 0, false, fmt.Errorf("unknown weekday %q", s)
}

// ShouldFetchToday reports whether a fetch is due at now.
func (g *Gate) ShouldFetchToday(now time.Time) bool {
	if !g.noSkip && now.Weekday() == g.skip {
		g.log.Debug().Str("weekday", now.Weekday().String()).Msg("No draw today, skipping fetch")
		return false
	}

	data, err := os.ReadFile(g.marker)
	if err != nil {
		if !os.IsNotExist(err) {
			g.log.Warn().Err(err).Str("path", g.marker).Msg("Failed to read fetch marker")
		}
		return true
	}

	if strings.TrimSpace(string(data)) == now.Format(markerLayout) {
		g.log.Debug().Msg("Already fetched today")
		return false
	}
	return true
}

// MarkFetched records a successful fetch at now. Failures are logged only.
func (g *Gate) MarkFetched(now time.Time) {
	if err := os.MkdirAll(filepath.Dir(g.marker), 0755); err != nil {
		g.log.Warn().Err(err).Msg("Failed to create marker directory")
		return
	}
	if err := os.WriteFile(g.marker, []byte(now.Format(markerLayout)+"\n"), 0644); err != nil {
		g.log.Warn().Err(err).Str("path", g.marker).Msg("Failed to write fetch marker")
	}
}
