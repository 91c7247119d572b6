package scheduler

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 2024-01-07 is a Sunday
var sunday = time.Date(2024, 1, 7, 21, 0, 0, 0, time.UTC)

func TestParseWeekday(t *testing.T) {
	tests := []struct {
		in   string
		day  time.Weekday
		ok   bool
		fail bool
	}{
		{"sunday", time.Sunday, true, false},
		{"Sun", time.Sunday, true, false},
		{" saturday ", time.Saturday, true, false},
		{"none", 0, false, false},
		{"", 0, false, false},
		{"domingo", 0, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			day, ok, err := ParseWeekday(tt.in)
			if tt.fail {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.day, day)
			assert.Equal(t, tt.ok, ok)
		})
	}
}

func TestGate_SkipWeekday(t *testing.T) {
	g, err := NewGate(t.TempDir(), "sunday", zerolog.Nop())
	require.NoError(t, err)

	assert.False(t, g.ShouldFetchToday(sunday))
	assert.True(t, g.ShouldFetchToday(sunday.AddDate(0, 0, 1)))

	g, err = NewGate(t.TempDir(), "none", zerolog.Nop())
	require.NoError(t, err)
	assert.True(t, g.ShouldFetchToday(sunday))
}

func TestGate_OncePerDay(t *testing.T) {
	dir := t.TempDir()
	g, err := NewGate(dir, "sunday", zerolog.Nop())
	require.NoError(t, err)

	monday := sunday.AddDate(0, 0, 1)
	require.True(t, g.ShouldFetchToday(monday))

	g.MarkFetched(monday)
	assert.FileExists(t, filepath.Join(dir, MarkerFile))
	assert.False(t, g.ShouldFetchToday(monday.Add(time.Hour)))
	assert.True(t, g.ShouldFetchToday(monday.AddDate(0, 0, 1)))
}

func TestGate_MarkerFailureMeansNotFetched(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))

	g, err := NewGate(blocker, "none", zerolog.Nop())
	require.NoError(t, err)

	g.MarkFetched(sunday)
	assert.True(t, g.ShouldFetchToday(sunday))
}

func TestNewGate_InvalidWeekday(t *testing.T) {
	_, err := NewGate(t.TempDir(), "someday", zerolog.Nop())
	assert.Error(t, err)
}
