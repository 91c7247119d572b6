package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingIngester struct {
	calls int
	err   error
}

func (c *countingIngester) Ingest(ctx context.Context) error {
	c.calls++
	if _, ok := ctx.Deadline(); !ok {
		return errors.New("missing deadline")
	}
	return c.err
}

func TestAddJob(t *testing.T) {
	s := New(zerolog.Nop())
	job := NewIngestJob(&countingIngester{}, time.Second, zerolog.Nop())

	require.NoError(t, s.AddJob("0 30 21 * * MON-SAT", job))
	assert.Equal(t, 1, s.Entries())

	assert.Error(t, s.AddJob("not a schedule", job))
	assert.Equal(t, 1, s.Entries())
}

func TestRunNow(t *testing.T) {
	s := New(zerolog.Nop())
	ing := &countingIngester{}
	job := NewIngestJob(ing, 0, zerolog.Nop())

	require.NoError(t, s.RunNow(job))
	assert.Equal(t, 1, ing.calls)
	assert.Equal(t, "ingest_draws", job.Name())

	ing.err = errors.New("feed down")
	assert.EqualError(t, s.RunNow(job), "feed down")
}

func TestStartStop(t *testing.T) {
	s := New(zerolog.Nop())
	s.Start()
	s.Stop()
}
