package di

import (
	"context"
	"testing"

	"github.com/aristath/lotofacil/internal/config"
	"github.com/aristath/lotofacil/internal/scheduler"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	return &config.Config{
		DataDir:         t.TempDir(),
		Storage:         "csv",
		Workbook:        "resultados_lotofacil.xlsx",
		FeedURL:         "http://127.0.0.1:1/unreachable",
		SkipWeekday:     "sunday",
		MaxNumber:       25,
		DrawSize:        15,
		PoolSize:        14,
		FixedCount:      11,
		PredictionCount: 11,
		SampleSize:      100,
		ProbeCount:      100,
		MaxAttempts:     1000,
		Seed:            7,
		Cron:            "0 30 21 * * MON-SAT",
	}
}

func TestWire(t *testing.T) {
	c, err := Wire(context.Background(), testConfig(t), zerolog.Nop())
	require.NoError(t, err)
	defer c.Close()

	assert.Equal(t, "csv", c.Store.Name())
	assert.NotNil(t, c.Pipeline)
	assert.NotNil(t, c.Predictions)
	assert.Nil(t, c.Backup)
}

func TestWire_PredictOnEmptyStore(t *testing.T) {
	cfg := testConfig(t)
	c, err := Wire(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	defer c.Close()

	preds, err := c.Predictions.Predict(context.Background(), nil)
	require.NoError(t, err)
	assert.Len(t, preds, 11)
	assert.Len(t, c.Store.LoadPredictions(context.Background()), 11)
}

func TestWire_Failures(t *testing.T) {
	t.Run("unknown storage", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Storage = "mongo"
		_, err := Wire(context.Background(), cfg, zerolog.Nop())
		assert.Error(t, err)
	})

	t.Run("bad skip weekday", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.SkipWeekday = "someday"
		_, err := Wire(context.Background(), cfg, zerolog.Nop())
		assert.Error(t, err)
	})
}

func TestRegisterJobs(t *testing.T) {
	c, err := Wire(context.Background(), testConfig(t), zerolog.Nop())
	require.NoError(t, err)
	defer c.Close()

	sched := scheduler.New(zerolog.Nop())
	require.NoError(t, RegisterJobs(c, sched, zerolog.Nop()))
	assert.Equal(t, 1, sched.Entries())

	c.Config.Cron = "bogus"
	assert.Error(t, RegisterJobs(c, scheduler.New(zerolog.Nop()), zerolog.Nop()))
}
