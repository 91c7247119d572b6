package feed

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aristath/lotofacil/internal/domain"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleDraw = `{"loteria":"lotofacil","concurso":3000,"data":"07/01/2024",
"dezenas":["01","02","03","04","05","06","07","08","09","10","11","12","13","14","15"]}`

func serve(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestFetch_Array(t *testing.T) {
	srv := serve(t, http.StatusOK, "["+sampleDraw+`,{"concurso":2999,"data":"2024-01-06","dezenas":[1,2,3,4,5,6,7,8,9,10,11,12,13,14,16]}]`)
	client := NewClient(Config{URL: srv.URL, Timeout: time.Second}, zerolog.Nop())

	draws, err := client.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, draws, 2)

	rec, err := draws[0].ToRecord(domain.DefaultRules())
	require.NoError(t, err)
	assert.Equal(t, 3000, rec.DrawID)
	assert.Equal(t, "2024-01-07", rec.DateString())
	assert.Equal(t, 15, rec.Numbers[14])

	rec, err = draws[1].ToRecord(domain.DefaultRules())
	require.NoError(t, err)
	assert.Equal(t, 16, rec.Numbers[14])
}

func TestFetch_SingleObject(t *testing.T) {
	srv := serve(t, http.StatusOK, sampleDraw)
	client := NewClient(Config{URL: srv.URL}, zerolog.Nop())

	draws, err := client.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, draws, 1)
	assert.Equal(t, 3000, draws[0].DrawID)
}

func TestFetch_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"server error", http.StatusInternalServerError, "oops"},
		{"not json", http.StatusOK, "<html>"},
		{"empty", http.StatusOK, "  "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := serve(t, tt.status, tt.body)
			_, err := NewClient(Config{URL: srv.URL}, zerolog.Nop()).Fetch(context.Background())
			assert.Error(t, err)
		})
	}
}

func TestFetch_BreakerOpensAfterConsecutiveFailures(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewClient(Config{URL: srv.URL}, zerolog.Nop())
	for i := 0; i < 3; i++ {
		_, err := client.Fetch(context.Background())
		require.Error(t, err)
	}
	assert.Equal(t, "open", client.State())

	_, err := client.Fetch(context.Background())
	assert.True(t, errors.Is(err, gobreaker.ErrOpenState))
	assert.Equal(t, int32(3), calls.Load())
}
