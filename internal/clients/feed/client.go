// Package feed fetches Lotofácil results from the public results API.
package feed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/aristath/lotofacil/internal/domain"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
)

// DefaultURL is the public Lotofácil results endpoint.
const DefaultURL = "https://loteriascaixa-api.herokuapp.com/api/lotofacil/"

// maxBody caps the response size; the full history is a few MB.
const maxBody = 64 << 20

// Config holds feed client settings
type Config struct {
	URL     string
	Timeout time.Duration
}

// Client fetches draws. Consecutive failures open a circuit breaker so that
// serve mode stops calling a dead feed until the timeout elapses.
type Client struct {
	url    string
	client *http.Client
	cb     *gobreaker.CircuitBreaker[[]domain.RawDraw]
	log    zerolog.Logger
}

// feedDraw is the wire shape of one draw.
type feedDraw struct {
	Concurso int    `json:"concurso"`
	Data     string `json:"data"`
	Dezenas  []any  `json:"dezenas"`
}

// NewClient creates a feed client
func NewClient(cfg Config, log zerolog.Logger) *Client {
	if cfg.URL == "" {
		cfg.URL = DefaultURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	c := &Client{
		url:    cfg.URL,
		client: &http.Client{Timeout: cfg.Timeout},
		log:    log.With().Str("client", "lotofacil-feed").Logger(),
	}

	c.cb = gobreaker.NewCircuitBreaker[[]domain.RawDraw](gobreaker.Settings{
		Name:        "lotofacil-feed",
		MaxRequests: 1,
		Interval:    0, // counts only reset on state change
		Timeout:     time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.log.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Feed circuit breaker state changed")
		},
	})

	return c
}

// Fetch downloads every draw the feed returns. The body may be an array of
// draws or a single draw object. Payloads are returned unvalidated.
func (c *Client) Fetch(ctx context.Context) ([]domain.RawDraw, error) {
	draws, err := c.cb.Execute(func() ([]domain.RawDraw, error) {
		return c.fetch(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("feed fetch failed: %w", err)
	}
	return draws, nil
}

// State reports the breaker state (closed, half-open, open).
func (c *Client) State() string {
	return c.cb.State().String()
}

func (c *Client) fetch(ctx context.Context) ([]domain.RawDraw, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	c.log.Debug().Str("url", c.url).Msg("Fetching draws")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	draws, err := decode(body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	c.log.Info().Int("draws", len(draws)).Msg("Draws fetched")
	return draws, nil
}

func decode(body []byte) ([]domain.RawDraw, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, fmt.Errorf("empty body")
	}

	var items []feedDraw
	if body[0] == '[' {
		if err := json.Unmarshal(body, &items); err != nil {
			return nil, err
		}
	} else {
		var one feedDraw
		if err := json.Unmarshal(body, &one); err != nil {
			return nil, err
		}
		items = []feedDraw{one}
	}

	out := make([]domain.RawDraw, 0, len(items))
	for _, it := range items {
		out = append(out, domain.RawDraw{
			DrawID:   it.Concurso,
			DrawDate: it.Data,
			Numbers:  it.Dezenas,
		})
	}
	return out, nil
}
