// Package embeddings calls the external embeddings microservice consumed in
// enrichment step 3a (spec §6: "POST <base>/embeddings ... consumed, not
// specified"). Shape grounded on internal/infra/fetcher.RenderFetcher: a
// plain REST POST behind a circuit breaker and retry loop, a bearer-style
// header, a body-size limit, and a typed request/response pair.
package embeddings

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"feedmill/internal/infra/apithrottle"
	"feedmill/internal/resilience/circuitbreaker"
	"feedmill/internal/resilience/retry"

	"github.com/sony/gobreaker"
)

// Sentinel errors for embeddings-service failures.
var (
	// ErrEmptyInput indicates Embed was called with no texts to embed.
	ErrEmptyInput = errors.New("embeddings: no input texts")

	// ErrServiceFailed is the general transport/HTTP failure kind.
	ErrServiceFailed = errors.New("embeddings: service call failed")

	// ErrMalformedResponse indicates the response body didn't decode, or
	// returned a different number of vectors than texts sent.
	ErrMalformedResponse = errors.New("embeddings: malformed service response")

	// ErrDimensionMismatch indicates a returned vector's length doesn't
	// match the configured dimension.
	ErrDimensionMismatch = errors.New("embeddings: unexpected vector dimension")
)

const maxResponseBytes = 16 << 20 // 16 MiB, generous for a handful of float vectors

type embedRequest struct {
	Texts []string `json:"texts"`
}

type embedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

// Config controls how Client reaches the embeddings service.
type Config struct {
	BaseURL        string
	APIToken       string
	Dimension      int
	Timeout        time.Duration
	CallsPerMinute int
}

// Client implements enrichment step 3a: given the search text built by
// buildSearchText, return its embedding vector.
type Client struct {
	httpClient     *http.Client
	circuitBreaker *circuitbreaker.CircuitBreaker
	retryConfig    retry.Config
	throttle       *apithrottle.Throttle
	cfg            Config
}

// New builds an embeddings Client from cfg.
func New(cfg Config) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Client{
		httpClient:     &http.Client{Timeout: cfg.Timeout},
		circuitBreaker: circuitbreaker.New(circuitbreaker.EmbeddingsServiceConfig()),
		retryConfig:    retry.EmbeddingConfig(),
		throttle:       apithrottle.New("embeddings-api", cfg.CallsPerMinute, time.Minute),
		cfg:            cfg,
	}
}

// Embed returns the embedding vector for a single text, per enrichment
// step 3a. The service accepts a batch ("texts") but feedmill always calls
// it with one article's search text at a time, since steps 3a and 3b run
// per-article in parallel with each other, not across articles.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, ErrEmptyInput
	}

	if err := c.throttle.Wait(ctx); err != nil {
		return nil, fmt.Errorf("embeddings: throttle: %w", err)
	}

	var vector []float32
	retryErr := retry.WithBackoff(ctx, c.retryConfig, func() error {
		result, err := c.circuitBreaker.Execute(func() (interface{}, error) {
			return c.doEmbed(ctx, text)
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) {
				return fmt.Errorf("%w: circuit breaker open", ErrServiceFailed)
			}
			return err
		}
		vector = result.([]float32)
		return nil
	})
	if retryErr != nil {
		return nil, fmt.Errorf("embeddings: embed failed: %w", retryErr)
	}
	return vector, nil
}

func (c *Client) doEmbed(ctx context.Context, text string) ([]float32, error) {
	payload := embedRequest{Texts: []string{text}}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: encode request: %v", ErrMalformedResponse, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrServiceFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Token", c.cfg.APIToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrServiceFailed, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &retry.HTTPError{StatusCode: resp.StatusCode, Message: fmt.Sprintf("%s: status %d", ErrServiceFailed, resp.StatusCode)}
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrServiceFailed, err)
	}
	if len(raw) > maxResponseBytes {
		return nil, fmt.Errorf("%w: response exceeds %d bytes", ErrMalformedResponse, maxResponseBytes)
	}

	var parsed embedResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrMalformedResponse, err)
	}
	if len(parsed.Embeddings) != 1 {
		return nil, fmt.Errorf("%w: expected 1 vector, got %d", ErrMalformedResponse, len(parsed.Embeddings))
	}
	vector := parsed.Embeddings[0]
	if c.cfg.Dimension > 0 && len(vector) != c.cfg.Dimension {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(vector), c.cfg.Dimension)
	}
	return vector, nil
}
