package fetcher

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net/http"

	"feedmill/internal/domain/entity"
	"feedmill/internal/resilience/circuitbreaker"
)

// PlainFetcher implements the "plain fetch" strategy (spec §4.3): a direct
// HTTP GET with a randomized mobile User-Agent and a Google referer.
// Grounded on the teacher's ReadabilityFetcher, internal/infra/fetcher/readability.go.
type PlainFetcher struct {
	client         *http.Client
	circuitBreaker *circuitbreaker.CircuitBreaker
	config         Config
}

func NewPlainFetcher(config Config) *PlainFetcher {
	f := &PlainFetcher{
		circuitBreaker: circuitbreaker.New(circuitbreaker.WebScraperConfig()),
		config:         config,
	}
	f.client = &http.Client{
		Timeout: config.Timeout,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			TLSClientConfig:     &tls.Config{MinVersion: tls.VersionTLS12},
		},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= f.config.MaxRedirects {
				return fmt.Errorf("%w: %d redirects", ErrTooManyRedirects, len(via))
			}
			if err := validateFetchURL(req.URL.String(), f.config.DenyPrivateIPs); err != nil {
				return err
			}
			return nil
		},
	}
	return f
}

// Fetch retrieves urlStr's raw HTML body.
func (f *PlainFetcher) Fetch(ctx context.Context, urlStr string) ([]byte, error) {
	if err := validateFetchURL(urlStr, f.config.DenyPrivateIPs); err != nil {
		return nil, err
	}

	result, err := f.circuitBreaker.Execute(func() (interface{}, error) {
		return f.doFetch(ctx, urlStr)
	})
	if err != nil {
		return nil, err
	}
	return result.([]byte), nil
}

func (f *PlainFetcher) doFetch(ctx context.Context, urlStr string) ([]byte, error) {
	reqCtx, cancel := context.WithTimeout(ctx, f.config.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, urlStr, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	req.Header.Set("User-Agent", randomUserAgent())
	req.Header.Set("Referer", googleReferer)

	resp, err := f.client.Do(req)
	if err != nil {
		if reqCtx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: status %d", ErrFetchFailed, resp.StatusCode)
	}

	limited := io.LimitReader(resp.Body, f.config.MaxBodySize+1)
	body, err := io.ReadAll(limited)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}
	if int64(len(body)) > f.config.MaxBodySize {
		return nil, fmt.Errorf("%w: %d bytes exceeds limit %d", ErrBodyTooLarge, len(body), f.config.MaxBodySize)
	}
	return body, nil
}

const privateNetworkMessage = "url cannot point to private network"

// validateFetchURL wraps entity.ValidateURL (the domain's SSRF check,
// internal/domain/entity/validation.go) with fetcher-package sentinel
// errors, and makes the private-IP check optional for tests/local
// rendering setups that legitimately target loopback addresses.
func validateFetchURL(urlStr string, denyPrivateIPs bool) error {
	err := entity.ValidateURL(urlStr)
	if err == nil {
		return nil
	}

	var valErr *entity.ValidationError
	isPrivateNetwork := errors.As(err, &valErr) && valErr.Message == privateNetworkMessage
	if isPrivateNetwork {
		if !denyPrivateIPs {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrPrivateIP, err)
	}
	return fmt.Errorf("%w: %v", ErrInvalidURL, err)
}
