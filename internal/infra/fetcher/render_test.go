package fetcher

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderFetcher_Fetch_Success(t *testing.T) {
	var gotReq renderRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		_ = json.NewEncoder(w).Encode(renderResponse{Status: true, Result: sampleArticleHTML})
	}))
	defer srv.Close()

	cfg := DefaultConfig()
	cfg.DenyPrivateIPs = false
	cfg.RenderServiceURL = srv.URL
	f := NewRenderFetcher(cfg)

	html, err := f.Fetch(context.Background(), "https://example.com/a")
	require.NoError(t, err)
	assert.Contains(t, string(html), "Sample Article")
	assert.Len(t, gotReq.Scripts, 7)
	assert.Equal(t, waitForSelector, gotReq.WaitFor)
}

func TestRenderFetcher_Fetch_ServiceReportsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(renderResponse{Status: false, Errors: []renderError{{Code: "timeout", Message: "navigation timeout"}}})
	}))
	defer srv.Close()

	cfg := DefaultConfig()
	cfg.DenyPrivateIPs = false
	cfg.RenderServiceURL = srv.URL
	f := NewRenderFetcher(cfg)

	_, err := f.Fetch(context.Background(), "https://example.com/a")
	assert.ErrorIs(t, err, ErrFetchFailed)
}

func TestRenderFetcher_Fetch_MalformedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not json"))
	}))
	defer srv.Close()

	cfg := DefaultConfig()
	cfg.DenyPrivateIPs = false
	cfg.RenderServiceURL = srv.URL
	f := NewRenderFetcher(cfg)

	_, err := f.Fetch(context.Background(), "https://example.com/a")
	assert.ErrorIs(t, err, ErrValidationFailed)
}
