package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetcher_Fetch_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(singleItemRSS))
	}))
	defer srv.Close()

	f := NewFetcher(srv.Client())
	entries, err := f.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Hello", entries[0].Title)
}

func TestFetcher_Fetch_NonTwoXXIsError(t *testing.T) {
	// 400 is not in the retry package's retryable status set, so this
	// fails on the first attempt instead of looping through backoff delays.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	f := NewFetcher(srv.Client())
	_, err := f.Fetch(context.Background(), srv.URL)
	assert.Error(t, err)
}
