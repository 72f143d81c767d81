package rates

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateEUR(t *testing.T) {
	fetcher := NewECBFetcher("http://unused.invalid")

	quote, err := fetcher.Rate(context.Background(), "2024-03-12", "eur")
	require.NoError(t, err)
	require.NotNil(t, quote)

	assert.InDelta(t, 1.0, quote.Rate, 0.0000001)
	assert.Equal(t, "ECB reference rate", quote.Source)
	assert.Contains(t, quote.URL, "ecb.europa.eu")
}

func TestRateMissingInputs(t *testing.T) {
	fetcher := NewECBFetcher("http://unused.invalid")

	quote, err := fetcher.Rate(context.Background(), "", "USD")
	require.NoError(t, err)
	assert.Nil(t, quote)

	quote, err = fetcher.Rate(context.Background(), "2024-03-12", "")
	require.NoError(t, err)
	assert.Nil(t, quote)
}

func TestRateFetchAndCache(t *testing.T) {
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		assert.Equal(t, "/2024-03-12", r.URL.Path)
		assert.Equal(t, "USD", r.URL.Query().Get("base"))
		assert.Equal(t, "EUR", r.URL.Query().Get("symbols"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"rates": {"EUR": 0.9213}, "motd": {"url": "https://example.org/terms"}}`))
	}))
	defer server.Close()

	fetcher := NewECBFetcher(server.URL)

	quote, err := fetcher.Rate(context.Background(), "2024-03-12", "usd")
	require.NoError(t, err)
	require.NotNil(t, quote)
	assert.InDelta(t, 0.9213, quote.Rate, 0.0000001)
	assert.Equal(t, "EUR", quote.Currency)
	assert.Equal(t, "ECB reference (via exchangerate.host)", quote.Source)
	assert.Equal(t, "https://example.org/terms", quote.URL)

	// Second call is served from the cache.
	quote, err = fetcher.Rate(context.Background(), "2024-03-12", "USD")
	require.NoError(t, err)
	require.NotNil(t, quote)
	assert.Equal(t, 1, requests)
}

func TestRateNegativeCache(t *testing.T) {
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		requests++
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	fetcher := NewECBFetcher(server.URL)

	_, err := fetcher.Rate(context.Background(), "2024-03-12", "XYZ")
	require.Error(t, err)

	quote, err := fetcher.Rate(context.Background(), "2024-03-12", "XYZ")
	require.NoError(t, err)
	assert.Nil(t, quote)
	assert.Equal(t, 1, requests)
}

func TestRateMissingEURSymbol(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"rates": {"GBP": 0.85}}`))
	}))
	defer server.Close()

	fetcher := NewECBFetcher(server.URL)

	_, err := fetcher.Rate(context.Background(), "2024-03-12", "USD")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no EUR rate")
}
