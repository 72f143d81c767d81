// Package rates resolves invoice currencies to EUR reference exchange rates.
package rates

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/verdantlabs/factormatch/internal/model"
)

const (
	ecbReferenceURL = "https://www.ecb.europa.eu/stats/policy_and_exchange_rates/euro_reference_exchange_rates/html/index.en.html"
	defaultBaseURL  = "https://api.exchangerate.host"
)

// ECBFetcher looks up daily EUR reference rates, caching per currency and date.
// Failed lookups are cached too so a batch does not hammer the API for a
// currency it cannot resolve.
type ECBFetcher struct {
	httpClient *http.Client
	baseURL    string
	cache      map[string]*model.RateQuote
	locks      map[string]*sync.Mutex
	mu         sync.Mutex
}

// NewECBFetcher creates a rate fetcher backed by the exchangerate.host API.
func NewECBFetcher(baseURL string) *ECBFetcher {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &ECBFetcher{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		cache:   make(map[string]*model.RateQuote),
		locks:   make(map[string]*sync.Mutex),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Rate returns the EUR conversion rate for the currency on the given date.
// EUR itself always resolves to 1.0 without a network call. A nil quote with
// a nil error means the currency could not be resolved earlier in this run.
func (f *ECBFetcher) Rate(ctx context.Context, date, currency string) (*model.RateQuote, error) {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if date == "" || currency == "" {
		return nil, nil
	}

	if currency == "EUR" {
		return &model.RateQuote{
			Rate:     1.0,
			Currency: "EUR",
			Source:   "ECB reference rate",
			URL:      ecbReferenceURL,
		}, nil
	}

	key := currency + "|" + date
	lock := f.keyLock(key)
	lock.Lock()
	defer lock.Unlock()

	f.mu.Lock()
	quote, cached := f.cache[key]
	f.mu.Unlock()
	if cached {
		return quote, nil
	}

	quote, err := f.fetch(ctx, date, currency)
	if err != nil {
		f.store(key, nil)
		return nil, err
	}

	f.store(key, quote)
	return quote, nil
}

func (f *ECBFetcher) keyLock(key string) *sync.Mutex {
	f.mu.Lock()
	defer f.mu.Unlock()
	lock, ok := f.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		f.locks[key] = lock
	}
	return lock
}

func (f *ECBFetcher) store(key string, quote *model.RateQuote) {
	f.mu.Lock()
	f.cache[key] = quote
	f.mu.Unlock()
}

func (f *ECBFetcher) fetch(ctx context.Context, date, currency string) (*model.RateQuote, error) {
	query := url.Values{}
	query.Set("base", currency)
	query.Set("symbols", "EUR")

	endpoint := fmt.Sprintf("%s/%s?%s", f.baseURL, date, query.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rate lookup failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("rate API error (status %d): %s", resp.StatusCode, string(body))
	}

	var payload struct {
		Rates map[string]float64 `json:"rates"`
		MOTD  struct {
			URL string `json:"url"`
		} `json:"motd"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	rate, ok := payload.Rates["EUR"]
	if !ok {
		return nil, fmt.Errorf("no EUR rate for %s on %s", currency, date)
	}

	sourceURL := payload.MOTD.URL
	if sourceURL == "" {
		sourceURL = "https://exchangerate.host"
	}

	return &model.RateQuote{
		Rate:     rate,
		Currency: "EUR",
		Source:   "ECB reference (via exchangerate.host)",
		URL:      sourceURL,
	}, nil
}
