package cache

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"featurehost/internal/platform/metrics"
)

// Fetcher memoizes external GET calls through a Store. On a hit the cached
// payload is returned with zero external calls; on a miss exactly one fetch
// is performed and the result is stored only when the upstream call
// succeeded. Concurrent misses on the same key may both fetch: the cache is
// advisory, not a distributed lock, and read-path providers are assumed
// idempotent.
type Fetcher struct {
	store   Store
	client  *http.Client
	logger  *slog.Logger
	metrics *metrics.Metrics
}

type FetcherOption func(*Fetcher)

// WithHTTPClient substitutes the HTTP client (tests point it at httptest servers).
func WithHTTPClient(client *http.Client) FetcherOption {
	return func(f *Fetcher) {
		f.client = client
	}
}

// WithMetrics enables hit/miss counters.
func WithMetrics(m *metrics.Metrics) FetcherOption {
	return func(f *Fetcher) {
		f.metrics = m
	}
}

func NewFetcher(store Store, logger *slog.Logger, opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		store:  store,
		client: &http.Client{Timeout: 10 * time.Second},
		logger: logger,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// FetchJSON returns the payload for url, serving from the cache when a live
// entry exists under key. The second return reports whether the payload came
// from the cache.
func (f *Fetcher) FetchJSON(ctx context.Context, key, url string, ttl time.Duration) ([]byte, bool, error) {
	cached, ok, err := f.store.Get(ctx, key)
	if err != nil {
		// A broken cache backend degrades to a plain fetch.
		f.logger.Error("cache read failed", "key", key, "error", err)
	}
	if ok {
		if f.metrics != nil {
			f.metrics.CacheHits.Inc()
		}
		return cached, true, nil
	}
	if f.metrics != nil {
		f.metrics.CacheMisses.Inc()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, false, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, false, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, false, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Failed upstream results are never cached; the next caller retries.
		return nil, false, fmt.Errorf("fetch %s: status %d", url, resp.StatusCode)
	}

	if err := f.store.Set(ctx, key, body, ttl); err != nil {
		f.logger.Error("cache write failed", "key", key, "error", err)
	}
	return body, false, nil
}
