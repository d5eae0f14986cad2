// Package gastracker is a built-in read-only feature reporting network gas
// prices. It doubles as the reference for feature authors: manifest shipped
// next to the handler, external data behind the cached fetcher.
package gastracker

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"time"

	"featurehost/internal/cache"
	"featurehost/internal/manifest"
	"featurehost/internal/pipeline"
)

//go:embed manifest.json
var manifestJSON []byte

// Manifest parses the embedded feature manifest.
func Manifest() (*manifest.Manifest, error) {
	return manifest.Parse(manifestJSON)
}

// Handler serves gas price lookups per network.
type Handler struct {
	fetcher  *cache.Fetcher
	baseURL  string
	ttl      time.Duration
	mockData bool
}

func New(fetcher *cache.Fetcher, baseURL string, ttl time.Duration, mockData bool) *Handler {
	return &Handler{fetcher: fetcher, baseURL: baseURL, ttl: ttl, mockData: mockData}
}

// Execute implements pipeline.Handler.
func (h *Handler) Execute(ctx context.Context, params map[string]string) (*pipeline.HandlerResult, error) {
	network := params["network"]

	if h.mockData {
		return &pipeline.HandlerResult{
			Data: map[string]any{
				"network":      network,
				"priorityFee":  0.000005,
				"unit":         "SOL",
				"congestion":   "low",
				"sampledSlots": 150,
			},
			Message: fmt.Sprintf("Current gas on %s is low", network),
		}, nil
	}

	key := cache.Key("gas-tracker", network)
	url := fmt.Sprintf("%s/gas?network=%s", h.baseURL, network)
	payload, _, err := h.fetcher.FetchJSON(ctx, key, url, h.ttl)
	if err != nil {
		return nil, fmt.Errorf("gas price lookup failed for %s", network)
	}

	var data any
	if err := json.Unmarshal(payload, &data); err != nil {
		return nil, fmt.Errorf("gas price provider returned malformed data")
	}
	return &pipeline.HandlerResult{
		Data:    data,
		Message: fmt.Sprintf("Gas prices for %s", network),
	}, nil
}
