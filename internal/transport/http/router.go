// Package httptransport is the thin HTTP layer. Feature routes are resolved
// dynamically through the registry on every request, so registering or
// deregistering a feature takes effect without rebuilding the router.
package httptransport

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"featurehost/internal/pipeline"
	"featurehost/internal/registry"
	"featurehost/pkg/platform/httputil"
	"featurehost/pkg/platform/middleware/metadata"
)

// Handler dispatches inbound requests to registered feature pipelines.
type Handler struct {
	registry *registry.Registry
	logger   *slog.Logger
}

func NewHandler(reg *registry.Registry, logger *slog.Logger) *Handler {
	return &Handler{registry: reg, logger: logger}
}

// NewRouter wires the public endpoints: health, metrics, the feature
// catalog, and the dynamic feature dispatch catch-all.
func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(metadata.ClientMetadata)

	r.Get("/healthz", h.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	r.Get("/api/features", h.handleCatalog)

	// Every manifest-declared route lands here and resolves via the registry.
	r.NotFound(h.handleFeature)
	return r
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleCatalog lists every registered manifest for discovery by the UI.
func (h *Handler) handleCatalog(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"features": h.registry.List(),
		"count":    h.registry.Count(),
	})
}

// handleFeature resolves the route and runs the feature's pipeline.
func (h *Handler) handleFeature(w http.ResponseWriter, r *http.Request) {
	entry, ok := h.registry.Resolve(r.Method, r.URL.Path)
	if !ok {
		httputil.WriteJSON(w, http.StatusNotFound, map[string]any{
			"success": false,
			"error":   "Feature not found",
			"metadata": map[string]any{
				"timestamp": time.Now().UTC(),
			},
		})
		return
	}

	req := pipeline.ParseHTTP(r)
	outcome := entry.Pipeline.Handle(r.Context(), req)

	if outcome.RetryAfter > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(outcome.RetryAfter))
	}
	httputil.WriteJSON(w, outcome.Status, outcome.Envelope)
}
