// Package registry onboards feature manifests and resolves inbound routes to
// their pipelines. The registry is an explicit handle threaded through the
// transport layer, not a package-level singleton, so tests and multi-host
// setups can hold independent instances.
package registry

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"featurehost/internal/manifest"
	"featurehost/internal/pipeline"
)

// Entry pairs a registered manifest with its pipeline instance.
type Entry struct {
	Manifest *manifest.Manifest
	Pipeline *pipeline.Pipeline
}

// Registry is the process-wide mapping from feature ID to entry. Reads are
// concurrent during steady-state traffic; Register and Deregister take a
// brief exclusive section to keep registration all-or-nothing.
type Registry struct {
	mu      sync.RWMutex
	byID    map[string]*Entry
	byRoute map[string]*Entry

	cfg    pipeline.Config
	logger *slog.Logger
}

func New(cfg pipeline.Config, logger *slog.Logger) *Registry {
	return &Registry{
		byID:    make(map[string]*Entry),
		byRoute: make(map[string]*Entry),
		cfg:     cfg,
		logger:  logger,
	}
}

// Register validates and onboards a manifest with its handler. On any
// failure the registry is left unchanged.
func (r *Registry) Register(m *manifest.Manifest, handler pipeline.Handler) error {
	if m == nil {
		return fmt.Errorf("register: manifest is required")
	}
	if err := m.Validate(); err != nil {
		return fmt.Errorf("register %q: %w", m.ID, err)
	}
	if handler == nil {
		return fmt.Errorf("register %q: handler is required", m.ID)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[m.ID]; exists {
		return fmt.Errorf("register %q: feature ID already registered", m.ID)
	}
	routeKey := m.RouteKey()
	if other, exists := r.byRoute[routeKey]; exists {
		return fmt.Errorf("register %q: route %s already registered by %q", m.ID, routeKey, other.Manifest.ID)
	}

	entry := &Entry{
		Manifest: m,
		Pipeline: pipeline.New(m, handler, r.cfg),
	}
	r.byID[m.ID] = entry
	r.byRoute[routeKey] = entry

	r.logger.Info("feature registered",
		"feature_id", m.ID, "version", m.Version,
		"method", string(m.API.Method), "endpoint", m.API.Endpoint)
	return nil
}

// Resolve returns the entry serving method and endpoint.
func (r *Registry) Resolve(method, endpoint string) (*Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.byRoute[method+" "+endpoint]
	return entry, ok
}

// Get returns the entry for a feature ID.
func (r *Registry) Get(id string) (*Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.byID[id]
	return entry, ok
}

// List returns all registered manifests sorted by feature ID.
func (r *Registry) List() []*manifest.Manifest {
	r.mu.RLock()
	defer r.mu.RUnlock()

	manifests := make([]*manifest.Manifest, 0, len(r.byID))
	for _, entry := range r.byID {
		manifests = append(manifests, entry.Manifest)
	}
	sort.Slice(manifests, func(i, j int) bool {
		return manifests[i].ID < manifests[j].ID
	})
	return manifests
}

// Count returns the number of registered features.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}

// Deregister removes a feature. In-flight requests that already resolved the
// entry complete normally; the pipeline holds its own manifest reference.
func (r *Registry) Deregister(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.byID[id]
	if !ok {
		return false
	}
	delete(r.byID, id)
	delete(r.byRoute, entry.Manifest.RouteKey())

	r.logger.Info("feature deregistered", "feature_id", id)
	return true
}
