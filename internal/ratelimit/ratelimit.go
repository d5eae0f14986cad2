// Package ratelimit enforces per-identity request limits in front of feature
// handlers. Identities are keyed wallet address > API key > client IP, and
// counter storage is pluggable: the in-memory sliding window suits a single
// instance, the Redis store gives atomic increment-and-compare semantics
// across instances.
package ratelimit

import (
	"context"
	"log/slog"
	"strings"
	"time"
)

// Result represents the outcome of a rate limit check.
type Result struct {
	Allowed    bool      `json:"allowed"`
	Limit      int       `json:"limit"`
	Remaining  int       `json:"remaining"`
	ResetAt    time.Time `json:"reset_at"`
	RetryAfter int       `json:"retry_after,omitempty"` // seconds, only set when not allowed
}

// Store counts requests per key within a window. Allow both checks and
// increments; a denied request still consumed no slot.
type Store interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (*Result, error)
	Reset(ctx context.Context, key string) error
}

// SanitizeSegment escapes delimiter characters in rate limit key segments to
// prevent key collision attacks where caller-controlled identifiers
// containing ':' could manipulate adjacent buckets.
func SanitizeSegment(s string) string {
	return strings.ReplaceAll(s, ":", "_")
}

// Identity selects the request-identity key in policy order: wallet address,
// then API key, then client IP. Each source is prefixed so identities from
// different sources never collide.
func Identity(wallet, apiKey, clientIP string) string {
	switch {
	case wallet != "":
		return "wallet:" + SanitizeSegment(wallet)
	case apiKey != "":
		return "key:" + SanitizeSegment(apiKey)
	default:
		return "ip:" + SanitizeSegment(clientIP)
	}
}

// Service applies the configured limit to request identities.
type Service struct {
	store    Store
	limit    int
	window   time.Duration
	disabled bool
	logger   *slog.Logger
}

type Option func(*Service)

// WithDisabled disables rate limiting entirely (for testing/demo mode).
func WithDisabled(disabled bool) Option {
	return func(s *Service) {
		s.disabled = disabled
	}
}

func NewService(store Store, limit int, window time.Duration, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		store:  store,
		limit:  limit,
		window: window,
		logger: logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.disabled {
		logger.Info("rate limiting disabled")
	}
	return s
}

// Check counts one request for identity and reports whether it is allowed.
// Store errors fail open: a broken counter backend must not take down
// feature traffic, and the relaxation is logged.
func (s *Service) Check(ctx context.Context, identity string) (*Result, error) {
	if s.disabled {
		return &Result{Allowed: true, Limit: s.limit, Remaining: s.limit}, nil
	}

	result, err := s.store.Allow(ctx, "rl:"+identity, s.limit, s.window)
	if err != nil {
		s.logger.Error("rate limit check failed, allowing request", "error", err)
		return &Result{Allowed: true, Limit: s.limit}, nil
	}
	if !result.Allowed {
		s.logger.Warn("rate limit exceeded", "identity", identity, "limit", s.limit)
	}
	return result, nil
}
