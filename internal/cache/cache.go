// Package cache memoizes expensive external calls behind a pluggable
// key/value store with hard TTL expiry. The pipeline and feature handlers
// depend only on the Store interface; backends are swappable between the
// in-memory store and Redis without changing callers.
package cache

import (
	"context"
	"strings"
	"time"
)

// Store is the TTL key/value contract. Get after the entry's TTL has elapsed
// behaves as a miss; TTL is a hard expiry, never refreshed on read.
// Concurrent Set on the same key is last-writer-wins.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Key composes a cache key from a feature ID and the request signature
// parts. Segments are joined with ':' after escaping, matching the
// rate-limit key scheme.
func Key(featureID string, parts ...string) string {
	segs := make([]string, 0, len(parts)+2)
	segs = append(segs, "fetch", escapeSegment(featureID))
	for _, p := range parts {
		segs = append(segs, escapeSegment(p))
	}
	return strings.Join(segs, ":")
}

func escapeSegment(s string) string {
	return strings.ReplaceAll(s, ":", "_")
}
