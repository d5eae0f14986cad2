package ratelimit

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestMemoryStoreAllow(t *testing.T) {
	ctx := context.Background()

	t.Run("threshold plus one is denied", func(t *testing.T) {
		store := NewMemoryStore()
		const limit = 3

		for i := 0; i < limit; i++ {
			res, err := store.Allow(ctx, "ip:1.2.3.4", limit, time.Minute)
			require.NoError(t, err)
			assert.True(t, res.Allowed, "request %d should be allowed", i+1)
			assert.Equal(t, limit-i-1, res.Remaining)
		}

		res, err := store.Allow(ctx, "ip:1.2.3.4", limit, time.Minute)
		require.NoError(t, err)
		assert.False(t, res.Allowed)
		assert.Equal(t, 0, res.Remaining)
		assert.GreaterOrEqual(t, res.RetryAfter, 1)
	})

	t.Run("window rollover admits again", func(t *testing.T) {
		store := NewMemoryStore()
		window := 100 * time.Millisecond

		res, err := store.Allow(ctx, "ip:5.6.7.8", 1, window)
		require.NoError(t, err)
		assert.True(t, res.Allowed)

		res, err = store.Allow(ctx, "ip:5.6.7.8", 1, window)
		require.NoError(t, err)
		assert.False(t, res.Allowed)

		time.Sleep(window + 50*time.Millisecond)

		res, err = store.Allow(ctx, "ip:5.6.7.8", 1, window)
		require.NoError(t, err)
		assert.True(t, res.Allowed)
	})

	t.Run("keys are independent", func(t *testing.T) {
		store := NewMemoryStore()

		res, err := store.Allow(ctx, "ip:a", 1, time.Minute)
		require.NoError(t, err)
		require.True(t, res.Allowed)

		res, err = store.Allow(ctx, "ip:b", 1, time.Minute)
		require.NoError(t, err)
		assert.True(t, res.Allowed)
	})

	t.Run("reset clears the counter", func(t *testing.T) {
		store := NewMemoryStore()

		_, err := store.Allow(ctx, "ip:c", 1, time.Minute)
		require.NoError(t, err)
		require.NoError(t, store.Reset(ctx, "ip:c"))

		res, err := store.Allow(ctx, "ip:c", 1, time.Minute)
		require.NoError(t, err)
		assert.True(t, res.Allowed)
	})
}

func TestIdentity(t *testing.T) {
	assert.Equal(t, "wallet:7nYaGx", Identity("7nYaGx", "key-1", "1.2.3.4"))
	assert.Equal(t, "key:key-1", Identity("", "key-1", "1.2.3.4"))
	assert.Equal(t, "ip:1.2.3.4", Identity("", "", "1.2.3.4"))
}

func TestSanitizeSegment(t *testing.T) {
	// Caller-controlled identifiers cannot fabricate key segments.
	assert.Equal(t, "user_admin", SanitizeSegment("user:admin"))
}

func TestServiceCheck(t *testing.T) {
	ctx := context.Background()

	t.Run("enforces the configured limit", func(t *testing.T) {
		svc := NewService(NewMemoryStore(), 2, time.Minute, discardLogger())

		for i := 0; i < 2; i++ {
			res, err := svc.Check(ctx, "ip:9.9.9.9")
			require.NoError(t, err)
			assert.True(t, res.Allowed)
		}
		res, err := svc.Check(ctx, "ip:9.9.9.9")
		require.NoError(t, err)
		assert.False(t, res.Allowed)
	})

	t.Run("disabled service always allows", func(t *testing.T) {
		svc := NewService(NewMemoryStore(), 1, time.Minute, discardLogger(), WithDisabled(true))

		for i := 0; i < 5; i++ {
			res, err := svc.Check(ctx, "ip:9.9.9.9")
			require.NoError(t, err)
			assert.True(t, res.Allowed)
		}
	})

	t.Run("store failure fails open", func(t *testing.T) {
		svc := NewService(failingStore{}, 1, time.Minute, discardLogger())

		res, err := svc.Check(ctx, "ip:9.9.9.9")
		require.NoError(t, err)
		assert.True(t, res.Allowed)
	})
}

type failingStore struct{}

func (failingStore) Allow(context.Context, string, int, time.Duration) (*Result, error) {
	return nil, context.DeadlineExceeded
}

func (failingStore) Reset(context.Context, string) error {
	return nil
}
