package cache

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()

	t.Run("set then get returns the value", func(t *testing.T) {
		store := NewMemoryStore(time.Minute)
		defer store.Close()

		require.NoError(t, store.Set(ctx, "k", []byte("v"), time.Minute))

		val, ok, err := store.Get(ctx, "k")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, []byte("v"), val)
	})

	t.Run("get after TTL behaves as miss", func(t *testing.T) {
		store := NewMemoryStore(time.Minute)
		defer store.Close()

		require.NoError(t, store.Set(ctx, "k", []byte("v"), 50*time.Millisecond))
		time.Sleep(80 * time.Millisecond)

		_, ok, err := store.Get(ctx, "k")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("unknown key is a miss", func(t *testing.T) {
		store := NewMemoryStore(time.Minute)
		defer store.Close()

		_, ok, err := store.Get(ctx, "nope")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("concurrent set is last writer wins", func(t *testing.T) {
		store := NewMemoryStore(time.Minute)
		defer store.Close()

		require.NoError(t, store.Set(ctx, "k", []byte("first"), time.Minute))
		require.NoError(t, store.Set(ctx, "k", []byte("second"), time.Minute))

		val, ok, err := store.Get(ctx, "k")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, []byte("second"), val)
	})
}

func TestKey(t *testing.T) {
	assert.Equal(t, "fetch:gas-tracker:solana", Key("gas-tracker", "solana"))
	// Delimiters inside segments cannot collide with adjacent keys.
	assert.Equal(t, "fetch:f:a_b", Key("f", "a:b"))
}

func TestFetcher(t *testing.T) {
	ctx := context.Background()

	t.Run("hit serves from cache with zero external calls", func(t *testing.T) {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.Write([]byte(`{"price": 42}`))
		}))
		defer srv.Close()

		store := NewMemoryStore(time.Minute)
		defer store.Close()
		fetcher := NewFetcher(store, discardLogger())

		payload, cached, err := fetcher.FetchJSON(ctx, "k", srv.URL, time.Minute)
		require.NoError(t, err)
		assert.False(t, cached)
		assert.JSONEq(t, `{"price": 42}`, string(payload))
		assert.Equal(t, int32(1), calls.Load())

		payload, cached, err = fetcher.FetchJSON(ctx, "k", srv.URL, time.Minute)
		require.NoError(t, err)
		assert.True(t, cached)
		assert.JSONEq(t, `{"price": 42}`, string(payload))
		assert.Equal(t, int32(1), calls.Load(), "cache hit must not fetch")
	})

	t.Run("expired entry refetches", func(t *testing.T) {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.Write([]byte(`{}`))
		}))
		defer srv.Close()

		store := NewMemoryStore(time.Minute)
		defer store.Close()
		fetcher := NewFetcher(store, discardLogger())

		_, _, err := fetcher.FetchJSON(ctx, "k", srv.URL, 40*time.Millisecond)
		require.NoError(t, err)
		time.Sleep(70 * time.Millisecond)

		_, cached, err := fetcher.FetchJSON(ctx, "k", srv.URL, 40*time.Millisecond)
		require.NoError(t, err)
		assert.False(t, cached)
		assert.Equal(t, int32(2), calls.Load())
	})

	t.Run("failed upstream results are not cached", func(t *testing.T) {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer srv.Close()

		store := NewMemoryStore(time.Minute)
		defer store.Close()
		fetcher := NewFetcher(store, discardLogger())

		_, _, err := fetcher.FetchJSON(ctx, "k", srv.URL, time.Minute)
		require.Error(t, err)

		_, _, err = fetcher.FetchJSON(ctx, "k", srv.URL, time.Minute)
		require.Error(t, err)
		assert.Equal(t, int32(2), calls.Load(), "failures must not be served from cache")
	})
}
