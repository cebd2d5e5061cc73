package cacher

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func banner(text string, calls *int32) FetchFunc[string] {
	return func(ctx context.Context) (string, error) {
		atomic.AddInt32(calls, 1)
		return text, nil
	}
}

func TestMemoryCacher_GetOrFetch(t *testing.T) {
	ctx := context.Background()

	t.Run("miss fetches and hit reuses", func(t *testing.T) {
		c := NewMemoryCacher[string](cache.NoExpiration, time.Minute)
		var calls int32

		val, err := c.GetOrFetch(ctx, "banner", time.Minute, banner("welcome", &calls))
		require.NoError(t, err)
		assert.Equal(t, "welcome", val)

		val, err = c.GetOrFetch(ctx, "banner", time.Minute, banner("other", &calls))
		require.NoError(t, err)
		assert.Equal(t, "welcome", val)
		assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	})

	t.Run("fetch errors are not cached", func(t *testing.T) {
		c := NewMemoryCacher[string](cache.NoExpiration, time.Minute)

		_, err := c.GetOrFetch(ctx, "banner", time.Minute, func(ctx context.Context) (string, error) {
			return "", assert.AnError
		})
		assert.ErrorIs(t, err, assert.AnError)

		var calls int32
		val, err := c.GetOrFetch(ctx, "banner", time.Minute, banner("welcome", &calls))
		require.NoError(t, err)
		assert.Equal(t, "welcome", val)
		assert.Equal(t, int32(1), calls)
	})

	t.Run("expired values are fetched again", func(t *testing.T) {
		c := NewMemoryCacher[string](cache.NoExpiration, time.Minute)
		var calls int32

		_, err := c.GetOrFetch(ctx, "banner", 10*time.Millisecond, banner("welcome", &calls))
		require.NoError(t, err)

		time.Sleep(30 * time.Millisecond)
		_, err = c.GetOrFetch(ctx, "banner", 10*time.Millisecond, banner("welcome", &calls))
		require.NoError(t, err)
		assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	})

	t.Run("concurrent misses share one fetch", func(t *testing.T) {
		c := NewMemoryCacher[string](cache.NoExpiration, time.Minute)
		var calls int32
		slow := func(ctx context.Context) (string, error) {
			atomic.AddInt32(&calls, 1)
			time.Sleep(20 * time.Millisecond)
			return "welcome", nil
		}

		const concurrency = 10
		var wg sync.WaitGroup
		results := make([]string, concurrency)
		errs := make([]error, concurrency)
		for i := range concurrency {
			wg.Add(1)
			go func() {
				defer wg.Done()
				results[i], errs[i] = c.GetOrFetch(ctx, "banner", time.Minute, slow)
			}()
		}
		wg.Wait()

		for i := range concurrency {
			require.NoError(t, errs[i])
			assert.Equal(t, "welcome", results[i])
		}
		assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	})
}

func TestMemoryCacher_Delete(t *testing.T) {
	ctx := context.Background()

	t.Run("next lookup fetches again", func(t *testing.T) {
		c := NewMemoryCacher[string](cache.NoExpiration, time.Minute)
		var calls int32

		_, err := c.GetOrFetch(ctx, "banner", time.Minute, banner("old", &calls))
		require.NoError(t, err)
		require.NoError(t, c.Delete(ctx, "banner"))

		val, err := c.GetOrFetch(ctx, "banner", time.Minute, banner("new", &calls))
		require.NoError(t, err)
		assert.Equal(t, "new", val)
		assert.Equal(t, int32(2), calls)
	})

	t.Run("missing key is fine", func(t *testing.T) {
		c := NewMemoryCacher[string](cache.NoExpiration, time.Minute)
		assert.NoError(t, c.Delete(ctx, "nothing"))
	})

	t.Run("cancelled context", func(t *testing.T) {
		c := NewMemoryCacher[string](cache.NoExpiration, time.Minute)
		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		assert.ErrorIs(t, c.Delete(cancelled, "banner"), context.Canceled)
	})
}
