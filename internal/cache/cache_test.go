package cache

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheReturnsFreshValue(t *testing.T) {
	c, err := New(10*time.Second, 8)
	require.NoError(t, err)

	c.Set("stations:all", []string{"EG-1", "BW-2"})

	got, ok := c.Get("stations:all")
	require.True(t, ok)
	assert.Equal(t, []string{"EG-1", "BW-2"}, got)
}

func TestCacheExpiresAfterTTL(t *testing.T) {
	c, err := New(10*time.Second, 8)
	require.NoError(t, err)

	base := time.Now()
	c.now = func() time.Time { return base }
	c.Set("battery:CB-001", "payload")

	// One nanosecond before expiry the entry is still served.
	c.now = func() time.Time { return base.Add(10*time.Second - time.Nanosecond) }
	_, ok := c.Get("battery:CB-001")
	assert.True(t, ok)

	// At the TTL boundary the entry is gone for good.
	c.now = func() time.Time { return base.Add(10 * time.Second) }
	_, ok = c.Get("battery:CB-001")
	assert.False(t, ok)

	// Lazy eviction removed it, so even rewinding the clock misses.
	c.now = func() time.Time { return base }
	_, ok = c.Get("battery:CB-001")
	assert.False(t, ok)
}

func TestCacheMissOnUnknownKey(t *testing.T) {
	c, err := New(time.Second, 8)
	require.NoError(t, err)

	_, ok := c.Get("nope")
	assert.False(t, ok)
	assert.Equal(t, uint64(1), c.Stats()["misses"])
}

func TestCacheCountersUnderConcurrentAccess(t *testing.T) {
	c, err := New(time.Minute, 8)
	require.NoError(t, err)

	c.Set("stations:all", "payload")

	// Handlers and the poller hit the same instance; run under -race.
	const goroutines = 4
	const reads = 1000

	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < reads; j++ {
				c.Get("stations:all")
				c.Get("nope")
			}
		}()
	}
	wg.Wait()

	stats := c.Stats()
	assert.Equal(t, uint64(goroutines*reads), stats["hits"])
	assert.Equal(t, uint64(goroutines*reads), stats["misses"])
}

func TestCacheInvalidate(t *testing.T) {
	c, err := New(time.Minute, 8)
	require.NoError(t, err)

	c.Set("k", 1)
	c.Invalidate("k")

	_, ok := c.Get("k")
	assert.False(t, ok)
}
