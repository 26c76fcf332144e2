package market

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestExpiringLRUCacheEvictsLeastRecentlyUsed(t *testing.T) {
	c := NewExpiringLRUCache[string, int](2, time.Hour)
	c.Set("a", 1)
	c.Set("b", 2)
	_, _ = c.Get("a")
	c.Set("c", 3)

	_, ok := c.Get("b")
	assert.False(t, ok)
	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)
	assert.Equal(t, 2, c.Size())
}

func TestExpiringLRUCacheTTL(t *testing.T) {
	now := time.Unix(1000, 0)
	c := NewExpiringLRUCache[string, int](4, 10*time.Second)
	c.now = func() time.Time { return now }

	c.Set("a", 1)
	now = now.Add(9 * time.Second)
	_, ok := c.Get("a")
	assert.True(t, ok)

	now = now.Add(time.Second)
	_, ok = c.Get("a")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Size())

	c.Set("b", 2)
	c.Clear()
	assert.Equal(t, 0, c.Size())
}
