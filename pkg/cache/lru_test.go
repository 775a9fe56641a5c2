package cache_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/civicworks/notifyhub/pkg/cache"
)

func TestLRUCache(t *testing.T) {
	t.Parallel()

	t.Run("evicts least recently used", func(t *testing.T) {
		t.Parallel()

		var evicted []string
		c := cache.NewLRUCache[string, int](2)
		c.SetEvictCallback(func(k string, _ int) { evicted = append(evicted, k) })

		c.Put("fan-1", 1)
		c.Put("fan-2", 2)
		_, _ = c.Get("fan-1")
		c.Put("fan-3", 3)

		_, ok := c.Get("fan-2")
		assert.False(t, ok)
		v, ok := c.Get("fan-1")
		assert.True(t, ok)
		assert.Equal(t, 1, v)
		assert.Equal(t, []string{"fan-2"}, evicted)
		assert.Equal(t, 2, c.Len())
	})

	t.Run("replace keeps entry", func(t *testing.T) {
		t.Parallel()

		calls := 0
		c := cache.NewLRUCache[string, int](1)
		c.SetEvictCallback(func(string, int) { calls++ })

		c.Put("k", 1)
		c.Put("k", 2)
		v, _ := c.Get("k")
		assert.Equal(t, 2, v)
		assert.Zero(t, calls)
	})

	t.Run("remove and clear fire callback", func(t *testing.T) {
		t.Parallel()

		var evicted []string
		c := cache.NewLRUCache[string, int](4)
		c.SetEvictCallback(func(k string, _ int) { evicted = append(evicted, k) })
		c.Put("a", 1)
		c.Put("b", 2)
		c.Put("c", 3)

		assert.True(t, c.Remove("b"))
		assert.False(t, c.Remove("b"))
		c.Clear()

		assert.Equal(t, []string{"b", "a", "c"}, evicted)
		assert.Zero(t, c.Len())
	})

	t.Run("zero capacity panics", func(t *testing.T) {
		t.Parallel()

		assert.Panics(t, func() { cache.NewLRUCache[string, int](0) })
	})
}

func TestLRUCache_Concurrent(t *testing.T) {
	t.Parallel()

	c := cache.NewLRUCache[int, int](64)
	var wg sync.WaitGroup
	for g := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range 200 {
				c.Put(g*1000+i, i)
				_, _ = c.Get(g*1000 + i/2)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 64, c.Len())
}
