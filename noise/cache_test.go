package noise

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func small(seed uint64) Params {
	p := DefaultParams()
	p.Size = 8
	p.Seed = seed
	return p
}

func TestCacheReusesTextures(t *testing.T) {
	c := NewCache(2)
	a, err := c.Get(small(1))
	require.NoError(t, err)
	b, err := c.Get(small(1))
	require.NoError(t, err)
	assert.Same(t, a, b)
	assert.Equal(t, CacheStats{Len: 1, Hits: 1, Misses: 1}, c.Stats())
}

func TestCacheEvictsLeastRecentlyUsed(t *testing.T) {
	c := NewCache(2)
	first, err := c.Get(small(1))
	require.NoError(t, err)
	_, err = c.Get(small(2))
	require.NoError(t, err)
	_, err = c.Get(small(1)) // touch 1
	require.NoError(t, err)
	_, err = c.Get(small(3)) // evicts 2
	require.NoError(t, err)
	assert.Equal(t, 2, c.Stats().Len)

	again, err := c.Get(small(1))
	require.NoError(t, err)
	assert.Same(t, first, again)

	before := c.Stats().Misses
	_, err = c.Get(small(2))
	require.NoError(t, err)
	assert.Equal(t, before+1, c.Stats().Misses, "evicted entry still cached")
}

func TestCacheDoesNotStoreFailures(t *testing.T) {
	c := NewCache(0)
	p := small(1)
	p.Levels = 0
	_, err := c.Get(p)
	assert.ErrorIs(t, err, ErrInvalidParams)
	assert.Equal(t, 0, c.Stats().Len)

	_, err = c.Get(small(1))
	require.NoError(t, err)
	c.Clear()
	assert.Equal(t, 0, c.Stats().Len)
}
