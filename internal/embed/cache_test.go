package embed

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheKey_DistinguishesKindAndText(t *testing.T) {
	a := cacheKey(KindText, "hello")
	b := cacheKey(KindCode, "hello")
	c := cacheKey(KindText, "world")
	assert.NotEqual(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestCache_LookupRespectsTTL(t *testing.T) {
	c := NewCache(nil, 10, time.Millisecond)
	c.store(KindCode, "x", []float32{1, 2, 3})

	v, ok := c.lookup(KindCode, "x")
	require.True(t, ok)
	assert.Equal(t, []float32{1, 2, 3}, v)

	time.Sleep(5 * time.Millisecond)
	_, ok = c.lookup(KindCode, "x")
	assert.False(t, ok)
}

func TestCache_DisabledSizeStillUsable(t *testing.T) {
	c := NewCache(nil, 0, time.Minute)
	c.store(KindCode, "x", []float32{1})
	_, ok := c.lookup(KindCode, "x")
	assert.True(t, ok)
}
