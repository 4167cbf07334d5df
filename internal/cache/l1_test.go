package cache

import (
	"testing"

	"github.com/mnemolite/mnemolite/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chunk(name string) domain.CodeChunk {
	return domain.CodeChunk{Name: name, SourceCode: "def " + name + "(): pass", ChunkType: domain.ChunkFunction}
}

func TestL1_GetAfterPutIsHit(t *testing.T) {
	c := NewL1(64, 0, nil)
	c.Put("f.py", "v1", []domain.CodeChunk{chunk("add")})

	got, ok := c.Get("f.py", "v1")
	require.True(t, ok)
	assert.Len(t, got, 1)
}

func TestL1_ContentChangeIsZeroTrustMiss(t *testing.T) {
	// S2 from spec.md: put v1, get v2 => miss; stats 0 hits, 1 miss, 1 eviction, cache empty.
	c := NewL1(64, 0, nil)
	c.Put("f.py", "v1", []domain.CodeChunk{chunk("add")})

	_, ok := c.Get("f.py", "v2")
	assert.False(t, ok)

	stats := c.Stats()
	assert.Equal(t, int64(0), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, int64(1), stats.Evictions)
	assert.Equal(t, 0, c.Len())
}

func TestL1_EmptyChunksPutGetWorks(t *testing.T) {
	// Invariant 12 from spec.md §8: empty-chunks put/get works.
	c := NewL1(64, 0, nil)
	c.Put("empty.py", "", []domain.CodeChunk{})

	got, ok := c.Get("empty.py", "")
	require.True(t, ok)
	assert.Empty(t, got)
}

func TestL1_EvictsLeastRecentlyUsedUnderBytePressure(t *testing.T) {
	c := NewL1(0, 0, nil) // 0 MB budget: every put exceeds it and is evicted at once
	c.Put("a.py", "a", []domain.CodeChunk{chunk("a")})
	c.Put("b.py", "b", []domain.CodeChunk{chunk("b")})

	stats := c.Stats()
	assert.GreaterOrEqual(t, stats.Evictions, int64(1))
}

func TestContentHash_Is32HexChars(t *testing.T) {
	h := ContentHash("hello world")
	assert.Len(t, h, 32)
}
