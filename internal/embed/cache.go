package embed

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// entry pairs a cached vector with its expiry, so a TTL-expired hit is a
// miss even while still resident in the LRU.
type entry struct {
	vector    []float32
	expiresAt time.Time
}

// Cache wraps an Embedder with an MD5(kind+text)-keyed LRU whose entries
// also expire after a TTL. Grounded on internal/cache/l1.go's same content-hash pattern,
// reused here because spec.md never distinguishes the two caching sites'
// mechanics.
type Cache struct {
	inner *Embedder
	lru   *lru.Cache[string, entry]
	ttl   time.Duration
}

// NewCache wraps inner with an in-memory embedding cache of the given
// capacity and TTL. size <= 0 falls back to a capacity of one entry.
func NewCache(inner *Embedder, size int, ttl time.Duration) *Cache {
	if size <= 0 {
		size = 1
	}
	c, _ := lru.New[string, entry](size)
	return &Cache{inner: inner, lru: c, ttl: ttl}
}

func cacheKey(kind Kind, text string) string {
	sum := md5.Sum([]byte(string(kind) + ":" + text))
	return hex.EncodeToString(sum[:])
}

func (c *Cache) lookup(kind Kind, text string) ([]float32, bool) {
	e, ok := c.lru.Get(cacheKey(kind, text))
	if !ok {
		return nil, false
	}
	if time.Now().After(e.expiresAt) {
		c.lru.Remove(cacheKey(kind, text))
		return nil, false
	}
	return e.vector, true
}

func (c *Cache) store(kind Kind, text string, vec []float32) {
	c.lru.Add(cacheKey(kind, text), entry{vector: vec, expiresAt: time.Now().Add(c.ttl)})
}

// EmbedQuery caches query embeddings — the common repeat case in interactive
// search sessions.
func (c *Cache) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if v, ok := c.lookup(KindText, text); ok {
		return v, nil
	}
	v, err := c.inner.EmbedQuery(ctx, text)
	if err != nil {
		return nil, err
	}
	c.store(KindText, text, v)
	return v, nil
}

// EmbedPassage caches passage embeddings, keyed separately from query
// embeddings since the two differ only by prefix but must never collide.
func (c *Cache) EmbedPassage(ctx context.Context, text string) ([]float32, error) {
	if v, ok := c.lookup(Kind("passage"), text); ok {
		return v, nil
	}
	v, err := c.inner.EmbedPassage(ctx, text)
	if err != nil {
		return nil, err
	}
	c.store(Kind("passage"), text, v)
	return v, nil
}

// EmbedCode caches code embeddings.
func (c *Cache) EmbedCode(ctx context.Context, source string) ([]float32, error) {
	if v, ok := c.lookup(KindCode, source); ok {
		return v, nil
	}
	v, err := c.inner.EmbedCode(ctx, source)
	if err != nil {
		return nil, err
	}
	c.store(KindCode, source, v)
	return v, nil
}

// Dimension delegates to the wrapped embedder.
func (c *Cache) Dimension() int { return c.inner.Dimension() }
