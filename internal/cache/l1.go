// Package cache implements C2: the cascading L1 (in-process LRU) + L2
// (distributed) cache with content-hash zero-trust validation. L1 is backed
// by github.com/hashicorp/golang-lru/v2 (grounded on its presence in
// Aman-CERP-amanmcp's go.mod) for LRU bookkeeping, layered with manual
// byte-budget eviction since spec.md requires a byte cap rather than an
// entry-count cap.
package cache

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/mnemolite/mnemolite/internal/domain"
	"github.com/mnemolite/mnemolite/internal/platform/logger"
)

// ContentHash returns the 32-hex-character MD5 digest of source, the key
// format spec §4.4's migration note requires.
func ContentHash(source string) string {
	sum := md5.Sum([]byte(source))
	return hex.EncodeToString(sum[:])
}

// Stats mirrors spec §4.4 plus the original's fuller set (SPEC_FULL §12).
type Stats struct {
	Hits               int64
	Misses             int64
	Evictions          int64
	EntryCount         int
	SizeBytes          int64
	SizeMB             float64
	UtilizationPercent float64
	HitRatePercent     float64
}

type l1Entry struct {
	contentHash string
	chunks      []domain.CodeChunk
	sizeBytes   int64
	expiresAt   time.Time // zero value means no TTL
}

// L1 is the in-process, content-hash-validated LRU described in spec §4.4.
type L1 struct {
	mu        sync.Mutex
	lru       *lru.Cache[string, *l1Entry]
	maxBytes  int64
	ttl       time.Duration // 0 disables TTL eviction
	curBytes  int64
	hits      int64
	misses    int64
	evictions int64
	logger    *slog.Logger
}

// NewL1 builds an L1 cache bounded by maxMB megabytes. ttl of 0 disables the
// optional secondary TTL eviction described in SPEC_FULL §12.
func NewL1(maxMB int, ttl time.Duration, log *slog.Logger) *L1 {
	// The hashicorp cache's own count-based capacity is set generously high;
	// byte-budget eviction below is what actually bounds memory.
	backing, _ := lru.New[string, *l1Entry](1_000_000)
	return &L1{
		lru:      backing,
		maxBytes: int64(maxMB) * 1024 * 1024,
		ttl:      ttl,
		logger:   logger.Component(log, "cache.l1"),
	}
}

func sizeOf(chunks []domain.CodeChunk) int64 {
	// Byte accounting excludes embeddings per SPEC_FULL §12 / spec.md's
	// open-question resolution: sum source_code + a JSON-serialized
	// approximation of the rest of the chunk list.
	var total int64
	for _, c := range chunks {
		total += int64(len(c.SourceCode))
		stripped := c
		stripped.EmbeddingText = nil
		stripped.EmbeddingCode = nil
		if b, err := json.Marshal(stripped); err == nil {
			total += int64(len(b))
		}
	}
	return total
}

// Put stores (md5(source), chunks) for path, evicting least-recently-used
// entries until the byte budget is respected.
func (c *L1) Put(path, source string, chunks []domain.CodeChunk) {
	c.mu.Lock()
	defer c.mu.Unlock()

	size := sizeOf(chunks)
	entry := &l1Entry{contentHash: ContentHash(source), chunks: chunks, sizeBytes: size}
	if c.ttl > 0 {
		entry.expiresAt = time.Now().Add(c.ttl)
	}

	if old, ok := c.lru.Peek(path); ok {
		c.curBytes -= old.sizeBytes
	}
	c.lru.Add(path, entry)
	c.curBytes += size

	for c.curBytes > c.maxBytes && c.lru.Len() > 0 {
		oldestKey, oldestVal, ok := c.lru.GetOldest()
		if !ok {
			break
		}
		c.lru.Remove(oldestKey)
		c.curBytes -= oldestVal.sizeBytes
		c.evictions++
		c.logger.Debug("evicted L1 entry", slog.String("path", oldestKey))
	}
}

// Get returns chunks for path iff the stored hash equals md5(source) — the
// zero-trust rule from spec §4.4. A hash mismatch evicts the stale entry and
// counts as a miss, satisfying invariant 3 from spec §8.
func (c *L1) Get(path, source string) ([]domain.CodeChunk, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.lru.Get(path)
	if !ok {
		c.misses++
		return nil, false
	}

	if !entry.expiresAt.IsZero() && time.Now().After(entry.expiresAt) {
		c.lru.Remove(path)
		c.curBytes -= entry.sizeBytes
		c.misses++
		return nil, false
	}

	if entry.contentHash != ContentHash(source) {
		c.lru.Remove(path)
		c.curBytes -= entry.sizeBytes
		c.evictions++
		c.misses++
		return nil, false
	}

	c.hits++
	return entry.chunks, true
}

// Clear removes every entry and resets counters.
func (c *L1) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Purge()
	c.curBytes = 0
	c.hits, c.misses, c.evictions = 0, 0, 0
}

// Stats reports the counters from spec §4.4 plus the original's fuller set.
func (c *L1) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	total := c.hits + c.misses
	hitRate := 0.0
	if total > 0 {
		hitRate = float64(c.hits) / float64(total) * 100
	}
	utilization := 0.0
	if c.maxBytes > 0 {
		utilization = float64(c.curBytes) / float64(c.maxBytes) * 100
	}

	return Stats{
		Hits:               c.hits,
		Misses:             c.misses,
		Evictions:          c.evictions,
		EntryCount:         c.lru.Len(),
		SizeBytes:          c.curBytes,
		SizeMB:             float64(c.curBytes) / (1024 * 1024),
		UtilizationPercent: utilization,
		HitRatePercent:     hitRate,
	}
}

// Len reports the current entry count (used by cache-empty tests).
func (c *L1) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}
