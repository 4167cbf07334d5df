package cache

import (
	"context"
	"log/slog"

	"github.com/mnemolite/mnemolite/internal/domain"
	"github.com/mnemolite/mnemolite/internal/platform/logger"
)

// Cache composes L1 and L2 per the cascade policy in spec §4.4: GET checks
// L1 then L2 (promoting an L2 hit back into L1); PUT writes through both;
// CLEAR can target either layer or both.
type Cache struct {
	L1     *L1
	L2     *L2
	logger *slog.Logger
}

// New builds the cascading cache from its two layers.
func New(l1 *L1, l2 *L2, log *slog.Logger) *Cache {
	return &Cache{L1: l1, L2: l2, logger: logger.Component(log, "cache")}
}

// Get implements the GET cascade: L1 miss falls through to L2; an L2 hit is
// promoted into L1 with the same hash so the next GET is an L1 hit.
func (c *Cache) Get(ctx context.Context, path, source string) ([]domain.CodeChunk, bool) {
	if chunks, ok := c.L1.Get(path, source); ok {
		return chunks, true
	}

	if chunks, ok := c.L2.Get(ctx, path, source); ok {
		c.L1.Put(path, source, chunks)
		c.logger.Debug("promoted L2 hit into L1", slog.String("path", path))
		return chunks, true
	}

	return nil, false
}

// Put writes through to both layers.
func (c *Cache) Put(ctx context.Context, path, source string, chunks []domain.CodeChunk) {
	c.L1.Put(path, source, chunks)
	c.L2.Put(ctx, path, source, chunks)
}

// Clear clears both layers.
func (c *Cache) Clear(ctx context.Context) {
	c.L1.Clear()
	c.L2.Clear(ctx)
}

// CombinedHitRate returns L1's hit rate as a percentage. L2 hits are not
// counted (L2 has no stats surface), so a lookup answered by L2 counts as an
// L1 miss: the value is L1's rate, not the combined L1+L2 rate. Promotion
// shows up only in the L1 hits of later lookups.
func (c *Cache) CombinedHitRate() float64 {
	return c.L1.Stats().HitRatePercent
}
