package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mnemolite/mnemolite/internal/domain"
	"github.com/mnemolite/mnemolite/internal/platform/logger"
)

// l2Payload is the wire shape stored in Redis, matching L1's entry shape so
// promotion never needs to recompute the hash.
type l2Payload struct {
	ContentHash string             `json:"content_hash"`
	Chunks      []domain.CodeChunk `json:"chunks"`
}

// L2 is the distributed cache layer (spec §4.4). On connection failure it
// reports Connected()==false and every method degrades to a no-op miss —
// "no operation ever fails because of L2".
type L2 struct {
	client    *redis.Client
	ttl       time.Duration
	logger    *slog.Logger
	connected bool
}

// NewL2 dials url (empty url means L2 is disabled, per spec §6:
// "cache_l2_url empty ⇒ L1-only mode"). Dial failures are logged and leave
// Connected()==false rather than returning an error, so start-up never
// blocks on L2 availability.
func NewL2(ctx context.Context, url string, ttl time.Duration, log *slog.Logger) *L2 {
	l := &L2{ttl: ttl, logger: logger.Component(log, "cache.l2")}
	if url == "" {
		return l
	}

	opts, err := redis.ParseURL(url)
	if err != nil {
		l.logger.Warn("invalid L2 cache URL, degrading to L1-only", slog.String("error", err.Error()))
		return l
	}

	client := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		l.logger.Warn("L2 cache unreachable, degrading to L1-only", slog.String("error", err.Error()))
		return l
	}

	l.client = client
	l.connected = true
	return l
}

// Connected reports whether L2 is reachable.
func (l *L2) Connected() bool { return l.connected }

func redisKey(path string) string { return "mnemolite:cache:chunks:" + path }

// Get mirrors L1.Get's zero-trust semantics but over the distributed store.
func (l *L2) Get(ctx context.Context, path, source string) ([]domain.CodeChunk, bool) {
	if !l.connected {
		return nil, false
	}

	raw, err := l.client.Get(ctx, redisKey(path)).Bytes()
	if err != nil {
		if err != redis.Nil {
			l.logger.Warn("L2 get failed, treating as miss", slog.String("error", err.Error()))
		}
		return nil, false
	}

	var payload l2Payload
	if err := json.Unmarshal(raw, &payload); err != nil {
		l.logger.Warn("L2 entry corrupted, treating as miss", slog.String("error", err.Error()))
		return nil, false
	}

	if payload.ContentHash != ContentHash(source) {
		_ = l.client.Del(ctx, redisKey(path)).Err()
		return nil, false
	}

	return payload.Chunks, true
}

// Put writes through to L2; failures are logged, never returned as errors.
func (l *L2) Put(ctx context.Context, path, source string, chunks []domain.CodeChunk) {
	if !l.connected {
		return
	}

	payload := l2Payload{ContentHash: ContentHash(source), Chunks: chunks}
	raw, err := json.Marshal(payload)
	if err != nil {
		l.logger.Warn("L2 marshal failed", slog.String("error", err.Error()))
		return
	}

	if err := l.client.Set(ctx, redisKey(path), raw, l.ttl).Err(); err != nil {
		l.logger.Warn("L2 put failed", slog.String("error", err.Error()))
	}
}

// Clear removes every mnemolite cache key, best-effort.
func (l *L2) Clear(ctx context.Context) {
	if !l.connected {
		return
	}
	iter := l.client.Scan(ctx, 0, "mnemolite:cache:chunks:*", 0).Iterator()
	for iter.Next(ctx) {
		_ = l.client.Del(ctx, iter.Val()).Err()
	}
}
