package stream

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mnemolite/mnemolite/internal/domain"
	"github.com/mnemolite/mnemolite/internal/platform/logger"
)

// consumerGroup is the single named group every consumer daemon joins, per
// spec §4.6's "named consumer in a named group".
const consumerGroup = "mnemolite-indexers"

// blockDeadline bounds how long XReadGroup waits for a new message before
// looping back to check ctx.Done().
const blockDeadline = 5 * time.Second

// reclaimBatchSize bounds how many stale pending entries one XAutoClaim call
// reclaims per loop iteration.
const reclaimBatchSize = 16

// defaultBatchTimeout is spec §4.6's "per-batch timeout (default several
// minutes, tunable)".
const defaultBatchTimeout = 5 * time.Minute

// BatchResult is what a processed batch reports back to the consumer loop —
// the in-process equivalent of the teacher's subprocess stdout JSON line
// (spec §9's "Subprocess-per-batch" design note: a goroutine worker pool
// sharing a preloaded model is the systems-language equivalent).
type BatchResult struct {
	SuccessCount int
	ErrorCount   int
	Errors       []string
}

// BatchProcessor runs one batch's files through the indexing pipeline. Each
// invocation is a bounded worker's entire fault domain: a panic or timeout
// in one batch never touches another's offsets.
type BatchProcessor interface {
	ProcessBatch(ctx context.Context, repository, commitHash string, files []string) BatchResult
}

// GraphBuilder is invoked once a repository's last batch completes.
type GraphBuilder interface {
	Build(ctx context.Context, repository string) error
}

// Consumer reads batches from the durable stream with a bounded pool of
// goroutine workers, updates job status, and triggers the graph builder on
// completion.
type Consumer struct {
	client       *redis.Client
	name         string
	processor    BatchProcessor
	status       domain.JobStatusStore
	graphBuilder GraphBuilder
	batchTimeout time.Duration
	concurrency  int
	logger       *slog.Logger
}

// NewConsumer builds a Consumer identified as `name` within the shared
// consumer group.
func NewConsumer(client *redis.Client, name string, processor BatchProcessor, status domain.JobStatusStore, graphBuilder GraphBuilder, concurrency int, log *slog.Logger) *Consumer {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Consumer{
		client:       client,
		name:         name,
		processor:    processor,
		status:       status,
		graphBuilder: graphBuilder,
		batchTimeout: defaultBatchTimeout,
		concurrency:  concurrency,
		logger:       logger.Component(log, "stream.consumer"),
	}
}

// Run subscribes to repository's stream and processes batches until ctx is
// canceled. On cancellation it finishes whatever batches are already
// in-flight (spec §4.6's graceful-shutdown contract) before returning;
// unclaimed messages remain in the stream for the next consumer.
func (c *Consumer) Run(ctx context.Context, repository string) error {
	key := streamKey(repository)
	if err := c.ensureGroup(ctx, key); err != nil {
		return fmt.Errorf("ensure consumer group: %w", err)
	}

	sem := make(chan struct{}, c.concurrency)
	var wg sync.WaitGroup

	dispatch := func(id string, values map[string]any) {
		sem <- struct{}{}
		wg.Add(1)
		go func(id string, values map[string]any) {
			defer wg.Done()
			defer func() { <-sem }()
			c.handle(context.WithoutCancel(ctx), key, id, values, repository)
		}(id, values)
	}

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("consumer shutting down, draining in-flight batches", slog.String("repository", repository))
			wg.Wait()
			return nil
		default:
		}

		c.reclaimStale(ctx, key, dispatch)

		entries, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    consumerGroup,
			Consumer: c.name,
			Streams:  []string{key, ">"},
			Count:    int64(c.concurrency),
			Block:    blockDeadline,
		}).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) || errors.Is(err, context.DeadlineExceeded) {
				continue
			}
			if ctx.Err() != nil {
				continue
			}
			c.logger.Warn("stream read failed", slog.String("error", err.Error()))
			continue
		}

		for _, stream := range entries {
			for _, msg := range stream.Messages {
				dispatch(msg.ID, msg.Values)
			}
		}
	}
}

// reclaimStale claims pending entries idle longer than the batch timeout —
// messages delivered to a consumer that crashed or hung before acking — so a
// restarted or sibling consumer picks them back up. This is the
// pending-entries-list recovery half of at-least-once delivery; XReadGroup's
// ">" id alone only ever sees never-delivered messages.
func (c *Consumer) reclaimStale(ctx context.Context, key string, dispatch func(id string, values map[string]any)) {
	messages, _, err := c.client.XAutoClaim(ctx, &redis.XAutoClaimArgs{
		Stream:   key,
		Group:    consumerGroup,
		Consumer: c.name,
		MinIdle:  c.batchTimeout,
		Start:    "0-0",
		Count:    reclaimBatchSize,
	}).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("pending-entry reclaim failed", slog.String("error", err.Error()))
		}
		return
	}
	for _, msg := range messages {
		c.logger.Info("reclaimed stale pending entry", slog.String("id", msg.ID))
		dispatch(msg.ID, msg.Values)
	}
}

func (c *Consumer) ensureGroup(ctx context.Context, key string) error {
	err := c.client.XGroupCreateMkStream(ctx, key, consumerGroup, "0").Err()
	if err != nil && !isBusyGroupErr(err) {
		return err
	}
	return nil
}

func isBusyGroupErr(err error) bool {
	return err != nil && len(err.Error()) >= 8 && err.Error()[:8] == "BUSYGROU"
}

func (c *Consumer) handle(ctx context.Context, streamKey, msgID string, values map[string]any, repository string) {
	msg, err := parseBatchMessage(values)
	if err != nil {
		c.logger.Warn("dropping malformed batch message", slog.String("id", msgID), slog.String("error", err.Error()))
		return
	}

	batchCtx, cancel := context.WithTimeout(ctx, c.batchTimeout)
	result := c.processor.ProcessBatch(batchCtx, msg.Repository, msg.CommitHash, msg.Files)
	cancel()

	processed, failed, err := c.status.Advance(ctx, msg.Repository, result.SuccessCount, result.ErrorCount, msg.BatchNumber, result.Errors)
	if err != nil {
		c.logger.Warn("failed to advance job status", slog.String("repository", msg.Repository), slog.String("error", err.Error()))
	}

	if err := c.client.XAck(ctx, streamKey, consumerGroup, msgID).Err(); err != nil {
		c.logger.Warn("failed to ack batch", slog.String("id", msgID), slog.String("error", err.Error()))
	}

	// Batches run concurrently and complete out of order, so the numerically
	// last batch is not necessarily the last to finish. processed+failed
	// reaching TotalFiles is the only point guaranteed to happen exactly
	// once, on whichever goroutine's Advance pushed the count over the line.
	if err == nil && msg.TotalFiles > 0 && processed+failed == msg.TotalFiles {
		c.finishJob(ctx, repository)
	}
}

func (c *Consumer) finishJob(ctx context.Context, repository string) {
	job, err := c.status.Get(ctx, repository)
	if err != nil || job == nil {
		c.logger.Warn("could not load job status at completion", slog.String("repository", repository))
		return
	}

	status := domain.JobCompleted
	if job.FailedFiles > 0 {
		status = domain.JobPartial
	}
	if err := c.status.Finish(ctx, repository, status); err != nil {
		c.logger.Warn("failed to finalize job status", slog.String("repository", repository), slog.String("error", err.Error()))
	}

	if c.graphBuilder == nil {
		return
	}
	if err := c.graphBuilder.Build(ctx, repository); err != nil {
		c.logger.Warn("graph build after indexing failed", slog.String("repository", repository), slog.String("error", err.Error()))
	}
}
