package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
	"github.com/urfave/cli/v3"

	"github.com/mnemolite/mnemolite/internal/stream"
)

// IndexAction enqueues a repository directory for batched indexing: it
// scans the tree (C7's producer), publishes one stream message per batch,
// and prints the resulting job id so the caller can track it against
// `indexing:status:{repository}`. Actual per-file indexing happens in
// serve-consumer, per spec §4.6's producer/consumer split.
func IndexAction(ctx context.Context, cmd *cli.Command) error {
	envFile := cmd.String("env")
	repository := stream.NormalizeRepositoryIdentifier(cmd.String("repository"))
	root := cmd.String("path")

	appCtx, err := NewAppContext(ctx, envFile, root)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: cmd.String("redis-addr")})
	defer redisClient.Close()

	producer := stream.NewProducer(redisClient, appCtx.Logger)

	opts := stream.ScanOptions{
		Extensions:   cmd.StringSlice("ext"),
		IncludeTests: cmd.Bool("include-tests") || appCtx.Config.Stream.IncludeTests,
	}

	job, err := producer.Enqueue(ctx, repository, root, opts)
	if err != nil {
		return fmt.Errorf("enqueue %s for indexing: %w", repository, err)
	}

	appCtx.Logger.Info("indexing job enqueued",
		slog.String("repository", repository),
		slog.String("job_id", job.JobID.String()),
		slog.Int("total_files", job.TotalFiles),
		slog.Int("total_batches", job.TotalBatches),
	)
	return nil
}
