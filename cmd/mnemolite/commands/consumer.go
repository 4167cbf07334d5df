package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/redis/go-redis/v9"
	"github.com/urfave/cli/v3"

	"github.com/mnemolite/mnemolite/internal/stream"
)

// ServeConsumerAction runs the C8 consumer daemon for one repository until
// ctx is canceled (SIGINT/SIGTERM, handled by main's signal.NotifyContext),
// per spec §6's "Consumer daemon CLI" contract.
func ServeConsumerAction(ctx context.Context, cmd *cli.Command) error {
	envFile := cmd.String("env")
	repository := cmd.String("repository")
	root := cmd.String("path")
	verbose := cmd.Bool("verbose")

	appCtx, err := NewAppContext(ctx, envFile, root)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	if verbose {
		appCtx.Logger.Info("verbose logging requested", slog.String("repository", repository))
	}

	redisAddr := cmd.String("redis-addr")
	redisClient := redis.NewClient(&redis.Options{Addr: redisAddr})
	defer redisClient.Close()

	status := stream.NewJobStatusStore(redisClient)
	consumer := stream.NewConsumer(redisClient, hostname(), appCtx.Batch, status, appCtx.Graph, int(cmd.Int("concurrency")), appCtx.Logger)

	appCtx.Logger.Info("consumer starting", slog.String("repository", repository), slog.String("redis_addr", redisAddr))

	if err := consumer.Run(ctx, repository); err != nil {
		return fmt.Errorf("consumer run for %s: %w", repository, err)
	}
	return nil
}

func hostname() string {
	h, err := os.Hostname()
	if err != nil {
		return "mnemolite-consumer"
	}
	return h
}
