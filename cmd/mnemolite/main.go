package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/mnemolite/mnemolite/cmd/mnemolite/commands"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := &cli.Command{
		Name:  "mnemolite",
		Usage: "code-intelligence indexing and hybrid-search engine",
		Commands: []*cli.Command{
			{
				Name:  "index",
				Usage: "scan a repository directory and enqueue it for batched indexing",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "env", Usage: "path to .env file", Value: ".env"},
					&cli.StringFlag{Name: "repository", Usage: "repository identifier", Required: true},
					&cli.StringFlag{Name: "path", Usage: "repository directory to scan", Required: true},
					&cli.StringFlag{Name: "redis-addr", Usage: "redis address", Value: "localhost:6379"},
					&cli.StringSliceFlag{Name: "ext", Usage: "file extensions to include, e.g. .go,.py (default: all)"},
					&cli.BoolFlag{Name: "include-tests", Usage: "include test files in the scan"},
				},
				Action: commands.IndexAction,
			},
			{
				Name:  "search",
				Usage: "run one hybrid search query",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "env", Usage: "path to .env file", Value: ".env"},
					&cli.StringFlag{Name: "repository", Usage: "filter by repository"},
					&cli.StringFlag{Name: "language", Usage: "filter by language"},
					&cli.StringFlag{Name: "chunk-type", Usage: "filter by chunk type"},
					&cli.StringFlag{Name: "file-path", Usage: "filter by file path substring"},
					&cli.IntFlag{Name: "limit", Usage: "max results", Value: 10},
					&cli.IntFlag{Name: "pool-size", Usage: "fusion pool size before rerank/truncate", Value: 50},
					&cli.BoolFlag{Name: "rerank", Usage: "enable cross-encoder reranking"},
				},
				Action: commands.SearchAction,
			},
			{
				Name:  "serve-consumer",
				Usage: "run the durable-stream indexing consumer for one repository",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "env", Usage: "path to .env file", Value: ".env"},
					&cli.StringFlag{Name: "repository", Usage: "repository identifier", Required: true},
					&cli.StringFlag{Name: "path", Usage: "repository directory root, for resolving batch-relative paths", Required: true},
					&cli.StringFlag{Name: "redis-addr", Usage: "redis address", Value: "localhost:6379"},
					&cli.IntFlag{Name: "concurrency", Usage: "max in-flight batches", Value: 4},
					&cli.BoolFlag{Name: "verbose", Usage: "log a start-up notice that verbose output was requested; the log level is unchanged"},
				},
				Action: commands.ServeConsumerAction,
			},
			{
				Name:  "backfill-hashes",
				Usage: "one-shot migration: compute content_hash for chunks that predate it",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "env", Usage: "path to .env file", Value: ".env"},
				},
				Action: commands.BackfillHashesAction,
			},
		},
	}

	err := app.Run(ctx, os.Args)

	if ctx.Err() != nil {
		slog.Warn("shutting down on signal")
		os.Exit(130)
	}
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			slog.Error("fatal error", slog.String("error", err.Error()))
		}
		os.Exit(1)
	}
}
