// Package commands wires cmd/mnemolite's urfave/cli/v3 actions to the
// application packages, following the teacher's cmd/dev-rag/commands
// AppContext pattern: one shared bootstrap that loads config, connects the
// database, and builds every collaborator a command might need.
package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mnemolite/mnemolite/internal/cache"
	"github.com/mnemolite/mnemolite/internal/chunk"
	"github.com/mnemolite/mnemolite/internal/domain"
	"github.com/mnemolite/mnemolite/internal/embed"
	"github.com/mnemolite/mnemolite/internal/graph"
	"github.com/mnemolite/mnemolite/internal/indexing"
	"github.com/mnemolite/mnemolite/internal/metadata"
	"github.com/mnemolite/mnemolite/internal/platform/config"
	"github.com/mnemolite/mnemolite/internal/platform/database"
	"github.com/mnemolite/mnemolite/internal/platform/logger"
	"github.com/mnemolite/mnemolite/internal/search/hybrid"
	"github.com/mnemolite/mnemolite/internal/search/lexical"
	"github.com/mnemolite/mnemolite/internal/search/rerank"
	"github.com/mnemolite/mnemolite/internal/search/vector"
	"github.com/mnemolite/mnemolite/internal/storage/pg"
	"github.com/mnemolite/mnemolite/internal/stream"
	"github.com/mnemolite/mnemolite/internal/symbolpath"
)

// AppContext holds every collaborator a command's action needs, built once
// at startup per spec §6's environment-driven configuration surface. The
// stream's Redis client is built separately by index/serve-consumer, since
// its address (the durable-stream broker) is independent of the L2 cache's.
type AppContext struct {
	Config    *config.Config
	DB        *database.DB
	Logger    *slog.Logger
	Indexer   *indexing.Service
	Batch     *indexing.BatchProcessor
	Search    *hybrid.Engine
	Graph     *graph.Builder
	Errors    domain.ErrorRepository
	chunkRepo *pg.ChunkRepository
}

// NewAppContext loads configuration, opens the database and Redis
// connections, and assembles the full dependency graph described by
// SPEC_FULL.md's component design.
func NewAppContext(ctx context.Context, envFile, repositoryRoot string) (*AppContext, error) {
	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	log := logger.New(logger.DefaultConfig())

	db, err := database.New(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	provider := database.NewTransactionProvider(db.Pool)

	combinedChunker, err := chunk.NewCombinedChunker(cfg.Chunking.MaxChunkSize)
	if err != nil {
		return nil, fmt.Errorf("build chunker: %w", err)
	}

	embedder, err := embed.New(embed.Config{
		APIKey:         cfg.OpenAI.APIKey,
		Model:          cfg.Embedding.Model,
		Dimension:      cfg.Embedding.Dimension,
		SingleTimeoutS: int(cfg.Timeouts.EmbedSingle.Seconds()),
		BatchTimeoutS:  int(cfg.Timeouts.EmbedBatch.Seconds()),
		Tokenizer:      combinedChunker.TokenCounter(),
		Logger:         log,
	})
	if err != nil {
		return nil, fmt.Errorf("build embedder: %w", err)
	}
	cachedEmbedder := embed.NewCache(embedder, 10000, cfg.Embedding.CacheTTL)

	l1 := cache.NewL1(cfg.Cache.L1MaxMB, cfg.Cache.L1TTL, log)
	l2 := cache.NewL2(ctx, cfg.Cache.L2URL, cfg.Embedding.CacheTTL, log)
	chunkCache := cache.New(l1, l2, log)

	parser := chunk.NewParser()
	extractor := metadata.New()
	symbols := symbolpath.New(log)

	indexer := indexing.New(combinedChunker, parser, extractor, cachedEmbedder, chunkCache, symbols, provider, log)

	chunkRepo := pg.NewChunkRepository(db.Pool)
	errorRepo := pg.NewErrorRepository(db.Pool)

	batchOpts := indexing.Options{GenerateEmbeddings: true, BuildGraph: true, RepositoryRoot: repositoryRoot}
	batchProcessor := indexing.NewBatchProcessor(indexer, errorRepo, repositoryRoot, batchOpts, log)

	graphBuilder := graph.New(chunkRepo, provider, log)

	lexicalSearcher := lexical.NewFromPool(db.Pool)
	vectorSearcher := vector.NewFromPool(db.Pool, vector.ChannelText)

	var reranker rerank.Reranker = rerank.NewNoOp()
	if cfg.Rerank.Model != "" {
		if httpReranker := rerank.NewHTTPReranker(cfg.Rerank.Endpoint, cfg.Rerank.Model, log); httpReranker != nil {
			reranker = httpReranker
		}
	}

	searchEngine := hybrid.New(lexicalSearcher, vectorSearcher, cachedEmbedder, chunkRepo, reranker, log)

	return &AppContext{
		Config:    cfg,
		DB:        db,
		Logger:    log,
		Indexer:   indexer,
		Batch:     batchProcessor,
		Search:    searchEngine,
		Graph:     graphBuilder,
		Errors:    errorRepo,
		chunkRepo: chunkRepo,
	}, nil
}

// Close releases the database connection pool.
func (a *AppContext) Close() {
	if a.DB != nil {
		a.DB.Pool.Close()
	}
}
