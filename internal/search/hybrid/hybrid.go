// Package hybrid implements C13: the search(query, filters, limit,
// enable_rerank, pool_size) orchestration from spec §4.12 — embed the
// query, fan out lexical and vector legs in parallel with per-leg timeouts,
// fuse with RRF, optionally rerank the top pool, then truncate to limit.
// Grounded on the validation/logging idiom of
// _examples/jinford-dev-rag/internal/module/search/application/search_service.go.
package hybrid

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mnemolite/mnemolite/internal/domain"
	"github.com/mnemolite/mnemolite/internal/search/fusion"
	"github.com/mnemolite/mnemolite/internal/search/rerank"
)

const (
	DefaultLimit    = 10
	MaxLimit        = 50
	DefaultPoolSize = 50
	legTimeout      = 5 * time.Second
)

// QueryEmbedder is the narrow embedding port hybrid search needs: one query
// embedding, which the single vector leg searches with.
type QueryEmbedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// ChunkLoader resolves a fused result's ChunkID to its full record for the
// reranker and for the caller's final response.
type ChunkLoader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.CodeChunk, error)
}

// Params mirrors spec §4.12's search() signature.
type Params struct {
	Query        string
	Filters      domain.SearchFilters
	Limit        int
	EnableRerank bool
	PoolSize     int
}

// Result is one ranked, fully hydrated hit.
type Result struct {
	Chunk       domain.CodeChunk
	FusedScore  float64
	RerankScore *float64
}

// Engine wires the lexical and vector legs, fusion, and an optional
// reranker into spec §4.12's pipeline.
type Engine struct {
	lexical  domain.LexicalSearcher
	vector   domain.VectorSearcher
	embedder QueryEmbedder
	chunks   ChunkLoader
	reranker rerank.Reranker
	fusion   *fusion.Fusion
	logger   *slog.Logger
}

// New builds a hybrid search Engine. reranker may be rerank.NewNoOp() when
// no cross-encoder is configured.
func New(lexical domain.LexicalSearcher, vector domain.VectorSearcher, embedder QueryEmbedder, chunks ChunkLoader, reranker rerank.Reranker, log *slog.Logger) *Engine {
	return &Engine{
		lexical:  lexical,
		vector:   vector,
		embedder: embedder,
		chunks:   chunks,
		reranker: reranker,
		fusion:   fusion.New(),
		logger:   log,
	}
}

// Search executes spec §4.12's pipeline end to end.
func (e *Engine) Search(ctx context.Context, params Params) ([]Result, error) {
	query := strings.TrimSpace(params.Query)
	if query == "" {
		return nil, fmt.Errorf("search query is required")
	}

	limit := params.Limit
	if limit <= 0 {
		limit = DefaultLimit
	} else if limit > MaxLimit {
		limit = MaxLimit
	}

	poolSize := params.PoolSize
	if poolSize <= 0 {
		poolSize = DefaultPoolSize
	}
	if poolSize < limit {
		poolSize = limit
	}

	e.logger.Info("hybrid search starting", "query", query, "limit", limit, "pool_size", poolSize)

	embedding, err := e.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	var (
		wg             sync.WaitGroup
		lexicalIDs     []uuid.UUID
		vectorIDs      []uuid.UUID
	)
	wg.Add(2)

	go func() {
		defer wg.Done()
		lexicalIDs = e.runLexicalLeg(ctx, query, params.Filters, poolSize)
	}()
	go func() {
		defer wg.Done()
		vectorIDs = e.runVectorLeg(ctx, embedding, params.Filters, poolSize)
	}()
	wg.Wait()

	fused := e.fusion.Fuse([]fusion.RankedList{
		{Name: "lexical", IDs: lexicalIDs, Weight: 1.0},
		{Name: "vector", IDs: vectorIDs, Weight: 1.0},
	})

	pool := fused
	if len(pool) > poolSize {
		pool = pool[:poolSize]
	}

	hydrated, err := e.hydrate(ctx, pool)
	if err != nil {
		return nil, fmt.Errorf("hydrate fused results: %w", err)
	}

	if params.EnableRerank && e.reranker != nil && e.reranker.Available() {
		hydrated, err = e.applyRerank(ctx, query, hydrated)
		if err != nil {
			e.logger.Warn("reranking failed, falling back to fused order", "error", err)
		}
	}

	if len(hydrated) > limit {
		hydrated = hydrated[:limit]
	}

	e.logger.Info("hybrid search completed", "query", query, "results", len(hydrated))
	return hydrated, nil
}

// runLexicalLeg degrades to an empty result set rather than failing the
// whole query when the leg times out or errors — spec §4.12's "a failing
// leg contributes nothing, it does not abort the query" requirement.
func (e *Engine) runLexicalLeg(ctx context.Context, query string, filters domain.SearchFilters, limit int) []uuid.UUID {
	legCtx, cancel := context.WithTimeout(ctx, legTimeout)
	defer cancel()

	results, err := e.lexical.Search(legCtx, query, filters, limit)
	if err != nil {
		e.logger.Warn("lexical search leg failed", "error", err)
		return nil
	}
	ids := make([]uuid.UUID, len(results))
	for i, r := range results {
		ids[i] = r.ChunkID
	}
	return ids
}

func (e *Engine) runVectorLeg(ctx context.Context, embedding []float32, filters domain.SearchFilters, limit int) []uuid.UUID {
	legCtx, cancel := context.WithTimeout(ctx, legTimeout)
	defer cancel()

	results, err := e.vector.Nearest(legCtx, embedding, filters, limit)
	if err != nil {
		e.logger.Warn("vector search leg failed", "error", err)
		return nil
	}
	ids := make([]uuid.UUID, len(results))
	for i, r := range results {
		ids[i] = r.ChunkID
	}
	return ids
}

func (e *Engine) hydrate(ctx context.Context, fused []fusion.Result) ([]Result, error) {
	out := make([]Result, 0, len(fused))
	for _, f := range fused {
		chunk, err := e.chunks.GetByID(ctx, f.ID)
		if err != nil {
			e.logger.Warn("dropping fused result with no backing chunk", "chunk_id", f.ID, "error", err)
			continue
		}
		out = append(out, Result{Chunk: *chunk, FusedScore: f.Score})
	}
	return out, nil
}

func (e *Engine) applyRerank(ctx context.Context, query string, results []Result) ([]Result, error) {
	candidates := make([]rerank.Candidate, len(results))
	for i, r := range results {
		candidates[i] = rerank.Candidate{ID: r.Chunk.ID, Content: r.Chunk.SourceCode, Score: r.FusedScore}
	}

	reranked, err := e.reranker.Rerank(ctx, query, candidates)
	if err != nil {
		return results, err
	}

	byID := make(map[uuid.UUID]Result, len(results))
	for _, r := range results {
		byID[r.Chunk.ID] = r
	}

	out := make([]Result, 0, len(reranked))
	for _, rr := range reranked {
		base, ok := byID[rr.Candidate.ID]
		if !ok {
			continue
		}
		score := rr.RerankScore
		base.RerankScore = &score
		out = append(out, base)
	}
	sort.SliceStable(out, func(i, j int) bool { return *out[i].RerankScore > *out[j].RerankScore })
	return out, nil
}
