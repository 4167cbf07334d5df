package domain

import (
	"context"

	"github.com/google/uuid"
)

// ChunkReader reads persisted chunks. Segregated from ChunkWriter following
// the teacher's Reader/Writer interface split (internal/module/*/domain/repository.go).
type ChunkReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*CodeChunk, error)
	ListByRepository(ctx context.Context, repository string) ([]CodeChunk, error)
	ListByFile(ctx context.Context, repository, filePath string) ([]CodeChunk, error)
}

// ChunkWriter persists chunks. ReplaceFile deletes-then-inserts inside a
// single transaction per spec §4.5 step 4.
type ChunkWriter interface {
	ReplaceFile(ctx context.Context, repository, filePath string, chunks []CodeChunk) error
	DeleteByRepository(ctx context.Context, repository string) error
}

// ChunkRepository composes the chunk read/write ports.
type ChunkRepository interface {
	ChunkReader
	ChunkWriter
}

// GraphReader reads nodes and edges.
type GraphReader interface {
	ListNodes(ctx context.Context, repository string) ([]GraphNode, error)
	ListEdges(ctx context.Context, repository string) ([]GraphEdge, error)
}

// GraphWriter performs the atomic replace-all write described in spec §4.8
// step 5: the full node+edge set for a repository is committed in a single
// transaction.
type GraphWriter interface {
	ReplaceGraph(ctx context.Context, repository string, nodes []GraphNode, edges []GraphEdge) error
}

// GraphRepository composes the graph read/write ports.
type GraphRepository interface {
	GraphReader
	GraphWriter
}

// ErrorWriter persists IndexingError records to indexing_errors.
type ErrorWriter interface {
	Record(ctx context.Context, e IndexingError) error
}

// ErrorReader queries indexing_errors, e.g. for a job summary.
type ErrorReader interface {
	ListByRepository(ctx context.Context, repository string) ([]IndexingError, error)
}

// ErrorRepository composes the error read/write ports.
type ErrorRepository interface {
	ErrorReader
	ErrorWriter
}

// MetricsRepository persists and reads ComputedMetrics, keeping old versions
// for diffing.
type MetricsRepository interface {
	Put(ctx context.Context, m []ComputedMetrics) error
	LatestByRepository(ctx context.Context, repository string) ([]ComputedMetrics, error)
}

// JobStatusStore is the durable-stream-adjacent status hash: one per
// repository, TTL 24h, advanced by the consumer after each batch.
type JobStatusStore interface {
	Init(ctx context.Context, job IndexingJob) error
	Get(ctx context.Context, repository string) (*IndexingJob, error)
	// Advance atomically applies the deltas and returns the post-increment
	// processed/failed totals so a caller can detect "this call finished the
	// last file" without a separate, racy Get.
	Advance(ctx context.Context, repository string, processedDelta, failedDelta, currentBatch int, batchErrors []string) (processedFiles, failedFiles int, err error)
	Finish(ctx context.Context, repository string, status JobStatus) error
}

// LexicalSearcher is the C10 trigram search port.
type LexicalSearcher interface {
	Search(ctx context.Context, query string, filters SearchFilters, limit int) ([]LexicalResult, error)
}

// VectorSearcher is the vector leg of C13, backed by pgvector.
type VectorSearcher interface {
	Nearest(ctx context.Context, embedding []float32, filters SearchFilters, limit int) ([]VectorResult, error)
}

// SearchFilters narrow both lexical and vector search.
type SearchFilters struct {
	Language   string
	ChunkType  ChunkType
	Repository string
	FilePath   string // partial match
}

// LexicalResult is one ranked lexical hit.
type LexicalResult struct {
	ChunkID    uuid.UUID
	Similarity float64
}

// VectorResult is one ranked vector hit.
type VectorResult struct {
	ChunkID uuid.UUID
	Score   float32
}
