// Package vector implements the vector leg of C13 hybrid search: nearest
// neighbors over code_chunks.embedding_text/embedding_code via pgvector's
// cosine-distance operator. Grounded on pgvector-go's Vector type usage in
// internal/storage/pg, the same embedding encoding C1 writes at index time.
package vector

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"

	"github.com/mnemolite/mnemolite/internal/domain"
)

type rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close()
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (rows, error)
}

// Channel selects which embedding column to search — spec §4.3's TEXT/CODE
// dual-vector scheme.
type Channel string

const (
	ChannelText Channel = "embedding_text"
	ChannelCode Channel = "embedding_code"
)

// Searcher implements domain.VectorSearcher over one embedding channel.
// Hybrid search takes a single VectorSearcher; the CLI wires one over
// ChannelText, so embedding_code is not searched there.
type Searcher struct {
	db      querier
	channel Channel
}

// New builds a Searcher bound to one embedding column.
func New(db querier, channel Channel) *Searcher {
	return &Searcher{db: db, channel: channel}
}

// poolQuerier adapts *pgxpool.Pool to querier, mirroring
// internal/search/lexical's wrapper.
type poolQuerier struct{ pool *pgxpool.Pool }

func (q poolQuerier) Query(ctx context.Context, sql string, args ...any) (rows, error) {
	return q.pool.Query(ctx, sql, args...)
}

// NewFromPool builds a Searcher directly over a connection pool.
func NewFromPool(pool *pgxpool.Pool, channel Channel) *Searcher {
	return New(poolQuerier{pool: pool}, channel)
}

var _ domain.VectorSearcher = (*Searcher)(nil)

// Nearest returns the top-`limit` chunks by cosine similarity to embedding,
// expressed as 1 - cosine_distance so higher is always better (consistent
// with domain.VectorResult.Score's "higher is better" contract).
func (s *Searcher) Nearest(ctx context.Context, embedding []float32, filters domain.SearchFilters, limit int) ([]domain.VectorResult, error) {
	if len(embedding) != domain.EmbeddingDimension {
		return nil, fmt.Errorf("query embedding has dimension %d, want %d", len(embedding), domain.EmbeddingDimension)
	}
	if limit <= 0 {
		limit = 10
	}

	sqlQuery, args := buildQuery(string(s.channel), filters, limit)
	args = append([]any{pgvector.NewVector(embedding)}, args...)

	r, err := s.db.Query(ctx, sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("execute vector search: %w", err)
	}
	defer r.Close()

	var results []domain.VectorResult
	for r.Next() {
		var id pgtype.UUID
		var score float32
		if err := r.Scan(&id, &score); err != nil {
			return nil, fmt.Errorf("scan vector result: %w", err)
		}
		results = append(results, domain.VectorResult{ChunkID: uuid.UUID(id.Bytes), Score: score})
	}
	return results, r.Err()
}

func buildQuery(column string, filters domain.SearchFilters, limit int) (string, []any) {
	args := []any{}
	where := []string{column + " IS NOT NULL"}

	if filters.Repository != "" {
		args = append(args, filters.Repository)
		where = append(where, fmt.Sprintf("repository = $%d", len(args)+1))
	}
	if filters.Language != "" {
		args = append(args, filters.Language)
		where = append(where, fmt.Sprintf("language = $%d", len(args)+1))
	}
	if filters.ChunkType != "" {
		args = append(args, string(filters.ChunkType))
		where = append(where, fmt.Sprintf("chunk_type = $%d", len(args)+1))
	}
	if filters.FilePath != "" {
		args = append(args, "%"+filters.FilePath+"%")
		where = append(where, fmt.Sprintf("file_path LIKE $%d", len(args)+1))
	}

	args = append(args, limit)
	sql := fmt.Sprintf(`
		SELECT id, 1 - (%s <=> $1) AS score
		FROM code_chunks
		WHERE %s
		ORDER BY %s <=> $1
		LIMIT $%d`, column, joinAnd(where), column, len(args)+1)

	return sql, args
}

func joinAnd(clauses []string) string {
	out := clauses[0]
	for _, c := range clauses[1:] {
		out += " AND " + c
	}
	return out
}
