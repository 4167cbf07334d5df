// Package lexical implements C10: trigram similarity search over
// code_chunks via Postgres's pg_trgm extension. Structurally grounded on
// _examples/ferg-cod3s-conexus/internal/vectorstore/sqlite/fts5.go — a
// lexical-search adapter as its own small package with query-empty
// guarding, default-limit handling, and filter-driven query building — with
// the SQL dialect swapped from SQLite FTS5/BM25 to Postgres's
// similarity()/GREATEST() since MnemoLite's storage target is pgvector/pgx
// (no pack example targets Postgres full-text/trigram search directly).
package lexical

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mnemolite/mnemolite/internal/domain"
)

// DefaultMinSimilarity is spec §4.10's trigram floor: hits scoring below
// this are dropped rather than ranked last.
const DefaultMinSimilarity = 0.1

// querier is the read-only subset of pgx.Tx/*pgxpool.Pool this package needs.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (rows, error)
}

type rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close()
}

// Searcher implements domain.LexicalSearcher.
type Searcher struct {
	db            querier
	minSimilarity float64
}

// New builds a Searcher with the default similarity floor.
func New(db querier) *Searcher {
	return &Searcher{db: db, minSimilarity: DefaultMinSimilarity}
}

// NewWithMinSimilarity overrides the default floor, e.g. for a looser
// fuzzy-match mode.
func NewWithMinSimilarity(db querier, min float64) *Searcher {
	return &Searcher{db: db, minSimilarity: min}
}

// poolQuerier adapts *pgxpool.Pool to querier — pgx.Rows already satisfies
// this package's unexported rows interface, so the wrapper is just a method
// with the narrower return type.
type poolQuerier struct{ pool *pgxpool.Pool }

func (q poolQuerier) Query(ctx context.Context, sql string, args ...any) (rows, error) {
	return q.pool.Query(ctx, sql, args...)
}

// NewFromPool builds a Searcher directly over a connection pool, for callers
// outside a transaction (search is read-only and never needs one).
func NewFromPool(pool *pgxpool.Pool) *Searcher {
	return New(poolQuerier{pool: pool})
}

var _ domain.LexicalSearcher = (*Searcher)(nil)

// Search ranks code_chunks by the greatest trigram similarity across
// source_code, name, and name_path, per spec §4.10.
func (s *Searcher) Search(ctx context.Context, query string, filters domain.SearchFilters, limit int) ([]domain.LexicalResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("lexical search query cannot be empty")
	}
	if limit <= 0 {
		limit = 10
	}

	sqlQuery, args := buildQuery(query, filters, s.minSimilarity, limit)

	r, err := s.db.Query(ctx, sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("execute lexical search: %w", err)
	}
	defer r.Close()

	var results []domain.LexicalResult
	for r.Next() {
		var id pgtype.UUID
		var sim float64
		if err := r.Scan(&id, &sim); err != nil {
			return nil, fmt.Errorf("scan lexical result: %w", err)
		}
		results = append(results, domain.LexicalResult{
			ChunkID:    uuid.UUID(id.Bytes),
			Similarity: sim,
		})
	}
	return results, r.Err()
}

// buildQuery assembles the parameterized trigram query, appending filter
// predicates only for non-zero filter fields so an all-repository search
// stays a full scan rather than an always-false AND chain.
func buildQuery(query string, filters domain.SearchFilters, minSimilarity float64, limit int) (string, []any) {
	args := []any{query, minSimilarity}
	where := []string{}

	if filters.Repository != "" {
		args = append(args, filters.Repository)
		where = append(where, fmt.Sprintf("repository = $%d", len(args)))
	}
	if filters.Language != "" {
		args = append(args, filters.Language)
		where = append(where, fmt.Sprintf("language = $%d", len(args)))
	}
	if filters.ChunkType != "" {
		args = append(args, string(filters.ChunkType))
		where = append(where, fmt.Sprintf("chunk_type = $%d", len(args)))
	}
	if filters.FilePath != "" {
		args = append(args, "%"+filters.FilePath+"%")
		where = append(where, fmt.Sprintf("file_path LIKE $%d", len(args)))
	}

	whereClause := ""
	if len(where) > 0 {
		whereClause = " AND " + strings.Join(where, " AND ")
	}

	args = append(args, limit)
	sql := fmt.Sprintf(`
		SELECT id, sim FROM (
			SELECT id,
				GREATEST(
					similarity(source_code, $1),
					similarity(name, $1),
					similarity(name_path, $1)
				) AS sim
			FROM code_chunks
			WHERE true%s
		) scored
		WHERE sim >= $2
		ORDER BY sim DESC
		LIMIT $%d`, whereClause, len(args))

	return sql, args
}
