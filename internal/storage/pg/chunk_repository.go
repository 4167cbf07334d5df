package pg

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	pgvector "github.com/pgvector/pgvector-go"

	"github.com/mnemolite/mnemolite/internal/domain"
)

// querier is the common subset of pgx.Tx and *pgxpool.Pool this package's
// repositories need, so the same adapter code serves both a transactional
// write path (internal/platform/database.Transact) and read-only callers
// that hold the pool directly.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// ChunkRepository implements domain.ChunkRepository against the code_chunks
// table (spec §6's primary table), grounded on
// _examples/jinford-dev-rag/internal/infra/postgres/repository.go's
// Reader/Writer split and pgvector-go's Vector type for the embedding
// columns.
type ChunkRepository struct {
	db querier
}

// NewChunkRepository builds a ChunkRepository bound to a transaction or pool.
func NewChunkRepository(db querier) *ChunkRepository {
	return &ChunkRepository{db: db}
}

var _ domain.ChunkRepository = (*ChunkRepository)(nil)

const chunkColumns = `id, file_path, language, chunk_type, name, name_path, source_code,
	start_line, end_line, embedding_text, embedding_code, metadata, repository,
	commit_hash, indexed_at, last_modified`

func (r *ChunkRepository) scanChunk(row pgx.Row) (*domain.CodeChunk, error) {
	var c domain.CodeChunk
	var id pgtype.UUID
	var metaBytes []byte
	var embText, embCode pgvector.Vector

	if err := row.Scan(
		&id, &c.FilePath, &c.Language, &c.ChunkType, &c.Name, &c.NamePath, &c.SourceCode,
		&c.StartLine, &c.EndLine, &embText, &embCode, &metaBytes, &c.Repository,
		&c.CommitHash, &c.IndexedAt, &c.LastModified,
	); err != nil {
		return nil, err
	}

	c.ID = pgToUUID(id)
	c.Metadata = unmarshalMetadata(metaBytes)
	if s := embText.Slice(); len(s) > 0 {
		c.EmbeddingText = s
	}
	if s := embCode.Slice(); len(s) > 0 {
		c.EmbeddingCode = s
	}
	return &c, nil
}

// GetByID returns a single chunk.
func (r *ChunkRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.CodeChunk, error) {
	row := r.db.QueryRow(ctx, `SELECT `+chunkColumns+` FROM code_chunks WHERE id = $1`, uuidToPg(id))
	chunk, err := r.scanChunk(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("chunk not found: %s", id)
		}
		return nil, fmt.Errorf("get chunk: %w", err)
	}
	return chunk, nil
}

// ListByRepository returns every chunk for a repository.
func (r *ChunkRepository) ListByRepository(ctx context.Context, repository string) ([]domain.CodeChunk, error) {
	rows, err := r.db.Query(ctx, `SELECT `+chunkColumns+` FROM code_chunks WHERE repository = $1 ORDER BY file_path, start_line`, repository)
	if err != nil {
		return nil, fmt.Errorf("list chunks by repository: %w", err)
	}
	defer rows.Close()
	return r.collect(rows)
}

// ListByFile returns every chunk for one file within a repository.
func (r *ChunkRepository) ListByFile(ctx context.Context, repository, filePath string) ([]domain.CodeChunk, error) {
	rows, err := r.db.Query(ctx, `SELECT `+chunkColumns+` FROM code_chunks WHERE repository = $1 AND file_path = $2 ORDER BY start_line`, repository, filePath)
	if err != nil {
		return nil, fmt.Errorf("list chunks by file: %w", err)
	}
	defer rows.Close()
	return r.collect(rows)
}

func (r *ChunkRepository) collect(rows pgx.Rows) ([]domain.CodeChunk, error) {
	var result []domain.CodeChunk
	for rows.Next() {
		c, err := r.scanChunk(rows)
		if err != nil {
			return nil, fmt.Errorf("scan chunk row: %w", err)
		}
		result = append(result, *c)
	}
	return result, rows.Err()
}

// ReplaceFile deletes all existing chunks for (repository, filePath) and
// inserts the new set, per spec §4.5 step 4 — both statements must run
// inside the same transaction the caller opened via
// internal/platform/database.Transact.
func (r *ChunkRepository) ReplaceFile(ctx context.Context, repository, filePath string, chunks []domain.CodeChunk) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM code_chunks WHERE repository = $1 AND file_path = $2`, repository, filePath); err != nil {
		return fmt.Errorf("delete existing chunks: %w", err)
	}

	for _, c := range chunks {
		id := c.ID
		if id == uuid.Nil {
			id = uuid.New()
		}
		if _, err := r.db.Exec(ctx, `
			INSERT INTO code_chunks (id, file_path, language, chunk_type, name, name_path,
				source_code, start_line, end_line, embedding_text, embedding_code, metadata,
				repository, commit_hash, content_hash, indexed_at, last_modified)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,now(),now())`,
			uuidToPg(id), c.FilePath, c.Language, c.ChunkType, c.Name, c.NamePath, c.SourceCode,
			c.StartLine, c.EndLine, vectorOrNil(c.EmbeddingText), vectorOrNil(c.EmbeddingCode),
			marshalMetadata(c.Metadata), repository, c.CommitHash, contentHash(c.SourceCode),
		); err != nil {
			return fmt.Errorf("insert chunk %s: %w", c.Name, err)
		}
	}
	return nil
}

// DeleteByRepository removes every chunk belonging to a repository, used
// when a repository is re-indexed from scratch or removed.
func (r *ChunkRepository) DeleteByRepository(ctx context.Context, repository string) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM code_chunks WHERE repository = $1`, repository); err != nil {
		return fmt.Errorf("delete chunks by repository: %w", err)
	}
	return nil
}

// ListMissingContentHash and SetContentHash implement
// internal/cache.ChunkHashBackfiller against the content_hash column.
func (r *ChunkRepository) ListMissingContentHash(ctx context.Context) ([]domain.CodeChunk, error) {
	rows, err := r.db.Query(ctx, `SELECT id, source_code FROM code_chunks WHERE content_hash IS NULL OR content_hash = ''`)
	if err != nil {
		return nil, fmt.Errorf("list chunks missing content hash: %w", err)
	}
	defer rows.Close()

	var result []domain.CodeChunk
	for rows.Next() {
		var id pgtype.UUID
		var source string
		if err := rows.Scan(&id, &source); err != nil {
			return nil, fmt.Errorf("scan content-hash candidate row: %w", err)
		}
		result = append(result, domain.CodeChunk{ID: pgToUUID(id), SourceCode: source})
	}
	return result, rows.Err()
}

func (r *ChunkRepository) SetContentHash(ctx context.Context, chunkID, hash string) error {
	id, err := uuid.Parse(chunkID)
	if err != nil {
		return fmt.Errorf("parse chunk id: %w", err)
	}
	if _, err := r.db.Exec(ctx, `UPDATE code_chunks SET content_hash = $1 WHERE id = $2`, hash, uuidToPg(id)); err != nil {
		return fmt.Errorf("set content hash: %w", err)
	}
	return nil
}
