package pg

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/mnemolite/mnemolite/internal/domain"
)

// ErrorRepository implements domain.ErrorRepository against the
// indexing_errors table (spec §6, §7's domain-error layer).
type ErrorRepository struct {
	db querier
}

// NewErrorRepository builds an ErrorRepository bound to a transaction or pool.
func NewErrorRepository(db querier) *ErrorRepository {
	return &ErrorRepository{db: db}
}

var _ domain.ErrorRepository = (*ErrorRepository)(nil)

// Record persists one IndexingError.
func (r *ErrorRepository) Record(ctx context.Context, e domain.IndexingError) error {
	id := e.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	if _, err := r.db.Exec(ctx, `
		INSERT INTO indexing_errors (id, repository, file_path, error_type, message, trace, language, occurred_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,now())`,
		uuidToPg(id), e.Repository, e.FilePath, e.ErrorType, e.Message, e.Trace, e.Language,
	); err != nil {
		return fmt.Errorf("record indexing error: %w", err)
	}
	return nil
}

// ListByRepository returns every recorded error for a repository, most
// recent first.
func (r *ErrorRepository) ListByRepository(ctx context.Context, repository string) ([]domain.IndexingError, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, repository, file_path, error_type, message, trace, language, occurred_at
		FROM indexing_errors
		WHERE repository = $1
		ORDER BY occurred_at DESC`, repository)
	if err != nil {
		return nil, fmt.Errorf("list indexing errors: %w", err)
	}
	defer rows.Close()

	var result []domain.IndexingError
	for rows.Next() {
		var e domain.IndexingError
		var id pgtype.UUID
		if err := rows.Scan(&id, &e.Repository, &e.FilePath, &e.ErrorType, &e.Message, &e.Trace, &e.Language, &e.OccurredAt); err != nil {
			return nil, fmt.Errorf("scan indexing error: %w", err)
		}
		e.ID = pgToUUID(id)
		result = append(result, e)
	}
	return result, rows.Err()
}
