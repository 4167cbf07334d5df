// Package pg implements the C1 storage adapters (domain.ChunkRepository,
// GraphRepository, ErrorRepository, MetricsRepository) against PostgreSQL,
// using raw pgx/v5 queries rather than sqlc: the teacher's
// internal/infra/postgres package generates its Querier from sqlc, but this
// module dropped the sqlc toolchain (no codegen step is run here), so
// queries are hand-written the way
// _examples/seanblong-reposearch-main's repository layer does it —
// explicit SQL strings executed directly against a pgx.Tx/pgxpool.Pool.
package pg

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	pgvector "github.com/pgvector/pgvector-go"

	"github.com/mnemolite/mnemolite/internal/domain"
)

func uuidToPg(id uuid.UUID) pgtype.UUID {
	return pgtype.UUID{Bytes: id, Valid: true}
}

func pgToUUID(id pgtype.UUID) uuid.UUID {
	return uuid.UUID(id.Bytes)
}

func vectorOrNil(v []float32) any {
	if v == nil {
		return nil
	}
	return pgvector.NewVector(v)
}

// contentHash is reused by the chunk repository to populate content_hash at
// write time, mirroring internal/cache.ContentHash so a row's hash always
// matches what the cache layer would compute for the same source.
func contentHash(source string) string {
	sum := md5.Sum([]byte(source))
	return hex.EncodeToString(sum[:])
}

func marshalMetadata(m domain.ChunkMetadata) []byte {
	b, err := json.Marshal(m)
	if err != nil {
		return []byte("{}")
	}
	return b
}

func unmarshalMetadata(b []byte) domain.ChunkMetadata {
	var m domain.ChunkMetadata
	if len(b) == 0 {
		return m
	}
	_ = json.Unmarshal(b, &m)
	return m
}

func marshalProperties(p map[string]any) []byte {
	if p == nil {
		return []byte("{}")
	}
	b, err := json.Marshal(p)
	if err != nil {
		return []byte("{}")
	}
	return b
}

func unmarshalProperties(b []byte) map[string]any {
	var p map[string]any
	if len(b) == 0 {
		return nil
	}
	_ = json.Unmarshal(b, &p)
	return p
}

func nullableTime(t time.Time) pgtype.Timestamptz {
	if t.IsZero() {
		return pgtype.Timestamptz{}
	}
	return pgtype.Timestamptz{Time: t, Valid: true}
}
