package cache

import (
	"context"
	"fmt"

	"github.com/mnemolite/mnemolite/internal/domain"
)

// ChunkHashBackfiller is the minimal port the one-shot migration needs:
// iterate every chunk missing a content hash and persist the computed one.
// Grounded on spec.md §9's "Cache hash migration" design note — an
// out-of-band operation that must not block start-up.
type ChunkHashBackfiller interface {
	ListMissingContentHash(ctx context.Context) ([]domain.CodeChunk, error)
	SetContentHash(ctx context.Context, chunkID, hash string) error
}

// BackfillContentHashes recomputes MD5(source_code) for every chunk whose
// stored metadata lacks a content_hash, asserting the 32-hex-character
// format before writing it back. Intended to run as a standalone
// maintenance command, never on the request/indexing hot path.
func BackfillContentHashes(ctx context.Context, repo ChunkHashBackfiller) (int, error) {
	chunks, err := repo.ListMissingContentHash(ctx)
	if err != nil {
		return 0, fmt.Errorf("list chunks missing content hash: %w", err)
	}

	updated := 0
	for _, c := range chunks {
		hash := ContentHash(c.SourceCode)
		if len(hash) != 32 {
			return updated, fmt.Errorf("computed hash for chunk %s is not 32 hex characters", c.ID)
		}
		if err := repo.SetContentHash(ctx, c.ID.String(), hash); err != nil {
			return updated, fmt.Errorf("backfill chunk %s: %w", c.ID, err)
		}
		updated++
	}
	return updated, nil
}
