package cache

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/mnemolite/mnemolite/internal/domain"
)

type fakeHashBackfiller struct {
	pending []domain.CodeChunk
	set     map[string]string
}

func (f *fakeHashBackfiller) ListMissingContentHash(_ context.Context) ([]domain.CodeChunk, error) {
	return f.pending, nil
}

func (f *fakeHashBackfiller) SetContentHash(_ context.Context, chunkID, hash string) error {
	if f.set == nil {
		f.set = map[string]string{}
	}
	f.set[chunkID] = hash
	return nil
}

func TestBackfillContentHashes(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	repo := &fakeHashBackfiller{pending: []domain.CodeChunk{
		{ID: a, SourceCode: "func A() {}"},
		{ID: b, SourceCode: "func B() {}"},
	}}

	updated, err := BackfillContentHashes(context.Background(), repo)
	require.NoError(t, err)
	require.Equal(t, 2, updated)
	require.Len(t, repo.set[a.String()], 32)
	require.Equal(t, ContentHash("func A() {}"), repo.set[a.String()])
	require.Equal(t, ContentHash("func B() {}"), repo.set[b.String()])
}

func TestBackfillContentHashesEmpty(t *testing.T) {
	repo := &fakeHashBackfiller{}
	updated, err := BackfillContentHashes(context.Background(), repo)
	require.NoError(t, err)
	require.Equal(t, 0, updated)
}
