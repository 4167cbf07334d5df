package hybrid

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mnemolite/mnemolite/internal/domain"
	"github.com/mnemolite/mnemolite/internal/search/rerank"
)

type fakeLexical struct {
	results []domain.LexicalResult
	err     error
}

func (f *fakeLexical) Search(ctx context.Context, query string, filters domain.SearchFilters, limit int) ([]domain.LexicalResult, error) {
	return f.results, f.err
}

type fakeVector struct {
	results []domain.VectorResult
	err     error
}

func (f *fakeVector) Nearest(ctx context.Context, embedding []float32, filters domain.SearchFilters, limit int) ([]domain.VectorResult, error) {
	return f.results, f.err
}

type fakeEmbedder struct{}

func (fakeEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return make([]float32, domain.EmbeddingDimension), nil
}

type fakeChunks struct {
	byID map[uuid.UUID]*domain.CodeChunk
}

func (f *fakeChunks) GetByID(ctx context.Context, id uuid.UUID) (*domain.CodeChunk, error) {
	c, ok := f.byID[id]
	if !ok {
		return nil, assert.AnError
	}
	return c, nil
}

func silentLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestEngine_Search_FusesAndHydrates(t *testing.T) {
	idA, idB := uuid.New(), uuid.New()
	lexical := &fakeLexical{results: []domain.LexicalResult{{ChunkID: idA, Similarity: 0.9}}}
	vector := &fakeVector{results: []domain.VectorResult{{ChunkID: idA, Score: 0.8}, {ChunkID: idB, Score: 0.5}}}
	chunks := &fakeChunks{byID: map[uuid.UUID]*domain.CodeChunk{
		idA: {ID: idA, Name: "A", SourceCode: "func A(){}"},
		idB: {ID: idB, Name: "B", SourceCode: "func B(){}"},
	}}

	e := New(lexical, vector, fakeEmbedder{}, chunks, rerank.NewNoOp(), silentLogger())

	results, err := e.Search(context.Background(), Params{Query: "find A", Limit: 10})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "A", results[0].Chunk.Name) // appears in both lists, ranks first
}

func TestEngine_Search_EmptyQueryErrors(t *testing.T) {
	e := New(&fakeLexical{}, &fakeVector{}, fakeEmbedder{}, &fakeChunks{}, rerank.NewNoOp(), silentLogger())
	_, err := e.Search(context.Background(), Params{Query: "   "})
	require.Error(t, err)
}

func TestEngine_Search_FailingLexicalLegDegradesGracefully(t *testing.T) {
	idA := uuid.New()
	lexical := &fakeLexical{err: assert.AnError}
	vector := &fakeVector{results: []domain.VectorResult{{ChunkID: idA, Score: 0.8}}}
	chunks := &fakeChunks{byID: map[uuid.UUID]*domain.CodeChunk{idA: {ID: idA, Name: "A", SourceCode: "x"}}}

	e := New(lexical, vector, fakeEmbedder{}, chunks, rerank.NewNoOp(), silentLogger())
	results, err := e.Search(context.Background(), Params{Query: "find A"})
	require.NoError(t, err)
	require.Len(t, results, 1)
}
