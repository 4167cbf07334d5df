package graph

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mnemolite/mnemolite/internal/domain"
)

func chunk(id uuid.UUID, name, namePath, filePath string, calls []string) domain.CodeChunk {
	return domain.CodeChunk{
		ID:        id,
		ChunkType: domain.ChunkFunction,
		Name:      name,
		NamePath:  namePath,
		FilePath:  filePath,
		Metadata:  domain.ChunkMetadata{Calls: calls},
	}
}

func TestBuildNodes_FiltersAnonymousCallables(t *testing.T) {
	chunks := []domain.CodeChunk{
		chunk(uuid.New(), "Handler", "pkg.Handler", "a.go", nil),
		chunk(uuid.New(), "<anonymous>", "", "a.go", nil),
		chunk(uuid.New(), "lambda_1", "", "a.go", nil),
	}

	b := &Builder{}
	resolved := b.buildNodes("repo", chunks)
	require.Len(t, resolved, 1)
	assert.Equal(t, "Handler", resolved[0].name)
	assert.Equal(t, "repo", resolved[0].node.Properties["repository"])
}

func TestResolveEdges_QualifiedPathBeforeSimpleName(t *testing.T) {
	callerID, targetAID, targetBID := uuid.New(), uuid.New(), uuid.New()
	chunks := []domain.CodeChunk{
		chunk(callerID, "Caller", "pkg.Caller", "a.go", []string{"pkg.Helper"}),
		chunk(targetAID, "Helper", "pkg.Helper", "a.go", nil),
		chunk(targetBID, "Helper", "other.Helper", "b.go", nil),
	}

	b := &Builder{}
	resolved := b.buildNodes("repo", chunks)
	byName, byNamePath := indexNodes(resolved)
	edges := b.resolveEdges(chunks, resolved, byName, byNamePath)

	require.Len(t, edges, 1)
	assert.Equal(t, resolved[1].node.ID, edges[0].TargetNodeID) // pkg.Helper, not other.Helper
}

func TestResolveEdges_FallsBackToSameFileSimpleName(t *testing.T) {
	callerID, sameFileID, otherFileID := uuid.New(), uuid.New(), uuid.New()
	chunks := []domain.CodeChunk{
		chunk(callerID, "Caller", "", "a.go", []string{"Helper"}),
		chunk(sameFileID, "Helper", "", "a.go", nil),
		chunk(otherFileID, "Helper", "", "b.go", nil),
	}

	b := &Builder{}
	resolved := b.buildNodes("repo", chunks)
	byName, byNamePath := indexNodes(resolved)
	edges := b.resolveEdges(chunks, resolved, byName, byNamePath)

	require.Len(t, edges, 1)
	assert.Equal(t, resolved[1].node.ID, edges[0].TargetNodeID)
}

func TestResolveEdges_UnresolvedCallsAreDroppedSilently(t *testing.T) {
	callerID := uuid.New()
	chunks := []domain.CodeChunk{
		chunk(callerID, "Caller", "", "a.go", []string{"NeverDefined"}),
	}

	b := &Builder{}
	resolved := b.buildNodes("repo", chunks)
	byName, byNamePath := indexNodes(resolved)
	edges := b.resolveEdges(chunks, resolved, byName, byNamePath)
	assert.Empty(t, edges)
}
