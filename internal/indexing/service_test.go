package indexing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mnemolite/mnemolite/internal/chunk"
	"github.com/mnemolite/mnemolite/internal/domain"
)

func TestPrepEmbeddingText_PrefersSignatureAndDocstring(t *testing.T) {
	c := domain.CodeChunk{
		ChunkType: domain.ChunkFunction,
		Name:      "Parse",
		Metadata: domain.ChunkMetadata{
			Signature: &domain.Signature{FunctionName: "Parse"},
			Docstring: "Parse decodes a source file into an AST.",
		},
	}

	text := prepEmbeddingText(c)
	assert.Contains(t, text, "FUNCTION Parse")
	assert.Contains(t, text, "Parse decodes a source file")
}

func TestPrepEmbeddingText_FallsBackToSourceWhenUnnamed(t *testing.T) {
	c := domain.CodeChunk{SourceCode: "x := 1"}
	assert.Equal(t, "x := 1", prepEmbeddingText(c))
}

func TestFindNodeByRange_MatchesExactSpan(t *testing.T) {
	parser := chunk.NewParser()
	defer parser.Close()

	source := "package p\n\nfunc A() {}\n\nfunc B() {}\n"
	tree, err := parser.Parse(context.Background(), []byte(source), "go")
	require.NoError(t, err)

	node := findNodeByRange(tree.Root, 3, 3)
	require.NotNil(t, node)
	assert.Equal(t, "func A() {}", node.GetContent([]byte(source)))
}

func TestFindNodeByRange_NoMatchReturnsNil(t *testing.T) {
	parser := chunk.NewParser()
	defer parser.Close()

	source := "package p\n"
	tree, err := parser.Parse(context.Background(), []byte(source), "go")
	require.NoError(t, err)

	assert.Nil(t, findNodeByRange(tree.Root, 99, 99))
}
