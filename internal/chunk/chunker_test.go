package chunk

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mnemolite/mnemolite/internal/domain"
)

func TestASTChunker_GoFunctionsAndMethods(t *testing.T) {
	source := `package sample

type Greeter struct{}

func (g *Greeter) Greet(name string) string {
	return "hello " + name
}

func Add(a, b int) int {
	return a + b
}
`
	c, err := NewASTChunker(2000)
	require.NoError(t, err)

	chunks, err := c.Chunk(context.Background(), source, "go", "sample.go")
	require.NoError(t, err)
	require.Len(t, chunks, 2)

	names := map[string]domain.ChunkType{}
	for _, ch := range chunks {
		names[ch.Name] = ch.ChunkType
	}
	assert.Equal(t, domain.ChunkMethod, names["Greet"])
	assert.Equal(t, domain.ChunkFunction, names["Add"])
}

func TestASTChunker_EmptySourceIsValidationError(t *testing.T) {
	c, err := NewASTChunker(2000)
	require.NoError(t, err)

	_, err = c.Chunk(context.Background(), "", "go", "empty.go")
	require.Error(t, err)

	de, ok := domain.AsDomainError(err)
	require.True(t, ok)
	assert.Equal(t, domain.ErrorValidation, de.Type)
}

func TestASTChunker_UnsupportedLanguageReturnsSentinel(t *testing.T) {
	c, err := NewASTChunker(2000)
	require.NoError(t, err)

	_, err = c.Chunk(context.Background(), "fn main() {}", "rust", "main.rs")
	require.ErrorIs(t, err, ErrUnsupportedLanguage)
}

func TestASTChunker_NoDeclarationsFallsBackToModuleChunk(t *testing.T) {
	source := "package sample\n\nvar x = 1\n"
	c, err := NewASTChunker(2000)
	require.NoError(t, err)

	chunks, err := c.Chunk(context.Background(), source, "go", "vars.go")
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, domain.ChunkModule, chunks[0].ChunkType)
}

func TestASTChunker_OversizedFunctionSplitsAtNestedBoundaries(t *testing.T) {
	var body strings.Builder
	body.WriteString("package sample\n\nfunc Outer() {\n")
	for i := 0; i < 50; i++ {
		body.WriteString("\tdoWork()\n")
	}
	body.WriteString(`
	func inner() {}
`)
	body.WriteString("}\n")

	c, err := NewASTChunker(50) // force the oversized path
	require.NoError(t, err)

	chunks, err := c.Chunk(context.Background(), body.String(), "go", "outer.go")
	require.NoError(t, err)
	require.NotEmpty(t, chunks)
}

func TestASTChunker_AnonymousFunctionsAreFiltered(t *testing.T) {
	source := `package sample

func WithCallback() {
	go func() {
		println("anon")
	}()
}
`
	c, err := NewASTChunker(2000)
	require.NoError(t, err)

	chunks, err := c.Chunk(context.Background(), source, "go", "cb.go")
	require.NoError(t, err)
	for _, ch := range chunks {
		assert.NotEmpty(t, ch.Name)
	}
}
