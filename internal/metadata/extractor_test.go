package metadata

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mnemolite/mnemolite/internal/chunk"
)

func parseGo(t *testing.T, source string) (*chunk.Tree, []byte) {
	t.Helper()
	p := chunk.NewParser()
	tree, err := p.Parse(context.Background(), []byte(source), "go")
	require.NoError(t, err)
	return tree, []byte(source)
}

func TestExtract_ComplexityCountsBranches(t *testing.T) {
	source := `package sample

func Classify(n int) string {
	if n < 0 {
		return "negative"
	} else if n == 0 {
		return "zero"
	}
	for i := 0; i < n; i++ {
		if i%2 == 0 && i > 2 {
			continue
		}
	}
	return "positive"
}
`
	tree, src := parseGo(t, source)
	fn := tree.Root.FindAllByType("function_declaration")
	require.Len(t, fn, 1)

	e := New()
	meta := e.Extract(fn[0], tree.Root, src, "go")
	require.NotNil(t, meta.Complexity)
	assert.GreaterOrEqual(t, meta.Complexity.Cyclomatic, 4)
	assert.Equal(t, "function", meta.LSPType)
}

func TestExtract_CallsAndImports(t *testing.T) {
	source := `package sample

import "fmt"

func Greet(name string) {
	fmt.Println(helper(name))
}

func helper(name string) string {
	return name
}
`
	tree, src := parseGo(t, source)
	fns := tree.Root.FindAllByType("function_declaration")
	require.Len(t, fns, 2)

	e := New()
	meta := e.Extract(fns[0], tree.Root, src, "go")
	assert.Contains(t, meta.Calls, "Println")
	assert.Contains(t, meta.Calls, "helper")
	assert.NotEmpty(t, meta.Imports)
}

func TestExtract_NilNodeReturnsZeroValue(t *testing.T) {
	e := New()
	meta := e.Extract(nil, nil, nil, "go")
	assert.Nil(t, meta.Complexity)
	assert.Empty(t, meta.Calls)
}
