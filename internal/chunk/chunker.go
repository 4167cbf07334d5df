package chunk

import (
	"context"
	"fmt"
	"strings"

	"github.com/mnemolite/mnemolite/internal/domain"
)

// Chunker is the C3 contract from spec §4.1: chunk(source, language, path)
// -> [CodeChunk without embeddings]. It fails softly — callers that get an
// error should fall back to FallbackChunker rather than abort indexing.
type Chunker interface {
	Chunk(ctx context.Context, source, language, path string) ([]domain.CodeChunk, error)
}

// anonymousNames are filtered out before node-construction per spec §9's
// "Anonymous-function filtering" design note.
var anonymousNames = map[string]bool{
	"":            true,
	"<anonymous>": true,
	"_":           true,
	"<lambda>":    true,
}

func isAnonymous(name string) bool {
	if anonymousNames[name] {
		return true
	}
	return strings.HasPrefix(name, "lambda")
}

// ASTChunker walks a tree-sitter parse tree and emits one chunk per
// function/method/class/interface node, per spec §4.1's "per-language AST
// walk that emits function/class/method nodes". Units larger than
// MaxChunkSize are split at the nested function/method/class declarations
// found inside them (each emitted whole, whatever its own size), falling back
// to fixed windows when none exists.
type ASTChunker struct {
	parser       *Parser
	registry     *LanguageRegistry
	fallback     *FallbackChunker
	maxChunkSize int
}

// NewASTChunker builds a chunker bound to the default language registry and
// a tiktoken-backed fallback windower for within-unit splitting.
func NewASTChunker(maxChunkSize int) (*ASTChunker, error) {
	fb, err := NewFallbackChunker(maxChunkSize)
	if err != nil {
		return nil, err
	}
	if maxChunkSize <= 0 {
		maxChunkSize = 2000
	}
	return &ASTChunker{
		parser:       NewParser(),
		registry:     DefaultRegistry(),
		fallback:     fb,
		maxChunkSize: maxChunkSize,
	}, nil
}

var _ Chunker = (*ASTChunker)(nil)

// Chunk implements spec §4.1. On parse error or unsupported language the
// caller is expected to have already routed to FallbackChunker; this method
// itself only returns the AST-derived error so that routing decision stays
// explicit at the call site (internal/indexing's orchestration).
func (a *ASTChunker) Chunk(ctx context.Context, source, language, path string) ([]domain.CodeChunk, error) {
	if source == "" {
		return nil, domain.NewDomainError(domain.ErrorValidation, "", path, "empty source cannot be chunked")
	}

	config, ok := a.registry.GetByName(language)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedLanguage, language)
	}

	tree, err := a.parser.Parse(ctx, []byte(source), language)
	if err != nil {
		return nil, domain.NewDomainError(domain.ErrorParsing, "", path, err.Error())
	}

	srcBytes := []byte(source)
	var chunks []domain.CodeChunk

	tree.Root.Walk(func(n *Node) bool {
		chunkType, matched := classify(config, n.Type)
		if !matched {
			return true
		}

		name := nodeName(config, n, srcBytes)
		if isAnonymous(name) {
			return true
		}

		content := n.GetContent(srcBytes)
		startLine := int(n.StartPoint.Row) + 1
		endLine := int(n.EndPoint.Row) + 1

		if len(content) > a.maxChunkSize {
			chunks = append(chunks, a.splitOversized(config, n, srcBytes, name, chunkType, language, path)...)
			return false // nested declarations already emitted by splitOversized
		}

		chunks = append(chunks, domain.CodeChunk{
			FilePath:   path,
			Language:   language,
			ChunkType:  chunkType,
			Name:       name,
			SourceCode: content,
			StartLine:  startLine,
			EndLine:    endLine,
		})
		return true
	})

	if len(chunks) == 0 {
		// No recognizable declarations (e.g. a script with only top-level
		// statements): emit one MODULE-level chunk so the file isn't silently
		// dropped from the index.
		chunks = append(chunks, domain.CodeChunk{
			FilePath:   path,
			Language:   language,
			ChunkType:  domain.ChunkModule,
			Name:       baseName(path),
			SourceCode: source,
			StartLine:  1,
			EndLine:    len(strings.Split(source, "\n")),
		})
	}

	return chunks, nil
}

// classify maps a tree-sitter node type to a domain.ChunkType using the
// registry's per-language node-type lists — spec §9's dispatch table.
func classify(config *LanguageConfig, nodeType string) (domain.ChunkType, bool) {
	if contains(config.MethodTypes, nodeType) {
		return domain.ChunkMethod, true
	}
	if contains(config.FunctionTypes, nodeType) {
		return domain.ChunkFunction, true
	}
	if contains(config.ClassTypes, nodeType) {
		return domain.ChunkClass, true
	}
	if contains(config.InterfaceTypes, nodeType) {
		return domain.ChunkInterface, true
	}
	return "", false
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func nodeName(config *LanguageConfig, n *Node, source []byte) string {
	nameNode := n.FindChildByType(config.NameField)
	if nameNode == nil {
		nameNode = n.FindChildByType("identifier")
	}
	if nameNode == nil {
		nameNode = n.FindChildByType("property_identifier")
	}
	if nameNode == nil {
		nameNode = n.FindChildByType("field_identifier") // Go method names
	}
	if nameNode == nil {
		nameNode = n.FindChildByType("type_identifier") // TS class/interface names
	}
	if nameNode == nil {
		return ""
	}
	return nameNode.GetContent(source)
}

// splitOversized splits a unit larger than maxChunkSize at structural
// boundaries when its body contains nested function/method declarations,
// else falls back to fixed-size windowing of its own content — spec §4.1:
// "split at structural boundaries when possible, else at windowed offsets".
func (a *ASTChunker) splitOversized(config *LanguageConfig, n *Node, source []byte, name string, chunkType domain.ChunkType, language, path string) []domain.CodeChunk {
	var nested []*Node
	for _, t := range append(append(append([]string{}, config.FunctionTypes...), config.MethodTypes...), config.ClassTypes...) {
		nested = append(nested, n.FindAllByType(t)...)
	}

	// Exclude the node itself from its own nested-boundary search.
	var inner []*Node
	for _, child := range nested {
		if child != n {
			inner = append(inner, child)
		}
	}

	if len(inner) == 0 {
		windows, err := a.fallback.Chunk(n.GetContent(source), language, path)
		if err != nil {
			return nil
		}
		for i := range windows {
			windows[i].Name = fmt.Sprintf("%s_part_%d", name, i+1)
			windows[i].ChunkType = chunkType
			windows[i].StartLine += int(n.StartPoint.Row)
			windows[i].EndLine += int(n.StartPoint.Row)
		}
		return windows
	}

	result := make([]domain.CodeChunk, 0, len(inner))
	for _, child := range inner {
		childType, ok := classify(config, child.Type)
		if !ok {
			continue
		}
		childName := nodeName(config, child, source)
		if isAnonymous(childName) {
			continue
		}
		result = append(result, domain.CodeChunk{
			FilePath:   path,
			Language:   language,
			ChunkType:  childType,
			Name:       childName,
			SourceCode: child.GetContent(source),
			StartLine:  int(child.StartPoint.Row) + 1,
			EndLine:    int(child.EndPoint.Row) + 1,
		})
	}
	return result
}

// CombinedChunker routes to ASTChunker when the language has a registered
// grammar, and to FallbackChunker otherwise — the "callers that get an error
// should fall back" contract promised above, made concrete as its own
// Chunker so indexing.Service doesn't have to know about the distinction.
type CombinedChunker struct {
	ast      *ASTChunker
	fallback *FallbackChunker
}

// NewCombinedChunker builds a CombinedChunker sharing one AST chunker and
// fallback windower pair.
func NewCombinedChunker(maxChunkSize int) (*CombinedChunker, error) {
	ast, err := NewASTChunker(maxChunkSize)
	if err != nil {
		return nil, err
	}
	return &CombinedChunker{ast: ast, fallback: ast.fallback}, nil
}

var _ Chunker = (*CombinedChunker)(nil)

// TokenCounter exposes the shared fallback windower's tiktoken encoder so
// callers outside the chunk package (the embedder's batch-cost estimation)
// can reuse the same encoder instance rather than loading cl100k_base again.
func (c *CombinedChunker) TokenCounter() *FallbackChunker {
	return c.fallback
}

// Chunk tries the AST path first; ErrUnsupportedLanguage (no grammar
// registered) or any other parse failure falls back to fixed windowing
// rather than dropping the file from the index.
func (c *CombinedChunker) Chunk(ctx context.Context, source, language, path string) ([]domain.CodeChunk, error) {
	chunks, err := c.ast.Chunk(ctx, source, language, path)
	if err == nil {
		return chunks, nil
	}
	if de, ok := domain.AsDomainError(err); ok && de.Type == domain.ErrorValidation {
		return nil, err // empty source is a caller bug, not a fallback case
	}
	return c.fallback.Chunk(source, language, path)
}
