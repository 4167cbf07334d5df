// Package indexing implements C6: the orchestration of C3 (chunking), C4
// (metadata extraction), C5 (embedding), and C1 (chunk storage) into a
// single per-file index_file operation, per spec §4.5. Grounded on
// _examples/jinford-dev-rag/internal/module/indexing/application/index_orchestrator.go's
// cache-then-chunk-then-embed-then-persist shape, adapted from the teacher's
// single Postgres write to MnemoLite's transactional delete-then-insert and
// from its one-embedding-channel batch call to the spec's dual TEXT/CODE
// channels.
package indexing

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mnemolite/mnemolite/internal/cache"
	"github.com/mnemolite/mnemolite/internal/chunk"
	"github.com/mnemolite/mnemolite/internal/domain"
	"github.com/mnemolite/mnemolite/internal/metadata"
	"github.com/mnemolite/mnemolite/internal/platform/database"
	"github.com/mnemolite/mnemolite/internal/platform/logger"
	"github.com/mnemolite/mnemolite/internal/symbolpath"
)

// Embedder is the narrow embedding port index_file needs — both channels,
// satisfied by *embed.Embedder directly or by *embed.Cache transparently.
type Embedder interface {
	EmbedPassage(ctx context.Context, text string) ([]float32, error)
	EmbedCode(ctx context.Context, source string) ([]float32, error)
}

// Options mirrors spec §4.5's index_file opts argument.
type Options struct {
	GenerateEmbeddings bool
	BuildGraph         bool
	RepositoryRoot     string
}

// Counters accumulates per-file progress, per spec §4.5 step 5.
type Counters struct {
	ChunksIndexed int
	ChunksCached  bool
}

// Service orchestrates a single file's journey from source text to
// persisted, embedded, name-pathed chunks.
type Service struct {
	chunker   chunk.Chunker
	parser    *chunk.Parser
	extractor *metadata.Extractor
	embedder  Embedder
	cache     *cache.Cache
	symbols   *symbolpath.Service
	provider  *database.TransactionProvider
	logger    *slog.Logger
}

// New builds an indexing Service from its fully-wired collaborators.
func New(
	chunker chunk.Chunker,
	parser *chunk.Parser,
	extractor *metadata.Extractor,
	embedder Embedder,
	cascade *cache.Cache,
	symbols *symbolpath.Service,
	provider *database.TransactionProvider,
	log *slog.Logger,
) *Service {
	return &Service{
		chunker:   chunker,
		parser:    parser,
		extractor: extractor,
		embedder:  embedder,
		cache:     cascade,
		symbols:   symbols,
		provider:  provider,
		logger:    logger.Component(log, "indexing"),
	}
}

// IndexFile runs spec §4.5's index_file algorithm for one file. Errors
// returned here are per-file: the caller records them against the error
// repository and continues with the rest of the run rather than aborting.
func (s *Service) IndexFile(ctx context.Context, repository, commitHash, path, content, language string, opts Options) (Counters, error) {
	var counters Counters

	chunks, cached := s.cache.Get(ctx, path, content)
	counters.ChunksCached = cached
	if !cached {
		built, err := s.chunker.Chunk(ctx, content, language, path)
		if err != nil {
			return counters, fmt.Errorf("chunk %s: %w", path, err)
		}

		s.attachMetadata(ctx, built, content, language)
		s.cache.Put(ctx, path, content, built)
		chunks = built
	}

	for i := range chunks {
		chunks[i].FilePath = path
		chunks[i].Language = language
		chunks[i].Repository = repository
		chunks[i].CommitHash = commitHash
	}

	if opts.GenerateEmbeddings {
		if err := s.embedChunks(ctx, chunks); err != nil {
			return counters, fmt.Errorf("embed chunks for %s: %w", path, err)
		}
	}

	for i := range chunks {
		parents := s.parentContext(chunks[i], chunks)
		chunks[i].NamePath = s.symbols.GenerateNamePath(chunks[i].Name, path, opts.RepositoryRoot, language, parents)
	}

	for i := range chunks {
		if err := chunks[i].Validate(); err != nil {
			return counters, err
		}
	}

	_, err := database.Transact(ctx, s.provider, func(a *database.Adapter) (struct{}, error) {
		return struct{}{}, a.Chunks.ReplaceFile(ctx, repository, path, chunks)
	})
	if err != nil {
		return counters, fmt.Errorf("persist chunks for %s: %w", path, err)
	}

	counters.ChunksIndexed = len(chunks)
	return counters, nil
}

// attachMetadata re-parses content once to pair each already-chunked unit
// with its originating AST node, then runs C4 extraction against it. Chunks
// with no matching node (fallback-windowed content, or a MODULE chunk
// spanning the whole file) get the zero-value metadata Extract already
// returns for a nil node.
func (s *Service) attachMetadata(ctx context.Context, chunks []domain.CodeChunk, content, language string) {
	tree, err := s.parser.Parse(ctx, []byte(content), language)
	if err != nil {
		s.logger.Warn("metadata extraction skipped, reparse failed", slog.String("language", language), slog.String("error", err.Error()))
		return
	}

	src := []byte(content)
	for i := range chunks {
		node := findNodeByRange(tree.Root, chunks[i].StartLine, chunks[i].EndLine)
		chunks[i].Metadata = s.extractor.Extract(node, tree.Root, src, language)
	}
}

// findNodeByRange locates the shallowest AST node whose 1-indexed line span
// matches a chunk's. Stopping at the first match (rather than the deepest)
// matters for single-line declarations, where an inner block node can share
// its parent's row span — the declaration node, not its body, is what
// chunker classified and named the chunk after.
func findNodeByRange(n *chunk.Node, startLine, endLine int) *chunk.Node {
	want0, want1 := startLine-1, endLine-1
	if int(n.StartPoint.Row) == want0 && int(n.EndPoint.Row) == want1 {
		return n
	}
	for _, child := range n.Children {
		if found := findNodeByRange(child, startLine, endLine); found != nil {
			return found
		}
	}
	return nil
}

// embedChunks fills both embedding channels per spec §4.5 step 2: TEXT from
// a context-rich preparation of the chunk, CODE from the raw source.
func (s *Service) embedChunks(ctx context.Context, chunks []domain.CodeChunk) error {
	for i := range chunks {
		textVec, err := s.embedder.EmbedPassage(ctx, prepEmbeddingText(chunks[i]))
		if err != nil {
			return fmt.Errorf("embed text channel for %s: %w", chunks[i].Name, err)
		}
		chunks[i].EmbeddingText = textVec

		codeVec, err := s.embedder.EmbedCode(ctx, chunks[i].SourceCode)
		if err != nil {
			return fmt.Errorf("embed code channel for %s: %w", chunks[i].Name, err)
		}
		chunks[i].EmbeddingCode = codeVec
	}
	return nil
}

// prepEmbeddingText builds the TEXT channel's input: chunk type and name, the
// signature's function name, and the docstring carry the chunk's intent
// independent of its literal source,
// which is what the CODE channel already covers.
func prepEmbeddingText(c domain.CodeChunk) string {
	if c.ChunkType == "" && c.Name == "" {
		return c.SourceCode
	}

	var b strings.Builder
	b.WriteString(string(c.ChunkType))
	b.WriteByte(' ')
	b.WriteString(c.Name)

	if c.Metadata.Signature != nil {
		b.WriteByte('\n')
		b.WriteString(c.Metadata.Signature.FunctionName)
	}
	if c.Metadata.Docstring != "" {
		b.WriteByte('\n')
		b.WriteString(c.Metadata.Docstring)
	}
	return b.String()
}

// parentContext adapts each chunk into symbolpath.ChunkRange and asks the
// symbol-path service for its containing-class chain.
func (s *Service) parentContext(target domain.CodeChunk, all []domain.CodeChunk) []string {
	ranges := make([]symbolpath.ChunkRange, len(all))
	for i, c := range all {
		ranges[i] = symbolpath.ChunkRange{Name: c.Name, ChunkType: c.ChunkType, StartLine: c.StartLine, EndLine: c.EndLine}
	}
	return s.symbols.ExtractParentContext(
		symbolpath.ChunkRange{Name: target.Name, ChunkType: target.ChunkType, StartLine: target.StartLine, EndLine: target.EndLine},
		ranges,
	)
}
