package chunk

import (
	"fmt"
	"strings"

	"github.com/pkoukk/tiktoken-go"

	"github.com/mnemolite/mnemolite/internal/domain"
)

// FallbackChunker splits source into fixed-size windows when the AST path
// fails (parse error or unsupported language). Grounded on the teacher's
// pkg/indexer/chunker/chunker.go, adapted from the teacher's token-bounded
// windows to spec §4.1's character-based max_chunk_size; the cl100k_base
// encoder that window boundary no longer needs is kept alive as a shared
// TokenCount estimator the embedder uses for batch-cost logging.
type FallbackChunker struct {
	encoder      *tiktoken.Tiktoken
	maxChunkSize int // characters, per spec §4.1 default 2000
}

// NewFallbackChunker builds the tiktoken-backed fixed-window chunker.
func NewFallbackChunker(maxChunkSize int) (*FallbackChunker, error) {
	encoder, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return nil, fmt.Errorf("get tiktoken encoder: %w", err)
	}
	if maxChunkSize <= 0 {
		maxChunkSize = 2000
	}
	return &FallbackChunker{encoder: encoder, maxChunkSize: maxChunkSize}, nil
}

// Chunk splits source into FALLBACK_FIXED chunks at line boundaries,
// accumulating lines until the window's byte length reaches maxChunkSize; the
// line that reaches the limit stays in the window, so a window can be longer
// than maxChunkSize.
func (f *FallbackChunker) Chunk(source, language, path string) ([]domain.CodeChunk, error) {
	if source == "" {
		return nil, domain.NewDomainError(domain.ErrorValidation, "", path, "empty source cannot be chunked")
	}

	lines := strings.Split(source, "\n")
	var chunks []domain.CodeChunk

	var buf strings.Builder
	startLine := 1

	flush := func(endLine int) {
		content := buf.String()
		if strings.TrimSpace(content) == "" {
			buf.Reset()
			return
		}
		chunks = append(chunks, domain.CodeChunk{
			FilePath:   path,
			Language:   language,
			ChunkType:  domain.ChunkFallbackFixed,
			Name:       fmt.Sprintf("%s_window_%d", baseName(path), len(chunks)+1),
			SourceCode: content,
			StartLine:  startLine,
			EndLine:    endLine,
		})
		buf.Reset()
	}

	for i, line := range lines {
		lineNo := i + 1
		if buf.Len() == 0 {
			startLine = lineNo
		}
		buf.WriteString(line)
		buf.WriteString("\n")

		if buf.Len() >= f.maxChunkSize {
			flush(lineNo)
		}
	}
	flush(len(lines))

	if len(chunks) == 0 {
		return nil, domain.NewDomainError(domain.ErrorChunking, "", path, "fixed-window chunking produced no chunks")
	}

	return chunks, nil
}

// TokenCount exposes the encoder for callers (e.g. the embedder) that need
// to estimate batch cost before calling out to a provider.
func (f *FallbackChunker) TokenCount(text string) int {
	return len(f.encoder.Encode(text, nil, nil))
}

func baseName(path string) string {
	idx := strings.LastIndexAny(path, "/\\")
	if idx == -1 {
		return path
	}
	return path[idx+1:]
}
