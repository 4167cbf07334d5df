// Package embed implements C5: dual TEXT/CODE embedding generation.
// Grounded on _examples/jinford-dev-rag/internal/infra/openai/embedder.go's
// openai-go client usage, extended with the E5-style "query:"/"passage:"
// prefixing spec §4.3 requires and per-call timeouts via
// internal/resilience.
package embed

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/mnemolite/mnemolite/internal/domain"
	"github.com/mnemolite/mnemolite/internal/platform/logger"
	"github.com/mnemolite/mnemolite/internal/resilience"
)

// maxBatchSize mirrors the teacher's OpenAI batch ceiling.
const maxBatchSize = 100

// Kind selects which of a chunk's two embeddings is being generated — the
// CODE vector is built from raw source, the TEXT vector from a natural
// language rendering (docstring + signature) per spec §4.3.
type Kind string

const (
	KindText Kind = "text"
	KindCode Kind = "code"
)

// E5-style asymmetric prefixes: queries and passages get different
// instruction prefixes so retrieval quality doesn't degrade under plain
// cosine similarity. Applied only to the TEXT channel.
const (
	queryPrefix   = "query: "
	passagePrefix = "passage: "
)

// TokenCounter estimates a text's token count for batch-cost logging;
// satisfied by *chunk.FallbackChunker without embed importing chunk for
// anything but this one method.
type TokenCounter interface {
	TokenCount(text string) int
}

// Embedder generates TEXT and CODE embeddings through an OpenAI-compatible
// API, enforcing domain.EmbeddingDimension and applying resilience timeouts
// per call.
type Embedder struct {
	client        openai.Client
	model         string
	dimension     int
	singleTimeout time.Duration
	batchTimeout  time.Duration
	tokenizer     TokenCounter // optional; nil disables batch-cost logging
	logger        *slog.Logger
}

// Config configures embedding generation.
type Config struct {
	APIKey         string
	Model          string
	Dimension      int
	SingleTimeoutS int
	BatchTimeoutS  int
	Tokenizer      TokenCounter // optional, shared with the indexing chunker
	Logger         *slog.Logger
}

// New builds an Embedder wired to OpenAI's embeddings endpoint.
func New(cfg Config) (*Embedder, error) {
	if cfg.Dimension != domain.EmbeddingDimension {
		return nil, fmt.Errorf("embedding dimension %d does not match domain.EmbeddingDimension %d", cfg.Dimension, domain.EmbeddingDimension)
	}
	single := cfg.SingleTimeoutS
	if single <= 0 {
		single = 30
	}
	batch := cfg.BatchTimeoutS
	if batch <= 0 {
		batch = 60
	}

	return &Embedder{
		client:        openai.NewClient(option.WithAPIKey(cfg.APIKey)),
		model:         cfg.Model,
		dimension:     cfg.Dimension,
		singleTimeout: time.Duration(single) * time.Second,
		batchTimeout:  time.Duration(batch) * time.Second,
		tokenizer:     cfg.Tokenizer,
		logger:        logger.Component(cfg.Logger, "embed"),
	}, nil
}

// EmbedQuery generates a single query-prefixed embedding, for search-time use.
func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return e.embedOne(ctx, queryPrefix+text, e.singleTimeout)
}

// EmbedPassage generates a single passage-prefixed embedding, for
// index-time TEXT vectors.
func (e *Embedder) EmbedPassage(ctx context.Context, text string) ([]float32, error) {
	return e.embedOne(ctx, passagePrefix+text, e.singleTimeout)
}

// EmbedCode generates a CODE vector. Code embeddings are not E5-prefixed:
// spec §4.3 reserves the query/passage asymmetry for the TEXT channel.
func (e *Embedder) EmbedCode(ctx context.Context, source string) ([]float32, error) {
	return e.embedOne(ctx, source, e.singleTimeout)
}

func (e *Embedder) embedOne(ctx context.Context, text string, timeout time.Duration) ([]float32, error) {
	var result []float32
	err := resilience.WithTimeout(ctx, "embed.single", timeout, nil, func(ctx context.Context) error {
		batches, err := e.batchEmbed(ctx, []string{text})
		if err != nil {
			return err
		}
		if len(batches) == 0 {
			return fmt.Errorf("no embeddings generated")
		}
		result = batches[0]
		return nil
	})
	return result, err
}

// BatchEmbedPassages embeds up to maxBatchSize passage-prefixed texts in one
// API call, for bulk indexing.
func (e *Embedder) BatchEmbedPassages(ctx context.Context, texts []string) ([][]float32, error) {
	prefixed := make([]string, len(texts))
	for i, t := range texts {
		prefixed[i] = passagePrefix + t
	}
	return e.batchWithTimeout(ctx, prefixed)
}

// BatchEmbedCode embeds up to maxBatchSize raw code texts in one API call.
func (e *Embedder) BatchEmbedCode(ctx context.Context, texts []string) ([][]float32, error) {
	return e.batchWithTimeout(ctx, texts)
}

func (e *Embedder) batchWithTimeout(ctx context.Context, texts []string) ([][]float32, error) {
	var result [][]float32
	err := resilience.WithTimeout(ctx, "embed.batch", e.batchTimeout, map[string]any{"count": len(texts)}, func(ctx context.Context) error {
		r, err := e.batchEmbed(ctx, texts)
		result = r
		return err
	})
	return result, err
}

func (e *Embedder) batchEmbed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("no texts provided")
	}
	if len(texts) > maxBatchSize {
		return nil, fmt.Errorf("batch size %d exceeds maximum of %d", len(texts), maxBatchSize)
	}

	e.logBatchCost(texts)

	params := openai.EmbeddingNewParams{
		Model: openai.EmbeddingModel(e.model),
	}
	if len(texts) == 1 {
		params.Input = openai.EmbeddingNewParamsInputUnion{OfString: openai.String(texts[0])}
	} else {
		params.Input = openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts}
	}
	params.Dimensions = openai.Int(int64(e.dimension))

	resp, err := e.client.Embeddings.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("generate embeddings: %w", err)
	}

	embeddings := make([][]float32, len(resp.Data))
	for i, data := range resp.Data {
		vec := make([]float32, len(data.Embedding))
		for j, v := range data.Embedding {
			vec[j] = float32(v)
		}
		embeddings[i] = vec
	}
	return embeddings, nil
}

// logBatchCost estimates the outgoing call's total token count so
// provider-cost spikes show up in logs before the call is made, not after.
// A no-op when no tokenizer was configured.
func (e *Embedder) logBatchCost(texts []string) {
	if e.tokenizer == nil {
		return
	}
	total := 0
	for _, t := range texts {
		total += e.tokenizer.TokenCount(t)
	}
	e.logger.Debug("embedding batch token estimate", slog.Int("texts", len(texts)), slog.Int("estimated_tokens", total))
}

// Dimension returns the configured vector width.
func (e *Embedder) Dimension() int { return e.dimension }

// MaxBatchSize returns the provider's per-call batch ceiling.
func (e *Embedder) MaxBatchSize() int { return maxBatchSize }
