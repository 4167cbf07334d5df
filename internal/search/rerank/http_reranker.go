package rerank

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/mnemolite/mnemolite/internal/platform/logger"
)

// HTTPReranker calls an external cross-encoder sequence-classification
// server (model loading itself is out of scope per spec §1's "HTTP/RPC
// transport layer... out of scope"; this is the client side only). No
// reranking-client library exists anywhere in the example pack, so this is
// a deliberate, documented stdlib net/http exception — see DESIGN.md.
type HTTPReranker struct {
	endpoint string
	model    string
	client   *http.Client
	logger   *slog.Logger
}

// NewHTTPReranker returns nil when model is empty, implementing spec §6's
// "empty ⇒ reranking disabled" directly at construction time.
func NewHTTPReranker(endpoint, model string, log *slog.Logger) *HTTPReranker {
	if model == "" {
		return nil
	}
	return &HTTPReranker{
		endpoint: endpoint,
		model:    model,
		client:   &http.Client{Timeout: 10 * time.Second},
		logger:   logger.Component(log, "rerank.http"),
	}
}

var _ Reranker = (*HTTPReranker)(nil)

type rerankRequest struct {
	Model string   `json:"model"`
	Query string   `json:"query"`
	Docs  []string `json:"documents"`
}

type rerankResponse struct {
	Scores []float64 `json:"scores"`
}

// Rerank scores every (query, document) pair with one batched call; overhead
// target is ~10ms per pair per spec §4.11, achieved by batching rather than
// per-pair requests.
func (h *HTTPReranker) Rerank(ctx context.Context, query string, candidates []Candidate) ([]Result, error) {
	if len(candidates) == 0 {
		return nil, nil
	}

	docs := make([]string, len(candidates))
	for i, c := range candidates {
		docs[i] = c.Content
	}

	body, err := json.Marshal(rerankRequest{Model: h.model, Query: query, Docs: docs})
	if err != nil {
		return nil, fmt.Errorf("marshal rerank request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build rerank request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call rerank endpoint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("rerank endpoint returned status %d", resp.StatusCode)
	}

	var decoded rerankResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode rerank response: %w", err)
	}
	if len(decoded.Scores) != len(candidates) {
		return nil, fmt.Errorf("rerank response had %d scores for %d candidates", len(decoded.Scores), len(candidates))
	}

	results := make([]Result, len(candidates))
	for i, c := range candidates {
		results[i] = Result{Candidate: c, RerankScore: decoded.Scores[i]}
	}
	h.logger.Debug("reranked batch", slog.Int("candidates", len(candidates)))
	return results, nil
}

func (h *HTTPReranker) Available() bool { return h != nil }
func (h *HTTPReranker) Close() error    { return nil }
