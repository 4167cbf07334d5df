// Package rerank implements C12: lazy-loaded cross-encoder reranking of the
// top-N fused results. Grounded on
// _examples/Aman-CERP-amanmcp/internal/search/reranker.go's interface +
// NoOp-fallback pattern.
package rerank

import (
	"context"

	"github.com/google/uuid"
)

// Candidate is one fused result awaiting (optional) reranking.
type Candidate struct {
	ID      uuid.UUID
	Content string // query/document pairing text, e.g. source_code or name_path
	Score   float64 // original RRF score, preserved untouched
}

// Result adds RerankScore without mutating the original similarity score,
// per spec §4.11: "Does not mutate original similarity scores; adds a
// rerank_score field".
type Result struct {
	Candidate
	RerankScore float64
}

// Reranker scores (query, document) pairs jointly to produce a finer
// ranking than RRF alone.
type Reranker interface {
	Rerank(ctx context.Context, query string, candidates []Candidate) ([]Result, error)
	Available() bool
	Close() error
}

// NoOpReranker is used when RerankConfig.Model is empty (reranking
// disabled, per spec §6: "empty => reranking disabled"). It preserves
// input order and copies each candidate's original score into RerankScore,
// so callers can sort
// uniformly whether or not reranking is enabled.
type NoOpReranker struct{}

var _ Reranker = (*NoOpReranker)(nil)

func NewNoOp() *NoOpReranker { return &NoOpReranker{} }

func (n *NoOpReranker) Rerank(_ context.Context, _ string, candidates []Candidate) ([]Result, error) {
	results := make([]Result, len(candidates))
	for i, c := range candidates {
		results[i] = Result{Candidate: c, RerankScore: c.Score}
	}
	return results, nil
}

func (n *NoOpReranker) Available() bool { return true }
func (n *NoOpReranker) Close() error    { return nil }
