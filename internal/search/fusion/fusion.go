// Package fusion implements C11: Reciprocal Rank Fusion across any number of
// ranked lists. Grounded on
// _examples/Aman-CERP-amanmcp/internal/search/fusion.go, adapted to spec.md
// §4.10's exact formula: documents absent from a list simply do not receive
// that list's contribution (no missing-rank penalty), and scores are never
// normalized (RRF is scale-invariant by construction).
package fusion

import (
	"sort"

	"github.com/google/uuid"
)

// DefaultK is the standard RRF smoothing constant.
const DefaultK = 60

// RankedList is one ranked input to Fuse: IDs in rank order, rank 1 first.
type RankedList struct {
	Name   string
	IDs    []uuid.UUID
	Weight float64 // defaults to 1.0 for the unweighted flavor
}

// Result is one document's fused score.
type Result struct {
	ID      uuid.UUID
	Score   float64
	InLists []string // which input lists contributed, for S5-style assertions
}

// Fusion combines ranked lists using RRF_score(d) = sum(w_i / (k + rank_i(d))).
type Fusion struct {
	K int
}

// New creates a Fusion with the default k=60.
func New() *Fusion { return &Fusion{K: DefaultK} }

// NewWithK creates a Fusion with a custom k; k<=0 resets to DefaultK.
func NewWithK(k int) *Fusion {
	if k <= 0 {
		k = DefaultK
	}
	return &Fusion{K: k}
}

// Fuse implements invariant 6 from spec §8: score(d) = sum_i w_i/(k+rank_i(d))
// over only the lists d appears in; documents absent from all lists never
// appear in the output (rank "last" is achieved by sorting, not by a
// synthetic score).
//
// Unweighted fusion is Fuse with every list's Weight left at its zero value
// (treated as 1.0); weighted fusion sets Weight explicitly.
func (f *Fusion) Fuse(lists []RankedList) []Result {
	scores := make(map[uuid.UUID]*Result)

	for _, list := range lists {
		weight := list.Weight
		if weight == 0 {
			weight = 1.0
		}
		for rank, id := range list.IDs {
			r, ok := scores[id]
			if !ok {
				r = &Result{ID: id}
				scores[id] = r
			}
			r.Score += weight / float64(f.K+rank+1)
			r.InLists = append(r.InLists, list.Name)
		}
	}

	results := make([]Result, 0, len(scores))
	for _, r := range scores {
		results = append(results, *r)
	}

	sort.Slice(results, func(i, j int) bool {
		return compare(results[i], results[j])
	})

	return results
}

// compare ranks a before b: higher score first, then appearing in more
// lists, then lexicographically smaller ID for determinism (spec §8
// invariant 5 requires deterministic graph resolution; the same discipline
// is applied to fusion ties).
func compare(a, b Result) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	if len(a.InLists) != len(b.InLists) {
		return len(a.InLists) > len(b.InLists)
	}
	return a.ID.String() < b.ID.String()
}
