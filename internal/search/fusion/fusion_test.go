package fusion

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFuse_DocInBothListsRanksAboveSingleton(t *testing.T) {
	docA := uuid.New() // ranks first lexically, absent from the vector list
	docB := uuid.New() // ranks first semantically, absent from the lexical list
	both := uuid.New() // ranks second in both

	lexical := RankedList{Name: "lexical", IDs: []uuid.UUID{docA, both}}
	vector := RankedList{Name: "vector", IDs: []uuid.UUID{docB, both}}

	f := New()
	results := f.Fuse([]RankedList{lexical, vector})

	require.Len(t, results, 3)
	assert.Equal(t, both, results[0].ID, "doc present in both lists must rank first")
}

func TestFuse_ScoreFormulaMatchesInvariant6(t *testing.T) {
	id := uuid.New()
	f := NewWithK(60)
	results := f.Fuse([]RankedList{
		{Name: "a", IDs: []uuid.UUID{id}, Weight: 1.0},
		{Name: "b", IDs: []uuid.UUID{id}, Weight: 2.0},
	})

	require.Len(t, results, 1)
	expected := 1.0/61.0 + 2.0/61.0
	assert.InDelta(t, expected, results[0].Score, 1e-9)
}

func TestFuse_AbsentDocumentsNeverAppear(t *testing.T) {
	present := uuid.New()
	f := New()
	results := f.Fuse([]RankedList{{Name: "a", IDs: []uuid.UUID{present}}})

	require.Len(t, results, 1)
	assert.Equal(t, present, results[0].ID)
}

func TestFuse_EmptyInputReturnsEmptySlice(t *testing.T) {
	f := New()
	results := f.Fuse(nil)
	assert.Empty(t, results)
	assert.NotNil(t, results)
}

func TestFuse_DeterministicTieBreakByID(t *testing.T) {
	a, b := uuid.MustParse("00000000-0000-0000-0000-000000000001"), uuid.MustParse("00000000-0000-0000-0000-000000000002")
	f := New()
	results := f.Fuse([]RankedList{{Name: "x", IDs: []uuid.UUID{b, a}}, {Name: "y", IDs: []uuid.UUID{a, b}}})
	// Both docs: rank1+rank2 contributions are symmetric, so score ties; ID asc wins.
	require.Len(t, results, 2)
	assert.Equal(t, a, results[0].ID)
}
