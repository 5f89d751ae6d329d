package cell

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func newTestCache() *ScoreCache {
	return NewScoreCache("binding", map[ScoreKey]float64{
		{Allele: "A0201", Peptide: "SIINFEKL"}: 0.9,
		{Allele: "A0201", Peptide: "GILGFVFTL"}: 0.4,
		{Allele: "B0702", Peptide: "SIINFEKL"}: 0.2,
	})
}

func TestScoreCacheLookup(t *testing.T) {
	cache := newTestCache()

	a0201 := &MHC{Name: "A0201"}
	b0702 := &MHC{Name: "B0702"}
	siin := &Peptide{Sequence: "SIINFEKL"}

	assert.Equal(t, 0.9, cache.Score(a0201, siin))
	assert.Equal(t, 0.2, cache.Score(b0702, siin))
	assert.Equal(t, 3, cache.Len())
}

func TestScoreCacheMissingPairScoresZero(t *testing.T) {
	cache := newTestCache()

	unknown := &Peptide{Sequence: "AAAAAAAAA"}
	a0201 := &MHC{Name: "A0201"}

	assert.False(t, cache.Has(a0201, unknown))
	assert.Equal(t, 0.0, cache.Score(a0201, unknown))
}

// repeated lookups after construction must return identical values
func TestScoreCacheIdempotentLookup(t *testing.T) {
	cache := newTestCache()

	first := cache.ScoreStrings("A0201", "GILGFVFTL")
	for i := 0; i < 100; i++ {
		assert.Equal(t, first, cache.ScoreStrings("A0201", "GILGFVFTL"))
	}
}

func TestScoreCacheMaxPeptideScore(t *testing.T) {
	cache := newTestCache()

	siin := &Peptide{Sequence: "SIINFEKL"}
	alleles := []*MHC{{Name: "A0201"}, {Name: "B0702"}}

	assert.Equal(t, 0.9, cache.MaxPeptideScore(siin, alleles))

	// a peptide with no scored allele maxes out at zero
	unknown := &Peptide{Sequence: "AAAAAAAAA"}
	assert.Equal(t, 0.0, cache.MaxPeptideScore(unknown, alleles))
}
