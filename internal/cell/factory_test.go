package cell

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// a two-variant, two-allele fixture with every pair scored
func newTestFactory() (*CellFactory, []*SomaticVariant, []*MHC) {
	hlaGene := &Gene{Name: "HLA-A", ExpressionMean: 50, ExpressionVar: 10}
	alleles := []*MHC{
		{Name: "A0201", Gene: hlaGene},
		{Name: "B0702", Gene: &Gene{Name: "HLA-B", ExpressionMean: 40, ExpressionVar: 10}},
	}

	gene1 := &Gene{Name: "GENE1", ExpressionMean: 30, ExpressionVar: 5}
	gene2 := &Gene{Name: "GENE2", ExpressionMean: 20, ExpressionVar: 5}

	v1 := &SomaticVariant{Name: "mut1", Gene: gene1, VAF: floatPtr(0.8)}
	v2 := &SomaticVariant{Name: "mut2", Gene: gene2, VAF: floatPtr(0.5)}

	p1 := &Peptide{Sequence: "SIINFEKL", Variant: v1}
	p2 := &Peptide{Sequence: "GILGFVFTL", Variant: v2}
	v1.Peptides = []*Peptide{p1}
	v2.Peptides = []*Peptide{p2}

	scores := map[ScoreKey]float64{
		{"A0201", "SIINFEKL"}:  0.9,
		{"B0702", "SIINFEKL"}:  0.3,
		{"A0201", "GILGFVFTL"}: 0.5,
		{"B0702", "GILGFVFTL"}: 0.6,
	}

	binding := NewScoreCache("binding", scores)
	cleavage := NewScoreCache("cleavage", scores)
	presentation := NewScoreCache("presentation", scores)

	factory := NewCellFactory(
		NewGeneticSimulator(1),
		NewProteinCleaver(cleavage),
		NewBindingSimulator(binding),
		cleavage,
		presentation,
		1,
	)

	variants := []*SomaticVariant{v1, v2}
	return factory, variants, alleles
}

func TestCreateCellSelectedMatchesProteinCounts(t *testing.T) {
	factory, variants, alleles := newTestFactory()
	s := NewSampler(42, 0)

	c := factory.CreateCell(s, variants, alleles, "cell-0")
	require.NotNil(t, c)

	expected := 0
	for _, r := range c.Genetics {
		expected += r.ProteinCount
	}
	assert.Equal(t, expected, len(c.Selected))
}

func TestCreateCellPresentedIsSubsetOfBound(t *testing.T) {
	factory, variants, alleles := newTestFactory()
	s := NewSampler(42, 1)

	c := factory.CreateCell(s, variants, alleles, "cell-0")

	bound := map[*PMHC]bool{}
	for _, pmhc := range c.Bound {
		bound[pmhc] = true
	}
	for _, pmhc := range c.Presented {
		assert.True(t, bound[pmhc])
		assert.Greater(t, pmhc.PresentationScore, 0.0)
	}

	totalHLA := 0
	for _, hc := range c.HLACounts {
		totalHLA += hc.Count
	}
	assert.LessOrEqual(t, len(c.Bound), totalHLA)
}

// a variant with VAF = 0 must never contribute a presented peptide,
// across any number of trials
func TestCreateCellZeroVAFNeverPresented(t *testing.T) {
	factory, variants, alleles := newTestFactory()
	variants[0].VAF = floatPtr(0)

	for i := 0; i < 500; i++ {
		c := factory.CreateCell(NewSampler(42, uint64(i)), variants, alleles, "cell")
		for _, pmhc := range c.Presented {
			assert.NotEqual(t, "SIINFEKL", pmhc.Peptide.Sequence)
		}
	}
}

// missing score-table entries mean "never binds", not an error
func TestCreateCellUnscoredPeptidesContributeNothing(t *testing.T) {
	hlaGene := &Gene{Name: "HLA-A", ExpressionMean: 50, ExpressionVar: 10}
	alleles := []*MHC{{Name: "A0201", Gene: hlaGene}}

	v := &SomaticVariant{
		Name: "mut1",
		Gene: &Gene{Name: "GENE1", ExpressionMean: 30, ExpressionVar: 5},
		VAF:  floatPtr(1),
	}
	v.Peptides = []*Peptide{{Sequence: "UNSCORED", Variant: v}}

	empty := NewScoreCache("empty", map[ScoreKey]float64{})
	factory := NewCellFactory(
		NewGeneticSimulator(1),
		NewProteinCleaver(empty),
		NewBindingSimulator(empty),
		empty,
		empty,
		1,
	)

	for i := 0; i < 100; i++ {
		c := factory.CreateCell(NewSampler(7, uint64(i)), []*SomaticVariant{v}, alleles, "cell")
		assert.Empty(t, c.Selected)
		assert.Empty(t, c.Presented)
	}
}
