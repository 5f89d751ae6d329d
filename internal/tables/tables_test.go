package tables

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nec-research/neoagdt/config"
	"github.com/nec-research/neoagdt/internal/cell"
)

func writeCSVFixture(t *testing.T, name, contents string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(contents), 0644))
	return path
}

func geneColumns() config.GeneColumns {
	return config.GeneColumns{
		Name:           "gene_id",
		ExpressionMean: "expression_mean",
		ExpressionVar:  "expression_var",
		DefaultMean:    0,
		DefaultVar:     1,
	}
}

func TestLoadGenes(t *testing.T) {
	path := writeCSVFixture(t, "genes.csv", `gene_id,expression_mean,expression_var
GENE1,30.5,4.2
GENE2,12,0
GENE1,999,999
`)

	genes, err := LoadGenes(path, geneColumns())
	require.NoError(t, err)
	assert.Equal(t, 2, genes.Len())

	g1 := genes.Get("GENE1")
	assert.Equal(t, 30.5, g1.ExpressionMean)
	assert.Equal(t, 4.2, g1.ExpressionVar)

	// non-positive variance falls back to the configured default
	assert.Equal(t, 1.0, genes.Get("GENE2").ExpressionVar)
}

func TestGeneMapDefaultsUnknownGenes(t *testing.T) {
	path := writeCSVFixture(t, "genes.csv", `gene_id,expression_mean,expression_var
GENE1,30,4
`)

	genes, err := LoadGenes(path, geneColumns())
	require.NoError(t, err)

	g := genes.Get("NOVEL")
	assert.Equal(t, 0.0, g.ExpressionMean)
	assert.Equal(t, 1.0, g.ExpressionVar)

	// the default record is memoized
	assert.Same(t, g, genes.Get("NOVEL"))
}

func TestLoadGenesMissingColumn(t *testing.T) {
	path := writeCSVFixture(t, "genes.csv", `gene_id,tpm
GENE1,30
`)

	_, err := LoadGenes(path, geneColumns())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expression_mean")
}

func variantColumns() config.VariantColumns {
	return config.VariantColumns{
		Name:   "mutation_id",
		Gene:   "gene_id",
		DNARef: "dna_ref_depth",
		DNAAlt: "dna_alt_depth",
		RNARef: "rna_ref_depth",
		RNAAlt: "rna_alt_depth",
	}
}

func testGeneMap(t *testing.T) *GeneMap {
	t.Helper()

	path := writeCSVFixture(t, "genes.csv", `gene_id,expression_mean,expression_var
GENE1,30,4
GENE2,20,4
`)
	genes, err := LoadGenes(path, geneColumns())
	require.NoError(t, err)
	return genes
}

func TestLoadVariantsFromReadCounts(t *testing.T) {
	genes := testGeneMap(t)
	path := writeCSVFixture(t, "variants.csv", `mutation_id,gene_id,dna_ref_depth,dna_alt_depth,rna_ref_depth,rna_alt_depth
mut1,GENE1,30,10,20,60
mut2,GENE2,n/a,n/a,n/a,n/a
`)

	variants, err := LoadVariants(path, variantColumns(), genes)
	require.NoError(t, err)

	// mut2 has no usable evidence and is dropped
	require.Len(t, variants, 1)
	assert.Equal(t, "mut1", variants[0].Name)
	assert.InDelta(t, 0.25, variants[0].DNAVAF(), 1e-12)
	assert.InDelta(t, 0.75, variants[0].RNAVAF(), 1e-12)
}

func TestLoadVariantsVAFOverridesCounts(t *testing.T) {
	genes := testGeneMap(t)
	cols := variantColumns()
	cols.VAF = "vaf"

	path := writeCSVFixture(t, "variants.csv", `mutation_id,gene_id,vaf,dna_ref_depth,dna_alt_depth,rna_ref_depth,rna_alt_depth
mut1,GENE1,0.4,30,10,20,60
mut2,GENE2,,30,10,20,60
`)

	variants, err := LoadVariants(path, cols, genes)
	require.NoError(t, err)
	require.Len(t, variants, 2)

	// a parseable VAF wins over the read counts
	assert.InDelta(t, 0.4, variants[0].DNAVAF(), 1e-12)
	assert.InDelta(t, 0.4, variants[0].RNAVAF(), 1e-12)

	// an empty VAF cell falls back to the read counts
	assert.InDelta(t, 0.25, variants[1].DNAVAF(), 1e-12)
}

func TestLoadVariantsNoEvidenceColumns(t *testing.T) {
	genes := testGeneMap(t)
	path := writeCSVFixture(t, "variants.csv", `mutation_id,gene_id
mut1,GENE1
`)

	_, err := LoadVariants(path, variantColumns(), genes)
	assert.Error(t, err)
}

func TestLoadPeptidesAttachesToVariants(t *testing.T) {
	genes := testGeneMap(t)
	v1 := &cell.SomaticVariant{Name: "mut1", Gene: genes.Get("GENE1"), HasReadCounts: true}
	v2 := &cell.SomaticVariant{Name: "mut2", Gene: genes.Get("GENE2"), HasReadCounts: true}

	path := writeCSVFixture(t, "peptides.csv", `peptide,mutation_id
SIINFEKL,mut1
GILGFVFTL,mut1
AAAWYLWEV,unknown
`)

	peptides, err := LoadPeptides(path, config.PeptideColumns{Sequence: "peptide", Variant: "mutation_id"}, []*cell.SomaticVariant{v1, v2})
	require.NoError(t, err)

	assert.Len(t, peptides, 2)
	assert.Len(t, v1.Peptides, 2)
	assert.Empty(t, v2.Peptides)

	kept := IntersectVariants([]*cell.SomaticVariant{v1, v2})
	require.Len(t, kept, 1)
	assert.Equal(t, "mut1", kept[0].Name)
}

func TestLoadScores(t *testing.T) {
	path := writeCSVFixture(t, "binding.csv", `allele,peptide,score
A0201,SIINFEKL,0.9
B0702,SIINFEKL,0.3
`)

	scores, err := LoadScores(path, config.ScoreColumns{Allele: "allele", Peptide: "peptide", Score: "score"})
	require.NoError(t, err)

	assert.Len(t, scores, 2)
	assert.Equal(t, 0.9, scores[cell.ScoreKey{Allele: "A0201", Peptide: "SIINFEKL"}])
}

func TestLoadColumnMap(t *testing.T) {
	path := writeCSVFixture(t, "distance.csv", `peptide,distance
SIINFEKL,0.8
GILGFVFTL,0.2
`)

	m, err := LoadColumnMap(path, "peptide", "distance")
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"SIINFEKL": 0.8, "GILGFVFTL": 0.2}, m)
}

func TestLoadElementsDeduplicatesInFileOrder(t *testing.T) {
	path := writeCSVFixture(t, "peptides.csv", `peptide,mutation_id
SIINFEKL,mut1
GILGFVFTL,mut2
SIINFEKL,mut1
`)

	elements, err := LoadElements(path, "peptide")
	require.NoError(t, err)
	assert.Equal(t, []string{"SIINFEKL", "GILGFVFTL"}, elements)
}

func TestLoadPairsDeduplicates(t *testing.T) {
	path := writeCSVFixture(t, "peptides.csv", `peptide,mutation_id
SIINFEKL,mut1
GILGFVFTL,mut1
SIINFEKL,mut1
`)

	pairs, err := LoadPairs(path, "mutation_id", "peptide")
	require.NoError(t, err)
	assert.Equal(t, [][2]string{{"mut1", "SIINFEKL"}, {"mut1", "GILGFVFTL"}}, pairs)
}

func TestCellRowsRoundTrip(t *testing.T) {
	rows := []CellRow{
		{
			SimulationName:    "base",
			Repetition:        0,
			CellID:            3,
			Peptide:           "SIINFEKL",
			Allele:            "A0201",
			Mutation:          "mut1",
			BindingScore:      0.9,
			CleavageScore:     0.45,
			PresentationScore: 0.125,
		},
		{
			SimulationName: "base",
			Repetition:     1,
			CellID:         0,
			Peptide:        "GILGFVFTL",
			Allele:         "B0702",
			Mutation:       "mut2",
			BindingScore:   0.3,
		},
	}

	path := filepath.Join(t.TempDir(), "out", "cells.csv")
	require.NoError(t, WriteCellRows(path, rows))

	loaded, err := LoadCellRows(path)
	require.NoError(t, err)
	assert.Equal(t, rows, loaded)
}

func TestLoadCellRowsRejectsMalformedIDs(t *testing.T) {
	path := writeCSVFixture(t, "cells.csv", `simulation_name,repetition,cell_id,peptide,allele,mutation,binding_score,cleavage_score,presentation_score
base,zero,0,SIINFEKL,A0201,mut1,0.9,0.4,0.1
`)

	_, err := LoadCellRows(path)
	assert.Error(t, err)
}
