// Package tables loads the reference tables consumed by the simulation
// and writes the result tables it produces. Column names are configurable;
// they are resolved here, once, into typed records so the rest of the
// code never sees raw CSV.
package tables

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"go.uber.org/zap"

	"github.com/nec-research/neoagdt/config"
	"github.com/nec-research/neoagdt/internal/cell"
	"github.com/nec-research/neoagdt/logger"
)

// table is one parsed CSV file with a header index.
type table struct {
	path    string
	columns map[string]int
	rows    [][]string
}

func readTable(path string) (*table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open table: %w", err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("failed to parse %s: no header row", path)
	}

	columns := make(map[string]int, len(records[0]))
	for i, name := range records[0] {
		columns[name] = i
	}
	return &table{path: path, columns: columns, rows: records[1:]}, nil
}

// index resolves a configured column name, failing with the file path so
// mis-mapped configs are easy to spot.
func (t *table) index(column string) (int, error) {
	idx, ok := t.columns[column]
	if !ok {
		return 0, fmt.Errorf("missing column %q in %s", column, t.path)
	}
	return idx, nil
}

func (t *table) float(row []string, idx int) (float64, error) {
	v, err := strconv.ParseFloat(row[idx], 64)
	if err != nil {
		return 0, fmt.Errorf("bad value %q in %s: %w", row[idx], t.path, err)
	}
	return v, nil
}

// GeneMap resolves gene names to Gene records, substituting the
// configured defaults for genes absent from the expression table. It is
// only mutated while the reference tables load; afterwards it is shared
// read-only.
type GeneMap struct {
	genes       map[string]*cell.Gene
	defaultMean float64
	defaultVar  float64
}

// Get returns the gene, creating a default-valued record when the gene
// was not in the expression table. Missing genes are not an error.
func (m *GeneMap) Get(name string) *cell.Gene {
	if g, ok := m.genes[name]; ok {
		return g
	}

	logger.Warn("gene missing from expression table, using defaults",
		zap.String("gene", name),
		zap.Float64("mean", m.defaultMean),
		zap.Float64("var", m.defaultVar))

	g := &cell.Gene{Name: name, ExpressionMean: m.defaultMean, ExpressionVar: m.defaultVar}
	m.genes[name] = g
	return g
}

func (m *GeneMap) Len() int { return len(m.genes) }

// LoadGenes reads the gene expression table. Non-positive variances are
// replaced with the configured default so the gamma sampling stays
// defined.
func LoadGenes(path string, cols config.GeneColumns) (*GeneMap, error) {
	t, err := readTable(path)
	if err != nil {
		return nil, err
	}

	nameIdx, err := t.index(cols.Name)
	if err != nil {
		return nil, err
	}
	meanIdx, err := t.index(cols.ExpressionMean)
	if err != nil {
		return nil, err
	}
	varIdx, err := t.index(cols.ExpressionVar)
	if err != nil {
		return nil, err
	}

	genes := make(map[string]*cell.Gene, len(t.rows))
	for _, row := range t.rows {
		name := row[nameIdx]
		if _, ok := genes[name]; ok {
			continue // first entry per gene wins
		}

		mean, err := t.float(row, meanIdx)
		if err != nil {
			return nil, err
		}
		variance, err := t.float(row, varIdx)
		if err != nil {
			return nil, err
		}
		if variance <= 0 {
			variance = cols.DefaultVar
		}

		genes[name] = &cell.Gene{Name: name, ExpressionMean: mean, ExpressionVar: variance}
	}

	return &GeneMap{genes: genes, defaultMean: cols.DefaultMean, defaultVar: cols.DefaultVar}, nil
}

// LoadVariants reads the somatic variant table. Each variant takes its
// allele frequency from the configured VAF column when one is set and
// parseable, and from the four read-count columns otherwise. Variants
// with neither are excluded with a warning; they cannot be simulated.
func LoadVariants(path string, cols config.VariantColumns, genes *GeneMap) ([]*cell.SomaticVariant, error) {
	t, err := readTable(path)
	if err != nil {
		return nil, err
	}

	nameIdx, err := t.index(cols.Name)
	if err != nil {
		return nil, err
	}
	geneIdx, err := t.index(cols.Gene)
	if err != nil {
		return nil, err
	}

	vafIdx := -1
	if cols.VAF != "" {
		if vafIdx, err = t.index(cols.VAF); err != nil {
			return nil, err
		}
	}

	// the read-count columns are optional when a VAF column is mapped
	countIdx := [4]int{-1, -1, -1, -1}
	countCols := [4]string{cols.DNARef, cols.DNAAlt, cols.RNARef, cols.RNAAlt}
	haveCounts := true
	for i, col := range countCols {
		if idx, ok := t.columns[col]; ok {
			countIdx[i] = idx
		} else {
			haveCounts = false
		}
	}
	if vafIdx < 0 && !haveCounts {
		return nil, fmt.Errorf("%s maps neither a VAF column nor all four read-count columns", path)
	}

	var variants []*cell.SomaticVariant
	for _, row := range t.rows {
		v := &cell.SomaticVariant{
			Name: row[nameIdx],
			Gene: genes.Get(row[geneIdx]),
		}

		if vafIdx >= 0 {
			if vaf, err := strconv.ParseFloat(row[vafIdx], 64); err == nil {
				v.VAF = &vaf
			}
		}
		if v.VAF == nil && haveCounts {
			counts := [4]float64{}
			usable := true
			for i, idx := range countIdx {
				if counts[i], err = strconv.ParseFloat(row[idx], 64); err != nil {
					usable = false
					break
				}
			}
			if usable {
				v.DNARefCount, v.DNAAltCount = counts[0], counts[1]
				v.RNARefCount, v.RNAAltCount = counts[2], counts[3]
				v.HasReadCounts = true
			}
		}

		if !v.HasEvidence() {
			logger.Warn("variant has neither a VAF nor read counts, excluding it",
				zap.String("variant", v.Name))
			continue
		}
		variants = append(variants, v)
	}

	return variants, nil
}

// LoadPeptides reads the candidate peptide table and attaches each
// peptide to its variant. Peptides whose variant is not in the variant
// table are excluded with a warning.
func LoadPeptides(path string, cols config.PeptideColumns, variants []*cell.SomaticVariant) (map[string]*cell.Peptide, error) {
	t, err := readTable(path)
	if err != nil {
		return nil, err
	}

	seqIdx, err := t.index(cols.Sequence)
	if err != nil {
		return nil, err
	}
	varIdx, err := t.index(cols.Variant)
	if err != nil {
		return nil, err
	}

	variantMap := make(map[string]*cell.SomaticVariant, len(variants))
	for _, v := range variants {
		variantMap[v.Name] = v
	}

	peptides := make(map[string]*cell.Peptide, len(t.rows))
	for _, row := range t.rows {
		variant, ok := variantMap[row[varIdx]]
		if !ok {
			logger.Warn("peptide references an unknown variant, excluding it",
				zap.String("peptide", row[seqIdx]),
				zap.String("variant", row[varIdx]))
			continue
		}

		p := &cell.Peptide{Sequence: row[seqIdx], Variant: variant}
		variant.Peptides = append(variant.Peptides, p)
		peptides[p.Sequence] = p
	}

	return peptides, nil
}

// IntersectVariants keeps only the variants with at least one candidate
// peptide, mirroring the restriction to mutations present in both the
// variant and the peptide tables.
func IntersectVariants(variants []*cell.SomaticVariant) []*cell.SomaticVariant {
	var kept []*cell.SomaticVariant
	for _, v := range variants {
		if len(v.Peptides) == 0 {
			logger.Warn("variant has no candidate peptides, excluding it from simulation",
				zap.String("variant", v.Name))
			continue
		}
		kept = append(kept, v)
	}
	return kept
}

// LoadHLAs reads the patient's HLA genotype.
func LoadHLAs(path string, cols config.HLAColumns, genes *GeneMap) ([]*cell.MHC, error) {
	t, err := readTable(path)
	if err != nil {
		return nil, err
	}

	alleleIdx, err := t.index(cols.Allele)
	if err != nil {
		return nil, err
	}
	geneIdx, err := t.index(cols.Gene)
	if err != nil {
		return nil, err
	}

	alleles := make([]*cell.MHC, 0, len(t.rows))
	for _, row := range t.rows {
		alleles = append(alleles, &cell.MHC{
			Name: row[alleleIdx],
			Gene: genes.Get(row[geneIdx]),
		})
	}
	return alleles, nil
}

// LoadScores reads one (allele, peptide) score table into score-cache
// entries.
func LoadScores(path string, cols config.ScoreColumns) (map[cell.ScoreKey]float64, error) {
	t, err := readTable(path)
	if err != nil {
		return nil, err
	}

	alleleIdx, err := t.index(cols.Allele)
	if err != nil {
		return nil, err
	}
	peptideIdx, err := t.index(cols.Peptide)
	if err != nil {
		return nil, err
	}
	scoreIdx, err := t.index(cols.Score)
	if err != nil {
		return nil, err
	}

	scores := make(map[cell.ScoreKey]float64, len(t.rows))
	for _, row := range t.rows {
		score, err := t.float(row, scoreIdx)
		if err != nil {
			return nil, err
		}
		scores[cell.ScoreKey{Allele: row[alleleIdx], Peptide: row[peptideIdx]}] = score
	}
	return scores, nil
}

// LoadColumnMap reads a two-column mapping (e.g. peptide to
// distance-from-self score, or element to weight) from a CSV file.
func LoadColumnMap(path, keyColumn, valueColumn string) (map[string]float64, error) {
	t, err := readTable(path)
	if err != nil {
		return nil, err
	}

	keyIdx, err := t.index(keyColumn)
	if err != nil {
		return nil, err
	}
	valueIdx, err := t.index(valueColumn)
	if err != nil {
		return nil, err
	}

	m := make(map[string]float64, len(t.rows))
	for _, row := range t.rows {
		v, err := t.float(row, valueIdx)
		if err != nil {
			return nil, err
		}
		m[row[keyIdx]] = v
	}
	return m, nil
}

// LoadPairs returns the distinct (key, value) pairs of two columns, in
// file order.
func LoadPairs(path, keyColumn, valueColumn string) ([][2]string, error) {
	t, err := readTable(path)
	if err != nil {
		return nil, err
	}

	keyIdx, err := t.index(keyColumn)
	if err != nil {
		return nil, err
	}
	valueIdx, err := t.index(valueColumn)
	if err != nil {
		return nil, err
	}

	seen := make(map[[2]string]bool, len(t.rows))
	var pairs [][2]string
	for _, row := range t.rows {
		pair := [2]string{row[keyIdx], row[valueIdx]}
		if seen[pair] {
			continue
		}
		seen[pair] = true
		pairs = append(pairs, pair)
	}
	return pairs, nil
}

// LoadElements returns the distinct values of one column, in file order.
// It defines the vaccine element universe for an optimization.
func LoadElements(path, column string) ([]string, error) {
	t, err := readTable(path)
	if err != nil {
		return nil, err
	}

	idx, err := t.index(column)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(t.rows))
	var elements []string
	for _, row := range t.rows {
		if seen[row[idx]] {
			continue
		}
		seen[row[idx]] = true
		elements = append(elements, row[idx])
	}
	return elements, nil
}
