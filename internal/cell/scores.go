package cell

// ScoreKey identifies one (HLA allele, peptide sequence) pair in a ScoreCache.
type ScoreKey struct {
	Allele  string
	Peptide string
}

// ScoreCache memoizes precomputed per-(allele, peptide) scores: binding,
// cleavage or presentation likelihoods. It is built once from a score
// table and never mutated afterwards, so it is shared read-only across
// all simulation workers. Pairs missing from the table score 0, which the
// samplers treat as "never binds" rather than as an error.
type ScoreCache struct {
	name   string
	scores map[ScoreKey]float64
}

// NewScoreCache builds a cache from resolved score-table entries.
func NewScoreCache(name string, scores map[ScoreKey]float64) *ScoreCache {
	return &ScoreCache{name: name, scores: scores}
}

func (c *ScoreCache) Name() string { return c.name }

func (c *ScoreCache) Len() int { return len(c.scores) }

// Score returns the cached score for the (allele, peptide) pair, or 0 when
// the pair is not in the table.
func (c *ScoreCache) Score(allele *MHC, peptide *Peptide) float64 {
	return c.scores[ScoreKey{allele.Name, peptide.Sequence}]
}

// ScoreStrings is Score keyed by the raw allele name and peptide sequence.
func (c *ScoreCache) ScoreStrings(allele, peptide string) float64 {
	return c.scores[ScoreKey{allele, peptide}]
}

// Has reports whether the (allele, peptide) pair is present in the table.
func (c *ScoreCache) Has(allele *MHC, peptide *Peptide) bool {
	_, ok := c.scores[ScoreKey{allele.Name, peptide.Sequence}]
	return ok
}

// MaxPeptideScore returns the maximum score for peptide across alleles.
func (c *ScoreCache) MaxPeptideScore(peptide *Peptide, alleles []*MHC) float64 {
	max := 0.0
	for _, allele := range alleles {
		if s := c.Score(allele, peptide); s > max {
			max = s
		}
	}
	return max
}
