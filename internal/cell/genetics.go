package cell

// GeneticSimulationResult is the outcome of simulating one variant in one
// cell: whether the mutation is present in this cell's DNA and how many
// mutant protein molecules it yields.
type GeneticSimulationResult struct {
	InDNA        bool
	ProteinCount int
}

// GeneticSimulator samples the genetic processes for somatic variants.
type GeneticSimulator struct {
	expressionPseudocount float64
}

// NewGeneticSimulator creates a simulator. The pseudocount is added to
// every expression mean before sampling; it keeps the gamma parameters
// away from zero for genes with no measured expression.
func NewGeneticSimulator(expressionPseudocount float64) *GeneticSimulator {
	return &GeneticSimulator{expressionPseudocount: expressionPseudocount}
}

// Simulate runs the genetic simulation for one variant. A Bernoulli trial
// on the DNA allele frequency decides whether the mutation is in this
// cell's DNA. If it is, the mutant protein count is a gamma-Poisson draw
// from the gene's expression statistics, thinned by the RNA allele
// frequency since not all transcripts carry the mutation.
func (g *GeneticSimulator) Simulate(s *Sampler, v *SomaticVariant) GeneticSimulationResult {
	if !s.Bernoulli(v.DNAVAF()) {
		return GeneticSimulationResult{}
	}

	mean := v.Gene.ExpressionMean + g.expressionPseudocount
	count := s.GammaPoisson(mean, v.Gene.ExpressionVar)
	count = int(float64(count) * v.RNAVAF())

	return GeneticSimulationResult{InDNA: true, ProteinCount: count}
}

// SimulateAll runs the genetic simulation for every variant of one cell.
func (g *GeneticSimulator) SimulateAll(s *Sampler, variants []*SomaticVariant) map[*SomaticVariant]GeneticSimulationResult {
	results := make(map[*SomaticVariant]GeneticSimulationResult, len(variants))
	for _, v := range variants {
		results[v] = g.Simulate(s, v)
	}
	return results
}
