package cell

// CellFactory runs the full per-cell pipeline: variant expression, protein
// cleavage, MHC binding competition and surface presentation. The factory
// holds only read-only references; all randomness comes from the Sampler
// passed to CreateCell, so one factory serves any number of workers.
type CellFactory struct {
	genetics *GeneticSimulator
	cleaver  *ProteinCleaver
	binding  *BindingSimulator

	cleavageScores     *ScoreCache
	presentationScores *ScoreCache

	expressionPseudocount float64
}

// NewCellFactory wires the three simulators and the score caches together.
func NewCellFactory(
	genetics *GeneticSimulator,
	cleaver *ProteinCleaver,
	binding *BindingSimulator,
	cleavageScores, presentationScores *ScoreCache,
	expressionPseudocount float64,
) *CellFactory {
	return &CellFactory{
		genetics:              genetics,
		cleaver:               cleaver,
		binding:               binding,
		cleavageScores:        cleavageScores,
		presentationScores:    presentationScores,
		expressionPseudocount: expressionPseudocount,
	}
}

// CreateCell assembles one synthetic cell. Variants and alleles are shared
// read-only reference data; their order fixes the sampling order, so
// callers must pass them in a stable order for reproducible runs.
func (f *CellFactory) CreateCell(s *Sampler, variants []*SomaticVariant, alleles []*MHC, name string) *Cell {
	genetics := f.genetics.SimulateAll(s, variants)

	// cleave the translated proteins of every expressed variant
	var selected []*Peptide
	for _, v := range variants {
		r := genetics[v]
		if r.ProteinCount == 0 {
			continue
		}
		selected = append(selected, f.cleaver.Cleave(s, v.Peptides, alleles, r.ProteinCount)...)
	}

	// number of MHC molecules of each allele in this cell
	hlaCounts := make([]AlleleCount, len(alleles))
	for i, hla := range alleles {
		count := s.GammaPoisson(hla.Gene.ExpressionMean+f.expressionPseudocount, hla.Gene.ExpressionVar)
		hlaCounts[i] = AlleleCount{Allele: hla, Count: count}
	}

	bound := f.binding.Bind(s, selected, hlaCounts)

	// presentation: one Bernoulli trial per bound complex
	var presented []*PMHC
	for _, pmhc := range bound {
		score := f.presentationScores.Score(pmhc.Allele, pmhc.Peptide)
		if !s.Bernoulli(score) {
			continue
		}
		pmhc.PresentationScore = score
		pmhc.CleavageScore = f.cleavageScores.Score(pmhc.Allele, pmhc.Peptide)
		presented = append(presented, pmhc)
	}

	return &Cell{
		Name:      name,
		Genetics:  genetics,
		Selected:  selected,
		HLACounts: hlaCounts,
		Bound:     bound,
		Presented: presented,
	}
}
