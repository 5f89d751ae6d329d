package cell

// bindingEps keeps zero-score peptides at a vanishing, non-zero sampling
// weight so the weighted draw stays well defined.
const bindingEps = 1e-7

// AlleleCount pairs an HLA allele with its sampled molecule count in one
// cell. A slice keeps the allele order stable between runs.
type AlleleCount struct {
	Allele *MHC
	Count  int
}

// PMHC is a peptide bound to (and possibly presented by) an MHC allele,
// tagged with the realized scores from the pipeline.
type PMHC struct {
	Peptide *Peptide
	Allele  *MHC

	BindingScore      float64
	CleavageScore     float64
	PresentationScore float64
}

// BindingSimulator models the binding competition between cleaved peptides
// and the cell's MHC molecules.
type BindingSimulator struct {
	bindingScores *ScoreCache
}

// NewBindingSimulator creates a simulator backed by the binding score cache.
func NewBindingSimulator(bindingScores *ScoreCache) *BindingSimulator {
	return &BindingSimulator{bindingScores: bindingScores}
}

// Bind simulates the competition for each allele independently: an allele
// with m molecules samples min(len(peptides), m) peptides without
// replacement, weighted by binding score. Competition happens among the
// molecules of one allele only; the peptide pool is replenished before
// the next allele samples.
func (b *BindingSimulator) Bind(s *Sampler, peptides []*Peptide, hlaCounts []AlleleCount) []*PMHC {
	var bound []*PMHC
	for _, hc := range hlaCounts {
		if hc.Count <= 0 || len(peptides) == 0 {
			continue
		}

		weights := make([]float64, len(peptides))
		for i, p := range peptides {
			weights[i] = b.bindingScores.Score(hc.Allele, p) + bindingEps
		}

		n := hc.Count
		if len(peptides) < n {
			n = len(peptides)
		}

		for _, idx := range s.WeightedTake(weights, n) {
			bound = append(bound, &PMHC{
				Peptide:      peptides[idx],
				Allele:       hc.Allele,
				BindingScore: b.bindingScores.Score(hc.Allele, peptides[idx]),
			})
		}
	}
	return bound
}
