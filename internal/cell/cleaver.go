package cell

// ProteinCleaver models proteasomal cleavage of translated mutant proteins
// into candidate peptides.
type ProteinCleaver struct {
	cleavageScores *ScoreCache
}

// NewProteinCleaver creates a cleaver backed by the cleavage score cache.
func NewProteinCleaver(cleavageScores *ScoreCache) *ProteinCleaver {
	return &ProteinCleaver{cleavageScores: cleavageScores}
}

// Cleave simulates numProteins cleavage events over the variant's
// candidate peptides. Each event selects one peptide, weighted by the
// peptide's best cleavage score across the genotype's alleles. Peptides
// absent from the score table carry zero weight; when no candidate has a
// positive weight, no peptide is produced at all.
func (pc *ProteinCleaver) Cleave(s *Sampler, peptides []*Peptide, alleles []*MHC, numProteins int) []*Peptide {
	if len(peptides) == 0 || numProteins <= 0 {
		return nil
	}

	weights := make([]float64, len(peptides))
	for i, p := range peptides {
		weights[i] = pc.cleavageScores.MaxPeptideScore(p, alleles)
	}

	var selected []*Peptide
	for _, idx := range s.WeightedChoice(weights, numProteins) {
		selected = append(selected, peptides[idx])
	}
	return selected
}
