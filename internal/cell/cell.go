package cell

// Cell is one synthetic cancer cell: the realized outcome of the genetic,
// cleavage, binding and presentation simulations. A Cell is owned by the
// goroutine that created it and is only read after assembly completes; it
// is summarized into population statistics and then discarded.
type Cell struct {
	Name string

	// Genetics holds the per-variant simulation outcomes.
	Genetics map[*SomaticVariant]GeneticSimulationResult

	// Selected are the peptides produced by the cleavage events.
	Selected []*Peptide

	// HLACounts are the sampled MHC molecule counts per allele.
	HLACounts []AlleleCount

	// Bound are the peptide:MHC complexes formed inside the cell.
	Bound []*PMHC

	// Presented are the complexes that made it to the cell surface.
	Presented []*PMHC
}

// PresentedPeptides returns the distinct peptides on the cell surface.
func (c *Cell) PresentedPeptides() []*Peptide {
	seen := make(map[string]bool, len(c.Presented))
	var peptides []*Peptide
	for _, pmhc := range c.Presented {
		if seen[pmhc.Peptide.Sequence] {
			continue
		}
		seen[pmhc.Peptide.Sequence] = true
		peptides = append(peptides, pmhc.Peptide)
	}
	return peptides
}
