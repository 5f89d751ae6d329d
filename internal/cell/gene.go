// Package cell simulates single cancer cells: which somatic variants are
// expressed, which peptides survive proteasomal cleavage, and which
// peptide:MHC complexes end up presented on the cell surface.
package cell

// Gene is a gene (or transcript) with measured expression statistics.
//
// The mean and variance come from the patient's expression table. Genes
// absent from the table are created with the configured defaults rather
// than failing the simulation. Expression values must not be
// log-transformed; the gamma-Poisson sampling assumes linear scale.
type Gene struct {
	Name           string
	ExpressionMean float64
	ExpressionVar  float64
}
