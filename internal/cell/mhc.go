package cell

// MHC is one HLA allele of the patient's genotype. Its Gene links the
// allele to the expression statistics used to sample how many MHC
// molecules a cell carries.
type MHC struct {
	Name string
	Gene *Gene
}
