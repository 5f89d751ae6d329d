package cell

// Peptide is a candidate neoantigen peptide derived from a somatic variant.
type Peptide struct {
	Sequence string

	// Variant is the mutation this peptide derives from.
	Variant *SomaticVariant
}
