package cell

// SomaticVariant is a somatic mutation observed in the patient's tumor,
// together with the sequencing evidence used to estimate its allele
// frequency. Exactly one of {VAF, read counts} is the source of truth:
// when VAF is set it overrides the read counts entirely.
type SomaticVariant struct {
	Name string

	// Gene is the gene (or transcript) carrying this variant.
	Gene *Gene

	// read depths at the variant position, from DNA (WES) and RNA sequencing
	DNARefCount float64
	DNAAltCount float64
	RNARefCount float64
	RNAAltCount float64

	// HasReadCounts records whether the loader found usable read-count
	// columns. A variant with neither a VAF nor read counts cannot be
	// simulated and is rejected at load time.
	HasReadCounts bool

	// VAF, when non-nil, is used for both the DNA and RNA allele frequency.
	VAF *float64

	// Peptides are the candidate neoantigen peptides from this variant.
	Peptides []*Peptide
}

// HasEvidence reports whether the variant can be simulated at all.
func (v *SomaticVariant) HasEvidence() bool {
	return v.VAF != nil || v.HasReadCounts
}

// DNAVAF is the DNA variant allele frequency: the configured VAF when set,
// otherwise alt/(ref+alt) from the DNA read counts. Zero depth yields 0.
func (v *SomaticVariant) DNAVAF() float64 {
	if v.VAF != nil {
		return *v.VAF
	}
	total := v.DNARefCount + v.DNAAltCount
	if total == 0 {
		return 0
	}
	return v.DNAAltCount / total
}

// RNAVAF is the RNA variant allele frequency, derived the same way as
// DNAVAF but from the RNA read counts.
func (v *SomaticVariant) RNAVAF() float64 {
	if v.VAF != nil {
		return *v.VAF
	}
	total := v.RNARefCount + v.RNAAltCount
	if total == 0 {
		return 0
	}
	return v.RNAAltCount / total
}
