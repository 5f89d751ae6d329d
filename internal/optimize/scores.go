// Package optimize turns simulated cell populations into
// budget-constrained vaccine designs. The response model assigns each
// (cell, element) pair a probability of an immune response; the solver
// then picks the element set minimizing the chance that cells escape.
package optimize

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/nec-research/neoagdt/internal/tables"
)

// vaccine element granularities
const (
	GranularityPeptides  = "peptides"
	GranularityMutations = "mutations"
)

// DefaultEpsilon keeps response probabilities away from 0 and 1 so their
// log transforms stay finite. It is small enough that even a singleton
// presentation under a tiny adaptive factor keeps a positive response
// probability, so every log P(no response) entry stays negative.
const DefaultEpsilon = 1e-7

// Element is one selectable vaccine component together with the
// candidate peptides it covers. At peptide granularity an element covers
// exactly itself; at mutation granularity it covers every candidate
// peptide of the mutation.
type Element struct {
	Name     string
	Peptides []string
}

// PeptideElements wraps candidate peptides one-to-one into elements.
func PeptideElements(peptides []string) []Element {
	elements := make([]Element, 0, len(peptides))
	for _, p := range peptides {
		elements = append(elements, Element{Name: p, Peptides: []string{p}})
	}
	return elements
}

// ScorerConfig controls how presentation counts become response
// probabilities.
type ScorerConfig struct {
	// peptides or mutations
	Granularity string

	// scaling of presentation counts into probabilities; non-positive
	// means adaptive, 1 / the largest presentation count observed
	ResponseFactor float64

	// floor and ceiling margin on probabilities; 0 means DefaultEpsilon
	Epsilon float64

	// optional peptide-level multiplier, e.g. distance-from-self;
	// peptides absent from the map keep a multiplier of 1
	DistanceFromSelf map[string]float64
}

func (c ScorerConfig) epsilon() float64 {
	if c.Epsilon > 0 {
		return c.Epsilon
	}
	return DefaultEpsilon
}

// NumCells infers the population size from a repetition's rows. Cells
// presenting nothing leave no rows but still precede the highest
// observed cell id.
func NumCells(rows []tables.CellRow) int {
	n := 0
	for _, r := range rows {
		if r.CellID+1 > n {
			n = r.CellID + 1
		}
	}
	return n
}

// presentationCounts tallies presented copies per (cell, peptide).
func presentationCounts(rows []tables.CellRow) map[string]map[int]int {
	counts := make(map[string]map[int]int)
	for _, r := range rows {
		perCell, ok := counts[r.Peptide]
		if !ok {
			perCell = make(map[int]int)
			counts[r.Peptide] = perCell
		}
		perCell[r.CellID]++
	}
	return counts
}

// AdaptiveResponseFactor returns 1 over the largest presentation count
// in the repetition, so the most-presented pair maps to probability 1
// before the epsilon margin. With no presentations it returns 1.
func AdaptiveResponseFactor(rows []tables.CellRow) float64 {
	max := 0
	for _, perCell := range presentationCounts(rows) {
		for _, n := range perCell {
			if n > max {
				max = n
			}
		}
	}
	if max == 0 {
		return 1
	}
	return 1 / float64(max)
}

// ResponseScores computes log P(no response) for every element against
// every cell of one repetition. A peptide presented n times responds
// with probability min(1, n*factor) - eps, scaled by its
// distance-from-self multiplier; an absent peptide responds with
// probability eps. Element scores sum their peptides' log terms, so at
// mutation granularity any of the mutation's peptides can trigger the
// response.
func ResponseScores(rows []tables.CellRow, elements []Element, cfg ScorerConfig) map[string][]float64 {
	numCells := NumCells(rows)
	counts := presentationCounts(rows)
	eps := cfg.epsilon()

	factor := cfg.ResponseFactor
	if factor <= 0 {
		factor = AdaptiveResponseFactor(rows)
	}

	scores := make(map[string][]float64, len(elements))
	for _, e := range elements {
		vec := make([]float64, numCells)
		for _, peptide := range e.Peptides {
			distance := 1.0
			if cfg.DistanceFromSelf != nil {
				if d, ok := cfg.DistanceFromSelf[peptide]; ok {
					distance = d
				}
			}

			perCell := counts[peptide]
			for j := 0; j < numCells; j++ {
				p := eps
				if n := perCell[j]; n > 0 {
					p = math.Min(1, float64(n)*factor) - eps
					p *= distance
				}
				vec[j] += math.Log(1 - p)
			}
		}
		scores[e.Name] = vec
	}
	return scores
}

// PopulationScores summarizes how visible each element is across the
// population: per cell the best presentation score of any of the
// element's peptides, weighted by the peptide's distance-from-self
// multiplier, averaged over all cells. A nil distance map leaves the
// scores unweighted.
func PopulationScores(rows []tables.CellRow, elements []Element, distance map[string]float64) map[string]float64 {
	numCells := NumCells(rows)

	best := make(map[string][]float64) // peptide -> per-cell best score
	for _, r := range rows {
		vec, ok := best[r.Peptide]
		if !ok {
			vec = make([]float64, numCells)
			best[r.Peptide] = vec
		}

		score := r.PresentationScore
		if d, ok := distance[r.Peptide]; ok {
			score *= d
		}
		if score > vec[r.CellID] {
			vec[r.CellID] = score
		}
	}

	scores := make(map[string]float64, len(elements))
	for _, e := range elements {
		if numCells == 0 {
			scores[e.Name] = 0
			continue
		}

		combined := make([]float64, numCells)
		for _, peptide := range e.Peptides {
			vec, ok := best[peptide]
			if !ok {
				continue
			}
			for j, s := range vec {
				if s > combined[j] {
					combined[j] = s
				}
			}
		}
		scores[e.Name] = stat.Mean(combined, nil)
	}
	return scores
}
