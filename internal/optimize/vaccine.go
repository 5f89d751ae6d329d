package optimize

import "sort"

// PooledElement is one element's support across repetition solves.
type PooledElement struct {
	Element string

	// how many repetitions selected it
	Count int

	Weight float64

	// whether the pooled vaccine includes it
	InVaccine bool
}

// Pool aggregates the per-repetition selections into one vaccine: count
// how often each element was chosen, rank by count, and greedily pack
// the ranking under the budget. Failed and infeasible solves contribute
// nothing. Ties break by element name so the pooled vaccine is stable.
func Pool(results []Result, weights map[string]float64, budget float64) []PooledElement {
	counts := make(map[string]int)
	for _, r := range results {
		if r.Err != nil || r.Solution.Status == StatusInfeasible {
			continue
		}
		for _, e := range r.Solution.Selected {
			counts[e]++
		}
	}

	pooled := make([]PooledElement, 0, len(counts))
	for e, n := range counts {
		w := 1.0
		if v, ok := weights[e]; ok {
			w = v
		}
		pooled = append(pooled, PooledElement{Element: e, Count: n, Weight: w})
	}
	sort.Slice(pooled, func(a, b int) bool {
		if pooled[a].Count != pooled[b].Count {
			return pooled[a].Count > pooled[b].Count
		}
		return pooled[a].Element < pooled[b].Element
	})

	used := 0.0
	for i := range pooled {
		if used+pooled[i].Weight <= budget+budgetTol {
			pooled[i].InVaccine = true
			used += pooled[i].Weight
		}
	}
	return pooled
}

// Vaccine filters the pooled ranking down to the elements packed under
// the budget.
func Vaccine(pooled []PooledElement) []string {
	var vaccine []string
	for _, p := range pooled {
		if p.InVaccine {
			vaccine = append(vaccine, p.Element)
		}
	}
	return vaccine
}
