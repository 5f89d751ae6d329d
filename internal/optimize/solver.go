package optimize

import (
	"math"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

// deadline checks happen every deadlineCheckNodes search nodes
const deadlineCheckNodes = 1024

// tolerances for budget feasibility and incumbent comparison
const (
	budgetTol = 1e-9
	boundTol  = 1e-12
)

// solver is one branch-and-bound search over the element subsets of an
// instance. Elements are reordered so fixed ones come first and the rest
// descend by usefulness; suffix sums of the remaining negative scores
// give admissible lower bounds for pruning.
type solver struct {
	names    []string
	weights  []float64
	fixed    []bool
	cols     [][]float64
	colSum   []float64
	numCells int
	budget   float64
	minmax   bool

	// sufNeg[i] is the most negative total the elements from i on can
	// still contribute to the summed objective; sufCellNeg[i][j] is the
	// same per cell, used for the MinMax bound
	sufNeg     []float64
	sufCellNeg [][]float64

	deadline    time.Time
	hasDeadline bool
	nodes       atomic.Int64
	timedOut    atomic.Bool

	mu       sync.Mutex
	haveBest bool
	bestObj  float64
	bestSel  []bool
}

// Solve searches the instance exhaustively within its time limit.
// Exhausting the space yields StatusOptimal; hitting the limit yields
// StatusFeasible with the best incumbent; contradictory constraints
// yield StatusInfeasible.
func Solve(inst *Instance) Solution {
	start := time.Now()

	if len(inst.Elements) == 0 || inst.Budget <= 0 {
		return Solution{Status: StatusInfeasible, Runtime: time.Since(start)}
	}

	fixedCost := 0.0
	for e := range inst.Fixed {
		if inst.Fixed[e] {
			fixedCost += inst.Weight(e)
		}
	}
	if fixedCost > inst.Budget+budgetTol {
		return Solution{Status: StatusInfeasible, Runtime: time.Since(start)}
	}

	s := newSolver(inst)
	s.greedyIncumbent()

	if inst.Threads > 1 {
		s.searchParallel(inst.Threads)
	} else {
		sel := make([]bool, len(s.names))
		s.search(0, 0, 0, make([]float64, s.numCells), sel)
	}

	status := StatusOptimal
	if s.timedOut.Load() {
		status = StatusFeasible
	}

	return Solution{
		Status:    status,
		Selected:  s.selectedNames(inst),
		Objective: s.bestObj,
		Nodes:     s.nodes.Load(),
		Runtime:   time.Since(start),
	}
}

func newSolver(inst *Instance) *solver {
	n := len(inst.Elements)

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}

	colSum := make([]float64, n)
	for i, e := range inst.Elements {
		for _, v := range inst.Scores[e] {
			colSum[i] += v
		}
	}

	// fixed elements first, then the most helpful first so the greedy
	// incumbent and early branches are strong
	sort.SliceStable(order, func(a, b int) bool {
		fa, fb := inst.Fixed[inst.Elements[order[a]]], inst.Fixed[inst.Elements[order[b]]]
		if fa != fb {
			return fa
		}
		return colSum[order[a]] < colSum[order[b]]
	})

	s := &solver{
		names:    make([]string, n),
		weights:  make([]float64, n),
		fixed:    make([]bool, n),
		cols:     make([][]float64, n),
		colSum:   make([]float64, n),
		numCells: inst.NumCells,
		budget:   inst.Budget,
		minmax:   inst.Criterion == CriterionMinMax,
	}
	for i, orig := range order {
		e := inst.Elements[orig]
		s.names[i] = e
		s.weights[i] = inst.Weight(e)
		s.fixed[i] = inst.Fixed[e]
		s.cols[i] = inst.Scores[e]
		s.colSum[i] = colSum[orig]
	}

	s.sufNeg = make([]float64, n+1)
	for i := n - 1; i >= 0; i-- {
		s.sufNeg[i] = s.sufNeg[i+1] + math.Min(0, s.colSum[i])
	}

	if s.minmax {
		s.sufCellNeg = make([][]float64, n+1)
		s.sufCellNeg[n] = make([]float64, s.numCells)
		for i := n - 1; i >= 0; i-- {
			row := make([]float64, s.numCells)
			copy(row, s.sufCellNeg[i+1])
			for j, v := range s.cols[i] {
				if v < 0 {
					row[j] += v
				}
			}
			s.sufCellNeg[i] = row
		}
	}

	if inst.MaxSolvingTime > 0 {
		s.deadline = time.Now().Add(inst.MaxSolvingTime)
		s.hasDeadline = true
	}
	return s
}

// greedyIncumbent seeds the search with the fixed elements plus every
// helpful element that fits, so a timeout still returns a sane design.
func (s *solver) greedyIncumbent() {
	sel := make([]bool, len(s.names))
	cellScores := make([]float64, s.numCells)
	used, sum := 0.0, 0.0

	for i := range s.names {
		if !s.fixed[i] && s.colSum[i] >= 0 {
			continue
		}
		if used+s.weights[i] > s.budget+budgetTol {
			continue
		}
		sel[i] = true
		used += s.weights[i]
		sum += s.colSum[i]
		for j, v := range s.cols[i] {
			cellScores[j] += v
		}
	}

	s.offer(s.objective(sum, cellScores), sel)
}

func (s *solver) objective(sum float64, cellScores []float64) float64 {
	if !s.minmax {
		return sum
	}
	max := 0.0
	for j, v := range cellScores {
		if j == 0 || v > max {
			max = v
		}
	}
	return max
}

// lowerBound relaxes the budget: no completion of this partial selection
// can do better than adding every remaining negative contribution.
func (s *solver) lowerBound(i int, sum float64, cellScores []float64) float64 {
	if !s.minmax {
		return sum + s.sufNeg[i]
	}
	bound := 0.0
	suffix := s.sufCellNeg[i]
	for j, v := range cellScores {
		if b := v + suffix[j]; j == 0 || b > bound {
			bound = b
		}
	}
	return bound
}

func (s *solver) best() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.haveBest {
		return math.Inf(1)
	}
	return s.bestObj
}

func (s *solver) offer(obj float64, sel []bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.haveBest && obj >= s.bestObj-boundTol {
		return
	}
	s.haveBest = true
	s.bestObj = obj
	s.bestSel = append(s.bestSel[:0], sel...)
}

func (s *solver) expired() bool {
	if s.timedOut.Load() {
		return true
	}
	if n := s.nodes.Add(1); s.hasDeadline && n%deadlineCheckNodes == 0 {
		if time.Now().After(s.deadline) {
			s.timedOut.Store(true)
			return true
		}
	}
	return false
}

func (s *solver) search(i int, used, sum float64, cellScores []float64, sel []bool) {
	if s.expired() {
		return
	}

	if i == len(s.names) {
		s.offer(s.objective(sum, cellScores), sel)
		return
	}

	if s.lowerBound(i, sum, cellScores) >= s.best()-boundTol {
		return
	}

	if w := s.weights[i]; used+w <= s.budget+budgetTol {
		sel[i] = true
		for j, v := range s.cols[i] {
			cellScores[j] += v
		}
		s.search(i+1, used+w, sum+s.colSum[i], cellScores, sel)
		for j, v := range s.cols[i] {
			cellScores[j] -= v
		}
		sel[i] = false
	}

	if !s.fixed[i] {
		s.search(i+1, used, sum, cellScores, sel)
	}
}

// searchParallel fans the first few include/exclude decisions out as
// independent subtrees. The incumbent is shared, so bounds learned in
// one subtree prune the others.
func (s *solver) searchParallel(threads int) {
	depth := 0
	for 1<<depth < threads && depth < len(s.names) {
		depth++
	}

	var g errgroup.Group
	g.SetLimit(threads)

	for mask := 0; mask < 1<<depth; mask++ {
		sel := make([]bool, len(s.names))
		cellScores := make([]float64, s.numCells)
		used, sum := 0.0, 0.0
		feasible := true

		for i := 0; i < depth; i++ {
			include := mask&(1<<i) != 0
			if !include {
				if s.fixed[i] {
					feasible = false
					break
				}
				continue
			}
			sel[i] = true
			used += s.weights[i]
			sum += s.colSum[i]
			for j, v := range s.cols[i] {
				cellScores[j] += v
			}
		}
		if !feasible || used > s.budget+budgetTol {
			continue
		}

		g.Go(func() error {
			s.search(depth, used, sum, cellScores, sel)
			return nil
		})
	}

	// the workers only signal completion, never errors
	_ = g.Wait()
}

// selectedNames maps the winning selection back to the instance's
// element order.
func (s *solver) selectedNames(inst *Instance) []string {
	rank := make(map[string]int, len(inst.Elements))
	for i, e := range inst.Elements {
		rank[e] = i
	}

	var selected []string
	for i, on := range s.bestSel {
		if on {
			selected = append(selected, s.names[i])
		}
	}
	sort.Slice(selected, func(a, b int) bool {
		return rank[selected[a]] < rank[selected[b]]
	})
	return selected
}
