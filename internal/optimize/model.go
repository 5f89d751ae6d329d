package optimize

import (
	"fmt"
	"time"
)

// Criterion selects the population objective being minimized.
type Criterion string

const (
	// CriterionMinSum minimizes the summed per-cell log escape chance,
	// the expected number of escaping cells up to a monotone transform.
	CriterionMinSum Criterion = "MinSum"

	// CriterionMinMax minimizes the worst single cell's log escape
	// chance, protecting against the hardest-to-cover cell.
	CriterionMinMax Criterion = "MinMax"
)

// Status reports how a solve ended.
type Status int

const (
	// StatusOptimal means the search space was exhausted.
	StatusOptimal Status = iota

	// StatusFeasible means the time limit struck first; the reported
	// selection is the best incumbent found.
	StatusFeasible

	// StatusInfeasible means no selection satisfies the constraints.
	StatusInfeasible
)

func (s Status) String() string {
	switch s {
	case StatusOptimal:
		return "optimal"
	case StatusFeasible:
		return "feasible"
	case StatusInfeasible:
		return "infeasible"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Instance is one fully specified vaccine-design problem: the element
// universe with scores against one simulated repetition, plus the
// selection constraints.
type Instance struct {
	OptimizationName string
	SimulationName   string
	Repetition       int

	// the element universe, in a stable order
	Elements []string

	// per-element budget weight; elements absent from the map weigh 1
	Weights map[string]float64

	// elements forced into every selection
	Fixed map[string]bool

	Budget    float64
	Criterion Criterion

	// wall-clock limit; 0 means unbounded
	MaxSolvingTime time.Duration

	// parallel subtree searches within one solve; <= 1 means serial
	Threads int

	NumCells int

	// element -> per-cell log P(no response), all entries <= 0
	Scores map[string][]float64
}

// Weight returns the element's budget weight, defaulting to 1.
func (in *Instance) Weight(element string) float64 {
	if w, ok := in.Weights[element]; ok {
		return w
	}
	return 1
}

// Solution is the outcome of solving one instance.
type Solution struct {
	Status    Status
	Selected  []string
	Objective float64

	// search nodes visited, a rough effort measure
	Nodes int64

	Runtime time.Duration
}
