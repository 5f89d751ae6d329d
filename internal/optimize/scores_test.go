package optimize

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nec-research/neoagdt/internal/tables"
)

func testRows() []tables.CellRow {
	// cell 0 presents X twice and Y once, cell 1 presents Y once,
	// cell 2 presents nothing (visible only through cell 3)
	return []tables.CellRow{
		{CellID: 0, Peptide: "X", Mutation: "m1", PresentationScore: 0.9},
		{CellID: 0, Peptide: "X", Mutation: "m1", PresentationScore: 0.8},
		{CellID: 0, Peptide: "Y", Mutation: "m2", PresentationScore: 0.4},
		{CellID: 1, Peptide: "Y", Mutation: "m2", PresentationScore: 0.5},
		{CellID: 3, Peptide: "X", Mutation: "m1", PresentationScore: 0.2},
	}
}

func TestNumCells(t *testing.T) {
	assert.Equal(t, 4, NumCells(testRows()))
	assert.Equal(t, 0, NumCells(nil))
}

func TestAdaptiveResponseFactor(t *testing.T) {
	assert.InDelta(t, 0.5, AdaptiveResponseFactor(testRows()), 1e-12)
	assert.Equal(t, 1.0, AdaptiveResponseFactor(nil))
}

func TestResponseScoresPeptides(t *testing.T) {
	cfg := ScorerConfig{
		Granularity:    GranularityPeptides,
		ResponseFactor: 0.5,
		Epsilon:        0.01,
	}

	scores := ResponseScores(testRows(), PeptideElements([]string{"X", "Y"}), cfg)
	require.Len(t, scores, 2)

	x := scores["X"]
	require.Len(t, x, 4)

	// two copies at factor 0.5 saturate the response
	assert.InDelta(t, math.Log(1-(1-0.01)), x[0], 1e-12)
	// absent peptides keep the epsilon floor
	assert.InDelta(t, math.Log(1-0.01), x[1], 1e-12)
	// one copy responds at half strength
	assert.InDelta(t, math.Log(1-(0.5-0.01)), x[3], 1e-12)

	for _, vec := range scores {
		for _, v := range vec {
			assert.Less(t, v, 0.0)
		}
	}
}

func TestResponseScoresDistanceFromSelf(t *testing.T) {
	cfg := ScorerConfig{
		Granularity:      GranularityPeptides,
		ResponseFactor:   0.5,
		Epsilon:          0.01,
		DistanceFromSelf: map[string]float64{"X": 0.5},
	}

	scores := ResponseScores(testRows(), PeptideElements([]string{"X", "Y"}), cfg)

	// a presented peptide's response scales with its distance from self
	assert.InDelta(t, math.Log(1-0.5*(1-0.01)), scores["X"][0], 1e-12)
	// absent cells keep the floor; distance does not apply there
	assert.InDelta(t, math.Log(1-0.01), scores["X"][1], 1e-12)
	// peptides missing from the distance table are unscaled
	assert.InDelta(t, math.Log(1-(0.5-0.01)), scores["Y"][1], 1e-12)
}

// a heavily presented peptide drives the adaptive factor down; under the
// default epsilon a singleton presentation elsewhere must still carry a
// positive response probability, never a positive log term
func TestResponseScoresDefaultEpsilonStaysNegative(t *testing.T) {
	rows := make([]tables.CellRow, 0, 201)
	for i := 0; i < 200; i++ {
		rows = append(rows, tables.CellRow{CellID: 0, Peptide: "hot"})
	}
	rows = append(rows, tables.CellRow{CellID: 1, Peptide: "rare"})

	scores := ResponseScores(rows, PeptideElements([]string{"hot", "rare"}), ScorerConfig{
		Granularity: GranularityPeptides,
	})

	// adaptive factor is 1/200; the singleton responds with 1/200 - eps
	assert.InDelta(t, math.Log(1-(1.0/200-DefaultEpsilon)), scores["rare"][1], 1e-12)

	for _, vec := range scores {
		for _, v := range vec {
			assert.Less(t, v, 0.0)
		}
	}
}

func TestResponseScoresMutationsAggregate(t *testing.T) {
	cfg := ScorerConfig{
		Granularity:    GranularityMutations,
		ResponseFactor: 0.5,
		Epsilon:        0.01,
	}

	peptides := ResponseScores(testRows(), PeptideElements([]string{"X", "Y"}), cfg)
	mutations := ResponseScores(testRows(), []Element{
		{Name: "m1", Peptides: []string{"X"}},
		{Name: "both", Peptides: []string{"X", "Y"}},
	}, cfg)

	// a single-peptide mutation scores exactly like its peptide
	assert.InDeltaSlice(t, peptides["X"], mutations["m1"], 1e-12)

	// a multi-peptide mutation sums its peptides' log terms
	for j := range mutations["both"] {
		assert.InDelta(t, peptides["X"][j]+peptides["Y"][j], mutations["both"][j], 1e-12)
	}
}

func TestPopulationScores(t *testing.T) {
	scores := PopulationScores(testRows(), []Element{
		{Name: "X", Peptides: []string{"X"}},
		{Name: "m-all", Peptides: []string{"X", "Y"}},
		{Name: "absent", Peptides: []string{"Z"}},
	}, nil)

	// per cell the best presentation score, averaged over 4 cells
	assert.InDelta(t, (0.9+0+0+0.2)/4, scores["X"], 1e-12)
	assert.InDelta(t, (0.9+0.5+0+0.2)/4, scores["m-all"], 1e-12)
	assert.Equal(t, 0.0, scores["absent"])
}

func TestPopulationScoresDistanceWeighted(t *testing.T) {
	scores := PopulationScores(testRows(), []Element{
		{Name: "X", Peptides: []string{"X"}},
	}, map[string]float64{"X": 0.5})

	assert.InDelta(t, (0.5*0.9+0+0+0.5*0.2)/4, scores["X"], 1e-12)
}
