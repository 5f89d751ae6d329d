// Package evaluate scores a finished vaccine against simulated cell
// populations: given the per-element response model, how likely is each
// cell to respond to the selected elements.
package evaluate

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Responses returns each cell's probability of responding to the
// vaccine. Per cell the no-response log terms of the selected elements
// add up; elements without scores contribute nothing.
func Responses(scores map[string][]float64, vaccine []string, numCells int) []float64 {
	logNo := make([]float64, numCells)
	for _, e := range vaccine {
		vec, ok := scores[e]
		if !ok {
			continue
		}
		for j, v := range vec {
			logNo[j] += v
		}
	}

	responses := make([]float64, numCells)
	for j, v := range logNo {
		responses[j] = 1 - math.Exp(v)
	}
	return responses
}

// Summary aggregates per-cell response probabilities for one
// repetition.
type Summary struct {
	NumCells     int
	MeanResponse float64
	MinResponse  float64
	MaxResponse  float64
}

// Summarize reduces per-cell responses to their population summary. An
// empty population summarizes to zeros.
func Summarize(responses []float64) Summary {
	if len(responses) == 0 {
		return Summary{}
	}
	return Summary{
		NumCells:     len(responses),
		MeanResponse: stat.Mean(responses, nil),
		MinResponse:  floats.Min(responses),
		MaxResponse:  floats.Max(responses),
	}
}
