package cell

import (
	"sort"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
	"gonum.org/v1/gonum/stat/sampleuv"
)

// mixes the stream id into the seed; odd multiplier, so distinct streams
// never collide for a fixed seed
const streamMix = 0x9e3779b97f4a7c15

// Sampler draws from the distributions used throughout the cell pipeline.
// Every concurrently simulated cell owns its own Sampler, so no sampling
// state is ever shared between cells.
type Sampler struct {
	src rand.Source
	rnd *rand.Rand
}

// NewSampler seeds an independent PCG stream. The stream is keyed by the
// run seed and the cell's position in the run, which keeps populations
// reproducible while cells stay independent of one another.
func NewSampler(seed, stream uint64) *Sampler {
	src := rand.NewSource(seed ^ stream*streamMix)
	return &Sampler{src: src, rnd: rand.New(src)}
}

// Bernoulli reports one success/failure draw with success probability p.
func (s *Sampler) Bernoulli(p float64) bool {
	if p <= 0 {
		return false
	}
	if p >= 1 {
		return true
	}
	b := distuv.Bernoulli{P: p, Src: s.src}
	return b.Rand() == 1
}

// GammaPoisson draws a count from a gamma-Poisson mixture parameterized by
// mean and variance: lambda ~ Gamma(mean²/var, scale var/mean), then
// count ~ Poisson(lambda). Non-positive means yield 0; non-positive
// variances fall back to 1, matching the reference-table defaults.
func (s *Sampler) GammaPoisson(mean, variance float64) int {
	if mean <= 0 {
		return 0
	}
	if variance <= 0 {
		variance = 1
	}
	gamma := distuv.Gamma{
		Alpha: mean * mean / variance,
		Beta:  mean / variance, // Beta is the rate, 1/scale
		Src:   s.src,
	}
	lambda := gamma.Rand()
	if lambda <= 0 {
		return 0
	}
	pois := distuv.Poisson{Lambda: lambda, Src: s.src}
	return int(pois.Rand())
}

// WeightedChoice draws n indices proportionally to weights, with
// replacement. Entries with non-positive weight are never selected; if no
// weight is positive, nil is returned.
func (s *Sampler) WeightedChoice(weights []float64, n int) []int {
	if n <= 0 {
		return nil
	}

	cum := make([]float64, len(weights))
	total := 0.0
	for i, w := range weights {
		if w > 0 {
			total += w
		}
		cum[i] = total
	}
	if total <= 0 {
		return nil
	}

	picks := make([]int, n)
	for i := range picks {
		x := s.rnd.Float64() * total
		picks[i] = sort.Search(len(cum), func(j int) bool { return cum[j] > x })
	}
	return picks
}

// WeightedTake draws up to n distinct indices proportionally to weights,
// without replacement.
func (s *Sampler) WeightedTake(weights []float64, n int) []int {
	w := sampleuv.NewWeighted(weights, s.src)

	picks := make([]int, 0, n)
	for len(picks) < n {
		idx, ok := w.Take()
		if !ok {
			break
		}
		picks = append(picks, idx)
	}
	return picks
}
