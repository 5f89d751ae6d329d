// Package sim assembles stochastic cancer-cell populations from a
// patient's variants, HLA genotype and precomputed score tables.
package sim

import (
	"context"
	"fmt"
	"hash/fnv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/nec-research/neoagdt/config"
	"github.com/nec-research/neoagdt/internal/cell"
	"github.com/nec-research/neoagdt/internal/tables"
	"github.com/nec-research/neoagdt/logger"
)

// Driver holds the patient-level inputs shared by every simulation
// setting. It is safe for concurrent use: all fields are read-only once
// constructed.
type Driver struct {
	Variants []*cell.SomaticVariant
	Alleles  []*cell.MHC

	BindingScores      *cell.ScoreCache
	CleavageScores     *cell.ScoreCache
	PresentationScores *cell.ScoreCache

	// base seed; each cell derives its own independent stream from it
	Seed uint64

	// concurrent cell assemblies; 0 means no limit beyond GOMAXPROCS
	Workers int
}

// Population is the outcome of one repetition of one simulation setting.
type Population struct {
	SimulationName string
	Repetition     int
	Cells          []*cell.Cell
}

// streamFor derives a per-cell random stream so that cells are
// statistically independent and each cell's draws do not depend on how
// the work was scheduled across workers.
func streamFor(name string, repetition, cellIdx int) uint64 {
	h := fnv.New64a()
	h.Write([]byte(name))
	return h.Sum64() ^ (uint64(repetition+1) * 0x9e3779b97f4a7c15) ^ uint64(cellIdx)
}

// Run simulates every repetition of one simulation setting. Cells are
// assembled concurrently; the returned populations are ordered by
// repetition and the cells within each population by index.
func (d *Driver) Run(ctx context.Context, spec config.SimulationSpec) ([]*Population, error) {
	factory := cell.NewCellFactory(
		cell.NewGeneticSimulator(spec.ExpressionPseudocount),
		cell.NewProteinCleaver(d.CleavageScores),
		cell.NewBindingSimulator(d.BindingScores),
		d.CleavageScores,
		d.PresentationScores,
		spec.ExpressionPseudocount,
	)

	populations := make([]*Population, 0, spec.NumRepetitions)
	for rep := 0; rep < spec.NumRepetitions; rep++ {
		start := time.Now()

		pop, err := d.runRepetition(ctx, factory, spec, rep)
		if err != nil {
			return nil, err
		}
		populations = append(populations, pop)

		logger.Info("simulated cell population",
			zap.String("simulation", spec.Name),
			zap.Int("repetition", rep),
			zap.Int("cells", len(pop.Cells)),
			zap.Duration("elapsed", time.Since(start)))
	}
	return populations, nil
}

func (d *Driver) runRepetition(ctx context.Context, factory *cell.CellFactory, spec config.SimulationSpec, rep int) (*Population, error) {
	cells := make([]*cell.Cell, spec.NumCells)

	g, ctx := errgroup.WithContext(ctx)
	if d.Workers > 0 {
		g.SetLimit(d.Workers)
	}

	for i := 0; i < spec.NumCells; i++ {
		i := i
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			s := cell.NewSampler(d.Seed, streamFor(spec.Name, rep, i))
			cells[i] = factory.CreateCell(s, d.Variants, d.Alleles, fmt.Sprintf("cell-%d", i))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &Population{SimulationName: spec.Name, Repetition: rep, Cells: cells}, nil
}

// Rows flattens populations into the cell-population table, one row per
// presented pMHC complex.
func Rows(populations []*Population) []tables.CellRow {
	var rows []tables.CellRow
	for _, pop := range populations {
		for i, c := range pop.Cells {
			for _, pmhc := range c.Presented {
				mutation := ""
				if pmhc.Peptide.Variant != nil {
					mutation = pmhc.Peptide.Variant.Name
				}
				rows = append(rows, tables.CellRow{
					SimulationName:    pop.SimulationName,
					Repetition:        pop.Repetition,
					CellID:            i,
					Peptide:           pmhc.Peptide.Sequence,
					Allele:            pmhc.Allele.Name,
					Mutation:          mutation,
					BindingScore:      pmhc.BindingScore,
					CleavageScore:     pmhc.CleavageScore,
					PresentationScore: pmhc.PresentationScore,
				})
			}
		}
	}
	return rows
}
