package cmd

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nec-research/neoagdt/config"
	"github.com/nec-research/neoagdt/internal/cell"
	"github.com/nec-research/neoagdt/internal/sim"
	"github.com/nec-research/neoagdt/internal/tables"
	"github.com/nec-research/neoagdt/logger"
)

// simulateCmd assembles the stochastic cell populations and writes them
// to the cell table consumed by `optimize`.
var simulateCmd = &cobra.Command{
	Use:                        "simulate",
	Short:                      "Simulate cancer-cell populations from the patient's variants and HLA genotype",
	RunE:                       runSimulate,
	SuggestionsMinimumDistance: 2,
}

func init() {
	rootCmd.AddCommand(simulateCmd)
}

func runSimulate(cmd *cobra.Command, args []string) error {
	driver, err := newDriver(cfg)
	if err != nil {
		return err
	}

	var rows []tables.CellRow
	for _, spec := range cfg.Simulation.Simulations {
		pops, err := driver.Run(cmd.Context(), spec)
		if err != nil {
			return err
		}
		rows = append(rows, sim.Rows(pops)...)
	}

	if err := tables.WriteCellRows(cfg.Simulation.CellsOut, rows); err != nil {
		return err
	}

	logger.Info("wrote cell populations",
		zap.String("out", cfg.Simulation.CellsOut),
		zap.Int("rows", len(rows)))
	return nil
}

// newDriver loads the reference tables shared by every simulation
// setting.
func newDriver(c *config.Config) (*sim.Driver, error) {
	genes, err := tables.LoadGenes(c.Files.Genes, c.Columns.Genes)
	if err != nil {
		return nil, err
	}

	variants, err := tables.LoadVariants(c.Files.Variants, c.Columns.Variants, genes)
	if err != nil {
		return nil, err
	}
	if _, err = tables.LoadPeptides(c.Files.Peptides, c.Columns.Peptides, variants); err != nil {
		return nil, err
	}
	variants = tables.IntersectVariants(variants)

	alleles, err := tables.LoadHLAs(c.Files.HLAs, c.Columns.HLAs, genes)
	if err != nil {
		return nil, err
	}

	binding, err := tables.LoadScores(c.Files.BindingScores, c.Columns.BindingScores)
	if err != nil {
		return nil, err
	}
	cleavage, err := tables.LoadScores(c.Files.CleavageScores, c.Columns.CleavageScores)
	if err != nil {
		return nil, err
	}
	presentation, err := tables.LoadScores(c.Files.PresentationScores, c.Columns.PresentationScores)
	if err != nil {
		return nil, err
	}

	logger.Info("loaded patient tables",
		zap.Int("genes", genes.Len()),
		zap.Int("variants", len(variants)),
		zap.Int("alleles", len(alleles)),
		zap.Int("binding-scores", len(binding)),
		zap.Int("cleavage-scores", len(cleavage)),
		zap.Int("presentation-scores", len(presentation)))

	return &sim.Driver{
		Variants:           variants,
		Alleles:            alleles,
		BindingScores:      cell.NewScoreCache("binding", binding),
		CleavageScores:     cell.NewScoreCache("cleavage", cleavage),
		PresentationScores: cell.NewScoreCache("presentation", presentation),
		Seed:               c.Seed,
		Workers:            c.Simulation.Workers,
	}, nil
}
