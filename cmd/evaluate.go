package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nec-research/neoagdt/config"
	"github.com/nec-research/neoagdt/internal/evaluate"
	"github.com/nec-research/neoagdt/internal/optimize"
	"github.com/nec-research/neoagdt/internal/tables"
	"github.com/nec-research/neoagdt/logger"
)

// evaluateCmd scores a pooled vaccine against the simulated cell
// populations it was designed from.
var evaluateCmd = &cobra.Command{
	Use:                        "evaluate",
	Short:                      "Evaluate a pooled vaccine's response probability per simulated cell population",
	RunE:                       runEvaluate,
	SuggestionsMinimumDistance: 2,
}

func init() {
	rootCmd.AddCommand(evaluateCmd)
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	spec, err := findOptimization(cfg.Evaluation.Optimization)
	if err != nil {
		return err
	}
	if spec.VaccineOut == "" {
		return fmt.Errorf("optimization %s writes no vaccine to evaluate", spec.Name)
	}

	vaccine, err := loadVaccine(spec.VaccineOut)
	if err != nil {
		return err
	}

	elements, err := loadElements(cfg, spec)
	if err != nil {
		return err
	}
	scorer, err := newScorerConfig(cfg, spec)
	if err != nil {
		return err
	}

	rows, err := tables.LoadCellRows(cfg.Optimization.Cells)
	if err != nil {
		return err
	}
	keys, groups := groupCells(rows)

	var records [][]string
	for _, key := range keys {
		group := groups[key]
		scores := optimize.ResponseScores(group, elements, scorer)

		responses := evaluate.Responses(scores, vaccine, optimize.NumCells(group))
		summary := evaluate.Summarize(responses)

		records = append(records, []string{
			key.simulation,
			strconv.Itoa(key.repetition),
			strconv.Itoa(summary.NumCells),
			formatScore(summary.MeanResponse),
			formatScore(summary.MinResponse),
			formatScore(summary.MaxResponse),
		})

		logger.Info("evaluated vaccine",
			zap.String("optimization", spec.Name),
			zap.String("simulation", key.simulation),
			zap.Int("repetition", key.repetition),
			zap.Float64("mean-response", summary.MeanResponse),
			zap.Float64("min-response", summary.MinResponse))
	}

	header := []string{"simulation_name", "repetition", "num_cells", "mean_response", "min_response", "max_response"}
	return tables.WriteCSV(cfg.Evaluation.Out, header, records)
}

func findOptimization(name string) (config.OptimizationSpec, error) {
	for _, spec := range cfg.Optimization.Optimizations {
		if spec.Name == name {
			return spec, nil
		}
	}
	return config.OptimizationSpec{}, fmt.Errorf("no optimization named %q in the configuration", name)
}

// loadVaccine reads the pooled-vaccine table back and keeps the
// elements packed under the budget.
func loadVaccine(path string) ([]string, error) {
	pairs, err := tables.LoadPairs(path, "element", "in_vaccine")
	if err != nil {
		return nil, err
	}

	var vaccine []string
	for _, pair := range pairs {
		if pair[1] == "true" {
			vaccine = append(vaccine, pair[0])
		}
	}
	return vaccine, nil
}
