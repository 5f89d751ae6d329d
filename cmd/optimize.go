package cmd

import (
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nec-research/neoagdt/config"
	"github.com/nec-research/neoagdt/internal/optimize"
	"github.com/nec-research/neoagdt/internal/tables"
	"github.com/nec-research/neoagdt/logger"
)

// optimizeCmd solves every configured vaccine design against every
// simulated repetition, then pools the repetition selections into one
// vaccine per design.
var optimizeCmd = &cobra.Command{
	Use:                        "optimize",
	Short:                      "Select vaccine elements against the simulated cell populations",
	RunE:                       runOptimize,
	SuggestionsMinimumDistance: 2,
}

func init() {
	rootCmd.AddCommand(optimizeCmd)
}

// repetitionKey identifies one simulated population in the cell table.
type repetitionKey struct {
	simulation string
	repetition int
}

func groupCells(rows []tables.CellRow) ([]repetitionKey, map[repetitionKey][]tables.CellRow) {
	groups := make(map[repetitionKey][]tables.CellRow)
	for _, r := range rows {
		key := repetitionKey{simulation: r.SimulationName, repetition: r.Repetition}
		groups[key] = append(groups[key], r)
	}

	keys := make([]repetitionKey, 0, len(groups))
	for key := range groups {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(a, b int) bool {
		if keys[a].simulation != keys[b].simulation {
			return keys[a].simulation < keys[b].simulation
		}
		return keys[a].repetition < keys[b].repetition
	})
	return keys, groups
}

func runOptimize(cmd *cobra.Command, args []string) error {
	rows, err := tables.LoadCellRows(cfg.Optimization.Cells)
	if err != nil {
		return err
	}
	keys, groups := groupCells(rows)

	logger.Info("loaded cell populations",
		zap.String("cells", cfg.Optimization.Cells),
		zap.Int("rows", len(rows)),
		zap.Int("repetitions", len(keys)))

	for _, spec := range cfg.Optimization.Optimizations {
		if err := runOptimization(cmd, spec, keys, groups); err != nil {
			return err
		}
	}
	return nil
}

func runOptimization(cmd *cobra.Command, spec config.OptimizationSpec, keys []repetitionKey, groups map[repetitionKey][]tables.CellRow) error {
	elements, err := loadElements(cfg, spec)
	if err != nil {
		return err
	}
	weights, err := loadWeights(cfg, spec)
	if err != nil {
		return err
	}
	scorer, err := newScorerConfig(cfg, spec)
	if err != nil {
		return err
	}

	fixed := make(map[string]bool, len(spec.FixedElements))
	for _, e := range spec.FixedElements {
		fixed[e] = true
	}

	names := make([]string, 0, len(elements))
	for _, e := range elements {
		names = append(names, e.Name)
	}

	var instances []*optimize.Instance
	var scoreRecords [][]string
	popTotals := make(map[string]float64, len(names))
	for _, key := range keys {
		group := groups[key]
		scores := optimize.ResponseScores(group, elements, scorer)

		instances = append(instances, &optimize.Instance{
			OptimizationName: spec.Name,
			SimulationName:   key.simulation,
			Repetition:       key.repetition,
			Elements:         names,
			Weights:          weights,
			Fixed:            fixed,
			Budget:           spec.Budget,
			Criterion:        optimize.Criterion(spec.Criterion),
			MaxSolvingTime:   time.Duration(spec.MaxSolvingSeconds) * time.Second,
			Threads:          cfg.Optimization.NumThreadsPerProc,
			NumCells:         optimize.NumCells(group),
			Scores:           scores,
		})

		pop := optimize.PopulationScores(group, elements, scorer.DistanceFromSelf)
		for _, name := range names {
			popTotals[name] += pop[name]
		}

		if spec.ScoresOut != "" {
			for _, name := range names {
				for cellID, logNo := range scores[name] {
					scoreRecords = append(scoreRecords, []string{
						key.simulation,
						strconv.Itoa(key.repetition),
						strconv.Itoa(cellID),
						name,
						formatScore(logNo),
						formatScore(1 - math.Exp(logNo)),
					})
				}
			}
		}
	}

	if spec.ScoresOut != "" {
		header := []string{"simulation_name", "repetition", "cell_id", "element", "log_no_response", "response"}
		if err := tables.WriteCSV(spec.ScoresOut, header, scoreRecords); err != nil {
			return err
		}
	}

	results := optimize.SolveAll(cmd.Context(), instances, cfg.Optimization.NumProcs)

	var selections [][]string
	for _, r := range results {
		if r.Err != nil {
			logger.Error("solve failed",
				zap.String("optimization", spec.Name),
				zap.String("simulation", r.Instance.SimulationName),
				zap.Int("repetition", r.Instance.Repetition),
				zap.Error(r.Err))
			continue
		}
		for _, e := range r.Solution.Selected {
			selections = append(selections, []string{
				spec.Name,
				r.Instance.SimulationName,
				strconv.Itoa(r.Instance.Repetition),
				spec.Criterion,
				formatScore(spec.Budget),
				r.Solution.Status.String(),
				formatScore(r.Solution.Objective),
				formatScore(r.Solution.Runtime.Seconds()),
				e,
			})
		}
	}

	if spec.Out != "" {
		header := []string{"optimization", "simulation_name", "repetition", "criterion", "budget", "status", "objective", "runtime_seconds", "element"}
		if err := tables.WriteCSV(spec.Out, header, selections); err != nil {
			return err
		}
	}

	pooled := optimize.Pool(results, weights, spec.Budget)
	if spec.VaccineOut != "" {
		records := make([][]string, 0, len(pooled))
		for _, p := range pooled {
			popScore := 0.0
			if len(keys) > 0 {
				popScore = popTotals[p.Element] / float64(len(keys))
			}
			records = append(records, []string{
				p.Element,
				strconv.Itoa(p.Count),
				formatScore(p.Weight),
				formatScore(popScore),
				strconv.FormatBool(p.InVaccine),
			})
		}
		header := []string{"element", "count", "weight", "population_score", "in_vaccine"}
		if err := tables.WriteCSV(spec.VaccineOut, header, records); err != nil {
			return err
		}
	}

	logger.Info("pooled vaccine",
		zap.String("optimization", spec.Name),
		zap.Int("instances", len(instances)),
		zap.Int("vaccine-elements", len(optimize.Vaccine(pooled))))
	return nil
}

// loadElements builds the element universe at the configured
// granularity from the candidate peptide table.
func loadElements(c *config.Config, spec config.OptimizationSpec) ([]optimize.Element, error) {
	if spec.VaccineElements == optimize.GranularityMutations {
		pairs, err := tables.LoadPairs(c.Files.Peptides, c.Columns.Peptides.Variant, c.Columns.Peptides.Sequence)
		if err != nil {
			return nil, err
		}

		var order []string
		byMutation := make(map[string][]string)
		for _, pair := range pairs {
			mutation, peptide := pair[0], pair[1]
			if _, ok := byMutation[mutation]; !ok {
				order = append(order, mutation)
			}
			byMutation[mutation] = append(byMutation[mutation], peptide)
		}

		elements := make([]optimize.Element, 0, len(order))
		for _, mutation := range order {
			elements = append(elements, optimize.Element{Name: mutation, Peptides: byMutation[mutation]})
		}
		return elements, nil
	}

	peptides, err := tables.LoadElements(c.Files.Peptides, c.Columns.Peptides.Sequence)
	if err != nil {
		return nil, err
	}
	return optimize.PeptideElements(peptides), nil
}

func loadWeights(c *config.Config, spec config.OptimizationSpec) (map[string]float64, error) {
	if spec.WeightColumn == "" {
		return nil, nil
	}

	keyColumn := c.Columns.Peptides.Sequence
	if spec.VaccineElements == optimize.GranularityMutations {
		keyColumn = c.Columns.Peptides.Variant
	}
	return tables.LoadColumnMap(c.Files.Peptides, keyColumn, spec.WeightColumn)
}

func newScorerConfig(c *config.Config, spec config.OptimizationSpec) (optimize.ScorerConfig, error) {
	scorer := optimize.ScorerConfig{
		Granularity:    spec.VaccineElements,
		ResponseFactor: spec.ResponseFactor,
	}
	if scorer.Granularity == "" {
		scorer.Granularity = optimize.GranularityPeptides
	}

	if spec.DistanceFromSelf != "" {
		peptideColumn := spec.DistanceFromSelfPeptide
		if peptideColumn == "" {
			peptideColumn = c.Columns.Peptides.Sequence
		}
		distanceColumn := spec.DistanceFromSelfColumn
		if distanceColumn == "" {
			distanceColumn = "distance"
		}

		distances, err := tables.LoadColumnMap(spec.DistanceFromSelf, peptideColumn, distanceColumn)
		if err != nil {
			return scorer, err
		}
		scorer.DistanceFromSelf = distances
	}
	return scorer, nil
}

func formatScore(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}
