// Package config is for app wide settings that are unmarshalled
// from Viper (see: /cmd)
package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// FileConfig lists the reference tables consumed by the simulation.
type FileConfig struct {
	// gene expression table (id, mean, variance)
	Genes string `mapstructure:"genes"`

	// somatic variant table (id, gene id, VAF or read counts)
	Variants string `mapstructure:"variants"`

	// candidate peptide table (sequence, mutation id)
	Peptides string `mapstructure:"peptides"`

	// the patient's HLA genotype (allele name, gene id)
	HLAs string `mapstructure:"hlas"`

	// precomputed score tables, one per score kind
	BindingScores      string `mapstructure:"binding-scores"`
	CleavageScores     string `mapstructure:"cleavage-scores"`
	PresentationScores string `mapstructure:"presentation-scores"`
}

// GeneColumns maps the logical gene fields to their source column names.
// The defaults substitute for genes absent from the expression table.
type GeneColumns struct {
	Name           string  `mapstructure:"name"`
	ExpressionMean string  `mapstructure:"expression-mean"`
	ExpressionVar  string  `mapstructure:"expression-var"`
	DefaultMean    float64 `mapstructure:"default-mean"`
	DefaultVar     float64 `mapstructure:"default-var"`
}

// VariantColumns maps the logical variant fields to their source columns.
// When VAF is set it is the source of truth and the read-count columns are
// ignored; otherwise all four count columns must be present.
type VariantColumns struct {
	Name   string `mapstructure:"name"`
	Gene   string `mapstructure:"gene"`
	DNARef string `mapstructure:"dna-ref"`
	DNAAlt string `mapstructure:"dna-alt"`
	RNARef string `mapstructure:"rna-ref"`
	RNAAlt string `mapstructure:"rna-alt"`
	VAF    string `mapstructure:"vaf"`
}

// PeptideColumns maps the logical peptide fields to their source columns.
type PeptideColumns struct {
	Sequence string `mapstructure:"sequence"`
	Variant  string `mapstructure:"variant"`
}

// HLAColumns maps the logical HLA fields to their source columns.
type HLAColumns struct {
	Allele string `mapstructure:"allele"`
	Gene   string `mapstructure:"gene"`
}

// ScoreColumns maps the logical score-table fields to their source columns.
type ScoreColumns struct {
	Allele  string `mapstructure:"allele"`
	Peptide string `mapstructure:"peptide"`
	Score   string `mapstructure:"score"`
}

// ColumnConfig gathers the column maps for every input table. They are
// resolved once at load time; the core only ever sees typed records.
type ColumnConfig struct {
	Genes              GeneColumns    `mapstructure:"genes"`
	Variants           VariantColumns `mapstructure:"variants"`
	Peptides           PeptideColumns `mapstructure:"peptides"`
	HLAs               HLAColumns     `mapstructure:"hlas"`
	BindingScores      ScoreColumns   `mapstructure:"binding-scores"`
	CleavageScores     ScoreColumns   `mapstructure:"cleavage-scores"`
	PresentationScores ScoreColumns   `mapstructure:"presentation-scores"`
}

// SimulationSpec is one named population simulation setting.
type SimulationSpec struct {
	Name                  string  `mapstructure:"name"`
	NumCells              int     `mapstructure:"num-cells"`
	ExpressionPseudocount float64 `mapstructure:"expression-pseudocount"`
	NumRepetitions        int     `mapstructure:"num-repetitions"`
}

// SimulationConfig drives the `simulate` command.
type SimulationConfig struct {
	// where the simulated cell populations are written
	CellsOut string `mapstructure:"cells-out"`

	// number of cells assembled concurrently; 0 means GOMAXPROCS
	Workers int `mapstructure:"workers"`

	Simulations []SimulationSpec `mapstructure:"simulations"`
}

// OptimizationSpec is one named vaccine-design setting.
type OptimizationSpec struct {
	Name string `mapstructure:"name"`

	// MinSum or MinMax
	Criterion string `mapstructure:"criterion"`

	// the maximum total weight of the selected vaccine elements
	Budget float64 `mapstructure:"budget"`

	// wall-clock limit per solve; 0 means unbounded
	MaxSolvingSeconds int `mapstructure:"max-solving-seconds"`

	// "peptides" or "mutations"
	VaccineElements string `mapstructure:"vaccine-elements"`

	// optional weight column in the peptide table; unset means unit weights
	WeightColumn string `mapstructure:"weight-column"`

	// scaling of presentation counts into response probabilities;
	// 0 means adaptive (1 / max presentation count)
	ResponseFactor float64 `mapstructure:"response-factor"`

	// optional distance-from-self table and its columns
	DistanceFromSelf        string `mapstructure:"distance-from-self"`
	DistanceFromSelfPeptide string `mapstructure:"distance-from-self-peptide"`
	DistanceFromSelfColumn  string `mapstructure:"distance-from-self-column"`

	// elements forced into every selection
	FixedElements []string `mapstructure:"fixed-elements"`

	// output paths
	ScoresOut  string `mapstructure:"scores-out"`
	Out        string `mapstructure:"out"`
	VaccineOut string `mapstructure:"vaccine-out"`
}

// OptimizationConfig drives the `optimize` command.
type OptimizationConfig struct {
	// the cell-population table written by `simulate`
	Cells string `mapstructure:"cells"`

	// worker pool sizing: NumProcs instances solve concurrently and each
	// solver may use NumThreadsPerProc threads
	NumProcs          int `mapstructure:"num-procs"`
	NumThreadsPerProc int `mapstructure:"num-threads-per-proc"`

	Optimizations []OptimizationSpec `mapstructure:"optimizations"`
}

// EvaluationConfig drives the `evaluate` command.
type EvaluationConfig struct {
	// the optimization setting whose pooled vaccine is evaluated
	Optimization string `mapstructure:"optimization"`

	Out string `mapstructure:"out"`
}

// Config is the root-level settings struct, read from a single YAML file.
type Config struct {
	Seed uint64 `mapstructure:"seed"`

	Files   FileConfig   `mapstructure:"files"`
	Columns ColumnConfig `mapstructure:"columns"`

	Simulation   SimulationConfig   `mapstructure:"simulation"`
	Optimization OptimizationConfig `mapstructure:"optimization"`
	Evaluation   EvaluationConfig   `mapstructure:"evaluation"`
}

// setDefaults registers the column names and parameters assumed when the
// config file leaves them out.
func setDefaults(v *viper.Viper) {
	v.SetDefault("seed", 42)

	v.SetDefault("columns.genes.name", "gene_id")
	v.SetDefault("columns.genes.expression-mean", "expression_mean")
	v.SetDefault("columns.genes.expression-var", "expression_var")
	v.SetDefault("columns.genes.default-mean", 0)
	v.SetDefault("columns.genes.default-var", 1)

	v.SetDefault("columns.variants.name", "mutation_id")
	v.SetDefault("columns.variants.gene", "gene_id")
	v.SetDefault("columns.variants.dna-ref", "dna_ref_depth")
	v.SetDefault("columns.variants.dna-alt", "dna_alt_depth")
	v.SetDefault("columns.variants.rna-ref", "rna_ref_depth")
	v.SetDefault("columns.variants.rna-alt", "rna_alt_depth")

	v.SetDefault("columns.peptides.sequence", "peptide")
	v.SetDefault("columns.peptides.variant", "mutation_id")

	v.SetDefault("columns.hlas.allele", "allele_name")
	v.SetDefault("columns.hlas.gene", "gene_id")

	for _, scores := range []string{"binding-scores", "cleavage-scores", "presentation-scores"} {
		v.SetDefault("columns."+scores+".allele", "allele")
		v.SetDefault("columns."+scores+".peptide", "peptide")
		v.SetDefault("columns."+scores+".score", "score")
	}

	v.SetDefault("optimization.num-procs", 1)
	v.SetDefault("optimization.num-threads-per-proc", 1)
}

// Load reads and validates the configuration file at path.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("failed to decode config %s: %w", path, err)
	}

	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) validate() error {
	for _, sim := range c.Simulation.Simulations {
		if sim.Name == "" {
			return fmt.Errorf("a simulation is missing its name")
		}
		if sim.NumCells <= 0 {
			return fmt.Errorf("simulation %s: num-cells must be positive", sim.Name)
		}
		if sim.NumRepetitions <= 0 {
			return fmt.Errorf("simulation %s: num-repetitions must be positive", sim.Name)
		}
	}

	for _, opt := range c.Optimization.Optimizations {
		if opt.Name == "" {
			return fmt.Errorf("an optimization is missing its name")
		}
		if opt.Criterion != "MinSum" && opt.Criterion != "MinMax" {
			return fmt.Errorf("optimization %s: unknown criterion %q", opt.Name, opt.Criterion)
		}
		if opt.VaccineElements != "" && opt.VaccineElements != "peptides" && opt.VaccineElements != "mutations" {
			return fmt.Errorf("optimization %s: vaccine-elements must be peptides or mutations", opt.Name)
		}
		if opt.Budget < 0 {
			return fmt.Errorf("optimization %s: budget cannot be negative", opt.Name)
		}
	}
	return nil
}
