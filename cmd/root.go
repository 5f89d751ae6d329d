// Package cmd is for command line interactions with the neoagdt application
package cmd

import (
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/nec-research/neoagdt/config"
	"github.com/nec-research/neoagdt/logger"
)

var (
	configPath string
	verbosity  string

	// cfg is loaded before any subcommand runs
	cfg *config.Config
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use: "neoagdt",
	Short: `Design neoantigen vaccines against simulated cancer-cell populations.
Simulate a patient's tumor as a population of cells, then select the vaccine
elements most likely to trigger an immune response against it`,
	Version:       "0.1.0",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level, err := zapcore.ParseLevel(verbosity)
		if err != nil {
			return fmt.Errorf("unknown verbosity %q: %w", verbosity, err)
		}
		if err := logger.Init(level); err != nil {
			return err
		}

		if cfg, err = config.Load(configPath); err != nil {
			return err
		}

		logger.Info("starting run",
			zap.String("run-id", uuid.NewString()),
			zap.String("command", cmd.Name()),
			zap.String("config", configPath))
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	defer logger.Sync()

	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("%v", err)
	}
}

// set flags
func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "neoagdt.yaml", "path to the YAML configuration file")
	rootCmd.PersistentFlags().StringVar(&verbosity, "verbosity", "info", "log verbosity (debug, info, warn, error)")
}
