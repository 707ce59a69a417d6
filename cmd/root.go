package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	seed         int64  // Master seed for all stochastic subsystems
	durationTick int64  // Total simulation length (in ticks)
	logLevel     string // Log verbosity level
	scenarioFile string // Optional YAML scenario file
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "chainsim",
	Short: "Discrete-time simulator for supply-chain networks",
}

// runCmd executes the simulation using parameters from CLI flags
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the supply-chain simulation",
	Run: func(cmd *cobra.Command, args []string) {
		// Set up logging
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			logrus.Fatalf("Invalid log level: %s", logLevel)
		}
		logger := logrus.StandardLogger()
		logger.SetLevel(level)

		cfg := DefaultScenario()
		if scenarioFile != "" {
			cfg, err = LoadScenario(scenarioFile)
			if err != nil {
				logrus.Fatalf("unable to load scenario: %v", err)
			}
		}
		if cmd.Flags().Changed("seed") {
			cfg.Seed = seed
		}
		if cmd.Flags().Changed("ticks") {
			cfg.DurationTicks = durationTick
		}

		logrus.Infof("Starting scenario %q: %d retailers, %d distributors, horizon=%d ticks, seed=%d",
			cfg.Name, cfg.Retailers, cfg.Distributors, cfg.DurationTicks, cfg.Seed)

		network, err := BuildNetwork(cfg, logger)
		if err != nil {
			logrus.Fatalf("unable to build network: %v", err)
		}

		startTime := time.Now()
		network.Scheduler.RunForTicks(cfg.DurationTicks)
		state := network.Scheduler.State()
		network.Scheduler.Stop()

		network.Tracker.Print(state.Tick)
		fmt.Printf("Wall Time            : %.2fs\n", time.Since(startTime).Seconds())
		logrus.Info("Simulation complete.")
	},
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// init sets up CLI flags and subcommands
func init() {
	runCmd.Flags().Int64Var(&seed, "seed", 42, "Seed for demand and event randomness")
	runCmd.Flags().Int64Var(&durationTick, "ticks", 200, "Total simulation length (in ticks)")
	runCmd.Flags().StringVar(&logLevel, "log", "error", "Log level (trace, debug, info, warn, error, fatal, panic)")
	runCmd.Flags().StringVar(&scenarioFile, "scenario", "", "Path to a YAML scenario file")

	rootCmd.AddCommand(runCmd)
}
