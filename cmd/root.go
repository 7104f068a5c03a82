// cmd/root.go
package cmd

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/dpws-sim/dpws-sim/internal/config"
	"github.com/dpws-sim/dpws-sim/internal/simulation"
)

var (
	configFile          string
	printConfiguration  bool
	printTopology       bool
	progressLogInterval int
	logLevel            string
	numWorkers          int
	workerID            int
)

var rootCmd = &cobra.Command{
	Use:   "dpws-sim",
	Short: "Discrete-event simulator for distributed pulse-wave DDoS scenarios",
	RunE: func(cmd *cobra.Command, args []string) error {
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			logrus.Fatalf("Invalid log level: %s", logLevel)
		}
		logrus.SetLevel(level)

		cfg, err := config.Load(configFile)
		if err != nil {
			return err
		}
		logrus.Infof("Starting simulation: duration=%.1fs, %d transit nodes, %d autonomous systems, %d attackers, %d targets",
			cfg.GlobalSettings.Scheduling.SimulationDurationS,
			len(cfg.CentralNetwork.Nodes), len(cfg.AutonomousSystems),
			len(cfg.AttackerNodes), len(cfg.TargetServerNodes))

		result, err := simulation.Run(cfg, simulation.Options{
			ThisWorker:           workerID,
			NumWorkers:           numWorkers,
			ProgressLogIntervalS: progressLogInterval,
			PrintConfiguration:   printConfiguration,
			PrintTopology:        printTopology,
		})
		if err != nil {
			return err
		}

		fmt.Println("Target addresses:")
		for i, addr := range result.TargetAddresses {
			fmt.Printf("  %s: %s\n", cfg.TargetServerNodes[i].ID, addr)
		}
		fmt.Println("Attacker addresses:")
		for i, addr := range result.AttackerAddresses {
			fmt.Printf("  %s: %s\n", cfg.AttackerNodes[i].ID, addr)
		}
		if printTopology {
			fmt.Print(result.TopologyDump)
		}
		logrus.Info("Simulation complete.")
		return nil
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.Flags().StringVar(&configFile, "configFile", "", "Path to the YAML scenario configuration (required)")
	rootCmd.Flags().BoolVar(&printConfiguration, "printConfiguration", false, "Dump the effective configuration (defaults applied) before running")
	rootCmd.Flags().BoolVar(&printTopology, "printTopology", true, "Print the randomized topology dump after the run")
	rootCmd.Flags().IntVar(&progressLogInterval, "progressLogInterval", 15, "Seconds of virtual time between progress reports (0 disables)")
	rootCmd.Flags().StringVar(&logLevel, "log", "info", "Log level (debug, info, warn, error)")
	rootCmd.Flags().IntVar(&numWorkers, "numWorkers", 1, "Total worker count the topology is partitioned across")
	rootCmd.Flags().IntVar(&workerID, "workerId", 0, "This worker's partition id in [0, numWorkers)")
	_ = rootCmd.MarkFlagRequired("configFile")
}
