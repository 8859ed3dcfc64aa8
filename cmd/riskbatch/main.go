// Command riskbatch is the single entrypoint for every riskbatch process
// role (http api, worker, migrate), following cuemby-warren's cmd/warren
// pattern: one binary, one cobra root command, one subcommand per role.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	configPath string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "riskbatch",
	Short: "riskbatch runs distributed financial risk batch computations",
	Long: `riskbatch orchestrates scenario-driven valuation runs across a
relational task queue, with a pool of stateless workers claiming and
pricing positions via a pluggable per-product pricer registry.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to an optional YAML config file layered under environment variables")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(workerCmd)
	rootCmd.AddCommand(migrateCmd)
}
