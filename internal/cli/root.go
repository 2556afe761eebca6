// Package cli implements the homeledger command-line interface.
package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

// Version is stamped at build time.
var Version = "0.1.0"

var rootCmd = &cobra.Command{
	Use:   "homeledger",
	Short: "Household expense ledger with automatic payment allocation",
	Long: `homeledger tracks a household's recurring expenses, meter readings,
and payments, and automatically allocates incoming payments across
outstanding debts by category priority and age. Surplus money is
carried forward as credit.`,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the homeledger version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("homeledger", Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.PersistentFlags().String("config", defaultConfigPath(), "Path to config file")
}

func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.toml"
	}
	return filepath.Join(home, ".homeledger", "config.toml")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
