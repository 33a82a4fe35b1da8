package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "ragequit",
	Short: "Swap every risky token you hold into stablecoins in one batch",
	Long: `ragequit scans your wallet across EVM chains and swaps the selected
tokens into each chain's stablecoin through the 1inch aggregator. Approvals
and swaps on a chain run in parallel; chains are processed one after another.

Examples:
  ragequit balances
  ragequit run --yes
  ragequit run --only DEGEN --amount DEGEN=1500 --record
  ragequit run --dry-run
  ragequit history
  ragequit status base 0xabc...`,
	Version:      "0.1.0",
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Add global flags
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "Output in JSON format")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default $HOME/.ragequit.yaml or ./.ragequit.yaml)")
}

func printError(err error) {
	fmt.Printf("\nError: %v\n\n", err)
}

func printSuccess(message string) {
	fmt.Printf("\n%s\n\n", message)
}
