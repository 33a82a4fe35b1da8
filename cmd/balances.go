package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"ragequit/pkg/chain"
)

var balancesAddress string

var balancesCmd = &cobra.Command{
	Use:     "balances",
	Aliases: []string{"bal"},
	Short:   "Show risk token balances across chains",
	Long: `Scan every configured chain for balances of the configured risk tokens.

Examples:
  ragequit balances
  ragequit balances --address 0x1234...abcd`,
	Args: cobra.NoArgs,
	Run:  runBalances,
}

func init() {
	rootCmd.AddCommand(balancesCmd)

	balancesCmd.Flags().StringVar(&balancesAddress, "address", "", "Wallet to scan (default: configured wallet)")
}

func runBalances(cmd *cobra.Command, args []string) {
	a, err := newApp(cmd)
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	defer a.Close()

	owner := balancesAddress
	if owner == "" {
		signer, err := a.signer()
		if err != nil {
			printError(err)
			os.Exit(1)
		}
		owner = signer.Address()
	}
	if !common.IsHexAddress(owner) {
		printError(fmt.Errorf("invalid address: %s", owner))
		os.Exit(1)
	}

	s := a.spinner("Scanning balances...")
	positions, err := chain.NewScanner(a.pool, a.logger).Scan(context.Background(), owner, a.cfg.ScanTokens())
	s.Stop()
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	if a.json {
		printJSON(positions)
		return
	}

	fmt.Println("\n" + strings.Repeat("=", 60))
	color.Green("                      BALANCES")
	fmt.Println(strings.Repeat("=", 60))
	fmt.Printf("\n  Wallet: %s\n", color.CyanString(owner))

	if len(positions) == 0 {
		fmt.Println("\n  No risk token balances found.")
	}
	for _, p := range positions {
		fmt.Printf("\n  %-10s %-24s %s", color.YellowString(p.Symbol), p.HumanBalance, chainLabel(p))
	}
	fmt.Println("\n\n" + strings.Repeat("=", 60) + "\n")
}
