package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"ragequit/config"
	"ragequit/pkg/parser"
)

var (
	filterChain  string
	filterSymbol string
)

var tokensCmd = &cobra.Command{
	Use:     "list-tokens",
	Aliases: []string{"tokens", "ls"},
	Short:   "List configured chains, risk tokens and stablecoins",
	Long: `List the risk tokens ragequit scans and the stablecoin each chain swaps into.

You can filter tokens by chain or symbol.

Examples:
  ragequit list-tokens
  ragequit list-tokens --chain base
  ragequit list-tokens --symbol DEGEN`,
	Run: runListTokens,
}

func init() {
	rootCmd.AddCommand(tokensCmd)

	tokensCmd.Flags().StringVar(&filterChain, "chain", "", "Filter by chain name or id")
	tokensCmd.Flags().StringVar(&filterSymbol, "symbol", "", "Filter by token symbol")
}

type tokenRow struct {
	ChainID   int64  `json:"chain_id"`
	ChainName string `json:"chain_name"`
	Symbol    string `json:"symbol"`
	Address   string `json:"address"`
	Decimals  uint8  `json:"decimals"`
	Target    string `json:"target"`
}

func listTokens(cfg *config.Config, chainFilter, symbolFilter string) []tokenRow {
	symbolFilter = parser.NormalizeTokenSymbol(symbolFilter)

	var rows []tokenRow
	for _, ch := range cfg.Chains {
		if chainFilter != "" && !strings.EqualFold(ch.Name, chainFilter) && fmt.Sprint(ch.ID) != chainFilter {
			continue
		}
		for _, tok := range ch.Tokens {
			if symbolFilter != "" && parser.NormalizeTokenSymbol(tok.Symbol) != symbolFilter {
				continue
			}
			rows = append(rows, tokenRow{
				ChainID:   ch.ID,
				ChainName: ch.Name,
				Symbol:    tok.Symbol,
				Address:   tok.Address,
				Decimals:  tok.Decimals,
				Target:    ch.Stablecoin.Symbol,
			})
		}
	}
	return rows
}

func runListTokens(cmd *cobra.Command, args []string) {
	jsonOutput, _ := cmd.Flags().GetBool("json")

	// Load configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	rows := listTokens(cfg, filterChain, filterSymbol)

	if jsonOutput {
		printJSON(rows)
		return
	}

	if len(rows) == 0 {
		fmt.Println("\nNo tokens found matching the filters.")
		return
	}

	fmt.Printf("\n%s\n\n", color.GreenString("Risk tokens (%d):", len(rows)))
	fmt.Printf("  %-10s %-10s %-44s %s\n", "CHAIN", "SYMBOL", "ADDRESS", "SWAPS TO")
	fmt.Println("  " + strings.Repeat("-", 76))
	for _, r := range rows {
		fmt.Printf("  %-10s %-10s %-44s %s\n", r.ChainName, color.YellowString(r.Symbol), r.Address, r.Target)
	}
	fmt.Println()
}
