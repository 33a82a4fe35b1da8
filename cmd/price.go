package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"ragequit/config"
	"ragequit/pkg/parser"
)

var priceCmd = &cobra.Command{
	Use:   "price <chain> <symbol|address>",
	Short: "Show the aggregator price of a token",
	Long: `Look up a token price through the aggregator price API.

Examples:
  ragequit price base DEGEN
  ragequit price 1 0x6982508145454Ce325dDbE47a25d4ec3d2311933`,
	Args: cobra.ExactArgs(2),
	Run:  runPrice,
}

func init() {
	rootCmd.AddCommand(priceCmd)
}

// resolveToken maps a symbol or address to a token address on ch
func resolveToken(ch config.ChainConfig, ref string) (string, string, error) {
	if common.IsHexAddress(ref) {
		return ref, ref, nil
	}
	symbol := parser.NormalizeTokenSymbol(ref)
	if parser.NormalizeTokenSymbol(ch.Stablecoin.Symbol) == symbol {
		return ch.Stablecoin.Address, ch.Stablecoin.Symbol, nil
	}
	for _, tok := range ch.Tokens {
		if parser.NormalizeTokenSymbol(tok.Symbol) == symbol {
			return tok.Address, tok.Symbol, nil
		}
	}
	return "", "", fmt.Errorf("unknown token %q on %s", ref, ch.Name)
}

func runPrice(cmd *cobra.Command, args []string) {
	a, err := newApp(cmd)
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	defer a.Close()

	ch, ok := a.cfg.Chain(args[0])
	if !ok {
		printError(fmt.Errorf("unknown chain: %s", args[0]))
		os.Exit(1)
	}
	address, symbol, err := resolveToken(ch, args[1])
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	agg, err := a.aggregator()
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	s := a.spinner("Fetching price...")
	price, err := agg.Price(context.Background(), ch.ID, address)
	s.Stop()
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	if a.json {
		printJSON(map[string]interface{}{
			"chain_id": ch.ID,
			"token":    address,
			"symbol":   symbol,
			"price":    price.String(),
		})
		return
	}

	fmt.Printf("\n  %s on %s: %s\n\n", color.YellowString(symbol), ch.Name, color.GreenString(price.String()))
}
