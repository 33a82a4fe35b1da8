package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"ragequit/pkg/chain"
)

var (
	watchStatus   bool
	watchInterval int
)

var statusCmd = &cobra.Command{
	Use:   "status <chain> <tx-hash>",
	Short: "Check the status of a transaction",
	Long: `Check whether an approval, swap or record transaction has been mined.

Examples:
  ragequit status base 0x1234...abcd
  ragequit status 8453 0x1234...abcd --watch
  ragequit status base 0x1234...abcd --watch --interval 10`,
	Args: cobra.ExactArgs(2),
	Run:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().BoolVarP(&watchStatus, "watch", "w", false, "Watch until the transaction is mined")
	statusCmd.Flags().IntVar(&watchInterval, "interval", 5, "Polling interval in seconds (when watching)")
}

func runStatus(cmd *cobra.Command, args []string) {
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
	txHash := args[1]
	if len(common.FromHex(txHash)) != common.HashLength {
		printError(fmt.Errorf("invalid transaction hash: %s", txHash))
		os.Exit(1)
	}

	watcher := chain.NewReceiptWatcher(a.pool, a.logger)

	if watchStatus {
		watchTxStatus(a, watcher, ch.ID, txHash)
	} else {
		checkTxStatus(a, watcher, ch.ID, txHash)
	}
}

func checkTxStatus(a *app, watcher *chain.ReceiptWatcher, chainID int64, txHash string) {
	s := a.spinner("Checking transaction status...")
	info, err := watcher.Lookup(context.Background(), chainID, txHash)
	s.Stop()

	if err != nil {
		printError(err)
		os.Exit(1)
	}

	if a.json {
		printJSON(info)
	} else {
		displayStatus(info)
	}
}

func watchTxStatus(a *app, watcher *chain.ReceiptWatcher, chainID int64, txHash string) {
	if a.json {
		fmt.Println(`{"error": "watch mode not supported with JSON output"}`)
		os.Exit(1)
	}

	fmt.Printf("\nWatching transaction %s\n", color.CyanString(txHash))
	fmt.Printf("Checking every %d seconds. Press Ctrl+C to stop.\n\n", watchInterval)

	ticker := time.NewTicker(time.Duration(watchInterval) * time.Second)
	defer ticker.Stop()

	// Check immediately first
	if checkAndDisplayStatus(watcher, chainID, txHash) {
		return
	}

	for range ticker.C {
		if checkAndDisplayStatus(watcher, chainID, txHash) {
			return
		}
	}
}

// checkAndDisplayStatus reports whether the transaction reached a final state
func checkAndDisplayStatus(watcher *chain.ReceiptWatcher, chainID int64, txHash string) bool {
	info, err := watcher.Lookup(context.Background(), chainID, txHash)
	if err != nil {
		color.Red("Error: %v", err)
		return false
	}

	displayStatus(info)
	return info.Status != "pending"
}

func displayStatus(info *chain.TxInfo) {
	fmt.Println("\n" + strings.Repeat("=", 70))
	color.Green("                     TRANSACTION STATUS")
	fmt.Println(strings.Repeat("=", 70))

	fmt.Printf("\n  Hash:      %s\n", color.CyanString(info.Hash))
	fmt.Printf("  Chain:     %d\n", info.ChainID)
	fmt.Printf("  Status:    %s\n", getColoredStatus(info.Status))
	if info.To != "" {
		fmt.Printf("  To:        %s\n", info.To)
	}
	fmt.Printf("  Nonce:     %d\n", info.Nonce)
	fmt.Printf("  Gas Limit: %d\n", info.GasLimit)
	if info.BlockNumber > 0 {
		fmt.Printf("  Block:     %d\n", info.BlockNumber)
		fmt.Printf("  Gas Used:  %d\n", info.GasUsed)
	}

	fmt.Println("\n" + strings.Repeat("=", 70) + "\n")
}

func getColoredStatus(status string) string {
	status = strings.ToUpper(status)

	switch status {
	case "SUCCESS":
		return color.GreenString(status)
	case "PENDING":
		return color.YellowString(status)
	case "REVERTED":
		return color.RedString(status)
	default:
		return status
	}
}
