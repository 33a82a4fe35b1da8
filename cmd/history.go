package cmd

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"ragequit/pkg/chain"
	"ragequit/pkg/history"
)

var (
	historyLimit   int
	historyDelete  bool
	historyOnChain bool
)

var historyCmd = &cobra.Command{
	Use:   "history [run-id]",
	Short: "Show past RageQuit runs",
	Long: `List finished runs, newest first, or show one run in detail.
A unique prefix of the run ID is enough.

Examples:
  ragequit history
  ragequit history --limit 5
  ragequit history 3f2a
  ragequit history --onchain
  ragequit history 3f2a --delete`,
	Args: cobra.MaximumNArgs(1),
	Run:  runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 10, "Number of runs to list (0 for all)")
	historyCmd.Flags().BoolVar(&historyDelete, "delete", false, "Delete the given run from history")
	historyCmd.Flags().BoolVar(&historyOnChain, "onchain", false, "Also read the wallet's recorded total from the counter contract")
}

func runHistory(cmd *cobra.Command, args []string) {
	a, err := newApp(cmd)
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	defer a.Close()

	mgr, err := history.NewManager(a.cfg.History.Path)
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	if historyDelete {
		if len(args) != 1 {
			printError(fmt.Errorf("--delete needs a run ID"))
			os.Exit(1)
		}
		id, err := mgr.Delete(args[0])
		if err != nil {
			printError(err)
			os.Exit(1)
		}
		printSuccess(fmt.Sprintf("Deleted run %s", id))
		return
	}

	if len(args) == 1 {
		run, err := mgr.Get(args[0])
		if err != nil {
			printError(err)
			os.Exit(1)
		}
		if a.json {
			printJSON(run)
		} else {
			displayResult(run)
		}
		return
	}

	runs := mgr.List(historyLimit)
	stats := mgr.Stats()

	var recorded *big.Int
	if historyOnChain {
		recorded, err = a.recordedCount(context.Background())
		if err != nil {
			a.logger.Warn("Failed to read on-chain RageQuit count", zap.Error(err))
		}
	}

	if a.json {
		out := map[string]interface{}{
			"stats": stats,
			"runs":  runs,
		}
		if recorded != nil {
			out["onchain_count"] = recorded.String()
		}
		printJSON(out)
		return
	}

	if recorded != nil {
		fmt.Printf("On-chain RageQuits: %s\n", recorded.String())
	}

	if len(runs) == 0 {
		printSuccess("No runs recorded yet.")
		return
	}

	fmt.Println("\n" + strings.Repeat("=", 70))
	color.Green("                         RUN HISTORY")
	fmt.Println(strings.Repeat("=", 70))
	fmt.Printf("\n  Runs: %d   Completed: %d   Aborted: %d   Recorded: %d\n",
		stats.Runs, stats.Completed, stats.Aborted, stats.Recorded)
	fmt.Printf("  Tokens swapped: %d   Tokens failed: %d\n\n", stats.TokensSwapped, stats.TokensFailed)

	for _, run := range runs {
		fmt.Printf("  %s  %s  %-9s %d swapped, %d failed\n",
			color.CyanString(shortID(run.ID)),
			run.FinishedAt.Local().Format("2006-01-02 15:04"),
			string(run.State),
			run.SwappedCount(),
			run.FailedCount(),
		)
	}
	fmt.Println("\n" + strings.Repeat("=", 70) + "\n")
}

// recordedCount reads the configured wallet's total from the counter contract
func (a *app) recordedCount(ctx context.Context) (*big.Int, error) {
	if a.cfg.Recorder.ChainID == 0 {
		return nil, errors.New("recorder is disabled")
	}
	signer, err := a.signer()
	if err != nil {
		return nil, err
	}
	recorder, err := chain.NewRecorder(a.cfg.Recorder.ChainID, a.cfg.Recorder.Contract)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	return recorder.Count(ctx, a.pool, signer.Address())
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
