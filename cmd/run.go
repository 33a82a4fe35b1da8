package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"ragequit/pkg/aggregator"
	"ragequit/pkg/chain"
	"ragequit/pkg/history"
	"ragequit/pkg/rescue"
	"ragequit/pkg/selection"
	"ragequit/pkg/types"
)

var errConfirmationRequired = errors.New("confirmation required: --json cannot prompt, pass --yes to send transactions")

var (
	onlySymbols     []string
	amountOverrides []string
	recordOnChain   bool
	noConfirm       bool
	dryRun          bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Swap selected tokens into stablecoins",
	Long: `Scan the wallet, select tokens and swap them into each chain's stablecoin.

Every token with a balance is selected at its full balance unless --only
narrows the selection. --amount swaps part of a balance.

Examples:
  ragequit run
  ragequit run --only DEGEN --only PEPE
  ragequit run --amount DEGEN=1500 --amount 1:PEPE=0.5
  ragequit run --record --yes
  ragequit run --dry-run`,
	Args: cobra.NoArgs,
	Run:  runRageQuit,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringArrayVar(&onlySymbols, "only", nil, "Only swap this token symbol (repeatable)")
	runCmd.Flags().StringArrayVar(&amountOverrides, "amount", nil, "Partial amount as SYMBOL=AMOUNT or CHAIN:SYMBOL=AMOUNT (repeatable)")
	runCmd.Flags().BoolVar(&recordOnChain, "record", false, "Record the batch on-chain after swapping")
	runCmd.Flags().BoolVarP(&noConfirm, "yes", "y", false, "Skip confirmation prompt")
	runCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Show expected output without sending transactions")
}

func runRageQuit(cmd *cobra.Command, args []string) {
	a, err := newApp(cmd)
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	defer a.Close()

	agg, err := a.aggregator()
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	signer, err := a.signer()
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s := a.spinner("Scanning balances...")
	positions, err := chain.NewScanner(a.pool, a.logger).Scan(ctx, signer.Address(), a.cfg.ScanTokens())
	s.Stop()
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	store := selection.NewStore()
	store.SetPositions(positions)
	if err := selectPositions(store, onlySymbols, amountOverrides); err != nil {
		printError(err)
		os.Exit(1)
	}

	selected := store.Selected()
	if len(selected) == 0 {
		printSuccess("Nothing to swap: no risk tokens with a balance were selected.")
		return
	}

	targets := a.cfg.Targets()
	if !a.json {
		displaySelections(selected, targets)
	}

	if dryRun {
		quotes := quoteSelections(ctx, a, agg, selected, targets)
		if a.json {
			printJSON(quotes)
		} else {
			displayQuotes(quotes)
		}
		return
	}

	ok, err := confirmRun(os.Stdin, noConfirm, a.json, len(selected))
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	if !ok {
		fmt.Println("\nRageQuit cancelled.")
		os.Exit(0)
	}

	watcher := chain.NewReceiptWatcher(a.pool, a.logger)
	orchestrator := rescue.NewOrchestrator(signer, agg, watcher, store, rescue.Settings{
		SlippagePercent:     a.cfg.Run.SlippagePercent,
		SettleDelay:         a.cfg.Run.SettleDelay,
		ConfirmationTimeout: a.cfg.Run.ConfirmationTimeout,
		Targets:             targets,
	}, a.logger)

	record := recordOnChain || a.cfg.Run.RecordOnChain
	if record {
		recorder, err := chain.NewRecorder(a.cfg.Recorder.ChainID, a.cfg.Recorder.Contract)
		if err != nil {
			printError(err)
			os.Exit(1)
		}
		orchestrator.WithRecorder(recorder)
	}

	s = a.spinner("Starting RageQuit...")
	result, runErr := orchestrator.Run(ctx, rescue.RunOptions{
		RecordOnChain: record,
		Observer:      &spinnerObserver{spinner: s, verbose: a.verbose},
	})
	s.Stop()

	if result != nil && len(result.Outcomes) > 0 {
		store.ApplyOutcomes(result.Outcomes)
		saveHistory(a, result)
	}

	if a.json {
		printJSON(result)
	} else if result != nil {
		displayResult(result)
	}

	if runErr != nil {
		printError(runErr)
		os.Exit(1)
	}
	if result.FailedCount() > 0 {
		os.Exit(2)
	}
}

func saveHistory(a *app, result *types.RunResult) {
	mgr, err := history.NewManager(a.cfg.History.Path)
	if err == nil {
		err = mgr.Record(result)
	}
	if err != nil {
		a.logger.Warn("failed to save run history", zap.Error(err))
	}
}

// spinnerObserver mirrors run events on the terminal spinner
type spinnerObserver struct {
	spinner  *spinner.Spinner
	verbose  bool
	progress types.RunProgress
}

func (o *spinnerObserver) OnState(_ types.RunState, status string) {
	o.progress.Status = status
	o.update()
}

func (o *spinnerObserver) OnProgress(progress types.RunProgress) {
	o.progress = progress
	o.update()
}

func (o *spinnerObserver) OnOutcome(outcome types.TokenSwapOutcome) {
	if !o.verbose {
		return
	}
	o.spinner.Lock()
	defer o.spinner.Unlock()
	fmt.Fprintf(os.Stderr, "\r  %s %s\n", outcome.Symbol, coloredOutcome(outcome.Status))
}

func (o *spinnerObserver) update() {
	suffix := " " + o.progress.Status
	if o.progress.TotalSteps > 0 {
		suffix = fmt.Sprintf(" [%3.0f%%] %s", o.progress.Percent(), o.progress.Status)
	}
	o.spinner.Lock()
	o.spinner.Suffix = suffix
	o.spinner.Unlock()
}

type quoteLine struct {
	ChainID  int64  `json:"chain_id"`
	Symbol   string `json:"symbol"`
	Amount   string `json:"amount"`
	Target   string `json:"target"`
	Expected string `json:"expected,omitempty"`
	Err      string `json:"error,omitempty"`
}

func quoteSelections(ctx context.Context, a *app, agg *aggregator.Client, selected []types.Selection, targets map[int64]types.SwapTarget) []quoteLine {
	s := a.spinner("Fetching quotes...")
	defer s.Stop()

	var lines []quoteLine
	for _, entry := range rescue.Resolve(selected) {
		p := entry.Position
		target := targets[p.ChainID]
		line := quoteLine{ChainID: p.ChainID, Symbol: p.Symbol, Amount: types.FromRaw(entry.Amount, p.Decimals), Target: target.Symbol}

		out, err := agg.Quote(ctx, p.ChainID, p.Address, target.Address, entry.Amount)
		if err != nil {
			line.Err = err.Error()
		} else {
			line.Expected = types.FromRaw(out, target.Decimals)
		}
		lines = append(lines, line)
	}
	return lines
}

func displaySelections(selected []types.Selection, targets map[int64]types.SwapTarget) {
	fmt.Println("\n" + strings.Repeat("=", 60))
	color.Green("                    RAGEQUIT SELECTION")
	fmt.Println(strings.Repeat("=", 60))

	for _, sel := range selected {
		p := sel.Position
		fmt.Printf("\n  %-10s %s of %s on %s -> %s",
			color.YellowString(p.Symbol), sel.Amount, p.HumanBalance, chainLabel(p), targets[p.ChainID].Symbol)
	}
	fmt.Println("\n\n" + strings.Repeat("=", 60))
}

func displayQuotes(lines []quoteLine) {
	fmt.Println("\n" + strings.Repeat("=", 60))
	color.Green("                      DRY RUN")
	fmt.Println(strings.Repeat("=", 60))

	for _, l := range lines {
		if l.Err != "" {
			fmt.Printf("\n  %-10s %s  %s", color.YellowString(l.Symbol), l.Amount, color.RedString(l.Err))
			continue
		}
		fmt.Printf("\n  %-10s %s -> ~%s %s", color.YellowString(l.Symbol), l.Amount, l.Expected, l.Target)
	}
	fmt.Println("\n\n" + strings.Repeat("=", 60) + "\n")
}

func displayResult(result *types.RunResult) {
	fmt.Println("\n" + strings.Repeat("=", 70))
	color.Green("                        RAGEQUIT RESULT")
	fmt.Println(strings.Repeat("=", 70))

	fmt.Printf("\n  Run ID:   %s\n", color.CyanString(result.ID))
	fmt.Printf("  Status:   %s\n", result.Status)
	fmt.Printf("  Swapped:  %d   Failed: %d\n", result.SwappedCount(), result.FailedCount())
	if result.RecordTx != "" {
		fmt.Printf("  Record:   %s\n", color.HiBlackString(result.RecordTx))
	}

	for _, o := range result.Outcomes {
		fmt.Printf("\n  %-10s %-28s", color.YellowString(o.Symbol), coloredOutcome(o.Status))
		if o.SwapTx != "" {
			fmt.Printf(" %s", color.HiBlackString(o.SwapTx))
		}
		if o.Err != "" {
			fmt.Printf(" %s", color.RedString(o.Err))
		}
	}

	fmt.Println("\n\n" + strings.Repeat("=", 70) + "\n")
}

func coloredOutcome(status types.OutcomeStatus) string {
	text := strings.ToUpper(string(status))
	switch {
	case status == types.OutcomeSwapped:
		return color.GreenString(text)
	case !status.IsFailure():
		return color.HiBlackString(text)
	default:
		return color.RedString(text)
	}
}

func chainLabel(p types.TokenPosition) string {
	if p.ChainName != "" {
		return p.ChainName
	}
	return fmt.Sprintf("chain %d", p.ChainID)
}

// confirmRun asks before any transaction is sent. Only --yes skips the
// prompt; JSON output cannot prompt, so it needs --yes to proceed.
func confirmRun(in io.Reader, yes, jsonOutput bool, count int) (bool, error) {
	if yes {
		return true, nil
	}
	if jsonOutput {
		return false, errConfirmationRequired
	}

	reader := bufio.NewReader(in)
	fmt.Printf("\nSwap %d token(s) to stablecoins? (y/N): ", count)

	response, err := reader.ReadString('\n')
	if err != nil {
		return false, nil
	}

	response = strings.TrimSpace(strings.ToLower(response))
	return response == "y" || response == "yes", nil
}
