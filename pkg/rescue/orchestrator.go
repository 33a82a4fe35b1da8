package rescue

import (
	"context"
	"fmt"
	"reflect"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"ragequit/pkg/types"
)

const (
	// DefaultSlippagePercent is used when settings leave slippage unset
	DefaultSlippagePercent = 3.0
	// DefaultSettleDelay is the pause after a chain switch
	DefaultSettleDelay = time.Second
)

// Settings are the tunables of a run
type Settings struct {
	SlippagePercent     float64
	SettleDelay         time.Duration
	ConfirmationTimeout time.Duration // 0 waits as long as the context allows
	Targets             map[int64]types.SwapTarget
}

// RunOptions are per-run switches
type RunOptions struct {
	RecordOnChain bool
	Observer      Observer
}

// Orchestrator drives a batch run across chains
type Orchestrator struct {
	signer     Signer
	aggregator Aggregator
	watcher    ReceiptWatcher
	store      SelectionStore
	recorder   BatchRecorder
	settings   Settings
	logger     *zap.Logger
}

// NewOrchestrator creates a new orchestrator. signer may be nil, including a
// nil pointer of a concrete signer type, when no wallet is configured.
func NewOrchestrator(signer Signer, aggregator Aggregator, watcher ReceiptWatcher, store SelectionStore, settings Settings, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if isNilSigner(signer) {
		signer = nil
	}
	if settings.SlippagePercent <= 0 {
		settings.SlippagePercent = DefaultSlippagePercent
	}
	if settings.SettleDelay < 0 {
		settings.SettleDelay = 0
	}
	return &Orchestrator{
		signer:     signer,
		aggregator: aggregator,
		watcher:    watcher,
		store:      store,
		settings:   settings,
		logger:     logger.Named("rescue"),
	}
}

// WithRecorder enables on-chain recording of finished batches
func (o *Orchestrator) WithRecorder(recorder BatchRecorder) *Orchestrator {
	o.recorder = recorder
	return o
}

// Run swaps every selected token into its chain's stablecoin.
// Per-token failures end up in the result's outcomes; only guard failures and
// cancellation are returned as errors. Swapped outcomes carry the balance
// decrement for the caller to apply.
func (o *Orchestrator) Run(ctx context.Context, opts RunOptions) (*types.RunResult, error) {
	t := newTracker(opts.Observer)
	result := &types.RunResult{
		ID:        uuid.NewString(),
		State:     types.StateIdle,
		StartedAt: time.Now().UTC(),
	}

	if o.signer == nil || o.signer.Address() == "" {
		return o.abort(t, result, "Please connect your wallet", ErrNoWallet)
	}
	result.Wallet = o.signer.Address()

	selections := o.store.Selected()
	if len(selections) == 0 {
		return o.abort(t, result, "No tokens selected. Please select tokens to swap.", ErrNoSelections)
	}

	t.setState(types.StateResolving, "Starting RageQuit...")
	batches := GroupByChain(selections)
	if len(batches) == 0 {
		return o.abort(t, result, "No valid amounts to swap. Please enter amounts for selected tokens.", ErrNothingToSwap)
	}

	entries := CountEntries(batches)
	t.start(2 * entries)
	o.logger.Info("starting run",
		zap.String("run_id", result.ID),
		zap.Int("tokens", entries),
		zap.Int("chains", len(batches)),
	)

	for _, batch := range batches {
		if err := ctx.Err(); err != nil {
			o.failChain(t, batch, err)
			continue
		}
		o.processChain(ctx, t, batch)
	}

	if err := ctx.Err(); err != nil {
		result.Outcomes = t.results()
		return o.abort(t, result, "RageQuit cancelled", err)
	}

	status := "RageQuit complete"
	if swapped := t.swappedCount(); opts.RecordOnChain && o.recorder != nil && swapped > 0 {
		t.setState(types.StateRecording, "Recording on-chain...")
		txID, err := o.record(ctx, swapped)
		result.RecordTx = txID
		if err != nil {
			o.logger.Error("failed to record on-chain", zap.Error(err))
			result.RecordErr = err.Error()
			status = "RageQuit complete (on-chain recording failed)"
		} else {
			result.Recorded = true
			status = "RageQuit recorded on-chain"
		}
	}

	o.store.ClearAll()
	t.complete(status)

	result.State = types.StateComplete
	result.Status = status
	result.Progress = t.snapshot()
	result.Outcomes = t.results()
	result.FinishedAt = time.Now().UTC()

	o.logger.Info("run finished",
		zap.String("run_id", result.ID),
		zap.Int("swapped", result.SwappedCount()),
		zap.Int("failed", result.FailedCount()),
		zap.Bool("recorded", result.Recorded),
	)
	return result, nil
}

func (o *Orchestrator) processChain(ctx context.Context, t *tracker, batch ChainBatch) {
	log := o.logger.With(zap.Int64("chain_id", batch.ChainID))
	log.Info("processing chain", zap.Int("tokens", len(batch.Entries)))

	target, ok := o.settings.Targets[batch.ChainID]
	if !ok {
		log.Warn("no stablecoin configured for chain")
		o.failChain(t, batch, fmt.Errorf("no stablecoin configured for chain %d", batch.ChainID))
		return
	}
	if !o.aggregator.SupportsChain(batch.ChainID) {
		log.Warn("chain not supported by aggregator")
		o.failChain(t, batch, fmt.Errorf("chain %d not supported", batch.ChainID))
		return
	}

	t.setState(types.StateSwitching, fmt.Sprintf("Processing chain %d...", batch.ChainID))
	if err := o.ensureChain(ctx, t, batch.ChainID); err != nil {
		log.Warn("failed to switch chain", zap.Error(err))
		o.failChain(t, batch, err)
		return
	}

	approvals := &approvalCoordinator{
		signer:         o.signer,
		aggregator:     o.aggregator,
		watcher:        o.watcher,
		tracker:        t,
		confirmTimeout: o.settings.ConfirmationTimeout,
		logger:         log,
	}
	t.setState(types.StateApproving, "Checking allowances and preparing approvals...")
	approved := approvals.run(ctx, batch.ChainID, target, batch.Entries)

	swaps := &swapCoordinator{
		signer:         o.signer,
		aggregator:     o.aggregator,
		watcher:        o.watcher,
		tracker:        t,
		slippage:       o.settings.SlippagePercent,
		confirmTimeout: o.settings.ConfirmationTimeout,
		logger:         log,
	}
	t.setState(types.StateSwapping, "Preparing swaps...")
	swaps.run(ctx, batch.ChainID, target, approved)
}

// ensureChain switches the signer only when it is on a different chain
func (o *Orchestrator) ensureChain(ctx context.Context, t *tracker, chainID int64) error {
	current, err := o.signer.CurrentChain(ctx)
	if err == nil && current == chainID {
		return nil
	}

	t.setStatus(fmt.Sprintf("Switching to chain %d...", chainID))
	if err := o.signer.SwitchActiveChain(ctx, chainID); err != nil {
		return fmt.Errorf("switch to chain %d: %w", chainID, err)
	}
	return sleepContext(ctx, o.settings.SettleDelay)
}

func (o *Orchestrator) failChain(t *tracker, batch ChainBatch, err error) {
	for _, entry := range batch.Entries {
		t.finish(entry.Index, outcomeFor(entry, types.OutcomeChainFailed, err))
	}
}

func (o *Orchestrator) record(ctx context.Context, count int) (string, error) {
	tx, err := o.recorder.RecordTransaction(count)
	if err != nil {
		return "", err
	}

	chainID := o.recorder.ChainID()
	current, err := o.signer.CurrentChain(ctx)
	if err != nil || current != chainID {
		if err := o.signer.SwitchActiveChain(ctx, chainID); err != nil {
			return "", fmt.Errorf("switch to chain %d: %w", chainID, err)
		}
		if err := sleepContext(ctx, o.settings.SettleDelay); err != nil {
			return "", err
		}
	}

	txID, err := o.signer.Submit(ctx, tx)
	if err != nil {
		return "", fmt.Errorf("submit record transaction: %w", err)
	}
	if err := awaitWithTimeout(ctx, o.watcher, chainID, txID, o.settings.ConfirmationTimeout); err != nil {
		return txID, fmt.Errorf("confirm record transaction %s: %w", txID, err)
	}
	return txID, nil
}

func (o *Orchestrator) abort(t *tracker, result *types.RunResult, status string, err error) (*types.RunResult, error) {
	t.setState(types.StateAborted, status)
	o.logger.Warn("run aborted", zap.String("run_id", result.ID), zap.Error(err))

	result.State = types.StateAborted
	result.Status = status
	result.Progress = t.snapshot()
	result.FinishedAt = time.Now().UTC()
	return result, err
}

func isNilSigner(signer Signer) bool {
	if signer == nil {
		return true
	}
	v := reflect.ValueOf(signer)
	return v.Kind() == reflect.Ptr && v.IsNil()
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
