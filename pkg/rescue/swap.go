package rescue

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"ragequit/pkg/types"
)

type swapSlot struct {
	approvedEntry
	quote  types.SwapQuote
	txID   string
	failed bool
}

// swapCoordinator swaps approved entries into the chain's stablecoin
type swapCoordinator struct {
	signer         Signer
	aggregator     Aggregator
	watcher        ReceiptWatcher
	tracker        *tracker
	slippage       float64
	confirmTimeout time.Duration
	logger         *zap.Logger
}

// run returns once every swap on the chain is settled
func (c *swapCoordinator) run(ctx context.Context, chainID int64, target types.SwapTarget, approved []approvedEntry) {
	if len(approved) == 0 {
		return
	}

	c.tracker.setStatus("Preparing swaps...")
	wallet := c.signer.Address()

	slots := make([]*swapSlot, len(approved))
	var g errgroup.Group
	for i, a := range approved {
		slot := &swapSlot{approvedEntry: a}
		slots[i] = slot
		g.Go(func() error {
			c.prepare(ctx, chainID, wallet, target, slot)
			return nil
		})
	}
	_ = g.Wait()

	var ready []*swapSlot
	for _, slot := range slots {
		if !slot.failed {
			ready = append(ready, slot)
		}
	}
	if len(ready) == 0 {
		return
	}

	c.tracker.setStatus(fmt.Sprintf("Swapping %s to %s...", plural(len(ready), "token"), target.Symbol))
	for _, slot := range ready {
		g.Go(func() error {
			c.submit(ctx, slot)
			return nil
		})
	}
	_ = g.Wait()

	c.tracker.setStatus("Waiting for all swaps to confirm...")
	for _, slot := range ready {
		if slot.failed {
			continue
		}
		g.Go(func() error {
			c.confirm(ctx, chainID, slot)
			return nil
		})
	}
	_ = g.Wait()
}

func (c *swapCoordinator) prepare(ctx context.Context, chainID int64, wallet string, target types.SwapTarget, slot *swapSlot) {
	entry := slot.entry
	quote, err := c.aggregator.SwapTransaction(ctx, types.SwapParams{
		ChainID:  chainID,
		Src:      entry.Position.Address,
		Dst:      target.Address,
		Amount:   entry.Amount,
		From:     wallet,
		Slippage: c.slippage,
	})
	if err != nil {
		c.logger.Warn("swap request failed", zap.String("symbol", entry.Position.Symbol), zap.Error(err))
		c.fail(slot, types.OutcomeQuoteFailed, fmt.Errorf("build swap: %w", err))
		return
	}
	slot.quote = quote
}

func (c *swapCoordinator) submit(ctx context.Context, slot *swapSlot) {
	txID, err := c.signer.Submit(ctx, slot.quote.Tx)
	if err != nil {
		c.logger.Warn("swap submission failed", zap.String("symbol", slot.entry.Position.Symbol), zap.Error(err))
		c.fail(slot, types.OutcomeSubmitFailed, fmt.Errorf("submit swap: %w", err))
		return
	}
	c.logger.Info("swap submitted", zap.String("symbol", slot.entry.Position.Symbol), zap.String("tx", txID))
	slot.txID = txID
}

func (c *swapCoordinator) confirm(ctx context.Context, chainID int64, slot *swapSlot) {
	entry := slot.entry
	if err := awaitWithTimeout(ctx, c.watcher, chainID, slot.txID, c.confirmTimeout); err != nil {
		c.logger.Warn("swap not confirmed", zap.String("symbol", entry.Position.Symbol), zap.String("tx", slot.txID), zap.Error(err))
		c.fail(slot, types.OutcomeConfirmationFailed, fmt.Errorf("confirm swap %s: %w", slot.txID, err))
		return
	}

	c.logger.Info("swap confirmed", zap.String("symbol", entry.Position.Symbol), zap.String("tx", slot.txID))

	outcome := c.outcome(slot, types.OutcomeSwapped, nil)
	outcome.ExpectedOut = slot.quote.DstAmount
	c.tracker.finish(entry.Index, outcome)
}

func (c *swapCoordinator) fail(slot *swapSlot, status types.OutcomeStatus, err error) {
	slot.failed = true
	c.tracker.finish(slot.entry.Index, c.outcome(slot, status, err))
}

func (c *swapCoordinator) outcome(slot *swapSlot, status types.OutcomeStatus, err error) types.TokenSwapOutcome {
	o := outcomeFor(slot.entry, status, err)
	o.ApprovalTx = slot.approvalTx
	o.SwapTx = slot.txID
	return o
}
