package rescue

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"ragequit/pkg/types"
)

// approvedEntry is an entry cleared for swapping
type approvedEntry struct {
	entry      types.ResolvedEntry
	approvalTx string
}

type approvalSlot struct {
	entry  types.ResolvedEntry
	needed bool
	tx     types.TransactionRequest
	txID   string
	failed bool
}

// approvalCoordinator brings each token's router allowance up to the swap amount
type approvalCoordinator struct {
	signer         Signer
	aggregator     Aggregator
	watcher        ReceiptWatcher
	tracker        *tracker
	confirmTimeout time.Duration
	logger         *zap.Logger
}

// run returns once every approval on the chain is settled. Entries that fail
// any approval step get a terminal outcome and are not returned.
func (c *approvalCoordinator) run(ctx context.Context, chainID int64, target types.SwapTarget, entries []types.ResolvedEntry) []approvedEntry {
	slots := make([]*approvalSlot, 0, len(entries))
	for _, entry := range entries {
		switch {
		case types.SameAddress(entry.Position.Address, target.Address):
			c.logger.Info("skipping token, already target stablecoin", zap.String("symbol", entry.Position.Symbol))
			c.tracker.finish(entry.Index, outcomeFor(entry, types.OutcomeAlreadyTarget, nil))
		case types.IsNativeToken(entry.Position.Address):
			c.logger.Info("skipping native token", zap.String("symbol", entry.Position.Symbol))
			c.tracker.finish(entry.Index, outcomeFor(entry, types.OutcomeNativeSkipped, nil))
		default:
			slots = append(slots, &approvalSlot{entry: entry})
		}
	}
	if len(slots) == 0 {
		return nil
	}

	c.tracker.setStatus("Checking allowances and preparing approvals...")
	wallet := c.signer.Address()

	var g errgroup.Group
	for _, slot := range slots {
		g.Go(func() error {
			c.prepare(ctx, chainID, wallet, slot)
			return nil
		})
	}
	_ = g.Wait()

	var pending []*approvalSlot
	for _, slot := range slots {
		if slot.needed && !slot.failed {
			pending = append(pending, slot)
		}
	}

	if len(pending) > 0 {
		c.tracker.setStatus(fmt.Sprintf("Approving %s...", plural(len(pending), "token")))
		for _, slot := range pending {
			g.Go(func() error {
				c.submit(ctx, slot)
				return nil
			})
		}
		_ = g.Wait()

		c.tracker.setStatus("Waiting for all approvals to confirm...")
		for _, slot := range pending {
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

	approved := make([]approvedEntry, 0, len(slots))
	for _, slot := range slots {
		if slot.failed {
			continue
		}
		approved = append(approved, approvedEntry{entry: slot.entry, approvalTx: slot.txID})
	}
	return approved
}

func (c *approvalCoordinator) prepare(ctx context.Context, chainID int64, wallet string, slot *approvalSlot) {
	entry := slot.entry
	log := c.logger.With(zap.String("symbol", entry.Position.Symbol), zap.String("token", entry.Position.Address))

	allowance, err := c.aggregator.Allowance(ctx, chainID, entry.Position.Address, wallet)
	if err != nil {
		log.Warn("allowance check failed", zap.Error(err))
		c.fail(slot, fmt.Errorf("check allowance: %w", err))
		return
	}

	if allowance.Cmp(entry.Amount) >= 0 {
		log.Debug("sufficient allowance", zap.Stringer("allowance", allowance))
		c.tracker.approvalDone(entry.Index)
		return
	}

	tx, err := c.aggregator.ApprovalTransaction(ctx, chainID, entry.Position.Address, entry.Amount)
	if err != nil {
		log.Warn("approval request failed", zap.Error(err))
		c.fail(slot, fmt.Errorf("build approval: %w", err))
		return
	}

	log.Debug("approval needed", zap.Stringer("allowance", allowance), zap.Stringer("amount", entry.Amount))
	slot.needed = true
	slot.tx = tx
}

func (c *approvalCoordinator) submit(ctx context.Context, slot *approvalSlot) {
	txID, err := c.signer.Submit(ctx, slot.tx)
	if err != nil {
		c.logger.Warn("approval submission failed", zap.String("symbol", slot.entry.Position.Symbol), zap.Error(err))
		c.fail(slot, fmt.Errorf("submit approval: %w", err))
		return
	}
	c.logger.Info("approval submitted", zap.String("symbol", slot.entry.Position.Symbol), zap.String("tx", txID))
	slot.txID = txID
}

func (c *approvalCoordinator) confirm(ctx context.Context, chainID int64, slot *approvalSlot) {
	if err := awaitWithTimeout(ctx, c.watcher, chainID, slot.txID, c.confirmTimeout); err != nil {
		c.logger.Warn("approval not confirmed", zap.String("symbol", slot.entry.Position.Symbol), zap.String("tx", slot.txID), zap.Error(err))
		c.fail(slot, fmt.Errorf("confirm approval %s: %w", slot.txID, err))
		return
	}
	c.logger.Info("approval confirmed", zap.String("symbol", slot.entry.Position.Symbol), zap.String("tx", slot.txID))
	c.tracker.approvalDone(slot.entry.Index)
}

func (c *approvalCoordinator) fail(slot *approvalSlot, err error) {
	slot.failed = true
	outcome := outcomeFor(slot.entry, types.OutcomeApprovalFailed, err)
	outcome.ApprovalTx = slot.txID
	c.tracker.finish(slot.entry.Index, outcome)
}

func awaitWithTimeout(ctx context.Context, watcher ReceiptWatcher, chainID int64, txID string, timeout time.Duration) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return watcher.AwaitConfirmation(ctx, chainID, txID)
}

func plural(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, noun)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}
