package chain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"
)

// ErrTxReverted is returned for mined transactions with a failed status
var ErrTxReverted = errors.New("transaction reverted")

const (
	defaultPollInterval    = 2 * time.Second
	defaultMaxPollInterval = 15 * time.Second
)

// ReceiptWatcher polls for transaction receipts
type ReceiptWatcher struct {
	pool            *Pool
	pollInterval    time.Duration
	maxPollInterval time.Duration
	logger          *zap.Logger
}

// NewReceiptWatcher creates a new receipt watcher
func NewReceiptWatcher(pool *Pool, logger *zap.Logger) *ReceiptWatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReceiptWatcher{
		pool:            pool,
		pollInterval:    defaultPollInterval,
		maxPollInterval: defaultMaxPollInterval,
		logger:          logger.Named("watcher"),
	}
}

// SetPollInterval sets the first and the largest wait between receipt polls
func (w *ReceiptWatcher) SetPollInterval(initial, limit time.Duration) {
	w.pollInterval = initial
	if limit < initial {
		limit = initial
	}
	w.maxPollInterval = limit
}

// AwaitConfirmation blocks until txID is mined or ctx ends.
// A mined transaction with a failed status returns ErrTxReverted.
func (w *ReceiptWatcher) AwaitConfirmation(ctx context.Context, chainID int64, txID string) error {
	client, err := w.pool.Client(ctx, chainID)
	if err != nil {
		return err
	}
	hash := common.HexToHash(txID)

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = w.pollInterval
	policy.MaxInterval = w.maxPollInterval

	notify := func(err error, next time.Duration) {
		if !errors.Is(err, ethereum.NotFound) {
			w.logger.Warn("receipt lookup failed", zap.String("tx", txID), zap.Error(err), zap.Duration("backoff", next))
		}
	}

	receipt, err := backoff.Retry(ctx, func() (*gethtypes.Receipt, error) {
		return client.TransactionReceipt(ctx, hash)
	},
		backoff.WithBackOff(policy),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(notify),
	)
	if err != nil {
		return fmt.Errorf("failed to get receipt for %s: %w", txID, err)
	}

	if receipt.Status != gethtypes.ReceiptStatusSuccessful {
		return fmt.Errorf("%s in block %d: %w", txID, receipt.BlockNumber.Uint64(), ErrTxReverted)
	}

	w.logger.Debug("transaction confirmed", zap.String("tx", txID), zap.Uint64("block", receipt.BlockNumber.Uint64()))
	return nil
}

// TxInfo summarises a transaction and its receipt
type TxInfo struct {
	Hash        string `json:"hash"`
	ChainID     int64  `json:"chain_id"`
	Status      string `json:"status"`
	Nonce       uint64 `json:"nonce"`
	To          string `json:"to"`
	Value       string `json:"value"`
	GasLimit    uint64 `json:"gas_limit"`
	GasUsed     uint64 `json:"gas_used,omitempty"`
	BlockNumber uint64 `json:"block_number,omitempty"`
}

// Lookup retrieves the current state of a transaction without waiting
func (w *ReceiptWatcher) Lookup(ctx context.Context, chainID int64, txID string) (*TxInfo, error) {
	client, err := w.pool.Client(ctx, chainID)
	if err != nil {
		return nil, err
	}
	hash := common.HexToHash(txID)

	tx, isPending, err := client.TransactionByHash(ctx, hash)
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}

	info := &TxInfo{
		Hash:     tx.Hash().Hex(),
		ChainID:  chainID,
		Status:   "pending",
		Nonce:    tx.Nonce(),
		Value:    tx.Value().String(),
		GasLimit: tx.Gas(),
	}
	if tx.To() != nil {
		info.To = tx.To().Hex()
	}
	if isPending {
		return info, nil
	}

	receipt, err := client.TransactionReceipt(ctx, hash)
	if err != nil {
		if errors.Is(err, ethereum.NotFound) {
			return info, nil
		}
		return nil, fmt.Errorf("failed to get transaction receipt: %w", err)
	}

	info.GasUsed = receipt.GasUsed
	info.BlockNumber = receipt.BlockNumber.Uint64()
	if receipt.Status == gethtypes.ReceiptStatusSuccessful {
		info.Status = "success"
	} else {
		info.Status = "reverted"
	}
	return info, nil
}
