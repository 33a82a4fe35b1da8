package rescue

import (
	"context"
	"math/big"

	"ragequit/pkg/types"
)

// Signer submits transactions from the user's wallet on its active chain
type Signer interface {
	Address() string
	CurrentChain(ctx context.Context) (int64, error)
	SwitchActiveChain(ctx context.Context, chainID int64) error
	Submit(ctx context.Context, tx types.TransactionRequest) (string, error)
}

// ReceiptWatcher waits for a submitted transaction to be mined.
// A nil error means confirmed; reverts and timeouts are errors.
type ReceiptWatcher interface {
	AwaitConfirmation(ctx context.Context, chainID int64, txID string) error
}

// Aggregator is the subset of the DEX aggregator API a run needs
type Aggregator interface {
	SupportsChain(chainID int64) bool
	Allowance(ctx context.Context, chainID int64, token, wallet string) (*big.Int, error)
	ApprovalTransaction(ctx context.Context, chainID int64, token string, amount *big.Int) (types.TransactionRequest, error)
	SwapTransaction(ctx context.Context, params types.SwapParams) (types.SwapQuote, error)
}

// BatchRecorder builds the transaction that records a finished batch on-chain
type BatchRecorder interface {
	ChainID() int64
	RecordTransaction(count int) (types.TransactionRequest, error)
}

// SelectionStore supplies the selections of a run and is cleared when it completes
type SelectionStore interface {
	Selected() []types.Selection
	ClearAll()
}

// Observer receives run events as they happen. Calls are serialised and must not block.
type Observer interface {
	OnState(state types.RunState, status string)
	OnProgress(progress types.RunProgress)
	OnOutcome(outcome types.TokenSwapOutcome)
}

type nopObserver struct{}

func (nopObserver) OnState(types.RunState, string) {}
func (nopObserver) OnProgress(types.RunProgress) {}
func (nopObserver) OnOutcome(types.TokenSwapOutcome) {}
