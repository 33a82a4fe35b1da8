package chain

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"ragequit/pkg/types"
)

// Recorder builds calls to the batch counter contract
type Recorder struct {
	chainID  int64
	contract common.Address
}

// NewRecorder creates a recorder for the contract deployed on chainID
func NewRecorder(chainID int64, contract string) (*Recorder, error) {
	if !common.IsHexAddress(contract) {
		return nil, fmt.Errorf("invalid recorder contract address: %s", contract)
	}
	return &Recorder{chainID: chainID, contract: common.HexToAddress(contract)}, nil
}

// ChainID returns the chain the contract lives on
func (r *Recorder) ChainID() int64 {
	return r.chainID
}

// RecordTransaction encodes recordBatchRageQuit(count). The contract reverts on zero.
func (r *Recorder) RecordTransaction(count int) (types.TransactionRequest, error) {
	if count <= 0 {
		return types.TransactionRequest{}, fmt.Errorf("record count must be positive, got %d", count)
	}

	data, err := rageQuits.Pack("recordBatchRageQuit", big.NewInt(int64(count)))
	if err != nil {
		return types.TransactionRequest{}, fmt.Errorf("failed to pack recordBatchRageQuit data: %w", err)
	}

	return types.TransactionRequest{
		To:    r.contract.Hex(),
		Data:  hexutil.Encode(data),
		Value: "0",
	}, nil
}

// Count reads how many tokens owner has recorded on the contract
func (r *Recorder) Count(ctx context.Context, pool *Pool, owner string) (*big.Int, error) {
	if !common.IsHexAddress(owner) {
		return nil, fmt.Errorf("invalid owner address: %s", owner)
	}
	client, err := pool.Client(ctx, r.chainID)
	if err != nil {
		return nil, err
	}

	data, err := rageQuits.Pack("getRageQuitCount", common.HexToAddress(owner))
	if err != nil {
		return nil, fmt.Errorf("failed to pack getRageQuitCount data: %w", err)
	}

	result, err := client.CallContract(ctx, ethereum.CallMsg{To: &r.contract, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to call getRageQuitCount: %w", err)
	}

	out, err := rageQuits.Unpack("getRageQuitCount", result)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack getRageQuitCount result: %w", err)
	}
	count, ok := out[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected getRageQuitCount result type %T", out[0])
	}
	return count, nil
}
