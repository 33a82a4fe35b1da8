package chain

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
)

// EthClient is the part of ethclient.Client this package uses
type EthClient interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	TransactionByHash(ctx context.Context, hash common.Hash) (*types.Transaction, bool, error)
	Close()
}

// Pool hands out one RPC client per chain, dialled on first use
type Pool struct {
	mu        sync.Mutex
	endpoints map[int64]string
	clients   map[int64]EthClient
	dial      func(ctx context.Context, rawURL string) (EthClient, error)
}

// NewPool creates a pool over chain ID to RPC URL endpoints
func NewPool(endpoints map[int64]string) *Pool {
	eps := make(map[int64]string, len(endpoints))
	for id, url := range endpoints {
		eps[id] = url
	}
	return &Pool{
		endpoints: eps,
		clients:   make(map[int64]EthClient),
		dial: func(ctx context.Context, rawURL string) (EthClient, error) {
			c, err := ethclient.DialContext(ctx, rawURL)
			if err != nil {
				return nil, err
			}
			return c, nil
		},
	}
}

// Has reports whether an RPC endpoint is configured for the chain
func (p *Pool) Has(chainID int64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.clients[chainID]; ok {
		return true
	}
	_, ok := p.endpoints[chainID]
	return ok
}

// Client returns the chain's client, dialling it if needed
func (p *Pool) Client(ctx context.Context, chainID int64) (EthClient, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if c, ok := p.clients[chainID]; ok {
		return c, nil
	}

	url, ok := p.endpoints[chainID]
	if !ok || url == "" {
		return nil, fmt.Errorf("RPC URL not configured for chain %d", chainID)
	}

	c, err := p.dial(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RPC endpoint for chain %d: %w", chainID, err)
	}
	p.clients[chainID] = c
	return c, nil
}

// Close closes every dialled client
func (p *Pool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for id, c := range p.clients {
		c.Close()
		delete(p.clients, id)
	}
}
