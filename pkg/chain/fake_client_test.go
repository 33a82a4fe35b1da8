package chain

import (
	"context"
	"errors"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
)

type fakeClient struct {
	mu sync.Mutex

	nonce      uint64
	nonceCalls int
	gasPrice   *big.Int
	estimate   uint64
	estimated  []ethereum.CallMsg
	sendErr    error
	sent       []*gethtypes.Transaction

	receipts     map[common.Hash]*gethtypes.Receipt
	pendingPolls int
	polls        int

	native   *big.Int
	balances map[common.Address]*big.Int
	callErr  map[common.Address]error
	closed   bool
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		gasPrice: big.NewInt(1_000_000_000),
		estimate: 100_000,
		receipts: make(map[common.Hash]*gethtypes.Receipt),
		balances: make(map[common.Address]*big.Int),
		callErr:  make(map[common.Address]error),
	}
}

func (c *fakeClient) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.callErr[*msg.To]; err != nil {
		return nil, err
	}
	balance, ok := c.balances[*msg.To]
	if !ok {
		balance = big.NewInt(0)
	}
	return erc20.Methods["balanceOf"].Outputs.Pack(balance)
}

func (c *fakeClient) BalanceAt(context.Context, common.Address, *big.Int) (*big.Int, error) {
	if c.native == nil {
		return nil, errors.New("rpc unavailable")
	}
	return c.native, nil
}

func (c *fakeClient) PendingNonceAt(context.Context, common.Address) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nonceCalls++
	return c.nonce, nil
}

func (c *fakeClient) SuggestGasPrice(context.Context) (*big.Int, error) {
	return c.gasPrice, nil
}

func (c *fakeClient) EstimateGas(_ context.Context, msg ethereum.CallMsg) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.estimated = append(c.estimated, msg)
	return c.estimate, nil
}

func (c *fakeClient) SendTransaction(_ context.Context, tx *gethtypes.Transaction) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sendErr != nil {
		return c.sendErr
	}
	c.sent = append(c.sent, tx)
	return nil
}

func (c *fakeClient) TransactionReceipt(_ context.Context, hash common.Hash) (*gethtypes.Receipt, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.polls++
	if c.polls <= c.pendingPolls {
		return nil, ethereum.NotFound
	}
	r, ok := c.receipts[hash]
	if !ok {
		return nil, ethereum.NotFound
	}
	return r, nil
}

func (c *fakeClient) TransactionByHash(_ context.Context, hash common.Hash) (*gethtypes.Transaction, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, tx := range c.sent {
		if tx.Hash() == hash {
			_, mined := c.receipts[hash]
			return tx, !mined, nil
		}
	}
	return nil, false, ethereum.NotFound
}

func (c *fakeClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

func poolWith(clients map[int64]*fakeClient) *Pool {
	endpoints := make(map[int64]string, len(clients))
	for id := range clients {
		endpoints[id] = "http://fake"
	}
	p := NewPool(endpoints)
	p.dial = func(context.Context, string) (EthClient, error) {
		return nil, errors.New("dial not expected")
	}
	for id, c := range clients {
		p.clients[id] = c
	}
	return p
}
