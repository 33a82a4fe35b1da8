package chain

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"ragequit/pkg/types"
)

const scanConcurrency = 8

// Token is a token the scanner checks on one chain
type Token struct {
	ChainID   int64
	ChainName string
	Address   string
	Symbol    string
	Decimals  uint8
}

// Scanner reads wallet balances of a fixed token list
type Scanner struct {
	pool   *Pool
	logger *zap.Logger
}

// NewScanner creates a new balance scanner
func NewScanner(pool *Pool, logger *zap.Logger) *Scanner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scanner{pool: pool, logger: logger.Named("scanner")}
}

// Scan returns the non-zero balances of owner, in token order.
// Tokens whose balance cannot be read are logged and left out.
func (s *Scanner) Scan(ctx context.Context, owner string, tokens []Token) ([]types.TokenPosition, error) {
	if !common.IsHexAddress(owner) {
		return nil, fmt.Errorf("invalid wallet address: %s", owner)
	}
	account := common.HexToAddress(owner)

	balances := make([]*big.Int, len(tokens))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(scanConcurrency)

	for i, token := range tokens {
		g.Go(func() error {
			balance, err := s.balanceOf(gctx, account, token)
			if err != nil {
				s.logger.Warn("failed to read balance",
					zap.Int64("chain_id", token.ChainID),
					zap.String("symbol", token.Symbol),
					zap.Error(err),
				)
				return nil
			}
			balances[i] = balance
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	positions := make([]types.TokenPosition, 0, len(tokens))
	for i, token := range tokens {
		balance := balances[i]
		if balance == nil || balance.Sign() == 0 {
			continue
		}
		positions = append(positions, types.TokenPosition{
			ChainID:      token.ChainID,
			ChainName:    token.ChainName,
			Address:      token.Address,
			Symbol:       token.Symbol,
			HumanBalance: types.FromRaw(balance, token.Decimals),
			RawBalance:   balance,
			Decimals:     token.Decimals,
		})
	}
	return positions, nil
}

func (s *Scanner) balanceOf(ctx context.Context, account common.Address, token Token) (*big.Int, error) {
	client, err := s.pool.Client(ctx, token.ChainID)
	if err != nil {
		return nil, err
	}

	if types.IsNativeToken(token.Address) {
		balance, err := client.BalanceAt(ctx, account, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to get balance: %w", err)
		}
		return balance, nil
	}

	if !common.IsHexAddress(token.Address) {
		return nil, fmt.Errorf("invalid token contract address: %s", token.Address)
	}
	tokenAddress := common.HexToAddress(token.Address)

	data, err := erc20.Pack("balanceOf", account)
	if err != nil {
		return nil, fmt.Errorf("failed to pack balanceOf data: %w", err)
	}

	result, err := client.CallContract(ctx, ethereum.CallMsg{To: &tokenAddress, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to call balanceOf: %w", err)
	}

	out, err := erc20.Unpack("balanceOf", result)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack balanceOf result: %w", err)
	}
	balance, ok := out[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected balanceOf result type %T", out[0])
	}
	return balance, nil
}
