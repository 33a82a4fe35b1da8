package chain

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"

	"ragequit/pkg/types"
)

// EVMSigner signs and sends transactions with a local private key
type EVMSigner struct {
	pool       *Pool
	privateKey *ecdsa.PrivateKey
	address    common.Address
	logger     *zap.Logger

	mu     sync.Mutex
	active int64
	nonces map[int64]uint64
}

// NewEVMSigner creates a signer starting on initialChain
func NewEVMSigner(pool *Pool, privateKeyHex string, initialChain int64, logger *zap.Logger) (*EVMSigner, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if strings.TrimSpace(privateKeyHex) == "" {
		return nil, fmt.Errorf("private key not configured")
	}

	privateKey, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(privateKeyHex), "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}

	publicKey, ok := privateKey.Public().(*ecdsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("failed to get public key")
	}

	return &EVMSigner{
		pool:       pool,
		privateKey: privateKey,
		address:    crypto.PubkeyToAddress(*publicKey),
		logger:     logger.Named("signer"),
		active:     initialChain,
		nonces:     make(map[int64]uint64),
	}, nil
}

// Address returns the checksummed wallet address
func (s *EVMSigner) Address() string {
	return s.address.Hex()
}

// CurrentChain returns the chain transactions are sent to
func (s *EVMSigner) CurrentChain(context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active == 0 {
		return 0, fmt.Errorf("no active chain")
	}
	return s.active, nil
}

// SwitchActiveChain points the signer at another configured chain
func (s *EVMSigner) SwitchActiveChain(ctx context.Context, chainID int64) error {
	if !s.pool.Has(chainID) {
		return fmt.Errorf("chain %d is not configured", chainID)
	}
	if _, err := s.pool.Client(ctx, chainID); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.logger.Debug("switching active chain", zap.Int64("from", s.active), zap.Int64("to", chainID))
	s.active = chainID
	return nil
}

// Submit signs req for the active chain, sends it and returns the tx hash.
// Submissions are serialised so concurrent callers get consecutive nonces.
func (s *EVMSigner) Submit(ctx context.Context, req types.TransactionRequest) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	chainID := s.active
	client, err := s.pool.Client(ctx, chainID)
	if err != nil {
		return "", err
	}

	if !common.IsHexAddress(req.To) {
		return "", fmt.Errorf("invalid recipient address: %s", req.To)
	}
	to := common.HexToAddress(req.To)

	data, err := decodeData(req.Data)
	if err != nil {
		return "", fmt.Errorf("invalid transaction data: %w", err)
	}

	value, err := parseValue(req.Value)
	if err != nil {
		return "", fmt.Errorf("invalid transaction value: %w", err)
	}

	nonce, err := s.nextNonce(ctx, client, chainID)
	if err != nil {
		return "", err
	}

	gasPrice, err := client.SuggestGasPrice(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to get gas price: %w", err)
	}

	gasLimit := req.Gas
	if gasLimit == 0 {
		estimated, err := client.EstimateGas(ctx, ethereum.CallMsg{
			From:  s.address,
			To:    &to,
			Value: value,
			Data:  data,
		})
		if err != nil {
			return "", fmt.Errorf("failed to estimate gas: %w", err)
		}
		gasLimit = estimated * 120 / 100 // Add 20% buffer
	}

	tx := gethtypes.NewTx(&gethtypes.LegacyTx{
		Nonce:    nonce,
		To:       &to,
		Value:    value,
		Gas:      gasLimit,
		GasPrice: gasPrice,
		Data:     data,
	})

	signedTx, err := gethtypes.SignTx(tx, gethtypes.LatestSignerForChainID(big.NewInt(chainID)), s.privateKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign transaction: %w", err)
	}

	if err := client.SendTransaction(ctx, signedTx); err != nil {
		// the node may have seen a different nonce; refetch next time
		delete(s.nonces, chainID)
		return "", fmt.Errorf("failed to send transaction: %w", err)
	}
	s.nonces[chainID] = nonce + 1

	hash := signedTx.Hash().Hex()
	s.logger.Debug("transaction sent",
		zap.Int64("chain_id", chainID),
		zap.String("tx", hash),
		zap.Uint64("nonce", nonce),
		zap.Uint64("gas", gasLimit),
	)
	return hash, nil
}

func (s *EVMSigner) nextNonce(ctx context.Context, client EthClient, chainID int64) (uint64, error) {
	if n, ok := s.nonces[chainID]; ok {
		return n, nil
	}
	n, err := client.PendingNonceAt(ctx, s.address)
	if err != nil {
		return 0, fmt.Errorf("failed to get nonce: %w", err)
	}
	return n, nil
}

func decodeData(data string) ([]byte, error) {
	data = strings.TrimSpace(data)
	if data == "" || data == "0x" {
		return nil, nil
	}
	if !strings.HasPrefix(data, "0x") {
		data = "0x" + data
	}
	return hexutil.Decode(data)
}

// parseValue accepts a decimal or 0x-prefixed wei amount
func parseValue(value string) (*big.Int, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return big.NewInt(0), nil
	}
	if strings.HasPrefix(value, "0x") {
		return hexutil.DecodeBig(value)
	}
	n, ok := new(big.Int).SetString(value, 10)
	if !ok || n.Sign() < 0 {
		return nil, fmt.Errorf("not a wei amount: %q", value)
	}
	return n, nil
}
