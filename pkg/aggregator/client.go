package aggregator

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"ragequit/pkg/types"
)

const (
	// DefaultBaseURL is the 1inch developer portal
	DefaultBaseURL = "https://api.1inch.dev"

	defaultTimeout = 15 * time.Second
	// a failed GET is tried at most this many times in total
	defaultMaxTries      = 4
	defaultRetryInterval = 500 * time.Millisecond
	maxRetryInterval     = 10 * time.Second
	swapVersion    = "v6.0"
	priceVersion   = "v1.1"
)

// Config holds the client settings
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
	// Chains maps a chain ID to its path segment in the aggregator API
	Chains map[int64]string
}

// Client talks to the 1inch swap and price APIs
type Client struct {
	baseURL    string
	apiKey     string
	chains     map[int64]string
	httpClient *http.Client
	maxTries   uint
	retryAfter time.Duration
	logger     *zap.Logger
}

// Option tunes a Client
type Option func(*Client)

// WithRetry sets the total number of attempts per request and the first backoff interval
func WithRetry(maxTries uint, initial time.Duration) Option {
	return func(c *Client) {
		if maxTries == 0 {
			maxTries = 1
		}
		c.maxTries = maxTries
		c.retryAfter = initial
	}
}

// NewClient creates a new aggregator client
func NewClient(cfg Config, logger *zap.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	chains := make(map[int64]string, len(cfg.Chains))
	for id, name := range cfg.Chains {
		chains[id] = name
	}

	c := &Client{
		baseURL:    baseURL,
		apiKey:     cfg.APIKey,
		chains:     chains,
		httpClient: &http.Client{Timeout: timeout},
		maxTries:   defaultMaxTries,
		retryAfter: defaultRetryInterval,
		logger:     logger.Named("aggregator"),
	}
	for _, opt := range opts {
		opt(c)
	}

	return c
}

// SupportsChain reports whether the chain has an aggregator mapping
func (c *Client) SupportsChain(chainID int64) bool {
	_, ok := c.chains[chainID]
	return ok
}

// Allowance returns how much of token the aggregator router may spend for wallet
func (c *Client) Allowance(ctx context.Context, chainID int64, token, wallet string) (*big.Int, error) {
	const op = "allowance"

	chain, err := c.chainSegment(op, chainID)
	if err != nil {
		return nil, err
	}
	if err := requireParams(op, map[string]string{"tokenAddress": token, "walletAddress": wallet}); err != nil {
		return nil, err
	}

	query := url.Values{}
	query.Set("tokenAddress", token)
	query.Set("walletAddress", wallet)

	var resp struct {
		Allowance string `json:"allowance"`
	}
	if err := c.get(ctx, op, c.swapPath(chain, "approve/allowance"), query, &resp); err != nil {
		return nil, err
	}

	allowance, err := parseInt(resp.Allowance)
	if err != nil {
		return nil, errors.Wrap(err, "invalid allowance in response")
	}
	return allowance, nil
}

// ApprovalTransaction builds an approval for exactly amount of token
func (c *Client) ApprovalTransaction(ctx context.Context, chainID int64, token string, amount *big.Int) (types.TransactionRequest, error) {
	const op = "approve"

	chain, err := c.chainSegment(op, chainID)
	if err != nil {
		return types.TransactionRequest{}, err
	}
	if err := requireParams(op, map[string]string{"tokenAddress": token}); err != nil {
		return types.TransactionRequest{}, err
	}

	query := url.Values{}
	query.Set("tokenAddress", token)
	if amount != nil {
		query.Set("amount", amount.String())
	}

	var resp txResponse
	if err := c.get(ctx, op, c.swapPath(chain, "approve/transaction"), query, &resp); err != nil {
		return types.TransactionRequest{}, err
	}
	return resp.request(), nil
}

// SwapTransaction builds a ready-to-sign swap transaction
func (c *Client) SwapTransaction(ctx context.Context, params types.SwapParams) (types.SwapQuote, error) {
	const op = "swap"

	chain, err := c.chainSegment(op, params.ChainID)
	if err != nil {
		return types.SwapQuote{}, err
	}
	amount := ""
	if params.Amount != nil && params.Amount.Sign() > 0 {
		amount = params.Amount.String()
	}
	if err := requireParams(op, map[string]string{
		"src":    params.Src,
		"dst":    params.Dst,
		"amount": amount,
		"from":   params.From,
	}); err != nil {
		return types.SwapQuote{}, err
	}

	query := url.Values{}
	query.Set("src", params.Src)
	query.Set("dst", params.Dst)
	query.Set("amount", amount)
	query.Set("from", params.From)
	query.Set("slippage", decimal.NewFromFloat(params.Slippage).String())
	query.Set("disableEstimate", "false")

	var resp struct {
		DstAmount string     `json:"dstAmount"`
		Tx        txResponse `json:"tx"`
	}
	if err := c.get(ctx, op, c.swapPath(chain, "swap"), query, &resp); err != nil {
		return types.SwapQuote{}, err
	}

	out, err := parseInt(resp.DstAmount)
	if err != nil {
		return types.SwapQuote{}, errors.Wrap(err, "invalid dstAmount in response")
	}
	return types.SwapQuote{DstAmount: out, Tx: resp.Tx.request()}, nil
}

// Quote returns the expected output of a swap without building a transaction
func (c *Client) Quote(ctx context.Context, chainID int64, src, dst string, amount *big.Int) (*big.Int, error) {
	const op = "quote"

	chain, err := c.chainSegment(op, chainID)
	if err != nil {
		return nil, err
	}
	amountStr := ""
	if amount != nil && amount.Sign() > 0 {
		amountStr = amount.String()
	}
	if err := requireParams(op, map[string]string{"src": src, "dst": dst, "amount": amountStr}); err != nil {
		return nil, err
	}

	query := url.Values{}
	query.Set("src", src)
	query.Set("dst", dst)
	query.Set("amount", amountStr)

	var resp struct {
		DstAmount string `json:"dstAmount"`
	}
	if err := c.get(ctx, op, c.swapPath(chain, "quote"), query, &resp); err != nil {
		return nil, err
	}

	out, err := parseInt(resp.DstAmount)
	if err != nil {
		return nil, errors.Wrap(err, "invalid dstAmount in response")
	}
	return out, nil
}

// Price returns the token price in the API's default currency
func (c *Client) Price(ctx context.Context, chainID int64, token string) (decimal.Decimal, error) {
	const op = "price"

	chain, err := c.chainSegment(op, chainID)
	if err != nil {
		return decimal.Zero, err
	}
	if err := requireParams(op, map[string]string{"token": token}); err != nil {
		return decimal.Zero, err
	}

	var resp map[string]json.RawMessage
	path := fmt.Sprintf("/price/%s/%s/%s", priceVersion, chain, token)
	if err := c.get(ctx, op, path, nil, &resp); err != nil {
		return decimal.Zero, err
	}

	for addr, raw := range resp {
		if !types.SameAddress(addr, token) {
			continue
		}
		var text string
		if err := json.Unmarshal(raw, &text); err != nil {
			text = string(raw)
		}
		price, err := decimal.NewFromString(text)
		if err != nil {
			return decimal.Zero, errors.Wrap(err, "invalid price in response")
		}
		return price, nil
	}

	return decimal.Zero, fmt.Errorf("price for %s not found in response", token)
}

func (c *Client) chainSegment(op string, chainID int64) (string, error) {
	chain, ok := c.chains[chainID]
	if !ok {
		return "", unsupportedChain(op, chainID)
	}
	return chain, nil
}

func (c *Client) swapPath(chain, endpoint string) string {
	return fmt.Sprintf("/swap/%s/%s/%s", swapVersion, chain, endpoint)
}

func (c *Client) get(ctx context.Context, op, path string, query url.Values, out any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.retryAfter
	policy.MaxInterval = maxRetryInterval

	notify := func(err error, next time.Duration) {
		c.logger.Warn("retrying aggregator request", zap.String("op", op), zap.Error(err), zap.Duration("backoff", next))
	}

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		err := c.doGet(ctx, op, endpoint, out)
		if err != nil && !retryable(err) {
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, err
	},
		backoff.WithBackOff(policy),
		backoff.WithMaxTries(c.maxTries),
		backoff.WithNotify(notify),
	)
	var permanent *backoff.PermanentError
	if errors.As(err, &permanent) {
		err = permanent.Err
	}
	if err != nil {
		c.logger.Debug("aggregator request failed", zap.String("op", op), zap.Error(err))
	}
	return err
}

func (c *Client) doGet(ctx context.Context, op, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return errors.Wrap(err, "failed to create HTTP request")
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.apiKey))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "HTTP request failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "failed to read response body")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{Op: op, StatusCode: resp.StatusCode, Body: errorMessage(body)}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return &decodeError{err: errors.Wrap(err, "failed to unmarshal response")}
	}
	return nil
}

type txResponse struct {
	To    string          `json:"to"`
	Data  string          `json:"data"`
	Value string          `json:"value"`
	Gas   json.RawMessage `json:"gas"`
}

func (r txResponse) request() types.TransactionRequest {
	req := types.TransactionRequest{To: r.To, Data: r.Data, Value: r.Value}
	if len(r.Gas) > 0 {
		gas := strings.Trim(string(r.Gas), `"`)
		if n, err := strconv.ParseUint(gas, 10, 64); err == nil {
			req.Gas = n
		}
	}
	return req
}

// errorMessage extracts the description 1inch puts in error bodies
func errorMessage(body []byte) string {
	var payload struct {
		Description string `json:"description"`
		Message     string `json:"message"`
		Error       string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		switch {
		case payload.Description != "":
			return payload.Description
		case payload.Message != "":
			return payload.Message
		case payload.Error != "":
			return payload.Error
		}
	}
	return strings.TrimSpace(string(body))
}

func requireParams(op string, params map[string]string) error {
	for _, name := range []string{"tokenAddress", "walletAddress", "token", "src", "dst", "amount", "from"} {
		value, ok := params[name]
		if ok && strings.TrimSpace(value) == "" {
			return missingParam(op, name)
		}
	}
	return nil
}

func parseInt(s string) (*big.Int, error) {
	n, ok := new(big.Int).SetString(strings.TrimSpace(s), 10)
	if !ok {
		return nil, fmt.Errorf("not an integer: %q", s)
	}
	return n, nil
}
