package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/viper"

	"ragequit/pkg/chain"
	"ragequit/pkg/types"
)

// Config holds the application configuration
type Config struct {
	Aggregator AggregatorConfig `mapstructure:"aggregator"`
	Wallet     WalletConfig     `mapstructure:"wallet"`
	Chains     []ChainConfig    `mapstructure:"chains"`
	Run        RunConfig        `mapstructure:"run"`
	Recorder   RecorderConfig   `mapstructure:"recorder"`
	History    HistoryConfig    `mapstructure:"history"`
	Log        LogConfig        `mapstructure:"log"`
}

type AggregatorConfig struct {
	BaseURL    string           `mapstructure:"base_url"`
	APIKey     string           `mapstructure:"api_key"`
	Timeout    time.Duration    `mapstructure:"timeout"`
	ChainNames map[int64]string `mapstructure:"chain_names"`
}

type WalletConfig struct {
	PrivateKey string `mapstructure:"private_key"`
}

type TokenConfig struct {
	Address  string `mapstructure:"address"`
	Symbol   string `mapstructure:"symbol"`
	Decimals uint8  `mapstructure:"decimals"`
}

type ChainConfig struct {
	ID         int64         `mapstructure:"id"`
	Name       string        `mapstructure:"name"`
	RPCURL     string        `mapstructure:"rpc_url"`
	Stablecoin TokenConfig   `mapstructure:"stablecoin"`
	Tokens     []TokenConfig `mapstructure:"tokens"`
}

type RunConfig struct {
	SlippagePercent     float64       `mapstructure:"slippage_percent"`
	SettleDelay         time.Duration `mapstructure:"settle_delay"`
	ConfirmationTimeout time.Duration `mapstructure:"confirmation_timeout"`
	RecordOnChain       bool          `mapstructure:"record_on_chain"`
}

type RecorderConfig struct {
	ChainID  int64  `mapstructure:"chain_id"`
	Contract string `mapstructure:"contract"`
}

type HistoryConfig struct {
	Path string `mapstructure:"path"`
}

type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
	File        string `mapstructure:"file"`
}

// DefaultRecorderContract is the batch counter deployed on Base
const DefaultRecorderContract = "0x2c36BB66ace498F62b1709E60b0614bA1C360c2c"

// DefaultChains returns the chains scanned when no chains are configured
func DefaultChains() []ChainConfig {
	return []ChainConfig{
		{
			ID:         1,
			Name:       "Ethereum",
			RPCURL:     "https://eth.llamarpc.com",
			Stablecoin: TokenConfig{Address: "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48", Symbol: "USDC", Decimals: 6},
			Tokens: []TokenConfig{
				{Address: "0x6982508145454Ce325dDbE47a25d4ec3d2311933", Symbol: "PEPE", Decimals: 18},
			},
		},
		{
			ID:         8453,
			Name:       "Base",
			RPCURL:     "https://mainnet.base.org",
			Stablecoin: TokenConfig{Address: "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913", Symbol: "USDC", Decimals: 6},
			Tokens: []TokenConfig{
				{Address: "0x4ed4E862860beD51a9570b96d89aF5E1B0Efefed", Symbol: "DEGEN", Decimals: 18},
				{Address: "0x532f27101965dd16442E59d40670FaF5eBB142E4", Symbol: "BRETT", Decimals: 18},
			},
		},
		{
			ID:         42161,
			Name:       "Arbitrum",
			RPCURL:     "https://arb1.arbitrum.io/rpc",
			Stablecoin: TokenConfig{Address: "0xaf88d065e77c8cC2239327C5EDb3A432268e5831", Symbol: "USDC", Decimals: 6},
		},
		{
			ID:         10,
			Name:       "Optimism",
			RPCURL:     "https://mainnet.optimism.io",
			Stablecoin: TokenConfig{Address: "0x0b2C639c533813f4Aa9D7837CAf62653d097Ff85", Symbol: "USDC", Decimals: 6},
		},
		{
			ID:         137,
			Name:       "Polygon",
			RPCURL:     "https://polygon-rpc.com",
			Stablecoin: TokenConfig{Address: "0x3c499c542cEF5E3811e1192ce70d8cC03d5c3359", Symbol: "USDC", Decimals: 6},
		},
	}
}

func setDefaults(v *viper.Viper) {
	defaults := map[string]interface{}{
		"aggregator.base_url":      "https://api.1inch.dev",
		"aggregator.timeout":       "15s",
		"run.slippage_percent":     3.0,
		"run.settle_delay":         "1s",
		"run.confirmation_timeout": "5m",
		"run.record_on_chain":      false,
		"recorder.chain_id":        8453,
		"recorder.contract":        DefaultRecorderContract,
		"history.path":             "",
		"log.level":                "warn",
		"log.development":          false,
		"log.file":                 "",
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
}

// Load reads configuration from environment variables and config file.
// An empty path searches $HOME and the working directory for .ragequit.yaml.
func Load(path string) (*Config, error) {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(".ragequit")
		v.SetConfigType("yaml")
		v.AddConfigPath("$HOME")
		v.AddConfigPath(".")
	}

	setDefaults(v)

	v.SetEnvPrefix("RAGEQUIT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// AutomaticEnv only covers keys viper already knows about
	_ = v.BindEnv("aggregator.api_key")
	_ = v.BindEnv("wallet.private_key")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if len(cfg.Chains) == 0 {
		cfg.Chains = DefaultChains()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks everything a run needs except credentials
func (c *Config) Validate() error {
	if err := validateURL(c.Aggregator.BaseURL); err != nil {
		return fmt.Errorf("aggregator.base_url: %w", err)
	}
	if c.Aggregator.Timeout <= 0 {
		return errors.New("aggregator.timeout must be positive")
	}
	if c.Run.SlippagePercent <= 0 || c.Run.SlippagePercent > 50 {
		return fmt.Errorf("run.slippage_percent must be in (0, 50], got %v", c.Run.SlippagePercent)
	}
	if c.Run.SettleDelay < 0 {
		return errors.New("run.settle_delay cannot be negative")
	}
	if c.Run.ConfirmationTimeout < 0 {
		return errors.New("run.confirmation_timeout cannot be negative")
	}

	seen := make(map[int64]bool)
	for i, ch := range c.Chains {
		if ch.ID <= 0 {
			return fmt.Errorf("chains[%d]: id must be positive", i)
		}
		if seen[ch.ID] {
			return fmt.Errorf("chains[%d]: duplicate chain id %d", i, ch.ID)
		}
		seen[ch.ID] = true
		if err := validateURL(ch.RPCURL); err != nil {
			return fmt.Errorf("chains[%d].rpc_url: %w", i, err)
		}
		if !common.IsHexAddress(ch.Stablecoin.Address) {
			return fmt.Errorf("chains[%d].stablecoin: invalid address %q", i, ch.Stablecoin.Address)
		}
		for j, tok := range ch.Tokens {
			if !common.IsHexAddress(tok.Address) {
				return fmt.Errorf("chains[%d].tokens[%d]: invalid address %q", i, j, tok.Address)
			}
			if tok.Symbol == "" {
				return fmt.Errorf("chains[%d].tokens[%d]: symbol is required", i, j)
			}
		}
	}

	if c.Recorder.ChainID != 0 && !common.IsHexAddress(c.Recorder.Contract) {
		return fmt.Errorf("recorder.contract: invalid address %q", c.Recorder.Contract)
	}
	return nil
}

// RequireAPIKey fails when no aggregator key is configured
func (c *Config) RequireAPIKey() error {
	if c.Aggregator.APIKey == "" {
		return errors.New("aggregator API key not found. Please set RAGEQUIT_AGGREGATOR_API_KEY or aggregator.api_key in .ragequit.yaml")
	}
	return nil
}

// RequireWallet fails when no signing key is configured
func (c *Config) RequireWallet() error {
	if c.Wallet.PrivateKey == "" {
		return errors.New("wallet not connected. Please set RAGEQUIT_WALLET_PRIVATE_KEY or wallet.private_key in .ragequit.yaml")
	}
	return nil
}

// Chain finds a configured chain by id or case-insensitive name
func (c *Config) Chain(ref string) (ChainConfig, bool) {
	for _, ch := range c.Chains {
		if strings.EqualFold(ch.Name, ref) || fmt.Sprint(ch.ID) == ref {
			return ch, true
		}
	}
	return ChainConfig{}, false
}

// Targets maps each chain to its stablecoin
func (c *Config) Targets() map[int64]types.SwapTarget {
	targets := make(map[int64]types.SwapTarget, len(c.Chains))
	for _, ch := range c.Chains {
		targets[ch.ID] = types.SwapTarget{
			ChainID:  ch.ID,
			Address:  ch.Stablecoin.Address,
			Symbol:   ch.Stablecoin.Symbol,
			Decimals: ch.Stablecoin.Decimals,
		}
	}
	return targets
}

// Endpoints maps each chain to its RPC URL
func (c *Config) Endpoints() map[int64]string {
	endpoints := make(map[int64]string, len(c.Chains))
	for _, ch := range c.Chains {
		endpoints[ch.ID] = ch.RPCURL
	}
	return endpoints
}

// ScanTokens flattens the configured risk tokens in chain order
func (c *Config) ScanTokens() []chain.Token {
	var tokens []chain.Token
	for _, ch := range c.Chains {
		for _, tok := range ch.Tokens {
			tokens = append(tokens, chain.Token{
				ChainID:   ch.ID,
				ChainName: ch.Name,
				Address:   tok.Address,
				Symbol:    tok.Symbol,
				Decimals:  tok.Decimals,
			})
		}
	}
	return tokens
}

// AggregatorChains maps chain ids to aggregator path segments.
// Configured chains default to their numeric id.
func (c *Config) AggregatorChains() map[int64]string {
	chains := make(map[int64]string, len(c.Chains))
	for _, ch := range c.Chains {
		chains[ch.ID] = fmt.Sprint(ch.ID)
	}
	for id, name := range c.Aggregator.ChainNames {
		chains[id] = name
	}
	return chains
}

func validateURL(raw string) error {
	if raw == "" {
		return errors.New("url is required")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return errors.New("missing host")
	}
	return nil
}
