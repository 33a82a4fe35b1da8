package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"ragequit/config"
	"ragequit/pkg/aggregator"
	"ragequit/pkg/chain"
	"ragequit/pkg/logger"
)

// app bundles what every command builds from the configuration
type app struct {
	cfg     *config.Config
	logger  *zap.Logger
	pool    *chain.Pool
	verbose bool
	json    bool
}

func newApp(cmd *cobra.Command) (*app, error) {
	verbose, _ := cmd.Flags().GetBool("verbose")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	logCfg := logger.DefaultConfig()
	logCfg.Level = cfg.Log.Level
	logCfg.Development = cfg.Log.Development
	logCfg.File = cfg.Log.File
	if verbose {
		logCfg.Level = "debug"
	}
	log, err := logger.New(logCfg, os.Stderr)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	return &app{
		cfg:     cfg,
		logger:  log,
		pool:    chain.NewPool(cfg.Endpoints()),
		verbose: verbose,
		json:    jsonOutput,
	}, nil
}

func (a *app) Close() {
	a.pool.Close()
	_ = logger.Sync(a.logger)
}

func (a *app) aggregator() (*aggregator.Client, error) {
	if err := a.cfg.RequireAPIKey(); err != nil {
		return nil, err
	}
	return aggregator.NewClient(aggregator.Config{
		BaseURL: a.cfg.Aggregator.BaseURL,
		APIKey:  a.cfg.Aggregator.APIKey,
		Timeout: a.cfg.Aggregator.Timeout,
		Chains:  a.cfg.AggregatorChains(),
	}, a.logger), nil
}

// signer starts on the first configured chain
func (a *app) signer() (*chain.EVMSigner, error) {
	if err := a.cfg.RequireWallet(); err != nil {
		return nil, err
	}
	var initial int64
	if len(a.cfg.Chains) > 0 {
		initial = a.cfg.Chains[0].ID
	}
	return chain.NewEVMSigner(a.pool, a.cfg.Wallet.PrivateKey, initial, a.logger)
}

func (a *app) spinner(suffix string) *spinner.Spinner {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
	s.Suffix = " " + suffix
	if !a.json {
		s.Start()
	}
	return s
}

func printJSON(v interface{}) {
	jsonData, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(jsonData))
}
