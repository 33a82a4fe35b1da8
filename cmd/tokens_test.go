package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"ragequit/config"
)

func TestListTokensFilters(t *testing.T) {
	cfg := &config.Config{Chains: config.DefaultChains()}

	all := listTokens(cfg, "", "")
	assert.Len(t, all, 3)

	base := listTokens(cfg, "BASE", "")
	assert.Len(t, base, 2)
	for _, r := range base {
		assert.Equal(t, int64(8453), r.ChainID)
		assert.Equal(t, "USDC", r.Target)
	}

	byID := listTokens(cfg, "1", "")
	if assert.Len(t, byID, 1) {
		assert.Equal(t, "PEPE", byID[0].Symbol)
	}

	assert.Len(t, listTokens(cfg, "", "degen"), 1)
	assert.Empty(t, listTokens(cfg, "polygon", "degen"))
}
