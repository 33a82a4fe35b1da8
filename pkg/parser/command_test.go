package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsPlainAmount(t *testing.T) {
	accepted := []string{"", "0", "100", "1.5", ".5", "5.", "000.100"}
	for _, text := range accepted {
		assert.True(t, IsPlainAmount(text), "expected %q to be accepted", text)
	}

	rejected := []string{"-1", "+1", "1e5", "1.2.3", "abc", "1,5", " 1", "0x10"}
	for _, text := range rejected {
		assert.False(t, IsPlainAmount(text), "expected %q to be rejected", text)
	}
}

func TestParseAmountOverride(t *testing.T) {
	t.Run("symbol only", func(t *testing.T) {
		o, err := ParseAmountOverride("degen=1500")
		require.NoError(t, err)
		assert.Equal(t, int64(0), o.ChainID)
		assert.Equal(t, "DEGEN", o.Symbol)
		assert.Equal(t, "1500", o.Amount)
	})

	t.Run("with chain", func(t *testing.T) {
		o, err := ParseAmountOverride("8453:DEGEN=0.5")
		require.NoError(t, err)
		assert.Equal(t, int64(8453), o.ChainID)
		assert.Equal(t, "0.5", o.Amount)
	})

	t.Run("empty amount is allowed", func(t *testing.T) {
		o, err := ParseAmountOverride("PEPE=")
		require.NoError(t, err)
		assert.Equal(t, "", o.Amount)
	})

	t.Run("rejects exponent", func(t *testing.T) {
		_, err := ParseAmountOverride("PEPE=1e9")
		assert.Error(t, err)
	})

	t.Run("rejects missing separator", func(t *testing.T) {
		_, err := ParseAmountOverride("PEPE 10")
		assert.Error(t, err)
	})
}
