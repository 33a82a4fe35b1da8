package selection

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragequit/pkg/types"
)

const degen = "0x4ed4E862860beD51a9570b96d89aF5E1B0Efefed"

func degenPosition() types.TokenPosition {
	raw, _ := new(big.Int).SetString("100000000000000000000", 10)
	return types.TokenPosition{
		ChainID:      8453,
		ChainName:    "base",
		Address:      degen,
		Symbol:       "DEGEN",
		HumanBalance: "100",
		RawBalance:   raw,
		Decimals:     18,
	}
}

func TestStore_SelectAndDeselect(t *testing.T) {
	s := NewStore()
	pos := degenPosition()
	s.SetPositions([]types.TokenPosition{pos})

	s.Select(pos)
	require.True(t, s.IsSelected(8453, degen))
	assert.Equal(t, "100", s.Amount(8453, degen))

	// lookup is case-insensitive on the address
	assert.True(t, s.IsSelected(8453, "0x4ED4E862860BED51A9570B96D89AF5E1B0EFEFED"))

	s.Deselect(8453, degen)
	assert.False(t, s.IsSelected(8453, degen))
	assert.Empty(t, s.Selected())
}

func TestStore_Toggle(t *testing.T) {
	s := NewStore()
	pos := degenPosition()

	assert.True(t, s.Toggle(pos))
	require.True(t, s.SetAmount(pos.ChainID, pos.Address, "40"))
	assert.False(t, s.Toggle(pos))

	// re-selecting starts from the full balance again
	assert.True(t, s.Toggle(pos))
	assert.Equal(t, "100", s.Amount(pos.ChainID, pos.Address))
}

func TestStore_SetAmount(t *testing.T) {
	tests := []struct {
		input    string
		accepted bool
		want     string
	}{
		{"12.5", true, "12.5"},
		{"", true, ""},
		{".5", true, ".5"},
		{"7.", true, "7."},
		{"-1", false, "100"},
		{"1e5", false, "100"},
		{"1.2.3", false, "100"},
		{"abc", false, "100"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			s := NewStore()
			pos := degenPosition()
			s.Select(pos)

			assert.Equal(t, tt.accepted, s.SetAmount(pos.ChainID, pos.Address, tt.input))
			assert.Equal(t, tt.want, s.Amount(pos.ChainID, pos.Address))
		})
	}

	t.Run("unselected token", func(t *testing.T) {
		s := NewStore()
		assert.False(t, s.SetAmount(8453, degen, "1"))
	})
}

func TestStore_SelectedKeepsInsertionOrder(t *testing.T) {
	s := NewStore()
	a := degenPosition()
	b := types.TokenPosition{ChainID: 1, Address: "0x6982508145454Ce325dDbE47a25d4ec3d2311933", Symbol: "PEPE", HumanBalance: "5", RawBalance: big.NewInt(5), Decimals: 0}
	c := types.TokenPosition{ChainID: 8453, Address: "0x0000000000000000000000000000000000000001", Symbol: "X", HumanBalance: "1", RawBalance: big.NewInt(1), Decimals: 0}

	s.Select(b)
	s.Select(a)
	s.Select(c)

	selected := s.Selected()
	require.Len(t, selected, 3)
	assert.Equal(t, "PEPE", selected[0].Position.Symbol)
	assert.Equal(t, "DEGEN", selected[1].Position.Symbol)
	assert.Equal(t, "X", selected[2].Position.Symbol)
}

func TestStore_ApplyOptimisticDecrement(t *testing.T) {
	t.Run("partial swap keeps position with new balance", func(t *testing.T) {
		s := NewStore()
		pos := degenPosition()
		s.SetPositions([]types.TokenPosition{pos})
		s.Select(pos)

		swapped, _ := new(big.Int).SetString("40000000000000000000", 10)
		s.ApplyOptimisticDecrement(pos.ChainID, pos.Address, swapped, 18)

		got, ok := s.Position(pos.ChainID, pos.Address)
		require.True(t, ok)
		assert.Equal(t, "60", got.HumanBalance)
		assert.Equal(t, "60000000000000000000", got.RawBalance.String())
		assert.Equal(t, "60", s.Amount(pos.ChainID, pos.Address))
	})

	t.Run("full swap removes position and selection", func(t *testing.T) {
		s := NewStore()
		pos := degenPosition()
		s.SetPositions([]types.TokenPosition{pos})
		s.Select(pos)

		s.ApplyOptimisticDecrement(pos.ChainID, pos.Address, pos.RawBalance, 18)

		_, ok := s.Position(pos.ChainID, pos.Address)
		assert.False(t, ok)
		assert.False(t, s.IsSelected(pos.ChainID, pos.Address))
		assert.Empty(t, s.Positions())
	})

	t.Run("unknown position is ignored", func(t *testing.T) {
		s := NewStore()
		s.ApplyOptimisticDecrement(1, degen, big.NewInt(1), 18)
		assert.Empty(t, s.Positions())
	})

	t.Run("stored balance is not aliased", func(t *testing.T) {
		s := NewStore()
		pos := degenPosition()
		s.SetPositions([]types.TokenPosition{pos})
		pos.RawBalance.SetInt64(1)

		got, _ := s.Position(8453, degen)
		assert.Equal(t, "100000000000000000000", got.RawBalance.String())
	})
}

func TestStore_ApplyOutcomes(t *testing.T) {
	s := NewStore()
	pos := degenPosition()
	s.SetPositions([]types.TokenPosition{pos})

	applied := s.ApplyOutcomes([]types.TokenSwapOutcome{
		{ChainID: pos.ChainID, Address: pos.Address, Amount: big.NewInt(1), Decimals: 18, Status: types.OutcomeConfirmationFailed},
		{ChainID: pos.ChainID, Address: pos.Address, Amount: pos.RawBalance, Decimals: 18, Status: types.OutcomeSwapped},
	})

	assert.Equal(t, 1, applied)
	assert.Empty(t, s.Positions())
}

func TestStore_SetPositionsDropsStaleSelections(t *testing.T) {
	s := NewStore()
	pos := degenPosition()
	s.SetPositions([]types.TokenPosition{pos})
	s.Select(pos)

	s.SetPositions(nil)
	assert.Empty(t, s.Selected())
}

func TestStore_ClearAllKeepsPositions(t *testing.T) {
	s := NewStore()
	pos := degenPosition()
	s.SetPositions([]types.TokenPosition{pos})
	s.Select(pos)

	s.ClearAll()
	assert.Empty(t, s.Selected())
	assert.Len(t, s.Positions(), 1)
	assert.Equal(t, []int64{8453}, s.ChainIDs())
}
