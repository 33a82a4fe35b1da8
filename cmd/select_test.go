package cmd

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragequit/pkg/parser"
	"ragequit/pkg/selection"
	"ragequit/pkg/types"
)

func testStore() *selection.Store {
	store := selection.NewStore()
	store.SetPositions([]types.TokenPosition{
		{ChainID: 8453, Address: "0x4ed4E862860beD51a9570b96d89aF5E1B0Efefed", Symbol: "DEGEN", HumanBalance: "2000", RawBalance: big.NewInt(2000), Decimals: 0},
		{ChainID: 1, Address: "0x6982508145454Ce325dDbE47a25d4ec3d2311933", Symbol: "PEPE", HumanBalance: "10", RawBalance: big.NewInt(10), Decimals: 0},
		{ChainID: 8453, Address: "0x532f27101965dd16442E59d40670FaF5eBB142E4", Symbol: "BRETT", HumanBalance: "5", RawBalance: big.NewInt(5), Decimals: 0},
	})
	return store
}

func TestSelectPositionsAll(t *testing.T) {
	store := testStore()
	require.NoError(t, selectPositions(store, nil, nil))

	selected := store.Selected()
	require.Len(t, selected, 3)
	assert.Equal(t, "2000", selected[0].Amount)
}

func TestSelectPositionsOnlyAndOverride(t *testing.T) {
	store := testStore()
	require.NoError(t, selectPositions(store, []string{"degen", "pepe"}, []string{"DEGEN=1500", "1:pepe=4"}))

	selected := store.Selected()
	require.Len(t, selected, 2)
	assert.Equal(t, "1500", store.Amount(8453, "0x4ed4E862860beD51a9570b96d89aF5E1B0Efefed"))
	assert.Equal(t, "4", store.Amount(1, "0x6982508145454Ce325dDbE47a25d4ec3d2311933"))
	assert.False(t, store.IsSelected(8453, "0x532f27101965dd16442E59d40670FaF5eBB142E4"))
}

func TestSelectPositionsOverrideErrors(t *testing.T) {
	t.Run("unselected token", func(t *testing.T) {
		store := testStore()
		err := selectPositions(store, []string{"PEPE"}, []string{"BRETT=1"})
		assert.ErrorContains(t, err, "no selected token")
	})
	t.Run("wrong chain", func(t *testing.T) {
		store := testStore()
		err := selectPositions(store, nil, []string{"1:DEGEN=1"})
		assert.Error(t, err)
	})
	t.Run("malformed", func(t *testing.T) {
		store := testStore()
		err := selectPositions(store, nil, []string{"DEGEN=-1"})
		assert.Error(t, err)
	})
}

func TestApplyOverrideRejectedAmount(t *testing.T) {
	store := testStore()
	require.NoError(t, selectPositions(store, []string{"DEGEN"}, nil))

	err := applyOverride(store, &parser.AmountOverride{Symbol: "DEGEN", Amount: "1e3"}, "DEGEN=1e3")
	assert.ErrorContains(t, err, "rejected for DEGEN")
	assert.Equal(t, "2000", store.Amount(8453, "0x4ed4E862860beD51a9570b96d89aF5E1B0Efefed"))
}
