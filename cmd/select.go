package cmd

import (
	"fmt"

	"ragequit/pkg/parser"
	"ragequit/pkg/selection"
	"ragequit/pkg/types"
)

// selectPositions marks the positions to swap. An empty symbol list selects
// everything; overrides then replace the full-balance amount of matching tokens.
func selectPositions(store *selection.Store, only []string, overrides []string) error {
	wanted := make(map[string]bool, len(only))
	for _, symbol := range only {
		wanted[parser.NormalizeTokenSymbol(symbol)] = true
	}

	for _, p := range store.Positions() {
		if len(wanted) == 0 || wanted[parser.NormalizeTokenSymbol(p.Symbol)] {
			store.Select(p)
		}
	}

	for _, raw := range overrides {
		override, err := parser.ParseAmountOverride(raw)
		if err != nil {
			return err
		}
		if err := applyOverride(store, override, raw); err != nil {
			return err
		}
	}
	return nil
}

// applyOverride sets the amount of every selected token the override matches
func applyOverride(store *selection.Store, override *parser.AmountOverride, raw string) error {
	matched := 0
	for _, sel := range store.Selected() {
		if !matchesOverride(sel.Position, override) {
			continue
		}
		if !store.SetAmount(sel.Position.ChainID, sel.Position.Address, override.Amount) {
			return fmt.Errorf("amount %q rejected for %s", override.Amount, sel.Position.Symbol)
		}
		matched++
	}
	if matched == 0 {
		return fmt.Errorf("no selected token matches %q", raw)
	}
	return nil
}

func matchesOverride(p types.TokenPosition, o *parser.AmountOverride) bool {
	if o.ChainID != 0 && o.ChainID != p.ChainID {
		return false
	}
	return parser.NormalizeTokenSymbol(p.Symbol) == o.Symbol
}
