package selection

import (
	"math/big"
	"sort"
	"sync"

	"ragequit/pkg/parser"
	"ragequit/pkg/types"
)

// Store holds scanned positions and the user's selections.
// Every write replaces whole entries, so readers never observe a partial update.
type Store struct {
	mu         sync.RWMutex
	positions  map[string]types.TokenPosition
	order      []string
	selections map[string]types.Selection
	selected   []string
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		positions:  make(map[string]types.TokenPosition),
		selections: make(map[string]types.Selection),
	}
}

// SetPositions replaces all positions with fresh scanner output.
// Selections whose position disappeared are dropped.
func (s *Store) SetPositions(positions []types.TokenPosition) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.positions = make(map[string]types.TokenPosition, len(positions))
	s.order = s.order[:0]
	for _, p := range positions {
		key := p.Key()
		if _, exists := s.positions[key]; !exists {
			s.order = append(s.order, key)
		}
		s.positions[key] = clonePosition(p)
	}

	for key := range s.selections {
		if _, exists := s.positions[key]; !exists {
			s.removeSelectionLocked(key)
		}
	}
}

// Positions returns all positions in scan order
func (s *Store) Positions() []types.TokenPosition {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]types.TokenPosition, 0, len(s.order))
	for _, key := range s.order {
		out = append(out, clonePosition(s.positions[key]))
	}
	return out
}

// Position looks up a single position
func (s *Store) Position(chainID int64, address string) (types.TokenPosition, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.positions[types.TokenKey(chainID, address)]
	return clonePosition(p), ok
}

// Select marks a position for swapping with its full balance
func (s *Store) Select(position types.TokenPosition) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := position.Key()
	if _, exists := s.selections[key]; !exists {
		s.selected = append(s.selected, key)
	}
	s.selections[key] = types.Selection{
		Position: clonePosition(position),
		Amount:   position.HumanBalance,
	}
}

// Deselect removes a selection, discarding any edited amount
func (s *Store) Deselect(chainID int64, address string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.removeSelectionLocked(types.TokenKey(chainID, address))
}

// Toggle selects an unselected position or deselects a selected one.
// It returns true when the position ends up selected.
func (s *Store) Toggle(position types.TokenPosition) bool {
	if s.IsSelected(position.ChainID, position.Address) {
		s.Deselect(position.ChainID, position.Address)
		return false
	}
	s.Select(position)
	return true
}

// IsSelected reports whether the pair is selected
func (s *Store) IsSelected(chainID int64, address string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.selections[types.TokenKey(chainID, address)]
	return ok
}

// SetAmount edits the requested amount of a selection.
// Only empty text or plain non-negative decimals are accepted; anything else
// leaves the prior value in place and returns false.
func (s *Store) SetAmount(chainID int64, address, amount string) bool {
	if !parser.IsPlainAmount(amount) {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := types.TokenKey(chainID, address)
	sel, ok := s.selections[key]
	if !ok {
		return false
	}
	sel.Amount = amount
	s.selections[key] = sel
	return true
}

// Amount returns the requested amount of a selection
func (s *Store) Amount(chainID int64, address string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.selections[types.TokenKey(chainID, address)].Amount
}

// Selected returns all selections in the order they were made
func (s *Store) Selected() []types.Selection {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]types.Selection, 0, len(s.selected))
	for _, key := range s.selected {
		sel := s.selections[key]
		sel.Position = clonePosition(sel.Position)
		out = append(out, sel)
	}
	return out
}

// ApplyOptimisticDecrement subtracts a confirmed swap from a position.
// A position at or below zero is removed along with its selection; otherwise
// the balance is recomputed and the selection reset to the new full balance.
// Unknown positions are ignored.
func (s *Store) ApplyOptimisticDecrement(chainID int64, address string, swapped *big.Int, decimals uint8) {
	if swapped == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := types.TokenKey(chainID, address)
	p, ok := s.positions[key]
	if !ok {
		return
	}

	remaining := new(big.Int).Sub(p.RawBalance, swapped)
	if remaining.Sign() <= 0 {
		delete(s.positions, key)
		s.order = removeKey(s.order, key)
		s.removeSelectionLocked(key)
		return
	}

	updated := clonePosition(p)
	updated.RawBalance = remaining
	updated.Decimals = decimals
	updated.HumanBalance = types.FromRaw(remaining, decimals)
	s.positions[key] = updated

	if sel, selected := s.selections[key]; selected {
		sel.Position = clonePosition(updated)
		sel.Amount = updated.HumanBalance
		s.selections[key] = sel
	}
}

// ApplyOutcomes applies the optimistic decrement of every swapped outcome
func (s *Store) ApplyOutcomes(outcomes []types.TokenSwapOutcome) int {
	applied := 0
	for _, o := range outcomes {
		if o.Status != types.OutcomeSwapped {
			continue
		}
		s.ApplyOptimisticDecrement(o.ChainID, o.Address, o.Amount, o.Decimals)
		applied++
	}
	return applied
}

// ClearAll removes every selection; positions are untouched
func (s *Store) ClearAll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.selections = make(map[string]types.Selection)
	s.selected = nil
}

// ChainIDs returns the distinct chains of all positions, ascending
func (s *Store) ChainIDs() []int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[int64]struct{})
	ids := make([]int64, 0)
	for _, p := range s.positions {
		if _, ok := seen[p.ChainID]; ok {
			continue
		}
		seen[p.ChainID] = struct{}{}
		ids = append(ids, p.ChainID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (s *Store) removeSelectionLocked(key string) {
	if _, ok := s.selections[key]; !ok {
		return
	}
	delete(s.selections, key)
	s.selected = removeKey(s.selected, key)
}

func removeKey(keys []string, key string) []string {
	out := keys[:0]
	for _, k := range keys {
		if k != key {
			out = append(out, k)
		}
	}
	return out
}

func clonePosition(p types.TokenPosition) types.TokenPosition {
	if p.RawBalance != nil {
		p.RawBalance = new(big.Int).Set(p.RawBalance)
	}
	return p
}
