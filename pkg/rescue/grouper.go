package rescue

import (
	"ragequit/pkg/types"
)

// ChainBatch is the resolved work for a single chain
type ChainBatch struct {
	ChainID int64
	Entries []types.ResolvedEntry
}

// Resolve parses each selection's amount at its position's decimals.
// Empty, unparseable and zero amounts are dropped.
func Resolve(selections []types.Selection) []types.ResolvedEntry {
	entries := make([]types.ResolvedEntry, 0, len(selections))
	for _, sel := range selections {
		raw, err := types.ToRaw(sel.Amount, sel.Position.Decimals)
		if err != nil || raw.Sign() == 0 {
			continue
		}
		entries = append(entries, types.ResolvedEntry{
			Index:    len(entries),
			Position: sel.Position,
			Amount:   raw,
		})
	}
	return entries
}

// GroupByChain partitions resolved selections by chain, keeping the order in
// which chains first appear and the order of entries within each chain
func GroupByChain(selections []types.Selection) []ChainBatch {
	var batches []ChainBatch
	slot := make(map[int64]int)

	for _, entry := range Resolve(selections) {
		i, ok := slot[entry.Position.ChainID]
		if !ok {
			i = len(batches)
			slot[entry.Position.ChainID] = i
			batches = append(batches, ChainBatch{ChainID: entry.Position.ChainID})
		}
		batches[i].Entries = append(batches[i].Entries, entry)
	}

	return batches
}

// CountEntries returns the number of entries across all batches
func CountEntries(batches []ChainBatch) int {
	n := 0
	for _, b := range batches {
		n += len(b.Entries)
	}
	return n
}
