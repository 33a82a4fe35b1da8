package rescue

import (
	"sort"
	"sync"

	"ragequit/pkg/types"
)

// tracker owns the mutable state of a run: progress, status and outcomes.
// Each entry's approval step and swap step are counted at most once.
type tracker struct {
	mu       sync.Mutex
	observer Observer
	state    types.RunState
	progress types.RunProgress
	approved map[int]bool
	swapped  map[int]bool
	outcomes map[int]types.TokenSwapOutcome
}

func newTracker(observer Observer) *tracker {
	if observer == nil {
		observer = nopObserver{}
	}
	return &tracker{
		observer: observer,
		state:    types.StateIdle,
		approved: make(map[int]bool),
		swapped:  make(map[int]bool),
		outcomes: make(map[int]types.TokenSwapOutcome),
	}
}

func (t *tracker) start(totalSteps int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.progress = types.RunProgress{TotalSteps: totalSteps, Status: t.progress.Status}
	t.observer.OnProgress(t.progress)
}

func (t *tracker) setState(state types.RunState, status string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.state = state
	t.progress.Status = status
	t.observer.OnState(state, status)
}

func (t *tracker) setStatus(status string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.progress.Status = status
	t.observer.OnProgress(t.progress)
}

// approvalDone counts the approval step of an entry that may go on to swap
func (t *tracker) approvalDone(index int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.countLocked(t.approved, index) {
		t.observer.OnProgress(t.progress)
	}
}

// finish records the terminal outcome of an entry and counts any of its
// steps not counted yet
func (t *tracker) finish(index int, outcome types.TokenSwapOutcome) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, done := t.outcomes[index]; done {
		return
	}
	t.outcomes[index] = outcome

	a := t.countLocked(t.approved, index)
	s := t.countLocked(t.swapped, index)
	t.observer.OnOutcome(outcome)
	if a || s {
		t.observer.OnProgress(t.progress)
	}
}

func (t *tracker) countLocked(steps map[int]bool, index int) bool {
	if steps[index] {
		return false
	}
	steps[index] = true
	if t.progress.CompletedSteps < t.progress.TotalSteps {
		t.progress.CompletedSteps++
	}
	return true
}

// complete forces progress to 100% with a final status
func (t *tracker) complete(status string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.state = types.StateComplete
	t.progress.CompletedSteps = t.progress.TotalSteps
	t.progress.Status = status
	t.observer.OnProgress(t.progress)
	t.observer.OnState(t.state, status)
}

func (t *tracker) snapshot() types.RunProgress {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.progress
}

func (t *tracker) swappedCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	n := 0
	for _, o := range t.outcomes {
		if o.Status == types.OutcomeSwapped {
			n++
		}
	}
	return n
}

// results returns outcomes in selection order
func (t *tracker) results() []types.TokenSwapOutcome {
	t.mu.Lock()
	defer t.mu.Unlock()

	indexes := make([]int, 0, len(t.outcomes))
	for i := range t.outcomes {
		indexes = append(indexes, i)
	}
	sort.Ints(indexes)

	out := make([]types.TokenSwapOutcome, 0, len(indexes))
	for _, i := range indexes {
		out = append(out, t.outcomes[i])
	}
	return out
}

func outcomeFor(entry types.ResolvedEntry, status types.OutcomeStatus, err error) types.TokenSwapOutcome {
	o := types.TokenSwapOutcome{
		ChainID:  entry.Position.ChainID,
		Address:  entry.Position.Address,
		Symbol:   entry.Position.Symbol,
		Amount:   entry.Amount,
		Decimals: entry.Position.Decimals,
		Status:   status,
	}
	if err != nil {
		o.Err = err.Error()
	}
	return o
}
