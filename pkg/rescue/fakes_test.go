package rescue

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"ragequit/pkg/types"
)

type submission struct {
	chainID int64
	tx      types.TransactionRequest
}

type fakeSigner struct {
	mu        sync.Mutex
	address   string
	chain     int64
	switchErr map[int64]error
	submitErr map[string]error
	switches  []int64
	submitted []submission
}

func (s *fakeSigner) Address() string { return s.address }

func (s *fakeSigner) CurrentChain(context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.chain, nil
}

func (s *fakeSigner) SwitchActiveChain(_ context.Context, chainID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.switches = append(s.switches, chainID)
	if err := s.switchErr[chainID]; err != nil {
		return err
	}
	s.chain = chainID
	return nil
}

// Submit uses the transaction data as its id so tests can address transactions
func (s *fakeSigner) Submit(_ context.Context, tx types.TransactionRequest) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.submitErr[tx.Data]; err != nil {
		return "", err
	}
	s.submitted = append(s.submitted, submission{chainID: s.chain, tx: tx})
	return tx.Data, nil
}

func (s *fakeSigner) sent(prefix string) []submission {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []submission
	for _, sub := range s.submitted {
		if strings.HasPrefix(sub.tx.Data, prefix) {
			out = append(out, sub)
		}
	}
	return out
}

type fakeAggregator struct {
	mu           sync.Mutex
	unsupported  map[int64]bool
	allowances   map[string]*big.Int
	allowanceErr map[string]error
	approvalErr  map[string]error
	swapErr      map[string]error
	calls        map[string]int
	approvals    []types.SwapParams
	swaps        []types.SwapParams
}

func newFakeAggregator() *fakeAggregator {
	return &fakeAggregator{
		unsupported:  make(map[int64]bool),
		allowances:   make(map[string]*big.Int),
		allowanceErr: make(map[string]error),
		approvalErr:  make(map[string]error),
		swapErr:      make(map[string]error),
		calls:        make(map[string]int),
	}
}

func (a *fakeAggregator) SupportsChain(chainID int64) bool {
	return !a.unsupported[chainID]
}

func (a *fakeAggregator) Allowance(_ context.Context, _ int64, token, _ string) (*big.Int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls[token]++
	if err := a.allowanceErr[token]; err != nil {
		return nil, err
	}
	if v, ok := a.allowances[token]; ok {
		return new(big.Int).Set(v), nil
	}
	return big.NewInt(0), nil
}

func (a *fakeAggregator) ApprovalTransaction(_ context.Context, chainID int64, token string, amount *big.Int) (types.TransactionRequest, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls[token]++
	if err := a.approvalErr[token]; err != nil {
		return types.TransactionRequest{}, err
	}
	a.approvals = append(a.approvals, types.SwapParams{ChainID: chainID, Src: token, Amount: new(big.Int).Set(amount)})
	return types.TransactionRequest{To: "router", Data: approveID(token, amount.String())}, nil
}

func (a *fakeAggregator) SwapTransaction(_ context.Context, params types.SwapParams) (types.SwapQuote, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls[params.Src]++
	if err := a.swapErr[params.Src]; err != nil {
		return types.SwapQuote{}, err
	}
	a.swaps = append(a.swaps, params)
	return types.SwapQuote{
		DstAmount: big.NewInt(42),
		Tx:        types.TransactionRequest{To: "router", Data: swapID(params.Src, params.Amount.String())},
	}, nil
}

func (a *fakeAggregator) callsFor(token string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls[token]
}

func (a *fakeAggregator) totalCalls() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	n := 0
	for _, c := range a.calls {
		n += c
	}
	return n
}

type fakeWatcher struct {
	mu        sync.Mutex
	fail      map[string]error
	block     map[string]bool
	delay     map[string]time.Duration
	confirmed map[string]bool
	waits     []string
}

func newFakeWatcher() *fakeWatcher {
	return &fakeWatcher{
		fail:      make(map[string]error),
		block:     make(map[string]bool),
		delay:     make(map[string]time.Duration),
		confirmed: make(map[string]bool),
	}
}

func (w *fakeWatcher) AwaitConfirmation(ctx context.Context, _ int64, txID string) error {
	w.mu.Lock()
	w.waits = append(w.waits, txID)
	blocked := w.block[txID]
	delay := w.delay[txID]
	err := w.fail[txID]
	w.mu.Unlock()

	if blocked {
		<-ctx.Done()
		return ctx.Err()
	}
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	w.mu.Lock()
	w.confirmed[txID] = err == nil
	w.mu.Unlock()
	return err
}

func (w *fakeWatcher) isConfirmed(txID string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.confirmed[txID]
}

func (w *fakeWatcher) waited() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.waits...)
}

type fakeRecorder struct {
	chainID int64
}

func (r fakeRecorder) ChainID() int64 { return r.chainID }

func (r fakeRecorder) RecordTransaction(count int) (types.TransactionRequest, error) {
	if count <= 0 {
		return types.TransactionRequest{}, fmt.Errorf("count must be positive")
	}
	return types.TransactionRequest{To: "recorder", Data: fmt.Sprintf("record:%d", count)}, nil
}

type recordingObserver struct {
	mu       sync.Mutex
	states   []types.RunState
	progress []types.RunProgress
	outcomes []types.TokenSwapOutcome
}

func (o *recordingObserver) OnState(state types.RunState, _ string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.states = append(o.states, state)
}

func (o *recordingObserver) OnProgress(p types.RunProgress) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.progress = append(o.progress, p)
}

func (o *recordingObserver) OnOutcome(outcome types.TokenSwapOutcome) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.outcomes = append(o.outcomes, outcome)
}

// gatedAggregator counts swap requests made before gate has confirmed
type gatedAggregator struct {
	*fakeAggregator
	watcher *fakeWatcher
	gate    string
	early   atomic.Int32
}

func (a *gatedAggregator) SwapTransaction(ctx context.Context, params types.SwapParams) (types.SwapQuote, error) {
	if !a.watcher.isConfirmed(a.gate) {
		a.early.Add(1)
	}
	return a.fakeAggregator.SwapTransaction(ctx, params)
}

func approveID(token, amount string) string {
	return fmt.Sprintf("approve:%s:%s", token, amount)
}

func swapID(token, amount string) string {
	return fmt.Sprintf("swap:%s:%s", token, amount)
}
