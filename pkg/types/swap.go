package types

import (
	"fmt"
	"math/big"
	"strings"
	"time"
)

// NativeTokenAddress is the sentinel aggregators use for a chain's native asset
const NativeTokenAddress = "0xEeeeeEeeeEeEeeEeEeEeeEEEeeeeEeeeeeeeEEeE"

// TokenPosition is one token holding on one chain
type TokenPosition struct {
	ChainID      int64    `json:"chain_id"`
	ChainName    string   `json:"chain_name,omitempty"`
	Address      string   `json:"address"`
	Symbol       string   `json:"symbol"`
	HumanBalance string   `json:"balance"`
	RawBalance   *big.Int `json:"raw_balance"`
	Decimals     uint8    `json:"decimals"`
}

// Key returns the case-insensitive identity of the position
func (p TokenPosition) Key() string {
	return TokenKey(p.ChainID, p.Address)
}

// Selection is a position marked for swapping with a user-editable amount
type Selection struct {
	Position TokenPosition `json:"position"`
	Amount   string        `json:"amount"`
}

// SwapTarget is the destination stablecoin of a chain
type SwapTarget struct {
	ChainID  int64  `json:"chain_id"`
	Address  string `json:"address"`
	Symbol   string `json:"symbol"`
	Decimals uint8  `json:"decimals"`
}

// TransactionRequest is a ready-to-sign transaction produced by the aggregator
type TransactionRequest struct {
	To    string `json:"to"`
	Data  string `json:"data"`
	Value string `json:"value"`
	Gas   uint64 `json:"gas,omitempty"`
}

// SwapParams describes a swap transaction request to the aggregator
type SwapParams struct {
	ChainID  int64
	Src      string
	Dst      string
	Amount   *big.Int
	From     string
	Slippage float64 // percentage points, 3 means 3%
}

// SwapQuote is the aggregator's answer to a swap transaction request
type SwapQuote struct {
	DstAmount *big.Int
	Tx        TransactionRequest
}

// ResolvedEntry is a selection whose amount parsed into raw units
type ResolvedEntry struct {
	Index    int
	Position TokenPosition
	Amount   *big.Int
}

// RunProgress tracks completed steps of a batch run
type RunProgress struct {
	CompletedSteps int    `json:"completed_steps"`
	TotalSteps     int    `json:"total_steps"`
	Status         string `json:"status"`
}

// Percent returns progress as a percentage
func (p RunProgress) Percent() float64 {
	if p.TotalSteps == 0 {
		return 0
	}
	return float64(p.CompletedSteps) / float64(p.TotalSteps) * 100
}

// RunState is the orchestrator state
type RunState string

const (
	StateIdle      RunState = "idle"
	StateResolving RunState = "resolving"
	StateSwitching RunState = "switching"
	StateApproving RunState = "approving"
	StateSwapping  RunState = "swapping"
	StateRecording RunState = "recording"
	StateComplete  RunState = "complete"
	StateAborted   RunState = "aborted"
)

// OutcomeStatus is the terminal result for one token of a run
type OutcomeStatus string

const (
	OutcomeSwapped            OutcomeStatus = "swapped"
	OutcomeAlreadyTarget      OutcomeStatus = "already_target"
	OutcomeNativeSkipped      OutcomeStatus = "native_skipped"
	OutcomeApprovalFailed     OutcomeStatus = "skipped_approval_failed"
	OutcomeQuoteFailed        OutcomeStatus = "quote_failed"
	OutcomeSubmitFailed       OutcomeStatus = "submit_failed"
	OutcomeConfirmationFailed OutcomeStatus = "confirmation_failed"
	OutcomeChainFailed        OutcomeStatus = "chain_failed"
)

// IsFailure reports whether the outcome counts as a failed token
func (s OutcomeStatus) IsFailure() bool {
	switch s {
	case OutcomeSwapped, OutcomeAlreadyTarget, OutcomeNativeSkipped:
		return false
	default:
		return true
	}
}

// TokenSwapOutcome records what happened to one token during a run.
// A swapped outcome carries the optimistic decrement (Amount at Decimals).
type TokenSwapOutcome struct {
	ChainID     int64         `json:"chain_id"`
	Address     string        `json:"address"`
	Symbol      string        `json:"symbol"`
	Amount      *big.Int      `json:"amount"`
	Decimals    uint8         `json:"decimals"`
	Status      OutcomeStatus `json:"status"`
	ApprovalTx  string        `json:"approval_tx,omitempty"`
	SwapTx      string        `json:"swap_tx,omitempty"`
	ExpectedOut *big.Int      `json:"expected_out,omitempty"`
	Err         string        `json:"error,omitempty"`
}

// RunResult is the terminal result of a batch run
type RunResult struct {
	ID         string             `json:"id"`
	State      RunState           `json:"state"`
	Status     string             `json:"status"`
	Progress   RunProgress        `json:"progress"`
	Outcomes   []TokenSwapOutcome `json:"outcomes"`
	Recorded   bool               `json:"recorded"`
	RecordTx   string             `json:"record_tx,omitempty"`
	RecordErr  string             `json:"record_error,omitempty"`
	Wallet     string             `json:"wallet"`
	StartedAt  time.Time          `json:"started_at"`
	FinishedAt time.Time          `json:"finished_at"`
}

// SwappedCount returns the number of tokens actually swapped
func (r *RunResult) SwappedCount() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Status == OutcomeSwapped {
			n++
		}
	}
	return n
}

// FailedCount returns the number of tokens that ended in failure
func (r *RunResult) FailedCount() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Status.IsFailure() {
			n++
		}
	}
	return n
}

// TokenKey builds the store key for a chain/token pair
func TokenKey(chainID int64, address string) string {
	return fmt.Sprintf("%d-%s", chainID, strings.ToLower(address))
}

// SameAddress compares two addresses ignoring checksum casing
func SameAddress(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

// IsNativeToken reports whether address is the native asset sentinel
func IsNativeToken(address string) bool {
	return SameAddress(address, NativeTokenAddress)
}
