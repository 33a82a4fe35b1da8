package rescue

import "errors"

var (
	// ErrNoWallet aborts a run without a signer address
	ErrNoWallet = errors.New("please connect your wallet")
	// ErrNoSelections aborts a run with nothing selected
	ErrNoSelections = errors.New("no tokens selected")
	// ErrNothingToSwap aborts a run whose selections all resolved to nothing
	ErrNothingToSwap = errors.New("no valid amounts to swap")
)
