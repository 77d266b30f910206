package pair

import (
	"errors"

	"liquidityPair/internal/ledger"
)

// Failures of pair operations. Every one is terminal for the operation that
// returned it and leaves the pair unchanged.
var (
	ErrInsufficientLiquidityMinted = errors.New("insufficient liquidity minted")
	ErrInsufficientLiquidityBurned = errors.New("insufficient liquidity burned")
	ErrInsufficientOutputAmount    = errors.New("insufficient output amount")
	ErrInsufficientInputAmount     = errors.New("insufficient input amount")
	ErrInsufficientLiquidity       = errors.New("insufficient liquidity")
	ErrInvalidRecipient            = errors.New("invalid recipient")
	ErrK                           = errors.New("K")
	ErrLocked                      = errors.New("locked")
	ErrOverflow                    = errors.New("overflow")

	ErrTransferFailed = errors.New("transfer failed")
	ErrZeroSender     = errors.New("shares sent from the zero address")
	ErrNoCallee       = errors.New("no swap callee registered for recipient")
	ErrCallee         = errors.New("swap callee failed")

	// Share ledger failures surface unchanged from the ledger package.
	ErrInsufficientBalance   = ledger.ErrInsufficientBalance
	ErrInsufficientAllowance = ledger.ErrInsufficientAllowance
)
