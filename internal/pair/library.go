package pair

import (
	"github.com/holiman/uint256"
)

var feeComplement = uint256.NewInt(997)

// GetAmountOut returns the largest output a swap of amountIn can take without
// failing the K check.
func GetAmountOut(amountIn, reserveIn, reserveOut *uint256.Int) (*uint256.Int, error) {
	if amountIn.IsZero() {
		return nil, ErrInsufficientInputAmount
	}
	if reserveIn.IsZero() || reserveOut.IsZero() {
		return nil, ErrInsufficientLiquidity
	}
	amountInWithFee, err := mul(amountIn, feeComplement)
	if err != nil {
		return nil, err
	}
	numerator, err := mul(amountInWithFee, reserveOut)
	if err != nil {
		return nil, err
	}
	denominator, err := mul(reserveIn, feeScale)
	if err != nil {
		return nil, err
	}
	if denominator, err = add(denominator, amountInWithFee); err != nil {
		return nil, err
	}
	return numerator.Div(numerator, denominator), nil
}

// GetAmountIn returns the smallest input that pays for amountOut.
func GetAmountIn(amountOut, reserveIn, reserveOut *uint256.Int) (*uint256.Int, error) {
	if amountOut.IsZero() {
		return nil, ErrInsufficientOutputAmount
	}
	if reserveIn.IsZero() || reserveOut.IsZero() || !amountOut.Lt(reserveOut) {
		return nil, ErrInsufficientLiquidity
	}
	numerator, err := mul(reserveIn, amountOut)
	if err != nil {
		return nil, err
	}
	if numerator, err = mul(numerator, feeScale); err != nil {
		return nil, err
	}
	denominator, err := mul(new(uint256.Int).Sub(reserveOut, amountOut), feeComplement)
	if err != nil {
		return nil, err
	}
	numerator.Div(numerator, denominator)
	return add(numerator, uint256.NewInt(1))
}

// Quote returns the amount of the other asset worth amountA at the reserve ratio.
func Quote(amountA, reserveA, reserveB *uint256.Int) (*uint256.Int, error) {
	if amountA.IsZero() {
		return nil, ErrInsufficientInputAmount
	}
	if reserveA.IsZero() || reserveB.IsZero() {
		return nil, ErrInsufficientLiquidity
	}
	return mulDiv(amountA, reserveB, reserveA)
}
