// Package amount converts between 256-bit token amounts and their decimal text form.
package amount

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/holiman/uint256"
)

// String renders v as a base-10 string. A nil value renders as "0".
func String(v *uint256.Int) string {
	if v == nil {
		return "0"
	}
	return v.ToBig().String()
}

// Parse reads a non-negative base-10 integer. The shorthand "<int>e<exp>" is accepted
// as long as the result is an integer, so "5e18" and "1.5e18" both parse.
func Parse(input string) (*uint256.Int, error) {
	input = strings.TrimSpace(strings.ReplaceAll(input, "_", ""))
	if input == "" {
		return nil, fmt.Errorf("empty amount")
	}

	value, err := parseBig(input)
	if err != nil {
		return nil, err
	}
	if value.Sign() < 0 {
		return nil, fmt.Errorf("negative amount: %s", input)
	}
	out, overflow := uint256.FromBig(value)
	if overflow {
		return nil, fmt.Errorf("amount exceeds 256 bits: %s", input)
	}
	return out, nil
}

// MustParse is Parse for constants in tests and fixtures.
func MustParse(input string) *uint256.Int {
	v, err := Parse(input)
	if err != nil {
		panic(err)
	}
	return v
}

// FromBig converts a chain value, failing on negative or oversized inputs.
func FromBig(v *big.Int) (*uint256.Int, error) {
	if v == nil {
		return new(uint256.Int), nil
	}
	if v.Sign() < 0 {
		return nil, fmt.Errorf("negative amount: %s", v)
	}
	out, overflow := uint256.FromBig(v)
	if overflow {
		return nil, fmt.Errorf("amount exceeds 256 bits: %s", v)
	}
	return out, nil
}

func parseBig(input string) (*big.Int, error) {
	mantissa, exponent, hasExp := strings.Cut(strings.ToLower(input), "e")
	if !hasExp {
		value, ok := new(big.Int).SetString(input, 10)
		if !ok {
			return nil, fmt.Errorf("invalid amount: %s", input)
		}
		return value, nil
	}

	exp, err := strconv.ParseUint(exponent, 10, 16)
	if err != nil {
		return nil, fmt.Errorf("invalid exponent in %s: %w", input, err)
	}
	whole, frac, _ := strings.Cut(mantissa, ".")
	if uint64(len(frac)) > exp {
		return nil, fmt.Errorf("amount is not an integer: %s", input)
	}
	digits := whole + frac + strings.Repeat("0", int(exp)-len(frac))
	value, ok := new(big.Int).SetString(digits, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount: %s", input)
	}
	return value, nil
}

// Format renders v scaled down by decimals, always with decimals fractional digits.
func Format(v *uint256.Int, decimals uint8) string {
	digits := String(v)
	if decimals == 0 {
		return digits
	}
	d := int(decimals)
	if len(digits) <= d {
		digits = strings.Repeat("0", d-len(digits)+1) + digits
	}
	return digits[:len(digits)-d] + "." + digits[len(digits)-d:]
}
