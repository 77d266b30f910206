package aggregate

import (
	"math/big"

	"github.com/holiman/uint256"
)

const (
	ratioScale  = 18
	yearSeconds = 365 * 24 * 60 * 60
)

// windowYield is a window's fee income relative to the reserves it closed with.
type windowYield struct {
	rate0, rate1 *string
	apr          *string
}

// computeYield divides each side's fees by its reserve and annualizes the
// mean over every side with a reserve. Each side is half of the pool's value,
// so the mean is the pool-wide rate and a side without fees counts as zero.
// A window with no fees at all has no yield.
func computeYield(fee0, fee1, reserve0, reserve1 *uint256.Int, windowSeconds uint64) windowYield {
	var y windowYield
	if isZero(fee0) && isZero(fee1) {
		return y
	}
	sum := new(big.Rat)
	var sides int64
	for _, side := range []struct {
		fee, reserve *uint256.Int
		out          **string
	}{
		{fee0, reserve0, &y.rate0},
		{fee1, reserve1, &y.rate1},
	} {
		if isZero(side.reserve) {
			continue
		}
		rate := new(big.Rat)
		if !isZero(side.fee) {
			rate.SetFrac(side.fee.ToBig(), side.reserve.ToBig())
		}
		text := rate.FloatString(ratioScale)
		*side.out = &text
		sum.Add(sum, rate)
		sides++
	}
	if sides == 0 || windowSeconds == 0 {
		return y
	}

	apr := sum.Quo(sum, big.NewRat(sides, 1))
	apr.Mul(apr, new(big.Rat).SetFrac(new(big.Int).SetUint64(yearSeconds), new(big.Int).SetUint64(windowSeconds)))
	text := apr.FloatString(ratioScale)
	y.apr = &text
	return y
}

func isZero(v *uint256.Int) bool {
	return v == nil || v.IsZero()
}
