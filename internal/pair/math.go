package pair

import (
	"github.com/holiman/uint256"
)

const resolution = 112

var (
	// maxUint112 bounds every reserve.
	maxUint112 = new(uint256.Int).SubUint64(new(uint256.Int).Lsh(uint256.NewInt(1), resolution), 1)

	feeScale = uint256.NewInt(1000)
	feeParts = uint256.NewInt(3)
	kScale   = uint256.NewInt(1000 * 1000)
)

func mul(x, y *uint256.Int) (*uint256.Int, error) {
	z, overflow := new(uint256.Int).MulOverflow(x, y)
	if overflow {
		return nil, ErrOverflow
	}
	return z, nil
}

func add(x, y *uint256.Int) (*uint256.Int, error) {
	z, overflow := new(uint256.Int).AddOverflow(x, y)
	if overflow {
		return nil, ErrOverflow
	}
	return z, nil
}

func sub(x, y *uint256.Int) (*uint256.Int, error) {
	z, underflow := new(uint256.Int).SubOverflow(x, y)
	if underflow {
		return nil, ErrOverflow
	}
	return z, nil
}

// mulDiv computes x*y/d with a checked product. d must be non-zero.
func mulDiv(x, y, d *uint256.Int) (*uint256.Int, error) {
	z, err := mul(x, y)
	if err != nil {
		return nil, err
	}
	return z.Div(z, d), nil
}

func sqrt(x *uint256.Int) *uint256.Int {
	return new(uint256.Int).Sqrt(x)
}

func minInt(x, y *uint256.Int) *uint256.Int {
	if x.Lt(y) {
		return x
	}
	return y
}

func fitsUint112(x *uint256.Int) bool {
	return !x.Gt(maxUint112)
}

// encodeUQ112x112 returns y as a UQ112x112 fixed-point number. y must fit in 112 bits.
func encodeUQ112x112(y *uint256.Int) *uint256.Int {
	return new(uint256.Int).Lsh(y, resolution)
}

// uqdiv divides a UQ112x112 by a non-zero uint112, truncating.
func uqdiv(x, y *uint256.Int) *uint256.Int {
	return new(uint256.Int).Div(x, y)
}

// EncodePrice returns the UQ112x112 prices reserve1/reserve0 and reserve0/reserve1.
func EncodePrice(reserve0, reserve1 *uint256.Int) (price0, price1 *uint256.Int) {
	return uqdiv(encodeUQ112x112(reserve1), reserve0), uqdiv(encodeUQ112x112(reserve0), reserve1)
}
