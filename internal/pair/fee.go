package pair

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

var five = uint256.NewInt(5)

// protocolFee returns the shares owed to feeTo for the growth of sqrt(k) since
// kLast: one sixth of the growth, expressed as newly minted shares.
// It does not mint them.
func (p *Pair) protocolFee() (feeOn bool, fee *uint256.Int, err error) {
	feeOn = p.feeTo != (common.Address{})
	fee = new(uint256.Int)
	if !feeOn || p.kLast.IsZero() {
		return feeOn, fee, nil
	}

	k, err := mul(p.reserve0, p.reserve1)
	if err != nil {
		return feeOn, nil, err
	}
	rootK := sqrt(k)
	rootKLast := sqrt(p.kLast)
	if !rootK.Gt(rootKLast) {
		return feeOn, fee, nil
	}

	numerator, err := mul(p.shares.TotalSupply(), new(uint256.Int).Sub(rootK, rootKLast))
	if err != nil {
		return feeOn, nil, err
	}
	denominator, err := mul(rootK, five)
	if err != nil {
		return feeOn, nil, err
	}
	if denominator, err = add(denominator, rootKLast); err != nil {
		return feeOn, nil, err
	}
	return feeOn, fee.Div(numerator, denominator), nil
}

func (p *Pair) mintFee(fee *uint256.Int) error {
	if fee.IsZero() {
		return nil
	}
	return p.shares.Mint(p.feeTo, fee)
}

// updateKLast runs after the reserves were updated by a mint or burn.
func (p *Pair) updateKLast(feeOn bool) {
	if !feeOn {
		p.kLast = new(uint256.Int)
		return
	}
	p.kLast = new(uint256.Int).Mul(p.reserve0, p.reserve1)
}
