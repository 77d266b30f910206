package pair

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Transfer moves shares between holders. Holders redeem by transferring shares
// to the pair's own address and calling Burn. The zero address holds the
// locked minimum liquidity and can never send.
func (p *Pair) Transfer(from, to common.Address, value *uint256.Int) error {
	if from == (common.Address{}) {
		return ErrZeroSender
	}
	if err := p.shares.Transfer(from, to, value); err != nil {
		return err
	}
	p.publishShareEvents()
	return nil
}

func (p *Pair) Approve(owner, spender common.Address, value *uint256.Int) {
	p.shares.Approve(owner, spender, value)
	p.publishShareEvents()
}

func (p *Pair) TransferFrom(spender, from, to common.Address, value *uint256.Int) error {
	if from == (common.Address{}) {
		return ErrZeroSender
	}
	if err := p.shares.TransferFrom(spender, from, to, value); err != nil {
		return err
	}
	p.publishShareEvents()
	return nil
}

// publishShareEvents is a no-op inside an operation; the enclosing operation
// publishes or reverts the share changes made from its callee.
func (p *Pair) publishShareEvents() {
	if p.locked {
		return
	}
	p.pending = append(p.pending, p.shareEvents()...)
	p.flush()
}
