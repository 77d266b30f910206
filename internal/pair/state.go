package pair

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"liquidityPair/internal/amount"
	"liquidityPair/internal/ledger"
	"liquidityPair/internal/model"
)

// State returns a copy of the pair for checkpoints and storage.
func (p *Pair) State() model.PairState {
	shares := p.shares.State()
	state := model.PairState{
		Address:              p.address.Hex(),
		Token0:               p.token0.Address().Hex(),
		Token1:               p.token1.Address().Hex(),
		Reserve0:             amount.String(p.reserve0),
		Reserve1:             amount.String(p.reserve1),
		BlockTimestampLast:   p.blockTimestampLast,
		Price0CumulativeLast: amount.String(p.price0CumulativeLast),
		Price1CumulativeLast: amount.String(p.price1CumulativeLast),
		KLast:                amount.String(p.kLast),
		TotalSupply:          shares.TotalSupply,
		Balances:             shares.Balances,
	}
	if p.feeTo != (common.Address{}) {
		state.FeeTo = p.feeTo.Hex()
	}
	return state
}

// Restore rebuilds a pair from state. The assets in cfg must be the ones the
// state was taken with; cfg.FeeTo is ignored in favour of the state's.
func Restore(cfg Config, state model.PairState) (*Pair, error) {
	if !common.IsHexAddress(state.Address) {
		return nil, fmt.Errorf("invalid pair address: %s", state.Address)
	}
	cfg.Address = common.HexToAddress(state.Address)
	cfg.FeeTo = common.Address{}
	if state.FeeTo != "" {
		if !common.IsHexAddress(state.FeeTo) {
			return nil, fmt.Errorf("invalid fee recipient: %s", state.FeeTo)
		}
		cfg.FeeTo = common.HexToAddress(state.FeeTo)
	}

	p, err := New(cfg)
	if err != nil {
		return nil, err
	}
	if !common.IsHexAddress(state.Token0) || common.HexToAddress(state.Token0) != p.token0.Address() {
		return nil, fmt.Errorf("token0 mismatch: state has %s, config has %s", state.Token0, p.token0.Address().Hex())
	}
	if !common.IsHexAddress(state.Token1) || common.HexToAddress(state.Token1) != p.token1.Address() {
		return nil, fmt.Errorf("token1 mismatch: state has %s, config has %s", state.Token1, p.token1.Address().Hex())
	}

	fields := []struct {
		name   string
		in     string
		out    **uint256.Int
		bounds bool
	}{
		{"reserve0", state.Reserve0, &p.reserve0, true},
		{"reserve1", state.Reserve1, &p.reserve1, true},
		{"price0CumulativeLast", state.Price0CumulativeLast, &p.price0CumulativeLast, false},
		{"price1CumulativeLast", state.Price1CumulativeLast, &p.price1CumulativeLast, false},
		{"kLast", state.KLast, &p.kLast, false},
	}
	for _, f := range fields {
		if f.in == "" {
			continue
		}
		v, err := amount.Parse(f.in)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", f.name, err)
		}
		if f.bounds && !fitsUint112(v) {
			return nil, fmt.Errorf("%s: %w", f.name, ErrOverflow)
		}
		*f.out = v
	}
	p.blockTimestampLast = state.BlockTimestampLast

	totalSupply := state.TotalSupply
	if totalSupply == "" {
		totalSupply = "0"
	}
	shares, err := ledger.Restore(model.LedgerState{
		Address:     state.Address,
		Symbol:      ShareSymbol,
		TotalSupply: totalSupply,
		Balances:    state.Balances,
	})
	if err != nil {
		return nil, fmt.Errorf("restore shares: %w", err)
	}
	p.shares = shares
	return p, nil
}
