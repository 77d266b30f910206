package scenario

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"liquidityPair/internal/amount"
	"liquidityPair/internal/chain"
	"liquidityPair/internal/ledger"
	"liquidityPair/internal/model"
	"liquidityPair/internal/pair"
)

// ForkEnv seeds an environment with a pair read from chain at now. The asset
// ledgers only know the pair's balances; every share not locked at the zero
// address is credited to holder.
func ForkEnv(live chain.LivePair, holder common.Address, now uint64) (*Env, error) {
	raw := map[string]*big.Int{
		"reserve0":             live.Reserve0,
		"reserve1":             live.Reserve1,
		"balance0":             live.Balance0,
		"balance1":             live.Balance1,
		"price0CumulativeLast": live.Price0CumulativeLast,
		"price1CumulativeLast": live.Price1CumulativeLast,
		"kLast":                live.KLast,
		"totalSupply":          live.TotalSupply,
	}
	values := make(map[string]string, len(raw))
	for name, v := range raw {
		u, err := amount.FromBig(v)
		if err != nil {
			return nil, fmt.Errorf("fork %s: %w", name, err)
		}
		values[name] = amount.String(u)
	}

	pairAddr := live.Address.Hex()
	token0, err := forkLedger(live.Token0, pairAddr, values["balance0"])
	if err != nil {
		return nil, err
	}
	token1, err := forkLedger(live.Token1, pairAddr, values["balance1"])
	if err != nil {
		return nil, err
	}

	supply, _ := amount.Parse(values["totalSupply"])
	shares := map[string]string{}
	switch {
	case supply.IsZero():
	case holder == (common.Address{}):
		shares[holder.Hex()] = amount.String(supply)
	default:
		locked := uint256.NewInt(pair.MinimumLiquidity)
		if supply.Lt(locked) {
			locked = supply
		}
		shares[common.Address{}.Hex()] = amount.String(locked)
		if rest := new(uint256.Int).Sub(supply, locked); !rest.IsZero() {
			shares[holder.Hex()] = amount.String(rest)
		}
	}

	state := model.PairState{
		Address:              pairAddr,
		Token0:               live.Token0.Address.Hex(),
		Token1:               live.Token1.Address.Hex(),
		Reserve0:             values["reserve0"],
		Reserve1:             values["reserve1"],
		BlockTimestampLast:   live.BlockTimestampLast,
		Price0CumulativeLast: values["price0CumulativeLast"],
		Price1CumulativeLast: values["price1CumulativeLast"],
		KLast:                values["kLast"],
		TotalSupply:          values["totalSupply"],
		Balances:             shares,
	}
	if live.FeeTo != (common.Address{}) {
		state.FeeTo = live.FeeTo.Hex()
	}

	env := &Env{Clock: NewManualClock(now), Token0: token0, Token1: token1}
	p, err := pair.Restore(pair.Config{Token0: token0, Token1: token1, Clock: env.Clock}, state)
	if err != nil {
		return nil, fmt.Errorf("fork pair: %w", err)
	}
	env.Pair = p
	return env, nil
}

func forkLedger(meta chain.TokenMeta, holder, balance string) (*ledger.Ledger, error) {
	symbol := meta.Symbol
	if symbol == "" {
		symbol = meta.Address.Hex()
	}
	l, err := ledger.Restore(model.LedgerState{
		Address:     meta.Address.Hex(),
		Symbol:      symbol,
		TotalSupply: balance,
		Balances:    map[string]string{holder: balance},
	})
	if err != nil {
		return nil, fmt.Errorf("fork %s: %w", symbol, err)
	}
	return l, nil
}
