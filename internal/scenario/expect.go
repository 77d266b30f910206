package scenario

import (
	"fmt"
	"sort"
	"strings"

	"github.com/holiman/uint256"

	"liquidityPair/internal/amount"
	"liquidityPair/internal/ledger"
)

func (e *Env) check(exp *Expectation) error {
	if exp == nil {
		return nil
	}
	r0, r1, ts := e.Pair.GetReserves()

	var mismatches []string
	compare := func(name, want string, got *uint256.Int) {
		if want == "" {
			return
		}
		w, err := amount.Parse(want)
		if err != nil {
			mismatches = append(mismatches, fmt.Sprintf("%s: bad expected value %q", name, want))
			return
		}
		if !w.Eq(got) {
			mismatches = append(mismatches, fmt.Sprintf("%s: got %s, want %s", name, amount.String(got), amount.String(w)))
		}
	}

	compare("reserve0", exp.Reserve0, r0)
	compare("reserve1", exp.Reserve1, r1)
	compare("total-supply", exp.TotalSupply, e.Pair.TotalSupply())
	compare("k-last", exp.KLast, e.Pair.KLast())
	compare("price0-cumulative-last", exp.Price0CumulativeLast, e.Pair.Price0CumulativeLast())
	compare("price1-cumulative-last", exp.Price1CumulativeLast, e.Pair.Price1CumulativeLast())
	if exp.BlockTimestampLast != nil && *exp.BlockTimestampLast != ts {
		mismatches = append(mismatches, fmt.Sprintf("block-timestamp-last: got %d, want %d", ts, *exp.BlockTimestampLast))
	}

	balances := []struct {
		kind  string
		want  map[string]string
		apply func(owner string) (*uint256.Int, error)
	}{
		{"shares", exp.Shares, func(owner string) (*uint256.Int, error) {
			addr, err := e.Resolve(owner)
			if err != nil {
				return nil, err
			}
			return e.Pair.BalanceOf(addr), nil
		}},
		{"token0", exp.Token0, e.balanceFunc(e.Token0)},
		{"token1", exp.Token1, e.balanceFunc(e.Token1)},
	}
	for _, b := range balances {
		owners := make([]string, 0, len(b.want))
		for owner := range b.want {
			owners = append(owners, owner)
		}
		sort.Strings(owners)
		for _, owner := range owners {
			got, err := b.apply(owner)
			if err != nil {
				mismatches = append(mismatches, fmt.Sprintf("%s[%s]: %v", b.kind, owner, err))
				continue
			}
			compare(fmt.Sprintf("%s[%s]", b.kind, owner), b.want[owner], got)
		}
	}

	if len(mismatches) > 0 {
		return fmt.Errorf("%w: %s", ErrExpectation, strings.Join(mismatches, "; "))
	}
	return nil
}

func (e *Env) balanceFunc(token *ledger.Ledger) func(string) (*uint256.Int, error) {
	return func(owner string) (*uint256.Int, error) {
		addr, err := e.Resolve(owner)
		if err != nil {
			return nil, err
		}
		return token.BalanceOf(addr), nil
	}
}
