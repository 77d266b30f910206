package scenario

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"liquidityPair/internal/amount"
	"liquidityPair/internal/pair"
)

// ErrExpectation is returned by an expect step whose values do not match.
var ErrExpectation = errors.New("expectation failed")

// Apply runs one step. A failing step leaves the asset ledgers and the pair
// as they were before it.
func (e *Env) Apply(step Step) (err error) {
	if step.Op == OpExpect {
		return e.check(step.Expect)
	}
	if step.Op == OpAdvance {
		e.Clock.Advance(step.Seconds)
		return nil
	}

	revert, discard := e.snapshot()
	defer func() {
		if err != nil {
			revert()
			return
		}
		discard()
	}()

	switch step.Op {
	case OpFund:
		return e.fund(step)
	case OpTransfer:
		return e.transfer(step)
	case OpDeposit:
		return e.deposit(step)
	case OpTransferShares:
		return e.transferShares(step)
	case OpApprove:
		return e.approve(step)
	case OpTransferFrom:
		return e.transferSharesFrom(step)
	case OpMint:
		return e.mint(step)
	case OpBurn:
		return e.burn(step)
	case OpSwap:
		return e.swap(step)
	case OpFlashSwap:
		return e.flashSwap(step)
	case OpSync:
		return e.Pair.Sync()
	case OpSkim:
		to, err := e.Resolve(step.To)
		if err != nil {
			return err
		}
		return e.Pair.Skim(to)
	case OpSetFeeTo:
		feeTo := common.Address{}
		if step.To != "" {
			if feeTo, err = e.Resolve(step.To); err != nil {
				return err
			}
		}
		e.Pair.SetFeeTo(feeTo)
		return nil
	}
	return fmt.Errorf("unknown op %q", step.Op)
}

func (e *Env) fund(step Step) error {
	to, err := e.Resolve(step.Actor)
	if err != nil {
		return err
	}
	token, err := e.token(step.Token)
	if err != nil {
		return err
	}
	value, err := amount.Parse(step.Amount)
	if err != nil {
		return fmt.Errorf("amount: %w", err)
	}
	return token.Mint(to, value)
}

func (e *Env) transfer(step Step) error {
	from, to, err := e.resolvePair(step.Actor, step.To)
	if err != nil {
		return err
	}
	token, err := e.token(step.Token)
	if err != nil {
		return err
	}
	value, err := amount.Parse(step.Amount)
	if err != nil {
		return fmt.Errorf("amount: %w", err)
	}
	return token.Transfer(from, to, value)
}

// deposit moves either or both assets from the actor to the pair.
func (e *Env) deposit(step Step) error {
	from, err := e.Resolve(step.Actor)
	if err != nil {
		return err
	}
	for _, d := range []struct {
		raw   string
		token string
	}{{step.Amount0, ActorToken0}, {step.Amount1, ActorToken1}} {
		if d.raw == "" {
			continue
		}
		value, err := amount.Parse(d.raw)
		if err != nil {
			return fmt.Errorf("%s amount: %w", d.token, err)
		}
		token, _ := e.token(d.token)
		if err := token.Transfer(from, e.Pair.Address(), value); err != nil {
			return fmt.Errorf("deposit %s: %w", d.token, err)
		}
	}
	return nil
}

func (e *Env) transferShares(step Step) error {
	from, to, err := e.resolvePair(step.Actor, step.To)
	if err != nil {
		return err
	}
	value, err := e.shareAmount(step.Amount, from)
	if err != nil {
		return err
	}
	return e.Pair.Transfer(from, to, value)
}

func (e *Env) approve(step Step) error {
	owner, spender, err := e.resolvePair(step.Actor, step.Spender)
	if err != nil {
		return err
	}
	value, err := e.shareAmount(step.Amount, owner)
	if err != nil {
		return err
	}
	e.Pair.Approve(owner, spender, value)
	return nil
}

func (e *Env) transferSharesFrom(step Step) error {
	from, spender, err := e.resolvePair(step.Actor, step.Spender)
	if err != nil {
		return err
	}
	to, err := e.Resolve(step.To)
	if err != nil {
		return err
	}
	value, err := e.shareAmount(step.Amount, from)
	if err != nil {
		return err
	}
	return e.Pair.TransferFrom(spender, from, to, value)
}

func (e *Env) mint(step Step) error {
	sender, to, err := e.resolveRecipient(step)
	if err != nil {
		return err
	}
	_, err = e.Pair.Mint(sender, to)
	return err
}

func (e *Env) burn(step Step) error {
	sender, to, err := e.resolveRecipient(step)
	if err != nil {
		return err
	}
	// With an amount, the actor returns that many shares first.
	if step.Amount != "" {
		value, err := e.shareAmount(step.Amount, sender)
		if err != nil {
			return err
		}
		if err := e.Pair.Transfer(sender, e.Pair.Address(), value); err != nil {
			return err
		}
	}
	_, _, err = e.Pair.Burn(sender, to)
	return err
}

// swap either pays amount-in of token and takes the quoted output, or sends
// the explicit outputs against whatever was deposited before.
func (e *Env) swap(step Step) error {
	sender, to, err := e.resolveRecipient(step)
	if err != nil {
		return err
	}
	out0, out1, err := parseOutputs(step)
	if err != nil {
		return err
	}

	if step.AmountIn != "" {
		in, err := amount.Parse(step.AmountIn)
		if err != nil {
			return fmt.Errorf("amount-in: %w", err)
		}
		if out0.IsZero() && out1.IsZero() {
			r0, r1, _ := e.Pair.GetReserves()
			if step.Token == ActorToken0 {
				out1, err = pair.GetAmountOut(in, r0, r1)
			} else {
				out0, err = pair.GetAmountOut(in, r1, r0)
			}
			if err != nil {
				return fmt.Errorf("quote: %w", err)
			}
		}
		token, err := e.token(step.Token)
		if err != nil {
			return err
		}
		if err := token.Transfer(sender, e.Pair.Address(), in); err != nil {
			return fmt.Errorf("pay input: %w", err)
		}
	}
	return e.Pair.Swap(sender, out0, out1, to, nil)
}

// flashSwap borrows the outputs and repays in token from inside the callback.
func (e *Env) flashSwap(step Step) error {
	sender, to, err := e.resolveRecipient(step)
	if err != nil {
		return err
	}
	out0, out1, err := parseOutputs(step)
	if err != nil {
		return err
	}
	token, err := e.token(step.Token)
	if err != nil {
		return err
	}
	repay, err := e.repayAmount(step, out0, out1)
	if err != nil {
		return err
	}

	data := []byte(step.Data)
	if len(data) == 0 {
		data = []byte("flash")
	}
	e.Pair.SetCallee(to, pair.CalleeFunc(func(_ common.Address, _, _ *uint256.Int, _ []byte) error {
		if step.Reenter {
			if err := e.Pair.Sync(); !errors.Is(err, pair.ErrLocked) {
				return fmt.Errorf("nested sync returned %v", err)
			}
		}
		return token.Transfer(to, e.Pair.Address(), repay)
	}))
	defer e.Pair.SetCallee(to, nil)

	return e.Pair.Swap(sender, out0, out1, to, data)
}

func (e *Env) repayAmount(step Step, out0, out1 *uint256.Int) (*uint256.Int, error) {
	if !strings.EqualFold(step.Repay, "auto") {
		v, err := amount.Parse(step.Repay)
		if err != nil {
			return nil, fmt.Errorf("repay: %w", err)
		}
		return v, nil
	}

	r0, r1, _ := e.Pair.GetReserves()
	switch {
	case step.Token == ActorToken0 && out0.IsZero():
		return pair.GetAmountIn(out1, r0, r1)
	case step.Token == ActorToken1 && out1.IsZero():
		return pair.GetAmountIn(out0, r1, r0)
	case step.Token == ActorToken0 && out1.IsZero():
		// Borrow and return the same asset: the fee is taken on the repayment.
		return sameAssetRepay(out0)
	case step.Token == ActorToken1 && out0.IsZero():
		return sameAssetRepay(out1)
	}
	return nil, fmt.Errorf("repay auto needs a single output")
}

// sameAssetRepay is the smallest r with r*997 >= out*1000, the repayment that
// keeps K after borrowing out and returning r of the same asset.
func sameAssetRepay(out *uint256.Int) (*uint256.Int, error) {
	num, overflow := new(uint256.Int).MulOverflow(out, uint256.NewInt(1000))
	if overflow {
		return nil, pair.ErrOverflow
	}
	r, rem := new(uint256.Int).DivMod(num, uint256.NewInt(997), new(uint256.Int))
	if !rem.IsZero() {
		r.AddUint64(r, 1)
	}
	return r, nil
}

func parseOutputs(step Step) (out0, out1 *uint256.Int, err error) {
	out0, out1 = new(uint256.Int), new(uint256.Int)
	if step.Amount0Out != "" {
		if out0, err = amount.Parse(step.Amount0Out); err != nil {
			return nil, nil, fmt.Errorf("amount0-out: %w", err)
		}
	}
	if step.Amount1Out != "" {
		if out1, err = amount.Parse(step.Amount1Out); err != nil {
			return nil, nil, fmt.Errorf("amount1-out: %w", err)
		}
	}
	return out0, out1, nil
}

// shareAmount parses an amount of shares; "all" is the owner's balance.
func (e *Env) shareAmount(raw string, owner common.Address) (*uint256.Int, error) {
	if strings.EqualFold(raw, "all") {
		return e.Pair.BalanceOf(owner), nil
	}
	v, err := amount.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("amount: %w", err)
	}
	return v, nil
}

func (e *Env) resolvePair(a, b string) (common.Address, common.Address, error) {
	x, err := e.Resolve(a)
	if err != nil {
		return common.Address{}, common.Address{}, err
	}
	y, err := e.Resolve(b)
	if err != nil {
		return common.Address{}, common.Address{}, err
	}
	return x, y, nil
}

// resolveRecipient returns the actor and the step's recipient, which defaults to the actor.
func (e *Env) resolveRecipient(step Step) (common.Address, common.Address, error) {
	to := step.To
	if to == "" {
		to = step.Actor
	}
	return e.resolvePair(step.Actor, to)
}
