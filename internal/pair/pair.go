// Package pair implements a constant-product market maker over two assets.
//
// A Pair keeps its own view of how much of each asset it holds (the reserves)
// and a ledger of liquidity shares. Deposits are never passed in: every
// operation measures the pair's balances on the two asset ledgers and treats the
// difference from the reserves as what was paid in. Operations are serialized by
// a single in-progress flag; a Pair is not safe for concurrent use.
package pair

import (
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"liquidityPair/internal/ledger"
)

// MinimumLiquidity is locked at the zero address by the first mint.
const MinimumLiquidity = 1000

// ShareSymbol names the liquidity share ledger.
const ShareSymbol = "UNI-V2"

var minimumLiquidity = uint256.NewInt(MinimumLiquidity)

// Asset is the part of a token ledger a pair talks to.
type Asset interface {
	Address() common.Address
	BalanceOf(owner common.Address) *uint256.Int
	// Transfer must fail instead of moving less than value.
	Transfer(from, to common.Address, value *uint256.Int) error
}

// Reverter is implemented by ledgers that can undo changes. When both assets
// implement it, a failing operation also undoes the transfers it already made.
type Reverter interface {
	Snapshot() int
	RevertToSnapshot(id int)
	DiscardSnapshot(id int)
}

// Callee is invoked on the swap recipient when the swap carries data, after the
// outputs were sent and before the input is checked.
type Callee interface {
	OnSwap(sender common.Address, amount0Out, amount1Out *uint256.Int, data []byte) error
}

// CalleeFunc adapts a function to Callee.
type CalleeFunc func(sender common.Address, amount0Out, amount1Out *uint256.Int, data []byte) error

func (f CalleeFunc) OnSwap(sender common.Address, amount0Out, amount1Out *uint256.Int, data []byte) error {
	return f(sender, amount0Out, amount1Out, data)
}

// Clock returns the current time in seconds.
type Clock interface {
	Now() uint64
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() uint64

func (f ClockFunc) Now() uint64 { return f() }

// SystemClock reads the wall clock.
var SystemClock Clock = ClockFunc(func() uint64 { return uint64(time.Now().Unix()) })

// Config wires a pair to its collaborators.
type Config struct {
	// Address is the custody address the pair holds assets and shares under.
	Address common.Address
	Token0  Asset
	Token1  Asset
	Clock   Clock
	// FeeTo receives the protocol fee. The zero address switches the fee off.
	FeeTo common.Address
}

// Pair is the pair engine.
type Pair struct {
	address common.Address
	token0  Asset
	token1  Asset
	clock   Clock
	feeTo   common.Address

	reserve0             *uint256.Int
	reserve1             *uint256.Int
	blockTimestampLast   uint32
	price0CumulativeLast *uint256.Int
	price1CumulativeLast *uint256.Int
	kLast                *uint256.Int

	shares    *ledger.Ledger
	callees   map[common.Address]Callee
	listeners []Listener
	pending   []Event
	locked    bool
}

// New creates an empty pair.
func New(cfg Config) (*Pair, error) {
	if cfg.Token0 == nil || cfg.Token1 == nil {
		return nil, fmt.Errorf("both assets are required")
	}
	if cfg.Token0.Address() == cfg.Token1.Address() {
		return nil, fmt.Errorf("identical asset addresses: %s", cfg.Token0.Address().Hex())
	}
	if cfg.Address == (common.Address{}) {
		return nil, fmt.Errorf("pair address is required")
	}
	if cfg.Address == cfg.Token0.Address() || cfg.Address == cfg.Token1.Address() {
		return nil, fmt.Errorf("pair address collides with an asset address")
	}
	if cfg.Clock == nil {
		cfg.Clock = SystemClock
	}

	return &Pair{
		address:              cfg.Address,
		token0:               cfg.Token0,
		token1:               cfg.Token1,
		clock:                cfg.Clock,
		feeTo:                cfg.FeeTo,
		reserve0:             new(uint256.Int),
		reserve1:             new(uint256.Int),
		price0CumulativeLast: new(uint256.Int),
		price1CumulativeLast: new(uint256.Int),
		kLast:                new(uint256.Int),
		shares:               ledger.New(cfg.Address, ShareSymbol),
		callees:              make(map[common.Address]Callee),
	}, nil
}

func (p *Pair) Address() common.Address { return p.address }

func (p *Pair) Token0() common.Address { return p.token0.Address() }

func (p *Pair) Token1() common.Address { return p.token1.Address() }

func (p *Pair) FeeTo() common.Address { return p.feeTo }

// GetReserves returns the reserves and the truncated timestamp of their last update.
func (p *Pair) GetReserves() (reserve0, reserve1 *uint256.Int, blockTimestampLast uint32) {
	return p.reserve0.Clone(), p.reserve1.Clone(), p.blockTimestampLast
}

func (p *Pair) Price0CumulativeLast() *uint256.Int { return p.price0CumulativeLast.Clone() }

func (p *Pair) Price1CumulativeLast() *uint256.Int { return p.price1CumulativeLast.Clone() }

// KLast is reserve0*reserve1 after the last mint or burn while the fee was on.
func (p *Pair) KLast() *uint256.Int { return p.kLast.Clone() }

func (p *Pair) TotalSupply() *uint256.Int { return p.shares.TotalSupply() }

func (p *Pair) BalanceOf(owner common.Address) *uint256.Int { return p.shares.BalanceOf(owner) }

func (p *Pair) Allowance(owner, spender common.Address) *uint256.Int {
	return p.shares.Allowance(owner, spender)
}

// SetFeeTo switches the protocol fee on for feeTo, or off for the zero address.
func (p *Pair) SetFeeTo(feeTo common.Address) { p.feeTo = feeTo }

// SetCallee registers the swap callback for a recipient. A nil callee removes it.
func (p *Pair) SetCallee(recipient common.Address, callee Callee) {
	if callee == nil {
		delete(p.callees, recipient)
		return
	}
	p.callees[recipient] = callee
}

// Subscribe adds a listener for the events of successful operations.
func (p *Pair) Subscribe(l Listener) {
	if l != nil {
		p.listeners = append(p.listeners, l)
	}
}

// Mint issues shares to to for whatever was deposited since the last update.
func (p *Pair) Mint(sender, to common.Address) (*uint256.Int, error) {
	var liquidity *uint256.Int
	err := p.execute(func() error {
		balance0 := p.token0.BalanceOf(p.address)
		balance1 := p.token1.BalanceOf(p.address)
		amount0, err := sub(balance0, p.reserve0)
		if err != nil {
			return fmt.Errorf("amount0: %w", err)
		}
		amount1, err := sub(balance1, p.reserve1)
		if err != nil {
			return fmt.Errorf("amount1: %w", err)
		}
		if !fitsUint112(balance0) || !fitsUint112(balance1) {
			return ErrOverflow
		}

		feeOn, fee, err := p.protocolFee()
		if err != nil {
			return err
		}
		supply, err := add(p.shares.TotalSupply(), fee)
		if err != nil {
			return err
		}

		bootstrap := supply.IsZero()
		if bootstrap {
			product, err := mul(amount0, amount1)
			if err != nil {
				return err
			}
			root := sqrt(product)
			if !root.Gt(minimumLiquidity) {
				return ErrInsufficientLiquidityMinted
			}
			liquidity = root.Sub(root, minimumLiquidity)
		} else {
			liquidity0, err := mulDiv(amount0, supply, p.reserve0)
			if err != nil {
				return err
			}
			liquidity1, err := mulDiv(amount1, supply, p.reserve1)
			if err != nil {
				return err
			}
			liquidity = minInt(liquidity0, liquidity1)
		}
		if liquidity.IsZero() {
			return ErrInsufficientLiquidityMinted
		}

		if err := p.mintFee(fee); err != nil {
			return err
		}
		if bootstrap {
			if err := p.shares.Mint(common.Address{}, minimumLiquidity); err != nil {
				return err
			}
		}
		if err := p.shares.Mint(to, liquidity); err != nil {
			return err
		}

		p.update(balance0, balance1)
		p.updateKLast(feeOn)
		p.emit(MintEvent{Sender: sender, Amount0: amount0, Amount1: amount1})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return liquidity.Clone(), nil
}

// Burn redeems the shares held at the pair's own address and sends the
// proportional amounts of both assets to to.
func (p *Pair) Burn(sender, to common.Address) (amount0, amount1 *uint256.Int, err error) {
	err = p.execute(func() error {
		balance0 := p.token0.BalanceOf(p.address)
		balance1 := p.token1.BalanceOf(p.address)
		liquidity := p.shares.BalanceOf(p.address)

		feeOn, fee, err := p.protocolFee()
		if err != nil {
			return err
		}
		supply, err := add(p.shares.TotalSupply(), fee)
		if err != nil {
			return err
		}
		if supply.IsZero() {
			return ErrInsufficientLiquidityBurned
		}
		out0, err := mulDiv(liquidity, balance0, supply)
		if err != nil {
			return err
		}
		out1, err := mulDiv(liquidity, balance1, supply)
		if err != nil {
			return err
		}
		if out0.IsZero() || out1.IsZero() {
			return ErrInsufficientLiquidityBurned
		}

		if err := p.mintFee(fee); err != nil {
			return err
		}
		if err := p.shares.Burn(p.address, liquidity); err != nil {
			return err
		}
		if err := p.transfer(p.token0, to, out0); err != nil {
			return fmt.Errorf("token0: %w", err)
		}
		if err := p.transfer(p.token1, to, out1); err != nil {
			return fmt.Errorf("token1: %w", err)
		}

		balance0 = p.token0.BalanceOf(p.address)
		balance1 = p.token1.BalanceOf(p.address)
		if !fitsUint112(balance0) || !fitsUint112(balance1) {
			return ErrOverflow
		}

		p.update(balance0, balance1)
		p.updateKLast(feeOn)
		p.emit(BurnEvent{Sender: sender, Amount0: out0, Amount1: out1, To: to})
		amount0, amount1 = out0.Clone(), out1.Clone()
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return amount0, amount1, nil
}

// Swap sends the requested outputs to to, runs to's callee when data is not
// empty, and then requires the inputs found on the pair to keep the
// fee-adjusted product of the balances at or above the product of the reserves.
func (p *Pair) Swap(sender common.Address, amount0Out, amount1Out *uint256.Int, to common.Address, data []byte) error {
	return p.execute(func() error {
		if amount0Out.IsZero() && amount1Out.IsZero() {
			return ErrInsufficientOutputAmount
		}
		reserve0, reserve1 := p.reserve0, p.reserve1
		if !amount0Out.Lt(reserve0) || !amount1Out.Lt(reserve1) {
			return ErrInsufficientLiquidity
		}
		if to == p.token0.Address() || to == p.token1.Address() {
			return ErrInvalidRecipient
		}

		if !amount0Out.IsZero() {
			if err := p.transfer(p.token0, to, amount0Out); err != nil {
				return fmt.Errorf("token0: %w", err)
			}
		}
		if !amount1Out.IsZero() {
			if err := p.transfer(p.token1, to, amount1Out); err != nil {
				return fmt.Errorf("token1: %w", err)
			}
		}
		if len(data) > 0 {
			callee, ok := p.callees[to]
			if !ok {
				return fmt.Errorf("%w: %s", ErrNoCallee, to.Hex())
			}
			if err := callee.OnSwap(sender, amount0Out.Clone(), amount1Out.Clone(), data); err != nil {
				return fmt.Errorf("%w: %w", ErrCallee, err)
			}
		}

		balance0 := p.token0.BalanceOf(p.address)
		balance1 := p.token1.BalanceOf(p.address)
		amount0In := amountIn(balance0, reserve0, amount0Out)
		amount1In := amountIn(balance1, reserve1, amount1Out)
		if amount0In.IsZero() && amount1In.IsZero() {
			return ErrInsufficientInputAmount
		}

		adjusted0, err := balanceAdjusted(balance0, amount0In)
		if err != nil {
			return err
		}
		adjusted1, err := balanceAdjusted(balance1, amount1In)
		if err != nil {
			return err
		}
		after, err := mul(adjusted0, adjusted1)
		if err != nil {
			return err
		}
		k, err := mul(reserve0, reserve1)
		if err != nil {
			return err
		}
		before, err := mul(k, kScale)
		if err != nil {
			return err
		}
		if after.Lt(before) {
			return ErrK
		}
		if !fitsUint112(balance0) || !fitsUint112(balance1) {
			return ErrOverflow
		}

		p.update(balance0, balance1)
		p.emit(SwapEvent{
			Sender:     sender,
			Amount0In:  amount0In,
			Amount1In:  amount1In,
			Amount0Out: amount0Out.Clone(),
			Amount1Out: amount1Out.Clone(),
			To:         to,
		})
		return nil
	})
}

// Skim sends to whatever the pair holds above its reserves.
func (p *Pair) Skim(to common.Address) error {
	return p.execute(func() error {
		excess0, err := sub(p.token0.BalanceOf(p.address), p.reserve0)
		if err != nil {
			return fmt.Errorf("excess0: %w", err)
		}
		excess1, err := sub(p.token1.BalanceOf(p.address), p.reserve1)
		if err != nil {
			return fmt.Errorf("excess1: %w", err)
		}
		if err := p.transfer(p.token0, to, excess0); err != nil {
			return fmt.Errorf("token0: %w", err)
		}
		if err := p.transfer(p.token1, to, excess1); err != nil {
			return fmt.Errorf("token1: %w", err)
		}
		return nil
	})
}

// Sync sets the reserves to the measured balances.
func (p *Pair) Sync() error {
	return p.execute(func() error {
		balance0 := p.token0.BalanceOf(p.address)
		balance1 := p.token1.BalanceOf(p.address)
		if !fitsUint112(balance0) || !fitsUint112(balance1) {
			return ErrOverflow
		}
		p.update(balance0, balance1)
		return nil
	})
}

// update accrues the price accumulators with the old reserves, then replaces
// them. Callers check the 112-bit bound first.
func (p *Pair) update(balance0, balance1 *uint256.Int) {
	now := uint32(p.clock.Now())
	elapsed := now - p.blockTimestampLast
	if elapsed > 0 && !p.reserve0.IsZero() && !p.reserve1.IsZero() {
		price0, price1 := EncodePrice(p.reserve0, p.reserve1)
		seconds := uint256.NewInt(uint64(elapsed))
		p.price0CumulativeLast = new(uint256.Int).Add(p.price0CumulativeLast, price0.Mul(price0, seconds))
		p.price1CumulativeLast = new(uint256.Int).Add(p.price1CumulativeLast, price1.Mul(price1, seconds))
	}
	p.reserve0 = balance0.Clone()
	p.reserve1 = balance1.Clone()
	p.blockTimestampLast = now
	p.emit(SyncEvent{Reserve0: balance0.Clone(), Reserve1: balance1.Clone()})
}

func (p *Pair) transfer(token Asset, to common.Address, value *uint256.Int) error {
	if err := token.Transfer(p.address, to, value); err != nil {
		return fmt.Errorf("%w: %w", ErrTransferFailed, err)
	}
	return nil
}

func amountIn(balance, reserve, out *uint256.Int) *uint256.Int {
	remaining := new(uint256.Int).Sub(reserve, out)
	if balance.Gt(remaining) {
		return new(uint256.Int).Sub(balance, remaining)
	}
	return new(uint256.Int)
}

// balanceAdjusted is balance*1000 - amountIn*3.
func balanceAdjusted(balance, in *uint256.Int) (*uint256.Int, error) {
	scaled, err := mul(balance, feeScale)
	if err != nil {
		return nil, err
	}
	fee, err := mul(in, feeParts)
	if err != nil {
		return nil, err
	}
	return sub(scaled, fee)
}
