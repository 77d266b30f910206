package chain

import (
	"bytes"
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// Caller performs read-only contract calls. *Client implements it.
type Caller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// TokenMeta describes one side of a pair.
type TokenMeta struct {
	Address  common.Address
	Symbol   string
	Decimals uint8
}

// LivePair is the state of a deployed Uniswap-V2 pair at one block.
type LivePair struct {
	Address              common.Address
	Block                *big.Int
	Token0               TokenMeta
	Token1               TokenMeta
	Reserve0             *big.Int
	Reserve1             *big.Int
	BlockTimestampLast   uint32
	Price0CumulativeLast *big.Int
	Price1CumulativeLast *big.Int
	KLast                *big.Int
	TotalSupply          *big.Int
	// Balance0 and Balance1 are what the pair holds on the token contracts,
	// which can exceed the reserves until someone syncs or skims.
	Balance0 *big.Int
	Balance1 *big.Int
	// FeeTo is the zero address when the factory has the protocol fee off or
	// could not be read.
	FeeTo common.Address
}

// PairReader loads live pair state through a Caller, retrying failed calls.
type PairReader struct {
	caller       Caller
	maxRetries   int
	retryBackoff time.Duration
	logger       *zap.Logger
}

func NewPairReader(caller Caller, maxRetries int, retryBackoff time.Duration, logger *zap.Logger) *PairReader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PairReader{caller: caller, maxRetries: maxRetries, retryBackoff: retryBackoff, logger: logger}
}

// ReadPair reads the pair at block, or at the latest block when block is nil.
func (r *PairReader) ReadPair(ctx context.Context, pair common.Address, block *big.Int) (LivePair, error) {
	if r.caller == nil {
		return LivePair{}, fmt.Errorf("chain caller is nil")
	}
	pairABI, err := V2PairABI()
	if err != nil {
		return LivePair{}, fmt.Errorf("parse pair abi: %w", err)
	}

	live := LivePair{Address: pair, Block: block}

	values, err := r.call(ctx, pair, pairABI, "token0", block)
	if err != nil {
		return LivePair{}, err
	}
	if live.Token0.Address, err = asAddress(values[0]); err != nil {
		return LivePair{}, fmt.Errorf("token0: %w", err)
	}
	values, err = r.call(ctx, pair, pairABI, "token1", block)
	if err != nil {
		return LivePair{}, err
	}
	if live.Token1.Address, err = asAddress(values[0]); err != nil {
		return LivePair{}, fmt.Errorf("token1: %w", err)
	}

	values, err = r.call(ctx, pair, pairABI, "getReserves", block)
	if err != nil {
		return LivePair{}, err
	}
	if len(values) != 3 {
		return LivePair{}, fmt.Errorf("getReserves return size %d", len(values))
	}
	if live.Reserve0, err = asBigInt(values[0]); err != nil {
		return LivePair{}, fmt.Errorf("reserve0: %w", err)
	}
	if live.Reserve1, err = asBigInt(values[1]); err != nil {
		return LivePair{}, fmt.Errorf("reserve1: %w", err)
	}
	ts, err := asBigInt(values[2])
	if err != nil {
		return LivePair{}, fmt.Errorf("blockTimestampLast: %w", err)
	}
	live.BlockTimestampLast = uint32(ts.Uint64())

	for _, field := range []struct {
		method string
		out    **big.Int
	}{
		{"totalSupply", &live.TotalSupply},
		{"kLast", &live.KLast},
		{"price0CumulativeLast", &live.Price0CumulativeLast},
		{"price1CumulativeLast", &live.Price1CumulativeLast},
	} {
		values, err := r.call(ctx, pair, pairABI, field.method, block)
		if err != nil {
			return LivePair{}, err
		}
		if *field.out, err = asBigInt(values[0]); err != nil {
			return LivePair{}, fmt.Errorf("%s: %w", field.method, err)
		}
	}

	if live.Balance0, err = r.balanceOf(ctx, live.Token0.Address, pair, block); err != nil {
		return LivePair{}, fmt.Errorf("token0 balance: %w", err)
	}
	if live.Balance1, err = r.balanceOf(ctx, live.Token1.Address, pair, block); err != nil {
		return LivePair{}, fmt.Errorf("token1 balance: %w", err)
	}

	r.fillTokenMeta(ctx, &live.Token0)
	r.fillTokenMeta(ctx, &live.Token1)
	live.FeeTo = r.feeTo(ctx, pair, pairABI, block)

	return live, nil
}

func (r *PairReader) feeTo(ctx context.Context, pair common.Address, pairABI abi.ABI, block *big.Int) common.Address {
	values, err := r.call(ctx, pair, pairABI, "factory", block)
	if err != nil {
		r.logger.Debug("factory call failed", zap.String("pair", pair.Hex()), zap.Error(err))
		return common.Address{}
	}
	factory, err := asAddress(values[0])
	if err != nil {
		return common.Address{}
	}
	factoryABI, err := v2FactoryABIInstance()
	if err != nil {
		return common.Address{}
	}
	values, err = r.call(ctx, factory, factoryABI, "feeTo", block)
	if err != nil {
		r.logger.Debug("feeTo call failed", zap.String("factory", factory.Hex()), zap.Error(err))
		return common.Address{}
	}
	feeTo, err := asAddress(values[0])
	if err != nil {
		return common.Address{}
	}
	return feeTo
}

func (r *PairReader) balanceOf(ctx context.Context, token, owner common.Address, block *big.Int) (*big.Int, error) {
	erc20ABI, err := erc20ABIStringInstance()
	if err != nil {
		return nil, err
	}
	values, err := r.call(ctx, token, erc20ABI, "balanceOf", block, owner)
	if err != nil {
		return nil, err
	}
	return asBigInt(values[0])
}

func (r *PairReader) fillTokenMeta(ctx context.Context, meta *TokenMeta) {
	stringABI, err := erc20ABIStringInstance()
	if err != nil {
		return
	}
	bytes32ABI, err := erc20ABIBytes32Instance()
	if err != nil {
		return
	}

	if values, err := r.call(ctx, meta.Address, stringABI, "decimals", nil); err == nil {
		if decimals, err := asBigInt(values[0]); err == nil {
			meta.Decimals = uint8(decimals.Uint64())
		}
	} else {
		r.logger.Debug("decimals call failed", zap.String("token", meta.Address.Hex()), zap.Error(err))
	}

	if values, err := r.call(ctx, meta.Address, stringABI, "symbol", nil); err == nil {
		if symbol, ok := values[0].(string); ok {
			meta.Symbol = symbol
		}
	} else if values, err := r.call(ctx, meta.Address, bytes32ABI, "symbol", nil); err == nil {
		if symbol, ok := bytes32ToString(values[0]); ok {
			meta.Symbol = symbol
		}
	} else {
		r.logger.Debug("symbol call failed", zap.String("token", meta.Address.Hex()), zap.Error(err))
	}
}

func (r *PairReader) call(ctx context.Context, to common.Address, parsed abi.ABI, method string, block *big.Int, args ...interface{}) ([]interface{}, error) {
	data, err := parsed.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	msg := ethereum.CallMsg{To: &to, Data: data}

	var resp []byte
	err = WithRetry(ctx, r.maxRetries, r.retryBackoff, func(ctx context.Context) error {
		out, err := r.caller.CallContract(ctx, msg, block)
		if err != nil {
			r.logger.Debug("contract call failed", zap.String("to", to.Hex()), zap.String("method", method), zap.Error(err))
			return err
		}
		resp = out
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}

	values, err := parsed.Unpack(method, resp)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("%s returned nothing", method)
	}
	return values, nil
}

func bytes32ToString(value interface{}) (string, bool) {
	switch v := value.(type) {
	case [32]byte:
		return string(bytes.TrimRight(v[:], "\x00")), true
	case []byte:
		return string(bytes.TrimRight(v, "\x00")), true
	default:
		return "", false
	}
}

func asAddress(value interface{}) (common.Address, error) {
	switch v := value.(type) {
	case common.Address:
		return v, nil
	case *common.Address:
		return *v, nil
	default:
		return common.Address{}, fmt.Errorf("unsupported address type %T", value)
	}
}

func asBigInt(value interface{}) (*big.Int, error) {
	switch v := value.(type) {
	case *big.Int:
		return new(big.Int).Set(v), nil
	case big.Int:
		return new(big.Int).Set(&v), nil
	case uint8:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint16:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint32:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint64:
		return new(big.Int).SetUint64(v), nil
	default:
		return nil, fmt.Errorf("unsupported int type %T", value)
	}
}
