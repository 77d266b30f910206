package chain

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"go.uber.org/zap"
)

// Options tune how a Client retries node requests.
type Options struct {
	MaxRetries   int
	RetryBackoff time.Duration
	Logger       *zap.Logger
}

// Client is the node access the fork command needs. It implements Caller.
type Client struct {
	rpc  *rpc.Client
	eth  *ethclient.Client
	opts Options

	mu         sync.RWMutex
	blockTimes map[uint64]uint64
}

// NewClient dials rpcURL.
func NewClient(ctx context.Context, rpcURL string, opts Options) (*Client, error) {
	rpcClient, err := rpc.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, err
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Client{
		rpc:        rpcClient,
		eth:        ethclient.NewClient(rpcClient),
		opts:       opts,
		blockTimes: make(map[uint64]uint64),
	}, nil
}

func (c *Client) Close() {
	if c.rpc != nil {
		c.rpc.Close()
	}
}

func (c *Client) retry(ctx context.Context, what string, fn func(context.Context) error) error {
	return WithRetry(ctx, c.opts.MaxRetries, c.opts.RetryBackoff, func(ctx context.Context) error {
		err := fn(ctx)
		if err != nil {
			c.opts.Logger.Warn("rpc request failed", zap.String("request", what), zap.Error(err))
		}
		return err
	})
}

// ChainID returns the node's chain id.
func (c *Client) ChainID(ctx context.Context) (*big.Int, error) {
	var id *big.Int
	err := c.retry(ctx, "chain id", func(ctx context.Context) error {
		var err error
		id, err = c.eth.ChainID(ctx)
		return err
	})
	return id, err
}

// ForkPoint resolves the block to fork at and its timestamp. Block 0 means the latest block.
func (c *Client) ForkPoint(ctx context.Context, block uint64) (number, timestamp uint64, err error) {
	number = block
	if number == 0 {
		err = c.retry(ctx, "latest block", func(ctx context.Context) error {
			var err error
			number, err = c.eth.BlockNumber(ctx)
			return err
		})
		if err != nil {
			return 0, 0, fmt.Errorf("get latest block: %w", err)
		}
	}
	timestamp, err = c.BlockTimestamp(ctx, number)
	if err != nil {
		return 0, 0, fmt.Errorf("block timestamp %d: %w", number, err)
	}
	return number, timestamp, nil
}

// BlockTimestamp returns a block's timestamp, caching each block it has seen.
func (c *Client) BlockTimestamp(ctx context.Context, number uint64) (uint64, error) {
	c.mu.RLock()
	ts, ok := c.blockTimes[number]
	c.mu.RUnlock()
	if ok {
		return ts, nil
	}

	err := c.retry(ctx, "block header", func(ctx context.Context) error {
		header, err := c.eth.HeaderByNumber(ctx, new(big.Int).SetUint64(number))
		if err != nil {
			return err
		}
		ts = header.Time
		return nil
	})
	if err != nil {
		return 0, err
	}

	c.mu.Lock()
	c.blockTimes[number] = ts
	c.mu.Unlock()
	return ts, nil
}

// CallContract performs an eth_call. PairReader retries it.
func (c *Client) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	return c.eth.CallContract(ctx, msg, blockNumber)
}
