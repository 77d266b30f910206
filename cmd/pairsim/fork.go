package main

import (
	"context"
	"fmt"
	"math/big"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"liquidityPair/internal/amount"
	"liquidityPair/internal/chain"
	"liquidityPair/internal/config"
	"liquidityPair/internal/scenario"
)

func runFork(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadFork(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.RPCURL == "" {
		return fmt.Errorf("rpc url is required")
	}
	if !common.IsHexAddress(cfg.Pair) {
		return fmt.Errorf("invalid pair address: %q", cfg.Pair)
	}
	sc, err := loadScenario(cfg.Config)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	chainClient, err := chain.NewClient(ctx, cfg.RPCURL, chain.Options{
		MaxRetries:   cfg.MaxRetries,
		RetryBackoff: cfg.RetryBackoff,
		Logger:       logger,
	})
	if err != nil {
		return fmt.Errorf("connect rpc: %w", err)
	}
	defer chainClient.Close()

	chainID, err := chainClient.ChainID(ctx)
	if err != nil {
		return fmt.Errorf("get chain id: %w", err)
	}
	block, ts, err := chainClient.ForkPoint(ctx, cfg.Block)
	if err != nil {
		return err
	}

	reader := chain.NewPairReader(chainClient, cfg.MaxRetries, cfg.RetryBackoff, logger)
	live, err := reader.ReadPair(ctx, common.HexToAddress(cfg.Pair), new(big.Int).SetUint64(block))
	if err != nil {
		return fmt.Errorf("read pair: %w", err)
	}

	holder := scenario.ActorAddress(cfg.Holder)
	if common.IsHexAddress(cfg.Holder) {
		holder = common.HexToAddress(cfg.Holder)
	}
	env, err := scenario.ForkEnv(live, holder, ts)
	if err != nil {
		return err
	}
	if sc.FeeTo != "" {
		feeTo, err := env.Resolve(sc.FeeTo)
		if err != nil {
			return fmt.Errorf("fee-to: %w", err)
		}
		env.Pair.SetFeeTo(feeTo)
	}

	logger.Info("fork pair",
		zap.String("chain_id", chainID.String()),
		zap.Uint64("block", block),
		zap.Uint64("timestamp", ts),
		zap.String("pair", live.Address.Hex()),
		zap.String("token0", live.Token0.Symbol),
		zap.String("token1", live.Token1.Symbol),
		zap.String("reserve0", live.Reserve0.String()),
		zap.String("reserve1", live.Reserve1.String()),
		zap.String("total_supply", live.TotalSupply.String()),
		zap.String("holder", holder.Hex()),
		zap.String("holder_shares", amount.String(env.Pair.BalanceOf(holder))),
	)

	return execute(ctx, cfg.Config, sc, env, logger)
}
