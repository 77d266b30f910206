package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	root := &cobra.Command{
		Use:          "pairsim",
		Short:        "Constant-product pair simulator",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run a scenario against a fresh pair",
		RunE:  runScenario,
	}
	addRunFlags(runCmd)
	root.AddCommand(runCmd)

	forkCmd := &cobra.Command{
		Use:   "fork",
		Short: "Run a scenario against a pair forked from chain state",
		RunE:  runFork,
	}
	addRunFlags(forkCmd)
	forkCmd.Flags().String("rpc", "", "RPC URL")
	forkCmd.Flags().String("pair", "", "pair contract address")
	forkCmd.Flags().Uint64("block", 0, "block to fork at, 0 means latest")
	forkCmd.Flags().String("holder", "lp", "actor credited with the pair's liquidity shares")
	forkCmd.Flags().Int("max-retries", 5, "maximum retry attempts")
	forkCmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	root.AddCommand(forkCmd)

	quoteCmd := &cobra.Command{
		Use:   "quote",
		Short: "Quote a swap against given reserves",
		RunE:  runQuote,
	}
	quoteCmd.Flags().String("amount-in", "", "exact input amount")
	quoteCmd.Flags().String("amount-out", "", "exact output amount")
	quoteCmd.Flags().String("reserve-in", "", "reserve of the input asset")
	quoteCmd.Flags().String("reserve-out", "", "reserve of the output asset")
	root.AddCommand(quoteCmd)

	aggregateCmd := &cobra.Command{
		Use:   "aggregate",
		Short: "Aggregate pair events into window metrics",
		RunE:  runAggregate,
	}
	aggregateCmd.Flags().String("in", "./data/events.jsonl", "input events JSONL")
	aggregateCmd.Flags().String("window", "5m", "aggregation window (e.g. 1m, 5m, 1h)")
	aggregateCmd.Flags().String("pg-dsn", "", "Postgres DSN, window metrics go to stdout when empty")
	aggregateCmd.Flags().Int("batch-size", 1000, "batch size for metric writes")
	aggregateCmd.Flags().String("state-file", "", "optional local state file for progress tracking")
	aggregateCmd.Flags().String("recompute-from", "", "recompute from timestamp (unix seconds or RFC3339)")
	aggregateCmd.Flags().Uint8("decimals0", 0, "token0 decimals for reported amounts")
	aggregateCmd.Flags().Uint8("decimals1", 0, "token1 decimals for reported amounts")
	aggregateCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
	root.AddCommand(aggregateCmd)

	snapshotCmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Print the latest simulation state stored in Postgres",
		RunE:  runSnapshot,
	}
	snapshotCmd.Flags().String("pg-dsn", "", "Postgres DSN")
	snapshotCmd.Flags().String("name", "", "snapshot name (the scenario name by default)")
	snapshotCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
	root.AddCommand(snapshotCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().String("scenario", "", "scenario YAML path")
	cmd.Flags().String("events-out", "./data/events.jsonl", "output events JSONL path")
	cmd.Flags().String("snapshot", "./data/snapshot.json", "checkpoint file path")
	cmd.Flags().Bool("checkpoint-enabled", true, "resume from and write the checkpoint file")
	cmd.Flags().String("pg-dsn", "", "optional Postgres DSN for events and snapshots")
	cmd.Flags().String("metrics-addr", "", "serve Prometheus metrics on this address (e.g. :9102)")
	cmd.Flags().String("fee-to", "", "protocol fee recipient, overrides the scenario")
	cmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
