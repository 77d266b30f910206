// Package aggregate turns pair event records into windowed swap metrics.
package aggregate

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"liquidityPair/internal/amount"
	"liquidityPair/internal/model"
	"liquidityPair/internal/storage"
)

// Config controls aggregation behavior.
type Config struct {
	WindowSeconds uint64
	BatchSize     int
	RecomputeFrom uint64
	StateStore    StateStore
	// Decimals0 and Decimals1 scale the reported amounts; zero reports base units.
	Decimals0 uint8
	Decimals1 uint8
}

// MetricsSink receives finished windows. *postgres.Store implements it.
type MetricsSink interface {
	UpsertWindowMetrics(ctx context.Context, metrics []model.PairWindowMetrics) error
}

// JSONSink writes finished windows as JSON lines.
type JSONSink struct {
	W io.Writer
}

func (s JSONSink) UpsertWindowMetrics(_ context.Context, metrics []model.PairWindowMetrics) error {
	enc := json.NewEncoder(s.W)
	for _, m := range metrics {
		if err := enc.Encode(m); err != nil {
			return fmt.Errorf("encode window metrics: %w", err)
		}
	}
	return nil
}

// Aggregator aggregates event records into pair window metrics.
type Aggregator struct {
	cfg          Config
	sink         MetricsSink
	logger       *zap.Logger
	accumulators map[string]*Accumulator
	// reserves carries the last known reserves of a pair into windows
	// that saw no Sync.
	reserves map[string][2]*uint256.Int
}

func NewAggregator(cfg Config, sink MetricsSink, logger *zap.Logger) *Aggregator {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Aggregator{
		cfg:          cfg,
		sink:         sink,
		logger:       logger,
		accumulators: make(map[string]*Accumulator),
		reserves:     make(map[string][2]*uint256.Int),
	}
}

// Run executes aggregation over an event records JSONL file.
func (a *Aggregator) Run(ctx context.Context, inputPath string) error {
	file, err := os.Open(inputPath)
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	defer file.Close()
	return a.RunReader(ctx, file)
}

// RunReader executes aggregation over event records read from r.
func (a *Aggregator) RunReader(ctx context.Context, r io.Reader) error {
	if a.sink == nil {
		return fmt.Errorf("metrics sink is nil")
	}
	if a.cfg.WindowSeconds == 0 {
		return fmt.Errorf("window seconds must be > 0")
	}
	if a.cfg.BatchSize <= 0 {
		a.cfg.BatchSize = 1000
	}

	startTs, err := a.loadStartTimestamp(ctx)
	if err != nil {
		return err
	}

	batch := make([]model.PairWindowMetrics, 0, a.cfg.BatchSize)
	maxTs := startTs
	var total, windows, skipped, failed int

	err = storage.ScanEvents(r, func(record model.EventRecord) error {
		total++
		if err := ctx.Err(); err != nil {
			return err
		}
		if record.Timestamp <= startTs {
			skipped++
			return nil
		}

		windowStart := windowStart(record.Timestamp, a.cfg.WindowSeconds)
		windowEnd := windowStart + a.cfg.WindowSeconds

		accKey := pairKey(record.Emitter)
		acc := a.accumulators[accKey]
		if acc == nil {
			acc = NewAccumulator(record, windowStart, windowEnd)
			a.accumulators[accKey] = acc
		} else if acc.WindowStart != windowStart {
			batch = append(batch, a.flushAccumulator(acc))
			windows++
			acc = NewAccumulator(record, windowStart, windowEnd)
			a.accumulators[accKey] = acc
		}

		if err := acc.AddEvent(record); err != nil {
			failed++
			a.logger.Warn("aggregate event", zap.Error(err), zap.String("pair", record.Emitter), zap.String("event", record.EventName))
			return nil
		}

		if record.Timestamp > maxTs {
			maxTs = record.Timestamp
		}

		if len(batch) >= a.cfg.BatchSize {
			if err := a.sink.UpsertWindowMetrics(ctx, batch); err != nil {
				return err
			}
			batch = batch[:0]

			if err := a.saveState(ctx); err != nil {
				return err
			}
		}
		return nil
	}, func(line int, err error) {
		failed++
		a.logger.Warn("decode event record", zap.Int("line", line), zap.Error(err))
	})
	if err != nil {
		return err
	}

	keys := make([]string, 0, len(a.accumulators))
	for key := range a.accumulators {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		batch = append(batch, a.flushAccumulator(a.accumulators[key]))
		windows++
	}
	a.accumulators = make(map[string]*Accumulator)

	if len(batch) > 0 {
		if err := a.sink.UpsertWindowMetrics(ctx, batch); err != nil {
			return err
		}
	}

	a.cfg.RecomputeFrom = maxTs
	if err := a.saveState(ctx); err != nil {
		return err
	}

	a.logger.Info("aggregate complete",
		zap.Int("total", total),
		zap.Int("windows", windows),
		zap.Int("skipped", skipped),
		zap.Int("failed", failed),
	)

	return nil
}

func (a *Aggregator) loadStartTimestamp(ctx context.Context) (uint64, error) {
	if a.cfg.RecomputeFrom > 0 {
		return a.cfg.RecomputeFrom - 1, nil
	}
	if a.cfg.StateStore == nil {
		return 0, nil
	}
	last, ok, err := a.cfg.StateStore.Load(ctx)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}
	return last, nil
}

func (a *Aggregator) saveState(ctx context.Context) error {
	if a.cfg.StateStore == nil {
		return nil
	}

	if len(a.accumulators) == 0 {
		return a.cfg.StateStore.Save(ctx, a.cfg.RecomputeFrom)
	}

	safeTs := minOpenWindowStart(a.accumulators)
	if safeTs > 0 {
		safeTs = safeTs - 1
	}
	if safeTs == 0 {
		safeTs = a.cfg.RecomputeFrom
	}
	return a.cfg.StateStore.Save(ctx, safeTs)
}

func (a *Aggregator) flushAccumulator(acc *Accumulator) model.PairWindowMetrics {
	key := pairKey(acc.PairAddress)
	if acc.Reserve0 != nil && acc.Reserve1 != nil {
		a.reserves[key] = [2]*uint256.Int{acc.Reserve0, acc.Reserve1}
	} else if last, ok := a.reserves[key]; ok {
		acc.Reserve0, acc.Reserve1 = last[0], last[1]
	}

	var tvl0, tvl1 *string
	if acc.Reserve0 != nil {
		val := amount.Format(acc.Reserve0, a.cfg.Decimals0)
		tvl0 = &val
	}
	if acc.Reserve1 != nil {
		val := amount.Format(acc.Reserve1, a.cfg.Decimals1)
		tvl1 = &val
	}
	yield := computeYield(acc.Fee0, acc.Fee1, acc.Reserve0, acc.Reserve1, a.cfg.WindowSeconds)

	return model.PairWindowMetrics{
		PairAddress:    acc.PairAddress,
		WindowSizeSecs: int64(a.cfg.WindowSeconds),
		WindowStart:    time.Unix(int64(acc.WindowStart), 0).UTC(),
		WindowEnd:      time.Unix(int64(acc.WindowEnd), 0).UTC(),
		SwapCount:      acc.SwapCount,
		Volume0:        amount.Format(acc.Volume0, a.cfg.Decimals0),
		Volume1:        amount.Format(acc.Volume1, a.cfg.Decimals1),
		Fee0:           amount.Format(acc.Fee0, a.cfg.Decimals0),
		Fee1:           amount.Format(acc.Fee1, a.cfg.Decimals1),
		FeeRate0:       yield.rate0,
		FeeRate1:       yield.rate1,
		TVL0:           tvl0,
		TVL1:           tvl1,
		APR:            yield.apr,
	}
}

func windowStart(ts uint64, windowSec uint64) uint64 {
	return ts - (ts % windowSec)
}

func pairKey(address string) string {
	return strings.ToLower(address)
}

func minOpenWindowStart(acc map[string]*Accumulator) uint64 {
	var min uint64
	for _, entry := range acc {
		if entry == nil {
			continue
		}
		if min == 0 || entry.WindowStart < min {
			min = entry.WindowStart
		}
	}
	return min
}
