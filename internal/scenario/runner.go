package scenario

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"liquidityPair/internal/amount"
	"liquidityPair/internal/metrics"
	"liquidityPair/internal/model"
	"liquidityPair/internal/pair"
	"liquidityPair/internal/storage"
)

// RunConfig holds runtime settings for a scenario run.
type RunConfig struct {
	CheckpointPath    string
	CheckpointEnabled bool
	// SnapshotName keys the state in the snapshot store; defaults to the scenario name.
	SnapshotName string
}

// SnapshotStore keeps the latest simulation state outside the checkpoint file.
type SnapshotStore interface {
	SaveSnapshot(ctx context.Context, name string, state model.SimulationState) error
}

// Runner applies scenario steps to an environment and writes the pair's events to storage.
type Runner struct {
	cfg        RunConfig
	scenario   Scenario
	env        *Env
	storage    storage.Storage
	logger     *zap.Logger
	metrics    *metrics.PairMetrics
	snapshots  SnapshotStore
	checkpoint *CheckpointStore

	seq     uint64
	step    int
	pending []model.EventRecord
	failed  error
}

// NewRunner builds a Runner with its dependencies. env may be nil, in which
// case a fresh environment is built from the scenario.
func NewRunner(cfg RunConfig, sc Scenario, env *Env, storageSink storage.Storage, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		cfg:        cfg,
		scenario:   sc,
		env:        env,
		storage:    storageSink,
		logger:     logger,
		checkpoint: NewCheckpointStore(cfg.CheckpointPath, cfg.CheckpointEnabled),
	}
}

// SetMetrics records operation outcomes and pair events on m.
func (r *Runner) SetMetrics(m *metrics.PairMetrics) { r.metrics = m }

// SetSnapshotStore saves the state to s after every step.
func (r *Runner) SetSnapshotStore(s SnapshotStore) { r.snapshots = s }

// Env returns the environment the runner works on.
func (r *Runner) Env() *Env { return r.env }

// Run executes the remaining steps of the scenario.
func (r *Runner) Run(ctx context.Context) error {
	if r.storage == nil {
		return fmt.Errorf("storage is nil")
	}
	if err := r.scenario.Validate(); err != nil {
		return err
	}

	start := 0
	cp, ok, err := r.checkpoint.Load()
	if err != nil {
		return err
	}
	switch {
	case ok && cp.Scenario == r.scenario.Name:
		env, err := RestoreEnv(cp)
		if err != nil {
			return fmt.Errorf("restore checkpoint: %w", err)
		}
		r.env, start, r.seq = env, cp.Step, cp.Seq
		r.logger.Info("resume from checkpoint", zap.String("scenario", cp.Scenario), zap.Int("completed_steps", cp.Step), zap.Uint64("seq", cp.Seq))
	case ok:
		r.logger.Warn("ignore checkpoint of another scenario", zap.String("checkpoint", cp.Scenario), zap.String("scenario", r.scenario.Name))
	}
	if r.env == nil {
		if r.env, err = NewEnv(r.scenario); err != nil {
			return err
		}
	}

	if start >= len(r.scenario.Steps) {
		r.logger.Info("nothing to run", zap.String("scenario", r.scenario.Name), zap.Int("steps", len(r.scenario.Steps)))
		return nil
	}

	r.env.Pair.Subscribe(pair.ListenerFunc(r.record))
	if r.metrics != nil {
		r.env.Pair.Subscribe(r.metrics)
	}

	var applied, expectedFailures int
	for i := start; i < len(r.scenario.Steps); i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		step := r.scenario.Steps[i]
		r.step = i + 1
		if err := r.runStep(step); err != nil {
			return err
		}
		if step.ExpectError != "" {
			expectedFailures++
		} else {
			applied++
		}

		if r.failed != nil {
			return r.failed
		}
		if err := r.storage.PutEventBatch(ctx, r.pending); err != nil {
			return fmt.Errorf("store events: %w", err)
		}
		events := len(r.pending)
		r.pending = r.pending[:0]

		// Asset transfers are not part of the pair's event stream.
		r.env.Token0.DrainLogs()
		r.env.Token1.DrainLogs()

		state := r.env.State(r.scenario.Name, r.step, r.seq)
		if err := r.checkpoint.Save(state); err != nil {
			return err
		}
		if r.snapshots != nil {
			if err := r.snapshots.SaveSnapshot(ctx, r.snapshotName(), state); err != nil {
				return fmt.Errorf("save snapshot: %w", err)
			}
		}

		r.logger.Debug("step complete", zap.Int("step", r.step), zap.String("op", step.Op), zap.Int("events", events), zap.Uint64("now", r.env.Clock.Now()))
	}

	r0, r1, _ := r.env.Pair.GetReserves()
	r.logger.Info("scenario complete",
		zap.String("scenario", r.scenario.Name),
		zap.Int("applied", applied),
		zap.Int("expected_failures", expectedFailures),
		zap.Uint64("events", r.seq),
		zap.String("reserve0", amount.String(r0)),
		zap.String("reserve1", amount.String(r1)),
		zap.String("total_supply", amount.String(r.env.Pair.TotalSupply())),
	)
	return nil
}

func (r *Runner) runStep(step Step) error {
	err := r.env.Apply(step)
	if r.metrics != nil && step.Op != OpExpect && step.Op != OpAdvance {
		r.metrics.ObserveOperation(step.Op, err)
		r.metrics.ObserveSupply(r.env.Pair.Address(), r.env.Pair.TotalSupply())
	}

	if step.ExpectError == "" {
		if err != nil {
			r.logger.Error("step failed", zap.Int("step", r.step), zap.String("op", step.Op), zap.Error(err))
			return fmt.Errorf("step %d (%s): %w", r.step, step.Op, err)
		}
		return nil
	}

	if err == nil {
		r.logger.Error("step succeeded unexpectedly", zap.Int("step", r.step), zap.String("op", step.Op), zap.String("expected", step.ExpectError))
		return fmt.Errorf("step %d (%s): expected %s, got success", r.step, step.Op, step.ExpectError)
	}
	if got := metrics.Result(err); got != step.ExpectError {
		r.logger.Error("step failed with unexpected error", zap.Int("step", r.step), zap.String("op", step.Op), zap.String("expected", step.ExpectError), zap.Error(err))
		return fmt.Errorf("step %d (%s): expected %s, got %s: %w", r.step, step.Op, step.ExpectError, got, err)
	}
	r.logger.Warn("step failed as expected", zap.Int("step", r.step), zap.String("op", step.Op), zap.Error(err))
	return nil
}

func (r *Runner) record(p common.Address, events []pair.Event) {
	now := r.env.Clock.Now()
	for _, ev := range events {
		r.seq++
		rec, err := model.NewEventRecord(r.seq, r.step, p.Hex(), ev.EventName(), now, ev.Data())
		if err != nil && r.failed == nil {
			r.failed = fmt.Errorf("record event: %w", err)
		}
		r.pending = append(r.pending, rec)
	}
}

func (r *Runner) snapshotName() string {
	if r.cfg.SnapshotName != "" {
		return r.cfg.SnapshotName
	}
	return r.scenario.Name
}
