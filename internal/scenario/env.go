package scenario

import (
	"fmt"
	"sync/atomic"

	"liquidityPair/internal/ledger"
	"liquidityPair/internal/model"
	"liquidityPair/internal/pair"
)

// ManualClock only moves when advanced.
type ManualClock struct {
	now atomic.Uint64
}

func NewManualClock(start uint64) *ManualClock {
	c := &ManualClock{}
	c.now.Store(start)
	return c
}

func (c *ManualClock) Now() uint64 { return c.now.Load() }

func (c *ManualClock) Advance(seconds uint64) uint64 { return c.now.Add(seconds) }

// Env is a pair wired to two in-memory asset ledgers and a manual clock.
type Env struct {
	Clock  *ManualClock
	Token0 *ledger.Ledger
	Token1 *ledger.Ledger
	Pair   *pair.Pair
}

// NewEnv builds a fresh pair for a scenario.
func NewEnv(sc Scenario) (*Env, error) {
	sym0, sym1 := sc.Symbol0, sc.Symbol1
	if sym0 == "" {
		sym0 = "TOKEN0"
	}
	if sym1 == "" {
		sym1 = "TOKEN1"
	}
	env := &Env{
		Clock:  NewManualClock(sc.Start),
		Token0: ledger.New(ActorAddress("token:"+sc.Name+":0"), sym0),
		Token1: ledger.New(ActorAddress("token:"+sc.Name+":1"), sym1),
	}
	p, err := pair.New(pair.Config{
		Address: ActorAddress("pair:" + sc.Name),
		Token0:  env.Token0,
		Token1:  env.Token1,
		Clock:   env.Clock,
	})
	if err != nil {
		return nil, fmt.Errorf("create pair: %w", err)
	}
	env.Pair = p

	if sc.FeeTo != "" {
		feeTo, err := env.Resolve(sc.FeeTo)
		if err != nil {
			return nil, fmt.Errorf("fee-to: %w", err)
		}
		p.SetFeeTo(feeTo)
	}
	return env, nil
}

// RestoreEnv rebuilds an environment from a checkpoint.
func RestoreEnv(state model.SimulationState) (*Env, error) {
	token0, err := ledger.Restore(state.Token0)
	if err != nil {
		return nil, fmt.Errorf("restore token0: %w", err)
	}
	token1, err := ledger.Restore(state.Token1)
	if err != nil {
		return nil, fmt.Errorf("restore token1: %w", err)
	}
	env := &Env{
		Clock:  NewManualClock(state.Now),
		Token0: token0,
		Token1: token1,
	}
	p, err := pair.Restore(pair.Config{Token0: token0, Token1: token1, Clock: env.Clock}, state.Pair)
	if err != nil {
		return nil, fmt.Errorf("restore pair: %w", err)
	}
	env.Pair = p
	return env, nil
}

// State captures the environment after step steps of scenario name.
func (e *Env) State(name string, step int, seq uint64) model.SimulationState {
	return model.SimulationState{
		Scenario: name,
		Step:     step,
		Now:      e.Clock.Now(),
		Seq:      seq,
		Pair:     e.Pair.State(),
		Token0:   e.Token0.State(),
		Token1:   e.Token1.State(),
	}
}

func (e *Env) token(name string) (*ledger.Ledger, error) {
	switch name {
	case ActorToken0:
		return e.Token0, nil
	case ActorToken1:
		return e.Token1, nil
	}
	return nil, fmt.Errorf("unknown token %q", name)
}

// snapshot opens a revision on both asset ledgers so a failing step leaves
// no partial transfers behind.
func (e *Env) snapshot() (revert, discard func()) {
	id0, id1 := e.Token0.Snapshot(), e.Token1.Snapshot()
	revert = func() {
		e.Token1.RevertToSnapshot(id1)
		e.Token0.RevertToSnapshot(id0)
	}
	discard = func() {
		e.Token1.DiscardSnapshot(id1)
		e.Token0.DiscardSnapshot(id0)
	}
	return revert, discard
}
