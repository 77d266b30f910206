package aggregate

import (
	"github.com/holiman/uint256"

	"liquidityPair/internal/amount"
	"liquidityPair/internal/metrics"
	"liquidityPair/internal/model"
)

// Accumulator sums one pair's swaps inside one window.
type Accumulator struct {
	PairAddress string
	WindowStart uint64
	WindowEnd   uint64
	SwapCount   uint64
	Volume0     *uint256.Int
	Volume1     *uint256.Int
	Fee0        *uint256.Int
	Fee1        *uint256.Int
	// Reserve0 and Reserve1 come from the last Sync seen in the window.
	Reserve0 *uint256.Int
	Reserve1 *uint256.Int
	LastTS   uint64
	LastSeq  uint64
}

func NewAccumulator(record model.EventRecord, windowStart, windowEnd uint64) *Accumulator {
	return &Accumulator{
		PairAddress: record.Emitter,
		WindowStart: windowStart,
		WindowEnd:   windowEnd,
		Volume0:     new(uint256.Int),
		Volume1:     new(uint256.Int),
		Fee0:        new(uint256.Int),
		Fee1:        new(uint256.Int),
		LastTS:      record.Timestamp,
		LastSeq:     record.Seq,
	}
}

// AddEvent folds a Swap or Sync record into the window; other events only move LastTS.
func (a *Accumulator) AddEvent(record model.EventRecord) error {
	if record.Timestamp >= a.LastTS {
		a.LastTS, a.LastSeq = record.Timestamp, record.Seq
	}

	switch record.EventName {
	case model.EventSwap:
		var swap model.SwapEventData
		if err := record.DecodeInto(&swap); err != nil {
			return err
		}
		return a.applySwap(swap)
	case model.EventSync:
		var sync model.SyncEventData
		if err := record.DecodeInto(&sync); err != nil {
			return err
		}
		r0, err := parseAmount(sync.Reserve0)
		if err != nil {
			return err
		}
		r1, err := parseAmount(sync.Reserve1)
		if err != nil {
			return err
		}
		a.Reserve0, a.Reserve1 = r0, r1
	}
	return nil
}

// applySwap counts both legs of a swap as volume and the input legs as fee-paying.
func (a *Accumulator) applySwap(swap model.SwapEventData) error {
	var legs [4]*uint256.Int
	for i, raw := range []string{swap.Amount0In, swap.Amount1In, swap.Amount0Out, swap.Amount1Out} {
		v, err := parseAmount(raw)
		if err != nil {
			return err
		}
		legs[i] = v
	}
	in0, in1, out0, out1 := legs[0], legs[1], legs[2], legs[3]

	a.Volume0.Add(a.Volume0, in0).Add(a.Volume0, out0)
	a.Volume1.Add(a.Volume1, in1).Add(a.Volume1, out1)
	a.Fee0.Add(a.Fee0, metrics.SwapFee(in0))
	a.Fee1.Add(a.Fee1, metrics.SwapFee(in1))
	a.SwapCount++
	return nil
}

func parseAmount(raw string) (*uint256.Int, error) {
	if raw == "" {
		return new(uint256.Int), nil
	}
	return amount.Parse(raw)
}
