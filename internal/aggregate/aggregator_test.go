package aggregate

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/holiman/uint256"

	"liquidityPair/internal/model"
)

const testPair = "0x00000000000000000000000000000000000000AA"

type captureSink struct {
	calls   int
	metrics []model.PairWindowMetrics
}

func (c *captureSink) UpsertWindowMetrics(_ context.Context, metrics []model.PairWindowMetrics) error {
	c.calls++
	c.metrics = append(c.metrics, metrics...)
	return nil
}

func encodeRecords(t *testing.T, records ...model.EventRecord) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	for _, rec := range records {
		line, err := json.Marshal(rec)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		buf.Write(line)
		buf.WriteByte('\n')
	}
	return &buf
}

func rec(t *testing.T, seq uint64, ts uint64, name string, payload interface{}) model.EventRecord {
	t.Helper()
	emitter := testPair
	if seq%2 == 0 {
		emitter = strings.ToLower(testPair)
	}
	r, err := model.NewEventRecord(seq, int(seq), emitter, name, ts, payload)
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	return r
}

func sampleRecords(t *testing.T) []model.EventRecord {
	return []model.EventRecord{
		rec(t, 1, 100, model.EventSync, model.SyncEventData{Reserve0: "11000", Reserve1: "18200"}),
		rec(t, 2, 100, model.EventSwap, model.SwapEventData{Amount0In: "1000", Amount1In: "0", Amount0Out: "0", Amount1Out: "1800"}),
		rec(t, 3, 150, model.EventSync, model.SyncEventData{Reserve0: "13000", Reserve1: "15200"}),
		rec(t, 4, 150, model.EventSwap, model.SwapEventData{Amount0In: "2000", Amount1In: "0", Amount0Out: "0", Amount1Out: "3000"}),
		rec(t, 5, 210, model.EventSync, model.SyncEventData{Reserve0: "12100", Reserve1: "17200"}),
		rec(t, 6, 210, model.EventSwap, model.SwapEventData{Amount0In: "0", Amount1In: "2000", Amount0Out: "900", Amount1Out: "0"}),
		rec(t, 7, 350, model.EventTransfer, model.TransferEventData{From: "0x01", To: "0x02", Value: "5"}),
	}
}

func TestAggregatorWindows(t *testing.T) {
	sink := &captureSink{}
	statePath := filepath.Join(t.TempDir(), "state.json")
	state := &FileStateStore{Path: statePath, WindowSeconds: 100}
	agg := NewAggregator(Config{WindowSeconds: 100, StateStore: state}, sink, nil)

	if err := agg.RunReader(context.Background(), encodeRecords(t, sampleRecords(t)...)); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(sink.metrics) != 3 {
		t.Fatalf("expected 3 windows, got %d", len(sink.metrics))
	}

	first := sink.metrics[0]
	if first.WindowStart.Unix() != 100 || first.WindowEnd.Unix() != 200 || first.SwapCount != 2 {
		t.Fatalf("first window mismatch: %+v", first)
	}
	if first.Volume0 != "3000" || first.Volume1 != "4800" || first.Fee0 != "9" || first.Fee1 != "0" {
		t.Fatalf("first window amounts mismatch: %+v", first)
	}
	if first.TVL0 == nil || *first.TVL0 != "13000" || first.TVL1 == nil || *first.TVL1 != "15200" {
		t.Fatalf("first window tvl mismatch")
	}
	if first.FeeRate0 == nil || *first.FeeRate0 != "0.000692307692307692" ||
		first.FeeRate1 == nil || *first.FeeRate1 != "0.000000000000000000" {
		t.Fatalf("first window fee rates mismatch")
	}
	if first.APR == nil || *first.APR != "109.163076923076923077" {
		t.Fatalf("first window apr = %v", first.APR)
	}

	second := sink.metrics[1]
	if second.SwapCount != 1 || second.Fee1 != "6" || second.Volume0 != "900" {
		t.Fatalf("second window mismatch: %+v", second)
	}

	third := sink.metrics[2]
	if third.SwapCount != 0 || third.TVL0 == nil || *third.TVL0 != "12100" || third.APR != nil {
		t.Fatalf("third window should carry reserves without fees: %+v", third)
	}

	last, ok, err := state.Load(context.Background())
	if err != nil || !ok || last != 350 {
		t.Fatalf("state = %d %v %v", last, ok, err)
	}

	// a second pass resumes after the saved timestamp
	sink2 := &captureSink{}
	agg = NewAggregator(Config{WindowSeconds: 100, StateStore: state}, sink2, nil)
	if err := agg.RunReader(context.Background(), encodeRecords(t, sampleRecords(t)...)); err != nil {
		t.Fatalf("rerun: %v", err)
	}
	if sink2.calls != 0 {
		t.Fatalf("rerun wrote %d windows", len(sink2.metrics))
	}
}

func TestAggregatorRecomputeAndBadLines(t *testing.T) {
	sink := &captureSink{}
	agg := NewAggregator(Config{WindowSeconds: 100, RecomputeFrom: 200}, sink, nil)

	input := encodeRecords(t, sampleRecords(t)...)
	input.WriteString("{broken\n")
	if err := agg.RunReader(context.Background(), input); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(sink.metrics) != 2 || sink.metrics[0].WindowStart.Unix() != 200 {
		t.Fatalf("recompute windows mismatch: %+v", sink.metrics)
	}
}

func TestFileStateStoreKeepsWindowsApart(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state.json")
	minute := &FileStateStore{Path: path, WindowSeconds: 60}
	fiveMinutes := &FileStateStore{Path: path, WindowSeconds: 300}

	if err := minute.Save(ctx, 42); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, ok, err := fiveMinutes.Load(ctx); err != nil || ok {
		t.Fatalf("other window should have no progress: ok=%v err=%v", ok, err)
	}
	if err := fiveMinutes.Save(ctx, 7); err != nil {
		t.Fatalf("save: %v", err)
	}
	ts, ok, err := minute.Load(ctx)
	if err != nil || !ok || ts != 42 {
		t.Fatalf("load = %d %v %v", ts, ok, err)
	}
	ts, ok, err = fiveMinutes.Load(ctx)
	if err != nil || !ok || ts != 7 {
		t.Fatalf("load = %d %v %v", ts, ok, err)
	}
}

func TestComputeYield(t *testing.T) {
	y := computeYield(uint256.NewInt(1), uint256.NewInt(3), uint256.NewInt(1000), uint256.NewInt(1000), 365*24*3600)
	if y.rate0 == nil || *y.rate0 != "0.001000000000000000" || y.rate1 == nil || *y.rate1 != "0.003000000000000000" {
		t.Fatalf("rates = %v %v", y.rate0, y.rate1)
	}
	if y.apr == nil || *y.apr != "0.002000000000000000" {
		t.Fatalf("apr = %v", y.apr)
	}

	y = computeYield(new(uint256.Int), new(uint256.Int), uint256.NewInt(1000), nil, 60)
	if y.rate0 != nil || y.rate1 != nil || y.apr != nil {
		t.Fatalf("expected no yield without fees")
	}

	// fees on one side only still average over both halves of the pool
	y = computeYield(uint256.NewInt(3), new(uint256.Int), uint256.NewInt(1000), uint256.NewInt(1000), 365*24*3600)
	if y.rate1 == nil || *y.rate1 != "0.000000000000000000" {
		t.Fatalf("rate1 = %v", y.rate1)
	}
	if y.apr == nil || *y.apr != "0.001500000000000000" {
		t.Fatalf("one-sided apr = %v", y.apr)
	}
}

func TestJSONSink(t *testing.T) {
	var buf bytes.Buffer
	err := JSONSink{W: &buf}.UpsertWindowMetrics(context.Background(), []model.PairWindowMetrics{{PairAddress: testPair, SwapCount: 2}})
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	if !strings.Contains(buf.String(), `"swap_count":2`) {
		t.Fatalf("unexpected output: %s", buf.String())
	}
}
