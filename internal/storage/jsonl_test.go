package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"liquidityPair/internal/model"
)

func record(t *testing.T, seq uint64, name string, payload interface{}) model.EventRecord {
	t.Helper()
	rec, err := model.NewEventRecord(seq, 1, "0x00000000000000000000000000000000000000aa", name, 100+seq, payload)
	if err != nil {
		t.Fatalf("new record: %v", err)
	}
	return rec
}

func TestJsonlRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "events.jsonl")
	sink := NewJsonlStorage(path)
	ctx := context.Background()

	first := []model.EventRecord{
		record(t, 1, model.EventSync, model.SyncEventData{Reserve0: "1", Reserve1: "2"}),
		record(t, 2, model.EventMint, model.MintEventData{Sender: "0x01", Amount0: "1", Amount1: "2"}),
	}
	if err := sink.PutEventBatch(ctx, first); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := sink.PutEventBatch(ctx, nil); err != nil {
		t.Fatalf("put empty: %v", err)
	}
	if err := sink.PutEventBatch(ctx, []model.EventRecord{record(t, 3, model.EventSync, model.SyncEventData{Reserve0: "3", Reserve1: "4"})}); err != nil {
		t.Fatalf("put: %v", err)
	}

	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer file.Close()

	var got []model.EventRecord
	if err := ScanEvents(file, func(rec model.EventRecord) error {
		got = append(got, rec)
		return nil
	}, nil); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 records, got %d", len(got))
	}
	if got[2].Seq != 3 || got[1].EventName != model.EventMint {
		t.Fatalf("records out of order: %+v", got)
	}
	var sync model.SyncEventData
	if err := got[2].DecodeInto(&sync); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if sync.Reserve1 != "4" {
		t.Fatalf("reserve1 = %s", sync.Reserve1)
	}
}

func TestScanEventsSkipsBadLines(t *testing.T) {
	input := "{\"seq\":1,\"event_name\":\"Sync\"}\nnot json\n\n{\"seq\":2,\"event_name\":\"Sync\"}\n"
	var seqs []uint64
	var bad []int
	err := ScanEvents(strings.NewReader(input), func(rec model.EventRecord) error {
		seqs = append(seqs, rec.Seq)
		return nil
	}, func(line int, _ error) {
		bad = append(bad, line)
	})
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(seqs) != 2 || len(bad) != 1 || bad[0] != 2 {
		t.Fatalf("seqs=%v bad=%v", seqs, bad)
	}

	stop := errors.New("stop")
	err = ScanEvents(strings.NewReader(input), func(model.EventRecord) error { return stop }, nil)
	if !errors.Is(err, stop) {
		t.Fatalf("expected callback error, got %v", err)
	}
}

type failingSink struct{ err error }

func (f failingSink) PutEventBatch(context.Context, []model.EventRecord) error { return f.err }

func TestMulti(t *testing.T) {
	mem := &Memory{}
	boom := errors.New("boom")
	sink := Multi{mem, nil, failingSink{err: boom}}
	err := sink.PutEventBatch(context.Background(), []model.EventRecord{{Seq: 7}})
	if !errors.Is(err, boom) {
		t.Fatalf("expected joined error, got %v", err)
	}
	if len(mem.Events) != 1 || mem.Events[0].Seq != 7 {
		t.Fatalf("memory sink missed the batch: %+v", mem.Events)
	}
}
