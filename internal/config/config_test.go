package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pairsim.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadPrecedence(t *testing.T) {
	path := writeConfig(t, "scenario: from-file.yaml\nevents-out: file.jsonl\nlog-level: warn\n")
	t.Setenv("PAIRSIM_EVENTS_OUT", "env.jsonl")

	flags := pflag.NewFlagSet("run", pflag.ContinueOnError)
	flags.String("log-level", "info", "")
	flags.Bool("checkpoint-enabled", true, "")
	if err := flags.Parse([]string{"--log-level=debug", "--checkpoint-enabled=false"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	cfg, err := Load(path, flags)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Scenario != "from-file.yaml" {
		t.Fatalf("scenario = %s", cfg.Scenario)
	}
	if cfg.EventsOut != "env.jsonl" {
		t.Fatalf("events-out = %s, env should win over file", cfg.EventsOut)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("log-level = %s, flag should win", cfg.LogLevel)
	}
	if cfg.CheckpointEnabled {
		t.Fatalf("checkpoint-enabled should be false")
	}
	if cfg.Snapshot != "./data/snapshot.json" {
		t.Fatalf("snapshot default = %s", cfg.Snapshot)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), nil); err == nil {
		t.Fatalf("expected error for a missing explicit config file")
	}
}

func TestLoadFork(t *testing.T) {
	path := writeConfig(t, "rpc: http://localhost:8545\npair: \"0xB4e16d0168e52d35CaCD2c6185b44281Ec28C9Dc\"\nblock: 19000000\nretry-backoff: 2s\n")
	cfg, err := LoadFork(path, nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.RPCURL != "http://localhost:8545" || cfg.Block != 19000000 {
		t.Fatalf("fork config mismatch: %+v", cfg)
	}
	if cfg.RetryBackoff != 2*time.Second || cfg.MaxRetries != 5 || cfg.Holder != "lp" {
		t.Fatalf("fork defaults mismatch: %+v", cfg)
	}
	if cfg.EventsOut != "./data/events.jsonl" {
		t.Fatalf("embedded run config not loaded: %+v", cfg.Config)
	}
}

func TestLoadAggregate(t *testing.T) {
	t.Setenv("PAIRSIM_WINDOW", "1h")
	t.Setenv("PAIRSIM_DECIMALS0", "6")
	cfg, err := LoadAggregate(writeConfig(t, "in: events.jsonl\n"), nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Window != time.Hour || cfg.Input != "events.jsonl" || cfg.BatchSize != 1000 || cfg.Decimals0 != 6 {
		t.Fatalf("aggregate config mismatch: %+v", cfg)
	}
}

func TestParseTimestamp(t *testing.T) {
	cases := map[string]uint64{
		"":                     0,
		"1700000000":           1700000000,
		"2023-11-14T22:13:20Z": 1700000000,
		" 2023-11-14 ":         1699920000,
	}
	for input, want := range cases {
		got, err := ParseTimestamp(input)
		if err != nil || got != want {
			t.Fatalf("ParseTimestamp(%q) = %d, %v", input, got, err)
		}
	}
	if _, err := ParseTimestamp("yesterday"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestAggregateWindowSeconds(t *testing.T) {
	secs, err := AggregateConfig{Window: 5 * time.Minute}.WindowSeconds()
	if err != nil || secs != 300 {
		t.Fatalf("WindowSeconds = %d, %v", secs, err)
	}
	if _, err := (AggregateConfig{Window: 500 * time.Millisecond}).WindowSeconds(); err == nil {
		t.Fatalf("expected error for sub-second window")
	}
	t.Setenv("PAIRSIM_WINDOW", "soon")
	if _, err := LoadAggregate(writeConfig(t, "in: x\n"), nil); err == nil {
		t.Fatalf("expected error for invalid window")
	}
}
