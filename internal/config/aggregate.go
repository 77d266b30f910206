package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// AggregateConfig holds settings for the aggregate command.
type AggregateConfig struct {
	Input         string
	Window        time.Duration
	PGDSN         string
	BatchSize     int
	StateFile     string
	RecomputeFrom string
	Decimals0     uint8
	Decimals1     uint8
	LogLevel      string
}

// LoadAggregate merges config file, environment variables, and flags into AggregateConfig.
func LoadAggregate(cfgFile string, flags *pflag.FlagSet) (AggregateConfig, error) {
	v, err := newViper(cfgFile, flags, func(v *viper.Viper) {
		v.SetDefault("in", "./data/events.jsonl")
		v.SetDefault("window", "5m")
		v.SetDefault("batch-size", 1000)
		v.SetDefault("log-level", "info")
	})
	if err != nil {
		return AggregateConfig{}, err
	}

	window, err := time.ParseDuration(v.GetString("window"))
	if err != nil {
		return AggregateConfig{}, fmt.Errorf("invalid window: %w", err)
	}
	return AggregateConfig{
		Input:         v.GetString("in"),
		Window:        window,
		PGDSN:         v.GetString("pg-dsn"),
		BatchSize:     v.GetInt("batch-size"),
		StateFile:     v.GetString("state-file"),
		RecomputeFrom: v.GetString("recompute-from"),
		Decimals0:     uint8(v.GetUint("decimals0")),
		Decimals1:     uint8(v.GetUint("decimals1")),
		LogLevel:      v.GetString("log-level"),
	}, nil
}

// WindowSeconds is the window in whole seconds; sub-second windows are rejected.
func (c AggregateConfig) WindowSeconds() (uint64, error) {
	secs := uint64(c.Window / time.Second)
	if c.Window <= 0 || secs == 0 {
		return 0, fmt.Errorf("window must be at least 1s, got %s", c.Window)
	}
	return secs, nil
}

var timestampLayouts = []string{time.RFC3339, "2006-01-02"}

// ParseTimestamp reads unix seconds, an RFC3339 time, or a UTC date. Empty input is 0.
func ParseTimestamp(input string) (uint64, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return 0, nil
	}
	if secs, err := strconv.ParseUint(input, 10, 64); err == nil {
		return secs, nil
	}
	for _, layout := range timestampLayouts {
		if tm, err := time.Parse(layout, input); err == nil {
			if tm.Unix() < 0 {
				return 0, fmt.Errorf("timestamp before 1970: %s", input)
			}
			return uint64(tm.Unix()), nil
		}
	}
	return 0, fmt.Errorf("unrecognized timestamp %q", input)
}
