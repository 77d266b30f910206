package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const envPrefix = "PAIRSIM"

// Config holds settings for running a scenario, loaded from flags, env, or config file.
type Config struct {
	Scenario          string
	EventsOut         string
	Snapshot          string
	CheckpointEnabled bool
	PGDSN             string
	MetricsAddr       string
	FeeTo             string
	LogLevel          string
}

// Load merges config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v, err := newViper(cfgFile, flags, runDefaults)
	if err != nil {
		return Config{}, err
	}
	return runConfig(v), nil
}

func runDefaults(v *viper.Viper) {
	v.SetDefault("events-out", "./data/events.jsonl")
	v.SetDefault("snapshot", "./data/snapshot.json")
	v.SetDefault("checkpoint-enabled", true)
	v.SetDefault("log-level", "info")
}

func runConfig(v *viper.Viper) Config {
	return Config{
		Scenario:          v.GetString("scenario"),
		EventsOut:         v.GetString("events-out"),
		Snapshot:          v.GetString("snapshot"),
		CheckpointEnabled: v.GetBool("checkpoint-enabled"),
		PGDSN:             v.GetString("pg-dsn"),
		MetricsAddr:       v.GetString("metrics-addr"),
		FeeTo:             v.GetString("fee-to"),
		LogLevel:          v.GetString("log-level"),
	}
}

func newViper(cfgFile string, flags *pflag.FlagSet, defaults func(*viper.Viper)) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	defaults(v)

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}
	return v, nil
}
