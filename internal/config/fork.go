package config

import (
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// ForkConfig holds settings for forking a live pair into the simulator.
type ForkConfig struct {
	Config
	RPCURL       string
	Pair         string
	Block        uint64
	Holder       string
	MaxRetries   int
	RetryBackoff time.Duration
}

// LoadFork merges config file, environment variables, and flags into ForkConfig.
func LoadFork(cfgFile string, flags *pflag.FlagSet) (ForkConfig, error) {
	v, err := newViper(cfgFile, flags, func(v *viper.Viper) {
		runDefaults(v)
		v.SetDefault("holder", "lp")
		v.SetDefault("max-retries", 5)
		v.SetDefault("retry-backoff", 500*time.Millisecond)
	})
	if err != nil {
		return ForkConfig{}, err
	}

	return ForkConfig{
		Config:       runConfig(v),
		RPCURL:       v.GetString("rpc"),
		Pair:         v.GetString("pair"),
		Block:        v.GetUint64("block"),
		Holder:       v.GetString("holder"),
		MaxRetries:   v.GetInt("max-retries"),
		RetryBackoff: v.GetDuration("retry-backoff"),
	}, nil
}
