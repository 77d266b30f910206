package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"liquidityPair/internal/config"
	"liquidityPair/internal/storage/postgres"
)

func runSnapshot(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	name, _ := cmd.Flags().GetString("name")
	if name == "" && cfg.Scenario != "" {
		sc, err := loadScenario(cfg)
		if err != nil {
			return err
		}
		name = sc.Name
	}
	if name == "" {
		return fmt.Errorf("snapshot name is required")
	}

	ctx := context.Background()
	store, err := postgres.NewStore(ctx, cfg.PGDSN)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer store.Close()

	state, ok, err := store.LoadSnapshot(ctx, name)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("no snapshot named %q", name)
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(state)
}
