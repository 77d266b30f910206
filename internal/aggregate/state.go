package aggregate

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"liquidityPair/internal/storage/postgres"
)

// StateStore persists the timestamp up to which events are fully aggregated.
type StateStore interface {
	Load(ctx context.Context) (uint64, bool, error)
	Save(ctx context.Context, ts uint64) error
}

// FileStateStore keeps progress in a local JSON file, one entry per window
// size, so runs with different windows can share the file.
type FileStateStore struct {
	Path          string
	WindowSeconds uint64
}

type windowProgress struct {
	LastProcessed uint64 `json:"last_processed_ts"`
	UpdatedAt     string `json:"updated_at"`
}

type stateFile struct {
	Windows map[string]windowProgress `json:"windows"`
}

func (s *FileStateStore) key() string { return strconv.FormatUint(s.WindowSeconds, 10) }

func (s *FileStateStore) read() (stateFile, error) {
	state := stateFile{Windows: map[string]windowProgress{}}
	data, err := os.ReadFile(s.Path)
	if os.IsNotExist(err) {
		return state, nil
	}
	if err != nil {
		return state, fmt.Errorf("read state: %w", err)
	}
	if err := json.Unmarshal(data, &state); err != nil {
		return state, fmt.Errorf("parse state %s: %w", s.Path, err)
	}
	if state.Windows == nil {
		state.Windows = map[string]windowProgress{}
	}
	return state, nil
}

func (s *FileStateStore) Load(_ context.Context) (uint64, bool, error) {
	if s == nil || s.Path == "" {
		return 0, false, nil
	}
	state, err := s.read()
	if err != nil {
		return 0, false, err
	}
	progress, ok := state.Windows[s.key()]
	return progress.LastProcessed, ok, nil
}

func (s *FileStateStore) Save(_ context.Context, ts uint64) error {
	if s == nil || s.Path == "" {
		return nil
	}
	state, err := s.read()
	if err != nil {
		return err
	}
	state.Windows[s.key()] = windowProgress{
		LastProcessed: ts,
		UpdatedAt:     time.Now().UTC().Format(time.RFC3339Nano),
	}

	if dir := filepath.Dir(s.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create state dir: %w", err)
		}
	}
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	tmp := s.Path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write state tmp: %w", err)
	}
	return os.Rename(tmp, s.Path)
}

// DBStateStore keeps progress in the aggregator_state table.
type DBStateStore struct {
	store *postgres.Store
	name  string
}

// NewDBStateStore tracks progress for one window size under its own row.
func NewDBStateStore(store *postgres.Store, windowSeconds uint64) *DBStateStore {
	return &DBStateStore{store: store, name: fmt.Sprintf("aggregator:%d", windowSeconds)}
}

func (s *DBStateStore) Load(ctx context.Context) (uint64, bool, error) {
	return s.store.LoadState(ctx, s.name)
}

func (s *DBStateStore) Save(ctx context.Context, ts uint64) error {
	return s.store.SaveState(ctx, s.name, ts)
}
