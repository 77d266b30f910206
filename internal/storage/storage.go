package storage

import (
	"context"
	"errors"

	"liquidityPair/internal/model"
)

// Storage defines a sink for event records.
type Storage interface {
	PutEventBatch(ctx context.Context, events []model.EventRecord) error
}

// Multi writes every batch to each sink in order and joins their errors.
type Multi []Storage

func (m Multi) PutEventBatch(ctx context.Context, events []model.EventRecord) error {
	var errs []error
	for _, sink := range m {
		if sink == nil {
			continue
		}
		if err := sink.PutEventBatch(ctx, events); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Memory keeps event records in memory.
type Memory struct {
	Events []model.EventRecord
}

func (m *Memory) PutEventBatch(_ context.Context, events []model.EventRecord) error {
	m.Events = append(m.Events, events...)
	return nil
}
