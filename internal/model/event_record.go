package model

import (
	"encoding/json"
	"fmt"
)

// Event names as they appear in EventRecord.EventName.
const (
	EventMint     = "Mint"
	EventBurn     = "Burn"
	EventSwap     = "Swap"
	EventSync     = "Sync"
	EventTransfer = "Transfer"
	EventApproval = "Approval"
)

// EventRecord is the normalized representation of a notification for storage.
type EventRecord struct {
	Seq       uint64          `json:"seq"`
	Step      int             `json:"step"`
	Emitter   string          `json:"emitter"`
	EventName string          `json:"event_name"`
	Timestamp uint64          `json:"timestamp"`
	Decoded   json.RawMessage `json:"decoded"`
}

// NewEventRecord marshals payload into an EventRecord.
func NewEventRecord(seq uint64, step int, emitter, name string, timestamp uint64, payload interface{}) (EventRecord, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return EventRecord{}, fmt.Errorf("marshal %s payload: %w", name, err)
	}
	return EventRecord{
		Seq:       seq,
		Step:      step,
		Emitter:   emitter,
		EventName: name,
		Timestamp: timestamp,
		Decoded:   data,
	}, nil
}

// DecodeInto unmarshals the record payload into out.
func (r EventRecord) DecodeInto(out interface{}) error {
	if len(r.Decoded) == 0 {
		return fmt.Errorf("empty %s payload", r.EventName)
	}
	if err := json.Unmarshal(r.Decoded, out); err != nil {
		return fmt.Errorf("decode %s payload: %w", r.EventName, err)
	}
	return nil
}
