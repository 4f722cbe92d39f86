package command

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/ultrosbot/ultros/datastore"
)

const (
	historyKey   = "command_history"
	historyLimit = 20
)

// HistoryRecord is one executed command, kept for the status/log commands.
type HistoryRecord struct {
	Protocol string    `json:"protocol" yaml:"protocol"`
	Source   string    `json:"source" yaml:"source"`
	CallerID string    `json:"caller_id" yaml:"caller_id"`
	Command  string    `json:"command" yaml:"command"`
	Args     string    `json:"args" yaml:"args"`
	Datetime time.Time `json:"datetime" yaml:"datetime"`
}

// HistoryRecorder keeps a bounded log of executed commands in the shared
// datastore.
type HistoryRecorder struct {
	ds *datastore.DataStore
}

// NewHistoryRecorder wraps ds.
func NewHistoryRecorder(ds *datastore.DataStore) *HistoryRecorder {
	return &HistoryRecorder{ds: ds}
}

// Record appends one invocation, trimming the log to its bound.
func (r *HistoryRecorder) Record(inv *Invocation) error {
	return r.ds.Transaction(func() error {
		records, err := r.load()
		if err != nil {
			return err
		}
		records = append(records, HistoryRecord{
			Protocol: inv.Protocol.Name(),
			Source:   inv.Source.Name(),
			CallerID: inv.Caller.ID(),
			Command:  inv.Command,
			Args:     inv.RawArgs,
			Datetime: time.Now().UTC(),
		})
		if len(records) > historyLimit {
			records = records[len(records)-historyLimit:]
		}
		r.ds.Set(historyKey, records)
		return nil
	})
}

// Recent returns the recorded history, oldest first.
func (r *HistoryRecorder) Recent() ([]HistoryRecord, error) {
	return r.load()
}

func (r *HistoryRecorder) load() ([]HistoryRecord, error) {
	raw, ok := r.ds.Get(historyKey)
	if !ok {
		return nil, nil
	}
	blob, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("command history is not encodable: %w", err)
	}
	var records []HistoryRecord
	if err := json.Unmarshal(blob, &records); err != nil {
		return nil, fmt.Errorf("command history is malformed: %w", err)
	}
	return records, nil
}
