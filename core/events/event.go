package events

import (
	"sync"

	"magni/core/types"
)

// Event represents a structured state change emitted by the vault.
type Event interface {
	EventType() string
}

// Broadcastable is implemented by payloads that can render themselves into a
// wire-level event record.
type Broadcastable interface {
	Event
	Event() *types.Event
}

// Emitter broadcasts events to downstream subscribers (e.g. RPC, indexers).
type Emitter interface {
	Emit(Event)
}

// NoopEmitter is a helper that satisfies the Emitter interface while discarding
// all events. It is useful when a component wants to optionally expose events.
type NoopEmitter struct{}

// Emit implements the Emitter interface.
func (NoopEmitter) Emit(Event) {}

// Record pairs an emitted event with its position in the log. Sequence numbers
// start at zero and never repeat; emission order is the authoritative external
// view of state transitions.
type Record struct {
	Sequence uint64       `json:"sequence"`
	Type     string       `json:"type"`
	Event    *types.Event `json:"event"`
}

// Log is an append-only event log. It satisfies Emitter so engines can write
// to it directly, and consumers can reconstruct any position from the records
// alone without touching raw state storage.
type Log struct {
	mu      sync.RWMutex
	records []Record
	next    uint64
	fanout  Emitter
}

// NewLog constructs an empty event log.
func NewLog() *Log {
	return &Log{}
}

// SetFanout forwards every appended event to an additional emitter.
func (l *Log) SetFanout(em Emitter) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.fanout = em
}

// Emit appends the event to the log.
func (l *Log) Emit(ev Event) {
	if ev == nil {
		return
	}
	var wire *types.Event
	if b, ok := ev.(Broadcastable); ok {
		wire = b.Event()
	} else {
		wire = &types.Event{Type: ev.EventType()}
	}
	l.mu.Lock()
	rec := Record{Sequence: l.next, Type: ev.EventType(), Event: wire}
	l.records = append(l.records, rec)
	l.next++
	fanout := l.fanout
	l.mu.Unlock()
	if fanout != nil {
		fanout.Emit(ev)
	}
}

// Len returns the number of appended records.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.records)
}

// Records returns a copy of the log contents starting at the given sequence.
func (l *Log) Records(from uint64) []Record {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if from >= uint64(len(l.records)) {
		return nil
	}
	out := make([]Record, len(l.records)-int(from))
	copy(out, l.records[from:])
	return out
}
