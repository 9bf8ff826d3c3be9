package ledger

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryLedger keeps the chain in process memory. Used by tests and
// as the fallback when no database path is configured.
type MemoryLedger struct {
	mu          sync.Mutex
	entries     []Entry
	checkpoints []Checkpoint
	clock       func() time.Time
}

// MemoryOption configures a MemoryLedger.
type MemoryOption func(*MemoryLedger)

// WithMemoryClock overrides the time source, for tests.
func WithMemoryClock(clock func() time.Time) MemoryOption {
	return func(l *MemoryLedger) { l.clock = clock }
}

// NewMemory builds an empty in-memory ledger.
func NewMemory(opts ...MemoryOption) *MemoryLedger {
	l := &MemoryLedger{clock: func() time.Time { return time.Now().UTC() }}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Append implements Ledger. The whole read-compute-insert sequence
// runs under one lock so concurrent appenders can never share a
// previous hash.
func (l *MemoryLedger) Append(_ context.Context, eventType, actor string, payload map[string]any) (Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	previous := GenesisHash
	if n := len(l.entries); n > 0 {
		previous = l.entries[n-1].EventHash
	}

	serialized, err := canonicalPayload(payload)
	if err != nil {
		return Entry{}, err
	}

	entry := Entry{
		Sequence:     int64(len(l.entries) + 1),
		EventID:      uuid.NewString(),
		Timestamp:    l.clock(),
		EventType:    eventType,
		Actor:        actor,
		Payload:      payload,
		PreviousHash: previous,
	}
	entry.EventHash = computeEntryHash(entry.EventID, entry.Timestamp, eventType, actor, serialized, previous)
	l.entries = append(l.entries, entry)
	return entry, nil
}

// Events implements Ledger.
func (l *MemoryLedger) Events(_ context.Context, filter Filter) ([]Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultQueryLimit
	}

	var out []Entry
	skipped := 0
	for _, e := range l.entries {
		if !matches(e, filter) {
			continue
		}
		if skipped < filter.Offset {
			skipped++
			continue
		}
		out = append(out, e)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func matches(e Entry, f Filter) bool {
	if f.EventType != "" && e.EventType != f.EventType {
		return false
	}
	if f.Actor != "" && e.Actor != f.Actor {
		return false
	}
	if !f.Since.IsZero() && e.Timestamp.Before(f.Since) {
		return false
	}
	if !f.Until.IsZero() && e.Timestamp.After(f.Until) {
		return false
	}
	return true
}

// Count implements Ledger.
func (l *MemoryLedger) Count(context.Context) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return int64(len(l.entries)), nil
}

// LastHash implements Ledger.
func (l *MemoryLedger) LastHash(context.Context) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if n := len(l.entries); n > 0 {
		return l.entries[n-1].EventHash, nil
	}
	return GenesisHash, nil
}

// Verify implements Ledger.
func (l *MemoryLedger) Verify(context.Context) error {
	l.mu.Lock()
	entries := append([]Entry(nil), l.entries...)
	l.mu.Unlock()
	return verifyEntries(entries)
}

// CreateCheckpoint implements Ledger.
func (l *MemoryLedger) CreateCheckpoint(context.Context) (Checkpoint, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	cp := Checkpoint{
		ID:             int64(len(l.checkpoints) + 1),
		CreatedAt:      l.clock(),
		CumulativeHash: GenesisHash,
	}
	if n := len(l.entries); n > 0 {
		cp.LastEventID = l.entries[n-1].EventID
		cp.CumulativeHash = l.entries[n-1].EventHash
	}
	l.checkpoints = append(l.checkpoints, cp)
	return cp, nil
}

// ExportJSON implements Ledger.
func (l *MemoryLedger) ExportJSON(ctx context.Context, w io.Writer, limit int) (int, error) {
	entries, err := l.Events(ctx, Filter{Limit: limit})
	if err != nil {
		return 0, err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(entries); err != nil {
		return 0, err
	}
	return len(entries), nil
}

// Close implements Ledger.
func (l *MemoryLedger) Close() error { return nil }

// tamper overwrites one stored field, test-only hook for integrity
// checks.
func (l *MemoryLedger) tamper(index int, mutate func(*Entry)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	mutate(&l.entries[index])
}
