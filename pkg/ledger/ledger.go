// Package ledger is the append-only, hash-chained audit log. Every
// pipeline milestone lands here; records are insert-only and each one
// binds to its predecessor, so any later mutation breaks verification.
// Two engines satisfy the same contract: an in-memory ledger and a
// SQLite-backed one.
package ledger

import (
	"context"
	"errors"
	"io"
	"time"
)

// GenesisHash is the sentinel previous-hash of the first record.
const GenesisHash = "GENESIS"

// ErrChainBroken reports a failed integrity verification.
var ErrChainBroken = errors.New("audit chain integrity violation")

// Entry is one audit record. Append-only; no update or delete path
// exists anywhere in the package.
//
//nolint:govet // fieldalignment: struct layout matches the stored row
type Entry struct {
	Sequence     int64          `json:"sequence"`
	EventID      string         `json:"event_id"`
	Timestamp    time.Time      `json:"timestamp"`
	EventType    string         `json:"event_type"`
	Actor        string         `json:"actor"`
	Payload      map[string]any `json:"payload,omitempty"`
	PreviousHash string         `json:"previous_hash"`
	EventHash    string         `json:"event_hash"`
}

// Checkpoint snapshots the chain head so periodic re-verification can
// start from it instead of replaying from genesis.
//
//nolint:govet // fieldalignment: struct layout matches the stored row
type Checkpoint struct {
	ID             int64     `json:"id"`
	CreatedAt      time.Time `json:"created_at"`
	LastEventID    string    `json:"last_event_id"`
	CumulativeHash string    `json:"cumulative_hash"`
}

// Filter narrows an Events query. Zero values mean "no constraint";
// Limit zero means the engine default.
//
//nolint:govet // fieldalignment: struct layout is human-readable
type Filter struct {
	EventType string
	Actor     string
	Since     time.Time
	Until     time.Time
	Limit     int
	Offset    int
}

// Ledger is the append-only audit contract both engines satisfy.
type Ledger interface {
	// Append writes one event under the chain head. The read of the
	// last hash, the hash computation and the insert execute as one
	// critical section.
	Append(ctx context.Context, eventType, actor string, payload map[string]any) (Entry, error)

	// Events returns records matching the filter, insertion order.
	Events(ctx context.Context, filter Filter) ([]Entry, error)

	// Count returns the number of records.
	Count(ctx context.Context) (int64, error)

	// LastHash returns the chain head, or GenesisHash when empty.
	LastHash(ctx context.Context) (string, error)

	// Verify replays every record from genesis and returns
	// ErrChainBroken (wrapped with detail) on the first mismatch.
	Verify(ctx context.Context) error

	// CreateCheckpoint snapshots the current chain head.
	CreateCheckpoint(ctx context.Context) (Checkpoint, error)

	// ExportJSON streams up to limit records as a JSON array and
	// returns how many were written.
	ExportJSON(ctx context.Context, w io.Writer, limit int) (int, error)

	Close() error
}

const defaultQueryLimit = 100
