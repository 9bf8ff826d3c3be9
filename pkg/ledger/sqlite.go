package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// SQLiteLedger persists the chain in a SQLite database.
type SQLiteLedger struct {
	mu    sync.Mutex
	db    *sql.DB
	clock func() time.Time
}

// SQLiteOption configures a SQLiteLedger.
type SQLiteOption func(*SQLiteLedger)

// WithSQLiteClock overrides the time source, for tests.
func WithSQLiteClock(clock func() time.Time) SQLiteOption {
	return func(l *SQLiteLedger) { l.clock = clock }
}

// OpenSQLite opens (or creates) the ledger database at path.
func OpenSQLite(path string, opts ...SQLiteOption) (*SQLiteLedger, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open audit database: %w", err)
	}
	// A single writer keeps the append critical section honest.
	db.SetMaxOpenConns(1)
	return NewSQLite(db, opts...)
}

// NewSQLite wraps an existing database handle and runs migrations.
func NewSQLite(db *sql.DB, opts ...SQLiteOption) (*SQLiteLedger, error) {
	l := &SQLiteLedger{
		db:    db,
		clock: func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(l)
	}
	if err := l.migrate(); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *SQLiteLedger) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS audit_events (
		sequence      INTEGER PRIMARY KEY AUTOINCREMENT,
		event_id      TEXT NOT NULL UNIQUE,
		timestamp     TEXT NOT NULL,
		ts_unix_ns    INTEGER NOT NULL,
		event_type    TEXT NOT NULL,
		actor         TEXT NOT NULL,
		payload       TEXT NOT NULL,
		previous_hash TEXT NOT NULL,
		event_hash    TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_audit_events_type ON audit_events(event_type);
	CREATE INDEX IF NOT EXISTS idx_audit_events_actor ON audit_events(actor);
	CREATE INDEX IF NOT EXISTS idx_audit_events_ts ON audit_events(ts_unix_ns);
	CREATE TABLE IF NOT EXISTS integrity_checkpoints (
		id              INTEGER PRIMARY KEY AUTOINCREMENT,
		checkpoint_time TEXT NOT NULL,
		last_event_id   TEXT NOT NULL,
		cumulative_hash TEXT NOT NULL
	);`
	if _, err := l.db.Exec(schema); err != nil {
		return fmt.Errorf("audit schema migration: %w", err)
	}
	return nil
}

// Append implements Ledger. The read of the chain head, the hash
// computation and the insert run inside one mutex-guarded transaction.
func (l *SQLiteLedger) Append(ctx context.Context, eventType, actor string, payload map[string]any) (Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	serialized, err := canonicalPayload(payload)
	if err != nil {
		return Entry{}, err
	}

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return Entry{}, fmt.Errorf("begin append: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	previous := GenesisHash
	err = tx.QueryRowContext(ctx,
		`SELECT event_hash FROM audit_events ORDER BY sequence DESC LIMIT 1`,
	).Scan(&previous)
	if err != nil && err != sql.ErrNoRows {
		return Entry{}, fmt.Errorf("read chain head: %w", err)
	}

	entry := Entry{
		EventID:      uuid.NewString(),
		Timestamp:    l.clock(),
		EventType:    eventType,
		Actor:        actor,
		Payload:      payload,
		PreviousHash: previous,
	}
	entry.EventHash = computeEntryHash(entry.EventID, entry.Timestamp, eventType, actor, serialized, previous)

	res, err := tx.ExecContext(ctx,
		`INSERT INTO audit_events (event_id, timestamp, ts_unix_ns, event_type, actor, payload, previous_hash, event_hash)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.EventID,
		entry.Timestamp.Format(time.RFC3339Nano),
		entry.Timestamp.UnixNano(),
		eventType,
		actor,
		serialized,
		previous,
		entry.EventHash,
	)
	if err != nil {
		return Entry{}, fmt.Errorf("insert audit event: %w", err)
	}
	if seq, err := res.LastInsertId(); err == nil {
		entry.Sequence = seq
	}
	if err := tx.Commit(); err != nil {
		return Entry{}, fmt.Errorf("commit append: %w", err)
	}
	return entry, nil
}

// Events implements Ledger.
func (l *SQLiteLedger) Events(ctx context.Context, filter Filter) ([]Entry, error) {
	query := strings.Builder{}
	query.WriteString(`SELECT sequence, event_id, timestamp, event_type, actor, payload, previous_hash, event_hash
		FROM audit_events`)

	var conds []string
	var args []any
	if filter.EventType != "" {
		conds = append(conds, "event_type = ?")
		args = append(args, filter.EventType)
	}
	if filter.Actor != "" {
		conds = append(conds, "actor = ?")
		args = append(args, filter.Actor)
	}
	// Time bounds compare the integer column: the RFC 3339 text column
	// has variable-length fractional seconds, which do not sort
	// lexicographically in time order.
	if !filter.Since.IsZero() {
		conds = append(conds, "ts_unix_ns >= ?")
		args = append(args, filter.Since.UnixNano())
	}
	if !filter.Until.IsZero() {
		conds = append(conds, "ts_unix_ns <= ?")
		args = append(args, filter.Until.UnixNano())
	}
	if len(conds) > 0 {
		query.WriteString(" WHERE " + strings.Join(conds, " AND "))
	}
	query.WriteString(" ORDER BY sequence ASC LIMIT ? OFFSET ?")
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultQueryLimit
	}
	args = append(args, limit, filter.Offset)

	rows, err := l.db.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, entry)
	}
	return out, rows.Err()
}

func scanEntry(rows *sql.Rows) (Entry, error) {
	var e Entry
	var ts, payload string
	if err := rows.Scan(&e.Sequence, &e.EventID, &ts, &e.EventType, &e.Actor, &payload, &e.PreviousHash, &e.EventHash); err != nil {
		return Entry{}, fmt.Errorf("scan audit event: %w", err)
	}
	parsed, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return Entry{}, fmt.Errorf("parse event timestamp %q: %w", ts, err)
	}
	e.Timestamp = parsed
	if err := json.Unmarshal([]byte(payload), &e.Payload); err != nil {
		return Entry{}, fmt.Errorf("parse event payload: %w", err)
	}
	return e, nil
}

// Count implements Ledger.
func (l *SQLiteLedger) Count(ctx context.Context) (int64, error) {
	var n int64
	err := l.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM audit_events`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count audit events: %w", err)
	}
	return n, nil
}

// LastHash implements Ledger.
func (l *SQLiteLedger) LastHash(ctx context.Context) (string, error) {
	head := GenesisHash
	err := l.db.QueryRowContext(ctx,
		`SELECT event_hash FROM audit_events ORDER BY sequence DESC LIMIT 1`,
	).Scan(&head)
	if err != nil && err != sql.ErrNoRows {
		return "", fmt.Errorf("read chain head: %w", err)
	}
	return head, nil
}

// Verify implements Ledger. Replays the full table in insertion order.
func (l *SQLiteLedger) Verify(ctx context.Context) error {
	rows, err := l.db.QueryContext(ctx,
		`SELECT sequence, event_id, timestamp, event_type, actor, payload, previous_hash, event_hash
		 FROM audit_events ORDER BY sequence ASC`)
	if err != nil {
		return fmt.Errorf("read audit events: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	return verifyEntries(entries)
}

// CreateCheckpoint implements Ledger.
func (l *SQLiteLedger) CreateCheckpoint(ctx context.Context) (Checkpoint, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	cp := Checkpoint{CreatedAt: l.clock(), CumulativeHash: GenesisHash}
	err := l.db.QueryRowContext(ctx,
		`SELECT event_id, event_hash FROM audit_events ORDER BY sequence DESC LIMIT 1`,
	).Scan(&cp.LastEventID, &cp.CumulativeHash)
	if err != nil && err != sql.ErrNoRows {
		return Checkpoint{}, fmt.Errorf("read chain head: %w", err)
	}

	res, err := l.db.ExecContext(ctx,
		`INSERT INTO integrity_checkpoints (checkpoint_time, last_event_id, cumulative_hash) VALUES (?, ?, ?)`,
		cp.CreatedAt.Format(time.RFC3339Nano), cp.LastEventID, cp.CumulativeHash,
	)
	if err != nil {
		return Checkpoint{}, fmt.Errorf("insert checkpoint: %w", err)
	}
	if id, err := res.LastInsertId(); err == nil {
		cp.ID = id
	}
	return cp, nil
}

// ExportJSON implements Ledger.
func (l *SQLiteLedger) ExportJSON(ctx context.Context, w io.Writer, limit int) (int, error) {
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
func (l *SQLiteLedger) Close() error { return l.db.Close() }
