package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSQLiteMigrationFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("CREATE TABLE").WillReturnError(errors.New("disk I/O error"))

	_, err = NewSQLite(db)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "audit schema migration")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLiteAppendChainHeadReadFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("CREATE TABLE").WillReturnResult(sqlmock.NewResult(0, 0))
	l, err := NewSQLite(db)
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT event_hash FROM audit_events").WillReturnError(errors.New("database is locked"))
	mock.ExpectRollback()

	_, err = l.Append(context.Background(), "command_received", "user", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read chain head")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLiteAppendInsertFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("CREATE TABLE").WillReturnResult(sqlmock.NewResult(0, 0))
	l, err := NewSQLite(db)
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT event_hash FROM audit_events").
		WillReturnRows(sqlmock.NewRows([]string{"event_hash"}))
	mock.ExpectExec("INSERT INTO audit_events").WillReturnError(errors.New("constraint failed"))
	mock.ExpectRollback()

	_, err = l.Append(context.Background(), "command_received", "user", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert audit event")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLiteAppendCommitFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("CREATE TABLE").WillReturnResult(sqlmock.NewResult(0, 0))
	l, err := NewSQLite(db)
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT event_hash FROM audit_events").
		WillReturnRows(sqlmock.NewRows([]string{"event_hash"}))
	mock.ExpectExec("INSERT INTO audit_events").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit().WillReturnError(errors.New("disk full"))

	_, err = l.Append(context.Background(), "command_received", "user", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "commit append")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLiteVerifyRejectsMalformedTimestamp(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("CREATE TABLE").WillReturnResult(sqlmock.NewResult(0, 0))
	l, err := NewSQLite(db)
	require.NoError(t, err)

	rows := sqlmock.NewRows([]string{
		"sequence", "event_id", "timestamp", "event_type", "actor", "payload", "previous_hash", "event_hash",
	}).AddRow(1, "evt-1", "not-a-timestamp", "command_received", "user", "{}", GenesisHash, "abcd")
	mock.ExpectQuery("SELECT sequence, event_id").WillReturnRows(rows)

	err = l.Verify(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse event timestamp")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLiteVerifyReplaysStoredRows(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("CREATE TABLE").WillReturnResult(sqlmock.NewResult(0, 0))
	l, err := NewSQLite(db)
	require.NoError(t, err)

	ts := time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC)
	hash := computeEntryHash("evt-1", ts, "command_received", "user", "{}", GenesisHash)

	rows := sqlmock.NewRows([]string{
		"sequence", "event_id", "timestamp", "event_type", "actor", "payload", "previous_hash", "event_hash",
	}).AddRow(1, "evt-1", ts.Format(time.RFC3339Nano), "command_received", "user", "{}", GenesisHash, hash)
	mock.ExpectQuery("SELECT sequence, event_id").WillReturnRows(rows)

	assert.NoError(t, l.Verify(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
