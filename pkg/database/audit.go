package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/soypete/calchat/pkg/executor"
)

// AuditEntry is one stored operation
type AuditEntry struct {
	ID        string
	RequestID string
	Operation string
	Arguments string
	Success   bool
	Error     string
	Duration  time.Duration
	CreatedAt time.Time
}

// AuditStore implements executor.Recorder on top of DB
type AuditStore struct {
	db  *DB
	now func() time.Time
}

var _ executor.Recorder = (*AuditStore)(nil)

// NewAuditStore creates an audit store. The schema must already be migrated.
func NewAuditStore(db *DB) *AuditStore {
	return &AuditStore{
		db:  db,
		now: func() time.Time { return time.Now().UTC().Truncate(time.Second) },
	}
}

// Record stores one executed operation.
func (s *AuditStore) Record(ctx context.Context, rec executor.Record) error {
	args := string(rec.Arguments)
	if args == "" {
		args = "{}"
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO operation_audit (id, request_id, operation, arguments, success, error, duration_ms, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		uuid.New().String(),
		rec.RequestID,
		rec.Operation,
		args,
		rec.Success,
		rec.Error,
		rec.Duration.Milliseconds(),
		s.now(),
	)
	if err != nil {
		return errors.Wrap(err, "failed to record operation")
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (s *AuditStore) Recent(ctx context.Context, limit int) ([]AuditEntry, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, request_id, operation, arguments, success, error, duration_ms, created_at
		FROM operation_audit
		ORDER BY created_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query audit log")
	}
	defer rows.Close()

	var entries []AuditEntry
	for rows.Next() {
		var (
			e          AuditEntry
			durationMS int64
		)
		if err := rows.Scan(&e.ID, &e.RequestID, &e.Operation, &e.Arguments, &e.Success, &e.Error, &durationMS, &e.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "failed to scan audit entry")
		}
		e.Duration = time.Duration(durationMS) * time.Millisecond
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Prune deletes entries older than retention and returns how many were removed.
func (s *AuditStore) Prune(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := s.now().Add(-retention).Truncate(time.Second)
	res, err := s.db.ExecContext(ctx, `DELETE FROM operation_audit WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, errors.Wrap(err, "failed to prune audit log")
	}
	return res.RowsAffected()
}
