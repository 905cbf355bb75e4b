package syncqueue

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS sync_queue (
    seq          INTEGER PRIMARY KEY AUTOINCREMENT,
    id           TEXT NOT NULL UNIQUE,
    operation    TEXT NOT NULL,
    target_store TEXT NOT NULL,
    record_key   TEXT NOT NULL,
    payload      TEXT NOT NULL,
    created_at   TIMESTAMP NOT NULL,
    attempts     INTEGER NOT NULL DEFAULT 0,
    last_attempt TIMESTAMP,
    last_error   TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_sync_queue_record_key ON sync_queue (record_key);`

// SQLiteStore is a durable Store in the local SQLite database. FIFO order is
// the autoincrement sequence, so it survives restarts.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates the sync_queue table in db if needed.
func NewSQLiteStore(ctx context.Context, db *sql.DB) (*SQLiteStore, error) {
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		return nil, fmt.Errorf("failed to create sync queue schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Append(ctx context.Context, item Item) error {
	payload, err := EncodePayload(item.Payload)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sync_queue (id, operation, target_store, record_key, payload, created_at, attempts, last_attempt, last_error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ID, string(item.Operation), string(item.TargetStore()), item.Key(), payload,
		item.CreatedAt.UTC(), item.Attempts, nullTime(item.LastAttempt), item.LastError,
	)
	if err != nil {
		return fmt.Errorf("appending sync item %s: %w", item.ID, err)
	}
	return nil
}

func (s *SQLiteStore) List(ctx context.Context) ([]Item, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, operation, target_store, payload, created_at, attempts, last_attempt, last_error
		FROM sync_queue ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("listing sync items: %w", err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var (
			item        Item
			op, target  string
			payload     string
			lastAttempt sql.NullTime
		)
		if err := rows.Scan(&item.ID, &op, &target, &payload, &item.CreatedAt, &item.Attempts, &lastAttempt, &item.LastError); err != nil {
			return nil, fmt.Errorf("scanning sync item: %w", err)
		}

		item.Operation = Operation(op)
		item.CreatedAt = item.CreatedAt.UTC()
		if lastAttempt.Valid {
			item.LastAttempt = lastAttempt.Time.UTC()
		}
		item.Payload, err = DecodePayload(Target(target), payload)
		if err != nil {
			return nil, fmt.Errorf("sync item %s: %w", item.ID, err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing sync items: %w", err)
	}
	return items, nil
}

func (s *SQLiteStore) Update(ctx context.Context, item Item) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE sync_queue SET attempts = ?, last_attempt = ?, last_error = ? WHERE id = ?`,
		item.Attempts, nullTime(item.LastAttempt), item.LastError, item.ID,
	)
	if err != nil {
		return fmt.Errorf("updating sync item %s: %w", item.ID, err)
	}
	return nil
}

func (s *SQLiteStore) Remove(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sync_queue WHERE id = ?`, id); err != nil {
		return fmt.Errorf("removing sync item %s: %w", id, err)
	}
	return nil
}

func (s *SQLiteStore) Len(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sync_queue`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting sync items: %w", err)
	}
	return n, nil
}

func (s *SQLiteStore) HasKey(ctx context.Context, key string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM sync_queue WHERE record_key = ?)`, key,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking sync items for %s: %w", key, err)
	}
	return exists, nil
}

func nullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

var _ Store = (*SQLiteStore)(nil)
