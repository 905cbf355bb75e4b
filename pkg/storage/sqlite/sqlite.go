// Package sqlite provides the local durable tier backed by SQLite.
//
// The same database also hosts the sync queue table so that a pending remote
// write and the local state it mirrors share one durable file.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/papercomputeco/strata/pkg/memory"
	"github.com/papercomputeco/strata/pkg/storage"
)

//go:embed schema.sql
var schema string

// Driver implements storage.Tier using SQLite.
type Driver struct {
	db *sql.DB
}

// NewDriver opens (creating if needed) the SQLite database at dbPath.
// The dbPath can be a file path or ":memory:" for an in-memory database.
func NewDriver(dbPath string) (*Driver, error) {
	// Open the database using the github.com/mattn/go-sqlite3 driver (registered as "sqlite3")
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One shared connection serializes writers and keeps ":memory:" a single
	// database.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &Driver{db: db}, nil
}

// DB returns the underlying database connection, shared with the durable sync
// queue.
func (d *Driver) DB() *sql.DB {
	return d.db
}

func (d *Driver) Name() string { return "sqlite" }

func (d *Driver) Reliability() storage.Reliability { return storage.DurableLocal }

// Get retrieves a conversation by id.
func (d *Driver) Get(ctx context.Context, conversationID string) (*memory.Conversation, bool, error) {
	var r storage.Row
	err := d.db.QueryRowContext(ctx, `
		SELECT conversation_id, user_id, active_memory, compressed_memory, critical_facts,
		       user_context, phase_context, total_messages, created_at, last_active_at, updated_at
		FROM conversations WHERE conversation_id = ?`, conversationID,
	).Scan(
		&r.ConversationID, &r.UserID, &r.ActiveMemory, &r.CompressedMemory, &r.CriticalFacts,
		&r.UserContext, &r.PhaseContext, &r.TotalMessages, &r.CreatedAt, &r.LastActiveAt, &r.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, d.fail("get", err)
	}

	conv, err := r.Decode()
	if err != nil {
		return nil, false, d.fail("get", err)
	}
	return conv, true, nil
}

// Put upserts a conversation. The local tier has a single writer, so the
// latest Put always wins.
func (d *Driver) Put(ctx context.Context, conv *memory.Conversation) error {
	r, err := storage.EncodeRow(conv)
	if err != nil {
		return storage.NewError(d.Name(), "put", storage.ClassRejected, err)
	}

	_, err = d.db.ExecContext(ctx, `
		INSERT INTO conversations (
			conversation_id, user_id, active_memory, compressed_memory, critical_facts,
			user_context, phase_context, total_messages, created_at, last_active_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (conversation_id) DO UPDATE SET
			user_id = excluded.user_id,
			active_memory = excluded.active_memory,
			compressed_memory = excluded.compressed_memory,
			critical_facts = excluded.critical_facts,
			user_context = excluded.user_context,
			phase_context = excluded.phase_context,
			total_messages = excluded.total_messages,
			last_active_at = excluded.last_active_at,
			updated_at = excluded.updated_at`,
		r.ConversationID, r.UserID, r.ActiveMemory, r.CompressedMemory, r.CriticalFacts,
		r.UserContext, r.PhaseContext, r.TotalMessages, r.CreatedAt, r.LastActiveAt, r.UpdatedAt,
	)
	return d.fail("put", err)
}

// Delete removes a conversation.
func (d *Driver) Delete(ctx context.Context, conversationID string) error {
	_, err := d.db.ExecContext(ctx, `DELETE FROM conversations WHERE conversation_id = ?`, conversationID)
	return d.fail("delete", err)
}

// Count returns the number of stored conversations.
func (d *Driver) Count(ctx context.Context) (int, error) {
	var n int
	if err := d.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM conversations`).Scan(&n); err != nil {
		return 0, d.fail("count", err)
	}
	return n, nil
}

// Close closes the database.
func (d *Driver) Close() error {
	return d.db.Close()
}

func (d *Driver) fail(op string, err error) error {
	return storage.NewError(d.Name(), op, storage.ClassLocal, err)
}

var _ storage.Tier = (*Driver)(nil)
