package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/huandu/go-sqlbuilder"
	_ "modernc.org/sqlite"

	"github.com/glabrego/itmonitor-cli/internal/feedstate"
	"github.com/glabrego/itmonitor-cli/internal/itmonitor"
)

// Repository is the sqlite-backed feedstate.Store plus a snapshot of the last
// fetched entries, used to render something before the network answers.
type Repository struct {
	db   *sql.DB
	path string
}

var _ feedstate.Store = (*Repository)(nil)

// NewRepository opens the database with a single connection so state writes
// made while the entry cache is being replaced queue instead of failing with
// SQLITE_BUSY.
func NewRepository(path string) (*Repository, error) {
	db, err := sql.Open("sqlite", fmt.Sprintf("%s?_pragma=busy_timeout(5000)", path))
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1) // one writer at a time
	return &Repository{db: db, path: path}, nil
}

func (r *Repository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

func (r *Repository) Init(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping sqlite database: %w", err)
	}
	if err := migrateUp(r.path); err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}
	return nil
}

// CheckWritable fails when the database cannot take writes, e.g. a read-only
// file. Nothing is left behind.
func (r *Repository) CheckWritable(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	ib := sqlbuilder.SQLite.NewInsertBuilder()
	ib.ReplaceInto("kv").Cols("key", "value", "updated_at").Values("__writable", []byte("1"), now())
	query, args := ib.Build()
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("database is not writable: %w", err)
	}
	return nil
}

func (r *Repository) Get(ctx context.Context, key string) ([]byte, error) {
	sb := sqlbuilder.SQLite.NewSelectBuilder()
	sb.Select("value").From("kv").Where(sb.Equal("key", key))
	query, args := sb.Build()

	var value []byte
	err := r.db.QueryRowContext(ctx, query, args...).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, feedstate.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %q: %w", key, err)
	}
	return value, nil
}

func (r *Repository) Put(ctx context.Context, key string, value []byte) error {
	ib := sqlbuilder.SQLite.NewInsertBuilder()
	ib.ReplaceInto("kv").Cols("key", "value", "updated_at").Values(key, value, now())
	query, args := ib.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("put %q: %w", key, err)
	}
	return nil
}

// SaveEntries replaces the cached snapshot with entries, keeping their order.
func (r *Repository) SaveEntries(ctx context.Context, entries []itmonitor.Entry) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	del := sqlbuilder.SQLite.NewDeleteBuilder()
	query, args := del.DeleteFrom("entries").Build()
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("clear entries: %w", err)
	}

	if len(entries) > 0 {
		fetchedAt := now()
		ib := sqlbuilder.SQLite.NewInsertBuilder()
		ib.InsertInto("entries").Cols("position", "id", "payload", "fetched_at")
		for i, entry := range entries {
			payload, err := json.Marshal(entry)
			if err != nil {
				return fmt.Errorf("encode entry %s: %w", entry.ID, err)
			}
			ib.Values(i, entry.ID, string(payload), fetchedAt)
		}
		query, args = ib.Build()
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("save entries: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// ListEntries returns up to limit cached entries in fetch order. A limit
// below 1 returns the whole snapshot.
func (r *Repository) ListEntries(ctx context.Context, limit int) ([]itmonitor.Entry, error) {
	sb := sqlbuilder.SQLite.NewSelectBuilder()
	sb.Select("payload").From("entries").OrderBy("position").Asc()
	if limit > 0 {
		sb.Limit(limit)
	}
	query, args := sb.Build()

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	entries := make([]itmonitor.Entry, 0)
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		var entry itmonitor.Entry
		if err := json.Unmarshal([]byte(payload), &entry); err != nil {
			return nil, fmt.Errorf("decode cached entry: %w", err)
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return entries, nil
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}
