package db

import (
	"context"
	"database/sql"
	stderrors "errors"
	"strings"
	"time"

	"github.com/hpungsan/pocket/internal/kv"
)

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store implements kv.Store on the kv table.
type Store struct {
	db *sql.DB
}

// NewStore wraps an initialized database.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// DB returns the underlying database handle.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Get implements kv.Reader.
func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return getValue(ctx, s.db, key)
}

// Set implements kv.Writer.
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	return setValue(ctx, s.db, key, value)
}

// Delete implements kv.Writer.
func (s *Store) Delete(ctx context.Context, keys ...string) error {
	return deleteKeys(ctx, s.db, keys)
}

// Update runs fn inside a database transaction. The transaction is rolled
// back if fn returns an error.
func (s *Store) Update(ctx context.Context, fn func(tx kv.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	if err := fn(&txView{tx: tx}); err != nil {
		return err
	}
	return tx.Commit()
}

// Keys implements kv.Store.
func (s *Store) Keys(ctx context.Context, prefix string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key FROM kv WHERE substr(key, 1, ?) = ? ORDER BY key`,
		len(prefix), prefix,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// txView exposes a *sql.Tx as a kv.Tx.
type txView struct {
	tx *sql.Tx
}

func (t *txView) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return getValue(ctx, t.tx, key)
}

func (t *txView) Set(ctx context.Context, key string, value []byte) error {
	return setValue(ctx, t.tx, key, value)
}

func (t *txView) Delete(ctx context.Context, keys ...string) error {
	return deleteKeys(ctx, t.tx, keys)
}

func getValue(ctx context.Context, q execer, key string) ([]byte, bool, error) {
	var value string
	err := q.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return []byte(value), true, nil
}

func setValue(ctx context.Context, q execer, key string, value []byte) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, string(value), time.Now().Unix())
	return err
}

func deleteKeys(ctx context.Context, q execer, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(keys)), ",")
	args := make([]any, len(keys))
	for i, k := range keys {
		args[i] = k
	}
	_, err := q.ExecContext(ctx, `DELETE FROM kv WHERE key IN (`+placeholders+`)`, args...)
	return err
}
