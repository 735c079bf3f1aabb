package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Varun-1606/quick-cart/internal/port"
)

const mysqlSchema = `
CREATE TABLE IF NOT EXISTS app_state (
	state_key   VARCHAR(191) NOT NULL PRIMARY KEY,
	state_value MEDIUMBLOB   NOT NULL,
	expires_at  DATETIME(6)  NULL,
	updated_at  DATETIME(6)  NOT NULL
)`

type MySQLAdapter struct {
	db  *sql.DB
	now func() time.Time
}

func NewMySQLAdapter(db *sql.DB) *MySQLAdapter {
	return &MySQLAdapter{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// EnsureSchema creates the state table if it does not exist.
func (m *MySQLAdapter) EnsureSchema(ctx context.Context) error {
	if _, err := m.db.ExecContext(ctx, mysqlSchema); err != nil {
		return fmt.Errorf("create app_state: %w", err)
	}
	return nil
}

func (m *MySQLAdapter) Get(ctx context.Context, key string) ([]byte, error) {
	var (
		value     []byte
		expiresAt sql.NullTime
	)
	err := m.db.QueryRowContext(ctx, `
		SELECT state_value, expires_at FROM app_state WHERE state_key = ?`, key,
	).Scan(&value, &expiresAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, port.ErrStateNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query state: %w", err)
	}
	if expiresAt.Valid && !m.now().Before(expiresAt.Time) {
		return nil, port.ErrStateNotFound
	}
	return value, nil
}

func (m *MySQLAdapter) Set(ctx context.Context, key string, value []byte) error {
	_, err := m.db.ExecContext(ctx, `
		INSERT INTO app_state (state_key, state_value, expires_at, updated_at)
		VALUES (?, ?, NULL, ?)
		ON DUPLICATE KEY UPDATE state_value = VALUES(state_value), expires_at = NULL, updated_at = VALUES(updated_at)`,
		key, value, m.now(),
	)
	if err != nil {
		return fmt.Errorf("upsert state: %w", err)
	}
	return nil
}

func (m *MySQLAdapter) Delete(ctx context.Context, key string) error {
	if _, err := m.db.ExecContext(ctx, `DELETE FROM app_state WHERE state_key = ?`, key); err != nil {
		return fmt.Errorf("delete state: %w", err)
	}
	return nil
}

func (m *MySQLAdapter) SetIfAbsent(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	now := m.now()
	_, err = tx.ExecContext(ctx, `
		DELETE FROM app_state
		WHERE state_key = ? AND expires_at IS NOT NULL AND expires_at <= ?`,
		key, now,
	)
	if err != nil {
		return false, fmt.Errorf("purge expired state: %w", err)
	}

	var expiresAt sql.NullTime
	if ttl > 0 {
		expiresAt = sql.NullTime{Time: now.Add(ttl), Valid: true}
	}
	result, err := tx.ExecContext(ctx, `
		INSERT IGNORE INTO app_state (state_key, state_value, expires_at, updated_at)
		VALUES (?, ?, ?, ?)`,
		key, value, expiresAt, now,
	)
	if err != nil {
		return false, fmt.Errorf("insert state: %w", err)
	}

	rows, _ := result.RowsAffected()
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit: %w", err)
	}
	return rows == 1, nil
}
