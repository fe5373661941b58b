package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rl1809/gomarket-cart/internal/port"
)

// MySQLAdapter stores entries in the kv_store table. The upsert only replaces a
// row when the incoming version is newer; version is assigned last because MySQL
// evaluates ON DUPLICATE KEY assignments left to right.
type MySQLAdapter struct {
	db *sql.DB
}

var _ port.KeyValueRepository = (*MySQLAdapter)(nil)

func NewMySQLAdapter(db *sql.DB) *MySQLAdapter {
	return &MySQLAdapter{db: db}
}

func (m *MySQLAdapter) EnsureSchema(ctx context.Context) error {
	_, err := m.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS kv_store (
			k          VARCHAR(191) NOT NULL PRIMARY KEY,
			v          MEDIUMTEXT   NOT NULL,
			version    BIGINT       NOT NULL DEFAULT 0,
			updated_at TIMESTAMP    NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`)
	if err != nil {
		return fmt.Errorf("create kv_store: %w", err)
	}
	return nil
}

func (m *MySQLAdapter) Get(ctx context.Context, key string) (port.Entry, bool, error) {
	var entry port.Entry
	err := m.db.QueryRowContext(ctx, `
		SELECT v, version FROM kv_store WHERE k = ?`, key,
	).Scan(&entry.Value, &entry.Version)

	if errors.Is(err, sql.ErrNoRows) {
		return port.Entry{}, false, nil
	}
	if err != nil {
		return port.Entry{}, false, fmt.Errorf("query kv_store: %w", err)
	}

	return entry, true, nil
}

func (m *MySQLAdapter) Set(ctx context.Context, key string, entry port.Entry) (bool, error) {
	result, err := m.db.ExecContext(ctx, `
		INSERT INTO kv_store (k, v, version, updated_at)
		VALUES (?, ?, ?, NOW())
		ON DUPLICATE KEY UPDATE
			v = IF(VALUES(version) > version, VALUES(v), v),
			updated_at = IF(VALUES(version) > version, NOW(), updated_at),
			version = GREATEST(version, VALUES(version))`,
		key, entry.Value, entry.Version,
	)
	if err != nil {
		return false, fmt.Errorf("upsert kv_store: %w", err)
	}

	rows, _ := result.RowsAffected()
	return rows > 0, nil
}

func (m *MySQLAdapter) Delete(ctx context.Context, key string) error {
	if _, err := m.db.ExecContext(ctx, `DELETE FROM kv_store WHERE k = ?`, key); err != nil {
		return fmt.Errorf("delete kv_store: %w", err)
	}
	return nil
}
