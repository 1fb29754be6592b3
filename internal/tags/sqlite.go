package tags

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

const blobSchemaSQL = `
CREATE TABLE IF NOT EXISTS blobs (
	name       TEXT PRIMARY KEY,
	data       BLOB NOT NULL,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// SQLiteBlob stores the index as one named row of a SQLite database.
type SQLiteBlob struct {
	conn *sql.DB
	name string
}

// OpenSQLite opens (or creates) the database at dsn and stores the index in
// the row called name.
func OpenSQLite(dsn, name string) (*SQLiteBlob, error) {
	conn, err := sql.Open("sqlite3", withPragmas(dsn))
	if err != nil {
		return nil, fmt.Errorf("tags: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("tags: ping: %w", err)
	}
	if _, err := conn.Exec(blobSchemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("tags: apply schema: %w", err)
	}
	return &SQLiteBlob{conn: conn, name: name}, nil
}

// withPragmas appends the journal and busy-timeout parameters to dsn, which
// may already carry a query string.
func withPragmas(dsn string) string {
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_journal_mode=WAL&_busy_timeout=5000"
}

func (b *SQLiteBlob) Load(ctx context.Context) ([]byte, error) {
	var data []byte
	err := b.conn.QueryRowContext(ctx, `SELECT data FROM blobs WHERE name = ?`, b.name).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("tags: load %s: %w", b.name, err)
	}
	return data, nil
}

func (b *SQLiteBlob) Save(ctx context.Context, data []byte) error {
	_, err := b.conn.ExecContext(ctx, `
		INSERT INTO blobs (name, data, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(name) DO UPDATE SET
			data       = excluded.data,
			updated_at = excluded.updated_at
	`, b.name, data)
	if err != nil {
		return fmt.Errorf("tags: save %s: %w", b.name, err)
	}
	return nil
}

// Close closes the underlying database connection.
func (b *SQLiteBlob) Close() error {
	return b.conn.Close()
}

var _ Blob = (*SQLiteBlob)(nil)
