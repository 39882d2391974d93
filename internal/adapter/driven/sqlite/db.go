// Package sqlite stores the BPS credential and user settings in a local SQLite
// database.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

// pragmas applied to every connection.
var pragmas = []string{
	"journal_mode(WAL)",
	"busy_timeout(5000)",
	"synchronous(NORMAL)",
	"foreign_keys(ON)",
}

const readerConns = 4

// DB holds a single-connection writer pool and a small reader pool over the
// same WAL-mode database file. All writes go through Writer.
type DB struct {
	Writer *sql.DB
	Reader *sql.DB
	path   string
}

// NewDB opens the database at dbPath, creating its parent directory with
// owner-only permissions since the file holds the sealed API key.
func NewDB(ctx context.Context, dbPath string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o700); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	dsn := buildDSN(dbPath)

	writer, err := openPool(ctx, dsn, 1)
	if err != nil {
		return nil, fmt.Errorf("open writer: %w", err)
	}

	reader, err := openPool(ctx, dsn, readerConns)
	if err != nil {
		_ = writer.Close()
		return nil, fmt.Errorf("open reader: %w", err)
	}

	return &DB{Writer: writer, Reader: reader, path: dbPath}, nil
}

func buildDSN(path string) string {
	var b strings.Builder
	b.WriteString("file:")
	b.WriteString(path)
	for i, p := range pragmas {
		if i == 0 {
			b.WriteByte('?')
		} else {
			b.WriteByte('&')
		}
		b.WriteString("_pragma=")
		b.WriteString(p)
	}
	return b.String()
}

// openPool opens and pings a pool capped at maxConns connections.
func openPool(ctx context.Context, dsn string, maxConns int) (*sql.DB, error) {
	pool, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	pool.SetMaxOpenConns(maxConns)

	if err := pool.PingContext(ctx); err != nil {
		_ = pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return pool, nil
}

// Path returns the database file path.
func (db *DB) Path() string { return db.path }

// Close closes both pools and returns the first error.
func (db *DB) Close() error {
	rerr := db.Reader.Close()
	werr := db.Writer.Close()
	if rerr != nil {
		return fmt.Errorf("close reader: %w", rerr)
	}
	if werr != nil {
		return fmt.Errorf("close writer: %w", werr)
	}
	return nil
}
