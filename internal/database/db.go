package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// DB wraps the SQLite handle shared by the module repositories.
type DB struct {
	conn *sql.DB
	path string
}

// New opens (creating if needed) the SQLite database at dbPath. WAL
// mode keeps API reads unblocked while a refresh is writing, and the
// busy timeout covers upsert bursts from concurrent refreshes.
func New(dbPath string) (*DB, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	dsn := dbPath + "?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := conn.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	conn.SetMaxOpenConns(25)
	conn.SetMaxIdleConns(5)

	return &DB{conn: conn, path: dbPath}, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Conn returns the underlying sql.DB for repository injection.
func (db *DB) Conn() *sql.DB {
	return db.conn
}

// Migrate applies the given schema initializers in order. Each module
// owns its own idempotent CREATE TABLE IF NOT EXISTS schema.
func (db *DB) Migrate(schemas ...func(*sql.DB) error) error {
	for _, init := range schemas {
		if err := init(db.conn); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}
