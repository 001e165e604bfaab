package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

var ErrStoreNotReady = errors.New("state store is not initialized")

type DB struct {
	conn *sql.DB
}

func Connect(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open state db %q: %w", dbPath, err)
	}
	// :memory: databases are per connection.
	conn.SetMaxOpenConns(1)

	if err := migrate(conn); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("migrate state db %q: %w", dbPath, err)
	}

	return &DB{conn: conn}, nil
}

func migrate(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS diff_cache (
		cache_key TEXT PRIMARY KEY,
		response TEXT NOT NULL,
		diff TEXT NOT NULL,
		created_unix INTEGER NOT NULL
	);
	CREATE TABLE IF NOT EXISTS action_loads (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		dir TEXT NOT NULL,
		records INTEGER NOT NULL,
		issues INTEGER NOT NULL,
		loaded_unix INTEGER NOT NULL
	);`
	_, err := db.Exec(schema)
	return err
}

func (db *DB) ready() error {
	if db == nil || db.conn == nil {
		return ErrStoreNotReady
	}
	return nil
}

func (db *DB) EnsureReady(ctx context.Context) error {
	if err := db.ready(); err != nil {
		return err
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return db.conn.PingContext(ctx)
}

func (db *DB) Close() error {
	if err := db.ready(); err != nil {
		return err
	}
	return db.conn.Close()
}
