// Package gameplay persists a per-user cache of remote gameplay statistics in SQLite
// and replaces it atomically whenever a fresh copy is synced from the stats service.
package gameplay

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	_ "modernc.org/sqlite"
)

// DatabaseFile is the file name of the per-user gameplay database.
const DatabaseFile = "gameplay.db"

// DB represents a gameplay database connection
type DB struct {
	db     *sql.DB
	owned  bool
	logger *slog.Logger

	// syncMu serializes full replaces issued through this handle.
	syncMu sync.Mutex
}

// UserDatabasePath returns <root>/<clientID>/<userID>/gameplay.db.
func UserDatabasePath(root, clientID, userID string) (string, error) {
	for _, seg := range []struct{ name, value string }{{"client id", clientID}, {"user id", userID}} {
		if seg.value == "" {
			return "", fmt.Errorf("%s is required", seg.name)
		}
		if seg.value == "." || seg.value == ".." || strings.ContainsAny(seg.value, `/\`) {
			return "", fmt.Errorf("invalid %s %q", seg.name, seg.value)
		}
	}
	return filepath.Join(root, clientID, userID, DatabaseFile), nil
}

// OpenUser opens the gameplay database of one user of one client below root,
// creating the directories and file on first use.
func OpenUser(ctx context.Context, root, clientID, userID string) (*DB, error) {
	path, err := UserDatabasePath(root, clientID, userID)
	if err != nil {
		return nil, err
	}
	return Open(ctx, path)
}

// dataSourceName builds a SQLite URI for path. Each segment is percent-encoded
// so '?', '#' and '%' in directory names stay part of the file name.
func dataSourceName(path string) string {
	segments := strings.Split(filepath.ToSlash(path), "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	// Writers take the lock at BEGIN so two syncs on the same file never interleave.
	return "file:" + strings.Join(segments, "/") +
		"?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)&_txlock=immediate"
}

// Open opens the database at the given path and ensures the schema exists.
func Open(ctx context.Context, path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dataSourceName(path))
	if err != nil {
		return nil, storageErr("open database", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, storageErr("connect database", err)
	}

	slog.Debug("opened gameplay database", "path", path)

	d, err := New(ctx, db)
	if err != nil {
		db.Close()
		return nil, err
	}
	d.owned = true
	return d, nil
}

// New wraps a database handle owned by the caller and ensures the schema exists.
// Close does not close a handle adopted this way.
func New(ctx context.Context, db *sql.DB) (*DB, error) {
	if err := Setup(ctx, db); err != nil {
		return nil, err
	}
	return &DB{db: db, logger: slog.Default()}, nil
}

// SetLogger replaces the logger used for sync and load diagnostics.
func (d *DB) SetLogger(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	d.logger = logger
}

// SQL returns the underlying handle.
func (d *DB) SQL() *sql.DB {
	return d.db
}

// Close closes the database connection if Open created it.
func (d *DB) Close() error {
	if !d.owned {
		return nil
	}
	return d.db.Close()
}
