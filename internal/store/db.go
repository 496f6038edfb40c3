// Package store implements the relational catalog: a SQLite-backed
// repository for collections, media sources, tracks and playlists, with
// optimistic-concurrency writes and replace-by-path upserts.
package store

import (
	"database/sql"
	"embed"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// DB wraps the SQLite connection backing the catalog.
type DB struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens (creating if absent) the SQLite database at dataDir/meridian.db
// and runs any pending migrations.
func Open(dataDir string, logger *slog.Logger) (*DB, error) {
	dbPath := filepath.Join(dataDir, "meridian.db")

	sqlDB, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=ON")
	if err != nil {
		return nil, fmt.Errorf("store: open database: %w", err)
	}

	if _, err := sqlDB.Exec("PRAGMA journal_mode=WAL"); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("store: enable WAL mode: %w", err)
	}

	store := &DB{db: sqlDB, logger: logger}
	if err := store.migrate(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("store: run migrations: %w", err)
	}
	return store, nil
}

// Close closes the underlying connection.
func (d *DB) Close() error { return d.db.Close() }

func (d *DB) migrate() error {
	if _, err := d.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`); err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	var currentVersion int
	row := d.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("get current version: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		var version int
		if _, err := fmt.Sscanf(entry.Name(), "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}
		content, err := migrationsFS.ReadFile("migrations/" + entry.Name())
		if err != nil {
			return fmt.Errorf("read migration %s: %w", entry.Name(), err)
		}
		d.logger.Info("applying migration", "version", version, "file", entry.Name())
		if _, err := d.db.Exec(string(content)); err != nil {
			return fmt.Errorf("apply migration %s: %w", entry.Name(), err)
		}
		if _, err := d.db.Exec("INSERT INTO schema_migrations(version) VALUES(?)", version); err != nil {
			return fmt.Errorf("record migration %s: %w", entry.Name(), err)
		}
	}
	return nil
}

// Exec runs a statement without returning rows.
func (d *DB) Exec(query string, args ...any) (sql.Result, error) { return d.db.Exec(query, args...) }

// Query runs a statement returning rows.
func (d *DB) Query(query string, args ...any) (*sql.Rows, error) { return d.db.Query(query, args...) }

// QueryRow runs a statement returning a single row.
func (d *DB) QueryRow(query string, args ...any) *sql.Row { return d.db.QueryRow(query, args...) }

// Begin starts a transaction.
func (d *DB) Begin() (*sql.Tx, error) { return d.db.Begin() }

// Ping checks connectivity.
func (d *DB) Ping() error { return d.db.Ping() }

// Backup writes a consistent snapshot of the database to destPath using
// SQLite's VACUUM INTO, which is safe to run against a live, open database.
func (d *DB) Backup(destPath string) error {
	_, err := d.db.Exec("VACUUM INTO ?", destPath)
	if err != nil {
		return fmt.Errorf("store: backup: %w", err)
	}
	return nil
}
