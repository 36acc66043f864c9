package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore keeps documents as rows of a single SQLite table.
type SQLiteStore struct {
	db   *sql.DB
	path string

	upsertStmt *sql.Stmt
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens (or creates) the database at dbPath, applies schema
// migrations, and prepares the write statement.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	// Ensure directory exists so first-run succeeds.
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000", dbPath)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if err := applyMigrations(db); err != nil {
		db.Close()
		return nil, err
	}

	s := &SQLiteStore{db: db, path: dbPath}
	if s.upsertStmt, err = db.Prepare(`INSERT INTO documents(name,body,updated_at) VALUES(?,?,?)
        ON CONFLICT(name) DO UPDATE SET body=excluded.body, updated_at=excluded.updated_at`); err != nil {
		db.Close()
		return nil, fmt.Errorf("prepare upsert: %w", err)
	}
	return s, nil
}

// Close releases the prepared statement and closes the DB.
func (s *SQLiteStore) Close() error {
	if s.upsertStmt != nil {
		s.upsertStmt.Close()
	}
	return s.db.Close()
}

func (s *SQLiteStore) Location(name string) string {
	return fmt.Sprintf("%s#%s", s.path, name)
}

// ---------------------------------------------------------------------------
// Schema migration
// ---------------------------------------------------------------------------

const schemaVersion = 1

func applyMigrations(db *sql.DB) error {
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		return fmt.Errorf("enable WAL: %w", err)
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS meta (key TEXT PRIMARY KEY, value TEXT);`); err != nil {
		return err
	}

	var current int
	_ = db.QueryRow(`SELECT value FROM meta WHERE key='schema_version';`).Scan(&current)
	if current >= schemaVersion {
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS documents (
            name TEXT PRIMARY KEY,
            body TEXT NOT NULL,
            updated_at DATETIME NOT NULL
        );`,
		`INSERT INTO meta(key,value) VALUES('schema_version',?)
            ON CONFLICT(key) DO UPDATE SET value=excluded.value;`,
	}

	for _, stmt := range stmts {
		args := []any{}
		if strings.Contains(stmt, "?") {
			args = append(args, schemaVersion)
		}
		if _, err := tx.Exec(stmt, args...); err != nil {
			return fmt.Errorf("apply migration: %w", err)
		}
	}

	return tx.Commit()
}

// ---------------------------------------------------------------------------
// Document access
// ---------------------------------------------------------------------------

func (s *SQLiteStore) Exists(name string) (bool, error) {
	var exists bool
	if err := s.db.QueryRow(`SELECT EXISTS(SELECT 1 FROM documents WHERE name=?)`, name).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (s *SQLiteStore) Read(name string) ([]byte, error) {
	var body string
	err := s.db.QueryRow(`SELECT body FROM documents WHERE name=?`, name).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", s.Location(name), ErrNotExist)
	}
	if err != nil {
		return nil, err
	}
	return []byte(body), nil
}

// Write replaces the whole document in one statement.
func (s *SQLiteStore) Write(name string, data []byte) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("empty document name")
	}
	if _, err := s.upsertStmt.Exec(name, string(data), time.Now().UTC()); err != nil {
		return fmt.Errorf("upsert %s: %w", name, err)
	}
	return nil
}
