// Package favorites persists the list of favorited ad-copy personas in a
// small SQLite key/value table.
package favorites

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/jmylchreest/adforge/internal/logger"
	// SQLite database driver (CGO-free)
	_ "modernc.org/sqlite"
)

// Key is the key the persona list is stored under.
const Key = "favoritedPersonas"

// ErrEmptyName is returned when toggling a blank persona name.
var ErrEmptyName = errors.New("persona name is empty")

const schemaSQL = `
CREATE TABLE IF NOT EXISTS kv (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL,
    updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// Store is the favorites store.
type Store struct {
	db *sql.DB
}

// DefaultPath returns the default database location under the user's
// config directory.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate config directory: %w", err)
	}
	return filepath.Join(dir, "adforge", "adforge.db"), nil
}

// Open opens (creating if needed) the store at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Single connection prevents lock conflicts
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to execute pragma %s: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Debug("favorites store opened", "path", path)
	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// List returns the favorited personas in the order they were added. A
// missing or unreadable value reads as an empty list.
func (s *Store) List() ([]string, error) {
	return list(s.db)
}

// Contains reports whether name is favorited.
func (s *Store) Contains(name string) (bool, error) {
	names, err := s.List()
	if err != nil {
		return false, err
	}
	return slices.Contains(names, name), nil
}

// Toggle adds name when absent and removes it when present, then rewrites
// the whole list. It returns whether name is favorited afterwards.
func (s *Store) Toggle(name string) (bool, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return false, ErrEmptyName
	}

	tx, err := s.db.Begin()
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	names, err := list(tx)
	if err != nil {
		return false, err
	}

	favorited := !slices.Contains(names, name)
	if favorited {
		names = append(names, name)
	} else {
		names = slices.DeleteFunc(names, func(n string) bool { return n == name })
	}

	if err := write(tx, names); err != nil {
		return false, err
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit: %w", err)
	}

	logger.Debug("favorite toggled", "persona", name, "favorited", favorited, "count", len(names))
	return favorited, nil
}

// Replace overwrites the list.
func (s *Store) Replace(names []string) error {
	return write(s.db, names)
}

// queryer is satisfied by *sql.DB and *sql.Tx.
type queryer interface {
	QueryRow(query string, args ...any) *sql.Row
	Exec(query string, args ...any) (sql.Result, error)
}

func list(q queryer) ([]string, error) {
	var raw string
	err := q.QueryRow(`SELECT value FROM kv WHERE key = ?`, Key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read favorites: %w", err)
	}

	var names []string
	if err := json.Unmarshal([]byte(raw), &names); err != nil {
		logger.Warn("favorites value is corrupt, treating as empty", "error", err)
		return []string{}, nil
	}
	if names == nil {
		names = []string{}
	}
	return names, nil
}

func write(q queryer, names []string) error {
	if names == nil {
		names = []string{}
	}
	data, err := json.Marshal(names)
	if err != nil {
		return fmt.Errorf("failed to encode favorites: %w", err)
	}

	_, err = q.Exec(`
		INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, Key, string(data), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to write favorites: %w", err)
	}
	return nil
}
