package session

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	// Import sqlite driver
	_ "modernc.org/sqlite"
)

// SQLiteStore persists the token in a local key/value table so that it
// survives process restarts.
type SQLiteStore struct {
	conn *sql.DB
}

// OpenSQLiteStore opens or creates the store at path.
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("create session directory: %w", err)
		}
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	conn.SetMaxOpenConns(1)

	if _, err := conn.Exec(`CREATE TABLE IF NOT EXISTS local_storage (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`); err != nil {
		conn.Close()
		return nil, err
	}
	return &SQLiteStore{conn: conn}, nil
}

func (s *SQLiteStore) Token() (string, error) {
	var token string
	err := s.conn.QueryRow("SELECT value FROM local_storage WHERE key = ?", TokenKey).Scan(&token)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return token, err
}

func (s *SQLiteStore) SetToken(token string) error {
	if token == "" {
		return s.Clear()
	}
	_, err := s.conn.Exec(
		`INSERT INTO local_storage (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		TokenKey, token,
	)
	return err
}

func (s *SQLiteStore) Clear() error {
	_, err := s.conn.Exec("DELETE FROM local_storage WHERE key = ?", TokenKey)
	return err
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.conn.Close()
}
