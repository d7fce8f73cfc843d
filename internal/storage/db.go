package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"zakat-tracker/internal/models"
	"zakat-tracker/internal/zakat"

	// Import sqlite driver
	_ "modernc.org/sqlite"
)

var (
	// ErrNotFound is returned when a user or entry does not exist for the caller.
	ErrNotFound = errors.New("not found")
	// ErrDuplicateEmail is returned when registering an email twice.
	ErrDuplicateEmail = errors.New("email already registered")
	// ErrDuplicateUsername is returned when registering a username twice.
	ErrDuplicateUsername = errors.New("username already taken")
)

// DB wraps a sql.DB connection.
type DB struct {
	conn *sql.DB
	now  func() time.Time
}

// NewDB opens a database connection and runs migrations.
func NewDB(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// A single connection keeps ":memory:" databases shared across queries.
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, err
	}
	if _, err := conn.Exec("PRAGMA foreign_keys = ON"); err != nil {
		conn.Close()
		return nil, err
	}

	if err := runMigrations(conn); err != nil {
		conn.Close()
		return nil, err
	}

	return &DB{conn: conn, now: func() time.Time { return time.Now().UTC() }}, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// CreateUser creates a new user with the given registration fields and password hash.
func (db *DB) CreateUser(u models.NewUser, passwordHash string) (*models.User, error) {
	id := uuid.NewString()
	_, err := db.conn.Exec(
		"INSERT INTO users (id, email, username, full_name, password_hash, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		id, u.Email, u.Username, u.FullName, passwordHash, db.now(),
	)
	if err != nil {
		return nil, uniqueViolation(err)
	}
	return db.GetUserByID(id)
}

func uniqueViolation(err error) error {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "UNIQUE constraint failed: users.email"):
		return ErrDuplicateEmail
	case strings.Contains(msg, "UNIQUE constraint failed: users.username"):
		return ErrDuplicateUsername
	}
	return err
}

const userColumns = "id, email, username, full_name, password_hash, created_at"

func scanUser(row *sql.Row) (*models.User, error) {
	var u models.User
	if err := row.Scan(&u.ID, &u.Email, &u.Username, &u.FullName, &u.PasswordHash, &u.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// GetUserByID retrieves a user by ID.
func (db *DB) GetUserByID(id string) (*models.User, error) {
	return scanUser(db.conn.QueryRow("SELECT "+userColumns+" FROM users WHERE id = ?", id))
}

// GetUserByEmail retrieves a user by email.
func (db *DB) GetUserByEmail(email string) (*models.User, error) {
	return scanUser(db.conn.QueryRow("SELECT "+userColumns+" FROM users WHERE email = ?", email))
}

// GetUserByUsername retrieves a user by username.
func (db *DB) GetUserByUsername(username string) (*models.User, error) {
	return scanUser(db.conn.QueryRow("SELECT "+userColumns+" FROM users WHERE username = ?", username))
}

// UserCount returns the number of users in the database.
func (db *DB) UserCount() (int, error) {
	var count int
	err := db.conn.QueryRow("SELECT COUNT(*) FROM users").Scan(&count)
	return count, err
}

// CreateEntry inserts an entry for userID. The zakat amount is derived from the amount.
func (db *DB) CreateEntry(userID string, in models.EntryInput) (*models.Entry, error) {
	now := db.now()
	date := now
	if in.Date != nil && !in.Date.IsZero() {
		date = in.Date.UTC()
	}
	id := uuid.NewString()
	_, err := db.conn.Exec(
		`INSERT INTO zakat_entries (id, user_id, amount, category, description, date, zakat_amount, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, userID, in.Amount, string(in.Category), nullString(in.Description), date, zakat.Compute(in.Amount), now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert entry: %w", err)
	}
	return db.GetEntry(userID, id)
}

const entryColumns = "id, user_id, amount, category, description, date, zakat_amount"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (*models.Entry, error) {
	var (
		e    models.Entry
		cat  string
		desc sql.NullString
	)
	if err := row.Scan(&e.ID, &e.UserID, &e.Amount, &cat, &desc, &e.Date, &e.ZakatAmount); err != nil {
		return nil, err
	}
	e.Category = models.Category(cat)
	if desc.Valid {
		e.Description = &desc.String
	}
	return &e, nil
}

// GetEntry retrieves a single entry owned by userID.
func (db *DB) GetEntry(userID, id string) (*models.Entry, error) {
	row := db.conn.QueryRow(
		"SELECT "+entryColumns+" FROM zakat_entries WHERE id = ? AND user_id = ?",
		id, userID,
	)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return e, err
}

// ListEntries retrieves all entries owned by userID, newest first.
func (db *DB) ListEntries(userID string) ([]models.Entry, error) {
	rows, err := db.conn.Query(
		"SELECT "+entryColumns+" FROM zakat_entries WHERE user_id = ? ORDER BY date DESC, created_at DESC",
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []models.Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

// UpdateEntry applies a partial update to an entry owned by userID and returns the result.
func (db *DB) UpdateEntry(userID, id string, u models.EntryUpdate) (*models.Entry, error) {
	existing, err := db.GetEntry(userID, id)
	if err != nil {
		return nil, err
	}
	if u.IsEmpty() {
		return existing, nil
	}

	var (
		sets []string
		args []any
	)
	if u.Amount != nil {
		sets = append(sets, "amount = ?", "zakat_amount = ?")
		args = append(args, *u.Amount, zakat.Compute(*u.Amount))
	}
	if u.Category != nil {
		sets = append(sets, "category = ?")
		args = append(args, string(*u.Category))
	}
	if u.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, *u.Description)
	}
	if u.Date != nil {
		sets = append(sets, "date = ?")
		args = append(args, u.Date.UTC())
	}
	args = append(args, id, userID)

	query := "UPDATE zakat_entries SET " + strings.Join(sets, ", ") + " WHERE id = ? AND user_id = ?"
	if _, err := db.conn.Exec(query, args...); err != nil {
		return nil, fmt.Errorf("update entry: %w", err)
	}
	return db.GetEntry(userID, id)
}

// DeleteEntry removes an entry owned by userID.
func (db *DB) DeleteEntry(userID, id string) error {
	result, err := db.conn.Exec("DELETE FROM zakat_entries WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
