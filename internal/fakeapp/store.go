package fakeapp

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/kuitang/notes-e2e/internal/errs"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    email TEXT NOT NULL UNIQUE,
    password_hash TEXT NOT NULL,
    phone TEXT NOT NULL DEFAULT '',
    company TEXT NOT NULL DEFAULT '',
    created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS sessions (
    jti TEXT PRIMARY KEY,
    user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    expires_at INTEGER NOT NULL,
    created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_sessions_user_id ON sessions(user_id);

CREATE TABLE IF NOT EXISTS notes (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    title TEXT NOT NULL,
    description TEXT NOT NULL,
    category TEXT NOT NULL,
    completed INTEGER NOT NULL DEFAULT 0,
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_notes_user_id ON notes(user_id, created_at);
`

// User is a stored account.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Phone        string
	Company      string
}

// Note is a stored note.
type Note struct {
	ID          string
	UserID      string
	Title       string
	Description string
	Category    string
	Completed   bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Store is the SQLite persistence behind the fake server.
type Store struct {
	db    *sql.DB
	clock Clock
}

// OpenStore opens a private in-memory database and applies the schema.
func OpenStore(clock Clock) (*Store, error) {
	// A named shared-cache memory database lives as long as one connection
	// is open, so the pool is pinned to a single connection.
	dsn := fmt.Sprintf("file:fakeapp-%s?mode=memory&cache=shared&_pragma=foreign_keys(1)", uuid.NewString())
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db, clock: clock}, nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// newObjectID returns 24 lowercase hex characters, the id format the real
// application uses for users and notes.
func newObjectID() string {
	var b [12]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic(fmt.Sprintf("crypto/rand: %v", err))
	}
	return hex.EncodeToString(b[:])
}

// CreateUser inserts u with a fresh id. A duplicate email is a Conflict.
func (s *Store) CreateUser(ctx context.Context, u User) (User, error) {
	u.ID = newObjectID()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, name, email, password_hash, phone, company, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Name, u.Email, u.PasswordHash, u.Phone, u.Company, s.clock.Now().Unix())
	if err != nil {
		var exists bool
		if qerr := s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE email = ?)`, u.Email).Scan(&exists); qerr == nil && exists {
			return User{}, errs.New(errs.Conflict, "An account already exists with the same email address")
		}
		return User{}, fmt.Errorf("insert user: %w", err)
	}
	return u, nil
}

func (s *Store) scanUser(row *sql.Row) (User, error) {
	var u User
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Phone, &u.Company); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, errs.New(errs.NotFound, "user not found")
		}
		return User{}, fmt.Errorf("scan user: %w", err)
	}
	return u, nil
}

// UserByEmail looks a user up by email.
func (s *Store) UserByEmail(ctx context.Context, email string) (User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx,
		`SELECT id, name, email, password_hash, phone, company FROM users WHERE email = ?`, email))
}

// UserByID looks a user up by id.
func (s *Store) UserByID(ctx context.Context, id string) (User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx,
		`SELECT id, name, email, password_hash, phone, company FROM users WHERE id = ?`, id))
}

// UpdateProfile overwrites the editable profile fields.
func (s *Store) UpdateProfile(ctx context.Context, id, name, phone, company string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE users SET name = ?, phone = ?, company = ? WHERE id = ?`, name, phone, company, id)
	if err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	return nil
}

// UpdatePassword replaces the stored hash.
func (s *Store) UpdatePassword(ctx context.Context, id, hash string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE users SET password_hash = ? WHERE id = ?`, hash, id)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

// DeleteUser removes the user together with its sessions and notes.
func (s *Store) DeleteUser(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()
	for _, q := range []string{
		`DELETE FROM notes WHERE user_id = ?`,
		`DELETE FROM sessions WHERE user_id = ?`,
		`DELETE FROM users WHERE id = ?`,
	} {
		if _, err := tx.ExecContext(ctx, q, id); err != nil {
			return fmt.Errorf("delete user: %w", err)
		}
	}
	return tx.Commit()
}

// CreateSession records an issued token id.
func (s *Store) CreateSession(ctx context.Context, jti, userID string, expiresAt time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (jti, user_id, expires_at, created_at) VALUES (?, ?, ?, ?)`,
		jti, userID, expiresAt.Unix(), s.clock.Now().Unix())
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// SessionUser returns the owner of an unexpired session.
func (s *Store) SessionUser(ctx context.Context, jti string) (string, error) {
	var userID string
	err := s.db.QueryRowContext(ctx,
		`SELECT user_id FROM sessions WHERE jti = ? AND expires_at > ?`, jti, s.clock.Now().Unix()).Scan(&userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", errs.New(errs.Unauthenticated, "session not found")
		}
		return "", fmt.Errorf("lookup session: %w", err)
	}
	return userID, nil
}

// DeleteSession revokes one token id.
func (s *Store) DeleteSession(ctx context.Context, jti string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE jti = ?`, jti); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// CreateNote inserts n with a fresh id and timestamps.
func (s *Store) CreateNote(ctx context.Context, n Note) (Note, error) {
	now := s.clock.Now().UTC()
	n.ID = newObjectID()
	n.CreatedAt, n.UpdatedAt = now, now
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO notes (id, user_id, title, description, category, completed, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		n.ID, n.UserID, n.Title, n.Description, n.Category, n.Completed, now.UnixMilli(), now.UnixMilli())
	if err != nil {
		return Note{}, fmt.Errorf("insert note: %w", err)
	}
	return n, nil
}

const noteColumns = `id, user_id, title, description, category, completed, created_at, updated_at`

func scanNote(scan func(dest ...any) error) (Note, error) {
	var n Note
	var created, updated int64
	if err := scan(&n.ID, &n.UserID, &n.Title, &n.Description, &n.Category, &n.Completed, &created, &updated); err != nil {
		return Note{}, err
	}
	n.CreatedAt = time.UnixMilli(created).UTC()
	n.UpdatedAt = time.UnixMilli(updated).UTC()
	return n, nil
}

// ListNotes returns the user's notes, newest first.
func (s *Store) ListNotes(ctx context.Context, userID string) ([]Note, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+noteColumns+` FROM notes WHERE user_id = ? ORDER BY created_at DESC, id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	defer rows.Close()

	notes := []Note{}
	for rows.Next() {
		n, err := scanNote(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan note: %w", err)
		}
		notes = append(notes, n)
	}
	return notes, rows.Err()
}

// GetNote returns one of the user's notes.
func (s *Store) GetNote(ctx context.Context, userID, id string) (Note, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+noteColumns+` FROM notes WHERE id = ? AND user_id = ?`, id, userID)
	n, err := scanNote(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Note{}, errs.New(errs.NotFound, "No note was found with the provided ID, Maybe it was deleted")
		}
		return Note{}, fmt.Errorf("get note: %w", err)
	}
	return n, nil
}

// UpdateNote overwrites title, description, category and completed.
func (s *Store) UpdateNote(ctx context.Context, n Note) (Note, error) {
	now := s.clock.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`UPDATE notes SET title = ?, description = ?, category = ?, completed = ?, updated_at = ? WHERE id = ? AND user_id = ?`,
		n.Title, n.Description, n.Category, n.Completed, now.UnixMilli(), n.ID, n.UserID)
	if err != nil {
		return Note{}, fmt.Errorf("update note: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return Note{}, errs.New(errs.NotFound, "No note was found with the provided ID, Maybe it was deleted")
	}
	return s.GetNote(ctx, n.UserID, n.ID)
}

// DeleteNote removes one of the user's notes.
func (s *Store) DeleteNote(ctx context.Context, userID, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM notes WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete note: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return errs.New(errs.NotFound, "No note was found with the provided ID, Maybe it was deleted")
	}
	return nil
}
