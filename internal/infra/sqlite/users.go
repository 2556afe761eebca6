package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/homeledger/homeledger/internal/domain"
)

// ─── User Operations ────────────────────────────────────────────────────────

// CreateUser inserts a user with an already-hashed password.
// Returns domain.ErrUserExists when the username is taken.
func (db *DB) CreateUser(ctx context.Context, username, passwordHash string) (*domain.User, error) {
	res, err := db.db.ExecContext(ctx,
		`INSERT INTO users (username, password_hash) VALUES (?, ?)`,
		username, passwordHash,
	)
	if err != nil {
		if errors.Is(wrapErr(err), domain.ErrConstraint) {
			return nil, fmt.Errorf("%w: %s", domain.ErrUserExists, username)
		}
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return db.GetUser(ctx, id)
}

// GetUser retrieves a user by ID.
func (db *DB) GetUser(ctx context.Context, id int64) (*domain.User, error) {
	return scanUser(db.db.QueryRowContext(ctx,
		`SELECT id, username, password_hash, created_at FROM users WHERE id = ?`, id))
}

// GetUserByUsername retrieves a user by username.
func (db *DB) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	return scanUser(db.db.QueryRowContext(ctx,
		`SELECT id, username, password_hash, created_at FROM users WHERE username = ?`, username))
}

func scanUser(row *sql.Row) (*domain.User, error) {
	var u domain.User
	var created string
	if err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &created); err != nil {
		return nil, wrapErr(err)
	}
	u.CreatedAt, _ = time.Parse("2006-01-02 15:04:05", created)
	return &u, nil
}

// ─── Session Operations ─────────────────────────────────────────────────────

// CreateSession stores a session token for a user.
func (db *DB) CreateSession(ctx context.Context, token string, userID int64, expiresAt time.Time) error {
	_, err := db.db.ExecContext(ctx,
		`INSERT INTO sessions (token, user_id, expires_at) VALUES (?, ?, ?)`,
		token, userID, expiresAt.UTC().Format(time.RFC3339),
	)
	return wrapErr(err)
}

// UserBySession resolves a session token to its user.
// Returns domain.ErrSessionExpired for unknown or expired tokens.
func (db *DB) UserBySession(ctx context.Context, token string) (*domain.User, error) {
	var userID int64
	var expiresStr string
	err := db.db.QueryRowContext(ctx,
		`SELECT user_id, expires_at FROM sessions WHERE token = ?`, token,
	).Scan(&userID, &expiresStr)
	if err != nil {
		return nil, domain.ErrSessionExpired
	}
	expires, err := time.Parse(time.RFC3339, expiresStr)
	if err != nil || time.Now().After(expires) {
		return nil, domain.ErrSessionExpired
	}
	return db.GetUser(ctx, userID)
}

// DeleteSession removes a session (logout).
func (db *DB) DeleteSession(ctx context.Context, token string) error {
	_, err := db.db.ExecContext(ctx, `DELETE FROM sessions WHERE token = ?`, token)
	return wrapErr(err)
}

// CleanExpiredSessions removes all expired sessions.
func (db *DB) CleanExpiredSessions(ctx context.Context) error {
	_, err := db.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE expires_at <= ?`, time.Now().UTC().Format(time.RFC3339))
	return wrapErr(err)
}
