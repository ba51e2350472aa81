package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrUserNotFound is returned when no user has the requested name.
var ErrUserNotFound = errors.New("user not found")

// User owns a stream of events.
type User struct {
	ID          uuid.UUID `json:"id"`
	Username    string    `json:"username"`
	DisplayName string    `json:"display_name,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// EnsureUser returns the user named username, creating it if needed.
func (db *DB) EnsureUser(ctx context.Context, username string) (*User, error) {
	if username == "" {
		return nil, fmt.Errorf("username cannot be empty")
	}

	_, err := db.conn.ExecContext(ctx, `
	INSERT INTO users (id, username, created_at)
	VALUES (?, ?, ?)
	ON CONFLICT(username) DO NOTHING
	`, uuid.NewString(), username, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return nil, fmt.Errorf("failed to create user %s: %w", username, err)
	}

	return db.GetUserByName(ctx, username)
}

// GetUserByName looks up a user. It returns ErrUserNotFound when absent.
func (db *DB) GetUserByName(ctx context.Context, username string) (*User, error) {
	var (
		u         User
		id        string
		display   sql.NullString
		createdAt string
	)
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, username, display_name, created_at FROM users WHERE username = ?`,
		username,
	).Scan(&id, &u.Username, &display, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrUserNotFound, username)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user %s: %w", username, err)
	}

	if u.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("invalid user id %q: %w", id, err)
	}
	u.DisplayName = display.String
	u.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &u, nil
}

// CountUsers returns the number of users.
func (db *DB) CountUsers(ctx context.Context) (int, error) {
	var count int
	if err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return count, nil
}
