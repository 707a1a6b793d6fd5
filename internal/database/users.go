package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// User is a persisted account record. PasswordHash never leaves this
// package except to the verify path in the user service.
type User struct {
	ID           uuid.UUID
	Name         string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// UsersEmailConstraint is the unique constraint backing email uniqueness.
const UsersEmailConstraint = "users_email_key"

// CreateUser inserts a new user. A duplicate email surfaces as a unique
// violation on UsersEmailConstraint; callers map it to their own error.
func (db *DB) CreateUser(ctx context.Context, name, email, passwordHash string) (*User, error) {
	row := db.Pool.QueryRow(ctx, `
		INSERT INTO users (name, email, password_hash)
		VALUES ($1, $2, $3)
		RETURNING id, name, email, password_hash, created_at, updated_at`,
		name, email, passwordHash,
	)
	return scanUser(row)
}

// GetUserByEmail looks up a user by exact email match.
func (db *DB) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	row := db.Pool.QueryRow(ctx, `
		SELECT id, name, email, password_hash, created_at, updated_at
		FROM users WHERE email = $1`,
		email,
	)
	return scanUser(row)
}

// GetUserByID looks up a user by id.
func (db *DB) GetUserByID(ctx context.Context, id uuid.UUID) (*User, error) {
	row := db.Pool.QueryRow(ctx, `
		SELECT id, name, email, password_hash, created_at, updated_at
		FROM users WHERE id = $1`,
		id,
	)
	return scanUser(row)
}

// UpdateUserPassword replaces the stored password hash, but only if it
// still matches currentHash. The row is locked for the check, so of two
// racing changes exactly one wins and the other gets ErrStaleRecord.
func (db *DB) UpdateUserPassword(ctx context.Context, id uuid.UUID, currentHash, newHash string) error {
	return db.Transaction(ctx, func(tx pgx.Tx) error {
		var stored string
		err := tx.QueryRow(ctx, `
			SELECT password_hash FROM users WHERE id = $1 FOR UPDATE`,
			id,
		).Scan(&stored)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to read password hash: %w", err)
		}
		if stored != currentHash {
			return ErrStaleRecord
		}

		if _, err := tx.Exec(ctx, `
			UPDATE users SET password_hash = $2, updated_at = now()
			WHERE id = $1`,
			id, newHash,
		); err != nil {
			return fmt.Errorf("failed to update password: %w", err)
		}
		return nil
	})
}

func scanUser(row pgx.Row) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}
	return &u, nil
}
