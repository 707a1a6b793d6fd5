// Package services contains the business logic for PassVault.
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/passvault-io/passvault/internal/crypto"
	"github.com/passvault-io/passvault/internal/database"
	"github.com/passvault-io/passvault/internal/logging"
	"github.com/passvault-io/passvault/internal/metrics"
)

// UserStore is the persistence surface UserService needs.
// *database.DB satisfies it.
type UserStore interface {
	CreateUser(ctx context.Context, name, email, passwordHash string) (*database.User, error)
	GetUserByEmail(ctx context.Context, email string) (*database.User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*database.User, error)
	UpdateUserPassword(ctx context.Context, id uuid.UUID, currentHash, newHash string) error
}

// User is an account as exposed outside the store layer.
// It deliberately carries no password hash.
type User struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// UserService handles registration, authentication, and password changes.
type UserService struct {
	store UserStore
}

// NewUserService creates a new UserService.
func NewUserService(store UserStore) *UserService {
	return &UserService{store: store}
}

func toUser(u *database.User) *User {
	return &User{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

// Register creates a new account. Email uniqueness is enforced by the
// database constraint; a violation maps to ErrEmailExists.
func (s *UserService) Register(ctx context.Context, name, email, password string) (*User, error) {
	log := logging.Logger(ctx)

	passwordHash, err := crypto.HashPassword(password)
	if err != nil {
		log.Error("password_hash_failed", "error", err)
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	dbUser, err := s.store.CreateUser(ctx, name, email, passwordHash)
	if err != nil {
		if database.IsUniqueViolation(err, database.UsersEmailConstraint) {
			return nil, ErrEmailExists
		}
		log.Error("user_creation_failed", "email", email, "error", err)
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	log.Debug("user_created", "user_id", dbUser.ID, "email", email)
	return toUser(dbUser), nil
}

// Authenticate validates email/password and returns the user if valid.
// Unknown email and wrong password both yield ErrInvalidCredentials.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*User, error) {
	log := logging.Logger(ctx)

	dbUser, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			log.Debug("auth_user_not_found", "email", email)
			metrics.LoginAttempts.WithLabelValues("failure").Inc()
			return nil, ErrInvalidCredentials
		}
		log.Error("auth_lookup_failed", "email", email, "error", err)
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	if !crypto.VerifyPassword(password, dbUser.PasswordHash) {
		log.Debug("auth_password_mismatch", "email", email)
		metrics.LoginAttempts.WithLabelValues("failure").Inc()
		return nil, ErrInvalidCredentials
	}

	log.Debug("auth_success", "user_id", dbUser.ID)
	metrics.LoginAttempts.WithLabelValues("success").Inc()
	return toUser(dbUser), nil
}

// ChangePassword re-verifies the current password before storing a new hash.
// Previously issued session tokens remain valid.
func (s *UserService) ChangePassword(ctx context.Context, userID uuid.UUID, currentPassword, newPassword string) error {
	log := logging.Logger(ctx)

	dbUser, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return ErrInvalidCredentials
		}
		return fmt.Errorf("failed to look up user: %w", err)
	}

	if !crypto.VerifyPassword(currentPassword, dbUser.PasswordHash) {
		log.Debug("password_change_wrong_current", "user_id", userID)
		return ErrCurrentPasswordIncorrect
	}

	newHash, err := crypto.HashPassword(newPassword)
	if err != nil {
		log.Error("password_hash_failed", "error", err)
		return fmt.Errorf("failed to hash password: %w", err)
	}

	// The store swaps the hash only if it still matches the one verified
	// above, so a concurrent change surfaces as a wrong current password.
	if err := s.store.UpdateUserPassword(ctx, userID, dbUser.PasswordHash, newHash); err != nil {
		if errors.Is(err, database.ErrStaleRecord) {
			log.Debug("password_change_lost_race", "user_id", userID)
			return ErrCurrentPasswordIncorrect
		}
		log.Error("password_update_failed", "user_id", userID, "error", err)
		return fmt.Errorf("failed to update password: %w", err)
	}

	log.Info("password_changed", "user_id", userID)
	return nil
}

// GetByID retrieves a user by their ID.
func (s *UserService) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	dbUser, err := s.store.GetUserByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return toUser(dbUser), nil
}
