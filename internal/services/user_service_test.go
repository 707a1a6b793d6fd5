package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/passvault-io/passvault/internal/crypto"
	"github.com/passvault-io/passvault/internal/database"
)

type fakeUserStore struct {
	byEmail map[string]*database.User
	byID    map[uuid.UUID]*database.User
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{
		byEmail: make(map[string]*database.User),
		byID:    make(map[uuid.UUID]*database.User),
	}
}

func (f *fakeUserStore) CreateUser(_ context.Context, name, email, passwordHash string) (*database.User, error) {
	if _, ok := f.byEmail[email]; ok {
		return nil, &pgconn.PgError{Code: "23505", ConstraintName: database.UsersEmailConstraint}
	}
	now := time.Now()
	u := &database.User{
		ID:           uuid.New(),
		Name:         name,
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	f.byEmail[email] = u
	f.byID[u.ID] = u
	return u, nil
}

func (f *fakeUserStore) GetUserByEmail(_ context.Context, email string) (*database.User, error) {
	u, ok := f.byEmail[email]
	if !ok {
		return nil, database.ErrNotFound
	}
	return u, nil
}

func (f *fakeUserStore) GetUserByID(_ context.Context, id uuid.UUID) (*database.User, error) {
	u, ok := f.byID[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	return u, nil
}

func (f *fakeUserStore) UpdateUserPassword(_ context.Context, id uuid.UUID, currentHash, newHash string) error {
	u, ok := f.byID[id]
	if !ok {
		return database.ErrNotFound
	}
	if u.PasswordHash != currentHash {
		return database.ErrStaleRecord
	}
	u.PasswordHash = newHash
	u.UpdatedAt = time.Now()
	return nil
}

func TestUserServiceRegister(t *testing.T) {
	ctx := context.Background()
	store := newFakeUserStore()
	svc := NewUserService(store)

	user, err := svc.Register(ctx, "Alice", "alice@example.com", "correct horse battery")
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if user.Email != "alice@example.com" {
		t.Errorf("Email = %q, want %q", user.Email, "alice@example.com")
	}
	if user.ID == uuid.Nil {
		t.Error("expected a non-zero user ID")
	}

	stored := store.byEmail["alice@example.com"]
	if stored.PasswordHash == "correct horse battery" {
		t.Error("password stored in plaintext")
	}
	if !crypto.VerifyPassword("correct horse battery", stored.PasswordHash) {
		t.Error("stored hash does not verify against the original password")
	}
}

func TestUserServiceRegisterDuplicateEmail(t *testing.T) {
	ctx := context.Background()
	store := newFakeUserStore()
	svc := NewUserService(store)

	if _, err := svc.Register(ctx, "Alice", "alice@example.com", "password-one"); err != nil {
		t.Fatalf("first Register() error = %v", err)
	}

	_, err := svc.Register(ctx, "Other Alice", "alice@example.com", "password-two")
	if !errors.Is(err, ErrEmailExists) {
		t.Errorf("Register() error = %v, want ErrEmailExists", err)
	}
}

func TestUserServiceAuthenticate(t *testing.T) {
	ctx := context.Background()
	store := newFakeUserStore()
	svc := NewUserService(store)

	registered, err := svc.Register(ctx, "Alice", "alice@example.com", "the right password")
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	user, err := svc.Authenticate(ctx, "alice@example.com", "the right password")
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	if user.ID != registered.ID {
		t.Errorf("ID = %v, want %v", user.ID, registered.ID)
	}
}

func TestUserServiceAuthenticateFailuresAreIndistinguishable(t *testing.T) {
	ctx := context.Background()
	store := newFakeUserStore()
	svc := NewUserService(store)

	if _, err := svc.Register(ctx, "Alice", "alice@example.com", "the right password"); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	_, unknownErr := svc.Authenticate(ctx, "nobody@example.com", "whatever")
	_, wrongPassErr := svc.Authenticate(ctx, "alice@example.com", "the wrong password")

	if !errors.Is(unknownErr, ErrInvalidCredentials) {
		t.Errorf("unknown email error = %v, want ErrInvalidCredentials", unknownErr)
	}
	if !errors.Is(wrongPassErr, ErrInvalidCredentials) {
		t.Errorf("wrong password error = %v, want ErrInvalidCredentials", wrongPassErr)
	}
	if unknownErr.Error() != wrongPassErr.Error() {
		t.Errorf("error messages differ: %q vs %q", unknownErr, wrongPassErr)
	}
}

func TestUserServiceChangePassword(t *testing.T) {
	ctx := context.Background()
	store := newFakeUserStore()
	svc := NewUserService(store)

	user, err := svc.Register(ctx, "Alice", "alice@example.com", "old password here")
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	if err := svc.ChangePassword(ctx, user.ID, "old password here", "new password here"); err != nil {
		t.Fatalf("ChangePassword() error = %v", err)
	}

	if _, err := svc.Authenticate(ctx, "alice@example.com", "old password here"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("old password still authenticates, error = %v", err)
	}
	if _, err := svc.Authenticate(ctx, "alice@example.com", "new password here"); err != nil {
		t.Errorf("new password does not authenticate, error = %v", err)
	}
}

// racingUserStore returns a snapshot from GetUserByID and then rotates the
// stored hash, simulating a second password change landing in between.
type racingUserStore struct {
	*fakeUserStore
	rotateTo string
}

func (r *racingUserStore) GetUserByID(ctx context.Context, id uuid.UUID) (*database.User, error) {
	u, err := r.fakeUserStore.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	snapshot := *u
	u.PasswordHash = r.rotateTo
	return &snapshot, nil
}

func TestUserServiceChangePasswordLosesRace(t *testing.T) {
	ctx := context.Background()
	base := newFakeUserStore()

	user, err := NewUserService(base).Register(ctx, "Alice", "alice@example.com", "original password")
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	winnerHash, err := crypto.HashPassword("winner password")
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}

	svc := NewUserService(&racingUserStore{fakeUserStore: base, rotateTo: winnerHash})
	err = svc.ChangePassword(ctx, user.ID, "original password", "loser password")
	if !errors.Is(err, ErrCurrentPasswordIncorrect) {
		t.Errorf("ChangePassword() error = %v, want ErrCurrentPasswordIncorrect", err)
	}

	// The concurrent winner's password is the one that sticks.
	if _, err := NewUserService(base).Authenticate(ctx, "alice@example.com", "winner password"); err != nil {
		t.Errorf("winner password does not authenticate, error = %v", err)
	}
}

func TestUserServiceChangePasswordWrongCurrent(t *testing.T) {
	ctx := context.Background()
	store := newFakeUserStore()
	svc := NewUserService(store)

	user, err := svc.Register(ctx, "Alice", "alice@example.com", "old password here")
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	err = svc.ChangePassword(ctx, user.ID, "not the current one", "new password here")
	if !errors.Is(err, ErrCurrentPasswordIncorrect) {
		t.Errorf("ChangePassword() error = %v, want ErrCurrentPasswordIncorrect", err)
	}

	if _, err := svc.Authenticate(ctx, "alice@example.com", "old password here"); err != nil {
		t.Errorf("original password broken by failed change, error = %v", err)
	}
}
