package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/passvault-io/passvault/internal/crypto"
	"github.com/passvault-io/passvault/internal/database"
	"github.com/passvault-io/passvault/internal/middleware"
	"github.com/passvault-io/passvault/internal/services"
	"github.com/passvault-io/passvault/internal/token"
)

// In-memory fixtures so handler tests run without Postgres or Redis.

type memUserStore struct {
	byEmail map[string]*database.User
	byID    map[uuid.UUID]*database.User
}

func newMemUserStore() *memUserStore {
	return &memUserStore{
		byEmail: make(map[string]*database.User),
		byID:    make(map[uuid.UUID]*database.User),
	}
}

func (m *memUserStore) CreateUser(_ context.Context, name, email, passwordHash string) (*database.User, error) {
	if _, ok := m.byEmail[email]; ok {
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
	m.byEmail[email] = u
	m.byID[u.ID] = u
	return u, nil
}

func (m *memUserStore) GetUserByEmail(_ context.Context, email string) (*database.User, error) {
	u, ok := m.byEmail[email]
	if !ok {
		return nil, database.ErrNotFound
	}
	return u, nil
}

func (m *memUserStore) GetUserByID(_ context.Context, id uuid.UUID) (*database.User, error) {
	u, ok := m.byID[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	return u, nil
}

func (m *memUserStore) UpdateUserPassword(_ context.Context, id uuid.UUID, currentHash, newHash string) error {
	u, ok := m.byID[id]
	if !ok {
		return database.ErrNotFound
	}
	if u.PasswordHash != currentHash {
		return database.ErrStaleRecord
	}
	u.PasswordHash = newHash
	return nil
}

type memEntryStore struct {
	entries map[uuid.UUID]*database.Entry
}

func newMemEntryStore() *memEntryStore {
	return &memEntryStore{entries: make(map[uuid.UUID]*database.Entry)}
}

func (m *memEntryStore) InsertEntry(_ context.Context, ownerID uuid.UUID, platform, username, secret, url string) (*database.Entry, error) {
	now := time.Now()
	e := &database.Entry{
		ID:        uuid.New(),
		OwnerID:   ownerID,
		Platform:  platform,
		Username:  username,
		Secret:    secret,
		URL:       url,
		CreatedAt: now,
		UpdatedAt: now,
	}
	m.entries[e.ID] = e
	return e, nil
}

func (m *memEntryStore) ListEntriesByOwner(_ context.Context, ownerID uuid.UUID) ([]*database.Entry, error) {
	var out []*database.Entry
	for _, e := range m.entries {
		if e.OwnerID == ownerID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func (m *memEntryStore) GetEntry(_ context.Context, id uuid.UUID) (*database.Entry, error) {
	e, ok := m.entries[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	return e, nil
}

func (m *memEntryStore) UpdateEntry(_ context.Context, ownerID, id uuid.UUID, upd database.EntryUpdate) (*database.Entry, error) {
	e, ok := m.entries[id]
	if !ok || e.OwnerID != ownerID {
		return nil, database.ErrNotFound
	}
	if upd.Platform != nil {
		e.Platform = *upd.Platform
	}
	if upd.Username != nil {
		e.Username = *upd.Username
	}
	if upd.Secret != nil {
		e.Secret = *upd.Secret
	}
	if upd.URL != nil {
		e.URL = *upd.URL
	}
	e.UpdatedAt = time.Now()
	return e, nil
}

func (m *memEntryStore) DeleteEntry(_ context.Context, ownerID, id uuid.UUID) error {
	e, ok := m.entries[id]
	if !ok || e.OwnerID != ownerID {
		return database.ErrNotFound
	}
	delete(m.entries, id)
	return nil
}

type memRevocationList struct {
	revoked map[string]bool
}

func (m *memRevocationList) Revoke(_ context.Context, tokenID string, _ time.Duration) error {
	m.revoked[tokenID] = true
	return nil
}

func (m *memRevocationList) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	return m.revoked[tokenID], nil
}

type testEnv struct {
	users    *services.UserService
	entries  *services.EntryService
	sessions *services.SessionService
	store    *memEntryStore
	revoked  *memRevocationList
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	cipher, err := crypto.NewCipher(crypto.DeriveKey("handler test seed"))
	if err != nil {
		t.Fatalf("NewCipher() error = %v", err)
	}
	store := newMemEntryStore()
	revoked := &memRevocationList{revoked: make(map[string]bool)}
	return &testEnv{
		users:    services.NewUserService(newMemUserStore()),
		entries:  services.NewEntryService(store, cipher),
		sessions: services.NewSessionService(token.NewService([]byte("handler test secret")), revoked),
		store:    store,
		revoked:  revoked,
	}
}

// register creates a user and returns a live session token.
func (env *testEnv) register(t *testing.T, name, email, password string) (*services.User, string) {
	t.Helper()
	user, err := env.users.Register(context.Background(), name, email, password)
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	tok, err := env.sessions.Start(context.Background(), user)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	return user, tok
}

// testRouter builds the chi routes under test without the Redis-backed
// global middleware.
func (env *testEnv) testRouter() http.Handler {
	r := chi.NewRouter()
	r.NotFound(NotFoundHandler)
	r.MethodNotAllowed(MethodNotAllowedHandler)

	authHandler := NewAuthHandler(env.users, env.sessions, 1<<20, false)
	apiHandler := NewAPIHandler(env.users, env.entries, 1<<20)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", authHandler.Register)
		r.Post("/login", authHandler.Login)
		r.Post("/logout", authHandler.Logout)
		r.With(middleware.APIAuth(env.sessions)).Post("/change-password", authHandler.ChangePassword)
	})
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.APIAuth(env.sessions))
		r.Get("/me", apiHandler.GetCurrentUser)
		r.Route("/entries", func(r chi.Router) {
			r.Get("/", apiHandler.ListEntries)
			r.Post("/", apiHandler.CreateEntry)
			r.Patch("/{id}", apiHandler.UpdateEntry)
			r.Delete("/{id}", apiHandler.DeleteEntry)
		})
	})
	return r
}

func decodeData[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var resp struct {
		Data T `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return resp.Data
}
