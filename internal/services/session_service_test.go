package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/passvault-io/passvault/internal/token"
)

type fakeRevocationList struct {
	revoked map[string]time.Duration
	failing bool
}

func newFakeRevocationList() *fakeRevocationList {
	return &fakeRevocationList{revoked: make(map[string]time.Duration)}
}

func (f *fakeRevocationList) Revoke(_ context.Context, tokenID string, ttl time.Duration) error {
	if f.failing {
		return context.DeadlineExceeded
	}
	if ttl > 0 {
		f.revoked[tokenID] = ttl
	}
	return nil
}

func (f *fakeRevocationList) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	if f.failing {
		return false, context.DeadlineExceeded
	}
	_, ok := f.revoked[tokenID]
	return ok, nil
}

func testSessionService(t *testing.T) (*SessionService, *fakeRevocationList) {
	t.Helper()
	revoked := newFakeRevocationList()
	tokens := token.NewService([]byte("session service test secret"))
	return NewSessionService(tokens, revoked), revoked
}

func testUser() *User {
	return &User{
		ID:    uuid.New(),
		Name:  "Alice",
		Email: "alice@example.com",
	}
}

func TestSessionServiceStartAndResolve(t *testing.T) {
	ctx := context.Background()
	svc, _ := testSessionService(t)
	user := testUser()

	tok, err := svc.Start(ctx, user)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	identity := svc.Resolve(ctx, tok)
	if identity == nil {
		t.Fatal("Resolve() = nil for a freshly issued token")
	}
	if identity.UserID != user.ID {
		t.Errorf("UserID = %v, want %v", identity.UserID, user.ID)
	}
	if identity.Name != "Alice" || identity.Email != "alice@example.com" {
		t.Errorf("identity = %+v", identity)
	}
}

func TestSessionServiceResolveRejects(t *testing.T) {
	ctx := context.Background()
	svc, _ := testSessionService(t)

	otherService := NewSessionService(token.NewService([]byte("a different secret")), newFakeRevocationList())
	foreign, err := otherService.Start(ctx, testUser())
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"garbage", "not.a.token"},
		{"wrong signature", foreign},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := svc.Resolve(ctx, tt.token); got != nil {
				t.Errorf("Resolve() = %+v, want nil", got)
			}
		})
	}
}

func TestSessionServiceRevoke(t *testing.T) {
	ctx := context.Background()
	svc, revoked := testSessionService(t)

	tok, err := svc.Start(ctx, testUser())
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if svc.Resolve(ctx, tok) == nil {
		t.Fatal("token unusable before revocation")
	}

	svc.Revoke(ctx, tok)

	if got := svc.Resolve(ctx, tok); got != nil {
		t.Errorf("Resolve() after Revoke() = %+v, want nil", got)
	}
	if len(revoked.revoked) != 1 {
		t.Errorf("denylist size = %d, want 1", len(revoked.revoked))
	}
	for _, ttl := range revoked.revoked {
		if ttl <= 0 || ttl > token.Lifetime {
			t.Errorf("denylist ttl = %v, want within (0, %v]", ttl, token.Lifetime)
		}
	}
}

func TestSessionServiceRevokeInvalidTokenIsNoop(t *testing.T) {
	ctx := context.Background()
	svc, revoked := testSessionService(t)

	svc.Revoke(ctx, "not.a.token")

	if len(revoked.revoked) != 0 {
		t.Errorf("denylist size = %d, want 0", len(revoked.revoked))
	}
}

func TestSessionServiceResolveFailsClosedOnRevocationError(t *testing.T) {
	ctx := context.Background()
	svc, revoked := testSessionService(t)

	tok, err := svc.Start(ctx, testUser())
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	revoked.failing = true
	if got := svc.Resolve(ctx, tok); got != nil {
		t.Errorf("Resolve() with failing denylist = %+v, want nil", got)
	}
}

func TestSessionServiceRevokeOnlyAffectsThatToken(t *testing.T) {
	ctx := context.Background()
	svc, _ := testSessionService(t)
	user := testUser()

	first, err := svc.Start(ctx, user)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	second, err := svc.Start(ctx, user)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	svc.Revoke(ctx, first)

	if svc.Resolve(ctx, first) != nil {
		t.Error("revoked token still resolves")
	}
	if svc.Resolve(ctx, second) == nil {
		t.Error("revoking one token killed a sibling session")
	}
}
