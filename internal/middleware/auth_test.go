package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/passvault-io/passvault/internal/services"
	"github.com/passvault-io/passvault/internal/token"
)

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

func testSessions(t *testing.T) (*services.SessionService, string, uuid.UUID) {
	t.Helper()
	sessions := services.NewSessionService(
		token.NewService([]byte("middleware test secret")),
		&memRevocationList{revoked: make(map[string]bool)},
	)
	user := &services.User{ID: uuid.New(), Name: "Alice", Email: "alice@example.com"}
	tok, err := sessions.Start(context.Background(), user)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	return sessions, tok, user.ID
}

func identityEcho(t *testing.T, wantID uuid.UUID) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity := GetIdentity(r.Context())
		if identity == nil {
			t.Error("no identity in context")
			return
		}
		if identity.UserID != wantID {
			t.Errorf("UserID = %v, want %v", identity.UserID, wantID)
		}
		w.WriteHeader(http.StatusOK)
	})
}

func TestAPIAuthBearerToken(t *testing.T) {
	sessions, tok, userID := testSessions(t)
	handler := APIAuth(sessions)(identityEcho(t, userID))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/entries", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestAPIAuthCookieFallback(t *testing.T) {
	sessions, tok, userID := testSessions(t)
	handler := APIAuth(sessions)(identityEcho(t, userID))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/entries", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: tok})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestAPIAuthRejects(t *testing.T) {
	sessions, tok, _ := testSessions(t)
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler reached without valid credentials")
	})
	handler := APIAuth(sessions)(next)

	tests := []struct {
		name    string
		prepare func(r *http.Request)
	}{
		{"no credentials", func(r *http.Request) {}},
		{"malformed header", func(r *http.Request) {
			r.Header.Set("Authorization", "Token abc")
		}},
		{"garbage token", func(r *http.Request) {
			r.Header.Set("Authorization", "Bearer not.a.token")
		}},
		{"revoked token", func(r *http.Request) {
			sessions.Revoke(r.Context(), tok)
			r.Header.Set("Authorization", "Bearer "+tok)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/entries", nil)
			tt.prepare(req)
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want 401", rec.Code)
			}
			if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("Content-Type = %q, want application/json", ct)
			}
			if !strings.Contains(rec.Body.String(), "UNAUTHORIZED") {
				t.Errorf("body = %q, want error envelope", rec.Body.String())
			}
		})
	}
}

func TestSessionAuthRedirectsWithoutCookie(t *testing.T) {
	sessions, _, _ := testSessions(t)
	handler := SessionAuth(sessions)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler reached without a session")
	}))

	req := httptest.NewRequest(http.MethodGet, "/vault", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusSeeOther {
		t.Errorf("status = %d, want 303", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/login" {
		t.Errorf("Location = %q, want /login", loc)
	}
}

func TestSessionAuthClearsBadCookie(t *testing.T) {
	sessions, _, _ := testSessions(t)
	handler := SessionAuth(sessions)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler reached with an invalid session")
	}))

	req := httptest.NewRequest(http.MethodGet, "/vault", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "stale.or.forged"})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusSeeOther {
		t.Errorf("status = %d, want 303", rec.Code)
	}
	cleared := false
	for _, c := range rec.Result().Cookies() {
		if c.Name == SessionCookieName && c.MaxAge < 0 {
			cleared = true
		}
	}
	if !cleared {
		t.Error("invalid session cookie was not cleared")
	}
}

func TestSessionAuthPassesValidCookie(t *testing.T) {
	sessions, tok, userID := testSessions(t)
	handler := SessionAuth(sessions)(identityEcho(t, userID))

	req := httptest.NewRequest(http.MethodGet, "/vault", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: tok})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}
