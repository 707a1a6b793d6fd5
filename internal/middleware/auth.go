package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/passvault-io/passvault/internal/services"
)

// SessionCookieName is the cookie that carries the session token for
// browser clients.
const SessionCookieName = "auth-token"

// apiError is the standardized API error envelope.
type apiError struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// jsonError writes a standardized JSON error response.
func jsonError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	resp := apiError{}
	resp.Error.Code = code
	resp.Error.Message = message
	json.NewEncoder(w).Encode(resp)
}

// IdentityContextKey is the context key for the resolved identity.
type IdentityContextKey struct{}

// ClearSessionCookie expires the session cookie on the client.
func ClearSessionCookie(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
}

// SessionAuth returns middleware for browser-facing routes. Requests
// without a usable session cookie are redirected to the login page; a
// cookie that fails to resolve is cleared so the browser stops sending it.
func SessionAuth(sessions *services.SessionService) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(SessionCookieName)
			if err != nil {
				http.Redirect(w, r, "/login", http.StatusSeeOther)
				return
			}

			identity := sessions.Resolve(r.Context(), cookie.Value)
			if identity == nil {
				ClearSessionCookie(w, r)
				http.Redirect(w, r, "/login", http.StatusSeeOther)
				return
			}

			ctx := context.WithValue(r.Context(), IdentityContextKey{}, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// APIAuth returns middleware for JSON API routes. It accepts a Bearer
// token or, failing that, the session cookie, and answers 401 with the
// JSON error envelope instead of redirecting.
func APIAuth(sessions *services.SessionService) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString := bearerToken(r)
			if tokenString == "" {
				if cookie, err := r.Cookie(SessionCookieName); err == nil {
					tokenString = cookie.Value
				}
			}
			if tokenString == "" {
				jsonError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Missing credentials")
				return
			}

			identity := sessions.Resolve(r.Context(), tokenString)
			if identity == nil {
				jsonError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid or expired token")
				return
			}

			ctx := context.WithValue(r.Context(), IdentityContextKey{}, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return parts[1]
}

// GetIdentity retrieves the authenticated identity from the context.
func GetIdentity(ctx context.Context) *services.Identity {
	identity, _ := ctx.Value(IdentityContextKey{}).(*services.Identity)
	return identity
}
