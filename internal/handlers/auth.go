package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/passvault-io/passvault/internal/logging"
	"github.com/passvault-io/passvault/internal/middleware"
	"github.com/passvault-io/passvault/internal/services"
	"github.com/passvault-io/passvault/internal/token"
	"github.com/passvault-io/passvault/internal/validation"
)

// AuthHandler handles registration, login, logout, and password changes.
type AuthHandler struct {
	userService        *services.UserService
	sessionService     *services.SessionService
	maxRequestBodySize int64
	isProduction       bool
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(
	userService *services.UserService,
	sessionService *services.SessionService,
	maxRequestBodySize int64,
	isProduction bool,
) *AuthHandler {
	return &AuthHandler{
		userService:        userService,
		sessionService:     sessionService,
		maxRequestBodySize: maxRequestBodySize,
		isProduction:       isProduction,
	}
}

// setSessionCookie installs the session token for browser clients. The
// cookie lives exactly as long as the token it carries.
func (h *AuthHandler) setSessionCookie(w http.ResponseWriter, tokenString string) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    tokenString,
		Path:     "/",
		MaxAge:   int(token.Lifetime.Seconds()),
		HttpOnly: true,
		Secure:   h.isProduction,
		SameSite: http.SameSiteLaxMode,
	})
}

type credentialsRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// decodeCredentials reads a JSON body or an HTML form into a
// credentialsRequest, depending on the request content type.
func (h *AuthHandler) decodeCredentials(r *http.Request) (credentialsRequest, error) {
	var req credentialsRequest
	if strings.Contains(r.Header.Get("Content-Type"), "application/json") {
		if err := json.NewDecoder(io.LimitReader(r.Body, h.maxRequestBodySize)).Decode(&req); err != nil {
			return req, err
		}
	} else {
		if err := r.ParseForm(); err != nil {
			return req, err
		}
		req.Name = r.FormValue("name")
		req.Email = r.FormValue("email")
		req.Password = r.FormValue("password")
	}
	req.Email = strings.TrimSpace(req.Email)
	return req, nil
}

// Register handles POST /auth/register.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	log := logging.Logger(r.Context())

	req, err := h.decodeCredentials(r)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "INVALID_INPUT", "Invalid request body")
		return
	}

	if err := validation.Name(req.Name); err != nil {
		jsonError(w, http.StatusBadRequest, "INVALID_INPUT", err.Error())
		return
	}
	if err := validation.Email(req.Email); err != nil {
		jsonError(w, http.StatusBadRequest, "INVALID_INPUT", err.Error())
		return
	}
	if err := validation.Password(req.Password); err != nil {
		jsonError(w, http.StatusBadRequest, "INVALID_INPUT", err.Error())
		return
	}

	user, err := h.userService.Register(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrEmailExists) {
			jsonError(w, http.StatusConflict, "EMAIL_EXISTS", "An account with this email already exists")
			return
		}
		log.Error("registration_failed", "email", req.Email, "error", err)
		jsonError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to create account")
		return
	}

	tokenString, err := h.sessionService.Start(r.Context(), user)
	if err != nil {
		log.Error("session_start_failed", "user_id", user.ID, "error", err)
		jsonError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to start session")
		return
	}

	h.setSessionCookie(w, tokenString)
	log.Info("user_registered", "user_id", user.ID)

	if isAPIRequest(r) {
		jsonResponse(w, http.StatusCreated, map[string]any{
			"user":  user,
			"token": tokenString,
		})
		return
	}
	http.Redirect(w, r, "/vault", http.StatusSeeOther)
}

// Login handles POST /auth/login. Unknown email and wrong password get
// the same response so callers cannot probe for accounts.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	log := logging.Logger(r.Context())

	req, err := h.decodeCredentials(r)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "INVALID_INPUT", "Invalid request body")
		return
	}

	user, err := h.userService.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			jsonError(w, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password")
			return
		}
		log.Error("login_failed", "error", err)
		jsonError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to log in")
		return
	}

	tokenString, err := h.sessionService.Start(r.Context(), user)
	if err != nil {
		log.Error("session_start_failed", "user_id", user.ID, "error", err)
		jsonError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to start session")
		return
	}

	h.setSessionCookie(w, tokenString)
	log.Info("user_logged_in", "user_id", user.ID)

	if isAPIRequest(r) {
		jsonResponse(w, http.StatusOK, map[string]any{
			"user":  user,
			"token": tokenString,
		})
		return
	}
	http.Redirect(w, r, "/vault", http.StatusSeeOther)
}

// Logout handles POST /auth/logout. The token is denylisted so it cannot
// be replayed after the cookie is gone.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(middleware.SessionCookieName); err == nil {
		h.sessionService.Revoke(r.Context(), cookie.Value)
	} else if auth := r.Header.Get("Authorization"); auth != "" {
		parts := strings.SplitN(auth, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			h.sessionService.Revoke(r.Context(), parts[1])
		}
	}

	middleware.ClearSessionCookie(w, r)

	if isAPIRequest(r) {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// ChangePassword handles POST /auth/change-password. Requires authentication.
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	log := logging.Logger(r.Context())

	identity := middleware.GetIdentity(r.Context())
	if identity == nil {
		jsonError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}

	var req struct {
		CurrentPassword string `json:"current_password"`
		NewPassword     string `json:"new_password"`
	}
	if err := json.NewDecoder(io.LimitReader(r.Body, h.maxRequestBodySize)).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, "INVALID_INPUT", "Invalid request body")
		return
	}

	if err := validation.Password(req.NewPassword); err != nil {
		jsonError(w, http.StatusBadRequest, "INVALID_INPUT", err.Error())
		return
	}

	err := h.userService.ChangePassword(r.Context(), identity.UserID, req.CurrentPassword, req.NewPassword)
	if err != nil {
		if errors.Is(err, services.ErrCurrentPasswordIncorrect) {
			jsonError(w, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Current password is incorrect")
			return
		}
		log.Error("password_change_failed", "user_id", identity.UserID, "error", err)
		jsonError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to change password")
		return
	}

	log.Info("password_changed", "user_id", identity.UserID)
	w.WriteHeader(http.StatusNoContent)
}
