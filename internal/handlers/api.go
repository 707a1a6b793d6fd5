package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/passvault-io/passvault/internal/logging"
	"github.com/passvault-io/passvault/internal/middleware"
	"github.com/passvault-io/passvault/internal/services"
	"github.com/passvault-io/passvault/internal/validation"
)

// APIHandler handles the vault entry REST endpoints.
type APIHandler struct {
	userService        *services.UserService
	entryService       *services.EntryService
	maxRequestBodySize int64
}

// NewAPIHandler creates a new APIHandler.
func NewAPIHandler(
	userService *services.UserService,
	entryService *services.EntryService,
	maxRequestBodySize int64,
) *APIHandler {
	return &APIHandler{
		userService:        userService,
		entryService:       entryService,
		maxRequestBodySize: maxRequestBodySize,
	}
}

// GetCurrentUser handles GET /api/v1/me
func (h *APIHandler) GetCurrentUser(w http.ResponseWriter, r *http.Request) {
	identity := middleware.GetIdentity(r.Context())
	if identity == nil {
		jsonError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}

	user, err := h.userService.GetByID(r.Context(), identity.UserID)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load account")
		return
	}

	jsonResponse(w, http.StatusOK, user)
}

// ListEntries handles GET /api/v1/entries
func (h *APIHandler) ListEntries(w http.ResponseWriter, r *http.Request) {
	log := logging.Logger(r.Context())

	identity := middleware.GetIdentity(r.Context())
	if identity == nil {
		jsonError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}

	entries, err := h.entryService.List(r.Context(), identity.UserID)
	if err != nil {
		log.Error("entry_list_failed", "user_id", identity.UserID, "error", err)
		jsonError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list entries")
		return
	}

	jsonResponse(w, http.StatusOK, entries)
}

type entryRequest struct {
	Platform string `json:"platform"`
	Username string `json:"username"`
	Password string `json:"password"`
	URL      string `json:"url"`
}

func validateEntryRequest(req entryRequest) error {
	if err := validation.Platform(req.Platform); err != nil {
		return err
	}
	if err := validation.EntryUsername(req.Username); err != nil {
		return err
	}
	if err := validation.Secret(req.Password); err != nil {
		return err
	}
	return validation.EntryURL(req.URL)
}

// CreateEntry handles POST /api/v1/entries
func (h *APIHandler) CreateEntry(w http.ResponseWriter, r *http.Request) {
	log := logging.Logger(r.Context())

	identity := middleware.GetIdentity(r.Context())
	if identity == nil {
		jsonError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}

	var req entryRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, h.maxRequestBodySize)).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, "INVALID_INPUT", "Invalid request body")
		return
	}
	if err := validateEntryRequest(req); err != nil {
		jsonError(w, http.StatusBadRequest, "INVALID_INPUT", err.Error())
		return
	}

	entry, err := h.entryService.Add(r.Context(), identity.UserID, req.Platform, req.Username, req.Password, req.URL)
	if err != nil {
		log.Error("entry_create_failed", "user_id", identity.UserID, "error", err)
		jsonError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to create entry")
		return
	}

	log.Info("entry_created", "entry_id", entry.ID, "user_id", identity.UserID)
	jsonResponse(w, http.StatusCreated, entry)
}

// UpdateEntry handles PATCH /api/v1/entries/{id}. Absent fields are left
// unchanged; present fields are validated and applied.
func (h *APIHandler) UpdateEntry(w http.ResponseWriter, r *http.Request) {
	log := logging.Logger(r.Context())

	identity := middleware.GetIdentity(r.Context())
	if identity == nil {
		jsonError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}

	entryID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		jsonError(w, http.StatusBadRequest, "INVALID_INPUT", "Invalid entry ID")
		return
	}

	var req struct {
		Platform *string `json:"platform"`
		Username *string `json:"username"`
		Password *string `json:"password"`
		URL      *string `json:"url"`
	}
	if err := json.NewDecoder(io.LimitReader(r.Body, h.maxRequestBodySize)).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, "INVALID_INPUT", "Invalid request body")
		return
	}

	if req.Platform != nil {
		if err := validation.Platform(*req.Platform); err != nil {
			jsonError(w, http.StatusBadRequest, "INVALID_INPUT", err.Error())
			return
		}
	}
	if req.Username != nil {
		if err := validation.EntryUsername(*req.Username); err != nil {
			jsonError(w, http.StatusBadRequest, "INVALID_INPUT", err.Error())
			return
		}
	}
	if req.Password != nil {
		if err := validation.Secret(*req.Password); err != nil {
			jsonError(w, http.StatusBadRequest, "INVALID_INPUT", err.Error())
			return
		}
	}
	if req.URL != nil {
		if err := validation.EntryURL(*req.URL); err != nil {
			jsonError(w, http.StatusBadRequest, "INVALID_INPUT", err.Error())
			return
		}
	}

	entry, err := h.entryService.Update(r.Context(), identity.UserID, entryID, services.EntryUpdate{
		Platform: req.Platform,
		Username: req.Username,
		Secret:   req.Password,
		URL:      req.URL,
	})
	if err != nil {
		switch {
		case errors.Is(err, services.ErrEntryNotFound):
			jsonError(w, http.StatusNotFound, "NOT_FOUND", "Entry not found")
		case errors.Is(err, services.ErrForbidden):
			jsonError(w, http.StatusForbidden, "FORBIDDEN", "You do not own this entry")
		default:
			log.Error("entry_update_failed", "entry_id", entryID, "user_id", identity.UserID, "error", err)
			jsonError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to update entry")
		}
		return
	}

	log.Info("entry_updated", "entry_id", entry.ID, "user_id", identity.UserID)
	jsonResponse(w, http.StatusOK, entry)
}

// DeleteEntry handles DELETE /api/v1/entries/{id}. Deleting an entry
// that is already gone succeeds.
func (h *APIHandler) DeleteEntry(w http.ResponseWriter, r *http.Request) {
	log := logging.Logger(r.Context())

	identity := middleware.GetIdentity(r.Context())
	if identity == nil {
		jsonError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}

	entryID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		jsonError(w, http.StatusBadRequest, "INVALID_INPUT", "Invalid entry ID")
		return
	}

	if err := h.entryService.Delete(r.Context(), identity.UserID, entryID); err != nil {
		log.Error("entry_delete_failed", "entry_id", entryID, "user_id", identity.UserID, "error", err)
		jsonError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to delete entry")
		return
	}

	log.Info("entry_deleted", "entry_id", entryID, "user_id", identity.UserID)
	w.WriteHeader(http.StatusNoContent)
}
