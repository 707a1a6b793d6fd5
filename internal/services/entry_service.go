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

// EntryStore is the persistence surface EntryService needs.
// *database.DB satisfies it.
type EntryStore interface {
	InsertEntry(ctx context.Context, ownerID uuid.UUID, platform, username, secret, url string) (*database.Entry, error)
	ListEntriesByOwner(ctx context.Context, ownerID uuid.UUID) ([]*database.Entry, error)
	GetEntry(ctx context.Context, id uuid.UUID) (*database.Entry, error)
	UpdateEntry(ctx context.Context, ownerID, id uuid.UUID, upd database.EntryUpdate) (*database.Entry, error)
	DeleteEntry(ctx context.Context, ownerID, id uuid.UUID) error
}

// Entry is a vault entry with its secret decrypted. Instances only exist in
// memory on the way to an authorized caller; at rest the secret is always
// ciphertext.
type Entry struct {
	ID        uuid.UUID `json:"id"`
	OwnerID   uuid.UUID `json:"-"`
	Platform  string    `json:"platform"`
	Username  string    `json:"username"`
	Secret    string    `json:"password"`
	URL       string    `json:"url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// EntryUpdate carries the optional fields of a partial update.
// Nil pointers mean "leave unchanged".
type EntryUpdate struct {
	Platform *string
	Username *string
	Secret   *string
	URL      *string
}

// EntryService handles vault entry CRUD, routing secrets through the cipher.
type EntryService struct {
	store  EntryStore
	cipher *crypto.Cipher
}

// NewEntryService creates a new EntryService.
func NewEntryService(store EntryStore, cipher *crypto.Cipher) *EntryService {
	return &EntryService{store: store, cipher: cipher}
}

func (s *EntryService) decryptEntry(e *database.Entry) (*Entry, error) {
	secret, err := s.cipher.DecryptString(e.Secret)
	if err != nil {
		metrics.CipherOperations.WithLabelValues("decrypt", "failure").Inc()
		return nil, fmt.Errorf("entry %s: %w", e.ID, err)
	}
	metrics.CipherOperations.WithLabelValues("decrypt", "success").Inc()
	return &Entry{
		ID:        e.ID,
		OwnerID:   e.OwnerID,
		Platform:  e.Platform,
		Username:  e.Username,
		Secret:    secret,
		URL:       e.URL,
		CreatedAt: e.CreatedAt,
		UpdatedAt: e.UpdatedAt,
	}, nil
}

func (s *EntryService) encrypt(secret string) (string, error) {
	ciphertext, err := s.cipher.EncryptString(secret)
	if err != nil {
		metrics.CipherOperations.WithLabelValues("encrypt", "failure").Inc()
		return "", fmt.Errorf("failed to encrypt secret: %w", err)
	}
	metrics.CipherOperations.WithLabelValues("encrypt", "success").Inc()
	return ciphertext, nil
}

// List returns the caller's entries, most recently updated first, with
// secrets decrypted.
func (s *EntryService) List(ctx context.Context, ownerID uuid.UUID) ([]*Entry, error) {
	dbEntries, err := s.store.ListEntriesByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list entries: %w", err)
	}

	entries := make([]*Entry, 0, len(dbEntries))
	for _, e := range dbEntries {
		entry, err := s.decryptEntry(e)
		if err != nil {
			// A single undecryptable record poisons the whole listing;
			// surface it rather than silently dropping the entry.
			logging.Logger(ctx).Error("entry_decrypt_failed", "entry_id", e.ID, "error", err)
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// Add encrypts the secret and persists a new entry owned by ownerID.
func (s *EntryService) Add(ctx context.Context, ownerID uuid.UUID, platform, username, secret, url string) (*Entry, error) {
	log := logging.Logger(ctx)

	ciphertext, err := s.encrypt(secret)
	if err != nil {
		return nil, err
	}

	dbEntry, err := s.store.InsertEntry(ctx, ownerID, platform, username, ciphertext, url)
	if err != nil {
		log.Error("entry_insert_failed", "owner_id", ownerID, "error", err)
		return nil, fmt.Errorf("failed to add entry: %w", err)
	}

	log.Debug("entry_added", "entry_id", dbEntry.ID, "owner_id", ownerID)
	return &Entry{
		ID:        dbEntry.ID,
		OwnerID:   dbEntry.OwnerID,
		Platform:  dbEntry.Platform,
		Username:  dbEntry.Username,
		Secret:    secret,
		URL:       dbEntry.URL,
		CreatedAt: dbEntry.CreatedAt,
		UpdatedAt: dbEntry.UpdatedAt,
	}, nil
}

// Update applies a partial update to an entry the caller owns. A supplied
// secret is re-encrypted; updated_at always refreshes. Returns
// ErrEntryNotFound for a missing entry and ErrForbidden for someone else's.
func (s *EntryService) Update(ctx context.Context, ownerID, entryID uuid.UUID, upd EntryUpdate) (*Entry, error) {
	log := logging.Logger(ctx)

	existing, err := s.store.GetEntry(ctx, entryID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrEntryNotFound
		}
		return nil, fmt.Errorf("failed to get entry: %w", err)
	}
	if existing.OwnerID != ownerID {
		log.Warn("entry_update_forbidden", "entry_id", entryID, "owner_id", existing.OwnerID, "caller_id", ownerID)
		return nil, ErrForbidden
	}

	dbUpd := database.EntryUpdate{
		Platform: upd.Platform,
		Username: upd.Username,
		URL:      upd.URL,
	}
	if upd.Secret != nil {
		ciphertext, err := s.encrypt(*upd.Secret)
		if err != nil {
			return nil, err
		}
		dbUpd.Secret = &ciphertext
	}

	dbEntry, err := s.store.UpdateEntry(ctx, ownerID, entryID, dbUpd)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrEntryNotFound
		}
		log.Error("entry_update_failed", "entry_id", entryID, "error", err)
		return nil, fmt.Errorf("failed to update entry: %w", err)
	}

	log.Debug("entry_updated", "entry_id", entryID, "owner_id", ownerID)
	return s.decryptEntry(dbEntry)
}

// Delete removes an entry the caller owns. Deleting a missing or foreign
// entry is a no-op: the owner-scoped delete matches nothing, and nothing is
// revealed about other users' entries.
func (s *EntryService) Delete(ctx context.Context, ownerID, entryID uuid.UUID) error {
	err := s.store.DeleteEntry(ctx, ownerID, entryID)
	if err != nil && !errors.Is(err, database.ErrNotFound) {
		logging.Logger(ctx).Error("entry_delete_failed", "entry_id", entryID, "error", err)
		return fmt.Errorf("failed to delete entry: %w", err)
	}
	logging.Logger(ctx).Debug("entry_deleted", "entry_id", entryID, "owner_id", ownerID)
	return nil
}
