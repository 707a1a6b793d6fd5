package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Entry is a persisted vault entry. Secret holds ciphertext only; the
// service layer decrypts on the way out.
type Entry struct {
	ID        uuid.UUID
	OwnerID   uuid.UUID
	Platform  string
	Username  string
	Secret    string
	URL       string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// EntryUpdate carries a partial update. Nil means "leave unchanged";
// a non-nil pointer to an empty string means "set to empty". This keeps
// omit and clear distinguishable at the store layer.
type EntryUpdate struct {
	Platform *string
	Username *string
	Secret   *string
	URL      *string
}

// IsEmpty reports whether no field is being changed.
func (u EntryUpdate) IsEmpty() bool {
	return u.Platform == nil && u.Username == nil && u.Secret == nil && u.URL == nil
}

// InsertEntry persists a new vault entry. The secret must already be
// encrypted by the caller.
func (db *DB) InsertEntry(ctx context.Context, ownerID uuid.UUID, platform, username, secret, url string) (*Entry, error) {
	row := db.Pool.QueryRow(ctx, `
		INSERT INTO vault_entries (owner_id, platform, username, secret_ciphertext, url)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, owner_id, platform, username, secret_ciphertext, url, created_at, updated_at`,
		ownerID, platform, username, secret, url,
	)
	return scanEntry(row)
}

// ListEntriesByOwner returns all entries owned by ownerID, most recently
// updated first.
func (db *DB) ListEntriesByOwner(ctx context.Context, ownerID uuid.UUID) ([]*Entry, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT id, owner_id, platform, username, secret_ciphertext, url, created_at, updated_at
		FROM vault_entries
		WHERE owner_id = $1
		ORDER BY updated_at DESC`,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list entries: %w", err)
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read entries: %w", err)
	}
	return entries, nil
}

// GetEntry fetches a single entry by id, regardless of owner. Ownership is
// the caller's check; keeping it out of the query lets the service
// distinguish not-found from forbidden.
func (db *DB) GetEntry(ctx context.Context, id uuid.UUID) (*Entry, error) {
	row := db.Pool.QueryRow(ctx, `
		SELECT id, owner_id, platform, username, secret_ciphertext, url, created_at, updated_at
		FROM vault_entries WHERE id = $1`,
		id,
	)
	return scanEntry(row)
}

// UpdateEntry applies a partial update to an entry scoped to its owner.
// Only supplied fields change; updated_at always refreshes.
func (db *DB) UpdateEntry(ctx context.Context, ownerID, id uuid.UUID, upd EntryUpdate) (*Entry, error) {
	// An empty update must not refresh updated_at, but it still has to
	// respect ownership, so read the row back owner-scoped instead.
	if upd.IsEmpty() {
		row := db.Pool.QueryRow(ctx, `
			SELECT id, owner_id, platform, username, secret_ciphertext, url, created_at, updated_at
			FROM vault_entries WHERE id = $1 AND owner_id = $2`,
			id, ownerID,
		)
		return scanEntry(row)
	}

	sets := []string{"updated_at = now()"}
	args := []any{id, ownerID}

	add := func(column string, value *string) {
		if value != nil {
			args = append(args, *value)
			sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
		}
	}
	add("platform", upd.Platform)
	add("username", upd.Username)
	add("secret_ciphertext", upd.Secret)
	add("url", upd.URL)

	query := fmt.Sprintf(`
		UPDATE vault_entries SET %s
		WHERE id = $1 AND owner_id = $2
		RETURNING id, owner_id, platform, username, secret_ciphertext, url, created_at, updated_at`,
		strings.Join(sets, ", "),
	)

	return scanEntry(db.Pool.QueryRow(ctx, query, args...))
}

// DeleteEntry removes an entry scoped to its owner. Deleting something that
// does not exist (or is not yours) affects zero rows and returns ErrNotFound.
func (db *DB) DeleteEntry(ctx context.Context, ownerID, id uuid.UUID) error {
	tag, err := db.Pool.Exec(ctx, `
		DELETE FROM vault_entries WHERE id = $1 AND owner_id = $2`,
		id, ownerID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete entry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanEntry(row pgx.Row) (*Entry, error) {
	var e Entry
	err := row.Scan(&e.ID, &e.OwnerID, &e.Platform, &e.Username, &e.Secret, &e.URL, &e.CreatedAt, &e.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan entry: %w", err)
	}
	return &e, nil
}
