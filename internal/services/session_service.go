package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/passvault-io/passvault/internal/logging"
	"github.com/passvault-io/passvault/internal/metrics"
	"github.com/passvault-io/passvault/internal/token"
)

// Identity is a resolved session: who is calling.
type Identity struct {
	UserID uuid.UUID
	Name   string
	Email  string
}

// RevocationList records tokens revoked before their natural expiry.
type RevocationList interface {
	Revoke(ctx context.Context, tokenID string, ttl time.Duration) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// RedisRevocationList is a RevocationList backed by Redis. Entries expire
// with the token they shadow, so the set stays small.
type RedisRevocationList struct {
	client *redis.Client
}

// NewRedisRevocationList creates a RevocationList on the given client.
func NewRedisRevocationList(client *redis.Client) *RedisRevocationList {
	return &RedisRevocationList{client: client}
}

func revocationKey(tokenID string) string {
	return "revoked:" + tokenID
}

// Revoke denylists a token id until its TTL elapses.
func (r *RedisRevocationList) Revoke(ctx context.Context, tokenID string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil // already expired, nothing to deny
	}
	if err := r.client.Set(ctx, revocationKey(tokenID), "1", ttl).Err(); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}

// IsRevoked reports whether a token id has been denylisted.
func (r *RedisRevocationList) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := r.client.Exists(ctx, revocationKey(tokenID)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check revocation: %w", err)
	}
	return n > 0, nil
}

// SessionService ties token verification to identity resolution. Tokens are
// stateless JWTs; the revocation list is the only server-side session state
// and exists so logout actually kills a captured token.
type SessionService struct {
	tokens  *token.Service
	revoked RevocationList
}

// NewSessionService creates a new SessionService.
func NewSessionService(tokens *token.Service, revoked RevocationList) *SessionService {
	return &SessionService{tokens: tokens, revoked: revoked}
}

// Start issues a session token for a user, typically right after
// registration or login.
func (s *SessionService) Start(ctx context.Context, user *User) (string, error) {
	tok, err := s.tokens.Issue(user.ID, user.Name, user.Email)
	if err != nil {
		logging.Logger(ctx).Error("token_issue_failed", "user_id", user.ID, "error", err)
		return "", fmt.Errorf("failed to issue session token: %w", err)
	}
	return tok, nil
}

// Resolve turns a token string into an Identity, or nil if the token is
// missing, malformed, forged, expired, or revoked. Every failure collapses
// to "no session"; callers get no diagnostic to relay.
func (s *SessionService) Resolve(ctx context.Context, tokenString string) *Identity {
	if tokenString == "" {
		return nil
	}

	claims, err := s.tokens.Verify(tokenString)
	if err != nil {
		logging.Logger(ctx).Debug("token_verify_failed", "error", err)
		return nil
	}

	userID, err := claims.UserID()
	if err != nil {
		return nil
	}

	revoked, err := s.revoked.IsRevoked(ctx, claims.ID)
	if err != nil || revoked {
		if err != nil {
			logging.Logger(ctx).Error("revocation_check_failed", "error", err)
		}
		return nil
	}

	return &Identity{UserID: userID, Name: claims.Name, Email: claims.Email}
}

// Revoke denylists the token for the remainder of its lifetime (logout).
// An invalid token is a no-op: there is nothing left to revoke.
func (s *SessionService) Revoke(ctx context.Context, tokenString string) {
	claims, err := s.tokens.Verify(tokenString)
	if err != nil {
		return
	}

	ttl := claims.RemainingLife(time.Now())
	if err := s.revoked.Revoke(ctx, claims.ID, ttl); err != nil {
		logging.Logger(ctx).Error("token_revoke_failed", "error", err)
		return
	}
	metrics.RevokedTokensTotal.Inc()
}
