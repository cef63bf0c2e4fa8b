// Package session persists the customer's bearer token and identity.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"StoreClient/internal/kvstore"
	"StoreClient/pkg/kit"
)

const (
	TokenKey    = "auth_token"
	UserDataKey = "user_data"
)

type Store struct {
	kv  kvstore.Store
	log *zap.Logger
}

func New(kv kvstore.Store, log *zap.Logger) *Store {
	return &Store{kv: kv, log: kit.OrNop(log)}
}

// Token returns the stored bearer token, or "" when logged out.
func (s *Store) Token(ctx context.Context) (string, error) {
	tok, _, err := s.kv.Get(ctx, TokenKey)
	if err != nil {
		return "", fmt.Errorf("read token: %w", err)
	}
	return tok, nil
}

// SaveLogin stores the token first so a failed identity write still leaves
// the session usable.
func (s *Store) SaveLogin(ctx context.Context, token string, user any) error {
	if err := s.kv.Set(ctx, TokenKey, token); err != nil {
		return fmt.Errorf("store token: %w", err)
	}

	raw, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("encode user data: %w", err)
	}
	if err := s.kv.Set(ctx, UserDataKey, string(raw)); err != nil {
		return fmt.Errorf("store user data: %w", err)
	}
	return nil
}

// UserData decodes the cached identity into dst.
func (s *Store) UserData(ctx context.Context, dst any) (bool, error) {
	raw, ok, err := s.kv.Get(ctx, UserDataKey)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		s.log.Warn("corrupt user data dropped", zap.Error(err))
		_ = s.kv.Remove(ctx, UserDataKey)
		return false, nil
	}
	return true, nil
}

// Logout forgets the token and the identity in one call.
func (s *Store) Logout(ctx context.Context) error {
	if err := s.kv.MultiRemove(ctx, TokenKey, UserDataKey); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

func (s *Store) IsAuthenticated(ctx context.Context) bool {
	tok, err := s.Token(ctx)
	return err == nil && tok != ""
}

// TokenExpiry reads the exp claim without verifying the signature. The
// server stays the authority; this only feeds diagnostics.
func (s *Store) TokenExpiry(ctx context.Context) (time.Time, bool) {
	tok, err := s.Token(ctx)
	if err != nil || tok == "" {
		return time.Time{}, false
	}

	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(tok, &claims); err != nil || claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}
