package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/pscheid92/fortyfive/internal/domain"
	"github.com/pscheid92/fortyfive/internal/platform/crypto"
	goredis "github.com/redis/go-redis/v9"
)

const accessTokenKey = "credentials:tw_access_token"

// TokenStore is the single durable slot for the application access token.
// The token is sealed with cipher before it is written.
type TokenStore struct {
	rdb    goredis.Cmdable
	cipher crypto.Cipher
}

var _ domain.TokenStore = (*TokenStore)(nil)

// NewTokenStore creates the token slot. A nil cipher stores the token in plain text.
func NewTokenStore(rdb goredis.Cmdable, cipher crypto.Cipher) *TokenStore {
	if cipher == nil {
		cipher = crypto.Noop{}
	}
	return &TokenStore{rdb: rdb, cipher: cipher}
}

// GetToken returns the stored token. A value that no longer decrypts, for
// example after a key change, counts as an empty slot.
func (s *TokenStore) GetToken(ctx context.Context) (string, error) {
	sealed, err := s.rdb.Get(ctx, accessTokenKey).Result()
	if errors.Is(err, goredis.Nil) || (err == nil && sealed == "") {
		return "", domain.ErrTokenNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to get access token: %w", err)
	}

	token, err := s.cipher.Decrypt(sealed)
	if err != nil {
		slog.WarnContext(ctx, "Stored access token cannot be decrypted, discarding it", "error", err)
		return "", domain.ErrTokenNotFound
	}
	return token, nil
}

func (s *TokenStore) PutToken(ctx context.Context, token string) error {
	sealed, err := s.cipher.Encrypt(token)
	if err != nil {
		return fmt.Errorf("failed to encrypt access token: %w", err)
	}

	if err := s.rdb.Set(ctx, accessTokenKey, sealed, 0).Err(); err != nil {
		return fmt.Errorf("failed to store access token: %w", err)
	}
	return nil
}
