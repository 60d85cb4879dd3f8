package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	appErrors "github.com/winslow-house/advising-api/pkg/errors"
)

// AuthCodeRepository stores login verification code hashes in Redis
// with a TTL. Only the bcrypt hash is persisted.
type AuthCodeRepository struct {
	client *redis.Client
}

// NewAuthCodeRepository constructs an AuthCodeRepository.
func NewAuthCodeRepository(client *redis.Client) *AuthCodeRepository {
	return &AuthCodeRepository{client: client}
}

func authCodeKey(email string) string {
	return "auth:code:" + strings.ToLower(strings.TrimSpace(email))
}

// Store saves the code hash for an email, replacing any previous code.
func (r *AuthCodeRepository) Store(ctx context.Context, email, hash string, ttl time.Duration) error {
	if err := r.client.Set(ctx, authCodeKey(email), hash, ttl).Err(); err != nil {
		return fmt.Errorf("redis store auth code: %w", err)
	}
	return nil
}

// Get returns the stored code hash, or ErrCacheMiss when no code is
// pending for the email.
func (r *AuthCodeRepository) Get(ctx context.Context, email string) (string, error) {
	hash, err := r.client.Get(ctx, authCodeKey(email)).Result()
	if err != nil {
		if err == redis.Nil {
			return "", appErrors.ErrCacheMiss
		}
		return "", fmt.Errorf("redis get auth code: %w", err)
	}
	return hash, nil
}

// Delete removes the pending code after a successful verification.
func (r *AuthCodeRepository) Delete(ctx context.Context, email string) error {
	if err := r.client.Del(ctx, authCodeKey(email)).Err(); err != nil {
		return fmt.Errorf("redis delete auth code: %w", err)
	}
	return nil
}
