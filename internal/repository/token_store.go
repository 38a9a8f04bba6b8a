package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/acadchain-api/internal/models"
)

// ErrTokenNotFound is returned when a refresh token is absent or expired.
var ErrTokenNotFound = errors.New("refresh token not found")

// TokenStore keeps refresh-token sessions in Redis. Expiry is enforced by
// the key TTL, revocation by deleting the key; nothing lives in process
// memory.
type TokenStore struct {
	client *redis.Client
}

// NewTokenStore constructs the store.
func NewTokenStore(client *redis.Client) *TokenStore {
	return &TokenStore{client: client}
}

func tokenKey(token string) string {
	return "refresh_token:" + token
}

func userTokensKey(userID string) string {
	return "user_tokens:" + userID
}

// Save persists the token under its TTL and indexes it by user.
func (s *TokenStore) Save(ctx context.Context, token *models.RefreshToken) error {
	ttl := time.Until(token.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("refresh token already expired")
	}
	payload, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("encode refresh token: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, tokenKey(token.Token), payload, ttl)
	pipe.SAdd(ctx, userTokensKey(token.UserID), token.Token)
	pipe.Expire(ctx, userTokensKey(token.UserID), ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save refresh token: %w", err)
	}
	return nil
}

// Find loads a token session; expired tokens are simply gone.
func (s *TokenStore) Find(ctx context.Context, token string) (*models.RefreshToken, error) {
	payload, err := s.client.Get(ctx, tokenKey(token)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrTokenNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load refresh token: %w", err)
	}
	var stored models.RefreshToken
	if err := json.Unmarshal(payload, &stored); err != nil {
		return nil, fmt.Errorf("decode refresh token: %w", err)
	}
	return &stored, nil
}

// Revoke deletes a single token session.
func (s *TokenStore) Revoke(ctx context.Context, token string, userID string) error {
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, tokenKey(token))
	pipe.SRem(ctx, userTokensKey(userID), token)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}
	return nil
}

// RevokeAll deletes every session for a user.
func (s *TokenStore) RevokeAll(ctx context.Context, userID string) error {
	tokens, err := s.client.SMembers(ctx, userTokensKey(userID)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("list user tokens: %w", err)
	}
	pipe := s.client.TxPipeline()
	for _, token := range tokens {
		pipe.Del(ctx, tokenKey(token))
	}
	pipe.Del(ctx, userTokensKey(userID))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("revoke user tokens: %w", err)
	}
	return nil
}
