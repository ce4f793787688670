package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cemonal1/Verbfy-sub006/internal/domain"
	"github.com/redis/go-redis/v9"
)

const (
	refreshPrefix = "auth:refresh:"
	resetPrefix   = "auth:reset:"
)

// TokenStore keeps single-use tokens; GETDEL makes consumption atomic.
type TokenStore struct {
	client redis.Cmdable
}

func NewTokenStore(client redis.Cmdable) *TokenStore {
	return &TokenStore{client: client}
}

func (s *TokenStore) SaveRefresh(ctx context.Context, tokenID, userID string, ttl time.Duration) error {
	return s.save(ctx, refreshPrefix+tokenID, userID, ttl)
}

func (s *TokenStore) ConsumeRefresh(ctx context.Context, tokenID string) (string, error) {
	return s.consume(ctx, refreshPrefix+tokenID)
}

func (s *TokenStore) SaveReset(ctx context.Context, token, userID string, ttl time.Duration) error {
	return s.save(ctx, resetPrefix+token, userID, ttl)
}

func (s *TokenStore) ConsumeReset(ctx context.Context, token string) (string, error) {
	return s.consume(ctx, resetPrefix+token)
}

func (s *TokenStore) save(ctx context.Context, key, userID string, ttl time.Duration) error {
	if err := s.client.Set(ctx, key, userID, ttl).Err(); err != nil {
		return fmt.Errorf("%w: store token: %v", domain.ErrRepository, err)
	}
	return nil
}

func (s *TokenStore) consume(ctx context.Context, key string) (string, error) {
	userID, err := s.client.GetDel(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", fmt.Errorf("%w: token is invalid or already used", domain.ErrUnauthorized)
	}
	if err != nil {
		return "", fmt.Errorf("%w: consume token: %v", domain.ErrRepository, err)
	}
	return userID, nil
}
