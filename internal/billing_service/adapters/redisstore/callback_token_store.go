package redisstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ecolix/golang_services/internal/billing_service/domain"
	"github.com/go-redis/redis/v8"
)

const callbackTokenPrefix = "billing:callback-token:"

// CallbackTokenStore keeps provider notification tokens in Redis so any
// replica can match a callback.
type CallbackTokenStore struct {
	client redis.Cmdable
	ttl    time.Duration
}

func NewCallbackTokenStore(client redis.Cmdable, ttl time.Duration) *CallbackTokenStore {
	if ttl <= 0 {
		ttl = DefaultResultTTL
	}
	return &CallbackTokenStore{client: client, ttl: ttl}
}

func (s *CallbackTokenStore) Put(ctx context.Context, orderID, token string) error {
	if err := s.client.Set(ctx, callbackTokenPrefix+orderID, token, s.ttl).Err(); err != nil {
		return fmt.Errorf("store callback token: %w", err)
	}
	return nil
}

func (s *CallbackTokenStore) Get(ctx context.Context, orderID string) (string, error) {
	token, err := s.client.Get(ctx, callbackTokenPrefix+orderID).Result()
	if errors.Is(err, redis.Nil) {
		return "", domain.ErrCallbackTokenNotFound
	}
	if err != nil {
		return "", fmt.Errorf("read callback token: %w", err)
	}
	return token, nil
}

func (s *CallbackTokenStore) Delete(ctx context.Context, orderID string) error {
	if err := s.client.Del(ctx, callbackTokenPrefix+orderID).Err(); err != nil {
		return fmt.Errorf("delete callback token: %w", err)
	}
	return nil
}
