package paymentgateway

import (
	"context"
	"time"

	"github.com/ecolix/golang_services/internal/billing_service/domain"
	lru "github.com/hashicorp/golang-lru/v2/expirable"
)

// CallbackTokenStore keeps the notification token a provider issues at
// initiation so the callback carrying it can be matched. Get returns
// domain.ErrCallbackTokenNotFound for unknown or settled orders.
type CallbackTokenStore interface {
	Put(ctx context.Context, orderID, token string) error
	Get(ctx context.Context, orderID string) (string, error)
	Delete(ctx context.Context, orderID string) error
}

const (
	DefaultCallbackTokenTTL     = 24 * time.Hour
	defaultMemoryCallbackTokens = 10000
)

// MemoryCallbackTokenStore holds tokens in process. Callbacks must reach the
// replica that initiated the payment; use the Redis store with several replicas.
type MemoryCallbackTokenStore struct {
	tokens *lru.LRU[string, string]
}

func NewMemoryCallbackTokenStore(size int, ttl time.Duration) *MemoryCallbackTokenStore {
	if size <= 0 {
		size = defaultMemoryCallbackTokens
	}
	if ttl <= 0 {
		ttl = DefaultCallbackTokenTTL
	}
	return &MemoryCallbackTokenStore{tokens: lru.NewLRU[string, string](size, nil, ttl)}
}

func (s *MemoryCallbackTokenStore) Put(_ context.Context, orderID, token string) error {
	s.tokens.Add(orderID, token)
	return nil
}

func (s *MemoryCallbackTokenStore) Get(_ context.Context, orderID string) (string, error) {
	token, ok := s.tokens.Get(orderID)
	if !ok {
		return "", domain.ErrCallbackTokenNotFound
	}
	return token, nil
}

func (s *MemoryCallbackTokenStore) Delete(_ context.Context, orderID string) error {
	s.tokens.Remove(orderID)
	return nil
}
