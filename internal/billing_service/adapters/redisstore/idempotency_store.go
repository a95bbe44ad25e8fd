package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ecolix/golang_services/internal/billing_service/domain"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

const (
	keyPrefix     = "billing:idempotency:"
	pendingPrefix = "pending:"

	DefaultPendingTTL = 2 * time.Minute
	DefaultResultTTL  = 24 * time.Hour
)

// ErrReservationLost is returned when a key no longer holds the caller's
// pending marker, because it expired and another caller reserved the key.
var ErrReservationLost = errors.New("idempotency reservation lost")

// completeScript stores the result only while the key still holds the
// caller's own pending marker.
var completeScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	redis.call("SET", KEYS[1], ARGV[2], "PX", ARGV[3])
	return 1
end
return 0
`)

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// IdempotencyStore keeps payment initiation results in Redis. A key first
// holds a pending marker unique to the reservation, then the JSON result once
// the provider call returns.
type IdempotencyStore struct {
	client     redis.Cmdable
	pendingTTL time.Duration
	resultTTL  time.Duration
	logger     *slog.Logger
}

func NewIdempotencyStore(client redis.Cmdable, pendingTTL, resultTTL time.Duration, logger *slog.Logger) *IdempotencyStore {
	if pendingTTL <= 0 {
		pendingTTL = DefaultPendingTTL
	}
	if resultTTL <= 0 {
		resultTTL = DefaultResultTTL
	}
	return &IdempotencyStore{
		client:     client,
		pendingTTL: pendingTTL,
		resultTTL:  resultTTL,
		logger:     logger.With("component", "idempotency_store"),
	}
}

func (s *IdempotencyStore) Reserve(ctx context.Context, key string) (*domain.PaymentInitiationResult, string, error) {
	redisKey := keyPrefix + key
	token := pendingPrefix + uuid.NewString()
	acquired, err := s.client.SetNX(ctx, redisKey, token, s.pendingTTL).Result()
	if err != nil {
		return nil, "", fmt.Errorf("reserve idempotency key: %w", err)
	}
	if acquired {
		return nil, token, nil
	}

	stored, err := s.client.Get(ctx, redisKey).Result()
	if errors.Is(err, redis.Nil) {
		// The pending marker expired between SETNX and GET.
		return nil, "", domain.ErrIdempotencyInFlight
	}
	if err != nil {
		return nil, "", fmt.Errorf("read idempotency key: %w", err)
	}
	if strings.HasPrefix(stored, pendingPrefix) {
		return nil, "", domain.ErrIdempotencyInFlight
	}

	var result domain.PaymentInitiationResult
	if err := json.Unmarshal([]byte(stored), &result); err != nil {
		return nil, "", fmt.Errorf("decode stored result for %s: %w", key, err)
	}
	s.logger.DebugContext(ctx, "Replaying stored payment initiation", "key", key)
	return &result, "", nil
}

func (s *IdempotencyStore) Complete(ctx context.Context, key, token string, result *domain.PaymentInitiationResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode result for %s: %w", key, err)
	}
	stored, err := completeScript.Run(ctx, s.client, []string{keyPrefix + key}, token, data, s.resultTTL.Milliseconds()).Int()
	if err != nil {
		return fmt.Errorf("store idempotency result: %w", err)
	}
	if stored == 0 {
		return fmt.Errorf("complete %s: %w", key, ErrReservationLost)
	}
	return nil
}

func (s *IdempotencyStore) Release(ctx context.Context, key, token string) error {
	deleted, err := releaseScript.Run(ctx, s.client, []string{keyPrefix + key}, token).Int()
	if err != nil {
		return fmt.Errorf("release idempotency key: %w", err)
	}
	if deleted == 0 {
		s.logger.WarnContext(ctx, "Idempotency key no longer held by this reservation", "key", key)
	}
	return nil
}
