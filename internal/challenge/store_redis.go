package challenge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"vigil/pkg/platform/sentinel"
	"vigil/pkg/requestcontext"
)

const challengeKeyPrefix = "otp:target:"

// RedisStore is the production implementation for distributed deployments.
// Expiry is delegated to Redis key TTLs and Consume uses GETDEL, so replayed
// codes lose the race even across instances.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Put(ctx context.Context, target string, ch Challenge) error {
	payload, err := json.Marshal(ch)
	if err != nil {
		return fmt.Errorf("marshal challenge: %w", err)
	}
	ttl := time.Until(ch.ExpiresAt)
	if now := requestcontext.Now(ctx); ch.ExpiresAt.After(now) {
		ttl = ch.ExpiresAt.Sub(now)
	}
	if ttl <= 0 {
		return nil
	}
	return s.client.Set(ctx, challengeKeyPrefix+target, payload, ttl).Err()
}

func (s *RedisStore) Get(ctx context.Context, target string) (Challenge, error) {
	payload, err := s.client.Get(ctx, challengeKeyPrefix+target).Bytes()
	if errors.Is(err, redis.Nil) {
		return Challenge{}, sentinel.ErrNotFound
	}
	if err != nil {
		return Challenge{}, fmt.Errorf("get challenge: %w", err)
	}
	return unmarshalChallenge(payload)
}

func (s *RedisStore) Consume(ctx context.Context, target string) (Challenge, error) {
	payload, err := s.client.GetDel(ctx, challengeKeyPrefix+target).Bytes()
	if errors.Is(err, redis.Nil) {
		return Challenge{}, sentinel.ErrNotFound
	}
	if err != nil {
		return Challenge{}, fmt.Errorf("consume challenge: %w", err)
	}
	return unmarshalChallenge(payload)
}

func unmarshalChallenge(payload []byte) (Challenge, error) {
	var ch Challenge
	if err := json.Unmarshal(payload, &ch); err != nil {
		return Challenge{}, fmt.Errorf("unmarshal challenge: %w", err)
	}
	return ch, nil
}
