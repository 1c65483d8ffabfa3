package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/GoStableSwap/riskgate/internal/middleware"
	"github.com/GoStableSwap/riskgate/internal/pkg/logger"
	"github.com/redis/go-redis/v9"
)

// RedisIdempotencyStore shares ingestion idempotency state across replicas.
type RedisIdempotencyStore struct {
	client *RedisClient
	ttl    time.Duration
	prefix string
}

func NewRedisIdempotencyStore(client *RedisClient, ttlSeconds int) *RedisIdempotencyStore {
	if ttlSeconds <= 0 {
		ttlSeconds = 86400
	}
	return &RedisIdempotencyStore{
		client: client,
		ttl:    time.Duration(ttlSeconds) * time.Second,
		prefix: "idem:",
	}
}

func (s *RedisIdempotencyStore) GetOrLock(key string) (*middleware.IdempotencyRecord, bool) {
	ctx, cancel := s.ctx()
	defer cancel()

	lock := middleware.IdempotencyRecord{Processing: true, CreatedAt: time.Now()}
	payload, _ := json.Marshal(lock)

	acquired, err := s.client.Client.SetNX(ctx, s.prefix+key, payload, s.ttl).Result()
	if err != nil {
		logger.Warn("redis idempotency lock failed, proceeding unlocked", "error", err.Error())
		return nil, false
	}
	if acquired {
		return nil, false
	}

	val, err := s.client.Client.Get(ctx, s.prefix+key).Result()
	if err != nil {
		if err != redis.Nil {
			logger.Warn("redis idempotency read failed", "error", err.Error())
		}
		return nil, false
	}

	var rec middleware.IdempotencyRecord
	if err := json.Unmarshal([]byte(val), &rec); err != nil {
		return nil, false
	}
	return &rec, true
}

func (s *RedisIdempotencyStore) Save(key string, status int, body []byte) {
	ctx, cancel := s.ctx()
	defer cancel()

	rec := middleware.IdempotencyRecord{
		Status:    status,
		Body:      body,
		CreatedAt: time.Now(),
	}
	payload, _ := json.Marshal(rec)
	if err := s.client.Client.Set(ctx, s.prefix+key, payload, s.ttl).Err(); err != nil {
		logger.Warn("redis idempotency save failed", "error", err.Error())
	}
}

func (s *RedisIdempotencyStore) Unlock(key string) {
	ctx, cancel := s.ctx()
	defer cancel()
	_ = s.client.Client.Del(ctx, s.prefix+key).Err()
}

func (s *RedisIdempotencyStore) ctx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 2*time.Second)
}
