package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/brandonecarr/amosmiller-sub002/internal/domain"
	"github.com/redis/go-redis/v9"
)

const (
	defaultTTL = 15 * time.Minute
	maxJitter  = 5 // minutes
)

func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{
		client:  client,
		baseTTL: defaultTTL,
	}
}

type RedisCache struct {
	client  *redis.Client
	baseTTL time.Duration
}

func (r RedisCache) Get(ctx context.Context, userID string) (*domain.CartRecord, error) {
	data, err := r.client.Get(ctx, cacheKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var cart domain.CartRecord
	if err := json.Unmarshal(data, &cart); err != nil {
		return nil, fmt.Errorf("unmarshal cart failed: %w", err)
	}
	if cart.Items == nil {
		cart.Items = []domain.LineItem{}
	}

	return &cart, nil
}

// Set stores the record with a jittered TTL so that carts cached together do
// not expire together.
func (r RedisCache) Set(ctx context.Context, userID string, cart *domain.CartRecord) error {
	payload, err := json.Marshal(cart)
	if err != nil {
		return fmt.Errorf("marshal cart failed: %w", err)
	}

	ttl := r.baseTTL + time.Duration(rand.Intn(maxJitter))*time.Minute
	if err := r.client.Set(ctx, cacheKey(userID), payload, ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (r RedisCache) Delete(ctx context.Context, userID string) error {
	if err := r.client.Del(ctx, cacheKey(userID)).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}

	return nil
}

func cacheKey(userID string) string {
	return fmt.Sprintf("cart:%s", userID)
}
