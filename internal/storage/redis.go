package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Redis namespaces device storage under one device id, for terminals (POS,
// market kiosks) that share a Redis instance instead of a local disk.
type Redis struct {
	client   *redis.Client
	deviceID string
}

func NewRedis(client *redis.Client, deviceID string) *Redis {
	return &Redis{client: client, deviceID: deviceID}
}

func (r *Redis) Get(key string) (string, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	value, err := r.client.Get(ctx, r.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis get failed: %w", err)
	}
	return value, true, nil
}

// Set stores without expiry; a device cart lives until it is overwritten.
func (r *Redis) Set(key, value string) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if err := r.client.Set(ctx, r.key(key), value, 0).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (r *Redis) key(key string) string {
	return fmt.Sprintf("device:%s:%s", r.deviceID, key)
}
