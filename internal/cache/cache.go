package cache

import (
	"context"
	"errors"

	"github.com/brandonecarr/amosmiller-sub002/internal/domain"
)

// CartCache is a read-through cache in front of the cart record repository.
type CartCache interface {
	Get(ctx context.Context, userID string) (*domain.CartRecord, error)
	Set(ctx context.Context, userID string, cart *domain.CartRecord) error
	Delete(ctx context.Context, userID string) error
}

var ErrCacheMiss = errors.New("cache miss")
