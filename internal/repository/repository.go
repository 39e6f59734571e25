package repository

import (
	"context"

	"github.com/brandonecarr/amosmiller-sub002/internal/domain"
)

// CartRepository stores one cart record per user.
// Consumers define this interface, not the MongoDB implementation
type CartRepository interface {
	GetCart(ctx context.Context, userID string) (*domain.CartRecord, error)
	// UpsertCart overwrites items and fulfillment of the user's record,
	// creating it if needed.
	UpsertCart(ctx context.Context, cart *domain.CartRecord) error
	DeleteCart(ctx context.Context, userID string) error
}
