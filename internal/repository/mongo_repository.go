package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/brandonecarr/amosmiller-sub002/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var ErrCartNotFound = errors.New("cart not found")

// cartTTL drops records nobody has touched for a season.
const cartTTL = 90 * 24 * time.Hour

type MongoRepository struct {
	collection *mongo.Collection
}

func (m MongoRepository) GetCart(ctx context.Context, userID string) (*domain.CartRecord, error) {
	var cart domain.CartRecord

	filter := bson.M{"user_id": userID}
	err := m.collection.FindOne(ctx, filter).Decode(&cart)

	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrCartNotFound
		}
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}
	if cart.Items == nil {
		cart.Items = []domain.LineItem{}
	}

	return &cart, nil
}

func (m MongoRepository) UpsertCart(ctx context.Context, cart *domain.CartRecord) error {
	now := time.Now().UTC()

	if cart.CreatedAt.IsZero() {
		cart.CreatedAt = now
	}
	cart.UpdatedAt = now
	items := cart.Items
	if items == nil {
		items = []domain.LineItem{}
	}

	filter := bson.M{"user_id": cart.UserID}
	update := bson.M{
		"$set": bson.M{
			"items":       items,
			"fulfillment": cart.Fulfillment,
			"updated_at":  cart.UpdatedAt,
		},
		"$setOnInsert": bson.M{
			"user_id":    cart.UserID,
			"created_at": cart.CreatedAt,
		},
	}
	opts := options.Update().SetUpsert(true)

	_, err := m.collection.UpdateOne(ctx, filter, update, opts)
	if err != nil {
		return fmt.Errorf("failed to upsert cart: %w", err)
	}

	return nil
}

func (m MongoRepository) DeleteCart(ctx context.Context, userID string) error {
	filter := bson.M{"user_id": userID}

	result, err := m.collection.DeleteOne(ctx, filter)
	if err != nil {
		return fmt.Errorf("failed to delete cart: %w", err)
	}

	if result.DeletedCount == 0 {
		return ErrCartNotFound
	}

	return nil
}

func (m *MongoRepository) CreateIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "updated_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(int32(cartTTL.Seconds())),
		},
	}

	_, err := m.collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	return nil
}

// NewMongoRepository returns the repository backed by the "carts" collection.
func NewMongoRepository(db *mongo.Database) *MongoRepository {
	return &MongoRepository{
		collection: db.Collection("carts"),
	}
}
