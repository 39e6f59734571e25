package repository

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const connectTimeout = 10 * time.Second

// ConnectMongoDB opens a client for the cart record store and checks that the
// primary answers. Release it with Disconnect.
func ConnectMongoDB(ctx context.Context, uri, database string) (*mongo.Database, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().
		ApplyURI(uri).
		SetAppName("cartd").
		SetRetryWrites(true).
		SetServerSelectionTimeout(5*time.Second).
		SetMaxPoolSize(50))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB at %s: %w", database, err)
	}
	return client.Database(database), nil
}

func Disconnect(ctx context.Context, db *mongo.Database) error {
	if err := db.Client().Disconnect(ctx); err != nil {
		return fmt.Errorf("failed to disconnect from MongoDB: %w", err)
	}
	return nil
}
