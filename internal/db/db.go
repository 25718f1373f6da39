// Package db holds the MongoDB connection used for device diagnostics.
package db

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ConnectToDB connects to the database named in the path of mongoURI.
func ConnectToDB(ctx context.Context, mongoURI string) (*mongo.Database, error) {
	uri, err := url.Parse(mongoURI)
	if err != nil {
		return nil, fmt.Errorf("parse MongoDB URI: %w", err)
	}

	dbName := strings.TrimPrefix(uri.Path, "/")
	if dbName == "" {
		return nil, fmt.Errorf("MongoDB URI has no database name")
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(mongoURI))
	if err != nil {
		return nil, fmt.Errorf("connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping MongoDB: %w", err)
	}

	return client.Database(dbName), nil
}

// Disconnect closes the client behind database.
func Disconnect(ctx context.Context, database *mongo.Database) error {
	return database.Client().Disconnect(ctx)
}

// CreateTTLIndexForCollection expires documents once their expires_at is reached.
func CreateTTLIndexForCollection(ctx context.Context, database *mongo.Database, collectionName string) error {
	collection := database.Collection(collectionName)

	indexModel := mongo.IndexModel{
		Keys:    bson.M{"expires_at": 1},
		Options: options.Index().SetExpireAfterSeconds(0), // 0 means that MongoDB will calculate the TTL based on the `ExpiresAt` field.
	}

	_, err := collection.Indexes().CreateOne(ctx, indexModel)
	return err
}
