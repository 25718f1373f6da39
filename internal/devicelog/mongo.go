package devicelog

import (
	"context"
	"fmt"

	"github.com/avvvet/pass-services/internal/db"
	"go.mongodb.org/mongo-driver/mongo"
)

const Collection = "device_logs"

// MongoSink keeps device messages in MongoDB until their expires_at passes.
type MongoSink struct {
	collection *mongo.Collection
}

func NewMongoSink(ctx context.Context, database *mongo.Database) (*MongoSink, error) {
	if err := db.CreateTTLIndexForCollection(ctx, database, Collection); err != nil {
		return nil, fmt.Errorf("create ttl index on %s: %w", Collection, err)
	}
	return &MongoSink{collection: database.Collection(Collection)}, nil
}

func (s *MongoSink) Record(ctx context.Context, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}
	docs := make([]interface{}, len(entries))
	for i := range entries {
		docs[i] = entries[i]
	}
	if _, err := s.collection.InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("insert device logs: %w", err)
	}
	return nil
}
