package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	defaultMongoDatabase   = "abapdoc"
	defaultMongoCollection = "cache"
)

// mongoEntry is the document layout used by MongoCache. Expiration is
// checked on read because not every deployment configures a TTL index
// on expires_at.
type mongoEntry struct {
	Key       string    `bson:"_id"`
	Data      []byte    `bson:"data"`
	ExpiresAt time.Time `bson:"expires_at,omitempty"`
}

// MongoCache stores entries in a MongoDB collection keyed by cache key.
type MongoCache struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// NewMongoCache connects to MongoDB and returns a cache backed by the
// given database and collection. Empty database or collection names
// fall back to "abapdoc" and "cache".
func NewMongoCache(ctx context.Context, uri, database, collection string) (*MongoCache, error) {
	if database == "" {
		database = defaultMongoDatabase
	}
	if collection == "" {
		collection = defaultMongoCollection
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongodb: %w", err)
	}
	return &MongoCache{
		client:     client,
		collection: client.Database(database).Collection(collection),
	}, nil
}

// Get retrieves a value. Missing documents and expired entries are
// plain misses; expired entries are removed best-effort.
func (c *MongoCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var entry mongoEntry
	err := c.collection.FindOne(ctx, bson.M{"_id": key}).Decode(&entry)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("mongodb find: %w", err)
	}
	if !entry.ExpiresAt.IsZero() && time.Now().After(entry.ExpiresAt) {
		_, _ = c.collection.DeleteOne(ctx, bson.M{"_id": key})
		return nil, false, nil
	}
	return entry.Data, true, nil
}

// Set stores a value, replacing any existing entry for the key. A ttl
// of 0 stores the entry without expiration.
func (c *MongoCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	entry := mongoEntry{Key: key, Data: data}
	if ttl > 0 {
		entry.ExpiresAt = time.Now().Add(ttl)
	}
	_, err := c.collection.ReplaceOne(ctx, bson.M{"_id": key}, entry, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("mongodb replace: %w", err)
	}
	return nil
}

// Delete removes a value. Deleting a missing key is not an error.
func (c *MongoCache) Delete(ctx context.Context, key string) error {
	if _, err := c.collection.DeleteOne(ctx, bson.M{"_id": key}); err != nil {
		return fmt.Errorf("mongodb delete: %w", err)
	}
	return nil
}

// Close disconnects from the server.
func (c *MongoCache) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return c.client.Disconnect(ctx)
}

// Ensure MongoCache implements Cache.
var _ Cache = (*MongoCache)(nil)
