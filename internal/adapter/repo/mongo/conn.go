// Package mongo stores interviews, practice sessions and users in MongoDB, one document per
// aggregate. Every mutation is a single update on one document.
package mongo

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	interviewsCollection = "interviews"
	practiceCollection   = "practicesessions"
	usersCollection      = "users"
)

// Connect dials uri and waits, with exponential backoff, until the primary answers a ping.
func Connect(ctx context.Context, uri, database string) (*mongo.Client, *mongo.Database, error) {
	opts := options.Client().
		ApplyURI(uri).
		SetServerSelectionTimeout(5 * time.Second).
		SetMaxPoolSize(20)
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, nil, fmt.Errorf("op=mongo.Connect: %w", err)
	}

	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = 250 * time.Millisecond
	expo.MaxElapsedTime = 30 * time.Second
	ping := func() error {
		pctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		return client.Ping(pctx, nil)
	}
	notify := func(err error, d time.Duration) {
		slog.Warn("mongo not ready, retrying", slog.Any("error", err), slog.Duration("backoff", d))
	}
	if err := backoff.RetryNotify(ping, backoff.WithContext(expo, ctx), notify); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("op=mongo.Connect: ping: %w", err)
	}
	return client, client.Database(database), nil
}

// EnsureIndexes creates the history and uniqueness indexes. It is idempotent.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	specs := map[string][]mongo.IndexModel{
		interviewsCollection: {{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}}}},
		practiceCollection:   {{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "updatedAt", Value: -1}}}},
		usersCollection: {{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true),
		}},
	}
	for coll, models := range specs {
		if _, err := db.Collection(coll).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("op=mongo.EnsureIndexes: %s: %w", coll, err)
		}
	}
	return nil
}
