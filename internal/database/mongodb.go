package database

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/tenantly/authweb/pkg/logger"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ConnectMongo opens a connection and returns the client. Caller should call client.Disconnect(ctx).
func ConnectMongo(ctx context.Context, uri string, timeout time.Duration) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	return client, nil
}

// ConnectMongoWithRetry retries ConnectMongo with exponential backoff to
// tolerate the database starting after us.
func ConnectMongoWithRetry(ctx context.Context, uri string, timeout time.Duration, attempts uint64) (*mongo.Client, error) {
	var client *mongo.Client
	if attempts == 0 {
		attempts = 1
	}
	attempt := 0
	backoff := retry.WithMaxRetries(attempts-1, retry.NewExponential(time.Second))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		c, err := ConnectMongo(ctx, uri, timeout)
		if err != nil {
			logger.Warnf("attempt %d/%d: failed to connect to MongoDB: %v", attempt, attempts, err)
			return retry.RetryableError(err)
		}
		client = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return client, nil
}
