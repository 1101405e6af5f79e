package database

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sethvargo/go-retry"
	"github.com/tenantly/authweb/pkg/logger"
)

// ConnectRedis creates a client and pings it, retrying with exponential
// backoff. The client is closed when every attempt fails.
func ConnectRedis(ctx context.Context, opts *redis.Options, attempts uint64) (*redis.Client, error) {
	client := redis.NewClient(opts)
	if attempts == 0 {
		attempts = 1
	}
	attempt := 0
	backoff := retry.WithMaxRetries(attempts-1, retry.NewExponential(500*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		if err := client.Ping(ctx).Err(); err != nil {
			logger.Warnf("attempt %d/%d: failed to ping Redis at %s: %v", attempt, attempts, opts.Addr, err)
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis %s: %w", opts.Addr, err)
	}
	return client, nil
}
