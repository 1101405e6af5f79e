package sessions

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisRevoker stores revoked session ids under "<prefix><id>" with a TTL
// ending when the container expires.
type RedisRevoker struct {
	client *redis.Client
	prefix string
}

// NewRedisRevoker creates a Redis-backed Revoker. Prefix may be empty.
func NewRedisRevoker(client *redis.Client, prefix string) *RedisRevoker {
	if prefix == "" {
		prefix = "revoked:session:"
	}
	return &RedisRevoker{client: client, prefix: prefix}
}

func (r *RedisRevoker) key(id string) string {
	return r.prefix + id
}

func (r *RedisRevoker) Revoke(ctx context.Context, id string, until time.Time) error {
	ttl := time.Until(until)
	if ttl <= 0 {
		// container already unusable
		return nil
	}
	return r.client.Set(ctx, r.key(id), "1", ttl).Err()
}

func (r *RedisRevoker) IsRevoked(ctx context.Context, id string) (bool, error) {
	n, err := r.client.Exists(ctx, r.key(id)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
