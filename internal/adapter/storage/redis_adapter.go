package storage

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultIdempotencyTTL = 24 * time.Hour

	// pendingMarker is stored under a claimed key until the order id is known.
	pendingMarker = "0"
)

// releasePendingScript deletes a key only while it still holds the pending
// marker, so a completed request is never released by a late failure.
var releasePendingScript = redis.NewScript(`
local key = KEYS[1]
local marker = ARGV[1]

if redis.call('GET', key) == marker then
	return redis.call('DEL', key)
end

return 0
`)

type RedisAdapter struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisAdapter(client *redis.Client, ttl time.Duration) *RedisAdapter {
	if ttl <= 0 {
		ttl = defaultIdempotencyTTL
	}
	return &RedisAdapter{client: client, ttl: ttl}
}

func (r *RedisAdapter) SetIdempotency(ctx context.Context, key string) (bool, error) {
	ok, err := r.client.SetNX(ctx, key, pendingMarker, r.ttl).Result()
	if err != nil {
		return false, err
	}

	return ok, nil
}

// CompleteIdempotency overwrites the pending marker with the order id and
// keeps the original expiry. A key that already expired is left absent.
func (r *RedisAdapter) CompleteIdempotency(ctx context.Context, key string, orderID int64) error {
	err := r.client.SetArgs(ctx, key, orderID, redis.SetArgs{Mode: "XX", KeepTTL: true}).Err()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	return err
}

func (r *RedisAdapter) LookupIdempotency(ctx context.Context, key string) (int64, bool, error) {
	orderID, err := r.client.Get(ctx, key).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}

	return orderID, orderID > 0, nil
}

func (r *RedisAdapter) ReleaseIdempotency(ctx context.Context, key string) error {
	return releasePendingScript.Run(ctx, r.client, []string{key}, pendingMarker).Err()
}

func (r *RedisAdapter) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
