package throttle

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis is a Limiter shared by every replica. The window starts at the
// first attempt and the key expires with it.
type Redis struct {
	client *redis.Client
	prefix string
	max    int
	window time.Duration
}

func NewRedis(client *redis.Client, prefix string, max int, window time.Duration) *Redis {
	return &Redis{client: client, prefix: prefix, max: max, window: window}
}

func (r *Redis) Allow(ctx context.Context, key string) (bool, error) {
	key = r.prefix + key

	// INCR and EXPIRE NX go out in one MULTI so a counter never outlives
	// its window without a TTL.
	var incr *redis.IntCmd
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		pipe.ExpireNX(ctx, key, r.window)
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return incr.Val() <= int64(r.max), nil
}

// Ping reports whether redis is reachable.
func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
