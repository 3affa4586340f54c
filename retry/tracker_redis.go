package retry

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	attemptKeyPrefix = "callaudit:attempts:"
	// attemptTTL caps how long an abandoned counter lingers; any queue
	// redelivery window is far shorter.
	attemptTTL = 24 * time.Hour
)

// RedisTracker keeps attempt counts in Redis so the retry budget
// survives worker restarts.
type RedisTracker struct {
	client *redis.Client
}

func NewRedisTracker(connString string) (*RedisTracker, error) {
	opts, err := redis.ParseURL(connString)
	if err != nil {
		return nil, err
	}
	return &RedisTracker{client: redis.NewClient(opts)}, nil
}

func (t *RedisTracker) Increment(ctx context.Context, messageID string) (int, error) {
	key := attemptKeyPrefix + messageID
	count, err := t.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	t.client.Expire(ctx, key, attemptTTL)
	return int(count), nil
}

func (t *RedisTracker) Get(ctx context.Context, messageID string) (int, error) {
	count, err := t.client.Get(ctx, attemptKeyPrefix+messageID).Int()
	if err == redis.Nil {
		return 0, nil
	}
	return count, err
}

func (t *RedisTracker) Clear(ctx context.Context, messageID string) error {
	return t.client.Del(ctx, attemptKeyPrefix+messageID).Err()
}

func (t *RedisTracker) Close() error {
	return t.client.Close()
}
