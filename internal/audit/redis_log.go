package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisKey holds the list backing RedisLog.
const DefaultRedisKey = "chatdesk:queue-changes"

// RedisClient is the subset of go-redis commands RedisLog uses.
type RedisClient interface {
	LPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
	LTrim(ctx context.Context, key string, start, stop int64) *redis.StatusCmd
	LRange(ctx context.Context, key string, start, stop int64) *redis.StringSliceCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// RedisLog keeps the ring in a Redis list so every replica shares it. New
// entries are pushed on the head and the tail is trimmed to capacity.
type RedisLog struct {
	client   RedisClient
	key      string
	capacity int
}

// NewRedisLog builds a Redis-backed Log.
func NewRedisLog(client RedisClient, key string, capacity int) *RedisLog {
	if key == "" {
		key = DefaultRedisKey
	}
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &RedisLog{client: client, key: key, capacity: capacity}
}

func (r *RedisLog) Append(ctx context.Context, e Entry) error {
	raw, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal entry: %w", err)
	}
	if err := r.client.LPush(ctx, r.key, raw).Err(); err != nil {
		return fmt.Errorf("push entry: %w", err)
	}
	if err := r.client.LTrim(ctx, r.key, 0, int64(r.capacity-1)).Err(); err != nil {
		return fmt.Errorf("trim log: %w", err)
	}
	return nil
}

// Entries returns the held entries, oldest first.
func (r *RedisLog) Entries(ctx context.Context) ([]Entry, error) {
	raw, err := r.client.LRange(ctx, r.key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}
	out := make([]Entry, 0, len(raw))
	for i := len(raw) - 1; i >= 0; i-- {
		var e Entry
		if err := json.Unmarshal([]byte(raw[i]), &e); err != nil {
			return nil, fmt.Errorf("decode entry: %w", err)
		}
		out = append(out, e)
	}
	return out, nil
}

func (r *RedisLog) Clear(ctx context.Context) error {
	return r.client.Del(ctx, r.key).Err()
}
