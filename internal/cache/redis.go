package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore is the Store backed by a shared Redis deployment
type RedisStore struct {
	client *redis.Client
}

func NewRedisClient(redisURL string) (*RedisStore, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opt)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	return &RedisStore{client: client}, nil
}

// NewRedisStore wraps an existing client
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (c *RedisStore) Get(ctx context.Context, key string) (string, error) {
	value, err := c.client.Get(ctx, key).Result()
	return value, notFound(key, err)
}

func (c *RedisStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return c.client.Set(ctx, key, value, ttl).Err()
}

func (c *RedisStore) Expire(ctx context.Context, key string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return c.client.Expire(ctx, key, ttl).Err()
}

func (c *RedisStore) HGet(ctx context.Context, key, field string) (string, error) {
	value, err := c.client.HGet(ctx, key, field).Result()
	return value, notFound(key+"."+field, err)
}

func (c *RedisStore) HSet(ctx context.Context, key, field, value string) error {
	return c.client.HSet(ctx, key, field, value).Err()
}

func (c *RedisStore) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	return c.client.HGetAll(ctx, key).Result()
}

func (c *RedisStore) LPush(ctx context.Context, key string, values ...string) error {
	return c.client.LPush(ctx, key, toArgs(values)...).Err()
}

func (c *RedisStore) LRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	return c.client.LRange(ctx, key, start, stop).Result()
}

func (c *RedisStore) LLen(ctx context.Context, key string) (int64, error) {
	return c.client.LLen(ctx, key).Result()
}

func (c *RedisStore) LTrim(ctx context.Context, key string, start, stop int64) error {
	return c.client.LTrim(ctx, key, start, stop).Err()
}

// Exec runs the batch inside MULTI/EXEC
func (c *RedisStore) Exec(ctx context.Context, batch *Batch) error {
	if batch.Len() == 0 {
		return nil
	}
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, op := range batch.Ops() {
			switch op.Kind {
			case OpDelete:
				pipe.Del(ctx, op.Key)
			case OpRPush:
				pipe.RPush(ctx, op.Key, toArgs(op.Values)...)
			case OpSet:
				pipe.Set(ctx, op.Key, op.Value, op.TTL)
			case OpExpire:
				if op.TTL > 0 {
					pipe.Expire(ctx, op.Key, op.TTL)
				}
			case OpHSet:
				pipe.HSet(ctx, op.Key, op.Field, op.Value)
			default:
				return fmt.Errorf("unknown batch op %d", op.Kind)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to exec batch: %w", err)
	}
	return nil
}

func (c *RedisStore) Close() error {
	return c.client.Close()
}

func (c *RedisStore) HealthCheck() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return c.client.Ping(ctx).Err()
}

func notFound(key string, err error) error {
	if errors.Is(err, redis.Nil) {
		return fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err != nil {
		return fmt.Errorf("failed to read key %s: %w", key, err)
	}
	return nil
}

func toArgs(values []string) []interface{} {
	args := make([]interface{}, len(values))
	for i, v := range values {
		args[i] = v
	}
	return args
}
