package securestore

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-redis/redis/v8"
)

// RedisMedium stores values as plain strings under a key prefix. It is a web
// platform backend for deployments that keep browser storage server side and
// is not secret-grade.
type RedisMedium struct {
	client *redis.Client
	prefix string
}

// RedisOptions configures a RedisMedium
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// NewRedisMedium connects to Redis and verifies the connection
func NewRedisMedium(ctx context.Context, opts RedisOptions) (*RedisMedium, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisMedium{client: client, prefix: opts.Prefix}, nil
}

func (r *RedisMedium) Name() string      { return "redis" }
func (r *RedisMedium) SecretGrade() bool { return false }

func (r *RedisMedium) Set(ctx context.Context, key, value string) error {
	if err := r.client.Set(ctx, r.prefix+key, value, 0).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (r *RedisMedium) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := r.client.Get(ctx, r.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis get: %w", err)
	}
	return value, true, nil
}

func (r *RedisMedium) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.prefix+key).Err(); err != nil {
		return fmt.Errorf("redis delete: %w", err)
	}
	return nil
}

// Close closes the Redis connection
func (r *RedisMedium) Close() error {
	return r.client.Close()
}
