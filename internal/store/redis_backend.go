package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	redisFieldData    = "data"
	redisFieldSavedAt = "saved_at"
	redisScanCount    = 100
)

// RedisOptions configures NewRedisBackend.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int

	// Prefix namespaces every key, e.g. "hosting-emissions:".
	Prefix string
}

// RedisBackend stores each key as a hash holding the JSON document and the
// time it was written.
type RedisBackend struct {
	client *redis.Client
	prefix string
}

// NewRedisBackend connects to Redis and verifies the connection with PING.
func NewRedisBackend(ctx context.Context, opts RedisOptions) (*RedisBackend, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", opts.Addr, err)
	}

	return &RedisBackend{client: client, prefix: opts.Prefix}, nil
}

// Get implements Backend.
func (b *RedisBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := b.client.HGet(ctx, b.prefix+key, redisFieldData).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get %s: %w", key, err)
	}
	return data, true, nil
}

// SetJSON implements Backend.
func (b *RedisBackend) SetJSON(ctx context.Context, key string, data []byte) error {
	err := b.client.HSet(ctx, b.prefix+key,
		redisFieldData, data,
		redisFieldSavedAt, time.Now().UTC().Format(time.RFC3339Nano),
	).Err()
	if err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Delete implements Backend.
func (b *RedisBackend) Delete(ctx context.Context, key string) error {
	if err := b.client.Del(ctx, b.prefix+key).Err(); err != nil {
		return fmt.Errorf("redis delete %s: %w", key, err)
	}
	return nil
}

// List implements Backend using SCAN, so it does not block the server on
// large keyspaces. The saved_at fields of each page are read in one
// pipeline.
func (b *RedisBackend) List(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	match := escapeGlob(b.prefix+prefix) + "*"

	var (
		infos  []ObjectInfo
		cursor uint64
	)
	for {
		keys, next, err := b.client.Scan(ctx, cursor, match, redisScanCount).Result()
		if err != nil {
			return nil, fmt.Errorf("redis list %s: %w", prefix, err)
		}
		if len(keys) > 0 {
			page, err := b.savedAt(ctx, keys)
			if err != nil {
				return nil, fmt.Errorf("redis list %s: %w", prefix, err)
			}
			infos = append(infos, page...)
		}
		if next == 0 {
			return infos, nil
		}
		cursor = next
	}
}

// savedAt reads the saved_at field of each full key. A key without the
// field gets a zero SavedAt.
func (b *RedisBackend) savedAt(ctx context.Context, keys []string) ([]ObjectInfo, error) {
	cmds := make([]*redis.StringCmd, len(keys))
	_, err := b.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, key := range keys {
			cmds[i] = pipe.HGet(ctx, key, redisFieldSavedAt)
		}
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, err
	}

	infos := make([]ObjectInfo, len(keys))
	for i, cmd := range cmds {
		infos[i] = ObjectInfo{Key: strings.TrimPrefix(keys[i], b.prefix)}

		raw, err := cmd.Result()
		switch {
		case errors.Is(err, redis.Nil):
		case err != nil:
			return nil, err
		default:
			if t, perr := time.Parse(time.RFC3339Nano, raw); perr == nil {
				infos[i].SavedAt = t
			}
		}
	}
	return infos, nil
}

// Ping checks the Redis connection.
func (b *RedisBackend) Ping(ctx context.Context) error {
	return b.client.Ping(ctx).Err()
}

// Close closes the Redis client.
func (b *RedisBackend) Close() error {
	return b.client.Close()
}

// escapeGlob quotes the characters SCAN MATCH treats as patterns.
func escapeGlob(s string) string {
	var sb strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\':
			sb.WriteRune('\\')
		}
		sb.WriteRune(r)
	}
	return sb.String()
}
