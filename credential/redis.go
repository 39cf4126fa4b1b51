package credential

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisKey is the hash holding every record when no key is configured.
const DefaultRedisKey = "tg:cred"

// Redis stores records as fields of a single Redis hash.
type Redis struct {
	redis redis.UniversalClient
	key   string
}

// NewRedis returns a store writing to hash key. An empty key uses DefaultRedisKey.
func NewRedis(client redis.UniversalClient, key string) *Redis {
	if key == "" {
		key = DefaultRedisKey
	}
	return &Redis{redis: client, key: key}
}

// Lookup implements Store.
func (r *Redis) Lookup(ctx context.Context, username string) (*Record, error) {
	data, err := r.redis.HGet(ctx, r.key, username).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return decodeRecord(data)
}

// Insert implements Store. HSETNX makes the existence check and the write a
// single server-side step.
func (r *Redis) Insert(ctx context.Context, record Record) error {
	encoded, err := encodeRecord(record)
	if err != nil {
		return err
	}

	created, err := r.redis.HSetNX(ctx, r.key, record.Username, encoded).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if !created {
		return ErrDuplicate
	}
	return nil
}

// Exists implements Store.
func (r *Redis) Exists(ctx context.Context, username string) (bool, error) {
	ok, err := r.redis.HExists(ctx, r.key, username).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return ok, nil
}

// List implements Store. Records are ordered by creation time, then username.
func (r *Redis) List(ctx context.Context) ([]Record, error) {
	all, err := r.redis.HGetAll(ctx, r.key).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	out := make([]Record, 0, len(all))
	for _, data := range all {
		record, err := decodeRecord([]byte(data))
		if err != nil {
			return nil, err
		}
		out = append(out, *record)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].Username < out[j].Username
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}
