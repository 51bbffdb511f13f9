package staging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "catalog:staged:"

// RedisStore keeps staged imports in Redis. Expiry is left to key TTLs derived from
// ExpiresAt.
type RedisStore struct {
	client *redis.Client
}

// NewRedisClient parses a redis:// URL and pings the server
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}

// NewRedisStore creates a store on an existing client
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) key(id string) string {
	return redisKeyPrefix + id
}

// Save writes the import with a TTL matching its expiry
func (s *RedisStore) Save(ctx context.Context, imp *StagedImport) error {
	data, err := json.Marshal(imp)
	if err != nil {
		return fmt.Errorf("failed to encode staged import: %w", err)
	}
	if err := s.client.Set(ctx, s.key(imp.ID), data, s.ttl(imp)).Err(); err != nil {
		return fmt.Errorf("failed to store staged import %s: %w", imp.ID, err)
	}
	return nil
}

// Get reads an import
func (s *RedisStore) Get(ctx context.Context, id string) (*StagedImport, error) {
	data, err := s.client.Get(ctx, s.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read staged import %s: %w", id, err)
	}
	return decodeStaged(id, data)
}

// Transition uses WATCH/MULTI so two committers cannot both leave the staged state
func (s *RedisStore) Transition(ctx context.Context, id string, from, to State, mutate func(*StagedImport)) (*StagedImport, error) {
	key := s.key(id)
	var out *StagedImport

	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		if err != nil {
			return err
		}

		imp, err := decodeStaged(id, data)
		if err != nil {
			return err
		}
		if imp.State != from {
			return wrongState(id, imp.State, from)
		}

		imp.State = to
		if mutate != nil {
			mutate(imp)
		}
		encoded, err := json.Marshal(imp)
		if err != nil {
			return fmt.Errorf("failed to encode staged import: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, encoded, s.ttl(imp))
			return nil
		})
		if err != nil {
			return err
		}
		out = imp
		return nil
	}, key)

	if errors.Is(err, redis.TxFailedErr) {
		return nil, fmt.Errorf("%w: import %s changed concurrently", ErrNotStaged, id)
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteExpired is a no-op; Redis expires keys itself
func (s *RedisStore) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	return 0, nil
}

func (s *RedisStore) ttl(imp *StagedImport) time.Duration {
	if imp.ExpiresAt.IsZero() {
		return 0
	}
	ttl := time.Until(imp.ExpiresAt)
	if ttl < time.Second {
		ttl = time.Second
	}
	return ttl
}

func decodeStaged(id string, data []byte) (*StagedImport, error) {
	var imp StagedImport
	if err := json.Unmarshal(data, &imp); err != nil {
		return nil, fmt.Errorf("failed to decode staged import %s: %w", id, err)
	}
	return &imp, nil
}
