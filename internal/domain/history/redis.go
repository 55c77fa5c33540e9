package history

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

type redisStore struct {
	client   *redis.Client
	key      string
	capacity int
}

// NewRedis constructs a redis-backed history store. Entries live in a single
// list trimmed to the configured capacity.
func NewRedis(cfg Config) (Store, error) {
	if cfg.Redis == nil {
		return nil, fmt.Errorf("redis configuration missing")
	}
	if cfg.Redis.Addr == "" {
		return nil, fmt.Errorf("redis address required")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Username: cfg.Redis.Username,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	prefix := cfg.Redis.Prefix
	if prefix == "" {
		prefix = "snapquiz:"
	}
	capacity := cfg.Capacity
	if capacity <= 0 {
		capacity = 100
	}

	return &redisStore{
		client:   client,
		key:      prefix + "history",
		capacity: capacity,
	}, nil
}

func (s *redisStore) Append(ctx context.Context, entry Entry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	pipe := s.client.TxPipeline()
	pipe.LPush(ctx, s.key, data)
	pipe.LTrim(ctx, s.key, 0, int64(s.capacity-1))
	_, err = pipe.Exec(ctx)
	return err
}

func (s *redisStore) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 || limit > s.capacity {
		limit = s.capacity
	}
	raw, err := s.client.LRange(ctx, s.key, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}

	out := make([]Entry, 0, len(raw))
	for _, item := range raw {
		var entry Entry
		if err := json.Unmarshal([]byte(item), &entry); err != nil {
			return nil, err
		}
		out = append(out, entry)
	}
	return out, nil
}

func (s *redisStore) Close(ctx context.Context) error {
	return s.client.Close()
}
