package rediskv

import (
	"context"
	"errors"
	"fmt"

	"github.com/ark-network/noted/internal/core/ports"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "noted:"

type store struct {
	rdb *redis.Client
}

// NewStore expects a redis url, eg. redis://localhost:6379/0.
func NewStore(config ...interface{}) (ports.KVStore, error) {
	if len(config) != 1 {
		return nil, fmt.Errorf("invalid config")
	}
	url, ok := config[0].(string)
	if !ok || len(url) <= 0 {
		return nil, fmt.Errorf("invalid redis url")
	}

	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return &store{rdb}, nil
}

func (s *store) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := s.rdb.Get(ctx, keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return value, nil
}

func (s *store) Set(ctx context.Context, key string, value []byte) error {
	return s.rdb.Set(ctx, keyPrefix+key, value, 0).Err()
}

func (s *store) Close() error {
	return s.rdb.Close()
}
