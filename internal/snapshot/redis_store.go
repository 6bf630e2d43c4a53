package snapshot

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/krobus00/trading-client/internal/entity"
	"github.com/redis/go-redis/v9"
)

// RedisOrderStore keeps one hash per connector holding the serialized form
// of every non-terminal order, so tracking state survives a restart.
type RedisOrderStore struct {
	client *redis.Client
	key    string
}

func NewRedisOrderStore(cacheDSN string, exchange string) (*RedisOrderStore, error) {
	if cacheDSN == "" {
		return nil, fmt.Errorf("redis cache_dsn is required")
	}

	options, err := redis.ParseURL(cacheDSN)
	if err != nil {
		return nil, fmt.Errorf("parse redis cache_dsn: %w", err)
	}

	return &RedisOrderStore{
		client: redis.NewClient(options),
		key:    fmt.Sprintf("order_tracker:in_flight:%s", exchange),
	}, nil
}

func (s *RedisOrderStore) Save(ctx context.Context, snapshot entity.OrderSnapshot) error {
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}

	return s.client.HSet(ctx, s.key, snapshot.ClientOrderID, payload).Err()
}

func (s *RedisOrderStore) Delete(ctx context.Context, clientOrderID string) error {
	return s.client.HDel(ctx, s.key, clientOrderID).Err()
}

func (s *RedisOrderStore) LoadAll(ctx context.Context) ([]entity.OrderSnapshot, error) {
	raw, err := s.client.HGetAll(ctx, s.key).Result()
	if err != nil {
		return nil, err
	}

	snapshots := make([]entity.OrderSnapshot, 0, len(raw))
	for _, payload := range raw {
		var snapshot entity.OrderSnapshot
		if err := json.Unmarshal([]byte(payload), &snapshot); err != nil {
			return nil, err
		}
		snapshots = append(snapshots, snapshot)
	}

	return snapshots, nil
}

func (s *RedisOrderStore) Close() error {
	return s.client.Close()
}
