package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	redisv9 "github.com/redis/go-redis/v9"

	"research-assistant/internal/model"
)

// CheckpointCache keeps hot session histories in redis in front of the
// database checkpoint rows.
type CheckpointCache struct {
	client *redisv9.Client
	ttl    time.Duration
}

func NewCheckpointCache(client *redisv9.Client, ttl time.Duration) *CheckpointCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &CheckpointCache{client: client, ttl: ttl}
}

func (c *CheckpointCache) GetHistory(ctx context.Context, sessionID string) ([]model.Turn, bool, error) {
	raw, err := c.client.Get(ctx, c.key(sessionID)).Result()
	if err == redisv9.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get checkpoint failed: %w", err)
	}

	var turns []model.Turn
	if err := json.Unmarshal([]byte(raw), &turns); err != nil {
		return nil, false, fmt.Errorf("unmarshal cached checkpoint failed: %w", err)
	}
	return turns, true, nil
}

func (c *CheckpointCache) SetHistory(ctx context.Context, sessionID string, turns []model.Turn) error {
	payload, err := json.Marshal(turns)
	if err != nil {
		return fmt.Errorf("marshal checkpoint cache failed: %w", err)
	}
	if err := c.client.Set(ctx, c.key(sessionID), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set checkpoint failed: %w", err)
	}
	return nil
}

func (c *CheckpointCache) DeleteHistory(ctx context.Context, sessionID string) error {
	if err := c.client.Del(ctx, c.key(sessionID)).Err(); err != nil {
		return fmt.Errorf("redis delete checkpoint failed: %w", err)
	}
	return nil
}

func (c *CheckpointCache) key(sessionID string) string {
	return "assistant:checkpoint:" + sessionID
}
