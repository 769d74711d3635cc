package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"riskierwas/internal/engine"
	"riskierwas/internal/model"
	"time"

	"github.com/redis/go-redis/v9"
)

// GameCache keeps game metadata and the last viewer snapshot in Redis so
// displays that join late, or poll, get the current board without touching
// the engine.
type GameCache interface {
	SetMeta(ctx context.Context, game *model.Game) error
	GetMeta(ctx context.Context, code string) (*model.Game, error)
	SetSnapshot(ctx context.Context, code string, snap engine.Snapshot) error
	GetSnapshot(ctx context.Context, code string) (*engine.Snapshot, error)
	Delete(ctx context.Context, code string) error
	Exists(ctx context.Context, code string) (bool, error)
}

type gameCache struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewGameCache creates a new game cache
func NewGameCache(client redis.UniversalClient) GameCache {
	return &gameCache{
		client: client,
		ttl:    24 * time.Hour, // Games expire after 24h
	}
}

func (c *gameCache) key(code string) string {
	return fmt.Sprintf("game:%s", code)
}

func (c *gameCache) snapshotKey(code string) string {
	return fmt.Sprintf("game:%s:snapshot", code)
}

func (c *gameCache) SetMeta(ctx context.Context, game *model.Game) error {
	data, err := json.Marshal(game)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key(game.Code), data, c.ttl).Err()
}

func (c *gameCache) GetMeta(ctx context.Context, code string) (*model.Game, error) {
	data, err := c.client.Get(ctx, c.key(code)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var game model.Game
	if err := json.Unmarshal(data, &game); err != nil {
		return nil, err
	}
	return &game, nil
}

// SetSnapshot stores the viewer projection; the host view never leaves memory
func (c *gameCache) SetSnapshot(ctx context.Context, code string, snap engine.Snapshot) error {
	data, err := json.Marshal(snap.ForViewer())
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.snapshotKey(code), data, c.ttl).Err()
}

func (c *gameCache) GetSnapshot(ctx context.Context, code string) (*engine.Snapshot, error) {
	data, err := c.client.Get(ctx, c.snapshotKey(code)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var snap engine.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

func (c *gameCache) Delete(ctx context.Context, code string) error {
	return c.client.Del(ctx, c.key(code), c.snapshotKey(code)).Err()
}

func (c *gameCache) Exists(ctx context.Context, code string) (bool, error) {
	n, err := c.client.Exists(ctx, c.key(code)).Result()
	return n > 0, err
}
