package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/luchovc/agency-portal/internal"
	"github.com/luchovc/agency-portal/internal/auth"
)

// ActorCache caches the per-user authorization context in redis so the auth
// middleware does not hit the database on every request. Entries are purged
// when a role change invalidates the user's sessions. All failures degrade
// to a cache miss.
type ActorCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewRedisClient builds a redis client from config and pings it with a short
// timeout. Returns nil when the server is unreachable; callers treat a nil
// client as "caching disabled".
func NewRedisClient(cfg internal.RedisConfig) *redis.Client {
	if !cfg.Enabled {
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil
	}
	return client
}

func NewActorCache(client *redis.Client, ttl time.Duration, logger *slog.Logger) *ActorCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &ActorCache{client: client, ttl: ttl, logger: logger}
}

func actorKey(userID int64) string {
	return fmt.Sprintf("actor:%d", userID)
}

func (c *ActorCache) Get(ctx context.Context, userID int64) (*auth.Actor, bool) {
	raw, err := c.client.Get(ctx, actorKey(userID)).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("actor cache read failed", "error", err, "user_id", userID)
		}
		return nil, false
	}

	var actor auth.Actor
	if err := json.Unmarshal(raw, &actor); err != nil {
		c.logger.Warn("actor cache entry corrupt, dropping", "error", err, "user_id", userID)
		c.Purge(ctx, userID)
		return nil, false
	}
	return &actor, true
}

func (c *ActorCache) Set(ctx context.Context, actor *auth.Actor) {
	raw, err := json.Marshal(actor)
	if err != nil {
		c.logger.Warn("actor cache marshal failed", "error", err, "user_id", actor.ID)
		return
	}
	if err := c.client.Set(ctx, actorKey(actor.ID), raw, c.ttl).Err(); err != nil {
		c.logger.Warn("actor cache write failed", "error", err, "user_id", actor.ID)
	}
}

func (c *ActorCache) Purge(ctx context.Context, userID int64) {
	if err := c.client.Del(ctx, actorKey(userID)).Err(); err != nil {
		c.logger.Warn("actor cache purge failed", "error", err, "user_id", userID)
	}
}
