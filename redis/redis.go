package redis

import (
	"context"
	"time"

	"short-link-service/config"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog/log"
)

// NewClient connects to Redis and verifies the connection with a ping.
// A failed ping is logged but not fatal: the cache layer treats an
// unreachable Redis as a permanent miss, and go-redis reconnects
// transparently once the server comes back.
func NewClient(cfg config.RedisConfig) *redis.Client {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Warn().Err(err).Str("address", cfg.Address).
			Msg("Redis unreachable, continuing without cache")
		return rdb
	}

	log.Info().Str("address", cfg.Address).Msg("Connected to Redis")
	return rdb
}
