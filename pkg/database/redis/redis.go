package redis

import (
	"context"
	"fmt"
	"net"

	"talentMarket/pkg/config"

	"github.com/redis/go-redis/v9"
)

// Options maps the redis section of the config onto client options.
func Options(cfg config.RedisConfig) *redis.Options {
	return &redis.Options{
		Addr:         net.JoinHostPort(cfg.Host, cfg.Port),
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.IOTimeout,
		WriteTimeout: cfg.IOTimeout,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: max(1, cfg.PoolSize/5),
	}
}

// NewRedisClient connects and pings within the dial timeout. A client that
// cannot be reached is closed and reported.
func NewRedisClient(cfg *config.Config) (*redis.Client, error) {
	opts := Options(cfg.Redis)
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), opts.DialTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", opts.Addr, err)
	}

	return client, nil
}

func CloseRedisClient(client *redis.Client) error {
	if client == nil {
		return nil
	}
	return client.Close()
}
