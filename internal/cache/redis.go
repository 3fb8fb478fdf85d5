package cache

import (
	"context"
	"fmt"

	"bakingai/internal/config"
	"bakingai/internal/logger"

	"github.com/redis/go-redis/v9"
)

// NewRedisClient connects to the Redis named by R_HOST, R_PORT and R_PASS and
// checks the connection.
func NewRedisClient(ctx context.Context) (*redis.Client, error) {
	host, port, password := config.RedisConfig()

	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", host, port),
		Password: password,
		DB:       0,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Get().Info("Connection to Redis successful")
	return client, nil
}
