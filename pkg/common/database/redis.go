package database

import (
	"context"
	"fmt"
	"time"

	"github.com/cardioguard/platform/pkg/common/logger"
	"github.com/redis/go-redis/v9"
)

func OpenRedis(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}

	logger.Log.WithField("addr", addr).Info("Connected to Redis")
	return client, nil
}
