/*
 * @Author: NEFU AB-IN
 * @Date: 2025-10-09 16:34:40
 * @FilePath: \mood-diary\backend\internal\infra\client\redis_client.go
 * @LastEditTime: 2025-10-09 16:34:47
 */
package client

import (
	"context"
	"fmt"
	"time"

	"mood-diary/backend/internal/config"

	"github.com/redis/go-redis/v9"
)

const defaultRedisPingTimeout = 5 * time.Second

// NewRedisClient 连接 Redis 并执行一次 Ping。
func NewRedisClient(ctx context.Context, cfg config.RedisSettings) (*redis.Client, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("redis endpoint is required")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Endpoint,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, defaultRedisPingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}
