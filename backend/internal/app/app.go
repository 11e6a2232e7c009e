/*
 * @Author: NEFU AB-IN
 * @Date: 2025-10-08 19:54:47
 * @FilePath: \mood-diary\backend\internal\app\app.go
 * @LastEditTime: 2025-11-02 16:05:12
 */
package app

import (
	"context"
	"fmt"

	"mood-diary/backend/internal/config"
	"mood-diary/backend/internal/infra/client"
	appLogger "mood-diary/backend/internal/infra/logger"
	"mood-diary/backend/internal/infra/migrations"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Resources 汇总各服务共享的长连接，本地模式下 Redis 为 nil。
type Resources struct {
	Settings config.Settings
	DB       *gorm.DB
	Redis    *redis.Client
}

// Bootstrap 按运行模式打开数据库并执行未应用的迁移，在线模式下还会连接 Redis。
func Bootstrap(ctx context.Context, settings config.Settings) (*Resources, error) {
	log := appLogger.S().With("component", "app.bootstrap", "mode", settings.Mode)

	var (
		db      *gorm.DB
		dialect migrations.Dialect
		err     error
	)
	switch settings.Mode {
	case config.ModeLocal:
		db, err = client.NewGORMSQLite(settings.SQLitePath)
		dialect = migrations.SQLite
	default:
		db, err = client.NewGORMMySQL(settings.MySQL, settings.Location)
		dialect = migrations.MySQL
	}
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	res := &Resources{Settings: settings, DB: db}

	sqlDB, err := db.DB()
	if err != nil {
		_ = res.Close()
		return nil, fmt.Errorf("database handle: %w", err)
	}
	applied, err := migrations.Up(ctx, sqlDB, dialect)
	if err != nil {
		_ = res.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	log.Infow("database ready", "migrations_applied", applied)

	if settings.Mode == config.ModeOnline {
		rdb, err := client.NewRedisClient(ctx, settings.Redis)
		if err != nil {
			_ = res.Close()
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		res.Redis = rdb
		log.Infow("redis connected", "endpoint", settings.Redis.Endpoint)
	}

	return res, nil
}

// Close 释放数据库与 Redis 连接。
func (r *Resources) Close() error {
	if r == nil {
		return nil
	}
	var firstErr error
	if r.Redis != nil {
		if err := r.Redis.Close(); err != nil {
			firstErr = err
		}
	}
	if r.DB != nil {
		if sqlDB, err := r.DB.DB(); err == nil {
			if err := sqlDB.Close(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
