/*
 * @Author: NEFU AB-IN
 * @Date: 2025-10-10 17:01:17
 * @FilePath: \mood-diary\backend\internal\infra\ratelimit\limiter.go
 * @LastEditTime: 2025-11-02 18:47:51
 */
package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// AllowResult 是一次 Allow 调用的结果。
type AllowResult struct {
	Allowed    bool
	RetryAfter time.Duration
	Remaining  int
}

// Limiter 按调用方计数的固定窗口限流器。
type Limiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (AllowResult, error)
}

// RedisLimiter 通过 Redis 在多个实例间共享计数。
type RedisLimiter struct {
	client *redis.Client
	prefix string
}

// NewRedisLimiter 创建限流器，键统一加上 prefix 前缀。
func NewRedisLimiter(client *redis.Client, prefix string) *RedisLimiter {
	if prefix == "" {
		prefix = "ratelimit"
	}
	return &RedisLimiter{client: client, prefix: prefix}
}

// Allow 递增计数并刷新过期时间，持续请求的调用方会一直被拦截。limit 不大于 0 时不限流。
func (r *RedisLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (AllowResult, error) {
	if limit <= 0 || r == nil || r.client == nil {
		return AllowResult{Allowed: true, Remaining: -1}, nil
	}
	if window <= 0 {
		window = time.Minute
	}

	namespaced := r.prefix + ":" + key
	pipe := r.client.TxPipeline()
	counter := pipe.Incr(ctx, namespaced)
	pipe.Expire(ctx, namespaced, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return AllowResult{}, err
	}

	count := int(counter.Val())
	if count > limit {
		ttl, err := r.client.TTL(ctx, namespaced).Result()
		if err != nil {
			return AllowResult{}, err
		}
		if ttl < 0 {
			ttl = window
		}
		return AllowResult{Allowed: false, RetryAfter: ttl}, nil
	}
	return AllowResult{Allowed: true, Remaining: limit - count}, nil
}

// MemoryLimiter 在进程内计数，用于本地模式与测试。
type MemoryLimiter struct {
	mu    sync.Mutex
	now   func() time.Time
	store map[string]window
}

type window struct {
	count   int
	expires time.Time
}

// NewMemoryLimiter 创建进程内限流器。
func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{now: time.Now, store: make(map[string]window)}
}

func (m *MemoryLimiter) Allow(_ context.Context, key string, limit int, win time.Duration) (AllowResult, error) {
	if limit <= 0 || m == nil {
		return AllowResult{Allowed: true, Remaining: -1}, nil
	}
	if win <= 0 {
		win = time.Minute
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	cur, ok := m.store[key]
	if !ok || !now.Before(cur.expires) {
		cur = window{expires: now.Add(win)}
	}
	cur.count++
	m.store[key] = cur

	if cur.count > limit {
		return AllowResult{Allowed: false, RetryAfter: cur.expires.Sub(now)}, nil
	}
	return AllowResult{Allowed: true, Remaining: limit - cur.count}, nil
}
