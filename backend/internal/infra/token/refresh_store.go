/*
 * @Author: NEFU AB-IN
 * @Date: 2025-10-09 21:25:41
 * @FilePath: \mood-diary\backend\internal\infra\token\refresh_store.go
 * @LastEditTime: 2025-11-01 22:36:48
 */
package token

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultRefreshPrefix = "diary:refresh"
	revokeScanBatch      = 100
)

// RedisRefreshTokenStore 为每个有效 refresh token 保存一个键 prefix:memberID:jti，
// 过期时间与令牌一致。
type RedisRefreshTokenStore struct {
	client *redis.Client
	prefix string
}

// NewRedisRefreshTokenStore 创建存储，prefix 为空时使用默认前缀。
func NewRedisRefreshTokenStore(client *redis.Client, prefix string) *RedisRefreshTokenStore {
	if prefix == "" {
		prefix = defaultRefreshPrefix
	}
	return &RedisRefreshTokenStore{client: client, prefix: prefix}
}

func (s *RedisRefreshTokenStore) key(memberID uint, tokenID string) string {
	return fmt.Sprintf("%s:%d:%s", s.prefix, memberID, tokenID)
}

// Save 保存令牌直到 expiresAt，已过期的令牌只保留 1 秒。
func (s *RedisRefreshTokenStore) Save(ctx context.Context, memberID uint, tokenID string, expiresAt time.Time) error {
	if s == nil || s.client == nil {
		return fmt.Errorf("redis client not configured")
	}
	if tokenID == "" {
		return fmt.Errorf("token id required")
	}

	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		ttl = time.Second
	}
	return s.client.Set(ctx, s.key(memberID, tokenID), "1", ttl).Err()
}

// Delete 吊销单个令牌。
func (s *RedisRefreshTokenStore) Delete(ctx context.Context, memberID uint, tokenID string) error {
	if s == nil || s.client == nil {
		return fmt.Errorf("redis client not configured")
	}
	if tokenID == "" {
		return nil
	}
	return s.client.Del(ctx, s.key(memberID, tokenID)).Err()
}

// Exists 判断令牌是否仍然有效。
func (s *RedisRefreshTokenStore) Exists(ctx context.Context, memberID uint, tokenID string) (bool, error) {
	if s == nil || s.client == nil {
		return false, fmt.Errorf("redis client not configured")
	}
	if tokenID == "" {
		return false, nil
	}
	count, err := s.client.Exists(ctx, s.key(memberID, tokenID)).Result()
	if err != nil {
		return false, err
	}
	return count == 1, nil
}

// RevokeAll 删除会员的全部 refresh token，用于注销账户。
func (s *RedisRefreshTokenStore) RevokeAll(ctx context.Context, memberID uint) error {
	if s == nil || s.client == nil {
		return fmt.Errorf("redis client not configured")
	}

	pattern := fmt.Sprintf("%s:%d:*", s.prefix, memberID)
	var cursor uint64
	for {
		keys, next, err := s.client.Scan(ctx, cursor, pattern, revokeScanBatch).Result()
		if err != nil {
			return fmt.Errorf("scan refresh tokens: %w", err)
		}
		if len(keys) > 0 {
			if err := s.client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("delete refresh tokens: %w", err)
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}

// MemoryRefreshTokenStore 是本地模式与测试使用的进程内存储，重启后令牌失效。
type MemoryRefreshTokenStore struct {
	mu     sync.RWMutex
	tokens map[uint]map[string]time.Time
}

// NewMemoryRefreshTokenStore 创建空存储。
func NewMemoryRefreshTokenStore() *MemoryRefreshTokenStore {
	return &MemoryRefreshTokenStore{tokens: make(map[uint]map[string]time.Time)}
}

func (s *MemoryRefreshTokenStore) Save(_ context.Context, memberID uint, tokenID string, expiresAt time.Time) error {
	if tokenID == "" {
		return fmt.Errorf("token id required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tokens[memberID]; !ok {
		s.tokens[memberID] = make(map[string]time.Time)
	}
	s.tokens[memberID][tokenID] = expiresAt
	return nil
}

func (s *MemoryRefreshTokenStore) Delete(_ context.Context, memberID uint, tokenID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleteLocked(memberID, tokenID)
	return nil
}

// Exists 发现过期时顺带删除。
func (s *MemoryRefreshTokenStore) Exists(_ context.Context, memberID uint, tokenID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	expiresAt, ok := s.tokens[memberID][tokenID]
	if !ok {
		return false, nil
	}
	if time.Now().After(expiresAt) {
		s.deleteLocked(memberID, tokenID)
		return false, nil
	}
	return true, nil
}

func (s *MemoryRefreshTokenStore) RevokeAll(_ context.Context, memberID uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, memberID)
	return nil
}

func (s *MemoryRefreshTokenStore) deleteLocked(memberID uint, tokenID string) {
	if bucket, ok := s.tokens[memberID]; ok {
		delete(bucket, tokenID)
		if len(bucket) == 0 {
			delete(s.tokens, memberID)
		}
	}
}
