// Package ratelimit 基于 Redis 的固定窗口限流，用于公开报修入口。
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Limiter 固定窗口计数限流器
type Limiter struct {
	rdb    *redis.Client
	limit  int
	window time.Duration
	prefix string
}

// NewLimiter 创建限流器
func NewLimiter(rdb *redis.Client, limit int, window time.Duration) *Limiter {
	return &Limiter{
		rdb:    rdb,
		limit:  limit,
		window: window,
		prefix: "ratelimit",
	}
}

// Result 限流检查结果
type Result struct {
	Allowed   bool
	Remaining int
	ResetIn   time.Duration
}

// Allow 对给定键计数并判断是否放行。首次计数时设置窗口过期。
func (l *Limiter) Allow(ctx context.Context, key string) (*Result, error) {
	redisKey := fmt.Sprintf("%s:%s", l.prefix, key)

	count, err := l.rdb.Incr(ctx, redisKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to incr rate limit key: %w", err)
	}
	if count == 1 {
		if err := l.rdb.Expire(ctx, redisKey, l.window).Err(); err != nil {
			return nil, fmt.Errorf("failed to set rate limit expiry: %w", err)
		}
	}

	ttl, err := l.rdb.TTL(ctx, redisKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get rate limit ttl: %w", err)
	}

	remaining := l.limit - int(count)
	if remaining < 0 {
		remaining = 0
	}
	return &Result{
		Allowed:   count <= int64(l.limit),
		Remaining: remaining,
		ResetIn:   ttl,
	}, nil
}

// Status 查询当前计数，不增加计数
func (l *Limiter) Status(ctx context.Context, key string) (*Result, error) {
	redisKey := fmt.Sprintf("%s:%s", l.prefix, key)

	count, err := l.rdb.Get(ctx, redisKey).Int64()
	if err == redis.Nil {
		return &Result{Allowed: true, Remaining: l.limit, ResetIn: 0}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get rate limit count: %w", err)
	}

	ttl, err := l.rdb.TTL(ctx, redisKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get rate limit ttl: %w", err)
	}

	remaining := l.limit - int(count)
	if remaining < 0 {
		remaining = 0
	}
	return &Result{
		Allowed:   count < int64(l.limit),
		Remaining: remaining,
		ResetIn:   ttl,
	}, nil
}
