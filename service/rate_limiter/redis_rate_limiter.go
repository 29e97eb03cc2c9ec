/*
 * @module service/rate_limiter/redis_rate_limiter
 * @description 基于Redis的按用户小时配额限流
 * @architecture 工具层 - 提供分布式限流能力
 * @stateFlow 计算小时桶 -> Lua脚本原子INCR/EXPIRE -> 判断是否超限
 * @rules 每次检查都计数；同一key的检查由Redis串行执行，N个并发请求恰好放行min(N, L)个；存储异常直接返回错误，由调用方拒绝请求
 * @dependencies github.com/go-redis/redis/v8
 * @refs service/lookup/orchestrator.go, api/controllers/variant_controller.go
 */

package rate_limiter

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// Window 限流时间窗口
const Window = time.Hour

// admitScript 原子计数：首次计数时设置过期时间，返回 {计数, 剩余TTL}
var admitScript = redis.NewScript(`
	local key = KEYS[1]
	local window = tonumber(ARGV[1])

	local count = redis.call('INCR', key)
	if count == 1 then
		redis.call('EXPIRE', key, window)
	end

	local ttl = redis.call('TTL', key)
	if ttl < 0 then
		redis.call('EXPIRE', key, window)
		ttl = window
	end

	return {count, ttl}
`)

// RateLimitResult 限流检查结果
type RateLimitResult struct {
	Allowed   bool  `json:"allowed"`   // 是否允许请求
	Limit     int   `json:"limit"`     // 每小时限制数量
	Remaining int   `json:"remaining"` // 剩余数量
	Count     int   `json:"count"`     // 当前小时已计数
	ResetAt   int64 `json:"reset_at"`  // 重置时间（Unix时间戳）
}

// RedisRateLimiter Redis限流器
type RedisRateLimiter struct {
	client redis.Cmdable
	now    func() time.Time
}

// NewRedisRateLimiter 创建Redis限流器
func NewRedisRateLimiter(client redis.Cmdable) *RedisRateLimiter {
	return &RedisRateLimiter{
		client: client,
		now:    time.Now,
	}
}

// Admit 为用户计数一次并判断是否在配额内
func (r *RedisRateLimiter) Admit(ctx context.Context, userID string, limit int) (*RateLimitResult, error) {
	key := r.buildRateLimitKey(userID)

	result, err := admitScript.Run(ctx, r.client, []string{key}, int(Window.Seconds())).Result()
	if err != nil {
		return nil, fmt.Errorf("限流检查失败: %w", err)
	}

	values, ok := result.([]interface{})
	if !ok || len(values) != 2 {
		return nil, fmt.Errorf("限流脚本返回格式错误: %v", result)
	}
	count, _ := values[0].(int64)
	ttl, _ := values[1].(int64)

	return r.buildResult(int(count), limit, time.Duration(ttl)*time.Second, int(count) <= limit), nil
}

// Usage 只读查询当前小时的配额使用情况，不计数
func (r *RedisRateLimiter) Usage(ctx context.Context, userID string, limit int) (*RateLimitResult, error) {
	key := r.buildRateLimitKey(userID)

	current, err := r.client.Get(ctx, key).Int()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("查询限流计数失败: %w", err)
	}

	ttl, err := r.client.TTL(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("查询限流TTL失败: %w", err)
	}
	if ttl < 0 {
		ttl = Window
	}

	return r.buildResult(current, limit, ttl, current < limit), nil
}

// Reset 重置用户当前小时计数（仅用于测试或管理）
func (r *RedisRateLimiter) Reset(ctx context.Context, userID string) error {
	return r.client.Del(ctx, r.buildRateLimitKey(userID)).Err()
}

func (r *RedisRateLimiter) buildResult(count, limit int, ttl time.Duration, allowed bool) *RateLimitResult {
	remaining := limit - count
	if remaining < 0 {
		remaining = 0
	}
	return &RateLimitResult{
		Allowed:   allowed,
		Limit:     limit,
		Remaining: remaining,
		Count:     count,
		ResetAt:   r.now().Add(ttl).Unix(),
	}
}

// buildRateLimitKey 构造限流Key：rate:{user}:{小时桶}
func (r *RedisRateLimiter) buildRateLimitKey(userID string) string {
	bucket := r.now().Unix() / int64(Window.Seconds())
	return fmt.Sprintf("rate:%s:%d", userID, bucket)
}
