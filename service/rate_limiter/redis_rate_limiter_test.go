/*
 * @module service/rate_limiter/redis_rate_limiter_test
 * @description Redis限流器单元测试
 * @architecture 测试层
 */

package rate_limiter

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"snpfreq-service/testutil"
)

// setupTestLimiter 使用内存Redis创建限流器，时间固定在某个小时桶内
func setupTestLimiter(t *testing.T) (*RedisRateLimiter, *testutil.TestRedis) {
	t.Helper()
	tr := testutil.NewTestRedis(t)
	limiter := NewRedisRateLimiter(tr.Client)
	fixed := time.Date(2024, 5, 1, 10, 15, 0, 0, time.UTC)
	limiter.now = func() time.Time { return fixed }
	return limiter, tr
}

// TestAdmit_WithinLimit 测试配额内请求
func TestAdmit_WithinLimit(t *testing.T) {
	limiter, tr := setupTestLimiter(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		result, err := limiter.Admit(ctx, "user-1", 5)
		require.NoError(t, err)
		assert.True(t, result.Allowed, fmt.Sprintf("第%d次请求应该被允许", i+1))
		assert.Equal(t, 5, result.Limit)
		assert.Equal(t, 5-i-1, result.Remaining, fmt.Sprintf("第%d次请求剩余数应该为%d", i+1, 5-i-1))
	}

	key := limiter.buildRateLimitKey("user-1")
	assert.Equal(t, "rate:user-1:"+fmt.Sprint(limiter.now().Unix()/3600), key)
	assert.Equal(t, time.Hour, tr.Server.TTL(key))
}

// TestAdmit_OverLimit 测试超过配额
func TestAdmit_OverLimit(t *testing.T) {
	limiter, _ := setupTestLimiter(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := limiter.Admit(ctx, "user-1", 3)
		require.NoError(t, err)
	}

	result, err := limiter.Admit(ctx, "user-1", 3)
	require.NoError(t, err)
	assert.False(t, result.Allowed, "第4次请求应该被限流")
	assert.Equal(t, 0, result.Remaining)
	assert.Equal(t, 4, result.Count)

	// 其他用户不受影响
	other, err := limiter.Admit(ctx, "user-2", 3)
	require.NoError(t, err)
	assert.True(t, other.Allowed)
}

// TestAdmit_Concurrent 并发请求恰好放行 min(N, L) 个
func TestAdmit_Concurrent(t *testing.T) {
	tests := []struct {
		name  string
		n     int
		limit int
	}{
		{"请求数大于限制", 40, 10},
		{"请求数小于限制", 7, 10},
		{"请求数等于限制", 10, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			limiter, _ := setupTestLimiter(t)
			ctx := context.Background()

			var admitted, rejected int64
			var wg sync.WaitGroup
			for i := 0; i < tt.n; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					result, err := limiter.Admit(ctx, "busy-user", tt.limit)
					if !assert.NoError(t, err) {
						return
					}
					if result.Allowed {
						atomic.AddInt64(&admitted, 1)
					} else {
						atomic.AddInt64(&rejected, 1)
					}
				}()
			}
			wg.Wait()

			want := tt.n
			if tt.limit < want {
				want = tt.limit
			}
			assert.Equal(t, int64(want), admitted)
			assert.Equal(t, int64(tt.n-want), rejected)
		})
	}
}

// TestAdmit_WindowExpires 窗口过期后计数重新开始
func TestAdmit_WindowExpires(t *testing.T) {
	limiter, tr := setupTestLimiter(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := limiter.Admit(ctx, "user-1", 2)
		require.NoError(t, err)
	}
	result, err := limiter.Admit(ctx, "user-1", 2)
	require.NoError(t, err)
	assert.False(t, result.Allowed)

	tr.Server.FastForward(time.Hour + time.Second)

	result, err = limiter.Admit(ctx, "user-1", 2)
	require.NoError(t, err)
	assert.True(t, result.Allowed)
	assert.Equal(t, 1, result.Remaining)
}

// TestUsage 测试只读配额查询
func TestUsage(t *testing.T) {
	limiter, _ := setupTestLimiter(t)
	ctx := context.Background()

	usage, err := limiter.Usage(ctx, "user-1", 5)
	require.NoError(t, err)
	assert.Equal(t, 0, usage.Count)
	assert.Equal(t, 5, usage.Remaining)
	assert.True(t, usage.Allowed)

	_, err = limiter.Admit(ctx, "user-1", 5)
	require.NoError(t, err)
	_, err = limiter.Admit(ctx, "user-1", 5)
	require.NoError(t, err)

	usage, err = limiter.Usage(ctx, "user-1", 5)
	require.NoError(t, err)
	assert.Equal(t, 2, usage.Count)
	assert.Equal(t, 3, usage.Remaining)

	// 查询不计数
	again, err := limiter.Usage(ctx, "user-1", 5)
	require.NoError(t, err)
	assert.Equal(t, 2, again.Count)
}

// TestReset 测试重置计数
func TestReset(t *testing.T) {
	limiter, _ := setupTestLimiter(t)
	ctx := context.Background()

	_, err := limiter.Admit(ctx, "user-1", 1)
	require.NoError(t, err)
	require.NoError(t, limiter.Reset(ctx, "user-1"))

	result, err := limiter.Admit(ctx, "user-1", 1)
	require.NoError(t, err)
	assert.True(t, result.Allowed)
}

// TestAdmit_StoreError 存储不可用时返回错误
func TestAdmit_StoreError(t *testing.T) {
	limiter, tr := setupTestLimiter(t)
	tr.Server.Close()

	result, err := limiter.Admit(context.Background(), "user-1", 5)
	require.Error(t, err)
	assert.Nil(t, result)
}
