/*
 * @module service/cache/result_cache
 * @description 富化结果缓存，按带版本号的 rsID 键存储 JSON
 * @architecture 旁路缓存 - 不做请求合并，后写覆盖先写
 * @stateFlow Get: GET -> 反序列化 -> 版本校验；Put: 序列化 -> SET EX
 * @rules 损坏或版本不符的负载视为未命中而非错误；除 redis.Nil 外的存储错误原样返回
 * @dependencies github.com/go-redis/redis/v8
 * @refs service/lookup/orchestrator.go
 */

package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-redis/redis/v8"

	"snpfreq-service/service/models"
)

// DefaultTTL 默认缓存有效期
const DefaultTTL = 24 * time.Hour

// ResultCache Redis 结果缓存
type ResultCache struct {
	client redis.Cmdable
}

// NewResultCache 创建结果缓存
func NewResultCache(client redis.Cmdable) *ResultCache {
	return &ResultCache{client: client}
}

// Key 返回 rsID 对应的缓存键
func Key(id models.VariantID) string {
	return fmt.Sprintf("snp:%s:v%d", id, models.ResultSchemaVersion)
}

// Get 读取缓存，第二个返回值表示是否命中
func (c *ResultCache) Get(ctx context.Context, id models.VariantID) (*models.EnrichedResult, bool, error) {
	data, err := c.client.Get(ctx, Key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("读取缓存失败: %w", err)
	}

	var result models.EnrichedResult
	if err := json.Unmarshal(data, &result); err != nil {
		slog.Debug("缓存负载损坏，按未命中处理", "rsid", id, "error", err)
		return nil, false, nil
	}
	if result.SchemaVersion != models.ResultSchemaVersion || result.RSID != id {
		slog.Debug("缓存负载版本不符，按未命中处理",
			"rsid", id,
			"schema_version", result.SchemaVersion,
			"cached_rsid", result.RSID)
		return nil, false, nil
	}

	return &result, true, nil
}

// Put 写入缓存，ttl <= 0 时使用 DefaultTTL
func (c *ResultCache) Put(ctx context.Context, id models.VariantID, result *models.EnrichedResult, ttl time.Duration) error {
	if result == nil {
		return errors.New("缓存结果不能为空")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("序列化缓存结果失败: %w", err)
	}

	if err := c.client.Set(ctx, Key(id), data, ttl).Err(); err != nil {
		return fmt.Errorf("写入缓存失败: %w", err)
	}
	return nil
}

// Invalidate 删除缓存条目
func (c *ResultCache) Invalidate(ctx context.Context, id models.VariantID) error {
	return c.client.Del(ctx, Key(id)).Err()
}
