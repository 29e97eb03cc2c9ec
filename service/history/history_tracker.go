/*
 * @module service/history/history_tracker
 * @description 用户查询历史：Redis 有序集合，按时间戳排序，写入时裁剪过期条目
 * @architecture 存储适配器
 * @stateFlow Record: 迁移旧格式 -> MULTI{ZADD, ZREMRANGEBYSCORE, EXPIRE}；Recent: 迁移旧格式 -> ZRANGEBYSCORE
 * @rules score 为 Unix 秒（毫秒精度）；member 为 {uuidv7}|{rsid}，同分时按 UUIDv7 字典序即写入顺序排列；重复查询各自成条；保留 2 天，读取窗口 24 小时，按时间升序返回
 * @dependencies github.com/go-redis/redis/v8, github.com/google/uuid
 * @refs service/history/legacy.go, service/lookup/orchestrator.go
 */

package history

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"snpfreq-service/service/models"
)

// 默认保留时长与读取窗口
const (
	DefaultRetention = 48 * time.Hour
	DefaultWindow    = 24 * time.Hour
)

// memberSeparator 条目 ID 与 rsID 之间的分隔符
const memberSeparator = "|"

// Tracker 查询历史记录器
type Tracker struct {
	client    redis.UniversalClient
	retention time.Duration
	window    time.Duration
	now       func() time.Time
}

// NewTracker 创建历史记录器，非正值使用默认保留时长和读取窗口
func NewTracker(client redis.UniversalClient, retention, window time.Duration) *Tracker {
	if retention <= 0 {
		retention = DefaultRetention
	}
	if window <= 0 {
		window = DefaultWindow
	}
	return &Tracker{
		client:    client,
		retention: retention,
		window:    window,
		now:       time.Now,
	}
}

// Key 返回用户历史键
func Key(userID string) string {
	return "history:" + userID
}

// Record 追加一条查询记录并刷新保留期
func (t *Tracker) Record(ctx context.Context, userID string, id models.VariantID) error {
	key := Key(userID)
	if err := t.migrateLegacy(ctx, key); err != nil {
		return err
	}

	now := t.now()
	member, err := newMember(id)
	if err != nil {
		return err
	}
	cutoff := now.Add(-t.retention)

	_, err = t.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZAdd(ctx, key, &redis.Z{Score: toScore(now), Member: member})
		pipe.ZRemRangeByScore(ctx, key, "-inf", "("+formatScore(toScore(cutoff)))
		pipe.Expire(ctx, key, t.retention)
		return nil
	})
	if err != nil {
		return fmt.Errorf("写入查询历史失败: %w", err)
	}
	return nil
}

// Recent 返回读取窗口内的 rsID，按时间升序；没有记录时返回空切片
func (t *Tracker) Recent(ctx context.Context, userID string) ([]models.VariantID, error) {
	entries, err := t.Entries(ctx, userID)
	if err != nil {
		return nil, err
	}

	ids := make([]models.VariantID, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.RSID)
	}
	return ids, nil
}

// Entries 返回读取窗口内的完整历史条目
func (t *Tracker) Entries(ctx context.Context, userID string) ([]models.HistoryEntry, error) {
	key := Key(userID)
	if err := t.migrateLegacy(ctx, key); err != nil {
		return nil, err
	}

	now := t.now()
	members, err := t.client.ZRangeByScoreWithScores(ctx, key, &redis.ZRangeBy{
		Min: formatScore(toScore(now.Add(-t.window))),
		Max: formatScore(toScore(now)),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("读取查询历史失败: %w", err)
	}

	entries := make([]models.HistoryEntry, 0, len(members))
	for _, z := range members {
		member, ok := z.Member.(string)
		if !ok {
			continue
		}
		entries = append(entries, models.HistoryEntry{
			UserID:    userID,
			RSID:      memberVariant(member),
			Timestamp: fromScore(z.Score),
		})
	}
	return entries, nil
}

// Clear 删除用户全部历史
func (t *Tracker) Clear(ctx context.Context, userID string) error {
	return t.client.Del(ctx, Key(userID)).Err()
}

// newMember 构造 {uuidv7}|{rsid}，同一毫秒内 UUIDv7 单调递增
func newMember(id models.VariantID) (string, error) {
	entryID, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("生成历史条目ID失败: %w", err)
	}
	return entryID.String() + memberSeparator + id.String(), nil
}

// memberVariant 解析 member 中的 rsID，兼容不带条目 ID 的裸 rsID 和 {rsid}|{uuid} 旧格式
func memberVariant(member string) models.VariantID {
	before, after, found := strings.Cut(member, memberSeparator)
	if !found {
		return models.VariantID(member)
	}
	if id, err := models.ParseVariantID(after); err == nil {
		return id
	}
	return models.VariantID(before)
}

func toScore(t time.Time) float64 {
	return float64(t.UnixMilli()) / 1000
}

func fromScore(score float64) time.Time {
	return time.UnixMilli(int64(score*1000 + 0.5)).UTC()
}

func formatScore(score float64) string {
	return strconv.FormatFloat(score, 'f', 3, 64)
}
