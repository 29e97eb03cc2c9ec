package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-redis/redis/v8"

	"snpfreq-service/service/models"
)

// maxMigrateAttempts WATCH 冲突时的最大尝试次数
const maxMigrateAttempts = 3

// legacyEntry 早期以 LIST 存储的历史条目
type legacyEntry struct {
	RSID string  `json:"rsid"`
	TS   float64 `json:"ts"`
}

// migrateLegacy 将同一键下的旧 LIST 格式历史一次性迁移为有序集合
func (t *Tracker) migrateLegacy(ctx context.Context, key string) error {
	kind, err := t.client.Type(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("检查历史键类型失败: %w", err)
	}
	if kind != "list" {
		return nil
	}

	for attempt := 0; attempt < maxMigrateAttempts; attempt++ {
		err = t.client.Watch(ctx, func(tx *redis.Tx) error {
			return t.migrateInTx(ctx, tx, key)
		}, key)
		if !errors.Is(err, redis.TxFailedErr) {
			break
		}
	}
	if err != nil {
		return fmt.Errorf("迁移旧格式历史失败: %w", err)
	}
	return nil
}

func (t *Tracker) migrateInTx(ctx context.Context, tx *redis.Tx, key string) error {
	kind, err := tx.Type(ctx, key).Result()
	if err != nil {
		return err
	}
	if kind != "list" {
		// 已被其他请求迁移
		return nil
	}

	items, err := tx.LRange(ctx, key, 0, -1).Result()
	if err != nil {
		return err
	}

	cutoff := toScore(t.now().Add(-t.retention))
	members := make([]*redis.Z, 0, len(items))
	dropped := 0
	for _, item := range items {
		var entry legacyEntry
		if err := json.Unmarshal([]byte(item), &entry); err != nil || entry.TS <= 0 {
			dropped++
			continue
		}
		id, err := models.ParseVariantID(entry.RSID)
		if err != nil {
			dropped++
			continue
		}
		if entry.TS < cutoff {
			continue
		}
		// 按 LIST 顺序生成，同一时间戳的条目保持原有先后
		member, err := newMember(id)
		if err != nil {
			return err
		}
		members = append(members, &redis.Z{Score: entry.TS, Member: member})
	}

	_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		if len(members) > 0 {
			pipe.ZAdd(ctx, key, members...)
			pipe.Expire(ctx, key, t.retention)
		}
		return nil
	})
	if err != nil {
		return err
	}

	slog.Info("旧格式历史已迁移",
		"key", key,
		"migrated", len(members),
		"dropped", dropped,
		"retention", t.retention.String())
	return nil
}
