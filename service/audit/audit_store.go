/*
 * @module service/audit/audit_store
 * @description 查询审计存储：每次查询终态写入一行审计记录，提供最近记录查询与过期清理
 * @architecture 数据访问层 - 作为查询观察者挂接在编排服务上
 * @stateFlow 查询完成 -> 构建审计行 -> 写入数据库
 * @rules 用户ID只以假名保存；写入失败只记日志，不影响查询结果
 * @dependencies gorm.io/gorm, gorm.io/driver/postgres, gorm.io/driver/sqlite, gorm.io/datatypes, github.com/google/uuid
 * @refs service/lookup/observer.go, service/models/lookup_audit.go
 */

package audit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"snpfreq-service/service/identity"
	"snpfreq-service/service/lookup"
	"snpfreq-service/service/models"
)

// 默认参数
const (
	DefaultRecentLimit = 50
	MaxRecentLimit     = 500
)

// Open 按驱动打开审计数据库并迁移审计表
func Open(driver, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case "postgres", "":
		dialector = postgres.Open(dsn)
	case "sqlite":
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("不支持的审计数据库驱动: %s", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("审计数据库连接失败: %w", err)
	}

	if err := db.AutoMigrate(&models.LookupAudit{}); err != nil {
		return nil, fmt.Errorf("审计表迁移失败: %w", err)
	}

	slog.Info("审计数据库连接成功", "driver", dialector.Name())
	return db, nil
}

// Store 审计存储
type Store struct {
	db         *gorm.DB
	pseudonyms *identity.Pseudonymizer
}

// NewStore 创建审计存储
func NewStore(db *gorm.DB, pseudonyms *identity.Pseudonymizer) *Store {
	return &Store{db: db, pseudonyms: pseudonyms}
}

// ObserveLookup 实现 lookup.Observer
func (s *Store) ObserveLookup(ctx context.Context, c lookup.Completion) {
	if err := s.Record(ctx, c); err != nil {
		slog.Warn("审计记录写入失败", "rsid", c.RSID, "outcome", c.Outcome(), "error", err)
	}
}

// Record 写入一条审计记录
func (s *Store) Record(ctx context.Context, c lookup.Completion) error {
	row := s.buildRow(c)
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("创建审计记录失败: %w", err)
	}
	return nil
}

func (s *Store) buildRow(c lookup.Completion) models.LookupAudit {
	row := models.LookupAudit{
		ID:         uuid.NewString(),
		UserHash:   s.pseudonyms.Hash(c.UserID),
		RSID:       c.RSID,
		Outcome:    c.Outcome(),
		Source:     string(c.Source),
		Genes:      models.GeneList{},
		Remaining:  c.Remaining,
		DurationMs: c.Duration.Milliseconds(),
		CreatedAt:  c.At,
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now()
	}
	if len(row.RSID) > 32 {
		row.RSID = row.RSID[:32]
	}

	if c.Result != nil {
		row.Genes = models.GeneList(c.Result.Summary.BasicInfo.Genes)
		row.Studies = len(c.Result.Populations)
	}

	attrs := datatypes.JSONMap{
		"cache_checked":   c.CacheChecked,
		"cache_hit":       c.CacheHit,
		"upstream_called": c.UpstreamCalled,
	}
	if c.UpstreamErr != nil {
		attrs["upstream_error"] = c.UpstreamErr.Error()
	}
	if c.Result != nil && len(c.Result.Summary.Warnings) > 0 {
		attrs["warnings"] = c.Result.Summary.Warnings
	}
	row.Attributes = attrs
	return row
}

// Recent 按时间倒序返回最近的审计记录
func (s *Store) Recent(ctx context.Context, limit int) ([]models.LookupAudit, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	if limit > MaxRecentLimit {
		limit = MaxRecentLimit
	}

	var rows []models.LookupAudit
	err := s.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("查询审计记录失败: %w", err)
	}
	return rows, nil
}

// DeleteOlderThan 删除早于截止时间的审计记录
func (s *Store) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result := s.db.WithContext(ctx).Where("created_at < ?", cutoff).Delete(&models.LookupAudit{})
	if result.Error != nil {
		return 0, fmt.Errorf("删除过期审计记录失败: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// Close 关闭底层连接
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
