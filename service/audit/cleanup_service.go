/*
 * @module service/audit/cleanup_service
 * @description 审计清理服务，按 cron 表达式定期删除超过保留期的查询审计记录
 * @architecture 分层架构 - 业务服务层
 * @stateFlow 定时触发 -> 计算截止时间 -> 执行清理 -> 记录结果
 * @rules 清理失败只记日志，不影响查询服务运行；配置了分布式锁时多实例中只有一个执行清理
 * @dependencies github.com/robfig/cron/v3
 * @refs service/audit/audit_store.go, service/distributed_lock, service/app.go
 */

package audit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"snpfreq-service/service/distributed_lock"
)

// 默认清理参数
const (
	DefaultRetentionDays = 30
	// DefaultCleanupSpec 每天凌晨3点执行（秒 分 时 日 月 周）
	DefaultCleanupSpec = "0 0 3 * * *"

	cleanupLockKey = "audit_cleanup"
	cleanupLockTTL = 10 * time.Minute
)

// CleanupService 审计清理服务
type CleanupService struct {
	store         *Store
	retentionDays int
	spec          string
	cron          *cron.Cron
	ctx           context.Context
	cancel        context.CancelFunc
	started       bool
	now           func() time.Time
	lock          *distributed_lock.LockExecutor
}

// NewCleanupService 创建审计清理服务实例
func NewCleanupService(store *Store, retentionDays int, spec string) *CleanupService {
	if retentionDays <= 0 {
		retentionDays = DefaultRetentionDays
	}
	if spec == "" {
		spec = DefaultCleanupSpec
	}
	ctx, cancel := context.WithCancel(context.Background())

	return &CleanupService{
		store:         store,
		retentionDays: retentionDays,
		spec:          spec,
		cron:          cron.New(cron.WithSeconds()),
		ctx:           ctx,
		cancel:        cancel,
		now:           time.Now,
	}
}

// WithLock 设置分布式锁，定时任务只在获取到锁的实例上执行
func (s *CleanupService) WithLock(lock distributed_lock.DistributedLock) *CleanupService {
	s.lock = distributed_lock.NewLockExecutor(lock)
	return s
}

// CleanupExpired 清理过期审计记录
func (s *CleanupService) CleanupExpired(ctx context.Context) (int64, error) {
	startTime := s.now()
	cutoff := startTime.AddDate(0, 0, -s.retentionDays)

	slog.Debug("清理查询审计记录", "cutoff_date", cutoff.Format("2006-01-02 15:04:05"), "retention_days", s.retentionDays)

	deleted, err := s.store.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	slog.Info("审计清理完成",
		"deleted_count", deleted,
		"retention_days", s.retentionDays,
		"duration_ms", time.Since(startTime).Milliseconds())
	return deleted, nil
}

// Start 启动定时清理任务
func (s *CleanupService) Start() error {
	if s.started {
		return fmt.Errorf("审计清理调度器已经启动")
	}

	_, err := s.cron.AddFunc(s.spec, s.runScheduled)
	if err != nil {
		return fmt.Errorf("添加定时任务失败: %w", err)
	}

	s.cron.Start()
	s.started = true

	slog.Info("审计清理调度器启动成功", "spec", s.spec, "retention_days", s.retentionDays)
	return nil
}

// runScheduled 定时任务入口
func (s *CleanupService) runScheduled() {
	if s.lock == nil {
		if _, err := s.CleanupExpired(s.ctx); err != nil {
			slog.Error("定时审计清理任务失败", "error", err)
		}
		return
	}

	ran, err := s.lock.ExecuteWithLock(s.ctx, cleanupLockKey, cleanupLockTTL, func() error {
		_, err := s.CleanupExpired(s.ctx)
		return err
	})
	if err != nil {
		slog.Error("定时审计清理任务失败", "error", err)
		return
	}
	if !ran {
		slog.Info("审计清理由其他实例执行，本实例跳过")
	}
}

// Stop 停止定时清理任务
func (s *CleanupService) Stop() {
	if !s.started {
		return
	}

	s.cancel()
	<-s.cron.Stop().Done()
	s.started = false

	slog.Info("审计清理调度器已停止")
}
