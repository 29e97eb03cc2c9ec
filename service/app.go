/*
 * @module service/app
 * @description 服务装配模块，负责 Redis 连接、各存储组件、上游客户端、渲染器与观察者的显式构造和关闭
 * @architecture 分层架构 - 服务层
 * @stateFlow 加载配置 -> 连接 Redis -> 构造存储与客户端 -> 装配编排服务 -> 挂载观察者 -> 启动清理任务
 * @rules 所有依赖显式注入编排服务；可选组件（审计、事件、渲染）未配置时不启用；Close 逆序释放资源
 * @dependencies github.com/go-redis/redis/v8, github.com/prometheus/client_golang, gorm.io/gorm
 * @refs service/lookup, service/config
 */

package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"

	"snpfreq-service/client/connectors"
	"snpfreq-service/client/dbsnp"
	"snpfreq-service/service/audit"
	"snpfreq-service/service/cache"
	"snpfreq-service/service/config"
	"snpfreq-service/service/distributed_lock"
	"snpfreq-service/service/events"
	"snpfreq-service/service/history"
	"snpfreq-service/service/identity"
	"snpfreq-service/service/lookup"
	"snpfreq-service/service/metrics"
	"snpfreq-service/service/rate_limiter"
	"snpfreq-service/service/render"
)

// App 装配完成的服务实例
type App struct {
	Settings *config.Settings
	Redis    *redis.Client
	Lookup   *lookup.Service
	Metrics  *metrics.Metrics

	Charts  *render.ChartRenderer  // 未启用渲染时为 nil
	Reports *render.ReportRenderer // 未启用渲染时为 nil

	Audit   *audit.Store // 未配置审计库时为 nil
	Cleanup *audit.CleanupService

	Publisher events.Publisher
}

// NewApp 按配置构造全部组件，reg 为 nil 时使用默认 Prometheus 注册表
func NewApp(ctx context.Context, cfg *config.Settings, reg prometheus.Registerer) (*App, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	rdb, err := connectors.NewRedisClient(ctx, connectors.DefaultRedisConfig(cfg.RedisURL))
	if err != nil {
		return nil, fmt.Errorf("Redis连接失败: %w", err)
	}
	slog.Info("Redis连接成功", "url", redactURL(cfg.RedisURL))

	app := &App{
		Settings:  cfg,
		Redis:     rdb,
		Metrics:   metrics.New(reg),
		Publisher: events.NoopPublisher{},
	}

	deps := lookup.Dependencies{
		Limiter: rate_limiter.NewRedisRateLimiter(rdb),
		Cache:   cache.NewResultCache(rdb),
		History: history.NewTracker(rdb, cfg.HistoryRetention(), cfg.HistoryWindow()),
		Fetcher: dbsnp.NewClient(cfg.NCBIBaseURL, cfg.NCBITimeout()),
	}
	if cfg.RenderEnabled {
		app.Charts = render.NewChartRenderer(cfg.ChartsDir)
		app.Reports = render.NewReportRenderer(cfg.ReportsDir)
		deps.Charts = app.Charts
		deps.Reports = app.Reports
	}

	app.Lookup = lookup.NewService(deps, lookup.Options{
		MaxRequestsPerHour: cfg.MaxRequestsPerHour,
		CacheTTL:           cfg.CacheTTL(),
	})
	app.Lookup.AddObserver(app.Metrics)

	pseudonyms := identity.NewPseudonymizer(cfg.AuditUserSalt)

	if err := app.initAudit(pseudonyms); err != nil {
		app.Close()
		return nil, err
	}

	app.Publisher = buildPublisher(cfg)
	app.Lookup.AddObserver(events.NewObserver(app.Publisher, pseudonyms))

	slog.Info("服务初始化完成",
		"render_enabled", cfg.RenderEnabled,
		"audit_enabled", app.Audit != nil,
		"max_requests_per_hour", cfg.MaxRequestsPerHour)
	return app, nil
}

// initAudit 打开审计库、注册观察者并启动定期清理
func (a *App) initAudit(pseudonyms *identity.Pseudonymizer) error {
	if !a.Settings.AuditEnabled() {
		slog.Info("未配置审计数据库，跳过审计")
		return nil
	}

	db, err := audit.Open(a.Settings.AuditDriver, a.Settings.AuditDatabaseURL)
	if err != nil {
		return fmt.Errorf("审计数据库初始化失败: %w", err)
	}
	a.Audit = audit.NewStore(db, pseudonyms)
	a.Lookup.AddObserver(a.Audit)

	a.Cleanup = audit.NewCleanupService(a.Audit, a.Settings.AuditRetentionDays, a.Settings.AuditCleanupCron).
		WithLock(distributed_lock.NewRedisLock(a.Redis))
	if err := a.Cleanup.Start(); err != nil {
		return fmt.Errorf("启动审计清理任务失败: %w", err)
	}
	return nil
}

// buildPublisher 按配置组合事件发布器，连接失败的发布器不启用
func buildPublisher(cfg *config.Settings) events.Publisher {
	var pubs events.MultiPublisher

	if brokers := connectors.ParseBrokers(cfg.KafkaBrokers); len(brokers) > 0 {
		kc, err := connectors.NewKafkaConnector(&connectors.KafkaConfig{
			Brokers:      brokers,
			Topic:        cfg.KafkaTopic,
			BatchTimeout: 50 * time.Millisecond,
		})
		if err != nil {
			slog.Warn("Kafka事件发布器未启用", "error", err)
		} else {
			pubs = append(pubs, kc)
		}
	}

	if cfg.MQTTBroker != "" {
		mc := connectors.NewMQTTConnector(&connectors.MQTTConfig{
			Broker:   cfg.MQTTBroker,
			ClientID: cfg.MQTTClientID,
			Topic:    cfg.MQTTTopic,
			QoS:      1,
		})
		if err := mc.Connect(); err != nil {
			slog.Warn("MQTT事件发布器未启用", "broker", cfg.MQTTBroker, "error", err)
		} else {
			pubs = append(pubs, mc)
		}
	}

	switch len(pubs) {
	case 0:
		return events.NoopPublisher{}
	case 1:
		return pubs[0]
	default:
		return pubs
	}
}

// Ping 检查 Redis 连通性
func (a *App) Ping(ctx context.Context) error {
	return a.Redis.Ping(ctx).Err()
}

// Close 逆序释放资源
func (a *App) Close() error {
	var errs []error
	if a.Cleanup != nil {
		a.Cleanup.Stop()
	}
	if a.Publisher != nil {
		if err := a.Publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("关闭事件发布器失败: %w", err))
		}
	}
	if a.Audit != nil {
		if err := a.Audit.Close(); err != nil {
			errs = append(errs, fmt.Errorf("关闭审计数据库失败: %w", err))
		}
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("关闭Redis失败: %w", err))
		}
	}
	return errors.Join(errs...)
}

// redactURL 隐藏连接串中的密码
func redactURL(raw string) string {
	opts, err := redis.ParseURL(raw)
	if err != nil || opts.Password == "" {
		return raw
	}
	return fmt.Sprintf("redis://***@%s/%d", opts.Addr, opts.DB)
}
