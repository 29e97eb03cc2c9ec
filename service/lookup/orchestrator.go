/*
 * @module service/lookup/orchestrator
 * @description 变异位点查询编排：限流 -> 缓存 -> 上游 -> 计算 -> 渲染 -> 写缓存 -> 写历史
 * @architecture 服务层 - 组合限流器、缓存、上游客户端、频率模型、富化器和渲染器
 * @stateFlow VALIDATE -> RATE_CHECK -> [REJECTED] | CACHE_READ -> [HIT] | UPSTREAM_FETCH -> [NOT_FOUND|UNAVAILABLE|MALFORMED] | COMPUTE -> RENDER -> CACHE_WRITE -> HISTORY_WRITE -> [DONE]
 * @rules 每次调用恰好限流检查一次且先于缓存和上游；成功（命中或新计算）必写历史，拒绝或失败不写；读阶段存储故障返回 unavailable；计算完成后的写入失败只记日志；不做任何重试
 * @dependencies golang.org/x/sync/errgroup
 * @refs client/dbsnp, service/cache, service/history, service/rate_limiter, service/enrichment
 */

package lookup

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"snpfreq-service/client/dbsnp"
	"snpfreq-service/service/enrichment"
	"snpfreq-service/service/frequency"
	"snpfreq-service/service/models"
	"snpfreq-service/service/rate_limiter"
)

// Source 结果来源
type Source string

const (
	SourceCache    Source = "cache"
	SourceUpstream Source = "upstream"
)

// 默认参数
const (
	DefaultMaxRequestsPerHour = 50
	DefaultDetachedTimeout    = 2 * time.Minute
)

// RateLimiter 每用户小时配额
type RateLimiter interface {
	Admit(ctx context.Context, userID string, limit int) (*rate_limiter.RateLimitResult, error)
	Usage(ctx context.Context, userID string, limit int) (*rate_limiter.RateLimitResult, error)
}

// ResultCache 富化结果缓存
type ResultCache interface {
	Get(ctx context.Context, id models.VariantID) (*models.EnrichedResult, bool, error)
	Put(ctx context.Context, id models.VariantID, result *models.EnrichedResult, ttl time.Duration) error
}

// HistoryTracker 用户查询历史
type HistoryTracker interface {
	Record(ctx context.Context, userID string, id models.VariantID) error
	Recent(ctx context.Context, userID string) ([]models.VariantID, error)
}

// Fetcher 上游原始记录获取
type Fetcher interface {
	Fetch(ctx context.Context, id models.VariantID) (models.RawRecord, error)
}

// ChartRenderer 图表产物渲染，返回文件路径
type ChartRenderer interface {
	RenderCharts(ctx context.Context, id models.VariantID, rows []models.PopulationFrequency) (string, error)
}

// ReportRenderer 报告产物渲染，返回文件路径
type ReportRenderer interface {
	RenderReport(ctx context.Context, result *models.EnrichedResult) (string, error)
}

// Options 编排参数
type Options struct {
	MaxRequestsPerHour int
	CacheTTL           time.Duration
	// DetachedTimeout 缓存未命中后与调用方解耦的后台计算的总时限
	DetachedTimeout time.Duration
}

// Outcome 成功查询的结果
type Outcome struct {
	Result    *models.EnrichedResult `json:"result"`
	Source    Source                 `json:"source"`
	Remaining int                    `json:"remaining"`
	ResetAt   int64                  `json:"reset_at"`
}

// Dependencies 编排依赖，渲染器和观察者可为空
type Dependencies struct {
	Limiter   RateLimiter
	Cache     ResultCache
	History   HistoryTracker
	Fetcher   Fetcher
	Charts    ChartRenderer
	Reports   ReportRenderer
	Observers []Observer
}

// Service 查询编排服务
type Service struct {
	deps Dependencies
	opts Options
	now  func() time.Time
}

// NewService 创建查询编排服务
func NewService(deps Dependencies, opts Options) *Service {
	if opts.MaxRequestsPerHour <= 0 {
		opts.MaxRequestsPerHour = DefaultMaxRequestsPerHour
	}
	if opts.DetachedTimeout <= 0 {
		opts.DetachedTimeout = DefaultDetachedTimeout
	}
	return &Service{deps: deps, opts: opts, now: time.Now}
}

// AddObserver 追加观察者，需在开始处理请求前调用
func (s *Service) AddObserver(o Observer) {
	s.deps.Observers = append(s.deps.Observers, o)
}

// Resolve 解析一次用户查询
func (s *Service) Resolve(ctx context.Context, userID, rawRSID string) (*Outcome, error) {
	start := s.now()
	c := Completion{UserID: userID, RSID: rawRSID, At: start}

	out, err := s.resolve(ctx, userID, rawRSID, &c)

	c.Duration = s.now().Sub(start)
	c.Kind = KindOf(err)
	if out != nil {
		c.Source = out.Source
		c.Remaining = out.Remaining
		c.Result = out.Result
	}
	notify(context.WithoutCancel(ctx), s.deps.Observers, c)

	return out, err
}

func (s *Service) resolve(ctx context.Context, userID, rawRSID string, c *Completion) (*Outcome, error) {
	// VALIDATE
	id, err := models.ParseVariantID(rawRSID)
	if err != nil {
		return nil, newError(KindValidation, rawRSID, err)
	}
	c.RSID = id.String()
	if userID == "" {
		return nil, newError(KindValidation, id.String(), errors.New("user id is required"))
	}

	// RATE_CHECK
	quota, err := s.deps.Limiter.Admit(ctx, userID, s.opts.MaxRequestsPerHour)
	if err != nil {
		slog.Error("限流存储不可用", "user_id", userID, "rsid", id, "error", err)
		return nil, newError(KindUnavailable, id.String(), err)
	}
	if !quota.Allowed {
		c.Remaining = quota.Remaining
		slog.Info("超过每小时配额", "user_id", userID, "rsid", id, "limit", quota.Limit)
		le := newError(KindRejected, id.String(), ErrQuotaExceeded)
		le.Quota = quota
		return nil, le
	}

	// CACHE_READ
	c.CacheChecked = true
	cached, hit, err := s.deps.Cache.Get(ctx, id)
	if err != nil {
		slog.Error("缓存读取失败", "rsid", id, "error", err)
		return nil, newError(KindUnavailable, id.String(), err)
	}
	if hit {
		c.CacheHit = true
		slog.Info("缓存命中", "rsid", id, "user_id", userID)
		s.recordHistory(ctx, userID, id)
		return &Outcome{Result: cached, Source: SourceCache, Remaining: quota.Remaining, ResetAt: quota.ResetAt}, nil
	}

	// UPSTREAM_FETCH -> COMPUTE -> RENDER -> CACHE_WRITE
	c.UpstreamCalled = true
	result, err := s.computeDetached(ctx, id)
	if err != nil {
		var le *LookupError
		if errors.As(err, &le) && le.Kind != KindCanceled {
			c.UpstreamErr = le.Err
		}
		return nil, err
	}

	// HISTORY_WRITE
	s.recordHistory(ctx, userID, id)

	slog.Info("查询完成",
		"rsid", id,
		"user_id", userID,
		"studies", len(result.Populations),
		"remaining", quota.Remaining)

	return &Outcome{Result: result, Source: SourceUpstream, Remaining: quota.Remaining, ResetAt: quota.ResetAt}, nil
}

type computed struct {
	result *models.EnrichedResult
	err    error
}

// computeDetached 在与调用方解耦的上下文中完成上游获取到写缓存的全部步骤，
// 调用方放弃后后台任务仍会继续并写入缓存
func (s *Service) computeDetached(ctx context.Context, id models.VariantID) (*models.EnrichedResult, error) {
	done := make(chan computed, 1)

	go func() {
		wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.DetachedTimeout)
		defer cancel()

		result, err := s.fetchAndCompute(wctx, id)
		done <- computed{result: result, err: err}
	}()

	select {
	case r := <-done:
		return r.result, r.err
	case <-ctx.Done():
		slog.Info("调用方已放弃查询，后台继续填充缓存", "rsid", id, "error", ctx.Err())
		return nil, newError(KindCanceled, id.String(), ctx.Err())
	}
}

func (s *Service) fetchAndCompute(ctx context.Context, id models.VariantID) (*models.EnrichedResult, error) {
	raw, err := s.deps.Fetcher.Fetch(ctx, id)
	if err != nil {
		le := classifyUpstream(id, err)
		if le.Kind != KindNotFound {
			slog.Warn("上游查询失败", "rsid", id, "kind", le.Kind, "error", err)
		}
		return nil, le
	}

	result := s.compute(id, raw)
	s.render(ctx, result)

	if err := s.deps.Cache.Put(ctx, id, result, s.opts.CacheTTL); err != nil {
		slog.Warn("缓存写入失败", "rsid", id, "error", err)
	}
	return result, nil
}

// compute 频率模型 + 富化
func (s *Service) compute(id models.VariantID, raw models.RawRecord) *models.EnrichedResult {
	records := dbsnp.ParseFrequencies(raw)
	rows := make([]models.PopulationFrequency, 0, len(records))
	for _, rec := range records {
		rows = append(rows, frequency.FromRecord(rec))
	}

	return &models.EnrichedResult{
		SchemaVersion: models.ResultSchemaVersion,
		RSID:          id,
		Populations:   rows,
		Summary:       enrichment.Build(id, raw, rows),
		Images:        []string{},
		GeneratedAt:   s.now().UTC(),
	}
}

// render 并发生成图表和报告，失败只记日志，结果中不包含对应产物
func (s *Service) render(ctx context.Context, result *models.EnrichedResult) {
	if s.deps.Charts == nil && s.deps.Reports == nil {
		return
	}

	var chartPath, reportPath string
	var g errgroup.Group

	if s.deps.Charts != nil {
		g.Go(func() error {
			path, err := s.deps.Charts.RenderCharts(ctx, result.RSID, result.Populations)
			if err != nil {
				slog.Warn("图表生成失败", "rsid", result.RSID, "error", err)
				return nil
			}
			chartPath = path
			return nil
		})
	}
	if s.deps.Reports != nil {
		g.Go(func() error {
			path, err := s.deps.Reports.RenderReport(ctx, result)
			if err != nil {
				slog.Warn("报告生成失败", "rsid", result.RSID, "error", err)
				return nil
			}
			reportPath = path
			return nil
		})
	}
	_ = g.Wait()

	if chartPath != "" {
		result.Images = append(result.Images, chartPath)
	}
	result.Report = reportPath
}

func (s *Service) recordHistory(ctx context.Context, userID string, id models.VariantID) {
	if err := s.deps.History.Record(context.WithoutCancel(ctx), userID, id); err != nil {
		slog.Warn("查询历史写入失败", "user_id", userID, "rsid", id, "error", err)
	}
}

// History 返回用户最近的查询记录
func (s *Service) History(ctx context.Context, userID string) ([]models.VariantID, error) {
	if userID == "" {
		return nil, newError(KindValidation, "", errors.New("user id is required"))
	}
	ids, err := s.deps.History.Recent(ctx, userID)
	if err != nil {
		return nil, newError(KindUnavailable, "", err)
	}
	return ids, nil
}

// Quota 返回用户当前小时的配额使用情况，不计数
func (s *Service) Quota(ctx context.Context, userID string) (*rate_limiter.RateLimitResult, error) {
	if userID == "" {
		return nil, newError(KindValidation, "", errors.New("user id is required"))
	}
	usage, err := s.deps.Limiter.Usage(ctx, userID, s.opts.MaxRequestsPerHour)
	if err != nil {
		return nil, newError(KindUnavailable, "", err)
	}
	return usage, nil
}

// Limit 每小时配额
func (s *Service) Limit() int {
	return s.opts.MaxRequestsPerHour
}
