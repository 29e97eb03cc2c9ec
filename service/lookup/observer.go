package lookup

import (
	"context"
	"log/slog"
	"time"

	"snpfreq-service/service/models"
)

// OutcomeOK 成功查询的结果标签
const OutcomeOK = "ok"

// Completion 一次 Resolve 调用的终态描述
type Completion struct {
	UserID    string
	RSID      string
	Kind      ErrorKind // 成功时为空
	Source    Source
	Remaining int
	Result    *models.EnrichedResult

	CacheChecked   bool
	CacheHit       bool
	UpstreamCalled bool
	UpstreamErr    error

	Duration time.Duration
	At       time.Time
}

// Outcome 结果标签：ok 或失败分类
func (c Completion) Outcome() string {
	if c.Kind == "" {
		return OutcomeOK
	}
	return string(c.Kind)
}

// Observer 查询完成回调，尽力而为，不影响查询结果
type Observer interface {
	ObserveLookup(ctx context.Context, c Completion)
}

// ObserverFunc 函数适配器
type ObserverFunc func(ctx context.Context, c Completion)

// ObserveLookup 实现 Observer
func (f ObserverFunc) ObserveLookup(ctx context.Context, c Completion) {
	f(ctx, c)
}

// notify 依次通知观察者，单个观察者 panic 不影响其他观察者和调用方
func notify(ctx context.Context, observers []Observer, c Completion) {
	for _, o := range observers {
		func() {
			defer func() {
				if r := recover(); r != nil {
					slog.Error("查询观察者异常", "rsid", c.RSID, "panic", r)
				}
			}()
			o.ObserveLookup(ctx, c)
		}()
	}
}
