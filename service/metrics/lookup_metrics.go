/*
 * @module service/metrics/lookup_metrics
 * @description 查询指标：结果分类计数、缓存命中、上游调用结果与查询耗时
 * @architecture 观察者模式 - 作为查询观察者挂接在编排服务上
 * @dependencies github.com/prometheus/client_golang
 * @refs service/lookup/observer.go, api/routes.go
 */

package metrics

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"snpfreq-service/service/lookup"
)

const namespace = "snpfreq"

// Metrics 查询指标集合
type Metrics struct {
	lookups  *prometheus.CounterVec
	cache    *prometheus.CounterVec
	upstream *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// New 在给定注册器上注册查询指标
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		lookups: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lookups_total",
			Help:      "Lookups by terminal outcome.",
		}, []string{"outcome"}),
		cache: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_requests_total",
			Help:      "Result cache reads by result (hit or miss).",
		}, []string{"result"}),
		upstream: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_requests_total",
			Help:      "dbSNP fetches by outcome.",
		}, []string{"outcome"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "lookup_duration_seconds",
			Help:      "Duration of successful lookups by result source.",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}, []string{"source"}),
	}
}

// ObserveLookup 实现 lookup.Observer
func (m *Metrics) ObserveLookup(_ context.Context, c lookup.Completion) {
	m.lookups.WithLabelValues(c.Outcome()).Inc()

	if c.CacheChecked {
		result := "miss"
		if c.CacheHit {
			result = "hit"
		}
		m.cache.WithLabelValues(result).Inc()
	}

	if c.UpstreamCalled && c.Kind != lookup.KindCanceled {
		// 上游调用失败时 Kind 即上游失败分类
		m.upstream.WithLabelValues(c.Outcome()).Inc()
	}

	if c.Kind == "" {
		m.duration.WithLabelValues(string(c.Source)).Observe(c.Duration.Seconds())
	}
}
