/*
 * @module service/events/lookup_events
 * @description 查询事件：把每次查询终态转换为事件并发布到消息通道（Kafka、MQTT）
 * @architecture 观察者模式 - 作为查询观察者挂接在编排服务上，具体通道由 client/connectors 实现
 * @stateFlow 查询完成 -> 构建事件 -> 发布到所有通道
 * @rules 发布尽力而为，失败只记日志；事件中用户ID只以假名出现
 * @dependencies github.com/google/uuid
 * @refs client/connectors, service/lookup/observer.go
 */

package events

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"snpfreq-service/service/identity"
	"snpfreq-service/service/lookup"
)

// LookupEvent 查询事件
type LookupEvent struct {
	ID        string    `json:"id"`
	RSID      string    `json:"rsid"`
	UserHash  string    `json:"user_hash"`
	Outcome   string    `json:"outcome"`
	Source    string    `json:"source,omitempty"`
	Studies   int       `json:"studies"`
	Genes     []string  `json:"genes,omitempty"`
	Warnings  int       `json:"warnings"`
	Duration  int64     `json:"duration_ms"`
	Timestamp time.Time `json:"timestamp"`
}

// Publisher 事件发布通道
type Publisher interface {
	Publish(ctx context.Context, event LookupEvent) error
	Close() error
}

// NoopPublisher 未配置任何通道时使用
type NoopPublisher struct{}

// Publish 实现 Publisher
func (NoopPublisher) Publish(context.Context, LookupEvent) error { return nil }

// Close 实现 Publisher
func (NoopPublisher) Close() error { return nil }

// MultiPublisher 向多个通道依次发布
type MultiPublisher []Publisher

// Publish 向所有通道发布，返回合并后的错误
func (m MultiPublisher) Publish(ctx context.Context, event LookupEvent) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close 关闭所有通道
func (m MultiPublisher) Close() error {
	var errs []error
	for _, p := range m {
		if err := p.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Observer 把查询终态发布为事件
type Observer struct {
	publisher  Publisher
	pseudonyms *identity.Pseudonymizer
	timeout    time.Duration
}

// NewObserver 创建事件观察者
func NewObserver(publisher Publisher, pseudonyms *identity.Pseudonymizer) *Observer {
	return &Observer{publisher: publisher, pseudonyms: pseudonyms, timeout: 5 * time.Second}
}

// ObserveLookup 实现 lookup.Observer
func (o *Observer) ObserveLookup(ctx context.Context, c lookup.Completion) {
	// 校验失败和限流拒绝不产生事件
	if c.Kind == lookup.KindValidation || c.Kind == lookup.KindRejected {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	event := NewLookupEvent(c, o.pseudonyms)
	if err := o.publisher.Publish(ctx, event); err != nil {
		slog.Warn("查询事件发布失败", "rsid", event.RSID, "event_id", event.ID, "error", err)
	}
}

// NewLookupEvent 由查询终态构建事件
func NewLookupEvent(c lookup.Completion, pseudonyms *identity.Pseudonymizer) LookupEvent {
	event := LookupEvent{
		ID:        uuid.NewString(),
		RSID:      c.RSID,
		UserHash:  pseudonyms.Hash(c.UserID),
		Outcome:   c.Outcome(),
		Source:    string(c.Source),
		Duration:  c.Duration.Milliseconds(),
		Timestamp: c.At.UTC(),
	}
	if c.Result != nil {
		event.Studies = len(c.Result.Populations)
		event.Genes = c.Result.Summary.BasicInfo.Genes
		event.Warnings = len(c.Result.Summary.Warnings)
	}
	return event
}
