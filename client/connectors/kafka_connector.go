/*
 * @module client/connectors/kafka_connector
 * @description Kafka连接器，把查询事件序列化为 JSON 写入指定 topic
 * @architecture 适配器模式 - 封装第三方Kafka客户端，实现 events.Publisher
 * @stateFlow 创建写入器 -> 发送消息 -> 关闭
 * @rules 以 rsID 作为消息 key，保证同一位点的事件分区有序；发送失败返回错误由调用方记录
 * @dependencies github.com/segmentio/kafka-go, encoding/json
 * @refs service/events/lookup_events.go
 */
package connectors

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"

	"snpfreq-service/service/events"
)

// KafkaConfig Kafka连接配置
type KafkaConfig struct {
	Brokers      []string
	Topic        string
	BatchTimeout time.Duration
	Async        bool
}

// ParseBrokers 解析逗号分隔的 broker 列表
func ParseBrokers(raw string) []string {
	var brokers []string
	for _, b := range strings.Split(raw, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

// KafkaConnector Kafka连接器
type KafkaConnector struct {
	config *KafkaConfig
	writer *kafka.Writer
}

// NewKafkaConnector 创建Kafka连接器，写入器在首次发送时才建立连接
func NewKafkaConnector(config *KafkaConfig) (*KafkaConnector, error) {
	if len(config.Brokers) == 0 {
		return nil, fmt.Errorf("kafka broker 列表为空")
	}
	if config.Topic == "" {
		return nil, fmt.Errorf("kafka topic 为空")
	}

	writer := &kafka.Writer{
		Addr:                   kafka.TCP(config.Brokers...),
		Topic:                  config.Topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		Async:                  config.Async,
		AllowAutoTopicCreation: true,
	}
	if config.BatchTimeout > 0 {
		writer.BatchTimeout = config.BatchTimeout
	}

	slog.Info("Kafka连接器已创建", "brokers", config.Brokers, "topic", config.Topic)
	return &KafkaConnector{config: config, writer: writer}, nil
}

// BuildMessage 把事件编码为Kafka消息
func (kc *KafkaConnector) BuildMessage(event events.LookupEvent) (kafka.Message, error) {
	value, err := json.Marshal(event)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("序列化事件失败: %w", err)
	}
	return kafka.Message{
		Key:   []byte(event.RSID),
		Value: value,
		Time:  event.Timestamp,
		Headers: []kafka.Header{
			{Key: "event_id", Value: []byte(event.ID)},
			{Key: "outcome", Value: []byte(event.Outcome)},
		},
	}, nil
}

// Publish 实现 events.Publisher
func (kc *KafkaConnector) Publish(ctx context.Context, event events.LookupEvent) error {
	msg, err := kc.BuildMessage(event)
	if err != nil {
		return err
	}
	if err := kc.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("发送消息失败 topic=%s: %w", kc.config.Topic, err)
	}
	slog.Debug("事件已发送到Kafka", "topic", kc.config.Topic, "event_id", event.ID)
	return nil
}

// Close 关闭写入器
func (kc *KafkaConnector) Close() error {
	return kc.writer.Close()
}
