/*
 * @module client/connectors/mqtt_connector
 * @description MQTT连接器，把查询事件以 JSON 发布到主题
 * @architecture 适配器模式 - 封装第三方MQTT客户端，实现 events.Publisher
 * @stateFlow 连接建立 -> 发布 -> 连接断开
 * @rules 自动重连；发布等待确认有超时，不阻塞查询
 * @dependencies github.com/eclipse/paho.mqtt.golang, encoding/json
 * @refs service/events/lookup_events.go
 */
package connectors

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"snpfreq-service/service/events"
)

// MQTTConfig MQTT连接配置
type MQTTConfig struct {
	Broker   string
	ClientID string
	Topic    string
	Username string
	Password string
	QoS      byte
	Timeout  time.Duration
}

// MQTTConnector MQTT连接器
type MQTTConnector struct {
	config *MQTTConfig
	client mqtt.Client
}

// NewMQTTConnector 创建MQTT连接器（未连接）
func NewMQTTConnector(config *MQTTConfig) *MQTTConnector {
	if config.Timeout <= 0 {
		config.Timeout = 5 * time.Second
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(config.Broker)
	opts.SetClientID(config.ClientID)
	if config.Username != "" {
		opts.SetUsername(config.Username)
		opts.SetPassword(config.Password)
	}
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectTimeout(config.Timeout)
	opts.SetOnConnectHandler(func(mqtt.Client) {
		slog.Info("MQTT连接器已连接", "broker", config.Broker)
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		slog.Warn("MQTT连接丢失", "broker", config.Broker, "error", err)
	})

	return &MQTTConnector{config: config, client: mqtt.NewClient(opts)}
}

// Connect 建立MQTT连接
func (mc *MQTTConnector) Connect() error {
	token := mc.client.Connect()
	if !token.WaitTimeout(mc.config.Timeout) {
		return fmt.Errorf("MQTT连接超时: %s", mc.config.Broker)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("MQTT连接失败: %w", err)
	}
	return nil
}

// Publish 实现 events.Publisher
func (mc *MQTTConnector) Publish(ctx context.Context, event events.LookupEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("序列化事件失败: %w", err)
	}

	token := mc.client.Publish(mc.config.Topic, mc.config.QoS, false, payload)
	select {
	case <-token.Done():
	case <-ctx.Done():
		return fmt.Errorf("发布消息超时 topic=%s: %w", mc.config.Topic, ctx.Err())
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("发布消息失败 topic=%s: %w", mc.config.Topic, err)
	}
	return nil
}

// Close 断开连接
func (mc *MQTTConnector) Close() error {
	if mc.client.IsConnected() {
		mc.client.Disconnect(250) // 等待250ms让消息发送完成
	}
	return nil
}
