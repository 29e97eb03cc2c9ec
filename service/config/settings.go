/*
 * @module service/config/settings
 * @description 服务配置项定义、默认值与校验规则
 * @architecture 分层架构 - 配置层
 * @rules 所有配置都有默认值；校验失败时服务拒绝启动
 * @dependencies github.com/go-playground/validator/v10
 * @refs service/config/loader.go, service/app.go
 */

package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Settings 服务配置
type Settings struct {
	ListenPort  int    `yaml:"listen_port" validate:"min=1,max=65535"`
	BaseContext string `yaml:"base_context"`
	LogLevel    string `yaml:"log_level" validate:"oneof=debug info warn error"`
	LogFormat   string `yaml:"log_format" validate:"oneof=json text"`

	RedisURL string `yaml:"redis_url" validate:"required"`

	NCBIBaseURL        string `yaml:"ncbi_api_base_url" validate:"required,url"`
	NCBITimeoutSeconds int    `yaml:"ncbi_api_timeout" validate:"min=1"`

	CacheTTLSeconds       int `yaml:"cache_ttl" validate:"min=1"`
	MaxRequestsPerHour    int `yaml:"max_requests_per_hour" validate:"min=1"`
	HistoryRetentionHours int `yaml:"history_retention_hours" validate:"min=1"`
	HistoryWindowHours    int `yaml:"history_window_hours" validate:"min=1,ltefield=HistoryRetentionHours"`

	ReportsDir    string `yaml:"reports_dir" validate:"required_if=RenderEnabled true"`
	ChartsDir     string `yaml:"charts_dir" validate:"required_if=RenderEnabled true"`
	RenderEnabled bool   `yaml:"render_enabled"`

	AuditDatabaseURL   string `yaml:"audit_database_url"`
	AuditDriver        string `yaml:"audit_driver" validate:"oneof=postgres sqlite"`
	AuditRetentionDays int    `yaml:"audit_retention_days" validate:"min=1"`
	AuditCleanupCron   string `yaml:"audit_cleanup_cron" validate:"required"`
	AuditUserSalt      string `yaml:"audit_user_salt"`

	KafkaBrokers string `yaml:"kafka_brokers"`
	KafkaTopic   string `yaml:"kafka_topic" validate:"required_with=KafkaBrokers"`

	MQTTBroker   string `yaml:"mqtt_broker"`
	MQTTTopic    string `yaml:"mqtt_topic" validate:"required_with=MQTTBroker"`
	MQTTClientID string `yaml:"mqtt_client_id" validate:"required_with=MQTTBroker"`
}

// Defaults 返回默认配置
func Defaults() *Settings {
	return &Settings{
		ListenPort:            8080,
		LogLevel:              "info",
		LogFormat:             "json",
		RedisURL:              "redis://localhost:6379/0",
		NCBIBaseURL:           "https://api.ncbi.nlm.nih.gov",
		NCBITimeoutSeconds:    30,
		CacheTTLSeconds:       86400,
		MaxRequestsPerHour:    50,
		HistoryRetentionHours: 48,
		HistoryWindowHours:    24,
		ReportsDir:            "reports",
		ChartsDir:             "/tmp",
		RenderEnabled:         true,
		AuditDriver:           "postgres",
		AuditRetentionDays:    30,
		AuditCleanupCron:      "0 0 3 * * *",
		KafkaTopic:            "snp-lookups",
		MQTTTopic:             "snp/lookups",
		MQTTClientID:          "snpfreq-service",
	}
}

var validate = validator.New()

// Validate 校验配置
func (s *Settings) Validate() error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("配置校验失败: %w", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s(%s=%s)", fe.Field(), fe.Tag(), fe.Param()))
	}
	return fmt.Errorf("配置校验失败: %s", strings.Join(msgs, ", "))
}

// NCBITimeout 上游请求超时
func (s *Settings) NCBITimeout() time.Duration {
	return time.Duration(s.NCBITimeoutSeconds) * time.Second
}

// CacheTTL 缓存有效期
func (s *Settings) CacheTTL() time.Duration {
	return time.Duration(s.CacheTTLSeconds) * time.Second
}

// HistoryRetention 历史保留期
func (s *Settings) HistoryRetention() time.Duration {
	return time.Duration(s.HistoryRetentionHours) * time.Hour
}

// HistoryWindow 历史读取窗口
func (s *Settings) HistoryWindow() time.Duration {
	return time.Duration(s.HistoryWindowHours) * time.Hour
}

// AuditEnabled 是否启用审计
func (s *Settings) AuditEnabled() bool {
	return s.AuditDatabaseURL != ""
}
