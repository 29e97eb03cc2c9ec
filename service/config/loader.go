/*
 * @module service/config/loader
 * @description 配置加载：默认值 -> YAML 文件 -> .env -> 环境变量，最后统一校验
 * @architecture 分层架构 - 配置层
 * @stateFlow 默认配置 -> 文件覆盖 -> 环境变量覆盖 -> 校验
 * @rules 进程环境变量优先级最高；.env 不覆盖已存在的环境变量；环境变量格式错误直接报错
 * @dependencies gopkg.in/yaml.v3, github.com/joho/godotenv, github.com/spf13/cast
 * @refs service/config/settings.go
 */

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"
)

// ConfigFileEnv 配置文件路径环境变量
const ConfigFileEnv = "CONFIG_FILE"

// Load 按优先级加载配置，envFiles 为空时尝试当前目录下的 .env
func Load(envFiles ...string) (*Settings, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				slog.Debug("未找到.env文件，使用系统环境变量", "file", f)
				continue
			}
			return nil, fmt.Errorf("加载%s失败: %w", f, err)
		}
	}

	settings := Defaults()

	if path := os.Getenv(ConfigFileEnv); path != "" {
		if err := loadFile(path, settings); err != nil {
			return nil, err
		}
	}

	if err := applyEnv(settings, os.LookupEnv); err != nil {
		return nil, err
	}

	if err := settings.Validate(); err != nil {
		return nil, err
	}
	return settings, nil
}

// loadFile 从 YAML 文件覆盖配置，文件中未出现的键保留原值
func loadFile(path string, settings *Settings) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("读取配置文件失败: %w", err)
	}
	if err := yaml.Unmarshal(data, settings); err != nil {
		return fmt.Errorf("解析配置文件失败: %w", err)
	}
	slog.Info("已加载配置文件", "path", path)
	return nil
}

type envBinding struct {
	key   string
	apply func(s *Settings, v string) error
}

func stringVar(key string, field func(*Settings) *string) envBinding {
	return envBinding{key: key, apply: func(s *Settings, v string) error {
		*field(s) = v
		return nil
	}}
}

func intVar(key string, field func(*Settings) *int) envBinding {
	return envBinding{key: key, apply: func(s *Settings, v string) error {
		n, err := cast.ToIntE(v)
		if err != nil {
			return fmt.Errorf("环境变量%s不是整数: %q", key, v)
		}
		*field(s) = n
		return nil
	}}
}

func boolVar(key string, field func(*Settings) *bool) envBinding {
	return envBinding{key: key, apply: func(s *Settings, v string) error {
		b, err := cast.ToBoolE(v)
		if err != nil {
			return fmt.Errorf("环境变量%s不是布尔值: %q", key, v)
		}
		*field(s) = b
		return nil
	}}
}

var envBindings = []envBinding{
	intVar("LISTEN_PORT", func(s *Settings) *int { return &s.ListenPort }),
	stringVar("BASE_CONTEXT", func(s *Settings) *string { return &s.BaseContext }),
	stringVar("LOG_LEVEL", func(s *Settings) *string { return &s.LogLevel }),
	stringVar("LOG_FORMAT", func(s *Settings) *string { return &s.LogFormat }),
	stringVar("REDIS_URL", func(s *Settings) *string { return &s.RedisURL }),
	stringVar("NCBI_API_BASE_URL", func(s *Settings) *string { return &s.NCBIBaseURL }),
	intVar("NCBI_API_TIMEOUT", func(s *Settings) *int { return &s.NCBITimeoutSeconds }),
	intVar("CACHE_TTL", func(s *Settings) *int { return &s.CacheTTLSeconds }),
	intVar("MAX_REQUESTS_PER_HOUR", func(s *Settings) *int { return &s.MaxRequestsPerHour }),
	intVar("HISTORY_RETENTION_HOURS", func(s *Settings) *int { return &s.HistoryRetentionHours }),
	intVar("HISTORY_WINDOW_HOURS", func(s *Settings) *int { return &s.HistoryWindowHours }),
	stringVar("REPORTS_DIR", func(s *Settings) *string { return &s.ReportsDir }),
	stringVar("CHARTS_DIR", func(s *Settings) *string { return &s.ChartsDir }),
	boolVar("RENDER_ENABLED", func(s *Settings) *bool { return &s.RenderEnabled }),
	stringVar("AUDIT_DATABASE_URL", func(s *Settings) *string { return &s.AuditDatabaseURL }),
	stringVar("AUDIT_DRIVER", func(s *Settings) *string { return &s.AuditDriver }),
	intVar("AUDIT_RETENTION_DAYS", func(s *Settings) *int { return &s.AuditRetentionDays }),
	stringVar("AUDIT_CLEANUP_CRON", func(s *Settings) *string { return &s.AuditCleanupCron }),
	stringVar("AUDIT_USER_SALT", func(s *Settings) *string { return &s.AuditUserSalt }),
	stringVar("KAFKA_BROKERS", func(s *Settings) *string { return &s.KafkaBrokers }),
	stringVar("KAFKA_TOPIC", func(s *Settings) *string { return &s.KafkaTopic }),
	stringVar("MQTT_BROKER", func(s *Settings) *string { return &s.MQTTBroker }),
	stringVar("MQTT_TOPIC", func(s *Settings) *string { return &s.MQTTTopic }),
	stringVar("MQTT_CLIENT_ID", func(s *Settings) *string { return &s.MQTTClientID }),
}

// applyEnv 用环境变量覆盖配置，空值视为未设置
func applyEnv(settings *Settings, lookup func(string) (string, bool)) error {
	for _, b := range envBindings {
		v, ok := lookup(b.key)
		if !ok || v == "" {
			continue
		}
		if err := b.apply(settings, v); err != nil {
			return err
		}
	}
	return nil
}
