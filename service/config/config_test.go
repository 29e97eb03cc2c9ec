package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func missingEnvFile(t *testing.T) string {
	return filepath.Join(t.TempDir(), "absent.env")
}

func TestDefaults_AreValid(t *testing.T) {
	s := Defaults()
	require.NoError(t, s.Validate())

	assert.Equal(t, 8080, s.ListenPort)
	assert.Equal(t, 30*time.Second, s.NCBITimeout())
	assert.Equal(t, 24*time.Hour, s.CacheTTL())
	assert.Equal(t, 48*time.Hour, s.HistoryRetention())
	assert.Equal(t, 24*time.Hour, s.HistoryWindow())
	assert.Equal(t, 50, s.MaxRequestsPerHour)
	assert.False(t, s.AuditEnabled())
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("MAX_REQUESTS_PER_HOUR", "7")
	t.Setenv("CACHE_TTL", "60")
	t.Setenv("RENDER_ENABLED", "false")
	t.Setenv("REDIS_URL", "redis://cache:6379/2")
	t.Setenv("AUDIT_DATABASE_URL", "file::memory:")
	t.Setenv("AUDIT_DRIVER", "sqlite")

	s, err := Load(missingEnvFile(t))

	require.NoError(t, err)
	assert.Equal(t, 7, s.MaxRequestsPerHour)
	assert.Equal(t, time.Minute, s.CacheTTL())
	assert.False(t, s.RenderEnabled)
	assert.Equal(t, "redis://cache:6379/2", s.RedisURL)
	assert.True(t, s.AuditEnabled())
}

func TestLoad_InvalidNumber(t *testing.T) {
	t.Setenv("NCBI_API_TIMEOUT", "soon")

	_, err := Load(missingEnvFile(t))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "NCBI_API_TIMEOUT")
}

func TestLoad_YAMLFileThenEnvironment(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("listen_port: 9090\nmax_requests_per_hour: 20\nlog_level: debug\n"), 0o644))

	t.Setenv(ConfigFileEnv, path)
	t.Setenv("MAX_REQUESTS_PER_HOUR", "30")

	s, err := Load(missingEnvFile(t))

	require.NoError(t, err)
	assert.Equal(t, 9090, s.ListenPort)
	assert.Equal(t, "debug", s.LogLevel)
	assert.Equal(t, 30, s.MaxRequestsPerHour, "环境变量优先于配置文件")
	assert.Equal(t, 86400, s.CacheTTLSeconds, "文件未出现的键保留默认值")
}

func TestLoad_MissingConfigFile(t *testing.T) {
	t.Setenv(ConfigFileEnv, filepath.Join(t.TempDir(), "nope.yaml"))

	_, err := Load(missingEnvFile(t))

	assert.Error(t, err)
}

func TestLoad_DotEnvDoesNotOverrideEnvironment(t *testing.T) {
	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("HISTORY_WINDOW_HOURS=12\nLISTEN_PORT=1234\n"), 0o644))

	// 注册清理后移除，使 .env 能写入该变量且测试结束后恢复
	t.Setenv("HISTORY_WINDOW_HOURS", "")
	require.NoError(t, os.Unsetenv("HISTORY_WINDOW_HOURS"))
	t.Setenv("LISTEN_PORT", "8181")

	s, err := Load(envFile)

	require.NoError(t, err)
	assert.Equal(t, 12, s.HistoryWindowHours)
	assert.Equal(t, 8181, s.ListenPort)
}

func TestValidate_Rules(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(s *Settings)
		field  string
	}{
		{"端口越界", func(s *Settings) { s.ListenPort = 70000 }, "ListenPort"},
		{"日志级别非法", func(s *Settings) { s.LogLevel = "verbose" }, "LogLevel"},
		{"上游地址非法", func(s *Settings) { s.NCBIBaseURL = "not a url" }, "NCBIBaseURL"},
		{"限额为零", func(s *Settings) { s.MaxRequestsPerHour = 0 }, "MaxRequestsPerHour"},
		{"窗口超过保留期", func(s *Settings) { s.HistoryWindowHours = 72 }, "HistoryWindowHours"},
		{"Kafka缺少主题", func(s *Settings) { s.KafkaBrokers = "k1:9092"; s.KafkaTopic = "" }, "KafkaTopic"},
		{"MQTT缺少主题", func(s *Settings) { s.MQTTBroker = "tcp://m:1883"; s.MQTTTopic = "" }, "MQTTTopic"},
		{"审计驱动非法", func(s *Settings) { s.AuditDriver = "mysql" }, "AuditDriver"},
		{"启用渲染但无目录", func(s *Settings) { s.ReportsDir = "" }, "ReportsDir"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Defaults()
			tt.mutate(s)

			err := s.Validate()

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}

func TestValidate_RenderDisabledAllowsEmptyDirs(t *testing.T) {
	s := Defaults()
	s.RenderEnabled = false
	s.ReportsDir = ""
	s.ChartsDir = ""

	assert.NoError(t, s.Validate())
}
