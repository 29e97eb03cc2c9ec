package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}

func TestNewLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(&buf, "info", "json")

	log.Debug("不应输出")
	log.Info("查询完成", "rsid", "rs7412")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "查询完成", entry["msg"])
	assert.Equal(t, "rs7412", entry["rsid"])
	assert.Equal(t, "snpfreq-service", entry["service"])
}

func TestNewLogger_Text(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(&buf, "debug", "text")

	log.Debug("调试", "key", "value")

	assert.Contains(t, buf.String(), "key=value")
	assert.Contains(t, buf.String(), "level=DEBUG")
}
