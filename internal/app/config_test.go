package app

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "")
	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, "development", cfg.AppEnv)
	require.Equal(t, 10*time.Minute, cfg.ReportCacheTTL)
	require.Equal(t, "ledger.changes", cfg.KafkaTopic)
	require.Empty(t, cfg.KafkaBrokers)
	require.False(t, cfg.IsProduction())
}

func TestLoadConfigBrokers(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092,")
	t.Setenv("APP_ENV", "production")
	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.KafkaBrokers)
	require.True(t, cfg.IsProduction())
}

func TestLoadConfigRejectsBadTTL(t *testing.T) {
	t.Setenv("REPORT_CACHE_TTL", "0s")
	_, err := LoadConfig()
	require.Error(t, err)
}

func TestLoggerFormat(t *testing.T) {
	var buf bytes.Buffer
	newLogger(&Config{LogFormat: "json", AppEnv: "production"}, &buf).Info("hello")
	require.True(t, strings.HasPrefix(buf.String(), "{"), buf.String())

	buf.Reset()
	newLogger(&Config{LogFormat: "pretty"}, &buf).Debug("details")
	require.Contains(t, buf.String(), "msg=details")
}
