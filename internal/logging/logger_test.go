package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okuma-lab/readability-api/internal/config"
)

func testConfig(level, format string) *config.Config {
	cfg := &config.Config{}
	cfg.Log.Level = level
	cfg.Log.Format = format
	cfg.Server.Environment = "test"
	return cfg
}

func TestNew_JSONWithDefaultFields(t *testing.T) {
	t.Setenv("APP_VERSION", "1.2.3")

	logger := New(testConfig("debug", "json"))
	var buf bytes.Buffer
	logger.SetOutput(&buf)

	WithUserID(logger, "user").WithField("service", "override").Info("hello")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "hello", entry["msg"])
	assert.Equal(t, "info", entry["level"])
	assert.Contains(t, entry, "ts")
	assert.Equal(t, "user", entry["user_id"])
	assert.Equal(t, "1.2.3", entry["version"])
	assert.Equal(t, "test", entry["environment"])
	// Fields set on the entry win over the defaults.
	assert.Equal(t, "override", entry["service"])
	assert.Equal(t, logrus.DebugLevel, logger.GetLevel())
}

func TestNew_InvalidLevelAndTextFormat(t *testing.T) {
	logger := New(testConfig("loud", "text"))
	assert.Equal(t, logrus.InfoLevel, logger.GetLevel())
	assert.IsType(t, &logrus.TextFormatter{}, logger.Formatter)
}

func TestVersion_Default(t *testing.T) {
	t.Setenv("APP_VERSION", "")
	assert.Equal(t, "dev", Version())
}
