package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PASS_SERVICE_PORT", "RATE_LIMIT", "PUSH_TRANSPORT", "SIGN_TIMEOUT", "CORS_ORIGINS", "DEVICE_LOG_SINK"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 100, cfg.RateLimit)
	assert.Equal(t, "nats", cfg.PushTransport)
	assert.Equal(t, 10*time.Second, cfg.SignTimeout)
	assert.Equal(t, []string{"http://localhost:5173"}, cfg.CORSOrigin)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("RATE_LIMIT", "20")
	t.Setenv("SIGN_TIMEOUT", "3")
	t.Setenv("PUSH_TIMEOUT", "250ms")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example,")
	t.Setenv("PUSH_TRANSPORT", "apns")
	t.Setenv("APNS_PRODUCTION", "true")
	t.Setenv("DEVICE_LOG_SINK", "mongo")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 20, cfg.RateLimit)
	assert.Equal(t, 3*time.Second, cfg.SignTimeout)
	assert.Equal(t, 250*time.Millisecond, cfg.PushTimeout)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigin)
	assert.True(t, cfg.APNSProduction)
	assert.Equal(t, "mongo", cfg.DeviceLogSink)
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("RATE_LIMIT", "lots")
	_, err := Load()
	assert.Error(t, err)

	t.Setenv("RATE_LIMIT", "")
	t.Setenv("PUSH_TRANSPORT", "carrier-pigeon")
	_, err = Load()
	assert.Error(t, err)
}
