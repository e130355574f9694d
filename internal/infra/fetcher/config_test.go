package fetcher

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigFromEnv_Defaults(t *testing.T) {
	for _, key := range []string{
		"FETCHER_TIMEOUT", "FETCHER_MAX_BODY_SIZE", "FETCHER_MAX_REDIRECTS",
		"FETCHER_DENY_PRIVATE_IPS", "FETCHER_RENDER_SERVICE_URL", "FETCHER_RENDER_SERVICE_TOKEN",
	} {
		unsetEnv(t, key)
	}

	cfg, err := LoadConfigFromEnv()
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadConfigFromEnv_OverridesFromEnv(t *testing.T) {
	setEnv(t, "FETCHER_TIMEOUT", "5s")
	setEnv(t, "FETCHER_MAX_BODY_SIZE", "2048")
	setEnv(t, "FETCHER_MAX_REDIRECTS", "2")
	setEnv(t, "FETCHER_DENY_PRIVATE_IPS", "false")
	setEnv(t, "FETCHER_RENDER_SERVICE_URL", "http://render.internal:9222")
	setEnv(t, "FETCHER_RENDER_SERVICE_TOKEN", "secret")

	cfg, err := LoadConfigFromEnv()
	require.NoError(t, err)

	assert.Equal(t, 5*time.Second, cfg.Timeout)
	assert.Equal(t, int64(2048), cfg.MaxBodySize)
	assert.Equal(t, 2, cfg.MaxRedirects)
	assert.False(t, cfg.DenyPrivateIPs)
	assert.Equal(t, "http://render.internal:9222", cfg.RenderServiceURL)
	assert.Equal(t, "secret", cfg.RenderServiceToken)
}

func TestLoadConfigFromEnv_UnparseableValueFallsBackToDefault(t *testing.T) {
	setEnv(t, "FETCHER_TIMEOUT", "not-a-duration")

	cfg, err := LoadConfigFromEnv()
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Timeout, cfg.Timeout)
}

func TestLoadConfigFromEnv_RejectsOutOfRangeValue(t *testing.T) {
	setEnv(t, "FETCHER_MAX_REDIRECTS", "99")

	_, err := LoadConfigFromEnv()
	assert.Error(t, err)
}

func setEnv(t *testing.T, key, value string) {
	t.Helper()
	t.Setenv(key, value)
}

func unsetEnv(t *testing.T, key string) {
	t.Helper()
	require.NoError(t, os.Unsetenv(key))
}
