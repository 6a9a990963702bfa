package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Totarae/shorttty/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load(nil)
	require.NoError(t, err)

	assert.Equal(t, "localhost:8080", cfg.ServerAddress)
	assert.Equal(t, config.ModeMemory, cfg.Mode)
	assert.Equal(t, 24*time.Hour, cfg.SessionTTL)
	assert.Equal(t, 2*time.Second, cfg.GeoTimeout)
	assert.Equal(t, time.Duration(0), cfg.ClickDedupWindow)
	assert.Equal(t, 180, cfg.QRSize)
}

func TestLoad_EnvAndFlags(t *testing.T) {
	t.Setenv("SERVER_ADDRESS", "env:9000")
	t.Setenv("SQLITE_DSN", "file:test.db")
	t.Setenv("CLICK_DEDUP_WINDOW", "30s")

	cfg, err := config.Load([]string{"-a", "flag:9999"})
	require.NoError(t, err)

	assert.Equal(t, "flag:9999", cfg.ServerAddress)
	assert.Equal(t, config.ModeSQLite, cfg.Mode)
	assert.Equal(t, 30*time.Second, cfg.ClickDedupWindow)
}

func TestLoad_ModePriority(t *testing.T) {
	cfg, err := config.Load([]string{"-d", "postgres://localhost/db", "-l", "file:x.db", "-f", "links.json"})
	require.NoError(t, err)
	assert.Equal(t, config.ModeDatabase, cfg.Mode)

	cfg, err = config.Load([]string{"-f", "links.json"})
	require.NoError(t, err)
	assert.Equal(t, config.ModeFile, cfg.Mode)
}

func TestLoad_JSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"base_url":"https://sho.rt","qr_renderer":"local","geo_timeout":"500ms"}`), 0644))
	t.Setenv("QR_RENDERER", "remote")

	cfg, err := config.Load([]string{"-c", path})
	require.NoError(t, err)

	assert.Equal(t, "https://sho.rt", cfg.BaseURL)
	assert.Equal(t, 500*time.Millisecond, cfg.GeoTimeout)
	// окружение важнее файла
	assert.Equal(t, "remote", cfg.QRRenderer)
}

func TestValidate(t *testing.T) {
	_, err := config.Load([]string{"-b", "not a url"})
	assert.Error(t, err)

	t.Setenv("CACHE_BACKEND", "redis")
	_, err = config.Load(nil)
	assert.Error(t, err)
}

func TestLoad_RateLimit(t *testing.T) {
	t.Setenv("RATE_LIMIT_RPS", "5")
	cfg, err := config.Load(nil)
	require.NoError(t, err)
	assert.Equal(t, 5.0, cfg.RateLimitRPS)
	assert.Equal(t, 20, cfg.RateLimitBurst)

	t.Setenv("RATE_LIMIT_BURST", "0")
	_, err = config.Load(nil)
	assert.Error(t, err)
}

func TestLoad_TrustProxyHeaders(t *testing.T) {
	cfg, err := config.Load(nil)
	require.NoError(t, err)
	assert.False(t, cfg.TrustProxyHeaders)

	t.Setenv("TRUST_PROXY_HEADERS", "true")
	cfg, err = config.Load(nil)
	require.NoError(t, err)
	assert.True(t, cfg.TrustProxyHeaders)
}
