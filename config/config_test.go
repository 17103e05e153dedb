package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const baseYAML = `
app:
  name: webhook-gateway
  env: test
guard:
  default:
    attempt_timeout: 10s
    retry:
      max_attempts: 3
      base_delay: 200ms
admission:
  limit: 100
  window: 1m
  max_entries: 5000
idem:
  ttl: 24h
  default_fail_mode: open
  classes:
    payment:
      fail_mode: closed
`

func newLoadedLoader(t *testing.T, dir string) Loader {
	t.Helper()
	loader, err := New(&Config{
		Name:      "config",
		Paths:     []string{dir},
		EnvPrefix: "ANCHOR_TEST",
	})
	require.NoError(t, err)
	require.NoError(t, loader.Load(context.Background()))
	return loader
}

func TestLoader_LoadAndUnmarshal(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, "config.yaml", baseYAML)
	loader := newLoadedLoader(t, dir)

	t.Run("Get 原始值", func(t *testing.T) {
		assert.Equal(t, "webhook-gateway", loader.Get("app.name"))
	})

	t.Run("Unmarshal 到类型化配置", func(t *testing.T) {
		var cfg AppConfig
		require.NoError(t, loader.Unmarshal(&cfg))

		assert.Equal(t, "webhook-gateway", cfg.App.Name)
		assert.Equal(t, 10*time.Second, cfg.Guard.Default.AttemptTimeout)
		assert.Equal(t, 3, cfg.Guard.Default.Retry.MaxAttempts)
		assert.Equal(t, 200*time.Millisecond, cfg.Guard.Default.Retry.BaseDelay)
		assert.EqualValues(t, 100, cfg.Admission.Limit)
		assert.Equal(t, time.Minute, cfg.Admission.Window)
		assert.Equal(t, 24*time.Hour, cfg.Idem.TTL)
		assert.Equal(t, "closed", string(cfg.Idem.Classes["payment"].FailMode))
	})

	t.Run("UnmarshalKey", func(t *testing.T) {
		var adm AdmissionConfig
		require.NoError(t, loader.UnmarshalKey("admission", &adm))
		assert.Equal(t, 5000, adm.MaxEntries)
		assert.EqualValues(t, 100, adm.Rule().Limit)
	})
}

func TestLoader_EnvOverride(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, "config.yaml", baseYAML)

	t.Setenv("ANCHOR_TEST_APP_NAME", "from-env")
	loader := newLoadedLoader(t, dir)

	assert.Equal(t, "from-env", loader.Get("app.name"))
}

func TestLoader_DotEnv(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, "config.yaml", baseYAML)
	writeConfigFile(t, dir, ".env", "ANCHOR_TEST_APP_ENV=dotenv\n")

	// godotenv 注入进程环境，测试后清理
	t.Cleanup(func() { os.Unsetenv("ANCHOR_TEST_APP_ENV") })

	loader := newLoadedLoader(t, dir)
	assert.Equal(t, "dotenv", loader.Get("app.env"))
}

func TestLoader_EnvironmentSpecificConfig(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, "config.yaml", baseYAML)
	writeConfigFile(t, dir, "config.production.yaml", "app:\n  env: production\n")

	t.Setenv("ANCHOR_TEST_ENV", "production")
	loader := newLoadedLoader(t, dir)

	assert.Equal(t, "production", loader.Get("app.env"))
	assert.Equal(t, "webhook-gateway", loader.Get("app.name"), "基础配置应保留")
}

func TestLoader_MissingFileIsTolerated(t *testing.T) {
	loader, err := New(&Config{Paths: []string{t.TempDir()}, EnvPrefix: "ANCHOR_TEST"})
	require.NoError(t, err)
	assert.NoError(t, loader.Load(context.Background()), "仅环境变量运行也应可用")
}

func TestLoader_Watch(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, "config.yaml", baseYAML)
	loader := newLoadedLoader(t, dir)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := loader.Watch(ctx, "app.name")
	require.NoError(t, err)

	writeConfigFile(t, dir, "config.yaml", "app:\n  name: renamed\n")

	select {
	case ev := <-ch:
		assert.Equal(t, "app.name", ev.Key)
		assert.Equal(t, "renamed", ev.Value)
		assert.Equal(t, "webhook-gateway", ev.OldValue)
	case <-time.After(3 * time.Second):
		t.Fatal("未收到配置变更事件")
	}
}
