package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// unsetEnv clears key for the duration of the test, so values loaded from
// a .env file are observable.
func unsetEnv(t *testing.T, key string) {
	t.Helper()
	old, had := os.LookupEnv(key)
	require.NoError(t, os.Unsetenv(key))
	t.Cleanup(func() {
		if had {
			_ = os.Setenv(key, old)
		} else {
			_ = os.Unsetenv(key)
		}
	})
}

func Test_parseEnv_Variables(t *testing.T) {
	t.Setenv(EnvAPIURL, "http://env/api")
	t.Setenv(EnvSocketURL, "")
	t.Setenv(EnvSendTimeout, "45")
	t.Setenv(EnvLogLevel, "error")
	t.Setenv(EnvDBPath, "")
	t.Setenv(EnvMaxUploadSize, "100")

	cfg := &Config{}
	cfg.LoadDefaults()
	parseEnv(cfg, nil)

	assert.Equal(t, "http://env/api", cfg.APIURL)
	assert.Empty(t, cfg.SocketURL)
	assert.Equal(t, 45*time.Second, cfg.SendTimeout)
	assert.Equal(t, "error", cfg.LogLevel)
	assert.Equal(t, "medchat.db", cfg.DBPath)
	assert.Equal(t, int64(100), cfg.MaxUploadSize)
}

func Test_parseEnv_DurationString(t *testing.T) {
	t.Setenv(EnvSendTimeout, "1m")
	cfg := &Config{}
	parseEnv(cfg, nil)
	assert.Equal(t, time.Minute, cfg.SendTimeout)
}

func Test_parseEnv_Invalid(t *testing.T) {
	t.Run("timeout", func(t *testing.T) {
		t.Setenv(EnvSendTimeout, "-3")
		require.Panics(t, func() { parseEnv(&Config{}, nil) })
	})
	t.Run("upload size", func(t *testing.T) {
		t.Setenv(EnvMaxUploadSize, "big")
		require.Panics(t, func() { parseEnv(&Config{}, nil) })
	})
}

func Test_parseEnv_DotEnvFile(t *testing.T) {
	unsetEnv(t, EnvAPIURL)
	unsetEnv(t, EnvDBPath)
	t.Setenv(EnvLogLevel, "debug")

	p := filepath.Join(t.TempDir(), "dev.env")
	require.NoError(t, os.WriteFile(p, []byte("MEDCHAT_API_URL=http://dotenv/api\nMEDCHAT_LOG_LEVEL=error\nMEDCHAT_DB_PATH=/tmp/d.db\n"), 0o600))

	cfg := &Config{}
	parseEnv(cfg, []string{"-e", p})

	assert.Equal(t, "http://dotenv/api", cfg.APIURL)
	assert.Equal(t, "/tmp/d.db", cfg.DBPath)
	assert.Equal(t, "debug", cfg.LogLevel, "process environment wins over .env")
}

func Test_parseEnv_MissingExplicitFilePanics(t *testing.T) {
	require.Panics(t, func() { parseEnv(&Config{}, []string{"-e", filepath.Join(t.TempDir(), "none.env")}) })
}
