// Package config handles configuration for the development server,
// including defaults, the environment and command-line flags.
package config

import (
	"os"
	"time"

	"github.com/dmitrijs2005/medchat/internal/filex"
)

// EnvSecretKey overrides the token signing key.
const EnvSecretKey = "MEDCHAT_DEV_SECRET"

// Config holds runtime settings for the development server.
//
// Fields:
//   - Addr: bind address of the HTTP and WebSocket endpoint.
//   - SecretKey: HMAC secret for signing tokens (HS256). A random key is
//     generated at start when empty, so tokens do not survive a restart.
//   - TokenValidityDuration: lifetime of issued tokens.
//   - MaxUploadSize: largest accepted upload in bytes.
//   - LogLevel: debug, info, warn or error.
type Config struct {
	Addr                  string
	SecretKey             string
	TokenValidityDuration time.Duration
	MaxUploadSize         int64
	LogLevel              string
}

// LoadDefaults populates c with development defaults.
func (c *Config) LoadDefaults() {
	c.Addr = ":8000"
	c.SecretKey = ""
	c.TokenValidityDuration = 24 * time.Hour
	c.MaxUploadSize = filex.DefaultMaxSize
	c.LogLevel = "info"
}

// LoadConfig builds a Config by applying defaults, then the environment and
// finally command-line flags.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	if v, ok := os.LookupEnv(EnvSecretKey); ok {
		cfg.SecretKey = v
	}
	parseFlags(cfg, os.Args[1:])
	return cfg
}
