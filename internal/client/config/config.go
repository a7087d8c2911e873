package config

import (
	"os"
	"time"

	"github.com/dmitrijs2005/medchat/internal/filex"
)

// Config holds runtime settings for the medchat CLI.
//
// SocketURL may be left empty; the push channel is then derived from APIURL
// (see netx.SocketURL).
type Config struct {
	APIURL        string
	SocketURL     string
	SendTimeout   time.Duration
	LogLevel      string
	DBPath        string
	MaxUploadSize int64
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.APIURL = "http://localhost:8000/api"
	c.SocketURL = ""
	c.SendTimeout = 30 * time.Second
	c.LogLevel = "info"
	c.DBPath = "medchat.db"
	c.MaxUploadSize = filex.DefaultMaxSize
}

// LoadConfig constructs a Config from defaults, then a config file, then the
// environment, then command-line flags. Later sources take precedence. It
// panics on unreadable files or malformed values.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	args := os.Args[1:]
	parseFile(cfg, args)
	parseEnv(cfg, args)
	parseFlags(cfg, args)
	return cfg
}
