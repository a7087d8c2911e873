package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/medchat/internal/flagx"
	"github.com/dmitrijs2005/medchat/internal/timex"
	"gopkg.in/yaml.v3"
)

// FileConfig is the on-disk shape shared by JSON and YAML files. Zero
// values leave the current setting untouched.
type FileConfig struct {
	APIURL        string         `json:"api_url" yaml:"api_url"`
	SocketURL     string         `json:"socket_url" yaml:"socket_url"`
	SendTimeout   timex.Duration `json:"send_timeout" yaml:"send_timeout"`
	LogLevel      string         `json:"log_level" yaml:"log_level"`
	DBPath        string         `json:"db_path" yaml:"db_path"`
	MaxUploadSize int64          `json:"max_upload_size" yaml:"max_upload_size"`
}

// parseFile overlays cfg with the file named by -c/-config. Files ending in
// .yaml or .yml are read as YAML, everything else as JSON.
func parseFile(cfg *Config, args []string) {
	path := flagx.ConfigFile(args)
	if path == "" {
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	var fc FileConfig
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &fc)
	default:
		err = json.Unmarshal(data, &fc)
	}
	if err != nil {
		panic(err)
	}
	fc.apply(cfg)
}

func (fc FileConfig) apply(cfg *Config) {
	if fc.APIURL != "" {
		cfg.APIURL = fc.APIURL
	}
	if fc.SocketURL != "" {
		cfg.SocketURL = fc.SocketURL
	}
	if fc.SendTimeout.Duration > 0 {
		cfg.SendTimeout = fc.SendTimeout.Duration
	}
	if fc.LogLevel != "" {
		cfg.LogLevel = fc.LogLevel
	}
	if fc.DBPath != "" {
		cfg.DBPath = fc.DBPath
	}
	if fc.MaxUploadSize > 0 {
		cfg.MaxUploadSize = fc.MaxUploadSize
	}
}
