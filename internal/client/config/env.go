package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/dmitrijs2005/medchat/internal/flagx"
	"github.com/joho/godotenv"
)

// Environment variables read by parseEnv.
const (
	EnvAPIURL        = "MEDCHAT_API_URL"
	EnvSocketURL     = "MEDCHAT_SOCKET_URL"
	EnvSendTimeout   = "MEDCHAT_SEND_TIMEOUT"
	EnvLogLevel      = "MEDCHAT_LOG_LEVEL"
	EnvDBPath        = "MEDCHAT_DB_PATH"
	EnvMaxUploadSize = "MEDCHAT_MAX_UPLOAD_SIZE"
)

// defaultEnvFile is loaded when present and no -e/-env flag is given.
const defaultEnvFile = ".env"

// parseEnv overlays cfg with MEDCHAT_* variables. A .env file is loaded
// first; variables already set in the process environment win over it.
func parseEnv(cfg *Config, args []string) {
	if err := loadEnvFile(flagx.EnvFile(args)); err != nil {
		panic(err)
	}

	if v, ok := os.LookupEnv(EnvAPIURL); ok && v != "" {
		cfg.APIURL = v
	}
	if v, ok := os.LookupEnv(EnvSocketURL); ok && v != "" {
		cfg.SocketURL = v
	}
	if v, ok := os.LookupEnv(EnvSendTimeout); ok && v != "" {
		d, err := parseSeconds(v)
		if err != nil {
			panic(fmt.Errorf("%s: %w", EnvSendTimeout, err))
		}
		cfg.SendTimeout = d
	}
	if v, ok := os.LookupEnv(EnvLogLevel); ok && v != "" {
		cfg.LogLevel = v
	}
	if v, ok := os.LookupEnv(EnvDBPath); ok && v != "" {
		cfg.DBPath = v
	}
	if v, ok := os.LookupEnv(EnvMaxUploadSize); ok && v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n <= 0 {
			panic(fmt.Errorf("%s: invalid size %q", EnvMaxUploadSize, v))
		}
		cfg.MaxUploadSize = n
	}
}

// loadEnvFile loads path, or .env from the working directory when path is
// empty. A missing default file is not an error.
func loadEnvFile(path string) error {
	if path != "" {
		return godotenv.Load(path)
	}
	if err := godotenv.Load(defaultEnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// parseSeconds accepts either a duration string ("45s") or a bare number of
// seconds ("45").
func parseSeconds(s string) (time.Duration, error) {
	if n, err := strconv.Atoi(s); err == nil {
		if n <= 0 {
			return 0, fmt.Errorf("timeout must be positive, got %d", n)
		}
		return time.Duration(n) * time.Second, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("timeout must be positive, got %s", d)
	}
	return d, nil
}
