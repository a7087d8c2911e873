package config

import (
	"flag"
	"io"
	"time"

	"github.com/dmitrijs2005/medchat/internal/flagx"
)

// parseFlags populates Config fields from command-line flags.
//
//	-a string   bind address (e.g., ":8000")
//	-s string   token signing key
//	-t int      token validity, hours
//	-m int      maximum upload size, bytes
//	-l string   log level
func parseFlags(cfg *Config, args []string) {
	args = flagx.FilterArgs(args, []string{"-a", "-s", "-t", "-m", "-l"})

	fs := flag.NewFlagSet("devserver", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.Addr, "a", cfg.Addr, "address and port to run server")
	fs.StringVar(&cfg.SecretKey, "s", cfg.SecretKey, "secret key")
	validity := fs.Int("t", int(cfg.TokenValidityDuration.Hours()), "token validity (in hours)")
	fs.Int64Var(&cfg.MaxUploadSize, "m", cfg.MaxUploadSize, "maximum upload size (in bytes)")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
	if *validity <= 0 || cfg.MaxUploadSize <= 0 {
		panic("token validity and upload size must be positive")
	}
	cfg.TokenValidityDuration = time.Duration(*validity) * time.Hour
}
