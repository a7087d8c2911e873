package config

import (
	"flag"
	"io"
	"time"

	"github.com/dmitrijs2005/medchat/internal/flagx"
)

// parseFlags populates Config fields from command-line flags.
//
//	-a string   API base URL
//	-w string   push channel URL (derived from -a when empty)
//	-t int      send timeout in seconds
//	-l string   log level: debug, info, warn, error
//	-d string   path of the local token database
//
// Only these flags are considered, so -c/-e and REPL arguments never reach
// this flag set.
func parseFlags(cfg *Config, args []string) {
	args = flagx.FilterArgs(args, []string{"-a", "-w", "-t", "-l", "-d"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.APIURL, "a", cfg.APIURL, "API base URL")
	fs.StringVar(&cfg.SocketURL, "w", cfg.SocketURL, "push channel URL")
	timeout := fs.Int("t", int(cfg.SendTimeout.Seconds()), "send timeout (in seconds)")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level")
	fs.StringVar(&cfg.DBPath, "d", cfg.DBPath, "token database path")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
	if *timeout <= 0 {
		panic("send timeout must be positive")
	}
	cfg.SendTimeout = time.Duration(*timeout) * time.Second
}
