// Package config loads runtime configuration for the medchat CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON or YAML file selected via -c or -config.
//  3. MEDCHAT_* environment variables, optionally seeded from a .env file
//     (-e/-env, or ./.env when present).
//  4. Command-line flags, which override everything else.
//
// Supported flags
//
//	-a string   API base URL (default http://localhost:8000/api)
//	-w string   push channel URL (default: derived from -a)
//	-t int      send timeout (seconds, default 30)
//	-l string   log level (default info)
//	-d string   token database path (default medchat.db)
//
// # File schema
//
// Durations use timex.Duration, so values can be strings like "30s" or
// integer nanoseconds:
//
//	api_url: http://localhost:8000/api
//	send_timeout: 30s
//	log_level: debug
//	db_path: ~/.medchat/tokens.db
//	max_upload_size: 10485760
package config
