// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package cliparse handles command-line argument parsing and configuration.

	cfg, err := cliparse.ParseFlags(os.Args[1:])

# CLI Flags and Environment Variables

	-p              PORT                 Server port (default 3318)
	-d              DATABASE_URL         Database URL (required)
	-t              DATABASE_TYPE        sqlite (default) or postgres
	-jwt-secret     JWT_SECRET           Bearer token secret (required)
	-reset-closed   RESET_CLOSED_POLLS   Allow resetting closed polls (default false)
	-session-buffer SESSION_BUFFER       Frames queued per realtime session (default 16)
	-evict-slow     EVICT_SLOW_SESSIONS  Drop sessions that overflow (default true)
	-write-timeout  WS_WRITE_TIMEOUT     Websocket write timeout (default 10s)
	-ping-interval  WS_PING_INTERVAL     Websocket ping interval (default 30s)
	-origins        WS_ORIGINS           Comma separated origin patterns
	-env-file                            Dotenv file (default .env, optional)

CLI flags take precedence over environment variables. The dotenv file is
loaded with godotenv and never overrides variables that are already set;
a missing file is not an error.
*/
package cliparse
