package cliparse

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port         int
	DatabaseURL  string
	DatabaseType string
	JWTSecret    string

	// Reset is normally refused on closed polls
	AllowResetClosed bool

	// Realtime
	SessionBuffer     int
	EvictSlowSessions bool
	WriteTimeout      time.Duration
	PingInterval      time.Duration
	OriginPatterns    []string

	EnvFile string
}

// ParseFlags validates flags and fills the rest from the environment
func ParseFlags(args []string) (Config, error) {
	var cfg Config
	var origins string
	var resetClosed, evictSlow string

	fs := flag.NewFlagSet("livepoll", flag.ContinueOnError)

	// Network config (can be CLI args or env)
	fs.IntVar(&cfg.Port, "p", 0, "Server port")
	fs.StringVar(&cfg.DatabaseURL, "d", "", "Database URL")
	fs.StringVar(&cfg.DatabaseType, "t", "", "Database type (sqlite or postgres)")

	// Secrets (prefer env variables, but allow CLI for dev)
	fs.StringVar(&cfg.JWTSecret, "jwt-secret", "", "Bearer token signing secret (prefer env)")

	fs.StringVar(&resetClosed, "reset-closed", "", "Allow resetting closed polls (true/false)")
	fs.IntVar(&cfg.SessionBuffer, "session-buffer", 0, "Outbound frames buffered per realtime session")
	fs.StringVar(&evictSlow, "evict-slow", "", "Disconnect sessions whose buffer overflows (true/false)")
	fs.DurationVar(&cfg.WriteTimeout, "write-timeout", 0, "Websocket write timeout")
	fs.DurationVar(&cfg.PingInterval, "ping-interval", 0, "Websocket keepalive ping interval")
	fs.StringVar(&origins, "origins", "", "Comma separated websocket origin patterns")
	fs.StringVar(&cfg.EnvFile, "env-file", ".env", "Optional dotenv file")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	// Variables already in the environment win over the file
	if cfg.EnvFile != "" {
		if err := godotenv.Load(cfg.EnvFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("failed to load %s: %w", cfg.EnvFile, err)
		}
	}

	// Fall back to environment variables
	if cfg.Port == 0 {
		if portStr := os.Getenv("PORT"); portStr != "" {
			port, err := strconv.Atoi(portStr)
			if err != nil {
				return Config{}, errors.New("invalid PORT env variable")
			}
			cfg.Port = port
		} else {
			cfg.Port = 3318 // default
		}
	}
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if cfg.DatabaseURL == "" {
		return Config{}, errors.New("database URL required (use -d or DATABASE_URL env)")
	}

	if cfg.DatabaseType == "" {
		cfg.DatabaseType = os.Getenv("DATABASE_TYPE")
		if cfg.DatabaseType == "" {
			cfg.DatabaseType = "sqlite"
		}
	}
	if cfg.DatabaseType != "sqlite" && cfg.DatabaseType != "postgres" {
		return Config{}, fmt.Errorf("unsupported database type %q", cfg.DatabaseType)
	}

	// Secrets - MUST be provided
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = os.Getenv("JWT_SECRET")
	}
	if cfg.JWTSecret == "" {
		return Config{}, errors.New("JWT_SECRET required")
	}

	var err error
	if cfg.AllowResetClosed, err = boolSetting(resetClosed, "RESET_CLOSED_POLLS", false); err != nil {
		return Config{}, err
	}
	if cfg.EvictSlowSessions, err = boolSetting(evictSlow, "EVICT_SLOW_SESSIONS", true); err != nil {
		return Config{}, err
	}

	if cfg.SessionBuffer == 0 {
		cfg.SessionBuffer = 16
		if s := os.Getenv("SESSION_BUFFER"); s != "" {
			n, err := strconv.Atoi(s)
			if err != nil || n < 1 {
				return Config{}, errors.New("invalid SESSION_BUFFER env variable")
			}
			cfg.SessionBuffer = n
		}
	}
	if cfg.SessionBuffer < 1 {
		return Config{}, errors.New("session buffer must be at least 1")
	}

	if cfg.WriteTimeout, err = durationSetting(cfg.WriteTimeout, "WS_WRITE_TIMEOUT", 10*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.PingInterval, err = durationSetting(cfg.PingInterval, "WS_PING_INTERVAL", 30*time.Second); err != nil {
		return Config{}, err
	}

	if origins == "" {
		origins = os.Getenv("WS_ORIGINS")
	}
	for _, o := range strings.Split(origins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			cfg.OriginPatterns = append(cfg.OriginPatterns, o)
		}
	}

	return cfg, nil
}

func boolSetting(flagVal, env string, def bool) (bool, error) {
	v := flagVal
	if v == "" {
		v = os.Getenv(env)
	}
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s value %q", env, v)
	}
	return b, nil
}

func durationSetting(flagVal time.Duration, env string, def time.Duration) (time.Duration, error) {
	if flagVal > 0 {
		return flagVal, nil
	}
	v := os.Getenv(env)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s value %q", env, v)
	}
	return d, nil
}
