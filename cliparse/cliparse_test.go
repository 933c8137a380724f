// cliparse/cliparse_test.go
package cliparse

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestParseFlags_EnvVars(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("DATABASE_URL", "postgres://test")
	t.Setenv("DATABASE_TYPE", "postgres")
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("RESET_CLOSED_POLLS", "true")
	t.Setenv("SESSION_BUFFER", "4")
	t.Setenv("WS_PING_INTERVAL", "5s")
	t.Setenv("WS_ORIGINS", "example.com, *.example.org")

	cfg, err := ParseFlags([]string{"-env-file", ""})
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Port != 9000 {
		t.Errorf("expected port 9000, got %d", cfg.Port)
	}
	if cfg.DatabaseType != "postgres" {
		t.Errorf("expected postgres, got %s", cfg.DatabaseType)
	}
	if !cfg.AllowResetClosed {
		t.Error("expected AllowResetClosed from env")
	}
	if cfg.SessionBuffer != 4 {
		t.Errorf("expected session buffer 4, got %d", cfg.SessionBuffer)
	}
	if cfg.PingInterval != 5*time.Second {
		t.Errorf("expected ping interval 5s, got %s", cfg.PingInterval)
	}
	if len(cfg.OriginPatterns) != 2 || cfg.OriginPatterns[1] != "*.example.org" {
		t.Errorf("unexpected origin patterns: %v", cfg.OriginPatterns)
	}
}

func TestParseFlags_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "file:test.db")
	t.Setenv("JWT_SECRET", "s")

	cfg, err := ParseFlags([]string{"-env-file", ""})
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Port != 3318 {
		t.Errorf("expected default port 3318, got %d", cfg.Port)
	}
	if cfg.DatabaseType != "sqlite" {
		t.Errorf("expected default sqlite, got %s", cfg.DatabaseType)
	}
	if cfg.AllowResetClosed {
		t.Error("reset of closed polls should be off by default")
	}
	if !cfg.EvictSlowSessions {
		t.Error("slow session eviction should be on by default")
	}
	if cfg.SessionBuffer != 16 {
		t.Errorf("expected session buffer 16, got %d", cfg.SessionBuffer)
	}
	if cfg.WriteTimeout != 10*time.Second || cfg.PingInterval != 30*time.Second {
		t.Errorf("unexpected timeouts: write=%s ping=%s", cfg.WriteTimeout, cfg.PingInterval)
	}
}

func TestParseFlags_CLIOverridesEnv(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("EVICT_SLOW_SESSIONS", "true")

	cfg, err := ParseFlags([]string{"-env-file", "", "-p", "8080", "-d", "file:test.db", "-jwt-secret", "s1", "-evict-slow", "false"})
	if err != nil {
		t.Fatal(err)
	}

	// CLI should override env
	if cfg.Port != 8080 {
		t.Errorf("CLI should override env: expected 8080, got %d", cfg.Port)
	}
	if cfg.EvictSlowSessions {
		t.Error("CLI should override env for -evict-slow")
	}
}

func TestParseFlags_EnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	content := "DATABASE_URL=file:from-env-file.db\nJWT_SECRET=file-secret\nPORT=7000\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	// Already set variables are not overridden by the file
	t.Setenv("PORT", "7100")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("JWT_SECRET", "")
	os.Unsetenv("DATABASE_URL")
	os.Unsetenv("JWT_SECRET")

	cfg, err := ParseFlags([]string{"-env-file", path})
	if err != nil {
		t.Fatal(err)
	}

	if cfg.DatabaseURL != "file:from-env-file.db" {
		t.Errorf("expected DATABASE_URL from file, got %q", cfg.DatabaseURL)
	}
	if cfg.JWTSecret != "file-secret" {
		t.Errorf("expected JWT_SECRET from file, got %q", cfg.JWTSecret)
	}
	if cfg.Port != 7100 {
		t.Errorf("environment should win over env file: expected 7100, got %d", cfg.Port)
	}
}

func TestParseFlags_Validation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		args []string
	}{
		{"missing database url", map[string]string{"JWT_SECRET": "s"}, nil},
		{"missing jwt secret", map[string]string{"DATABASE_URL": "file:x.db"}, nil},
		{"bad port", map[string]string{"DATABASE_URL": "file:x.db", "JWT_SECRET": "s", "PORT": "abc"}, nil},
		{"bad database type", map[string]string{"DATABASE_URL": "x", "JWT_SECRET": "s", "DATABASE_TYPE": "mysql"}, nil},
		{"bad bool", map[string]string{"DATABASE_URL": "x", "JWT_SECRET": "s", "RESET_CLOSED_POLLS": "maybe"}, nil},
		{"bad duration", map[string]string{"DATABASE_URL": "x", "JWT_SECRET": "s", "WS_WRITE_TIMEOUT": "soon"}, nil},
		{"bad buffer", map[string]string{"DATABASE_URL": "x", "JWT_SECRET": "s", "SESSION_BUFFER": "0"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, k := range []string{"PORT", "DATABASE_URL", "DATABASE_TYPE", "JWT_SECRET", "RESET_CLOSED_POLLS", "WS_WRITE_TIMEOUT", "SESSION_BUFFER"} {
				t.Setenv(k, "")
			}
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			args := append([]string{"-env-file", ""}, tt.args...)
			if _, err := ParseFlags(args); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
