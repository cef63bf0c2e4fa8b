package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestPresets(t *testing.T) {
	cases := []struct {
		env      string
		timeout  time.Duration
		attempts int
		delay    time.Duration
		debug    bool
	}{
		{"development", 15 * time.Second, 3, time.Second, true},
		{"staging", 10 * time.Second, 2, 1500 * time.Millisecond, false},
		{"production", 8 * time.Second, 2, 2 * time.Second, false},
		{"", 15 * time.Second, 3, time.Second, true},
		{"bogus", 15 * time.Second, 3, time.Second, true},
	}
	for _, tc := range cases {
		cfg := Preset(tc.env)
		if cfg.API.Timeout != tc.timeout || cfg.API.RetryAttempts != tc.attempts || cfg.API.RetryDelay != tc.delay || cfg.Debug != tc.debug {
			t.Fatalf("%q: got %+v", tc.env, cfg.API)
		}
		if err := cfg.Validate(); err != nil {
			t.Fatalf("%q: preset invalid: %v", tc.env, err)
		}
	}
}

func TestLoadLayersFileThenEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	path := filepath.Join(dir, "store.yaml")
	doc := "api:\n  base_url: http://file.local/api\n  retry_attempts: 5\n  timeout: 3s\nkv:\n  driver: memory\n"
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("STORE_ENV", "production")
	t.Setenv("STORE_CONFIG", path)
	t.Setenv("STORE_RETRY_ATTEMPTS", "4")
	t.Setenv("STORE_RETRY_DELAY", "250")
	t.Setenv("STORE_DEBUG", "yes")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Env != Production || cfg.API.BaseURL != "http://file.local/api" || cfg.API.Timeout != 3*time.Second {
		t.Fatalf("file layer not applied: %+v", cfg)
	}
	if cfg.API.RetryAttempts != 4 || cfg.API.RetryDelay != 250*time.Millisecond || !cfg.Debug {
		t.Fatalf("env layer not applied: %+v", cfg)
	}
	if cfg.Store().Driver != "memory" {
		t.Fatalf("kv=%+v", cfg.KV)
	}
}

func TestLoadReadsDotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("STORE_API_URL", "")
	os.Unsetenv("STORE_API_URL")
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("STORE_API_URL=http://dotenv.local/api/\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := cfg.Client().BaseURL; got != "http://dotenv.local/api" {
		t.Fatalf("base url=%q", got)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("STORE_API_TIMEOUT", "soon")
	t.Setenv("STORE_RETRY_ATTEMPTS", "0")

	_, err := Load()
	if err == nil || !strings.Contains(err.Error(), "STORE_API_TIMEOUT") {
		t.Fatalf("err=%v", err)
	}

	t.Setenv("STORE_API_TIMEOUT", "")
	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "retry attempts") {
		t.Fatalf("err=%v", err)
	}
}
