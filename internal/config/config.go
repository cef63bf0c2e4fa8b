// Package config resolves client settings from an environment preset, an
// optional YAML file and STORE_* environment variables, in that order.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"StoreClient/internal/httpclient"
	"StoreClient/internal/kvstore"
	"StoreClient/internal/network"
	"StoreClient/internal/offline"
)

const (
	Development = "development"
	Staging     = "staging"
	Production  = "production"

	DefaultBaseURL = "https://gudangperabot.com/api"
)

type API struct {
	BaseURL             string        `yaml:"base_url"`
	Timeout             time.Duration `yaml:"timeout"`
	RetryAttempts       int           `yaml:"retry_attempts"`
	RetryDelay          time.Duration `yaml:"retry_delay"`
	UploadTimeoutFactor int           `yaml:"upload_timeout_factor"`
}

type KV struct {
	Driver string `yaml:"driver"`
	Path   string `yaml:"path"`
	DSN    string `yaml:"dsn"`
}

type Network struct {
	PollInterval time.Duration `yaml:"poll_interval"`
	MinInterval  time.Duration `yaml:"min_interval"`
}

type Queue struct {
	MaxRetries int `yaml:"max_retries"`
}

type Tracing struct {
	Enabled    bool    `yaml:"enabled"`
	Endpoint   string  `yaml:"endpoint"`
	SampleRate float64 `yaml:"sample_rate"`
}

type Config struct {
	Env     string  `yaml:"env"`
	Debug   bool    `yaml:"debug"`
	API     API     `yaml:"api"`
	KV      KV      `yaml:"kv"`
	Network Network `yaml:"network"`
	Queue   Queue   `yaml:"queue"`
	Tracing Tracing `yaml:"tracing"`
}

// Preset returns the defaults for env. Unknown names fall back to
// development.
func Preset(env string) Config {
	cfg := Config{
		Env:   Development,
		Debug: true,
		API: API{
			BaseURL:             DefaultBaseURL,
			Timeout:             15 * time.Second,
			RetryAttempts:       3,
			RetryDelay:          time.Second,
			UploadTimeoutFactor: 2,
		},
		KV:      KV{Driver: "file", Path: "storeclient.json"},
		Network: Network{PollInterval: network.DefaultPollInterval, MinInterval: network.DefaultMinInterval},
		Queue:   Queue{MaxRetries: offline.DefaultMaxRetries},
		Tracing: Tracing{SampleRate: 0.1},
	}

	switch strings.ToLower(strings.TrimSpace(env)) {
	case Staging:
		cfg.Env = Staging
		cfg.Debug = false
		cfg.API.Timeout = 10 * time.Second
		cfg.API.RetryAttempts = 2
		cfg.API.RetryDelay = 1500 * time.Millisecond
	case Production:
		cfg.Env = Production
		cfg.Debug = false
		cfg.API.Timeout = 8 * time.Second
		cfg.API.RetryAttempts = 2
		cfg.API.RetryDelay = 2 * time.Second
	}
	return cfg
}

// Load reads .env when present, picks the preset named by STORE_ENV, merges
// the YAML file named by STORE_CONFIG and finally applies env overrides.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	cfg := Preset(os.Getenv("STORE_ENV"))
	if path := strings.TrimSpace(os.Getenv("STORE_CONFIG")); path != "" {
		if err := LoadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

// LoadFile overlays the YAML document at path onto cfg. Keys absent from
// the file keep their current value.
func LoadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config yaml file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("unmarshal yaml from %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	str := func(key string, dst *string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}
	str("STORE_API_URL", &cfg.API.BaseURL)
	str("STORE_KV_DRIVER", &cfg.KV.Driver)
	str("STORE_KV_PATH", &cfg.KV.Path)
	str("STORE_KV_DSN", &cfg.KV.DSN)
	str("OTEL_EXPORTER_OTLP_ENDPOINT", &cfg.Tracing.Endpoint)

	var errs []error
	dur := func(key string, dst *time.Duration) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			d, err := parseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = d
		}
	}
	num := func(key string, dst *int) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}
	flag := func(key string, dst *bool) {
		switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
		case "1", "true", "yes":
			*dst = true
		case "0", "false", "no":
			*dst = false
		}
	}

	dur("STORE_API_TIMEOUT", &cfg.API.Timeout)
	num("STORE_RETRY_ATTEMPTS", &cfg.API.RetryAttempts)
	dur("STORE_RETRY_DELAY", &cfg.API.RetryDelay)
	dur("STORE_NETWORK_POLL", &cfg.Network.PollInterval)
	dur("STORE_NETWORK_MIN_INTERVAL", &cfg.Network.MinInterval)
	num("STORE_QUEUE_MAX_RETRIES", &cfg.Queue.MaxRetries)
	flag("STORE_DEBUG", &cfg.Debug)
	flag("OTEL_ENABLED", &cfg.Tracing.Enabled)

	if v := strings.TrimSpace(os.Getenv("OTEL_TRACE_SAMPLE_RATE")); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("OTEL_TRACE_SAMPLE_RATE: %w", err))
		} else {
			cfg.Tracing.SampleRate = f
		}
	}
	return errors.Join(errs...)
}

// parseDuration accepts Go durations and bare milliseconds.
func parseDuration(v string) (time.Duration, error) {
	if ms, err := strconv.Atoi(v); err == nil {
		return time.Duration(ms) * time.Millisecond, nil
	}
	return time.ParseDuration(v)
}

func (c Config) Validate() error {
	var errs []error
	if c.API.BaseURL == "" {
		errs = append(errs, errors.New("api base url is required"))
	}
	if c.API.Timeout <= 0 {
		errs = append(errs, errors.New("api timeout must be positive"))
	}
	if c.API.RetryAttempts < 1 {
		errs = append(errs, errors.New("retry attempts must be at least 1"))
	}
	if c.API.RetryDelay < 0 {
		errs = append(errs, errors.New("retry delay must not be negative"))
	}
	if c.KV.Driver == "postgres" && c.KV.DSN == "" {
		errs = append(errs, errors.New("postgres kv driver needs a dsn"))
	}
	return errors.Join(errs...)
}

func (c Config) Client() httpclient.Config {
	return httpclient.Config{
		BaseURL:             strings.TrimRight(c.API.BaseURL, "/"),
		Timeout:             c.API.Timeout,
		RetryAttempts:       c.API.RetryAttempts,
		RetryDelay:          c.API.RetryDelay,
		UploadTimeoutFactor: c.API.UploadTimeoutFactor,
	}
}

func (c Config) Store() kvstore.Options {
	return kvstore.Options{Driver: c.KV.Driver, Path: c.KV.Path, DSN: c.KV.DSN}
}

func (c Config) Connectivity() network.Config {
	return network.Config{PollInterval: c.Network.PollInterval, MinInterval: c.Network.MinInterval}
}
