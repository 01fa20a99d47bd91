// Package config loads ratlab settings from defaults, a YAML file, a .env
// file and RATLAB_* environment variables, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/aretw0/ratlab/pkg/persistence/middleware"
	"github.com/aretw0/ratlab/pkg/registry"
	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// DefaultFile is read when no config file is given and it exists.
const DefaultFile = "ratlab.yaml"

// EnvPrefix prefixes every environment override.
const EnvPrefix = "RATLAB_"

// Stores lists the supported store kinds.
var Stores = []string{"memory", "file", "redis", "sqlite"}

// Config holds all application configuration.
type Config struct {
	Engine    string      `mapstructure:"engine" yaml:"engine"`
	Debug     bool        `mapstructure:"debug" yaml:"debug"`
	LogFormat string      `mapstructure:"log_format" yaml:"log_format"`
	Replay    bool        `mapstructure:"replay" yaml:"replay"`
	Store     StoreConfig `mapstructure:"store" yaml:"store"`
	HTTP      HTTPConfig  `mapstructure:"http" yaml:"http"`
	JS        JSConfig    `mapstructure:"js" yaml:"js"`
	Security  Security    `mapstructure:"security" yaml:"security"`
}

// StoreConfig selects and configures the transcript store.
type StoreConfig struct {
	Kind          string        `mapstructure:"kind" yaml:"kind"`
	Path          string        `mapstructure:"path" yaml:"path"`
	RedisAddr     string        `mapstructure:"redis_addr" yaml:"redis_addr"`
	RedisPassword string        `mapstructure:"redis_password" yaml:"redis_password"`
	RedisDB       int           `mapstructure:"redis_db" yaml:"redis_db"`
	RedisPrefix   string        `mapstructure:"redis_prefix" yaml:"redis_prefix"`
	TTL           time.Duration `mapstructure:"ttl" yaml:"ttl"`
	Lock          bool          `mapstructure:"lock" yaml:"lock"`
}

// HTTPConfig configures the serve command.
type HTTPConfig struct {
	Addr    string `mapstructure:"addr" yaml:"addr"`
	Metrics bool   `mapstructure:"metrics" yaml:"metrics"`
}

// JSConfig configures the JavaScript engine.
type JSConfig struct {
	Timeout        time.Duration `mapstructure:"timeout" yaml:"timeout"`
	MaxOutputChars int           `mapstructure:"max_output_chars" yaml:"max_output_chars"`
}

// Security configures store middlewares.
type Security struct {
	EncryptionKey  string   `mapstructure:"encryption_key" yaml:"encryption_key"`
	FallbackKeys   []string `mapstructure:"fallback_keys" yaml:"fallback_keys"`
	RedactPatterns []string `mapstructure:"redact_patterns" yaml:"redact_patterns"`
}

// defaults is the lowest precedence layer.
func defaults() map[string]any {
	return map[string]any{
		"engine":     "calc",
		"debug":      false,
		"log_format": "text",
		"replay":     true,
		"store": map[string]any{
			"kind":         "file",
			"path":         ".ratlab/sessions",
			"redis_addr":   "localhost:6379",
			"redis_db":     0,
			"redis_prefix": "ratlab:session:",
			"ttl":          "0s",
			"lock":         false,
		},
		"http": map[string]any{
			"addr":    ":8080",
			"metrics": true,
		},
		"js": map[string]any{
			"timeout":          "5s",
			"max_output_chars": 10000,
		},
	}
}

// envKeys maps RATLAB_* variables onto config paths.
var envKeys = map[string][]string{
	"ENGINE":                   {"engine"},
	"DEBUG":                    {"debug"},
	"LOG_FORMAT":               {"log_format"},
	"REPLAY":                   {"replay"},
	"STORE":                    {"store", "kind"},
	"STORE_PATH":               {"store", "path"},
	"REDIS_ADDR":               {"store", "redis_addr"},
	"REDIS_PASSWORD":           {"store", "redis_password"},
	"REDIS_DB":                 {"store", "redis_db"},
	"REDIS_PREFIX":             {"store", "redis_prefix"},
	"STORE_TTL":                {"store", "ttl"},
	"STORE_LOCK":               {"store", "lock"},
	"HTTP_ADDR":                {"http", "addr"},
	"HTTP_METRICS":             {"http", "metrics"},
	"JS_TIMEOUT":               {"js", "timeout"},
	"JS_MAX_OUTPUT_CHARS":      {"js", "max_output_chars"},
	"ENCRYPTION_KEY":           {"security", "encryption_key"},
	"ENCRYPTION_FALLBACK_KEYS": {"security", "fallback_keys"},
	"REDACT_PATTERNS":          {"security", "redact_patterns"},
}

type loader struct {
	file     string
	explicit bool
	envFile  string
	lookup   func(string) (string, bool)
}

// LoadOption configures Load.
type LoadOption func(*loader)

// WithFile reads path instead of DefaultFile. A missing explicit file is an error.
func WithFile(path string) LoadOption {
	return func(l *loader) {
		if path != "" {
			l.file = path
			l.explicit = true
		}
	}
}

// WithEnvFile reads path instead of ".env". An empty path disables it.
func WithEnvFile(path string) LoadOption {
	return func(l *loader) {
		l.envFile = path
	}
}

// WithLookupEnv replaces os.LookupEnv.
func WithLookupEnv(fn func(string) (string, bool)) LoadOption {
	return func(l *loader) {
		l.lookup = fn
	}
}

// Load merges every source and validates the result.
func Load(opts ...LoadOption) (*Config, error) {
	l := &loader{
		file:    DefaultFile,
		envFile: ".env",
		lookup:  os.LookupEnv,
	}
	for _, opt := range opts {
		opt(l)
	}

	merged := defaults()

	fileValues, err := l.readFile()
	if err != nil {
		return nil, err
	}
	merge(merged, fileValues)

	envValues, err := l.readEnv()
	if err != nil {
		return nil, err
	}
	for key, path := range envKeys {
		if val, ok := envValues[EnvPrefix+key]; ok {
			set(merged, path, val)
		}
	}

	cfg, err := decode(merged)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (l *loader) readFile() (map[string]any, error) {
	data, err := os.ReadFile(l.file)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !l.explicit {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	values := map[string]any{}
	if err := yaml.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", l.file, err)
	}
	return values, nil
}

// readEnv returns .env values overlaid with the real environment.
// The process environment is never modified.
func (l *loader) readEnv() (map[string]string, error) {
	values := map[string]string{}
	if l.envFile != "" {
		fileEnv, err := godotenv.Read(l.envFile)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to read %s: %w", l.envFile, err)
		}
		for k, v := range fileEnv {
			values[k] = v
		}
	}
	for key := range envKeys {
		if v, ok := l.lookup(EnvPrefix + key); ok {
			values[EnvPrefix+key] = v
		}
	}
	return values, nil
}

func decode(input map[string]any) (*Config, error) {
	var cfg Config
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &cfg,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(input); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// merge copies src into dst, descending into nested maps.
func merge(dst, src map[string]any) {
	for k, v := range src {
		if sub, ok := v.(map[string]any); ok {
			if existing, ok := dst[k].(map[string]any); ok {
				merge(existing, sub)
				continue
			}
		}
		dst[k] = v
	}
}

func set(m map[string]any, path []string, val any) {
	for _, key := range path[:len(path)-1] {
		sub, ok := m[key].(map[string]any)
		if !ok {
			sub = map[string]any{}
			m[key] = sub
		}
		m = sub
	}
	m[path[len(path)-1]] = val
}

// Validate checks that values are usable.
func (c *Config) Validate() error {
	if engines := registry.Default(); !engines.Has(c.Engine) {
		return fmt.Errorf("unknown engine %q (want one of %s)", c.Engine, strings.Join(engines.Names(), ", "))
	}
	if !contains(Stores, c.Store.Kind) {
		return fmt.Errorf("unknown store %q (want one of %s)", c.Store.Kind, strings.Join(Stores, ", "))
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return fmt.Errorf("unknown log format %q", c.LogFormat)
	}
	switch c.Store.Kind {
	case "file", "sqlite":
		if c.Store.Path == "" {
			return fmt.Errorf("store path cannot be empty for %s store", c.Store.Kind)
		}
	case "redis":
		if c.Store.RedisAddr == "" {
			return errors.New("redis address cannot be empty")
		}
	}
	if c.Store.TTL < 0 {
		return errors.New("store ttl cannot be negative")
	}
	if c.JS.Timeout <= 0 {
		return errors.New("js timeout must be > 0")
	}
	if c.JS.MaxOutputChars <= 0 {
		return errors.New("js max output chars must be > 0")
	}
	if c.Security.EncryptionKey != "" {
		if _, err := middleware.ParseKey(c.Security.EncryptionKey); err != nil {
			return err
		}
	}
	for _, k := range c.Security.FallbackKeys {
		if _, err := middleware.ParseKey(k); err != nil {
			return fmt.Errorf("fallback key: %w", err)
		}
	}
	if len(c.Security.FallbackKeys) > 0 && c.Security.EncryptionKey == "" {
		return errors.New("fallback keys need an encryption key")
	}
	for _, p := range c.Security.RedactPatterns {
		if _, err := regexp.Compile(p); err != nil {
			return fmt.Errorf("invalid redact pattern %q: %w", p, err)
		}
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
