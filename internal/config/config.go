// Package config loads settings in layers: built-in defaults, an optional
// YAML file, then environment variables. A .env file in the working
// directory is read into the environment first.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"modestwear/internal/auth"
	applog "modestwear/internal/log"
	"modestwear/internal/mailer"
	"modestwear/internal/media"
	"modestwear/internal/recommend"
	"modestwear/internal/validate"
)

const (
	EnvPrefix = "MODESTWEAR_"
	// PathEnvVar overrides the config file location.
	PathEnvVar = "MODESTWEAR_CONFIG"
)

var DefaultPaths = []string{"config.yaml", "config.yml", "/etc/modestwear/config.yaml"}

type Config struct {
	Server    ServerConfig     `koanf:"server"`
	Database  DatabaseConfig   `koanf:"database"`
	KV        KVConfig         `koanf:"kv"`
	Log       applog.Config    `koanf:"log"`
	Auth      auth.Config      `koanf:"auth"`
	Mail      mailer.Config    `koanf:"mail"`
	Media     media.Config     `koanf:"media"`
	Recommend recommend.Config `koanf:"recommend"`
	Inventory InventoryConfig  `koanf:"inventory"`
}

type ServerConfig struct {
	Addr            string        `koanf:"addr" validate:"required"`
	BodyLimit       int           `koanf:"body_limit" validate:"gt=0"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	RateLimit       int           `koanf:"rate_limit" validate:"gte=0"`
	RateWindow      time.Duration `koanf:"rate_window"`
	LoginRateLimit  int           `koanf:"login_rate_limit" validate:"gte=0"`
	LoginRateWindow time.Duration `koanf:"login_rate_window"`
}

type DatabaseConfig struct {
	DSN string `koanf:"dsn" validate:"required"`
}

// KVConfig points at the badger directory. Empty keeps the store in memory.
type KVConfig struct {
	Dir string `koanf:"dir"`
}

type InventoryConfig struct {
	LowStockThreshold int           `koanf:"low_stock_threshold" validate:"gte=0"`
	ScanInterval      time.Duration `koanf:"scan_interval"`
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:            ":8080",
			BodyLimit:       1 << 20,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			RateLimit:       120,
			RateWindow:      time.Minute,
			LoginRateLimit:  5,
			LoginRateWindow: 10 * time.Minute,
		},
		Database: DatabaseConfig{DSN: "modestwear.db"},
		KV:       KVConfig{Dir: "data/kv"},
		Log:      applog.Config{Level: "info", Format: "json"},
		Auth: auth.Config{
			Issuer:     "modestwear",
			AccessTTL:  15 * time.Minute,
			RefreshTTL: 7 * 24 * time.Hour,
		},
		Mail: mailer.Config{
			Provider: "log",
			From:     "noreply@modestwear.local",
			FromName: "ModestWear",
			BaseURL:  "http://localhost:8080",
			Attempts: 3,
			Backoff:  500 * time.Millisecond,
		},
		Media: media.Config{
			Region:     "us-east-1",
			PresignTTL: time.Hour,
		},
		Recommend: recommend.DefaultConfig(),
		Inventory: InventoryConfig{
			LowStockThreshold: 5,
			ScanInterval:      time.Hour,
		},
	}
}

// Load resolves the configuration. path may be empty, in which case
// MODESTWEAR_CONFIG and then DefaultPaths are tried.
func Load(path string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	k := koanf.New(".")
	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return Config{}, fmt.Errorf("load defaults: %w", err)
	}
	if path == "" {
		path = findFile()
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("load config file %s: %w", path, err)
		}
	}
	if err := k.Load(env.Provider("", ".", envKey), nil); err != nil {
		return Config{}, fmt.Errorf("load environment: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks field rules plus the cross-field constraints.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.Mail.Provider == "sendgrid" && c.Mail.APIKey == "" {
		return errors.New("invalid config: mail.api_key is required for sendgrid")
	}
	return nil
}

func findFile() string {
	if p := os.Getenv(PathEnvVar); p != "" {
		return p
	}
	for _, p := range DefaultPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// Common deployment variables that predate the prefixed scheme.
var envAliases = map[string]string{
	"HTTP_ADDR":        "server.addr",
	"DATABASE_URL":     "database.dsn",
	"JWT_SECRET":       "auth.secret",
	"SENDGRID_API_KEY": "mail.api_key",
	"ADMIN_EMAIL":      "mail.admin_email",
	"AWS_S3_BUCKET":    "media.bucket",
	"LOG_LEVEL":        "log.level",
}

// envKey maps MODESTWEAR_AUTH__ACCESS_TTL to auth.access_ttl. Double
// underscores separate sections since keys contain single ones.
func envKey(key string) string {
	if alias, ok := envAliases[key]; ok {
		return alias
	}
	if !strings.HasPrefix(key, EnvPrefix) || key == PathEnvVar {
		return ""
	}
	key = strings.TrimPrefix(key, EnvPrefix)
	return strings.ReplaceAll(strings.ToLower(key), "__", ".")
}
