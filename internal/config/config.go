package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
	"unicode"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

const (
	ModePolling = "polling"
	ModeWebhook = "webhook"

	DriverFile   = "file"
	DriverSQLite = "sqlite"
	DriverMongo  = "mongo"
	DriverRedis  = "redis"
)

type Config struct {
	AppEnv   string `toml:"app_env" env:"APP_ENV"`
	LogLevel string `toml:"log_level" env:"LOG_LEVEL"`

	BotToken string  `toml:"bot_token" env:"BOT_TOKEN"`
	AdminIDs []int64 `toml:"admin_ids" env:"ADMIN_IDS" envSeparator:","`
	Mode     string  `toml:"mode" env:"BOT_MODE"`
	// Workers bounds how many updates are handled at once in polling mode.
	Workers int `toml:"workers" env:"WORKERS"`

	HTTP    HTTPConfig    `toml:"http"`
	Storage StorageConfig `toml:"storage"`
	Gate    GateConfig    `toml:"gate"`
	Admin   AdminConfig   `toml:"admin"`
}

type HTTPConfig struct {
	Host          string `toml:"host" env:"APP_HOST"`
	Port          string `toml:"port" env:"PORT"`
	WebhookURL    string `toml:"webhook_url" env:"WEBHOOK_URL"`
	WebhookSecret string `toml:"webhook_secret" env:"WEBHOOK_SECRET"`
}

type StorageConfig struct {
	Driver        string `toml:"driver" env:"STORAGE_DRIVER"`
	DataDir       string `toml:"data_dir" env:"DATA_DIR"`
	SQLitePath    string `toml:"sqlite_path" env:"SQLITE_PATH"`
	MongoURI      string `toml:"mongo_uri" env:"MONGODB_URI"`
	MongoDatabase string `toml:"mongo_database" env:"MONGODB_DATABASE"`
	RedisAddr     string `toml:"redis_addr" env:"REDIS_ADDR"`
	RedisPassword string `toml:"redis_password" env:"REDIS_PASSWORD"`
	RedisDB       int    `toml:"redis_db" env:"REDIS_DB"`
	RedisPrefix   string `toml:"redis_prefix" env:"REDIS_PREFIX"`
}

type GateConfig struct {
	// RequiredChannels seeds the channel set when the store has none.
	RequiredChannels []string `toml:"required_channels" env:"REQUIRED_CHANNELS" envSeparator:","`
	FailOpen         bool     `toml:"fail_open" env:"GATE_FAIL_OPEN"`
}

type AdminConfig struct {
	SessionTTL    Duration `toml:"session_ttl" env:"ADMIN_SESSION_TTL"`
	RejectRestart bool     `toml:"reject_restart" env:"REJECT_RESTART"`
}

// Duration reads "15m" style values from both TOML and the environment.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(b)))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

func Default() Config {
	return Config{
		AppEnv:   "production",
		LogLevel: "info",
		Mode:     ModePolling,
		Workers:  16,
		HTTP: HTTPConfig{
			Host: "0.0.0.0",
			Port: "8080",
		},
		Storage: StorageConfig{
			Driver:        DriverFile,
			DataDir:       "data",
			SQLitePath:    "data/kinobot.db",
			MongoDatabase: "kinobot",
			RedisPrefix:   "kinobot",
		},
		Gate: GateConfig{FailOpen: true},
		Admin: AdminConfig{
			SessionTTL: Duration{15 * time.Minute},
		},
	}
}

// Load applies, in order: defaults, the optional TOML file at path, a .env file
// in the working directory, then the process environment.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	_ = godotenv.Load()
	if err := env.ParseWithOptions(&cfg, env.Options{Environment: environment()}); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	cfg.HTTP.Port = strings.TrimPrefix(cfg.HTTP.Port, ":")
	return &cfg, nil
}

// listVars take commas, whitespace or both between items.
var listVars = []string{"ADMIN_IDS", "REQUIRED_CHANNELS"}

func environment() map[string]string {
	vars := env.ToMap(os.Environ())
	for _, k := range listVars {
		if v, ok := vars[k]; ok {
			vars[k] = strings.Join(strings.FieldsFunc(v, func(r rune) bool {
				return r == ',' || unicode.IsSpace(r)
			}), ",")
		}
	}
	return vars
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.BotToken) == "" {
		return errors.New("config: BOT_TOKEN is required")
	}
	if len(c.AdminIDs) == 0 {
		return errors.New("config: ADMIN_IDS is required")
	}
	switch c.Mode {
	case ModePolling:
	case ModeWebhook:
		if c.HTTP.WebhookURL == "" {
			return errors.New("config: WEBHOOK_URL is required in webhook mode")
		}
	default:
		return fmt.Errorf("config: unknown BOT_MODE %q", c.Mode)
	}
	switch c.Storage.Driver {
	case DriverFile, DriverSQLite, DriverMongo, DriverRedis:
	default:
		return fmt.Errorf("config: unknown STORAGE_DRIVER %q", c.Storage.Driver)
	}
	if c.Workers <= 0 {
		return errors.New("config: WORKERS must be positive")
	}
	return nil
}

// Addr returns listen address for the HTTP server.
func (c *Config) Addr() string {
	return c.HTTP.Host + ":" + c.HTTP.Port
}

func (c *Config) Development() bool {
	return c.AppEnv == "development"
}
