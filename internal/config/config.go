package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/yourorg/listing-relay/internal/env"
)

const (
	SinkREST     = "rest"
	SinkPostgres = "postgres"
)

type Config struct {
	Source SourceConfig `yaml:"source"`
	Sink   SinkConfig   `yaml:"sink"`
	Server ServerConfig `yaml:"server"`
	Redis  RedisConfig  `yaml:"redis"`
}

type SourceConfig struct {
	URL      string        `yaml:"url"`
	Timeout  time.Duration `yaml:"timeout"`
	RetryMax int           `yaml:"retry_max"`
	MaxBytes int64         `yaml:"max_bytes"`
	RPS      float64       `yaml:"rps"` // 0 disables pacing
}

type SinkConfig struct {
	Mode     string        `yaml:"mode"`
	URL      string        `yaml:"url"`
	Key      string        `yaml:"key"`
	Prefer   string        `yaml:"prefer"`
	Timeout  time.Duration `yaml:"timeout"`
	RetryMax int           `yaml:"retry_max"`

	PostgresDSN string `yaml:"postgres_dsn"`
	Table       string `yaml:"table"`
	Migrate     bool   `yaml:"migrate"`
}

type ServerConfig struct {
	Port            int           `yaml:"port"`
	PipelineTimeout time.Duration `yaml:"pipeline_timeout"`
	RateLimit       int           `yaml:"rate_limit"` // trigger requests per IP per minute
}

type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	LockTTL  time.Duration `yaml:"lock_ttl"`
}

func Defaults() Config {
	return Config{
		Source: SourceConfig{
			Timeout:  30 * time.Second,
			MaxBytes: 64 << 20,
		},
		Sink: SinkConfig{
			Mode:    SinkREST,
			Timeout: 30 * time.Second,
			Table:   "properties",
		},
		Server: ServerConfig{
			Port:            3000,
			PipelineTimeout: 2 * time.Minute,
			RateLimit:       30,
		},
		Redis: RedisConfig{
			LockTTL: 2 * time.Minute,
		},
	}
}

// Load builds the configuration once: defaults, then an optional .env file,
// then the YAML file at path (if any), then environment variables.
func Load(path string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	cfg := Defaults()
	if path == "" {
		path = os.Getenv("RELAY_CONFIG")
	}
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Source.URL = env.Get("APIFY_API_URL", c.Source.URL)
	c.Source.Timeout = env.GetDuration("SOURCE_TIMEOUT", c.Source.Timeout)
	c.Source.RetryMax = env.GetInt("SOURCE_RETRY_MAX", c.Source.RetryMax)
	c.Source.MaxBytes = int64(env.GetInt("SOURCE_MAX_BYTES", int(c.Source.MaxBytes)))
	c.Source.RPS = env.GetFloat("SOURCE_RPS", c.Source.RPS)

	c.Sink.Mode = strings.ToLower(env.Get("SINK_MODE", c.Sink.Mode))
	c.Sink.URL = env.Get("SUPABASE_URL", c.Sink.URL)
	c.Sink.Key = env.Get("SUPABASE_KEY", c.Sink.Key)
	c.Sink.Prefer = env.Get("SUPABASE_PREFER", c.Sink.Prefer)
	c.Sink.Timeout = env.GetDuration("SINK_TIMEOUT", c.Sink.Timeout)
	c.Sink.RetryMax = env.GetInt("SINK_RETRY_MAX", c.Sink.RetryMax)
	c.Sink.PostgresDSN = env.Get("PG_DSN", c.Sink.PostgresDSN)
	c.Sink.Table = env.Get("PG_TABLE", c.Sink.Table)
	c.Sink.Migrate = env.GetBool("PG_MIGRATE", c.Sink.Migrate)

	c.Server.Port = env.GetInt("PORT", c.Server.Port)
	c.Server.PipelineTimeout = env.GetDuration("PIPELINE_TIMEOUT", c.Server.PipelineTimeout)
	c.Server.RateLimit = env.GetInt("TRIGGER_RATE_LIMIT", c.Server.RateLimit)

	c.Redis.Addr = env.Get("REDIS_ADDR", c.Redis.Addr)
	c.Redis.Password = env.Get("REDIS_PASSWORD", c.Redis.Password)
	c.Redis.DB = env.GetInt("REDIS_DB", c.Redis.DB)
	c.Redis.LockTTL = env.GetDuration("RUN_LOCK_TTL", c.Redis.LockTTL)
}

// Validate reports every missing or inconsistent setting at once.
func (c Config) Validate() error {
	var errs []error
	if c.Source.URL == "" {
		errs = append(errs, errors.New("APIFY_API_URL is required"))
	}
	switch c.Sink.Mode {
	case SinkREST:
		if c.Sink.URL == "" {
			errs = append(errs, errors.New("SUPABASE_URL is required"))
		}
		if c.Sink.Key == "" {
			errs = append(errs, errors.New("SUPABASE_KEY is required"))
		}
	case SinkPostgres:
		if c.Sink.PostgresDSN == "" {
			errs = append(errs, errors.New("PG_DSN is required when SINK_MODE=postgres"))
		}
		if c.Sink.Table == "" {
			errs = append(errs, errors.New("PG_TABLE must not be empty"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown SINK_MODE %q", c.Sink.Mode))
	}
	if c.Source.Timeout <= 0 || c.Sink.Timeout <= 0 {
		errs = append(errs, errors.New("source and sink timeouts must be positive"))
	}
	if c.Source.RetryMax < 0 || c.Sink.RetryMax < 0 {
		errs = append(errs, errors.New("retry counts must not be negative"))
	}
	if c.Redis.Addr != "" && c.Redis.LockTTL < c.Server.PipelineTimeout {
		errs = append(errs, fmt.Errorf("RUN_LOCK_TTL (%s) must be at least PIPELINE_TIMEOUT (%s)",
			c.Redis.LockTTL, c.Server.PipelineTimeout))
	}
	return errors.Join(errs...)
}
