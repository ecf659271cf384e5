package config

import (
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
)

// Config is the central typed configuration struct.
// Every field maps to an environment variable; .env files are read first.
type Config struct {
	App     AppConfig
	Log     LogConfig
	Server  ServerConfig
	Metrics MetricsConfig
	Tracing TracingConfig
}

type AppConfig struct {
	Name   string `env:"APP_NAME" envDefault:"GoDispatch"`
	Env    string `env:"APP_ENV" envDefault:"local"` // local | production | testing
	Debug  bool   `env:"APP_DEBUG" envDefault:"true"`
	Port   string `env:"APP_PORT" envDefault:"8000"`
	Prefix string `env:"APP_GLOBAL_PREFIX"`
	Key    string `env:"APP_KEY"`
}

type LogConfig struct {
	Level   string `env:"LOG_LEVEL" envDefault:"info"`
	Format  string `env:"LOG_FORMAT" envDefault:"json"` // json | console
	NoColor bool   `env:"LOG_NO_COLOR" envDefault:"false"`
}

type ServerConfig struct {
	ReadTimeout     time.Duration `env:"SERVER_READ_TIMEOUT" envDefault:"15s"`
	WriteTimeout    time.Duration `env:"SERVER_WRITE_TIMEOUT" envDefault:"15s"`
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

type MetricsConfig struct {
	Enabled   bool   `env:"METRICS_ENABLED" envDefault:"true"`
	Path      string `env:"METRICS_PATH" envDefault:"/metrics"`
	Namespace string `env:"METRICS_NAMESPACE" envDefault:"dispatch"`
}

type TracingConfig struct {
	Enabled     bool   `env:"TRACING_ENABLED" envDefault:"false"`
	ServiceName string `env:"TRACING_SERVICE_NAME" envDefault:"go-dispatch"`
}

// Load reads .env (if present) and populates a Config from environment variables.
// Call once at bootstrap: cfg, err := config.Load()
func Load(envFiles ...string) (*Config, error) {
	files := envFiles
	if len(files) == 0 {
		files = []string{".env"}
	}
	// Non-fatal: .env may not exist in production
	_ = godotenv.Load(files...)

	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, errors.Wrap(err, "parsing environment")
	}
	return &cfg, nil
}

// MustLoad is Load that panics on malformed values.
func MustLoad(envFiles ...string) *Config {
	cfg, err := Load(envFiles...)
	if err != nil {
		panic(err)
	}
	return cfg
}

// Addr returns the listen address built from APP_PORT.
func (c *Config) Addr() string { return ":" + c.App.Port }

func (c *Config) IsLocal() bool      { return c.App.Env == "local" }
func (c *Config) IsProduction() bool { return c.App.Env == "production" }
func (c *Config) IsTesting() bool    { return c.App.Env == "testing" }
