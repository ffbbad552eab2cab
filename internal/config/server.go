package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Server holds the API server settings. Values come from defaults, then the
// YAML file, then PROJECTMATE_* environment variables.
type Server struct {
	Addr            string        `yaml:"addr" env:"PROJECTMATE_ADDR"`
	ReadTimeout     time.Duration `yaml:"read_timeout" env:"PROJECTMATE_READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env:"PROJECTMATE_WRITE_TIMEOUT"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"PROJECTMATE_SHUTDOWN_TIMEOUT"`

	Driver            string `yaml:"driver" env:"PROJECTMATE_DB_DRIVER"` // sqlite, postgres or mongo
	DSN               string `yaml:"dsn" env:"PROJECTMATE_DB_DSN"`
	MongoDatabase     string `yaml:"mongo_database" env:"PROJECTMATE_MONGO_DATABASE"`
	MongoTransactions bool   `yaml:"mongo_transactions" env:"PROJECTMATE_MONGO_TRANSACTIONS"`

	JWTSecret string        `yaml:"jwt_secret" env:"PROJECTMATE_JWT_SECRET"`
	TokenTTL  time.Duration `yaml:"token_ttl" env:"PROJECTMATE_TOKEN_TTL"`

	InvitationTTL  time.Duration `yaml:"invitation_ttl" env:"PROJECTMATE_INVITATION_TTL"`
	SweepInterval  time.Duration `yaml:"sweep_interval" env:"PROJECTMATE_SWEEP_INTERVAL"` // 0 disables the sweeper
	SweepRetention time.Duration `yaml:"sweep_retention" env:"PROJECTMATE_SWEEP_RETENTION"`

	RateLimit   float64  `yaml:"rate_limit" env:"PROJECTMATE_RATE_LIMIT"` // requests per second per client, 0 disables
	RateBurst   int      `yaml:"rate_burst" env:"PROJECTMATE_RATE_BURST"`
	CORSOrigins []string `yaml:"cors_origins" env:"PROJECTMATE_CORS_ORIGINS" envSeparator:","`

	// Register and login attempts allowed per client within AuthWindow, 0 disables
	AuthAttempts int           `yaml:"auth_attempts" env:"PROJECTMATE_AUTH_ATTEMPTS"`
	AuthWindow   time.Duration `yaml:"auth_window" env:"PROJECTMATE_AUTH_WINDOW"`

	LogLevel   string `yaml:"log_level" env:"PROJECTMATE_LOG_LEVEL"`
	LogFile    string `yaml:"log_file" env:"PROJECTMATE_LOG_FILE"`
	LogConsole bool   `yaml:"log_console" env:"PROJECTMATE_LOG_CONSOLE"`
}

// DefaultServer returns the server defaults.
func DefaultServer() Server {
	return Server{
		Addr:              ":8080",
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		ShutdownTimeout:   10 * time.Second,
		Driver:            "sqlite",
		MongoDatabase:     "projectmate",
		MongoTransactions: true,
		TokenTTL:          7 * 24 * time.Hour,
		InvitationTTL:     7 * 24 * time.Hour,
		SweepInterval:     10 * time.Minute,
		SweepRetention:    30 * 24 * time.Hour,
		RateLimit:         20,
		RateBurst:         40,
		CORSOrigins:       []string{"*"},
		AuthAttempts:      5,
		AuthWindow:        15 * time.Minute,
		LogLevel:          "INFO",
		LogConsole:        true,
	}
}

// LoadServer builds the server config. A .env file in the working directory
// is loaded into the environment when present. path may be empty; otherwise
// PROJECTMATE_CONFIG names the YAML file.
func LoadServer(path string) (Server, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Server{}, fmt.Errorf("load .env: %w", err)
	}

	cfg := DefaultServer()
	if path == "" {
		path = os.Getenv("PROJECTMATE_CONFIG")
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Server{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Server{}, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return Server{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.Driver = strings.ToLower(strings.TrimSpace(cfg.Driver))
	return cfg, cfg.Validate()
}

// Validate checks the settings that have no usable default.
func (c Server) Validate() error {
	switch c.Driver {
	case "sqlite", "postgres":
	case "mongo":
		if c.DSN == "" {
			return errors.New("mongo driver requires PROJECTMATE_DB_DSN")
		}
		if !c.MongoTransactions {
			return errors.New("mongo driver requires transactions, run MongoDB as a replica set")
		}
	default:
		return fmt.Errorf("unknown store driver %q", c.Driver)
	}
	if c.Driver == "postgres" && c.DSN == "" {
		return errors.New("postgres driver requires PROJECTMATE_DB_DSN")
	}
	if len(c.JWTSecret) < 16 {
		return errors.New("PROJECTMATE_JWT_SECRET must be at least 16 characters")
	}
	if c.AuthAttempts > 0 && c.AuthWindow <= 0 {
		return errors.New("auth window must be positive when auth attempts are limited")
	}
	if c.InvitationTTL <= 0 {
		return errors.New("invitation ttl must be positive")
	}
	return nil
}
