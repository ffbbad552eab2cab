package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// DefaultServerURL is the API address the CLI talks to when none is set.
const DefaultServerURL = "http://localhost:8080"

// Config holds the CLI's preferences and session
type Config struct {
	ServerURL      string `yaml:"server_url" env:"PROJECTMATE_SERVER"` // API base URL
	Token          string `yaml:"token,omitempty"`                     // Bearer token from login
	UserID         string `yaml:"user_id,omitempty"`                   // Logged in user
	Email          string `yaml:"email,omitempty"`                     // Logged in email
	CurrentProject string `yaml:"current_project,omitempty"`           // Default project for task and board commands
	ConfirmDelete  bool   `yaml:"confirm_delete"`                      // Require confirmation for delete

	// Logging configuration
	LogLevel   string `yaml:"log_level" env:"PROJECTMATE_LOG_LEVEL"`     // Log level: DEBUG, INFO, WARN, ERROR
	LogFile    string `yaml:"log_file" env:"PROJECTMATE_LOG_FILE"`       // Path to log file
	LogConsole bool   `yaml:"log_console" env:"PROJECTMATE_LOG_CONSOLE"` // Enable console logging
}

// Dir returns the directory holding the CLI's files: $PROJECTMATE_HOME, or
// ~/.projectmate.
func Dir() (string, error) {
	if dir := os.Getenv("PROJECTMATE_HOME"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".projectmate"), nil
}

// DefaultConfig returns default settings
func DefaultConfig() *Config {
	logPath := ""
	if dir, err := Dir(); err == nil {
		logPath = filepath.Join(dir, "logs", "projectmate.log")
	}

	return &Config{
		ServerURL:     DefaultServerURL,
		ConfirmDelete: true,
		LogLevel:      "INFO",
		LogFile:       logPath,
	}
}

// Path returns the config file location.
func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// Load reads the config file, falling back to defaults when it does not
// exist, then applies PROJECTMATE_* environment overrides.
func Load() (*Config, error) {
	configPath, err := Path()
	if err != nil {
		return nil, err
	}

	cfg := DefaultConfig()
	data, err := os.ReadFile(configPath)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return nil, fmt.Errorf("failed to read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	if cfg.ServerURL == "" {
		cfg.ServerURL = DefaultServerURL
	}
	return cfg, nil
}

// Save writes the config file. It carries the session token, so it is only
// readable by the owner.
func (c *Config) Save() error {
	configPath, err := Path()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// LoggedIn reports whether a session token is stored.
func (c *Config) LoggedIn() bool {
	return c.Token != ""
}

// ClearSession forgets the stored token and identity.
func (c *Config) ClearSession() {
	c.Token = ""
	c.UserID = ""
	c.Email = ""
}
