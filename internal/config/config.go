package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-yaml"
	"github.com/joho/godotenv"
)

const (
	DefaultServerURL      = "http://localhost:8080"
	DefaultBrokerURL      = "ws://localhost:8080/ws/websocket"
	DefaultRetryInterval  = 5 * time.Second
	DefaultTypingExpiry   = 2 * time.Second
	DefaultRequestTimeout = 10 * time.Second
)

// Config holds all configuration for the chat client.
type Config struct {
	ServerURL      string        `validate:"required,url"`
	BrokerURL      string        `validate:"required,url"`
	SessionDir     string        `validate:"required"`
	RetryInterval  time.Duration `validate:"gt=0"`
	TypingExpiry   time.Duration `validate:"gt=0"`
	RequestTimeout time.Duration `validate:"gt=0"`
	LogFormat      string        `validate:"oneof=text json"`
	LogLevel       string        `validate:"omitempty,oneof=debug info warn warning error"`
}

// fileConfig is the optional YAML config file layout.
type fileConfig struct {
	ServerURL      string `yaml:"server_url"`
	BrokerURL      string `yaml:"broker_url"`
	SessionDir     string `yaml:"session_dir"`
	RetryInterval  string `yaml:"retry_interval"`
	TypingExpiry   string `yaml:"typing_expiry"`
	RequestTimeout string `yaml:"request_timeout"`
	Log            struct {
		Format string `yaml:"format"`
		Level  string `yaml:"level"`
	} `yaml:"log"`
}

var validate = validator.New()

// New loads configuration from a .env file (if present), the optional YAML
// file named by CHAT_CONFIG_FILE and environment variables, in that order of
// increasing precedence.
func New() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file found, relying on environment variables")
	}
	return Load(os.Getenv)
}

// Load builds a Config from defaults, the config file and getenv.
func Load(getenv func(string) string) (*Config, error) {
	cfg := Defaults()

	if path := getenv("CHAT_CONFIG_FILE"); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(getenv); err != nil {
		return nil, err
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Defaults returns the configuration used when nothing is set.
func Defaults() *Config {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return &Config{
		ServerURL:      DefaultServerURL,
		BrokerURL:      DefaultBrokerURL,
		SessionDir:     filepath.Join(dir, "chatroom"),
		RetryInterval:  DefaultRetryInterval,
		TypingExpiry:   DefaultTypingExpiry,
		RequestTimeout: DefaultRequestTimeout,
		LogFormat:      "text",
	}
}

func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	setString(&c.ServerURL, fc.ServerURL)
	setString(&c.BrokerURL, fc.BrokerURL)
	setString(&c.SessionDir, fc.SessionDir)
	setString(&c.LogFormat, fc.Log.Format)
	setString(&c.LogLevel, fc.Log.Level)

	for _, d := range []struct {
		name  string
		raw   string
		field *time.Duration
	}{
		{"retry_interval", fc.RetryInterval, &c.RetryInterval},
		{"typing_expiry", fc.TypingExpiry, &c.TypingExpiry},
		{"request_timeout", fc.RequestTimeout, &c.RequestTimeout},
	} {
		if err := setDuration(d.field, d.raw); err != nil {
			return fmt.Errorf("config file %s: %s: %w", path, d.name, err)
		}
	}
	return nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	setString(&c.ServerURL, getenv("CHAT_SERVER_URL"))
	setString(&c.BrokerURL, getenv("CHAT_BROKER_URL"))
	setString(&c.SessionDir, getenv("CHAT_SESSION_DIR"))
	setString(&c.LogFormat, getenv("LOG_FORMAT"))
	setString(&c.LogLevel, getenv("LOG_LEVEL"))

	for _, d := range []struct {
		key   string
		field *time.Duration
	}{
		{"CHAT_RETRY_INTERVAL", &c.RetryInterval},
		{"CHAT_TYPING_EXPIRY", &c.TypingExpiry},
		{"CHAT_REQUEST_TIMEOUT", &c.RequestTimeout},
	} {
		if err := setDuration(d.field, getenv(d.key)); err != nil {
			return fmt.Errorf("%s: %w", d.key, err)
		}
	}
	return nil
}

func setString(dst *string, v string) {
	if v = strings.TrimSpace(v); v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v string) error {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return err
	}
	*dst = d
	return nil
}
