package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/leofalp/sequencer/core/protocol"
)

// Environment variables that override the file configuration.
const (
	EnvServerURL      = "SEQUENCER_SERVER_URL"
	EnvModel          = "SEQUENCER_MODEL"
	EnvListenAddr     = "SEQUENCER_LISTEN_ADDR"
	EnvAllowedOrigins = "SEQUENCER_ALLOWED_ORIGINS"
	EnvTranscriptDB   = "SEQUENCER_TRANSCRIPT_DB"
	EnvMaxConcurrency = "SEQUENCER_MAX_CONCURRENCY"
	EnvLogLevel       = "SEQUENCER_LOG_LEVEL"
	EnvLogFormat      = "SEQUENCER_LOG_FORMAT"
	EnvGeminiAPIKey   = "GEMINI_API_KEY"
	EnvGoogleAPIKey   = "GOOGLE_API_KEY"
	EnvGeminiBaseURL  = "GEMINI_API_BASE_URL"
)

// Config is the merged configuration of the CLI and the execution service.
type Config struct {
	Client     ClientConfig     `yaml:"client"`
	Server     ServerConfig     `yaml:"server"`
	Gemini     GeminiConfig     `yaml:"gemini,omitempty"`
	Transcript TranscriptConfig `yaml:"transcript,omitempty"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// ClientConfig configures how the CLI reaches the execution service.
type ClientConfig struct {
	ServerURL string        `yaml:"server_url"`
	Model     string        `yaml:"model,omitempty"`
	Timeout   time.Duration `yaml:"timeout,omitempty"`
}

// ServerConfig configures the execution service.
type ServerConfig struct {
	ListenAddr     string        `yaml:"listen_addr"`
	AllowedOrigins []string      `yaml:"allowed_origins,omitempty"`
	MaxConcurrency int           `yaml:"max_concurrency,omitempty"`
	NodeTimeout    time.Duration `yaml:"node_timeout,omitempty"`
}

type GeminiConfig struct {
	APIKey  string `yaml:"api_key,omitempty"`
	BaseURL string `yaml:"base_url,omitempty"`
}

type TranscriptConfig struct {
	// Path of the SQLite transcript database. Empty keeps transcripts in
	// memory only.
	Path string `yaml:"path,omitempty"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DefaultConfig returns the configuration used when no file and no
// environment override is present.
func DefaultConfig() *Config {
	return &Config{
		Client: ClientConfig{
			ServerURL: "http://localhost:8000",
			Timeout:   5 * time.Minute,
		},
		Server: ServerConfig{
			ListenAddr:     ":8000",
			AllowedOrigins: []string{"http://localhost:5173"},
			MaxConcurrency: 4,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "compact",
		},
	}
}

// ConfigDir returns the directory holding the user's configuration.
func ConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".sequencer"
	}
	return filepath.Join(home, ".sequencer")
}

// ConfigPath returns the default configuration file path.
func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// LoadOption configures Load.
type LoadOption func(*loader)

type loader struct {
	dotEnvPath   string
	lookupEnv    func(string) (string, bool)
	optionalFile bool
}

// WithDotEnv reads additional variables from a .env file. Variables already
// set in the process environment take precedence. A missing file is ignored.
func WithDotEnv(path string) LoadOption {
	return func(loader *loader) {
		loader.dotEnvPath = path
	}
}

// WithLookupEnv replaces os.LookupEnv.
func WithLookupEnv(lookupEnv func(string) (string, bool)) LoadOption {
	return func(loader *loader) {
		loader.lookupEnv = lookupEnv
	}
}

// WithOptionalFile lets an explicit path be missing, in which case Load
// continues from the defaults.
func WithOptionalFile() LoadOption {
	return func(loader *loader) {
		loader.optionalFile = true
	}
}

// Load builds the configuration from defaults, the YAML file at path, the
// .env file and the environment, in increasing order of precedence. An empty
// path reads ConfigPath when it exists; an explicit path must exist.
func Load(path string, opts ...LoadOption) (*Config, error) {
	loader := &loader{dotEnvPath: ".env", lookupEnv: os.LookupEnv}
	for _, opt := range opts {
		opt(loader)
	}

	cfg := DefaultConfig()

	explicit := path != ""
	if !explicit {
		path = ConfigPath()
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	case (explicit && !loader.optionalFile) || !errors.Is(err, os.ErrNotExist):
		return nil, fmt.Errorf("read config: %w", err)
	}

	lookupEnv, err := loader.environment()
	if err != nil {
		return nil, err
	}
	if err := cfg.applyEnv(lookupEnv); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// environment returns a lookup that consults the process environment first
// and the .env file second.
func (l *loader) environment() (func(string) (string, bool), error) {
	if l.dotEnvPath == "" {
		return l.lookupEnv, nil
	}

	dotEnv, err := godotenv.Read(l.dotEnvPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return l.lookupEnv, nil
		}
		return nil, fmt.Errorf("read %s: %w", l.dotEnvPath, err)
	}

	return func(key string) (string, bool) {
		if value, ok := l.lookupEnv(key); ok {
			return value, true
		}
		value, ok := dotEnv[key]
		return value, ok
	}, nil
}

func (c *Config) applyEnv(lookupEnv func(string) (string, bool)) error {
	setString := func(target *string, keys ...string) {
		for _, key := range keys {
			if value, ok := lookupEnv(key); ok && value != "" {
				*target = value
				return
			}
		}
	}

	setString(&c.Client.ServerURL, EnvServerURL)
	setString(&c.Client.Model, EnvModel)
	setString(&c.Server.ListenAddr, EnvListenAddr)
	setString(&c.Transcript.Path, EnvTranscriptDB)
	setString(&c.Logging.Level, EnvLogLevel)
	setString(&c.Logging.Format, EnvLogFormat)
	setString(&c.Gemini.APIKey, EnvGeminiAPIKey, EnvGoogleAPIKey)
	setString(&c.Gemini.BaseURL, EnvGeminiBaseURL)

	if value, ok := lookupEnv(EnvAllowedOrigins); ok && value != "" {
		c.Server.AllowedOrigins = splitList(value)
	}
	if value, ok := lookupEnv(EnvMaxConcurrency); ok && value != "" {
		maxConcurrency, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvMaxConcurrency, err)
		}
		c.Server.MaxConcurrency = maxConcurrency
	}
	return nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.Client.ServerURL == "" {
		return errors.New("client.server_url must not be empty")
	}
	if c.Client.Model != "" {
		if _, err := protocol.ParseModel(c.Client.Model); err != nil {
			return fmt.Errorf("client.model: %w", err)
		}
	}
	if c.Server.MaxConcurrency < 0 {
		return fmt.Errorf("server.max_concurrency must not be negative, got %d", c.Server.MaxConcurrency)
	}
	if c.Server.NodeTimeout < 0 {
		return fmt.Errorf("server.node_timeout must not be negative, got %s", c.Server.NodeTimeout)
	}
	return nil
}

// Save writes the configuration to path, creating its directory.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0o600)
}

func splitList(value string) []string {
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
