package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultAPIBaseURL matches the backend's default listen address
const DefaultAPIBaseURL = "http://localhost:81/api"

// Config holds user preferences
type Config struct {
	APIBaseURL     string        `yaml:"api_base_url" json:"api_base_url"`
	RequestTimeout time.Duration `yaml:"request_timeout" json:"request_timeout"` // generation can take minutes
	StorePath      string        `yaml:"store_path" json:"store_path"`           // sqlite file holding the session
	OutputDir      string        `yaml:"output_dir" json:"output_dir"`           // where downloaded images go

	// Logging configuration
	LogLevel   string `yaml:"log_level" json:"log_level"`
	LogFile    string `yaml:"log_file" json:"log_file"`
	LogConsole bool   `yaml:"log_console" json:"log_console"`

	path string
}

// Dir returns ~/.joyful
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".joyful"), nil
}

// DefaultConfig returns default settings with environment overrides applied
func DefaultConfig() *Config {
	dir, _ := Dir()
	storePath, logPath, outDir := "", "", "."
	if dir != "" {
		storePath = filepath.Join(dir, "joyful.db")
		logPath = filepath.Join(dir, "logs", "joyful.log")
		outDir = filepath.Join(dir, "images")
	}

	return &Config{
		APIBaseURL:     getEnv("JOYFUL_API_URL", getEnv("BACKEND_API_URL", DefaultAPIBaseURL)),
		RequestTimeout: getDuration("JOYFUL_REQUEST_TIMEOUT", 3*time.Minute),
		StorePath:      getEnv("JOYFUL_STORE_PATH", storePath),
		OutputDir:      getEnv("JOYFUL_OUTPUT_DIR", outDir),
		LogLevel:       getEnv("JOYFUL_LOG_LEVEL", "INFO"),
		LogFile:        getEnv("JOYFUL_LOG_FILE", logPath),
		LogConsole:     getEnv("JOYFUL_LOG_CONSOLE", "false") == "true",
	}
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// DefaultPath returns ~/.joyful/config.yaml
func DefaultPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// Load loads .env from the working directory, then ~/.joyful/config.yaml
func Load() (*Config, error) {
	// a missing .env is normal
	_ = godotenv.Load()

	path, err := DefaultPath()
	if err != nil {
		return nil, err
	}
	return LoadFrom(path)
}

// LoadFrom reads config from path, falling back to defaults if it does not exist
func LoadFrom(path string) (*Config, error) {
	cfg := DefaultConfig()
	cfg.path = path

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.path = path
	cfg.normalize()

	return cfg, nil
}

func (c *Config) normalize() {
	c.APIBaseURL = strings.TrimRight(strings.TrimSpace(c.APIBaseURL), "/")
	if c.APIBaseURL == "" {
		c.APIBaseURL = DefaultAPIBaseURL
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = 3 * time.Minute
	}
}

// SetAPIBaseURL validates and sets the backend address
func (c *Config) SetAPIBaseURL(url string) error {
	url = strings.TrimSpace(url)
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		return fmt.Errorf("api url must start with http:// or https://")
	}
	c.APIBaseURL = strings.TrimRight(url, "/")
	return nil
}

// Save writes config to the path it was loaded from, or the default path
func (c *Config) Save() error {
	path := c.path
	if path == "" {
		var err error
		if path, err = DefaultPath(); err != nil {
			return err
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}
