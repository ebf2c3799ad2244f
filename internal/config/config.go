package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	AI     AIConfig     `yaml:"ai" validate:"required"`
	Server ServerConfig `yaml:"server"`
	Paths  PathsConfig  `yaml:"paths" validate:"required"`
	Limits Limits       `yaml:"limits" validate:"required"`
}

type AIConfig struct {
	APIKey  string `yaml:"api_key" validate:"required,min=20"`
	Model   string `yaml:"model" validate:"required"`
	BaseURL string `yaml:"base_url" validate:"required,url"`
	Timeout int    `yaml:"timeout" validate:"required,min=10,max=3600"`
}

type ServerConfig struct {
	Addr           string   `yaml:"addr"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type PathsConfig struct {
	DataDir string `yaml:"data_dir" validate:"required"`
}

// Load reads the config file, applies environment overrides, fills
// defaults, and validates. A missing file is not an error: defaults
// plus the environment must be enough to run.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	if path == "" {
		path = configPath()
	}

	cfg := Config{
		AI: AIConfig{
			Model:   "mistral-large-latest",
			BaseURL: "https://api.mistral.ai/v1",
			Timeout: 120,
		},
		Server: ServerConfig{
			Addr:           ":8000",
			AllowedOrigins: []string{"http://localhost:3000"},
		},
		Limits: DefaultLimits(),
	}

	data, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// The API key is environment-first: a literal key rarely belongs
	// in the file.
	if cfg.AI.APIKey == "" || cfg.AI.APIKey == "${MISTRAL_API_KEY}" {
		cfg.AI.APIKey = os.Getenv("MISTRAL_API_KEY")
	}
	if addr := os.Getenv("BOOKGEN_ADDR"); addr != "" {
		cfg.Server.Addr = addr
	}
	if dataDir := os.Getenv("BOOKGEN_DATA_DIR"); dataDir != "" {
		cfg.Paths.DataDir = dataDir
	}

	if err := cfg.applyDefaults(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func configPath() string {
	if path := os.Getenv("BOOKGEN_CONFIG"); path != "" {
		return path
	}
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "bookgen", "config.yaml")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "bookgen", "config.yaml")
}

func (c *Config) applyDefaults() error {
	if c.Paths.DataDir == "" {
		if xdgData := os.Getenv("XDG_DATA_HOME"); xdgData != "" {
			c.Paths.DataDir = filepath.Join(xdgData, "bookgen")
		} else {
			home, err := os.UserHomeDir()
			if err != nil {
				return fmt.Errorf("resolving data dir: %w", err)
			}
			c.Paths.DataDir = filepath.Join(home, ".local", "share", "bookgen")
		}
	}
	c.Paths.DataDir = expandTilde(c.Paths.DataDir)
	return nil
}

// expandTilde expands a leading ~/ to the user's home directory.
func expandTilde(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}

// Validate checks the assembled config.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		if c.AI.APIKey == "" {
			return fmt.Errorf("validating config: missing API key (set MISTRAL_API_KEY or ai.api_key): %w", err)
		}
		return fmt.Errorf("validating config: %w", err)
	}
	return nil
}
