package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ConfigPath is the default YAML config location, overridable with
// BOOKRAG_CONFIG_PATH.
const ConfigPath = "config.yaml"

// FileConfig represents configuration loaded from YAML.
type FileConfig struct {
	Port        string `yaml:"port"`
	DatabaseURL string `yaml:"databaseURL"`
	LogLevel    string `yaml:"logLevel"`

	GatewayBaseURL string `yaml:"gatewayBaseURL"`
	GatewayAPIKey  string `yaml:"gatewayAPIKey"`
	GatewayModel   string `yaml:"gatewayModel"`
	MentorName     string `yaml:"mentorName"`

	TextLimit      int     `yaml:"textLimit"`
	SubstringLimit int     `yaml:"substringLimit"`
	MinScore       float64 `yaml:"minScore"`

	// Semantic tier: none, ollama, or gateway.
	EmbedProvider   string `yaml:"embedProvider"`
	OllamaURL       string `yaml:"ollamaURL"`
	EmbedModel      string `yaml:"embedModel"`
	EmbedDimensions int    `yaml:"embedDimensions"`
	VectorLimit     int    `yaml:"vectorLimit"`
}

// Load reads config from path (defaults to config.yaml), applies .env and
// environment overrides, then validates.
func Load(path string) (FileConfig, error) {
	_ = godotenv.Load()

	cfg := FileConfig{}
	if path == "" {
		path = ConfigPath
	}
	if v := os.Getenv("BOOKRAG_CONFIG_PATH"); v != "" {
		path = v
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.DatabaseURL = v
	}
	if v := os.Getenv("GATEWAY_BASE_URL"); v != "" {
		cfg.GatewayBaseURL = v
	}
	if v := os.Getenv("GATEWAY_API_KEY"); v != "" {
		cfg.GatewayAPIKey = v
	}
	if v := os.Getenv("GATEWAY_MODEL"); v != "" {
		cfg.GatewayModel = v
	}
	if v := os.Getenv("EMBED_PROVIDER"); v != "" {
		cfg.EmbedProvider = v
	}
	if v := os.Getenv("OLLAMA_URL"); v != "" {
		cfg.OllamaURL = v
	}
	if err := validateConfig(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func validateConfig(cfg FileConfig) error {
	if cfg.Port == "" {
		return errors.New("config: port is required (set in config.yaml)")
	}
	if cfg.DatabaseURL == "" {
		return errors.New("config: databaseURL is required (set in config.yaml or DATABASE_URL)")
	}
	if cfg.GatewayAPIKey == "" {
		return errors.New("config: gatewayAPIKey is required (set in config.yaml or GATEWAY_API_KEY)")
	}
	switch strings.ToLower(strings.TrimSpace(cfg.EmbedProvider)) {
	case "", "none", "gateway":
	case "ollama":
		if cfg.EmbedModel == "" {
			return errors.New("config: embedModel is required for the ollama provider")
		}
	default:
		return fmt.Errorf("config: unknown embedProvider %q", cfg.EmbedProvider)
	}
	return nil
}
