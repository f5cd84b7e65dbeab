package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// StorageConfig selects and configures the persistence backend.
type StorageConfig struct {
	Type           string `yaml:"type"` // "postgres" or "memory"
	DatabaseURLEnv string `yaml:"database_url_env"`
}

// OpenAIConfig configures the OpenAI provider family.
type OpenAIConfig struct {
	BaseURL     string `yaml:"base_url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	EmbedModel  string `yaml:"embed_model"`
	ChatModel   string `yaml:"chat_model"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// GeminiConfig configures the Gemini provider family.
type GeminiConfig struct {
	BaseURL     string `yaml:"base_url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	EmbedModel  string `yaml:"embed_model"`
	ChatModel   string `yaml:"chat_model"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// ProviderConfig selects the provider family used for both embedding and
// generation. The family is a single switch fixed for the process lifetime;
// switching families over an already-ingested dataset requires re-ingestion
// because embedding dimensions differ between families.
type ProviderConfig struct {
	Family      string        `yaml:"family"` // "openai" or "gemini"
	Temperature float64       `yaml:"temperature"`
	OpenAI      *OpenAIConfig `yaml:"openai,omitempty"`
	Gemini      *GeminiConfig `yaml:"gemini,omitempty"`
}

// PipelineConfig holds the tunable constants of the retrieval pipeline.
type PipelineConfig struct {
	ChunkSize    int `yaml:"chunk_size"`
	TopK         int `yaml:"top_k"`
	HistoryLimit int `yaml:"history_limit"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	LogMode  string         `yaml:"log_mode"`
	Server   ServerConfig   `yaml:"server"`
	Storage  StorageConfig  `yaml:"storage"`
	Provider ProviderConfig `yaml:"provider"`
	Pipeline PipelineConfig `yaml:"pipeline"`
}

// Load reads a config from the specified path. If the file does not exist,
// returns defaults so the server can boot from environment variables alone.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg := defaultConfig()
			applyEnvOverrides(cfg)
			return cfg, nil
		}
		return nil, err
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyConfigDefaults(&cfg)
	applyEnvOverrides(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// DatabaseURL resolves the connection string from the configured env var.
func (c *AppConfig) DatabaseURL() string {
	return os.Getenv(c.Storage.DatabaseURLEnv)
}

func defaultConfig() *AppConfig {
	cfg := &AppConfig{
		LogMode: "dev",
		Server:  ServerConfig{Addr: ":3000"},
		Storage: StorageConfig{Type: "postgres", DatabaseURLEnv: "DATABASE_URL"},
		Provider: ProviderConfig{
			Family:      "gemini",
			Temperature: 0.3,
		},
		Pipeline: PipelineConfig{ChunkSize: 1000, TopK: 5, HistoryLimit: 10},
	}
	applyConfigDefaults(cfg)
	return cfg
}

func applyConfigDefaults(cfg *AppConfig) {
	if cfg.LogMode == "" {
		cfg.LogMode = "dev"
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":3000"
	}
	if cfg.Storage.Type == "" {
		cfg.Storage.Type = "postgres"
	}
	if cfg.Storage.DatabaseURLEnv == "" {
		cfg.Storage.DatabaseURLEnv = "DATABASE_URL"
	}
	if cfg.Provider.Family == "" {
		cfg.Provider.Family = "gemini"
	}
	if cfg.Provider.Temperature == 0 {
		cfg.Provider.Temperature = 0.3
	}
	if cfg.Provider.OpenAI == nil {
		cfg.Provider.OpenAI = &OpenAIConfig{}
	}
	if cfg.Provider.OpenAI.BaseURL == "" {
		cfg.Provider.OpenAI.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Provider.OpenAI.APIKeyEnv == "" {
		cfg.Provider.OpenAI.APIKeyEnv = "OPENAI_API_KEY"
	}
	if cfg.Provider.OpenAI.EmbedModel == "" {
		cfg.Provider.OpenAI.EmbedModel = "text-embedding-3-small"
	}
	if cfg.Provider.OpenAI.ChatModel == "" {
		cfg.Provider.OpenAI.ChatModel = "gpt-4o-mini"
	}
	if cfg.Provider.OpenAI.TimeoutSecs == 0 {
		cfg.Provider.OpenAI.TimeoutSecs = 30
	}
	if cfg.Provider.Gemini == nil {
		cfg.Provider.Gemini = &GeminiConfig{}
	}
	if cfg.Provider.Gemini.BaseURL == "" {
		cfg.Provider.Gemini.BaseURL = "https://generativelanguage.googleapis.com/v1beta"
	}
	if cfg.Provider.Gemini.APIKeyEnv == "" {
		cfg.Provider.Gemini.APIKeyEnv = "GEMINI_API_KEY"
	}
	if cfg.Provider.Gemini.EmbedModel == "" {
		cfg.Provider.Gemini.EmbedModel = "text-embedding-004"
	}
	if cfg.Provider.Gemini.ChatModel == "" {
		cfg.Provider.Gemini.ChatModel = "gemini-1.5-flash"
	}
	if cfg.Provider.Gemini.TimeoutSecs == 0 {
		cfg.Provider.Gemini.TimeoutSecs = 30
	}
	if cfg.Pipeline.ChunkSize == 0 {
		cfg.Pipeline.ChunkSize = 1000
	}
	if cfg.Pipeline.TopK == 0 {
		cfg.Pipeline.TopK = 5
	}
	if cfg.Pipeline.HistoryLimit == 0 {
		cfg.Pipeline.HistoryLimit = 10
	}
}

func applyEnvOverrides(cfg *AppConfig) {
	if port := os.Getenv("PORT"); port != "" {
		cfg.Server.Addr = ":" + port
	}
	if family := os.Getenv("LLM_PROVIDER"); family != "" {
		cfg.Provider.Family = family
	}
}

func validate(cfg *AppConfig) error {
	switch cfg.Provider.Family {
	case "openai", "gemini":
	default:
		return fmt.Errorf("unknown provider family %q", cfg.Provider.Family)
	}
	switch cfg.Storage.Type {
	case "postgres", "memory":
	default:
		return fmt.Errorf("unknown storage type %q", cfg.Storage.Type)
	}
	return nil
}
