package config

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/FAL1989/consultorio-jung/internal/domain"
)

// OpenAIEmbedderConfig holds configuration for the OpenAI-compatible embedder.
type OpenAIEmbedderConfig struct {
	BaseURL     string `yaml:"base_url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Model       string `yaml:"model"`
	Dimension   int    `yaml:"dimension"`
	TimeoutSecs int    `yaml:"timeout_secs"`
	MaxRetries  int    `yaml:"max_retries"`
}

// EmbedderConfig selects and configures the text embedder implementation.
type EmbedderConfig struct {
	Type      string                `yaml:"type"`
	Dimension int                   `yaml:"dimension"`
	OpenAI    *OpenAIEmbedderConfig `yaml:"openai,omitempty"`
}

// ChunkerConfig configures how documents are split into chunks.
type ChunkerConfig struct {
	Type    string `yaml:"type"`
	MaxSize int    `yaml:"max_size"`
	Overlap int    `yaml:"overlap"`
}

// VectorStoreConfig selects and configures the vector store implementation.
type VectorStoreConfig struct {
	Type      string          `yaml:"type"`
	Index     string          `yaml:"index"`
	Namespace string          `yaml:"namespace"`
	Qdrant    *QdrantConfig   `yaml:"qdrant,omitempty"`
	Pinecone  *PineconeConfig `yaml:"pinecone,omitempty"`
}

// QdrantConfig contains connection details for a Qdrant vector store.
type QdrantConfig struct {
	URL         string `yaml:"url"`
	APIKey      string `yaml:"api_key"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// PineconeConfig places a serverless index. The API key only comes from the
// environment.
type PineconeConfig struct {
	APIKey string `yaml:"-"`
	Cloud  string `yaml:"cloud"`
	Region string `yaml:"region"`
}

// IngestConfig throttles embedding calls while writing to the index.
type IngestConfig struct {
	Concurrency   int     `yaml:"concurrency"`
	RatePerSecond float64 `yaml:"rate_per_second"`
	Burst         int     `yaml:"burst"`
}

// SummarizerConfig selects and configures the summarizer.
type SummarizerConfig struct {
	Type         string `yaml:"type"`
	MaxSentences int    `yaml:"max_sentences"`
}

// LLMConfig configures the chat and transcription models.
type LLMConfig struct {
	APIKey             string  `yaml:"-"`
	BaseURL            string  `yaml:"base_url"`
	Model              string  `yaml:"model"`
	Temperature        float32 `yaml:"temperature"`
	TopP               float32 `yaml:"top_p"`
	FrequencyPenalty   float32 `yaml:"frequency_penalty"`
	PresencePenalty    float32 `yaml:"presence_penalty"`
	MaxTokens          int     `yaml:"max_tokens"`
	TimeoutSecs        int     `yaml:"timeout_secs"`
	TranscriptionModel string  `yaml:"transcription_model"`
	Language           string  `yaml:"language"`
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Addr        string `yaml:"addr"`
	RequireAuth bool   `yaml:"require_auth"`
}

// MemoryConfig bounds per-conversation history.
type MemoryConfig struct {
	Window int `yaml:"window"`
	// MaxSessions caps the conversations held by the server.
	MaxSessions       int `yaml:"max_sessions"`
	SessionTTLMinutes int `yaml:"session_ttl_minutes"`
}

// LoggingConfig picks the slog handler.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// KnowledgeConfig points at an optional YAML knowledge file loaded on top of
// the built-in entries.
type KnowledgeConfig struct {
	File string `yaml:"file"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Embedder    EmbedderConfig    `yaml:"embedder"`
	Chunker     ChunkerConfig     `yaml:"chunker"`
	VectorStore VectorStoreConfig `yaml:"vector_store"`
	Ingest      IngestConfig      `yaml:"ingest"`
	Summarizer  SummarizerConfig  `yaml:"summarizer"`
	LLM         LLMConfig         `yaml:"llm"`
	Server      ServerConfig      `yaml:"server"`
	Memory      MemoryConfig      `yaml:"memory"`
	Logging     LoggingConfig     `yaml:"logging"`
	Knowledge   KnowledgeConfig   `yaml:"knowledge"`
}

// Load reads a config from a specified path. If the file does not exist, returns defaults.
// Environment overrides are applied in both cases.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg := defaultConfig()
			applyEnv(cfg)
			return cfg, nil
		}
		return nil, err
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}
	applyEnv(cfg)
	return cfg, nil
}

// Parse decodes YAML on top of the defaults.
func Parse(data []byte) (*AppConfig, error) {
	cfg := defaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	applyConfigDefaults(cfg)
	return cfg, nil
}

// LoadDefault tries ./config.yaml first, then ~/.config/consultorio/config.yaml.
// If neither exists, it writes defaults to ~/.config/consultorio/config.yaml and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "config.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := defaultConfig()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	applyEnv(cfg)
	return cfg, userPath, nil
}

// LoadEnvFile loads variables from .env files into the process environment
// without overriding variables already set. Missing files are ignored.
func LoadEnvFile(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return err
		}
	}
	return nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate reports the first missing credential or unknown backend needed to serve.
func (c *AppConfig) Validate() error {
	if err := c.ValidateIndex(); err != nil {
		return err
	}
	if c.LLM.APIKey == "" {
		return &domain.ConfigurationError{Key: "OPENAI_API_KEY", Reason: "required by the chat model"}
	}
	return nil
}

// ValidateIndex checks only what ingestion and retrieval need.
func (c *AppConfig) ValidateIndex() error {
	switch c.Embedder.Type {
	case "tfidf":
	case "openai":
		if os.Getenv(c.Embedder.OpenAI.APIKeyEnv) == "" {
			return &domain.ConfigurationError{Key: c.Embedder.OpenAI.APIKeyEnv, Reason: "required by the openai embedder"}
		}
	default:
		return &domain.ConfigurationError{Key: "embedder.type", Reason: "unknown embedder " + strconv.Quote(c.Embedder.Type)}
	}
	switch c.VectorStore.Type {
	case "memory":
	case "qdrant":
		if c.VectorStore.Qdrant.URL == "" {
			return &domain.ConfigurationError{Key: "vector_store.qdrant.url", Reason: "missing"}
		}
	case "pinecone":
		if c.VectorStore.Pinecone.APIKey == "" {
			return &domain.ConfigurationError{Key: "PINECONE_API_KEY", Reason: "required by the pinecone vector store"}
		}
		if c.VectorStore.Index == "" {
			return &domain.ConfigurationError{Key: "PINECONE_INDEX_NAME", Reason: "required by the pinecone vector store"}
		}
	default:
		return &domain.ConfigurationError{Key: "vector_store.type", Reason: "unknown vector store " + strconv.Quote(c.VectorStore.Type)}
	}
	return nil
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "consultorio", "config.yaml"), nil
}

func defaultConfig() *AppConfig {
	cfg := &AppConfig{
		Embedder:    EmbedderConfig{Type: "tfidf", Dimension: 512},
		Chunker:     ChunkerConfig{Type: "recursive", MaxSize: 1000, Overlap: 200},
		VectorStore: VectorStoreConfig{Type: "memory", Index: "jung-knowledge", Namespace: "default"},
		Ingest:      IngestConfig{Concurrency: 4, RatePerSecond: 0, Burst: 1},
		Summarizer:  SummarizerConfig{Type: "frequency", MaxSentences: 5},
		LLM: LLMConfig{
			Model:              "gpt-4",
			Temperature:        0.9,
			TopP:               0.95,
			FrequencyPenalty:   0.7,
			PresencePenalty:    0.7,
			MaxTokens:          1500,
			TimeoutSecs:        60,
			TranscriptionModel: "whisper-1",
			Language:           "pt",
		},
		Server:  ServerConfig{Addr: ":8000", RequireAuth: true},
		Memory:  MemoryConfig{Window: 5, MaxSessions: 1000, SessionTTLMinutes: 60},
		Logging: LoggingConfig{Level: "info", Format: "text"},
	}
	return cfg
}

func applyConfigDefaults(cfg *AppConfig) {
	if cfg.Chunker.MaxSize == 0 {
		cfg.Chunker.MaxSize = 1000
	}
	if cfg.Memory.Window <= 0 {
		cfg.Memory.Window = 5
	}
	if cfg.Memory.MaxSessions <= 0 {
		cfg.Memory.MaxSessions = 1000
	}
	if cfg.Memory.SessionTTLMinutes <= 0 {
		cfg.Memory.SessionTTLMinutes = 60
	}
	if cfg.VectorStore.Namespace == "" {
		cfg.VectorStore.Namespace = "default"
	}
	if cfg.Embedder.Type == "openai" {
		if cfg.Embedder.OpenAI == nil {
			cfg.Embedder.OpenAI = &OpenAIEmbedderConfig{}
		}
		if cfg.Embedder.OpenAI.BaseURL == "" {
			cfg.Embedder.OpenAI.BaseURL = "https://api.openai.com/v1"
		}
		if cfg.Embedder.OpenAI.APIKeyEnv == "" {
			cfg.Embedder.OpenAI.APIKeyEnv = "OPENAI_API_KEY"
		}
		if cfg.Embedder.OpenAI.Model == "" {
			cfg.Embedder.OpenAI.Model = "text-embedding-3-small"
		}
		if cfg.Embedder.OpenAI.Dimension == 0 {
			cfg.Embedder.OpenAI.Dimension = 1536
		}
		if cfg.Embedder.OpenAI.TimeoutSecs == 0 {
			cfg.Embedder.OpenAI.TimeoutSecs = 30
		}
	}
	switch cfg.VectorStore.Type {
	case "qdrant":
		if cfg.VectorStore.Qdrant == nil {
			cfg.VectorStore.Qdrant = &QdrantConfig{}
		}
		if cfg.VectorStore.Qdrant.URL == "" {
			cfg.VectorStore.Qdrant.URL = "http://localhost:6333"
		}
	case "pinecone":
		if cfg.VectorStore.Pinecone == nil {
			cfg.VectorStore.Pinecone = &PineconeConfig{}
		}
		if cfg.VectorStore.Pinecone.Cloud == "" {
			cfg.VectorStore.Pinecone.Cloud = "aws"
		}
		if cfg.VectorStore.Pinecone.Region == "" {
			cfg.VectorStore.Pinecone.Region = "us-east-1"
		}
	}
}

func applyEnv(cfg *AppConfig) {
	if v := os.Getenv("CONSULTORIO_VECTOR_STORE"); v != "" {
		cfg.VectorStore.Type = strings.ToLower(v)
	}
	applyConfigDefaults(cfg)
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.LLM.APIKey = v
	}
	if v := os.Getenv("OPENAI_MODEL"); v != "" {
		cfg.LLM.Model = v
	}
	if v := os.Getenv("PINECONE_API_KEY"); v != "" {
		if cfg.VectorStore.Pinecone == nil {
			cfg.VectorStore.Pinecone = &PineconeConfig{}
		}
		cfg.VectorStore.Pinecone.APIKey = v
	}
	if v := os.Getenv("PINECONE_INDEX_NAME"); v != "" {
		cfg.VectorStore.Index = v
	}
	if v := os.Getenv("PINECONE_NAMESPACE"); v != "" {
		cfg.VectorStore.Namespace = v
	}
	if v := os.Getenv("QDRANT_URL"); v != "" && cfg.VectorStore.Qdrant != nil {
		cfg.VectorStore.Qdrant.URL = v
	}
	if v := os.Getenv("CONSULTORIO_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("CONSULTORIO_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("CONSULTORIO_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}
