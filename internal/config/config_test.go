package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FAL1989/consultorio-jung/internal/domain"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"OPENAI_API_KEY", "OPENAI_MODEL", "PINECONE_API_KEY", "PINECONE_INDEX_NAME",
		"PINECONE_NAMESPACE", "QDRANT_URL", "CONSULTORIO_VECTOR_STORE",
		"CONSULTORIO_ADDR", "CONSULTORIO_LOG_LEVEL", "CONSULTORIO_LOG_FORMAT",
	} {
		t.Setenv(k, "")
	}
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "tfidf", cfg.Embedder.Type)
	assert.Equal(t, "memory", cfg.VectorStore.Type)
	assert.Equal(t, "default", cfg.VectorStore.Namespace)
	assert.Equal(t, 5, cfg.Memory.Window)
	assert.Equal(t, 1000, cfg.Memory.MaxSessions)
	assert.Equal(t, 60, cfg.Memory.SessionTTLMinutes)
	assert.Equal(t, 1000, cfg.Chunker.MaxSize)
	assert.Equal(t, 200, cfg.Chunker.Overlap)
	assert.Equal(t, float32(0.9), cfg.LLM.Temperature)
	assert.Equal(t, 1500, cfg.LLM.MaxTokens)
	assert.Equal(t, ":8000", cfg.Server.Addr)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	yml := `
embedder:
  type: openai
vector_store:
  type: pinecone
  index: jung
memory:
  window: 3
logging:
  format: json
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o600))
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Memory.Window)
	assert.Equal(t, "json", cfg.Logging.Format)
	require.NotNil(t, cfg.Embedder.OpenAI)
	assert.Equal(t, "OPENAI_API_KEY", cfg.Embedder.OpenAI.APIKeyEnv)
	assert.Equal(t, "text-embedding-3-small", cfg.Embedder.OpenAI.Model)
	require.NotNil(t, cfg.VectorStore.Pinecone)
	assert.Equal(t, "aws", cfg.VectorStore.Pinecone.Cloud)
	assert.Equal(t, "us-east-1", cfg.VectorStore.Pinecone.Region)
	assert.Equal(t, "gpt-4", cfg.LLM.Model)
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("PINECONE_API_KEY", "pc-test")
	t.Setenv("PINECONE_INDEX_NAME", "jung-prod")
	t.Setenv("PINECONE_NAMESPACE", "livros")
	t.Setenv("CONSULTORIO_VECTOR_STORE", "Pinecone")
	t.Setenv("CONSULTORIO_ADDR", "127.0.0.1:9000")
	t.Setenv("CONSULTORIO_LOG_LEVEL", "debug")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "sk-test", cfg.LLM.APIKey)
	assert.Equal(t, "pinecone", cfg.VectorStore.Type)
	assert.Equal(t, "pc-test", cfg.VectorStore.Pinecone.APIKey)
	assert.Equal(t, "jung-prod", cfg.VectorStore.Index)
	assert.Equal(t, "livros", cfg.VectorStore.Namespace)
	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Addr)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.NoError(t, cfg.Validate())
}

func TestSave_OmitsSecrets(t *testing.T) {
	clearEnv(t)
	t.Setenv("OPENAI_API_KEY", "sk-secret")
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	require.NoError(t, Save(path, cfg))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "sk-secret")

	round, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, cfg.Chunker, round.Chunker)
	assert.Empty(t, round.LLM.APIKey)
}

func TestValidate(t *testing.T) {
	clearEnv(t)
	cases := []struct {
		name   string
		mutate func(*AppConfig)
		key    string
	}{
		{"missing openai key", func(c *AppConfig) {}, "OPENAI_API_KEY"},
		{"pinecone without key", func(c *AppConfig) {
			c.LLM.APIKey = "sk"
			c.VectorStore.Type = "pinecone"
			c.VectorStore.Pinecone = &PineconeConfig{}
		}, "PINECONE_API_KEY"},
		{"pinecone without index", func(c *AppConfig) {
			c.LLM.APIKey = "sk"
			c.VectorStore.Type = "pinecone"
			c.VectorStore.Index = ""
			c.VectorStore.Pinecone = &PineconeConfig{APIKey: "pc"}
		}, "PINECONE_INDEX_NAME"},
		{"unknown store", func(c *AppConfig) {
			c.LLM.APIKey = "sk"
			c.VectorStore.Type = "redis"
		}, "vector_store.type"},
		{"openai embedder without key", func(c *AppConfig) {
			c.LLM.APIKey = "sk"
			c.Embedder.Type = "openai"
			c.Embedder.OpenAI = &OpenAIEmbedderConfig{APIKeyEnv: "OPENAI_API_KEY"}
		}, "OPENAI_API_KEY"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := defaultConfig()
			tc.mutate(cfg)
			var ce *domain.ConfigurationError
			require.ErrorAs(t, cfg.Validate(), &ce)
			assert.Equal(t, tc.key, ce.Key)
		})
	}

	cfg := defaultConfig()
	assert.NoError(t, cfg.ValidateIndex())
}

func TestLoadEnvFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("CONSULTORIO_ADDR=:7777\n"), 0o600))
	t.Setenv("CONSULTORIO_ADDR", "")
	require.NoError(t, os.Unsetenv("CONSULTORIO_ADDR"))

	require.NoError(t, LoadEnvFile(path, filepath.Join(t.TempDir(), "missing.env")))
	assert.Equal(t, ":7777", os.Getenv("CONSULTORIO_ADDR"))
}
