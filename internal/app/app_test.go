package app

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FAL1989/consultorio-jung/internal/config"
	"github.com/FAL1989/consultorio-jung/internal/domain"
	"github.com/FAL1989/consultorio-jung/internal/testutil"
)

func testConfig(t *testing.T) *config.AppConfig {
	t.Helper()
	cfg, err := config.Parse([]byte("{}"))
	require.NoError(t, err)
	return cfg
}

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestBuild_IndexesKnowledgeIntoMemoryStore(t *testing.T) {
	a, err := Build(context.Background(), testConfig(t), quiet, Options{})
	require.NoError(t, err)
	assert.Nil(t, a.Analyst)

	docs, err := a.Index.SimilaritySearch(context.Background(), "aspectos reprimidos ou negados da personalidade", 1, nil)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "Sombra", docs[0].Metadata.Concept)
}

func TestBuild_WithModel(t *testing.T) {
	model := &testutil.FakeModel{Deltas: []string{"A sombra ", "se revela."}}
	a, err := Build(context.Background(), testConfig(t), quiet, Options{WithModel: true, Model: model})
	require.NoError(t, err)
	require.NotNil(t, a.Analyst)
	assert.Nil(t, a.Transcriber)

	var last domain.StreamEvent
	for ev := range a.Analyst.GenerateResponseStream(context.Background(),
		"Tenho percebido aspectos reprimidos e negados da minha personalidade nos sonhos") {
		last = ev
	}
	require.Equal(t, domain.EventMetadata, last.Kind)
	var names []string
	for _, c := range last.Metadata.Concepts {
		names = append(names, c.Name)
	}
	assert.Contains(t, names, "Sombra")
}

func TestBuild_KnowledgeFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "k.yaml")
	yml := `
concepts:
  - name: Sincronicidade
    description: Coincidência significativa entre um evento interno e um externo
    category: Fenômeno
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o600))
	cfg := testConfig(t)
	cfg.Knowledge.File = path

	a, err := Build(context.Background(), cfg, quiet, Options{})
	require.NoError(t, err)
	_, ok := a.Store.Concept("Sincronicidade")
	assert.True(t, ok)

	cfg.Knowledge.File = filepath.Join(t.TempDir(), "missing.yaml")
	_, err = Build(context.Background(), cfg, quiet, Options{})
	assert.Error(t, err)
}

func TestBuild_Errors(t *testing.T) {
	cfg := testConfig(t)
	cfg.Embedder.Type = "word2vec"
	_, err := Build(context.Background(), cfg, quiet, Options{})
	assert.Error(t, err)

	cfg = testConfig(t)
	cfg.VectorStore.Type = "pinecone"
	cfg.VectorStore.Pinecone = &config.PineconeConfig{}
	_, err = Build(context.Background(), cfg, quiet, Options{})
	var ce *domain.ConfigurationError
	assert.ErrorAs(t, err, &ce)

	cfg = testConfig(t)
	cfg.LLM.APIKey = ""
	_, err = Build(context.Background(), cfg, quiet, Options{WithModel: true})
	assert.ErrorAs(t, err, &ce)
}
