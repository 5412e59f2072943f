// Package app assembles the components selected by configuration.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/FAL1989/consultorio-jung/internal/analyst"
	"github.com/FAL1989/consultorio-jung/internal/chunker"
	"github.com/FAL1989/consultorio-jung/internal/config"
	"github.com/FAL1989/consultorio-jung/internal/embedding"
	"github.com/FAL1989/consultorio-jung/internal/embedding/openai"
	"github.com/FAL1989/consultorio-jung/internal/embedding/tfidf"
	"github.com/FAL1989/consultorio-jung/internal/knowledge"
	"github.com/FAL1989/consultorio-jung/internal/llm"
	"github.com/FAL1989/consultorio-jung/internal/memory"
	"github.com/FAL1989/consultorio-jung/internal/summarizer"
	"github.com/FAL1989/consultorio-jung/internal/vectorindex"
	"github.com/FAL1989/consultorio-jung/internal/vectorstore"
	memstore "github.com/FAL1989/consultorio-jung/internal/vectorstore/memory"
	"github.com/FAL1989/consultorio-jung/internal/vectorstore/pinecone"
	"github.com/FAL1989/consultorio-jung/internal/vectorstore/qdrant"
)

// Options adjusts Build. Model replaces the OpenAI client when set.
type Options struct {
	WithModel bool
	Model     llm.ChatModel
}

// App is the assembled object graph shared by every command.
type App struct {
	Config      *config.AppConfig
	Logger      *slog.Logger
	Index       *vectorindex.Adapter
	Store       *knowledge.Store
	Analyst     *analyst.Analyst
	Sessions    *memory.Sessions
	Summarizer  *summarizer.FrequencySummarizer
	Transcriber llm.Transcriber
}

// Build wires embedder, vector store, index, knowledge store and, when
// requested, the chat model and analyst.
func Build(ctx context.Context, cfg *config.AppConfig, logger *slog.Logger, opts Options) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	emb, err := newEmbedder(cfg)
	if err != nil {
		return nil, err
	}
	st, err := newStorage(cfg)
	if err != nil {
		return nil, err
	}
	idx, err := vectorindex.New(ctx, st, emb,
		chunker.NewRecursiveChunker(cfg.Chunker.MaxSize, cfg.Chunker.Overlap),
		vectorindex.Options{
			IndexName:     cfg.VectorStore.Index,
			Namespace:     cfg.VectorStore.Namespace,
			Concurrency:   cfg.Ingest.Concurrency,
			RatePerSecond: cfg.Ingest.RatePerSecond,
			Burst:         cfg.Ingest.Burst,
		}, logger)
	if err != nil {
		return nil, err
	}

	store := knowledge.NewSeededStore(idx)
	if cfg.Knowledge.File != "" {
		if err := knowledge.LoadFile(store, cfg.Knowledge.File); err != nil {
			return nil, fmt.Errorf("load knowledge file: %w", err)
		}
	}

	a := &App{
		Config:     cfg,
		Logger:     logger,
		Index:      idx,
		Store:      store,
		Sessions:   memory.NewSessions(cfg.Memory.Window, cfg.Memory.MaxSessions, time.Duration(cfg.Memory.SessionTTLMinutes)*time.Minute),
		Summarizer: summarizer.NewFrequencySummarizer(),
	}

	// The in-memory store starts empty on every run.
	if _, ok := st.(*memstore.Storage); ok {
		if err := a.IndexKnowledge(ctx); err != nil {
			return nil, err
		}
	}

	if !opts.WithModel {
		return a, nil
	}
	model := opts.Model
	if model == nil {
		client, err := llm.NewOpenAIClient(llm.Config{
			APIKey:             cfg.LLM.APIKey,
			BaseURL:            cfg.LLM.BaseURL,
			Model:              cfg.LLM.Model,
			Temperature:        cfg.LLM.Temperature,
			TopP:               cfg.LLM.TopP,
			FrequencyPenalty:   cfg.LLM.FrequencyPenalty,
			PresencePenalty:    cfg.LLM.PresencePenalty,
			MaxTokens:          cfg.LLM.MaxTokens,
			Timeout:            time.Duration(cfg.LLM.TimeoutSecs) * time.Second,
			TranscriptionModel: cfg.LLM.TranscriptionModel,
			Language:           cfg.LLM.Language,
		}, llm.NewLogObserver(logger))
		if err != nil {
			return nil, err
		}
		model = client
		a.Transcriber = client
	}
	a.Analyst = analyst.New(analyst.Deps{
		Store:  store,
		Index:  idx,
		Model:  model,
		Logger: logger,
	}, memory.New(cfg.Memory.Window))
	return a, nil
}

// IndexKnowledge writes every knowledge-store entity into the vector index.
func (a *App) IndexKnowledge(ctx context.Context) error {
	texts, metas := a.Store.Documents()
	if len(texts) == 0 {
		return nil
	}
	if err := a.Index.Prepare(texts); err != nil {
		return err
	}
	ids, err := a.Index.Upsert(ctx, texts, metas)
	if err != nil {
		return err
	}
	a.Logger.Info("knowledge indexed", "entities", len(texts), "chunks", len(ids))
	return nil
}

func newEmbedder(cfg *config.AppConfig) (embedding.Embedder, error) {
	switch cfg.Embedder.Type {
	case "tfidf", "":
		return tfidf.NewEmbedder(cfg.Embedder.Dimension), nil
	case "openai":
		oc := cfg.Embedder.OpenAI
		if oc == nil {
			return nil, fmt.Errorf("openai embedder config missing")
		}
		return openai.NewClient(openai.Config{
			BaseURL:    oc.BaseURL,
			APIKeyEnv:  oc.APIKeyEnv,
			Model:      oc.Model,
			Dimension:  oc.Dimension,
			Timeout:    time.Duration(oc.TimeoutSecs) * time.Second,
			MaxRetries: oc.MaxRetries,
		})
	}
	return nil, fmt.Errorf("unknown embedder: %s", cfg.Embedder.Type)
}

func newStorage(cfg *config.AppConfig) (vectorstore.Storage, error) {
	vs := cfg.VectorStore
	switch vs.Type {
	case "memory", "":
		return memstore.NewStorage(vs.Index), nil
	case "qdrant":
		if vs.Qdrant == nil {
			return nil, fmt.Errorf("qdrant config missing")
		}
		return qdrant.NewStorage(qdrant.Config{
			URL:        vs.Qdrant.URL,
			APIKey:     vs.Qdrant.APIKey,
			Collection: vs.Index,
			Timeout:    time.Duration(vs.Qdrant.TimeoutSecs) * time.Second,
		}), nil
	case "pinecone":
		if vs.Pinecone == nil {
			return nil, fmt.Errorf("pinecone config missing")
		}
		return pinecone.NewStorage(pinecone.Config{
			APIKey: vs.Pinecone.APIKey,
			Index:  vs.Index,
			Cloud:  vs.Pinecone.Cloud,
			Region: vs.Pinecone.Region,
		})
	}
	return nil, fmt.Errorf("unknown vector store: %s", vs.Type)
}
