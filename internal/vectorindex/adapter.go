// Package vectorindex turns texts into embedded chunks in a vector store and
// turns queries back into retrieved documents.
package vectorindex

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"strconv"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/FAL1989/consultorio-jung/internal/chunker"
	"github.com/FAL1989/consultorio-jung/internal/domain"
	"github.com/FAL1989/consultorio-jung/internal/embedding"
	"github.com/FAL1989/consultorio-jung/internal/vectorstore"
)

const upsertBatchSize = 100

// Options tunes index naming and ingestion throughput.
type Options struct {
	IndexName string
	Namespace string
	// Concurrency bounds in-flight embedding calls during Upsert.
	Concurrency int
	// RatePerSecond limits embedding calls during Upsert; zero disables the limit.
	RatePerSecond float64
	Burst         int
}

// Adapter is the Vector Index Adapter over a Storage and an Embedder.
type Adapter struct {
	store       vectorstore.Storage
	embedder    embedding.Embedder
	chunker     *chunker.RecursiveChunker
	indexName   string
	namespace   string
	concurrency int
	limiter     *rate.Limiter
	logger      *slog.Logger
	newID       func() string
}

// New connects the adapter and creates the index when it does not exist yet.
func New(ctx context.Context, store vectorstore.Storage, emb embedding.Embedder, ch *chunker.RecursiveChunker, opts Options, logger *slog.Logger) (*Adapter, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if ch == nil {
		ch = chunker.NewRecursiveChunker(chunker.DefaultMaxSize, chunker.DefaultOverlap)
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}
	limiter := rate.NewLimiter(rate.Inf, 0)
	if opts.RatePerSecond > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RatePerSecond), burst)
	}
	a := &Adapter{
		store:       store,
		embedder:    emb,
		chunker:     ch,
		indexName:   opts.IndexName,
		namespace:   opts.Namespace,
		concurrency: opts.Concurrency,
		limiter:     limiter,
		logger:      logger,
		newID:       uuid.NewString,
	}
	created, err := vectorstore.EnsureIndex(ctx, store, opts.IndexName, emb.Dimension())
	if err != nil {
		return nil, &domain.RetrievalError{Op: "ensure index", Err: err}
	}
	if created {
		logger.Info("vector index created", "index", opts.IndexName, "dimension", emb.Dimension())
	}
	return a, nil
}

// Upsert chunks every text, embeds each chunk and writes it with the
// caller's metadata plus the chunk text under the reserved key. The returned
// ids follow chunk order.
func (a *Adapter) Upsert(ctx context.Context, texts []string, metadatas []map[string]any) ([]string, error) {
	if metadatas != nil && len(metadatas) != len(texts) {
		return nil, errors.New("texts and metadatas length mismatch")
	}
	var records []vectorstore.Record
	for i, text := range texts {
		var base map[string]any
		if metadatas != nil {
			base = metadatas[i]
		}
		for _, ch := range a.chunker.Split(text) {
			md := make(map[string]any, len(base)+3)
			maps.Copy(md, base)
			md[domain.MetaChunkIndex] = ch.Index
			md[domain.MetaTotalChunks] = ch.Total
			md[domain.ReservedTextKey] = ch.Content
			records = append(records, vectorstore.Record{ID: a.newID(), Metadata: md})
		}
	}
	return a.write(ctx, records)
}

// UpsertChunks writes pre-split chunks. Section-tagged chunks carry their
// section title and type.
func (a *Adapter) UpsertChunks(ctx context.Context, chunks []domain.Chunk, base map[string]any) ([]string, error) {
	records := make([]vectorstore.Record, 0, len(chunks))
	for _, ch := range chunks {
		md := make(map[string]any, len(base)+5)
		maps.Copy(md, base)
		md[domain.MetaChunkIndex] = ch.Index
		md[domain.MetaTotalChunks] = ch.Total
		if ch.Section != nil {
			md[domain.MetaSection] = ch.Section.Title
			md[domain.MetaSectionType] = sectionType(ch.Section)
		}
		if len(ch.Local.Concepts) > 0 {
			if _, ok := md[domain.MetaConcept]; !ok {
				md[domain.MetaConcept] = ch.Local.Concepts[0]
			}
		}
		md[domain.ReservedTextKey] = ch.Content
		records = append(records, vectorstore.Record{ID: a.newID(), Metadata: md})
	}
	return a.write(ctx, records)
}

func (a *Adapter) write(ctx context.Context, records []vectorstore.Record) ([]string, error) {
	if len(records) == 0 {
		return []string{}, nil
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency)
	for i := range records {
		g.Go(func() error {
			if err := a.limiter.Wait(gctx); err != nil {
				return &domain.EmbeddingError{Op: "upsert", Err: err}
			}
			text, _ := records[i].Metadata[domain.ReservedTextKey].(string)
			vec, err := a.embedder.Embed(gctx, text)
			if err != nil {
				return embeddingErr("upsert", err)
			}
			records[i].Values = vec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for start := 0; start < len(records); start += upsertBatchSize {
		end := min(start+upsertBatchSize, len(records))
		if err := a.store.Upsert(ctx, a.namespace, records[start:end]); err != nil {
			return nil, &domain.RetrievalError{Op: "upsert", Err: err}
		}
	}
	ids := make([]string, len(records))
	for i, r := range records {
		ids[i] = r.ID
	}
	a.logger.Debug("vectors upserted", "count", len(ids), "namespace", a.namespace)
	return ids, nil
}

// SimilaritySearch embeds query and returns the k nearest documents. A nil
// filter or empty filter namespace targets the adapter's namespace.
func (a *Adapter) SimilaritySearch(ctx context.Context, query string, k int, filter *domain.SearchFilter) ([]domain.RetrievedDocument, error) {
	vec, err := a.embedder.Embed(ctx, query)
	if err != nil {
		return nil, embeddingErr("query", err)
	}
	if isZero(vec) {
		return []domain.RetrievedDocument{}, nil
	}
	f := domain.SearchFilter{Namespace: a.namespace}
	if filter != nil {
		f.Equals = filter.Equals
		if filter.Namespace != "" {
			f.Namespace = filter.Namespace
		}
	}
	matches, err := a.store.Query(ctx, vec, k, &f)
	if err != nil {
		return nil, &domain.RetrievalError{Op: "search", Err: err}
	}
	docs := make([]domain.RetrievedDocument, 0, len(matches))
	for _, m := range matches {
		docs = append(docs, toDocument(m))
	}
	return docs, nil
}

// TestConnection probes the store by listing its indexes.
func (a *Adapter) TestConnection(ctx context.Context) error {
	if _, err := a.store.ListIndexes(ctx); err != nil {
		return &domain.RetrievalError{Op: "list indexes", Err: err}
	}
	return nil
}

// Clear removes every vector of the adapter's namespace.
func (a *Adapter) Clear(ctx context.Context) error {
	if err := a.store.Clear(ctx, a.namespace); err != nil {
		return &domain.RetrievalError{Op: "clear", Err: err}
	}
	return nil
}

// Prepare forwards the corpus to embedders that learn from it.
func (a *Adapter) Prepare(corpus []string) error {
	if err := a.embedder.Prepare(corpus); err != nil {
		return &domain.EmbeddingError{Op: "prepare", Err: err}
	}
	return nil
}

func toDocument(m vectorstore.Match) domain.RetrievedDocument {
	doc := domain.RetrievedDocument{Score: m.Score}
	extra := make(map[string]string)
	for k, v := range m.Metadata {
		switch k {
		case domain.ReservedTextKey:
			doc.Content = asString(v)
		case domain.MetaConcept:
			doc.Metadata.Concept = asString(v)
		case domain.MetaTitle:
			doc.Metadata.Title = asString(v)
		case domain.MetaCategory:
			doc.Metadata.Category = asString(v)
		case domain.MetaSection:
			doc.Metadata.Section = asString(v)
		case domain.MetaReferences:
			doc.Metadata.References = asStrings(v)
		case domain.MetaChunkIndex:
			doc.Metadata.ChunkIndex = asInt(v)
		case domain.MetaTotalChunks:
			doc.Metadata.TotalChunks = asInt(v)
		default:
			extra[k] = asString(v)
		}
	}
	if len(extra) > 0 {
		doc.Metadata.Extra = extra
	}
	return doc
}

func sectionType(s *domain.SectionInfo) string {
	if s.Major {
		return "major"
	}
	return "minor"
}

func embeddingErr(op string, err error) error {
	var ee *domain.EmbeddingError
	if errors.As(err, &ee) {
		return err
	}
	return &domain.EmbeddingError{Op: op, Err: err}
}

func isZero(v []float32) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}

func asString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return fmt.Sprint(x)
	}
}

func asStrings(v any) []string {
	switch x := v.(type) {
	case []string:
		return x
	case []any:
		out := make([]string, 0, len(x))
		for _, e := range x {
			out = append(out, asString(e))
		}
		return out
	case string:
		if x == "" {
			return nil
		}
		return []string{x}
	}
	return nil
}

func asInt(v any) int {
	switch x := v.(type) {
	case int:
		return x
	case int64:
		return int(x)
	case float64:
		return int(x)
	case float32:
		return int(x)
	case string:
		n, _ := strconv.Atoi(x)
		return n
	}
	return 0
}
