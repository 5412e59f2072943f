// Package pinecone stores vectors in a Pinecone serverless index.
package pinecone

import (
	"context"
	"fmt"
	"sync"

	"github.com/pinecone-io/go-pinecone/v4/pinecone"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/FAL1989/consultorio-jung/internal/domain"
	"github.com/FAL1989/consultorio-jung/internal/vectorstore"
)

type Config struct {
	APIKey string
	Index  string
	Cloud  string
	Region string
}

// Storage talks to the Pinecone control plane for index management and to
// the index host for data operations. The host is resolved once and cached.
type Storage struct {
	pc     *pinecone.Client
	index  string
	cloud  pinecone.Cloud
	region string

	mu   sync.Mutex
	host string
}

func NewStorage(cfg Config) (*Storage, error) {
	if cfg.APIKey == "" {
		return nil, &domain.ConfigurationError{Key: "pinecone.api_key", Reason: "missing API key"}
	}
	if cfg.Index == "" {
		return nil, &domain.ConfigurationError{Key: "pinecone.index_name", Reason: "missing index name"}
	}
	pc, err := pinecone.NewClient(pinecone.NewClientParams{ApiKey: cfg.APIKey})
	if err != nil {
		return nil, fmt.Errorf("failed to create pinecone client: %w", err)
	}
	cloud := cfg.Cloud
	if cloud == "" {
		cloud = "aws"
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	return &Storage{pc: pc, index: cfg.Index, cloud: pinecone.Cloud(cloud), region: region}, nil
}

func (s *Storage) ListIndexes(ctx context.Context) ([]string, error) {
	idxs, err := s.pc.ListIndexes(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(idxs))
	for _, idx := range idxs {
		names = append(names, idx.Name)
	}
	return names, nil
}

func (s *Storage) CreateIndex(ctx context.Context, name string, dimension int) error {
	metric := pinecone.Cosine
	dim := int32(dimension)
	_, err := s.pc.CreateServerlessIndex(ctx, &pinecone.CreateServerlessIndexRequest{
		Name:      name,
		Cloud:     s.cloud,
		Region:    s.region,
		Metric:    &metric,
		Dimension: &dim,
	})
	return err
}

func (s *Storage) Upsert(ctx context.Context, namespace string, records []vectorstore.Record) error {
	if len(records) == 0 {
		return nil
	}
	conn, err := s.conn(ctx, namespace)
	if err != nil {
		return err
	}
	defer conn.Close()

	vectors := make([]*pinecone.Vector, 0, len(records))
	for _, r := range records {
		md, err := toStruct(r.Metadata)
		if err != nil {
			return fmt.Errorf("metadata for %s: %w", r.ID, err)
		}
		values := r.Values
		vectors = append(vectors, &pinecone.Vector{Id: r.ID, Values: &values, Metadata: md})
	}
	_, err = conn.UpsertVectors(ctx, vectors)
	return err
}

func (s *Storage) Query(ctx context.Context, vector []float32, topK int, filter *domain.SearchFilter) ([]vectorstore.Match, error) {
	if topK <= 0 {
		topK = 5
	}
	var namespace string
	var equals map[string]string
	if filter != nil {
		namespace = filter.Namespace
		equals = filter.Equals
	}
	conn, err := s.conn(ctx, namespace)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	mf, err := filterStruct(equals)
	if err != nil {
		return nil, err
	}
	res, err := conn.QueryByVectorValues(ctx, &pinecone.QueryByVectorValuesRequest{
		Vector:          vector,
		TopK:            uint32(topK),
		MetadataFilter:  mf,
		IncludeMetadata: true,
	})
	if err != nil {
		return nil, err
	}
	out := make([]vectorstore.Match, 0, len(res.Matches))
	for _, m := range res.Matches {
		if m == nil || m.Vector == nil {
			continue
		}
		out = append(out, vectorstore.Match{
			ID:       m.Vector.Id,
			Score:    float64(m.Score),
			Metadata: fromStruct(m.Vector.Metadata),
		})
	}
	return out, nil
}

func (s *Storage) Clear(ctx context.Context, namespace string) error {
	conn, err := s.conn(ctx, namespace)
	if err != nil {
		return err
	}
	defer conn.Close()
	return conn.DeleteAllVectorsInNamespace(ctx)
}

func (s *Storage) conn(ctx context.Context, namespace string) (*pinecone.IndexConnection, error) {
	s.mu.Lock()
	host := s.host
	s.mu.Unlock()
	if host == "" {
		idx, err := s.pc.DescribeIndex(ctx, s.index)
		if err != nil {
			return nil, fmt.Errorf("describe index %s: %w: %v", s.index, domain.ErrIndexNotFound, err)
		}
		if idx.Host == "" {
			return nil, fmt.Errorf("index %s: %w", s.index, domain.ErrIndexNotFound)
		}
		host = idx.Host
		s.mu.Lock()
		s.host = host
		s.mu.Unlock()
	}
	return s.pc.Index(pinecone.NewIndexConnParams{Host: host, Namespace: namespace})
}

// toStruct converts metadata to the protobuf form Pinecone expects. Lists are
// only allowed to hold strings.
func toStruct(md map[string]any) (*structpb.Struct, error) {
	if len(md) == 0 {
		return nil, nil
	}
	fields := make(map[string]any, len(md))
	for k, v := range md {
		switch x := v.(type) {
		case []string:
			list := make([]any, len(x))
			for i, s := range x {
				list[i] = s
			}
			fields[k] = list
		case int:
			fields[k] = float64(x)
		case nil:
		default:
			fields[k] = x
		}
	}
	return structpb.NewStruct(fields)
}

func filterStruct(equals map[string]string) (*structpb.Struct, error) {
	if len(equals) == 0 {
		return nil, nil
	}
	f := make(map[string]any, len(equals))
	for k, v := range equals {
		f[k] = map[string]any{"$eq": v}
	}
	return structpb.NewStruct(f)
}

func fromStruct(s *structpb.Struct) map[string]any {
	if s == nil {
		return map[string]any{}
	}
	return s.AsMap()
}

var _ vectorstore.Storage = (*Storage)(nil)
