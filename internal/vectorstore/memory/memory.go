package memory

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/FAL1989/consultorio-jung/internal/domain"
	"github.com/FAL1989/consultorio-jung/internal/vectorstore"
)

type index struct {
	dimension  int
	namespaces map[string][]vectorstore.Record
}

// Storage is a simple in-memory vector store using brute-force cosine similarity.
type Storage struct {
	mu      sync.RWMutex
	name    string
	indexes map[string]*index
}

// NewStorage returns a store whose Upsert and Query act on the named index.
func NewStorage(indexName string) *Storage {
	return &Storage{name: indexName, indexes: make(map[string]*index)}
}

func (s *Storage) ListIndexes(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.indexes))
	for n := range s.indexes {
		names = append(names, n)
	}
	sort.Strings(names)
	return names, nil
}

func (s *Storage) CreateIndex(ctx context.Context, name string, dimension int) error {
	if dimension <= 0 {
		return errors.New("invalid dimension")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.indexes[name]; ok {
		return fmt.Errorf("index %q already exists", name)
	}
	s.indexes[name] = &index{dimension: dimension, namespaces: make(map[string][]vectorstore.Record)}
	return nil
}

// Upsert replaces records with the same ID in the namespace.
func (s *Storage) Upsert(ctx context.Context, namespace string, records []vectorstore.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx, ok := s.indexes[s.name]
	if !ok {
		return domain.ErrIndexNotFound
	}
	for _, r := range records {
		if len(r.Values) != idx.dimension {
			return errors.New("vector dimension mismatch")
		}
	}
	ns := idx.namespaces[namespace]
	pos := make(map[string]int, len(ns))
	for i, r := range ns {
		pos[r.ID] = i
	}
	for _, r := range records {
		if i, ok := pos[r.ID]; ok {
			ns[i] = r
			continue
		}
		pos[r.ID] = len(ns)
		ns = append(ns, r)
	}
	idx.namespaces[namespace] = ns
	return nil
}

func (s *Storage) Query(ctx context.Context, vector []float32, topK int, filter *domain.SearchFilter) ([]vectorstore.Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx, ok := s.indexes[s.name]
	if !ok {
		return nil, domain.ErrIndexNotFound
	}
	if topK <= 0 {
		topK = 5
	}
	var namespace string
	var equals map[string]string
	if filter != nil {
		namespace = filter.Namespace
		equals = filter.Equals
	}

	var matches []vectorstore.Match
	for _, r := range idx.namespaces[namespace] {
		if !matchesFilter(r.Metadata, equals) {
			continue
		}
		matches = append(matches, vectorstore.Match{ID: r.ID, Score: cosine(r.Values, vector), Metadata: r.Metadata})
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	if topK < len(matches) {
		matches = matches[:topK]
	}
	return matches, nil
}

func (s *Storage) Clear(ctx context.Context, namespace string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx, ok := s.indexes[s.name]
	if !ok {
		return domain.ErrIndexNotFound
	}
	delete(idx.namespaces, namespace)
	return nil
}

func matchesFilter(md map[string]any, equals map[string]string) bool {
	for k, want := range equals {
		v, ok := md[k]
		if !ok || fmt.Sprint(v) != want {
			return false
		}
	}
	return true
}

func cosine(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
