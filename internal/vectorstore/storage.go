package vectorstore

import (
	"context"
	"slices"

	"github.com/FAL1989/consultorio-jung/internal/domain"
)

// Record is one vector written to an index. Metadata values are strings,
// string slices or integers.
type Record struct {
	ID       string
	Values   []float32
	Metadata map[string]any
}

// Match is one nearest-neighbour hit with its stored metadata.
type Match struct {
	ID       string
	Score    float64
	Metadata map[string]any
}

// Storage persists vectors in a named index and supports similarity search.
// Index management works across the whole project or server; Upsert, Query
// and Clear act on the index the storage was configured with.
type Storage interface {
	ListIndexes(ctx context.Context) ([]string, error)
	CreateIndex(ctx context.Context, name string, dimension int) error
	Upsert(ctx context.Context, namespace string, records []Record) error
	Query(ctx context.Context, vector []float32, topK int, filter *domain.SearchFilter) ([]Match, error)
	Clear(ctx context.Context, namespace string) error
}

// EnsureIndex creates the named index only when ListIndexes does not report it.
func EnsureIndex(ctx context.Context, s Storage, name string, dimension int) (bool, error) {
	names, err := s.ListIndexes(ctx)
	if err != nil {
		return false, err
	}
	if slices.Contains(names, name) {
		return false, nil
	}
	if err := s.CreateIndex(ctx, name, dimension); err != nil {
		return false, err
	}
	return true, nil
}
