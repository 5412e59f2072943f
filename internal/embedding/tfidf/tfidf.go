package tfidf

import (
	"context"
	"errors"
	"hash/fnv"
	"math"
	"regexp"
	"strings"
	"sync"

	"github.com/FAL1989/consultorio-jung/internal/summarizer"
)

// DefaultDimension is the number of hash buckets used when none is given.
const DefaultDimension = 512

// Embedder implements a hashed TF-IDF vectorizer with a fixed dimension.
// Terms are hashed into buckets so the index can be created before any
// corpus is seen. Prepare only refines the IDF weights.
type Embedder struct {
	mu           sync.RWMutex
	idf          []float32
	dimension    int
	tokenPattern *regexp.Regexp
	stopwords    map[string]struct{}
}

// NewEmbedder creates a TF-IDF embedder with the given number of buckets.
func NewEmbedder(dimension int) *Embedder {
	if dimension <= 0 {
		dimension = DefaultDimension
	}
	idf := make([]float32, dimension)
	for i := range idf {
		idf[i] = 1
	}
	return &Embedder{
		idf:          idf,
		dimension:    dimension,
		tokenPattern: regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*`),
		stopwords:    summarizer.Stopwords(),
	}
}

// Name returns the identifier of this embedder implementation.
func (e *Embedder) Name() string { return "tfidf" }

// Prepare computes bucket IDF values from the provided corpus.
func (e *Embedder) Prepare(corpus []string) error {
	if len(corpus) == 0 {
		return errors.New("empty corpus for TF-IDF prepare")
	}
	df := make([]int, e.dimension)
	found := false
	for _, text := range corpus {
		seen := make(map[int]struct{})
		for _, tok := range e.tokenize(text) {
			b := e.bucket(tok)
			if _, ok := seen[b]; ok {
				continue
			}
			seen[b] = struct{}{}
			df[b]++
			found = true
		}
	}
	if !found {
		return errors.New("no tokens found in corpus; ensure tokenizer supports your language")
	}
	idf := make([]float32, e.dimension)
	n := float64(len(corpus))
	for i := range idf {
		// Smoothed IDF
		idf[i] = float32(math.Log((1+n)/(1+float64(df[i]))) + 1.0)
	}
	e.mu.Lock()
	e.idf = idf
	e.mu.Unlock()
	return nil
}

// Dimension returns the dimensionality of the produced embedding vectors.
func (e *Embedder) Dimension() int { return e.dimension }

// Embed computes the L2-normalized TF-IDF embedding for the given text.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	vec := make([]float32, e.dimension)
	tokens := e.tokenize(text)
	if len(tokens) == 0 {
		return vec, nil
	}
	tf := make(map[int]int)
	for _, tok := range tokens {
		tf[e.bucket(tok)]++
	}

	e.mu.RLock()
	idf := e.idf
	e.mu.RUnlock()

	total := float32(len(tokens))
	var norm float64
	for idx, count := range tf {
		v := float32(count) / total * idf[idx]
		vec[idx] = v
		norm += float64(v) * float64(v)
	}
	// L2 normalize
	if norm > 0 {
		n := float32(math.Sqrt(norm))
		for i := range vec {
			vec[i] /= n
		}
	}
	return vec, nil
}

func (e *Embedder) bucket(token string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(token))
	return int(h.Sum32() % uint32(e.dimension))
}

func (e *Embedder) tokenize(text string) []string {
	lower := strings.ToLower(text)
	raw := e.tokenPattern.FindAllString(lower, -1)
	if len(raw) == 0 {
		return nil
	}
	out := raw[:0]
	for _, t := range raw {
		if _, isStop := e.stopwords[t]; isStop {
			continue
		}
		out = append(out, t)
	}
	return out
}
