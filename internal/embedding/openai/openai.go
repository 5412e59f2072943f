package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/FAL1989/consultorio-jung/internal/domain"
)

// DefaultDimension is the output size of text-embedding-3-small.
const DefaultDimension = 1536

// Client is an OpenAI-compatible embeddings client implementing the Embedder interface.
type Client struct {
	api        *goopenai.Client
	model      goopenai.EmbeddingModel
	dimension  int
	custom     bool
	maxRetries int
	backoff    func(attempt int) time.Duration
}

// Config configures the OpenAI-compatible embeddings client.
type Config struct {
	BaseURL   string
	APIKey    string
	APIKeyEnv string
	Model     string
	// Dimension requests shortened vectors from models that support it.
	Dimension  int
	Timeout    time.Duration
	MaxRetries int
}

// NewClient creates a new embeddings client using the provided configuration.
func NewClient(cfg Config) (*Client, error) {
	key := cfg.APIKey
	if key == "" && cfg.APIKeyEnv != "" {
		key = os.Getenv(cfg.APIKeyEnv)
	}
	if key == "" {
		return nil, &domain.ConfigurationError{Key: "openai.api_key", Reason: "missing API key"}
	}
	if cfg.Model == "" {
		cfg.Model = string(goopenai.SmallEmbedding3)
	}
	t := cfg.Timeout
	if t == 0 {
		t = 30 * time.Second
	}
	retries := cfg.MaxRetries
	if retries == 0 {
		retries = 5
	}

	oc := goopenai.DefaultConfig(key)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	oc.HTTPClient = &http.Client{Timeout: t}

	dim := cfg.Dimension
	custom := dim > 0
	if !custom {
		dim = DefaultDimension
	}
	return &Client{
		api:        goopenai.NewClientWithConfig(oc),
		model:      goopenai.EmbeddingModel(cfg.Model),
		dimension:  dim,
		custom:     custom,
		maxRetries: retries,
		backoff:    retryDelay,
	}, nil
}

// Name returns the identifier of this embedder implementation.
func (c *Client) Name() string { return "openai" }

// Prepare is not required for remote embedding.
func (c *Client) Prepare(corpus []string) error { return nil }

// Dimension returns the dimensionality of the produced embedding vectors.
func (c *Client) Dimension() int { return c.dimension }

// Embed returns an embedding vector for the given text. Rate limiting and
// server errors are retried with exponential backoff.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	req := goopenai.EmbeddingRequest{
		Input: []string{text},
		Model: c.model,
	}
	if c.custom {
		req.Dimensions = c.dimension
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		resp, err := c.api.CreateEmbeddings(ctx, req)
		if err == nil {
			if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
				return nil, &domain.EmbeddingError{Op: "embed", Err: errors.New("no embedding returned")}
			}
			v := resp.Data[0].Embedding
			if len(v) != c.dimension {
				return nil, &domain.EmbeddingError{Op: "embed", Err: fmt.Errorf("got %d dimensions, index expects %d", len(v), c.dimension)}
			}
			return v, nil
		}
		lastErr = err
		if !retryable(err) || attempt == c.maxRetries {
			break
		}
		select {
		case <-ctx.Done():
			return nil, &domain.EmbeddingError{Op: "embed", Err: ctx.Err()}
		case <-time.After(c.backoff(attempt)):
		}
	}
	return nil, &domain.EmbeddingError{Op: "embed", Err: fmt.Errorf("openai embeddings failed: %w", lastErr)}
}

// retryable reports whether err is a throttling or server-side failure.
func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == http.StatusTooManyRequests || apiErr.HTTPStatusCode >= 500
	}
	var reqErr *goopenai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode == http.StatusTooManyRequests || reqErr.HTTPStatusCode >= 500
	}
	// transport failure
	return true
}

func retryDelay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	if attempt > 5 {
		attempt = 5
	}
	base := 200 * time.Millisecond
	// exponential backoff capped at 5s
	d := base << attempt
	if d > 5*time.Second {
		d = 5 * time.Second
	}
	return d
}
