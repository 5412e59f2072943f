package llm

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/FAL1989/consultorio-jung/internal/domain"
)

// Config holds sampling and connection settings for the OpenAI client.
type Config struct {
	APIKey             string
	BaseURL            string
	Model              string
	Temperature        float32
	TopP               float32
	FrequencyPenalty   float32
	PresencePenalty    float32
	MaxTokens          int
	Timeout            time.Duration
	TranscriptionModel string
	Language           string
}

// DefaultConfig returns the persona's sampling settings.
func DefaultConfig() Config {
	return Config{
		Model:              openai.GPT4,
		Temperature:        0.9,
		TopP:               0.95,
		FrequencyPenalty:   0.7,
		PresencePenalty:    0.7,
		MaxTokens:          1500,
		Timeout:            60 * time.Second,
		TranscriptionModel: openai.Whisper1,
		Language:           "pt",
	}
}

// OpenAIClient implements ChatModel and Transcriber over the OpenAI API.
type OpenAIClient struct {
	cfg      Config
	api      *openai.Client
	observer Observer
}

// NewOpenAIClient creates a client; a missing API key is a configuration error.
func NewOpenAIClient(cfg Config, observer Observer) (*OpenAIClient, error) {
	if cfg.APIKey == "" {
		return nil, &domain.ConfigurationError{Key: "openai.api_key", Reason: "missing API key"}
	}
	if observer == nil {
		observer = NoopObserver{}
	}
	def := DefaultConfig()
	if cfg.Model == "" {
		cfg.Model = def.Model
	}
	if cfg.TranscriptionModel == "" {
		cfg.TranscriptionModel = def.TranscriptionModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = def.Timeout
	}
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	// No whole-request timeout: a stream stays open for the full reply.
	oc.HTTPClient = &http.Client{
		Transport: &http.Transport{
			DialContext: (&net.Dialer{Timeout: 5 * time.Second}).DialContext,
		},
	}
	return &OpenAIClient{cfg: cfg, api: openai.NewClientWithConfig(oc), observer: observer}, nil
}

func (c *OpenAIClient) request(req Request, stream bool) openai.ChatCompletionRequest {
	msgs := make([]openai.ChatCompletionMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		msgs = append(msgs, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}
	r := openai.ChatCompletionRequest{
		Model:            c.cfg.Model,
		Messages:         msgs,
		Temperature:      c.cfg.Temperature,
		TopP:             c.cfg.TopP,
		FrequencyPenalty: c.cfg.FrequencyPenalty,
		PresencePenalty:  c.cfg.PresencePenalty,
		MaxTokens:        c.cfg.MaxTokens,
		Stream:           stream,
	}
	if stream {
		r.StreamOptions = &openai.StreamOptions{IncludeUsage: true}
	}
	return r
}

func (c *OpenAIClient) Complete(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	resp, err := c.api.CreateChatCompletion(ctx, c.request(req, false))
	if err == nil && (len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "") {
		err = domain.ErrEmptyCompletion
	}
	latency := time.Since(start).Milliseconds()
	if err != nil {
		c.observe(req.Task, latency, err, 0)
		return nil, &domain.ModelInvocationError{Op: "complete", Err: err}
	}
	usage := domain.Usage{
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		TotalTokens:      resp.Usage.TotalTokens,
	}
	c.observe(req.Task, latency, nil, usage.TotalTokens)
	return &Response{Text: resp.Choices[0].Message.Content, Model: resp.Model, Usage: usage, LatencyMs: latency}, nil
}

func (c *OpenAIClient) Stream(ctx context.Context, req Request, onDelta func(string) error) (*Response, error) {
	start := time.Now()
	out, err := c.stream(ctx, req, onDelta)
	latency := time.Since(start).Milliseconds()
	if err != nil {
		c.observe(req.Task, latency, err, 0)
		return nil, &domain.ModelInvocationError{Op: "stream", Err: err}
	}
	out.LatencyMs = latency
	c.observe(req.Task, latency, nil, out.Usage.TotalTokens)
	return out, nil
}

func (c *OpenAIClient) stream(ctx context.Context, req Request, onDelta func(string) error) (*Response, error) {
	s, err := c.api.CreateChatCompletionStream(ctx, c.request(req, true))
	if err != nil {
		return nil, err
	}
	defer s.Close()

	out := &Response{Model: c.cfg.Model}
	var b strings.Builder
	for {
		chunk, err := s.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if chunk.Usage != nil {
			out.Usage = domain.Usage{
				PromptTokens:     chunk.Usage.PromptTokens,
				CompletionTokens: chunk.Usage.CompletionTokens,
				TotalTokens:      chunk.Usage.TotalTokens,
			}
		}
		if chunk.Model != "" {
			out.Model = chunk.Model
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		delta := chunk.Choices[0].Delta.Content
		if delta == "" {
			continue
		}
		b.WriteString(delta)
		if err := onDelta(delta); err != nil {
			return nil, err
		}
	}
	if b.Len() == 0 {
		return nil, domain.ErrEmptyCompletion
	}
	out.Text = b.String()
	return out, nil
}

// Transcribe sends audio to the speech-to-text model.
func (c *OpenAIClient) Transcribe(ctx context.Context, filename string, audio io.Reader) (string, error) {
	if filename == "" {
		filename = "audio.webm"
	}
	resp, err := c.api.CreateTranscription(ctx, openai.AudioRequest{
		Model:    c.cfg.TranscriptionModel,
		FilePath: filename,
		Reader:   audio,
		Language: c.cfg.Language,
	})
	if err != nil {
		return "", &domain.TranscriptionError{Err: err}
	}
	return strings.TrimSpace(resp.Text), nil
}

func (c *OpenAIClient) observe(task TaskType, latency int64, err error, tokens int) {
	ev := CallEvent{Task: task, Model: c.cfg.Model, LatencyMs: latency, Success: err == nil, Usage: tokens}
	if err != nil {
		ev.ErrorCode = errorCode(err)
	}
	c.observer.OnCallComplete(ev)
}

func errorCode(err error) string {
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled), errors.Is(err, domain.ErrConsumerGone):
		return "canceled"
	case errors.Is(err, domain.ErrEmptyCompletion):
		return "empty"
	case errors.As(err, &apiErr):
		return "http_" + strconv.Itoa(apiErr.HTTPStatusCode)
	case errors.As(err, &reqErr):
		return "http_" + strconv.Itoa(reqErr.HTTPStatusCode)
	default:
		return "unknown"
	}
}
