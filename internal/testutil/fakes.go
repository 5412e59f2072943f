// Package testutil holds in-memory fakes of the model and retrieval ports.
package testutil

import (
	"context"
	"io"
	"strings"
	"sync"

	"github.com/FAL1989/consultorio-jung/internal/domain"
	"github.com/FAL1989/consultorio-jung/internal/llm"
)

// FakeModel replays scripted deltas. Err fails the call after the deltas
// have been delivered; CompleteText overrides the batch reply.
type FakeModel struct {
	mu           sync.Mutex
	Deltas       []string
	Err          error
	CompleteText string
	Usage        domain.Usage
	Requests     []llm.Request
}

func (f *FakeModel) record(req llm.Request) {
	f.mu.Lock()
	f.Requests = append(f.Requests, req)
	f.mu.Unlock()
}

// LastPrompt returns the user message of the most recent call.
func (f *FakeModel) LastPrompt() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.Requests) == 0 {
		return ""
	}
	msgs := f.Requests[len(f.Requests)-1].Messages
	return msgs[len(msgs)-1].Content
}

func (f *FakeModel) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Requests)
}

func (f *FakeModel) Complete(ctx context.Context, req llm.Request) (*llm.Response, error) {
	f.record(req)
	if f.Err != nil {
		return nil, &domain.ModelInvocationError{Op: "complete", Err: f.Err}
	}
	text := f.CompleteText
	if text == "" {
		text = strings.Join(f.Deltas, "")
	}
	return &llm.Response{Text: text, Model: "fake", Usage: f.Usage}, nil
}

func (f *FakeModel) Stream(ctx context.Context, req llm.Request, onDelta func(string) error) (*llm.Response, error) {
	f.record(req)
	var b strings.Builder
	for _, d := range f.Deltas {
		if err := ctx.Err(); err != nil {
			return nil, &domain.ModelInvocationError{Op: "stream", Err: err}
		}
		if d == "" {
			continue
		}
		b.WriteString(d)
		if err := onDelta(d); err != nil {
			return nil, &domain.ModelInvocationError{Op: "stream", Err: err}
		}
	}
	if f.Err != nil {
		return nil, &domain.ModelInvocationError{Op: "stream", Err: f.Err}
	}
	return &llm.Response{Text: b.String(), Model: "fake", Usage: f.Usage}, nil
}

// FakeSearcher returns Docs for every query, or Err.
type FakeSearcher struct {
	mu      sync.Mutex
	Docs    []domain.RetrievedDocument
	Err     error
	Queries []string
}

func (f *FakeSearcher) SimilaritySearch(ctx context.Context, query string, k int, filter *domain.SearchFilter) ([]domain.RetrievedDocument, error) {
	f.mu.Lock()
	f.Queries = append(f.Queries, query)
	f.mu.Unlock()
	if f.Err != nil {
		return nil, &domain.RetrievalError{Op: "search", Err: f.Err}
	}
	if k > 0 && k < len(f.Docs) {
		return f.Docs[:k], nil
	}
	return f.Docs, nil
}

// ConceptHit builds a retrieval hit tagged with a concept name.
func ConceptHit(concept, content string) domain.RetrievedDocument {
	return domain.RetrievedDocument{Content: content, Score: 0.9, Metadata: domain.HitMetadata{Concept: concept, Title: concept}}
}

// FakeTranscriber returns Text or Err and records the audio it was given.
type FakeTranscriber struct {
	Text     string
	Err      error
	Filename string
	Audio    []byte
}

func (f *FakeTranscriber) Transcribe(ctx context.Context, filename string, audio io.Reader) (string, error) {
	f.Filename = filename
	data, err := io.ReadAll(audio)
	if err != nil {
		return "", err
	}
	f.Audio = data
	if f.Err != nil {
		return "", &domain.TranscriptionError{Err: f.Err}
	}
	return f.Text, nil
}

// FakePinger satisfies health probes.
type FakePinger struct{ Err error }

func (f FakePinger) TestConnection(context.Context) error { return f.Err }
