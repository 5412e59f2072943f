package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyCompletion indicates the model returned no text.
	ErrEmptyCompletion = errors.New("model returned an empty completion")

	// ErrIndexNotFound indicates the configured vector index does not exist.
	ErrIndexNotFound = errors.New("vector index not found")

	// ErrConsumerGone indicates the reader of a stream stopped before it ended.
	ErrConsumerGone = errors.New("stream consumer gone")

	// ErrMissingVariable indicates a prompt template was rendered without a required input.
	ErrMissingVariable = errors.New("missing template variable")
)

// EmbeddingError reports a failed embedding call.
type EmbeddingError struct {
	Op  string
	Err error
}

func (e *EmbeddingError) Error() string { return fmt.Sprintf("embedding %s: %v", e.Op, e.Err) }
func (e *EmbeddingError) Unwrap() error { return e.Err }

// RetrievalError reports a failed vector-store call or a missing index.
type RetrievalError struct {
	Op  string
	Err error
}

func (e *RetrievalError) Error() string { return fmt.Sprintf("retrieval %s: %v", e.Op, e.Err) }
func (e *RetrievalError) Unwrap() error { return e.Err }

// ModelInvocationError reports a failed chat-completion call.
type ModelInvocationError struct {
	Op  string
	Err error
}

func (e *ModelInvocationError) Error() string { return fmt.Sprintf("model %s: %v", e.Op, e.Err) }
func (e *ModelInvocationError) Unwrap() error { return e.Err }

// TranscriptionError reports a failed audio-to-text call.
type TranscriptionError struct {
	Err error
}

func (e *TranscriptionError) Error() string { return fmt.Sprintf("transcription: %v", e.Err) }
func (e *TranscriptionError) Unwrap() error { return e.Err }

// ConfigurationError reports a missing or invalid setting found at startup.
type ConfigurationError struct {
	Key    string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration %s: %s", e.Key, e.Reason)
}
