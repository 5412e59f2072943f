// Package llm talks to the hosted chat, streaming and transcription models.
package llm

import (
	"context"
	"io"

	"github.com/FAL1989/consultorio-jung/internal/domain"
)

// TaskType identifies why the model is being called. It only labels
// observer events.
type TaskType string

const (
	TaskChat      TaskType = "chat"
	TaskStream    TaskType = "stream"
	TaskConcept   TaskType = "concept"
	TaskArchetype TaskType = "archetype"
	TaskGuidance  TaskType = "guidance"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one chat message sent to the model.
type Message struct {
	Role    string
	Content string
}

// Request holds the messages of one model call.
type Request struct {
	Task     TaskType
	Messages []Message
}

// Response is the full text of a completed call.
type Response struct {
	Text      string
	Model     string
	Usage     domain.Usage
	LatencyMs int64
}

// ChatModel produces replies either in one piece or incrementally.
type ChatModel interface {
	Complete(ctx context.Context, req Request) (*Response, error)
	// Stream calls onDelta for every non-empty fragment, in order, and
	// returns the accumulated reply. An error from onDelta aborts the stream.
	Stream(ctx context.Context, req Request, onDelta func(string) error) (*Response, error)
}

// Transcriber converts recorded audio to text.
type Transcriber interface {
	Transcribe(ctx context.Context, filename string, audio io.Reader) (string, error)
}
