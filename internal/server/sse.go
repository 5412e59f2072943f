package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/FAL1989/consultorio-jung/internal/domain"
	"github.com/FAL1989/consultorio-jung/internal/logging"
)

// writeEvent renders one stream event in SSE framing. Text deltas use the
// default event type; metadata and errors are named.
func writeEvent(w io.Writer, ev domain.StreamEvent) error {
	var (
		name    string
		payload any
	)
	switch ev.Kind {
	case domain.EventTextDelta:
		payload = map[string]string{"text": ev.Text}
	case domain.EventMetadata:
		name = "metadata"
		payload = ev.Metadata
	case domain.EventError:
		name = "error"
		payload = map[string]string{"error": ev.Err}
	default:
		return fmt.Errorf("unknown event kind %d", ev.Kind)
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	var b strings.Builder
	if name != "" {
		b.WriteString("event: " + name + "\n")
	}
	b.WriteString("data: ")
	b.Write(data)
	b.WriteString("\n\n")
	_, err = io.WriteString(w, b.String())
	return err
}

func (s *Server) handleChatStream(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decode(w, r, &req); err != nil || strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}
	id, a := s.conversation(req.id())

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Conversation-ID", id)
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	// The request context is canceled when the client disconnects, which
	// abandons the model stream.
	for ev := range a.GenerateResponseStream(r.Context(), req.Message) {
		if err := writeEvent(w, ev); err != nil {
			s.logger.WarnContext(r.Context(), "stream write failed",
				"request_id", logging.RequestID(r.Context()), "error", err)
			continue
		}
		flusher.Flush()
	}
}
