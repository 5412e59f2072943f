package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FAL1989/consultorio-jung/internal/domain"
)

type recordingObserver struct{ events []CallEvent }

func (r *recordingObserver) OnCallComplete(e CallEvent) { r.events = append(r.events, e) }

func testClient(t *testing.T, url string, obs Observer) *OpenAIClient {
	t.Helper()
	cfg := DefaultConfig()
	cfg.APIKey = "test-key"
	cfg.BaseURL = url
	cfg.Timeout = 2 * time.Second
	c, err := NewOpenAIClient(cfg, obs)
	require.NoError(t, err)
	return c
}

func chatRequest() Request {
	return Request{Task: TaskChat, Messages: []Message{
		{Role: RoleSystem, Content: "Você é Carl Gustav Jung"},
		{Role: RoleUser, Content: "O que é a sombra?"},
	}}
}

func TestComplete_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		var body struct {
			Model       string  `json:"model"`
			Temperature float32 `json:"temperature"`
			Messages    []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "gpt-4", body.Model)
		assert.InDelta(t, 0.9, body.Temperature, 1e-6)
		require.Len(t, body.Messages, 2)
		assert.Equal(t, "system", body.Messages[0].Role)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"c1","object":"chat.completion","model":"gpt-4",
			"choices":[{"index":0,"message":{"role":"assistant","content":"A sombra é o outro lado."},"finish_reason":"stop"}],
			"usage":{"prompt_tokens":10,"completion_tokens":6,"total_tokens":16}}`))
	}))
	defer srv.Close()

	obs := &recordingObserver{}
	resp, err := testClient(t, srv.URL, obs).Complete(context.Background(), chatRequest())
	require.NoError(t, err)
	assert.Equal(t, "A sombra é o outro lado.", resp.Text)
	assert.Equal(t, 16, resp.Usage.TotalTokens)
	require.Len(t, obs.events, 1)
	assert.True(t, obs.events[0].Success)
}

func TestComplete_EmptyCompletion(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"c1","object":"chat.completion","model":"gpt-4","choices":[]}`))
	}))
	defer srv.Close()

	obs := &recordingObserver{}
	_, err := testClient(t, srv.URL, obs).Complete(context.Background(), chatRequest())
	var me *domain.ModelInvocationError
	require.ErrorAs(t, err, &me)
	assert.ErrorIs(t, err, domain.ErrEmptyCompletion)
	require.Len(t, obs.events, 1)
	assert.Equal(t, "empty", obs.events[0].ErrorCode)
}

func TestComplete_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"message":"boom","type":"server_error"}}`))
	}))
	defer srv.Close()

	obs := &recordingObserver{}
	_, err := testClient(t, srv.URL, obs).Complete(context.Background(), chatRequest())
	var me *domain.ModelInvocationError
	require.ErrorAs(t, err, &me)
	assert.Equal(t, "complete", me.Op)
	assert.Equal(t, "http_500", obs.events[0].ErrorCode)
}

func streamServer(t *testing.T, deltas []string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		for _, d := range deltas {
			chunk := map[string]any{
				"id": "s1", "object": "chat.completion.chunk", "model": "gpt-4",
				"choices": []map[string]any{{"index": 0, "delta": map[string]string{"content": d}}},
			}
			data, _ := json.Marshal(chunk)
			fmt.Fprintf(w, "data: %s\n\n", data)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
}

func TestStream_ForwardsNonEmptyDeltasInOrder(t *testing.T) {
	srv := streamServer(t, []string{"A ", "", "sombra", " integra."})
	defer srv.Close()

	var got []string
	resp, err := testClient(t, srv.URL, nil).Stream(context.Background(), chatRequest(), func(d string) error {
		got = append(got, d)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"A ", "sombra", " integra."}, got)
	assert.Equal(t, "A sombra integra.", resp.Text)
}

func TestStream_EmptyIsError(t *testing.T) {
	srv := streamServer(t, nil)
	defer srv.Close()

	_, err := testClient(t, srv.URL, nil).Stream(context.Background(), chatRequest(), func(string) error { return nil })
	assert.ErrorIs(t, err, domain.ErrEmptyCompletion)
}

func TestStream_CallbackAborts(t *testing.T) {
	srv := streamServer(t, []string{"um", "dois", "três"})
	defer srv.Close()

	stop := errors.New("client gone")
	calls := 0
	_, err := testClient(t, srv.URL, nil).Stream(context.Background(), chatRequest(), func(string) error {
		calls++
		return stop
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 1, calls)
}

func TestStream_DepartedConsumerObservedAsCanceled(t *testing.T) {
	srv := streamServer(t, []string{"um", "dois"})
	defer srv.Close()

	obs := &recordingObserver{}
	_, err := testClient(t, srv.URL, obs).Stream(context.Background(), chatRequest(), func(string) error {
		return domain.ErrConsumerGone
	})
	assert.ErrorIs(t, err, domain.ErrConsumerGone)
	require.Len(t, obs.events, 1)
	assert.False(t, obs.events[0].Success)
	assert.Equal(t, "canceled", obs.events[0].ErrorCode)
}

func TestTranscribe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/audio/transcriptions", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "whisper-1", r.FormValue("model"))
		assert.Equal(t, "pt", r.FormValue("language"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"text":"  sonhei com uma caverna  "}`))
	}))
	defer srv.Close()

	text, err := testClient(t, srv.URL, nil).Transcribe(context.Background(), "nota.webm", strings.NewReader("RIFF"))
	require.NoError(t, err)
	assert.Equal(t, "sonhei com uma caverna", text)
}

func TestNewOpenAIClient_RequiresKey(t *testing.T) {
	_, err := NewOpenAIClient(Config{}, nil)
	var ce *domain.ConfigurationError
	assert.ErrorAs(t, err, &ce)
}

func TestLogObserver(t *testing.T) {
	var buf bytes.Buffer
	obs := NewLogObserver(slog.New(slog.NewTextHandler(&buf, nil)))
	obs.OnCallComplete(CallEvent{Task: TaskStream, Model: "gpt-4", LatencyMs: 12, Success: false, ErrorCode: "timeout"})
	out := buf.String()
	assert.Contains(t, out, "llm_call")
	assert.Contains(t, out, "task=stream")
	assert.Contains(t, out, "status=err:timeout")
	assert.Contains(t, out, "level=WARN")
}
