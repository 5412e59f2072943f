package server

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/FAL1989/consultorio-jung/internal/analyst"
	"github.com/FAL1989/consultorio-jung/internal/domain"
	"github.com/FAL1989/consultorio-jung/internal/knowledge"
)

type chatRequest struct {
	Message        string `json:"message"`
	ConversationID string `json:"conversation_id"`
	LegacyID       string `json:"conversationId"`
}

func (c chatRequest) id() string {
	if c.ConversationID != "" {
		return c.ConversationID
	}
	return c.LegacyID
}

type chatResponse struct {
	ConversationID string              `json:"conversation_id"`
	Response       *analyst.ChatResult `json:"response"`
	Usage          domain.Usage        `json:"usage"`
}

type queryRequest struct {
	Query      string `json:"query"`
	MaxResults int    `json:"max_results"`
}

type explainRequest struct {
	ConceptName    string `json:"concept_name"`
	UserInput      string `json:"user_input"`
	ConversationID string `json:"conversation_id"`
}

type archetypeRequest struct {
	ArchetypeName  string `json:"archetype_name"`
	UserInput      string `json:"user_input"`
	ConversationID string `json:"conversation_id"`
}

type guidanceRequest struct {
	Situation        string   `json:"situation"`
	UserInput        string   `json:"user_input"`
	RelevantConcepts []string `json:"relevant_concepts"`
	ConversationID   string   `json:"conversation_id"`
}

type textResponse struct {
	Text           string `json:"text"`
	ConversationID string `json:"conversation_id"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decode(w, r, &req); err != nil || strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}
	id, a := s.conversation(req.id())
	res, err := a.Chat(r.Context(), req.Message)
	if err != nil {
		s.fail(w, r, "chat", err)
		return
	}
	writeJSON(w, http.StatusOK, chatResponse{ConversationID: id, Response: res, Usage: res.Usage})
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	req := queryRequest{MaxResults: 3}
	if err := decode(w, r, &req); err != nil || strings.TrimSpace(req.Query) == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}
	results, err := s.store.Query(r.Context(), req.Query, req.MaxResults)
	if err != nil {
		s.fail(w, r, "query", err)
		return
	}
	if results == nil {
		results = []knowledge.QueryResult{}
	}
	writeJSON(w, http.StatusOK, results)
}

func (s *Server) handleExplain(w http.ResponseWriter, r *http.Request) {
	var req explainRequest
	if err := decode(w, r, &req); err != nil || strings.TrimSpace(req.ConceptName) == "" {
		writeError(w, http.StatusBadRequest, "concept_name is required")
		return
	}
	id, a := s.conversation(req.ConversationID)
	text, err := a.ExplainConcept(r.Context(), req.ConceptName, req.UserInput)
	if err != nil {
		s.fail(w, r, "explain concept", err)
		return
	}
	writeJSON(w, http.StatusOK, textResponse{Text: text, ConversationID: id})
}

func (s *Server) handleArchetype(w http.ResponseWriter, r *http.Request) {
	var req archetypeRequest
	if err := decode(w, r, &req); err != nil || strings.TrimSpace(req.ArchetypeName) == "" {
		writeError(w, http.StatusBadRequest, "archetype_name is required")
		return
	}
	id, a := s.conversation(req.ConversationID)
	text, err := a.AnalyzeArchetype(r.Context(), req.ArchetypeName, req.UserInput)
	if err != nil {
		s.fail(w, r, "analyze archetype", err)
		return
	}
	writeJSON(w, http.StatusOK, textResponse{Text: text, ConversationID: id})
}

func (s *Server) handleGuidance(w http.ResponseWriter, r *http.Request) {
	var req guidanceRequest
	if err := decode(w, r, &req); err != nil || strings.TrimSpace(req.Situation) == "" {
		writeError(w, http.StatusBadRequest, "situation is required")
		return
	}
	id, a := s.conversation(req.ConversationID)
	text, err := a.TherapeuticGuidance(r.Context(), req.Situation, req.UserInput, req.RelevantConcepts)
	if err != nil {
		s.fail(w, r, "guidance", err)
		return
	}
	writeJSON(w, http.StatusOK, textResponse{Text: text, ConversationID: id})
}

func (s *Server) handleTranscribe(w http.ResponseWriter, r *http.Request) {
	if s.transcriber == nil {
		writeError(w, http.StatusServiceUnavailable, "transcription is not configured")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxAudioBytes)
	if err := r.ParseMultipartForm(maxAudioBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	file, header, err := r.FormFile("audio")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Nenhum arquivo de áudio foi enviado.")
		return
	}
	defer file.Close()

	text, err := s.transcriber.Transcribe(r.Context(), header.Filename, file)
	if err != nil {
		s.fail(w, r, "transcribe", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"transcript": text})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	err := errors.New("vector store not configured")
	if s.health != nil {
		err = s.health.TestConnection(r.Context())
	}
	if err != nil {
		s.logger.ErrorContext(r.Context(), "health check failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status":       "unhealthy",
			"vector_store": "disconnected",
			"error":        fmt.Sprintf("Serviço indisponível: %v", err),
			"timestamp":    s.now().Format("2006-01-02 15:04:05.000000"),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":       "healthy",
		"vector_store": "connected",
		"timestamp":    s.now().Format("2006-01-02 15:04:05.000000"),
	})
}

func (s *Server) handleStartupCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "online",
		"timestamp": s.now().Format("2006-01-02 15:04:05.000000"),
	})
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "online", "service": "Consultório Jung"})
}
