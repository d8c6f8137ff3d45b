package httpbridge

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/soypete/calchat/pkg/conversation"
)

const maxRequestBytes = 1 << 20

// ChatRequest is the body of POST /chat
type ChatRequest struct {
	Message             string               `json:"message"`
	ConversationHistory conversation.History `json:"conversation_history"`
	UserEmail           string               `json:"user_email,omitempty"`
}

// ChatResponse is returned by POST /chat
type ChatResponse struct {
	Response            string               `json:"response"`
	ConversationHistory conversation.History `json:"conversation_history"`
}

// ErrorResponse carries a failure message
type ErrorResponse struct {
	Detail string `json:"detail"`
}

// HealthResponse is returned by GET /health
type HealthResponse struct {
	Status string `json:"status"`
}

// InfoResponse is returned by GET /
type InfoResponse struct {
	Message   string            `json:"message"`
	Version   string            `json:"version"`
	Endpoints map[string]string `json:"endpoints"`
}

// MessageResponse is returned by POST /reset
type MessageResponse struct {
	Message string `json:"message"`
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		respondJSON(w, http.StatusNotFound, ErrorResponse{Detail: "Not Found"})
		return
	}
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	respondJSON(w, http.StatusOK, InfoResponse{
		Message: "Cal.com Chatbot API",
		Version: s.version,
		Endpoints: map[string]string{
			"chat":   "/chat",
			"health": "/health",
		},
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	respondJSON(w, http.StatusOK, HealthResponse{Status: "healthy"})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	respondJSON(w, http.StatusOK, MessageResponse{
		Message: "To reset conversation, simply stop sending conversation_history in your requests",
	})
}

// handleChat runs one chat call. The server keeps no history; the client
// sends it with every request.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	var req ChatRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	if err := dec.Decode(&req); err != nil {
		respondJSON(w, http.StatusBadRequest, ErrorResponse{Detail: fmt.Sprintf("Invalid request: %v", err)})
		return
	}

	resp, status, errResp := s.runChat(r.Context(), req)
	if errResp != nil {
		respondJSON(w, status, errResp)
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) runChat(ctx context.Context, req ChatRequest) (*ChatResponse, int, *ErrorResponse) {
	if strings.TrimSpace(req.Message) == "" {
		return nil, http.StatusBadRequest, &ErrorResponse{Detail: "Invalid request: message is required"}
	}

	text, history, err := s.chat.Chat(ctx, req.Message, req.ConversationHistory, req.UserEmail)
	if err != nil {
		log.Error().Err(err).Msg("Chat request failed")
		return nil, http.StatusInternalServerError, &ErrorResponse{Detail: fmt.Sprintf("Error processing chat: %v", err)}
	}
	if history == nil {
		history = conversation.History{}
	}
	return &ChatResponse{Response: text, ConversationHistory: history}, http.StatusOK, nil
}

func methodNotAllowed(w http.ResponseWriter) {
	respondJSON(w, http.StatusMethodNotAllowed, ErrorResponse{Detail: "Method Not Allowed"})
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Warn().Err(err).Msg("Failed to write response")
	}
}
