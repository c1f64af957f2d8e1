package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"mentorhub/internal/util"
	"mentorhub/pkg/ai"
	"mentorhub/services/mentor/internal/app"
)

// SubjectVerifier validates a bearer token and returns its subject.
type SubjectVerifier interface {
	VerifySubject(token string) (string, error)
}

// Config wires required dependencies for the HTTP server.
type Config struct {
	App           *app.App
	TokenVerifier SubjectVerifier
}

// Server exposes the streaming chat, conversation, and research endpoints.
type Server struct {
	app           *app.App
	tokenVerifier SubjectVerifier
	mux           *http.ServeMux
}

// New constructs the server with routes configured.
func New(cfg Config) *Server {
	s := &Server{app: cfg.App, tokenVerifier: cfg.TokenVerifier, mux: http.NewServeMux()}
	s.routes()
	return s
}

// Router returns the configured handler.
func (s *Server) Router() http.Handler {
	return util.WithRequestID(util.WithRequestLog("mentor", util.WithSecurityHeaders(util.WithCORS(s.mux))))
}

func (s *Server) routes() {
	s.mux.HandleFunc("/healthz", s.handleHealth)
	s.mux.HandleFunc("/chat", s.handleChat)
	s.mux.HandleFunc("/conversations", s.handleConversations)
	s.mux.HandleFunc("/conversations/", s.handleConversationSubtree)
	s.mux.HandleFunc("/research", s.handleResearch)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// streamEvent is one SSE data payload. The stream ends with a literal
// "[DONE]" data line instead of an event object.
type streamEvent struct {
	Content string `json:"content"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	userID, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	var req struct {
		ConversationID string           `json:"conversationId"`
		Messages       []ai.ChatMessage `json:"messages"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	started := false
	onDelta := func(delta string) error {
		if delta == "" {
			return nil
		}
		if !started {
			w.Header().Set("Content-Type", "text/event-stream")
			w.Header().Set("Cache-Control", "no-cache")
			w.Header().Set("Connection", "keep-alive")
			w.WriteHeader(http.StatusOK)
			started = true
		}
		payload, err := json.Marshal(streamEvent{Content: delta})
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	}

	_, err := s.app.Chat(r.Context(), userID, strings.TrimSpace(req.ConversationID), req.Messages, onDelta)
	if err != nil {
		if started {
			// Headers are gone; all we can do is log and cut the stream.
			slog.Error("chat stream aborted", "err", err)
			return
		}
		switch {
		case errors.Is(err, app.ErrEmptyMessages):
			writeError(w, http.StatusBadRequest, "messages are required")
		case errors.Is(err, app.ErrConversationNotFound):
			writeError(w, http.StatusNotFound, "conversation not found")
		case errors.Is(err, ai.ErrRateLimited):
			writeError(w, http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.")
		case errors.Is(err, ai.ErrQuotaExhausted):
			writeError(w, http.StatusPaymentRequired, "AI credits exhausted. Please add credits to continue.")
		default:
			writeError(w, http.StatusInternalServerError, "AI service error")
		}
		return
	}
	if !started {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
	}
	fmt.Fprint(w, "data: [DONE]\n\n")
	flusher.Flush()
}

func (s *Server) handleConversations(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	userID, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	conversations, err := s.app.ListConversations(userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"conversations": conversations})
}

// /conversations/{id}[/messages]
func (s *Server) handleConversationSubtree(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	path := strings.TrimPrefix(r.URL.Path, "/conversations/")
	parts := strings.SplitN(path, "/", 2)
	id := parts[0]
	if id == "" {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	switch {
	case len(parts) == 2 && parts[1] == "messages" && r.Method == http.MethodGet:
		messages, err := s.app.ListMessages(userID, id)
		if err != nil {
			s.conversationError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"messages": messages})
	case len(parts) == 1 && r.Method == http.MethodDelete:
		if err := s.app.DeleteConversation(userID, id); err != nil {
			s.conversationError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	case len(parts) == 1 || parts[1] == "messages":
		methodNotAllowed(w)
	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}

func (s *Server) conversationError(w http.ResponseWriter, err error) {
	if errors.Is(err, app.ErrConversationNotFound) {
		writeError(w, http.StatusNotFound, "conversation not found")
		return
	}
	writeError(w, http.StatusInternalServerError, "internal error")
}

func (s *Server) handleResearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if _, ok := s.requireUser(w, r); !ok {
		return
	}
	var req struct {
		Query  string `json:"query"`
		Format string `json:"format"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	body, err := s.app.Research(r.Context(), req.Query, req.Format)
	if err != nil {
		if errors.Is(err, app.ErrEmptyQuery) {
			writeError(w, http.StatusBadRequest, "Query is required")
			return
		}
		slog.Error("research failed", "err", err)
		writeError(w, http.StatusInternalServerError, "research failed")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func (s *Server) requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	if s.tokenVerifier == nil {
		writeError(w, http.StatusInternalServerError, "token verifier not configured")
		return "", false
	}
	token, ok := bearerToken(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return "", false
	}
	subject, err := s.tokenVerifier.VerifySubject(token)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return "", false
	}
	return subject, true
}

func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	if token == "" {
		return "", false
	}
	return token, true
}

func methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

type errorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	RequestID string `json:"requestId,omitempty"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{
		Error:     msg,
		Code:      errorCodeForMentor(status),
		RequestID: strings.TrimSpace(w.Header().Get("X-Request-Id")),
	})
}

func errorCodeForMentor(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "MENTOR_INVALID_REQUEST"
	case http.StatusUnauthorized:
		return "AUTH_INVALID_TOKEN"
	case http.StatusNotFound:
		return "MENTOR_NOT_FOUND"
	case http.StatusTooManyRequests:
		return "AI_RATE_LIMITED"
	case http.StatusPaymentRequired:
		return "AI_QUOTA_EXHAUSTED"
	case http.StatusMethodNotAllowed:
		return "SYSTEM_METHOD_NOT_ALLOWED"
	default:
		return "SYSTEM_INTERNAL_ERROR"
	}
}
