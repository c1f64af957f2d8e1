package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"mentorhub/internal/util"
	"mentorhub/pkg/ai"
	"mentorhub/services/bookrag/internal/app"
)

// Config wires required dependencies for the HTTP server.
type Config struct {
	App *app.App
}

// Server exposes the retrieval-answer endpoint.
type Server struct {
	app *app.App
	mux *http.ServeMux
}

// New constructs the server with routes configured.
func New(cfg Config) *Server {
	s := &Server{app: cfg.App, mux: http.NewServeMux()}
	s.routes()
	return s
}

// Router returns the configured handler.
func (s *Server) Router() http.Handler {
	return util.WithRequestID(util.WithRequestLog("bookrag", util.WithSecurityHeaders(util.WithCORS(s.mux))))
}

func (s *Server) routes() {
	s.mux.HandleFunc("/healthz", s.handleHealth)
	s.mux.HandleFunc("/", s.handleAsk)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		notFound(w)
		return
	}
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req struct {
		Query  string `json:"query"`
		BookID string `json:"bookId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	answer, err := s.app.Ask(r.Context(), req.Query, req.BookID)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrEmptyQuery):
			writeError(w, http.StatusBadRequest, "query is required")
		case errors.Is(err, ai.ErrRateLimited):
			writeError(w, http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.")
		case errors.Is(err, ai.ErrQuotaExhausted):
			writeError(w, http.StatusPaymentRequired, "AI credits exhausted. Please add credits to continue.")
		default:
			writeError(w, http.StatusInternalServerError, "failed to generate answer")
		}
		return
	}
	writeJSON(w, http.StatusOK, answer)
}

func methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

func notFound(w http.ResponseWriter) {
	writeError(w, http.StatusNotFound, "not found")
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
		Code:      errorCodeForRAG(status),
		RequestID: strings.TrimSpace(w.Header().Get("X-Request-Id")),
	})
}

func errorCodeForRAG(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "RAG_INVALID_REQUEST"
	case http.StatusTooManyRequests:
		return "AI_RATE_LIMITED"
	case http.StatusPaymentRequired:
		return "AI_QUOTA_EXHAUSTED"
	case http.StatusNotFound:
		return "SYSTEM_NOT_FOUND"
	case http.StatusMethodNotAllowed:
		return "SYSTEM_METHOD_NOT_ALLOWED"
	default:
		return "SYSTEM_INTERNAL_ERROR"
	}
}
