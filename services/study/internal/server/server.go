package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"mentorhub/internal/util"
	"mentorhub/pkg/ai"
	"mentorhub/pkg/domain"
	"mentorhub/services/study/internal/app"
)

// Config wires required dependencies for the HTTP server.
type Config struct {
	App *app.App
}

// Server exposes the study-material generation endpoint.
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
	return util.WithRequestID(util.WithRequestLog("study", util.WithSecurityHeaders(util.WithCORS(s.mux))))
}

func (s *Server) routes() {
	s.mux.HandleFunc("/healthz", s.handleHealth)
	s.mux.HandleFunc("/", s.handleGenerate)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req struct {
		BookID       string `json:"bookId"`
		MaterialType string `json:"materialType"`
		ChapterName  string `json:"chapterName"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if strings.TrimSpace(req.BookID) == "" || strings.TrimSpace(req.MaterialType) == "" {
		writeError(w, http.StatusBadRequest, "bookId and materialType are required")
		return
	}
	matType, ok := domain.ParseMaterialType(req.MaterialType)
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid material type")
		return
	}
	material, err := s.app.Generate(r.Context(), strings.TrimSpace(req.BookID), matType, req.ChapterName)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrContentNotFound):
			writeError(w, http.StatusNotFound, "Book or content not found")
		case errors.Is(err, ai.ErrRateLimited):
			writeError(w, http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.")
		case errors.Is(err, ai.ErrQuotaExhausted):
			writeError(w, http.StatusPaymentRequired, "Payment required. Please add credits to your workspace.")
		case errors.Is(err, app.ErrBadGeneration):
			writeError(w, http.StatusInternalServerError, "failed to interpret generated content")
		default:
			writeError(w, http.StatusInternalServerError, "failed to generate study material")
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]domain.StudyMaterial{"material": material})
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
		Code:      errorCodeForStudy(status),
		RequestID: strings.TrimSpace(w.Header().Get("X-Request-Id")),
	})
}

func errorCodeForStudy(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "STUDY_INVALID_REQUEST"
	case http.StatusNotFound:
		return "STUDY_NOT_FOUND"
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
