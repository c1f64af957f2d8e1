package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"mentorhub/internal/util"
	"mentorhub/services/library/internal/app"
)

// SubjectVerifier validates a bearer token and returns the user ID it was
// issued to. Satisfied by usertoken.Verifier.
type SubjectVerifier interface {
	VerifySubject(token string) (string, error)
}

// Config wires required dependencies for the HTTP server.
type Config struct {
	App            *app.App
	TokenVerifier  SubjectVerifier
	MaxUploadBytes int64
}

// Server exposes HTTP endpoints for the library service.
type Server struct {
	app            *app.App
	tokenVerifier  SubjectVerifier
	mux            *http.ServeMux
	maxUploadBytes int64
}

// New constructs the server with routes configured.
func New(cfg Config) *Server {
	maxUploadBytes := cfg.MaxUploadBytes
	if maxUploadBytes <= 0 {
		maxUploadBytes = 50 * 1024 * 1024
	}
	s := &Server{
		app:            cfg.App,
		tokenVerifier:  cfg.TokenVerifier,
		mux:            http.NewServeMux(),
		maxUploadBytes: maxUploadBytes,
	}
	s.routes()
	return s
}

// Router returns the configured handler.
func (s *Server) Router() http.Handler {
	return util.WithRequestID(util.WithRequestLog("library", util.WithSecurityHeaders(util.WithCORS(s.mux))))
}

func (s *Server) routes() {
	s.mux.HandleFunc("/healthz", s.handleHealth)
	s.mux.HandleFunc("/books", s.handleBooks)
	s.mux.HandleFunc("/books/", s.handleBookSubtree)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleBooks(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleListBooks(w)
	case http.MethodPost:
		userID, ok := s.requireUser(w, r)
		if !ok {
			return
		}
		s.handleUploadBook(w, r, userID)
	default:
		methodNotAllowed(w)
	}
}

// /books/{id}[/download|/process|/highlights[/{hid}]|/progress]
func (s *Server) handleBookSubtree(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/books/")
	parts := strings.SplitN(path, "/", 3)
	id := parts[0]
	if id == "" {
		notFound(w, "not found")
		return
	}
	if len(parts) == 1 {
		s.handleBookByID(w, r, id)
		return
	}
	switch parts[1] {
	case "download":
		s.handleDownload(w, r, id)
	case "process":
		s.handleProcess(w, r, id)
	case "highlights":
		highlightID := ""
		if len(parts) == 3 {
			highlightID = parts[2]
		}
		s.handleHighlights(w, r, id, highlightID)
	case "progress":
		s.handleProgress(w, r, id)
	default:
		notFound(w, "not found")
	}
}

func (s *Server) handleBookByID(w http.ResponseWriter, r *http.Request, id string) {
	switch r.Method {
	case http.MethodGet:
		book, ok, err := s.app.GetBook(id)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if !ok {
			notFound(w, "book not found")
			return
		}
		writeJSON(w, http.StatusOK, book)
	case http.MethodDelete:
		if _, ok := s.requireUser(w, r); !ok {
			return
		}
		if err := s.app.DeleteBook(r.Context(), id); err != nil {
			if errors.Is(err, app.ErrBookNotFound) {
				notFound(w, "book not found")
				return
			}
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleListBooks(w http.ResponseWriter) {
	books, err := s.app.ListBooks()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items": books,
		"count": len(books),
	})
}

func (s *Server) handleUploadBook(w http.ResponseWriter, r *http.Request, _ string) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	if err := r.ParseMultipartForm(s.maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid form data")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()
	book, err := s.app.UploadBook(
		r.Context(),
		r.FormValue("title"),
		r.FormValue("author"),
		r.FormValue("description"),
		header.Filename,
		file,
	)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrUnsupportedFileType):
			writeError(w, http.StatusBadRequest, "unsupported file type")
		case errors.Is(err, app.ErrEmptyText):
			writeError(w, http.StatusBadRequest, "file has no text")
		default:
			// The book may exist unprocessed; surface the failure.
			writeError(w, http.StatusInternalServerError, "processing failed")
		}
		return
	}
	writeJSON(w, http.StatusCreated, book)
}

func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if _, ok := s.requireUser(w, r); !ok {
		return
	}
	var req struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if err := s.app.ProcessText(r.Context(), id, req.Text); err != nil {
		switch {
		case errors.Is(err, app.ErrBookNotFound):
			notFound(w, "book not found")
		case errors.Is(err, app.ErrEmptyText):
			writeError(w, http.StatusBadRequest, "text is required")
		default:
			writeError(w, http.StatusInternalServerError, "processing failed")
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "processed"})
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	if _, ok := s.requireUser(w, r); !ok {
		return
	}
	url, err := s.app.GetDownloadURL(r.Context(), id)
	if err != nil {
		if errors.Is(err, app.ErrBookNotFound) {
			notFound(w, "book not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to generate download url")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"url": url})
}

func (s *Server) handleHighlights(w http.ResponseWriter, r *http.Request, bookID, highlightID string) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	if highlightID != "" {
		if r.Method != http.MethodDelete {
			methodNotAllowed(w)
			return
		}
		if err := s.app.DeleteHighlight(highlightID, userID); err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
		return
	}
	switch r.Method {
	case http.MethodGet:
		items, err := s.app.ListHighlights(bookID, userID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": items, "count": len(items)})
	case http.MethodPost:
		var req struct {
			Content     string `json:"content"`
			Note        string `json:"note"`
			ChapterName string `json:"chapterName"`
			PageNumber  int    `json:"pageNumber"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid json body")
			return
		}
		h, err := s.app.CreateHighlight(bookID, userID, app.HighlightInput{
			Content:     req.Content,
			Note:        req.Note,
			ChapterName: req.ChapterName,
			PageNumber:  req.PageNumber,
		})
		if err != nil {
			if errors.Is(err, app.ErrBookNotFound) {
				notFound(w, "book not found")
				return
			}
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeJSON(w, http.StatusCreated, h)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request, bookID string) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodGet:
		p, found, err := s.app.GetProgress(bookID, userID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if !found {
			notFound(w, "no reading progress")
			return
		}
		writeJSON(w, http.StatusOK, p)
	case http.MethodPut:
		var req struct {
			CurrentPage int `json:"currentPage"`
			TotalPages  int `json:"totalPages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid json body")
			return
		}
		p, err := s.app.SaveProgress(bookID, userID, app.ProgressInput{
			CurrentPage: req.CurrentPage,
			TotalPages:  req.TotalPages,
		})
		if err != nil {
			if errors.Is(err, app.ErrBookNotFound) {
				notFound(w, "book not found")
				return
			}
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, p)
	default:
		methodNotAllowed(w)
	}
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

func notFound(w http.ResponseWriter, msg string) {
	writeError(w, http.StatusNotFound, msg)
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
		Code:      errorCodeForLibrary(status, msg),
		RequestID: strings.TrimSpace(w.Header().Get("X-Request-Id")),
	})
}

func errorCodeForLibrary(status int, msg string) string {
	message := strings.ToLower(strings.TrimSpace(msg))
	switch {
	case message == "unauthorized":
		return "AUTH_INVALID_TOKEN"
	case message == "book not found":
		return "LIBRARY_BOOK_NOT_FOUND"
	case message == "file is required":
		return "LIBRARY_FILE_REQUIRED"
	case message == "unsupported file type":
		return "LIBRARY_UNSUPPORTED_FILE_TYPE"
	case message == "file has no text", message == "text is required":
		return "LIBRARY_EMPTY_TEXT"
	case message == "invalid form data":
		return "LIBRARY_INVALID_UPLOAD_FORM"
	case message == "invalid json body":
		return "LIBRARY_INVALID_REQUEST"
	case message == "processing failed":
		return "LIBRARY_PROCESSING_FAILED"
	case message == "method not allowed":
		return "SYSTEM_METHOD_NOT_ALLOWED"
	case message == "not found", message == "no reading progress":
		return "SYSTEM_NOT_FOUND"
	}
	switch status {
	case http.StatusBadRequest:
		return "LIBRARY_INVALID_REQUEST"
	case http.StatusUnauthorized:
		return "AUTH_INVALID_TOKEN"
	case http.StatusNotFound:
		return "SYSTEM_NOT_FOUND"
	case http.StatusMethodNotAllowed:
		return "SYSTEM_METHOD_NOT_ALLOWED"
	default:
		if status >= http.StatusInternalServerError {
			return "SYSTEM_INTERNAL_ERROR"
		}
		return "REQUEST_ERROR"
	}
}
