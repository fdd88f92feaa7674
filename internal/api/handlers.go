package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/applypilot/jobextract/internal/app"
)

// maxRequestBytes bounds the request body. Caller-supplied page HTML is the
// big consumer; the limit tracks the fetcher's own body cap plus JSON
// escaping overhead.
const maxRequestBytes = 12 << 20

func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBytes)

	var req app.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, r, http.StatusRequestEntityTooLarge, "body_too_large", "request body exceeds the size limit")
			return
		}
		writeError(w, r, http.StatusBadRequest, "bad_request", "request body must be a JSON object")
		return
	}
	if strings.TrimSpace(req.URL) == "" {
		writeError(w, r, http.StatusBadRequest, "missing_url", "url is required")
		return
	}

	resp := s.Extractor.ExtractJob(r.Context(), req)
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	version := s.Version
	if version == "" {
		version = app.BuildVersion
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": version,
	})
}

// apiError is the envelope for request-level failures. Extraction failures
// never use it: those ride in the extraction response itself.
type apiError struct {
	Error struct {
		Code      string `json:"code"`
		Message   string `json:"message"`
		RequestID string `json:"request_id,omitempty"`
	} `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	var e apiError
	e.Error.Code = code
	e.Error.Message = message
	e.Error.RequestID = requestIDFrom(r.Context())
	writeJSON(w, status, e)
}
