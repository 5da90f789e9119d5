package webui

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"thumbnail_studio/db"
	"thumbnail_studio/shutdown"
	"thumbnail_studio/studio"
)

// maxBodyBytes bounds request bodies; reference images arrive inline.
const maxBodyBytes = 24 << 20

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
	Field string `json:"field,omitempty"`
}

// statusFor maps domain errors onto HTTP status codes and stable codes.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, studio.ErrValidation):
		return http.StatusBadRequest, "VALIDATION"
	case errors.Is(err, studio.ErrBusy):
		return http.StatusConflict, "BUSY"
	case errors.Is(err, studio.ErrExhaustedRetries):
		return http.StatusBadGateway, "GENERATION_FAILED"
	case errors.Is(err, db.ErrNotFound), errors.Is(err, studio.ErrRunNotFound):
		return http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, shutdown.ErrTrackerClosed):
		return http.StatusServiceUnavailable, "SHUTTING_DOWN"
	default:
		return http.StatusInternalServerError, "INTERNAL"
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Debug("failed to write response", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusFor(err)
	body := errorBody{Error: err.Error(), Code: code}
	var verr *studio.ValidationError
	if errors.As(err, &verr) {
		body.Field = verr.Field
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err))
	}
	s.writeJSON(w, status, body)
}

// decodeJSON reads a single JSON document into dst. Malformed bodies are
// reported as validation errors.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return &studio.ValidationError{Field: "body", Reason: "is required"}
		}
		return &studio.ValidationError{Field: "body", Reason: fmt.Sprintf("invalid JSON: %v", err)}
	}
	return nil
}
