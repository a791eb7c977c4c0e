package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/dyluth/gather/pkg/store"
	"go.uber.org/zap"
)

// DegradedHeader marks a read response that fell back to a default payload
// because the store could not answer.
const DegradedHeader = "X-Degraded"

// ErrorResponse is the JSON body of every error reply.
type ErrorResponse struct {
	Error string `json:"error"`
}

func respondJSON(w http.ResponseWriter, code int, payload interface{}) {
	body, err := json.Marshal(payload)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":"internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(body)
}

func respondError(w http.ResponseWriter, code int, message string) {
	respondJSON(w, code, ErrorResponse{Error: message})
}

// statusFor maps a component error onto an HTTP status.
func statusFor(err error) int {
	switch {
	case store.IsValidation(err):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrForbidden), errors.Is(err, store.ErrPrecondition):
		return http.StatusForbidden
	case store.IsNotFound(err):
		return http.StatusNotFound
	case store.IsTransient(err):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// fail answers a mutation or strict read with the status matching err.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	code := statusFor(err)
	if code >= http.StatusInternalServerError {
		s.logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err))
	}
	respondError(w, code, err.Error())
}

// degrade answers a read query with fallback when err means the store is
// unavailable or the data is missing. It reports whether it replied.
func (s *Server) degrade(w http.ResponseWriter, query string, err error, fallback interface{}) bool {
	if !store.IsTransient(err) && !store.IsNotFound(err) {
		return false
	}
	s.logger.Warn("serving degraded response", zap.String("query", query), zap.Error(err))
	s.metrics.Degraded(query)
	w.Header().Set(DegradedHeader, "true")
	respondJSON(w, http.StatusOK, fallback)
	return true
}

func decodeJSON(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w: %w", store.ErrValidation, err)
	}
	return nil
}
