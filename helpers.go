package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"strconv"

	"placement-engine/feed"
	"placement-engine/ingest"
	"placement-engine/logger"
	"placement-engine/placement"
	"placement-engine/store"
)

// APIError is the body of every non-2xx JSON response
type APIError struct {
	Error   string                 `json:"error"`
	Code    string                 `json:"code,omitempty"`
	Details map[string]interface{} `json:"details,omitempty"`
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.GetLogger().WithError(err).Error("Error encoding JSON")
	}
}

func writeJSONStatus(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.GetLogger().WithError(err).Error("Error encoding JSON")
	}
}

// writeError writes an error response
func writeError(w http.ResponseWriter, message string, statusCode int) {
	writeJSONStatus(w, APIError{Error: message}, statusCode)
}

// writeErrorWithDetails writes an error response with a machine-readable code
func writeErrorWithDetails(w http.ResponseWriter, message, code string, details map[string]interface{}, statusCode int) {
	writeJSONStatus(w, APIError{
		Error:   message,
		Code:    code,
		Details: details,
	}, statusCode)
}

// classifyError maps domain errors onto an HTTP status and error code so
// callers can tell "no data" from "invalid request" from an internal fault
func classifyError(err error) (int, string) {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge, "payload_too_large"
	case errors.Is(err, placement.ErrInvalidInput),
		errors.Is(err, ingest.ErrNoRows),
		errors.Is(err, ingest.ErrNoCoordinates):
		return http.StatusBadRequest, "invalid_input"
	case errors.Is(err, placement.ErrConfiguration):
		return http.StatusBadRequest, "invalid_configuration"
	case errors.Is(err, placement.ErrAggregation):
		return http.StatusUnprocessableEntity, "no_data"
	case errors.Is(err, store.ErrNotFound), errors.Is(err, ingest.ErrSampleNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, feed.ErrNotConfigured):
		return http.StatusServiceUnavailable, "feed_not_configured"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func (s *Server) writeDomainError(w http.ResponseWriter, err error) {
	status, code := classifyError(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		s.log.WithError(err).Error("request failed")
		message = "Internal Server Error"
	}

	var details map[string]interface{}
	var invalid *placement.InvalidInputError
	var cfgErr *placement.ConfigurationError
	var aggErr *placement.AggregationError
	switch {
	case errors.As(err, &invalid):
		details = map[string]interface{}{"field": invalid.Field}
		if invalid.Index >= 0 {
			details["index"] = invalid.Index
		}
	case errors.As(err, &cfgErr):
		details = map[string]interface{}{"field": cfgErr.Field}
	case errors.As(err, &aggErr) && aggErr.Zone != "":
		details = map[string]interface{}{"zone": aggErr.Zone}
	}

	writeErrorWithDetails(w, message, code, details, status)
}

// parseLimit reads ?limit=, falling back to def for missing or bad values
func parseLimit(r *http.Request, def int) int {
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil && limit > 0 {
			return limit
		}
	}
	return def
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
