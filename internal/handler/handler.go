package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"packetflow/internal/codec"
	"packetflow/internal/congestion"
	"packetflow/internal/domain"
	"packetflow/internal/internet"
	"packetflow/internal/routing"
	"packetflow/internal/service"
	"packetflow/internal/sim"
)

// maxBodyBytes caps request bodies, topology uploads included
const maxBodyBytes = 1 << 20

// Error response structure
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// statusFor maps service and domain errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrUnknownSketch):
		return http.StatusNotFound
	case errors.Is(err, internet.ErrSwitchInProgress):
		return http.StatusConflict
	case errors.Is(err, service.ErrUnsupported),
		errors.Is(err, sim.ErrInvalidSpeed),
		errors.Is(err, sim.ErrInvalidMaxPackets),
		errors.Is(err, sim.ErrNotSpoke),
		errors.Is(err, sim.ErrSameEndpoints),
		errors.Is(err, congestion.ErrInvalidSpeed),
		errors.Is(err, internet.ErrInvalidSpeed),
		errors.Is(err, internet.ErrUnknownNetwork),
		errors.Is(err, domain.ErrInvalidTopology),
		errors.Is(err, codec.ErrUnknownFormat),
		errors.Is(err, routing.ErrNoRoute):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// Helper functions

func writeJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		zap.L().Warn("failed to encode JSON", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, error, details string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(ErrorResponse{
		Error:   error,
		Details: details,
	}); err != nil {
		zap.L().Warn("failed to encode error response", zap.Error(err))
	}
}

// writeServiceError renders err with the status statusFor picks, logging
// server-side failures
func writeServiceError(w http.ResponseWriter, logger *zap.Logger, message string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		logger.Error(message, zap.Error(err))
	}
	writeError(w, message, err.Error(), status)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	return decoder.Decode(v)
}

// queryInt parses an optional integer query parameter
func queryInt(r *http.Request, name string, fallback int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	return strconv.Atoi(raw)
}

// queryBool parses an optional boolean query parameter
func queryBool(r *http.Request, name string) bool {
	v, err := strconv.ParseBool(r.URL.Query().Get(name))
	return err == nil && v
}
