package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/saltline/steward-core/internal/device"
	"github.com/saltline/steward-core/internal/directory"
	"github.com/saltline/steward-core/internal/request"
)

// Error represents a structured error response.
type Error struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Common error codes.
const (
	ErrCodeBadRequest = "bad_request"
	ErrCodeNotFound   = "not_found"
	ErrCodeConflict   = "conflict"
	ErrCodeInternal   = "internal_error"
	ErrCodeValidation = "validation_error"
)

// writeJSON writes a JSON response with the given status code and payload.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // Best-effort write to response; connection may be closed
		json.NewEncoder(w).Encode(v)
	}
}

// writeError writes a structured error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, Error{
		Status:  status,
		Code:    code,
		Message: message,
	})
}

// writeBadRequest writes a 400 error response.
func writeBadRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, ErrCodeBadRequest, message)
}

// writeNotFound writes a 404 error response.
func writeNotFound(w http.ResponseWriter, message string) {
	writeError(w, http.StatusNotFound, ErrCodeNotFound, message)
}

// writeConflict writes a 409 error response.
func writeConflict(w http.ResponseWriter, message string) {
	writeError(w, http.StatusConflict, ErrCodeConflict, message)
}

// writeInternalError writes a 500 error response.
func writeInternalError(w http.ResponseWriter, message string) {
	writeError(w, http.StatusInternalServerError, ErrCodeInternal, message)
}

// writeDomainError maps well-known domain errors onto HTTP statuses.
// Not-found sentinels become 404, lifecycle conflicts become 409,
// validation sentinels become 400, anything else is a 500.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, request.ErrRequestNotFound),
		errors.Is(err, device.ErrDeviceNotFound),
		errors.Is(err, directory.ErrLocationNotFound),
		errors.Is(err, directory.ErrGuestNotFound),
		errors.Is(err, directory.ErrCrewMemberNotFound):
		writeNotFound(w, err.Error())
	case errors.Is(err, request.ErrInvalidTransition):
		writeConflict(w, err.Error())
	case errors.Is(err, request.ErrCrewMemberRequired),
		errors.Is(err, device.ErrInvalidKind),
		errors.Is(err, device.ErrIdentifierRequired):
		writeError(w, http.StatusBadRequest, ErrCodeValidation, err.Error())
	case errors.Is(err, device.ErrDeviceExists):
		writeConflict(w, err.Error())
	default:
		writeInternalError(w, "internal server error")
	}
}
