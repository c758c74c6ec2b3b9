package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/roach88/histories/internal/history"
)

func writeJSON(w http.ResponseWriter, status int, response any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Headers are already sent; an encoding error can only truncate the body.
	_ = json.NewEncoder(w).Encode(response)
}

// writeError translates history errors into HTTP responses.
func writeError(w http.ResponseWriter, err error) {
	var he *history.Error
	if errors.As(err, &he) {
		writeJSON(w, statusFor(he.Code), ErrorResponse{
			Error:            errorCodeFor(he.Code),
			ErrorDescription: describe(he),
		})
		return
	}

	writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "internal_error"})
}

func statusFor(code history.ErrorCode) int {
	switch code {
	case history.CodeValidation:
		return http.StatusBadRequest
	case history.CodeStorageUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func errorCodeFor(code history.ErrorCode) string {
	switch code {
	case history.CodeValidation:
		return "validation_error"
	case history.CodeStorageUnavailable:
		return "storage_unavailable"
	default:
		return "internal_error"
	}
}

// describe omits the wrapped cause, which for storage errors may name
// files or hosts.
func describe(he *history.Error) string {
	if he.Field != "" {
		return he.Field + ": " + he.Message
	}
	return he.Message
}
