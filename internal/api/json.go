package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/starford/cbl/internal/apperr"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", slog.String("error", err.Error()))
	}
}

type errResponse struct {
	Error string `json:"error" validate:"required"`
}

func errorBody(msg string) errResponse {
	return errResponse{Error: msg}
}

// writeError maps domain errors to HTTP status codes. Anything unexpected,
// including content missing from the store, is logged under op and reported
// as a 500.
func writeError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, apperr.ErrProjectNotFound):
		writeJSON(w, http.StatusNotFound, errorBody("project not found"))
	case errors.Is(err, apperr.ErrDuplicateProject):
		writeJSON(w, http.StatusConflict, errorBody("project already exists"))
	case errors.Is(err, apperr.ErrInvalidVersion),
		errors.Is(err, apperr.ErrInvalidArgument),
		errors.Is(err, apperr.ErrAmbiguousProject):
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
	case errors.Is(err, apperr.ErrNotFound):
		// Routes address records, not digests, so a missing blob means the
		// index points at content the store does not hold.
		slog.Error(op+" failed: stored content missing", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("stored content missing"))
	default:
		slog.Error(op+" failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}
