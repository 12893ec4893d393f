package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/starford/ansuz/internal/apperr"
)

// errResponse is the body of every non-2xx response.
type errResponse struct {
	Error string `json:"error"`
}

func errorBody(msg string) errResponse {
	return errResponse{Error: msg}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("api: encode response", slog.Int("status", status), slog.String("error", err.Error()))
	}
}

// writeServiceError maps domain errors to HTTP statuses.
func writeServiceError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
	case errors.Is(err, apperr.ErrHistoryDisabled):
		writeJSON(w, http.StatusNotFound, errorBody("run history is disabled"))
	case errors.Is(err, apperr.ErrDirectoryMissing):
		writeJSON(w, http.StatusNotFound, errorBody("directory not found"))
	case errors.Is(err, apperr.ErrNotDocument):
		writeJSON(w, http.StatusBadRequest, errorBody("not a document"))
	case errors.Is(err, apperr.ErrFileUnreadable):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody("document is unreadable"))
	default:
		slog.Error(op+" failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}
