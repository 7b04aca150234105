package httputil

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/AdamBeresnev/op-tourney/internal/apperr"
)

type errorBody struct {
	Error string `json:"error"`
}

func WriteJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// StatusOf maps an error onto the HTTP status a client should see.
func StatusOf(err error) int {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperr.ErrInvalidState):
		return http.StatusUnprocessableEntity
	case errors.Is(err, apperr.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, apperr.ErrCapacityExceeded), errors.Is(err, apperr.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, apperr.ErrInvalidInput):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// Error writes err as a JSON error response. Client errors are logged at
// warn level with their message echoed back; anything else is logged as an
// error and hidden behind a generic message.
func Error(w http.ResponseWriter, msg string, err error) {
	status := StatusOf(err)
	if status == http.StatusInternalServerError {
		InternalServerError(w, msg, err)
		return
	}
	slog.Warn(msg, "status", status, "error", err)
	WriteJSON(w, status, errorBody{Error: err.Error()})
}

func InternalServerError(w http.ResponseWriter, msg string, err error) {
	slog.Error(msg, "error", err)
	WriteJSON(w, http.StatusInternalServerError, errorBody{Error: "internal server error"})
}

func BadRequest(w http.ResponseWriter, msg string, err error) {
	if err != nil {
		slog.Warn("bad request", "message", msg, "error", err)
	} else {
		slog.Warn("bad request", "message", msg)
	}
	WriteJSON(w, http.StatusBadRequest, errorBody{Error: msg})
}
