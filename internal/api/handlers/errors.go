package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dom/sleeplog/internal/domain"
	"github.com/rs/zerolog"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

// writeError maps domain error kinds onto status codes. Anything unexpected is
// logged and returned as an opaque 500.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrNotFound):
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrConflict):
		writeJSON(w, http.StatusConflict, ErrorResponse{Error: err.Error()})
	default:
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("request failed")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
