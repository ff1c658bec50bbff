package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"inkwell/notes/internal/db"
	"inkwell/notes/internal/enrich"
)

type errorBody struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

// statusFor maps store and enrichment errors onto HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, db.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, db.ErrValidation), errors.Is(err, enrich.ErrNoContent):
		return http.StatusBadRequest
	case errors.Is(err, enrich.ErrNoCompleter):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		s.log.Error().Err(err).Str("request_id", RequestIDFrom(r.Context())).Msg("request failed")
		if db.IsStorage(err) {
			msg = "storage failure"
		}
	}
	writeJSON(w, status, errorBody{Error: msg, RequestID: RequestIDFrom(r.Context())})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
