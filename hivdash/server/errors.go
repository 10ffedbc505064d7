package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/arthur-debert/hivdash/hivdash/charts"
	"github.com/arthur-debert/hivdash/hivdash/entry"
	imports "github.com/arthur-debert/hivdash/hivdash/import"
	"github.com/arthur-debert/hivdash/hivdash/table"
	"github.com/arthur-debert/hivdash/hivdash/types"
)

// badRequest marks an error caused by the request itself.
type badRequest struct {
	err error
}

func (e badRequest) Error() string { return e.err.Error() }
func (e badRequest) Unwrap() error { return e.err }

func invalid(err error) error {
	if err == nil {
		return nil
	}
	return badRequest{err: err}
}

// statusFor maps an error to an HTTP status.
func statusFor(err error) int {
	var br badRequest
	var verr *entry.ValidationError
	switch {
	case errors.Is(err, types.ErrNotFound), errors.Is(err, charts.ErrNoData):
		return http.StatusNotFound
	case errors.As(err, &verr), errors.As(err, &br),
		errors.Is(err, imports.ErrMalformed), errors.Is(err, imports.ErrEmpty),
		errors.Is(err, table.ErrUnknownColumn):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

type errorBody struct {
	Error   string   `json:"error"`
	Missing []string `json:"missing,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	body := errorBody{Error: err.Error()}
	var verr *entry.ValidationError
	if errors.As(err, &verr) {
		body.Missing = verr.Missing
	}

	level := slog.LevelWarn
	if status >= 500 {
		level = slog.LevelError
	}
	s.logger.Log(r.Context(), level, "request failed",
		"method", r.Method, "path", r.URL.Path, "status", status, "error", err)

	writeJSON(w, status, body)
}
