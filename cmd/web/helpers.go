package main

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/myrjola/manuscript/internal/auth"
	"github.com/myrjola/manuscript/internal/errors"
	"github.com/myrjola/manuscript/internal/models"
)

// maxRequestBodyBytes bounds request bodies. A scene's content is the largest payload.
const maxRequestBodyBytes = 4 << 20

var errMalformedBody = errors.NewSentinel("invalid request body")

// errorResponse is the body of every failed API response.
type errorResponse struct {
	Error string `json:"error"`
}

func (app *application) serverError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		method = r.Method
		uri    = r.URL.RequestURI()
	)

	app.logger.LogAttrs(r.Context(), slog.LevelError, "server error",
		slog.String("method", method), slog.String("uri", uri), errors.SlogError(err))
	app.writeJSON(w, r, http.StatusInternalServerError,
		errorResponse{Error: http.StatusText(http.StatusInternalServerError)})
}

func (app *application) clientError(w http.ResponseWriter, r *http.Request, status int, message string) {
	var (
		method = r.Method
		uri    = r.URL.RequestURI()
	)

	app.logger.LogAttrs(r.Context(), slog.LevelDebug, http.StatusText(status),
		slog.String("method", method), slog.String("uri", uri), slog.String("message", message))
	app.writeJSON(w, r, status, errorResponse{Error: message})
}

func (app *application) notFound(w http.ResponseWriter, r *http.Request) {
	app.clientError(w, r, http.StatusNotFound, "not found")
}

// handleError maps the domain sentinels to client errors and everything else to a server error.
func (app *application) handleError(w http.ResponseWriter, r *http.Request, err error) {
	clientErrors := []struct {
		sentinel error
		status   int
	}{
		{sentinel: errMalformedBody, status: http.StatusBadRequest},
		{sentinel: models.ErrInvalidInput, status: http.StatusBadRequest},
		{sentinel: auth.ErrInvalidCredentials, status: http.StatusUnauthorized},
		{sentinel: models.ErrNotFound, status: http.StatusNotFound},
		{sentinel: models.ErrConflict, status: http.StatusConflict},
	}
	for _, ce := range clientErrors {
		if !errors.Is(err, ce.sentinel) {
			continue
		}
		message, ok := errors.MessageFor(err, ce.sentinel)
		if !ok {
			message = ce.sentinel.Error()
		}
		app.clientError(w, r, ce.status, message)
		return
	}
	app.serverError(w, r, err)
}

func (app *application) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		app.logger.LogAttrs(r.Context(), slog.LevelError, "failed to marshal response",
			errors.SlogError(errors.Wrap(err, "marshal response")))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"Internal Server Error"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err = w.Write(body); err != nil {
		app.logger.LogAttrs(r.Context(), slog.LevelDebug, "failed to write response", errors.SlogError(err))
	}
}

// decodeJSON decodes a single JSON value from the request body into dst.
//
// Unknown fields are rejected so that typos in optional fields do not go unnoticed.
func (app *application) decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var maxBytesErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxBytesErr):
			return errors.Wrap(errMalformedBody, "request body too large")
		case errors.Is(err, io.EOF):
			return errors.Wrap(errMalformedBody, "request body must not be empty")
		case strings.HasPrefix(err.Error(), "json: unknown field "):
			field := strings.TrimPrefix(err.Error(), "json: unknown field ")
			return errors.Wrap(errMalformedBody, "unknown field "+field)
		default:
			return errors.Wrap(errMalformedBody, "invalid request body", errors.SlogError(err))
		}
	}
	if dec.More() {
		return errors.Wrap(errMalformedBody, "request body must contain a single JSON value")
	}
	return nil
}
