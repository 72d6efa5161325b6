package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/MrSnakeDoc/beacon/internal/domain"
	"github.com/MrSnakeDoc/beacon/internal/httpserver/deps"
	"github.com/MrSnakeDoc/beacon/internal/logger"
)

const maxBodyBytes = 1 << 20

// Response bodies kept identical to the historical monitoring API.
const (
	msgBadRequest = "Bad request"
	msgNotFound   = "Service not found"
	msgInternal   = "Internal error"
)

type statusResponse struct {
	Status string `json:"status"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps the domain error taxonomy onto HTTP status codes.
// Unknown errors are store failures: logged and reported as 500.
func writeError(w http.ResponseWriter, r *http.Request, d deps.Deps, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, domain.ErrConflict):
		d.Logger.Debug("rejected request",
			logger.String("path", r.URL.Path),
			logger.Error(err))
		writeJSON(w, http.StatusBadRequest, statusResponse{Status: msgBadRequest})
	case errors.Is(err, domain.ErrNotFound):
		writeJSON(w, http.StatusNotFound, statusResponse{Status: msgNotFound})
	default:
		d.Logger.Error("request failed",
			logger.String("method", r.Method),
			logger.String("path", r.URL.Path),
			logger.String("request_id", middleware.GetReqID(r.Context())),
			logger.Error(err))
		writeJSON(w, http.StatusInternalServerError, statusResponse{Status: msgInternal})
	}
}

// serviceID reads the {id} URL parameter. Anything but a positive integer
// is reported as ErrNotFound, the same as an unknown id.
func serviceID(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: id %q", domain.ErrNotFound, raw)
	}
	return id, nil
}

// decodeFields checks the JSON media type and decodes a top-level object
// without folding key case, so "Name" and "name" stay distinct.
func decodeFields(w http.ResponseWriter, r *http.Request) (map[string]json.RawMessage, error) {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || mediaType != "application/json" {
		return nil, fmt.Errorf("%w: unsupported content type %q", domain.ErrInvalidInput, r.Header.Get("Content-Type"))
	}

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	var fields map[string]json.RawMessage
	if err := dec.Decode(&fields); err != nil {
		return nil, fmt.Errorf("%w: malformed json: %v", domain.ErrInvalidInput, err)
	}
	if fields == nil {
		return nil, fmt.Errorf("%w: body must be a json object", domain.ErrInvalidInput)
	}
	if err := dec.Decode(&json.RawMessage{}); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: unexpected data after json object", domain.ErrInvalidInput)
	}
	return fields, nil
}

// stringField returns fields[key] as a JSON string.
func stringField(fields map[string]json.RawMessage, key string) (string, error) {
	raw, ok := fields[key]
	if !ok {
		return "", fmt.Errorf("%w: %s is missing", domain.ErrInvalidInput, key)
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", fmt.Errorf("%w: %s must be a string", domain.ErrInvalidInput, key)
	}
	return s, nil
}
