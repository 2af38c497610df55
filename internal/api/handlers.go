// Package api implements the HTTP handlers for the CamVault JSON API.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"camvault/internal/auth"
	"camvault/internal/storage"
)

const healthCheckTimeout = 5 * time.Second

// Handler carries the dependencies shared by all endpoint handlers. Both are
// injected at startup so tests can substitute stores and signing secrets.
type Handler struct {
	Store  storage.Repository
	Tokens *auth.TokenManager
	Logger *slog.Logger
}

func NewHandler(store storage.Repository, tokens *auth.TokenManager) *Handler {
	return &Handler{Store: store, Tokens: tokens}
}

func (h *Handler) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}

// Error responses use a single "detail" field; clients depend on that shape.
func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"detail": err.Error()})
}

// WriteError is an exported helper for returning JSON API errors.
func WriteError(w http.ResponseWriter, status int, err error) {
	writeError(w, status, err)
}

// writeUnauthenticated reports a uniform 401 with the Bearer challenge header.
// Missing, malformed, and expired tokens all produce this exact response.
func writeUnauthenticated(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	writeError(w, http.StatusUnauthorized, errors.New("Could not validate credentials"))
}

// WriteUnauthenticated is the exported form used by the auth middleware.
func WriteUnauthenticated(w http.ResponseWriter) {
	writeUnauthenticated(w)
}

func (h *Handler) writeStoreError(w http.ResponseWriter, r *http.Request, err error) {
	h.logger().Error("store operation failed", "method", r.Method, "path", r.URL.Path, "error", err)
	writeError(w, http.StatusInternalServerError, errors.New("internal server error"))
}

func decodeJSON(r *http.Request, dest interface{}) error {
	if r.Body == nil {
		return errors.New("request body is required")
	}
	defer r.Body.Close()

	decoder := json.NewDecoder(r.Body)
	decoder.UseNumber()
	if err := decoder.Decode(dest); err != nil {
		return err
	}
	return nil
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request, allow string) {
	w.Header().Set("Allow", allow)
	writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed", r.Method))
}

// Root serves the /api/ liveness message. The trailing-slash mux pattern also
// catches unknown /api/* paths, which get a 404 here.
func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/api/" && r.URL.Path != "/api" {
		writeError(w, http.StatusNotFound, errors.New("not found"))
		return
	}
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, "GET")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Video Recording API"})
}

type componentStatus struct {
	Component string `json:"component"`
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
}

// Health reports datastore connectivity for liveness probes.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, "GET")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	overall := "ok"
	statusCode := http.StatusOK
	components := make([]componentStatus, 0, 1)
	if h.Store != nil {
		status := componentStatus{Component: "datastore", Status: "ok"}
		if err := h.Store.Ping(ctx); err != nil {
			status.Status = "degraded"
			status.Error = err.Error()
			overall = "degraded"
			statusCode = http.StatusServiceUnavailable
		}
		components = append(components, status)
	}

	writeJSON(w, statusCode, map[string]interface{}{
		"status":     overall,
		"components": components,
	})
}
