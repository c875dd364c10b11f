package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/desertthunder/livewatch/internal/models"
	"github.com/desertthunder/livewatch/internal/shared"
	"github.com/desertthunder/livewatch/internal/tasks"
)

// Engine is the part of the sync engine the API drives.
type Engine interface {
	RefreshChannels(ctx context.Context, typ string) error
	Providers() []tasks.ProviderInfo
}

// Reader lists the working set.
type Reader interface {
	Channels(ctx context.Context, typ string) ([]*models.Channel, error)
	Users(ctx context.Context, typ string) ([]*models.User, error)
}

// APIHandler serves the JSON API.
type APIHandler struct {
	engine Engine
	store  Reader
	mux    *http.ServeMux
}

func NewAPIHandler(engine Engine, store Reader) *APIHandler {
	h := &APIHandler{engine: engine, store: store, mux: http.NewServeMux()}
	h.mux.HandleFunc("GET /api/channels", h.channels)
	h.mux.HandleFunc("GET /api/users", h.users)
	h.mux.HandleFunc("GET /api/providers", h.providers)
	h.mux.HandleFunc("POST /api/channels/refresh", h.refresh)
	return h
}

func (h *APIHandler) Routes() []string {
	return []string{"/api/"}
}

func (h *APIHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

func (h *APIHandler) channels(w http.ResponseWriter, r *http.Request) {
	channels, err := h.store.Channels(r.Context(), r.URL.Query().Get("type"))
	if err != nil {
		writeErr(w, err)
		return
	}

	if r.URL.Query().Get("live") == "true" {
		live := channels[:0]
		for _, ch := range channels {
			if ch.Live {
				live = append(live, ch)
			}
		}
		channels = live
	}
	if channels == nil {
		channels = []*models.Channel{}
	}
	writeJSON(w, http.StatusOK, channels)
}

func (h *APIHandler) users(w http.ResponseWriter, r *http.Request) {
	users, err := h.store.Users(r.Context(), r.URL.Query().Get("type"))
	if err != nil {
		writeErr(w, err)
		return
	}
	if users == nil {
		users = []*models.User{}
	}
	writeJSON(w, http.StatusOK, users)
}

func (h *APIHandler) providers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.engine.Providers())
}

func (h *APIHandler) refresh(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.RefreshChannels(r.Context(), r.URL.Query().Get("type")); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "refreshed"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeErr maps sentinel errors to status codes.
func writeErr(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, shared.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, shared.ErrUnknownProvider), errors.Is(err, shared.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, shared.ErrUnsupported):
		status = http.StatusNotImplemented
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
	}
	writeError(w, status, err.Error())
}
