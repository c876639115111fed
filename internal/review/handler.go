// Package review exposes historization runs and decisions over HTTP for
// the validation UI.
package review

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/geovintage/boundary-cli/internal/store"
)

// RunStore is the store surface the review API needs.
type RunStore interface {
	ListRuns(ctx context.Context, limit int) ([]store.RunSummary, error)
	GetRun(ctx context.Context, runID string) (*store.RunSummary, error)
	Decisions(ctx context.Context, runID, disposition string) ([]store.Decision, error)
}

// Handler serves the review API.
type Handler struct {
	store RunStore
}

// NewHandler creates a review Handler.
func NewHandler(s RunStore) *Handler {
	return &Handler{store: s}
}

// Router builds the chi router with CORS for the given origins.
func (h *Handler) Router(allowedOrigins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", h.handleHealth)
	r.Get("/runs", h.handleListRuns)
	r.Get("/runs/{runID}", h.handleGetRun)
	r.Get("/runs/{runID}/decisions", h.handleDecisions)

	return r
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) handleListRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := h.store.ListRuns(r.Context(), 100)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if runs == nil {
		runs = []store.RunSummary{}
	}
	writeJSON(w, http.StatusOK, runs)
}

func (h *Handler) handleGetRun(w http.ResponseWriter, r *http.Request) {
	run, err := h.store.GetRun(r.Context(), chi.URLParam(r, "runID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (h *Handler) handleDecisions(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")
	disposition := r.URL.Query().Get("disposition")

	if disposition != "" && !validDisposition(disposition) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown disposition"})
		return
	}

	// 404 on unknown runs instead of an empty decision list.
	if _, err := h.store.GetRun(r.Context(), runID); err != nil {
		writeError(w, r, err)
		return
	}

	decisions, err := h.store.Decisions(r.Context(), runID, disposition)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if decisions == nil {
		decisions = []store.Decision{}
	}
	writeJSON(w, http.StatusOK, decisions)
}

func validDisposition(d string) bool {
	switch d {
	case "auto_match", "needs_validation", "removed", "added", "rejected":
		return true
	}
	return false
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	if eris.Is(err, store.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
		return
	}
	zap.L().Error("review: request failed",
		zap.String("path", r.URL.Path),
		zap.Error(err),
	)
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
}
