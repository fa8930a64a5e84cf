package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"solar-system/database/store"
	"solar-system/simulator/model"
)

const (
	defaultLimit = 100
	maxLimit     = 1000
)

// Snapshots is the subset of store.Store the handlers use.
type Snapshots interface {
	Get(ctx context.Context, tick uint64) (model.Snapshot, error)
	Latest(ctx context.Context) (model.Snapshot, error)
	List(ctx context.Context, limit int) ([]model.Snapshot, error)
	Delete(ctx context.Context, tick uint64) error
	Trajectory(ctx context.Context, name string, limit int) ([]store.TrackPoint, error)
}

type Handler struct {
	snapshots Snapshots
	logger    *zap.Logger
}

func New(snapshots Snapshots, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{snapshots: snapshots, logger: logger}
}

func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	mux.HandleFunc("GET /snapshots", h.listSnapshots)
	mux.HandleFunc("GET /snapshots/latest", h.latestSnapshot)
	mux.HandleFunc("GET /snapshots/{tick}", h.getSnapshot)
	mux.HandleFunc("DELETE /snapshots/{tick}", h.deleteSnapshot)
	mux.HandleFunc("GET /planets/{name}/trajectory", h.trajectory)
	return mux
}

func (h *Handler) listSnapshots(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(w, r)
	if !ok {
		return
	}
	snaps, err := h.snapshots.List(r.Context(), limit)
	if err != nil {
		h.fail(w, err)
		return
	}
	h.writeJSON(w, snaps)
}

func (h *Handler) latestSnapshot(w http.ResponseWriter, r *http.Request) {
	snap, err := h.snapshots.Latest(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	h.writeJSON(w, snap)
}

func (h *Handler) getSnapshot(w http.ResponseWriter, r *http.Request) {
	tick, ok := parseTick(w, r)
	if !ok {
		return
	}
	snap, err := h.snapshots.Get(r.Context(), tick)
	if err != nil {
		h.fail(w, err)
		return
	}
	h.writeJSON(w, snap)
}

func (h *Handler) deleteSnapshot(w http.ResponseWriter, r *http.Request) {
	tick, ok := parseTick(w, r)
	if !ok {
		return
	}
	if err := h.snapshots.Delete(r.Context(), tick); err != nil {
		h.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) trajectory(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(w, r)
	if !ok {
		return
	}
	points, err := h.snapshots.Trajectory(r.Context(), r.PathValue("name"), limit)
	if err != nil {
		h.fail(w, err)
		return
	}
	h.writeJSON(w, points)
}

func parseTick(w http.ResponseWriter, r *http.Request) (uint64, bool) {
	tick, err := strconv.ParseUint(r.PathValue("tick"), 10, 63)
	if err != nil {
		http.Error(w, "Invalid tick", http.StatusBadRequest)
		return 0, false
	}
	return tick, true
}

func parseLimit(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return defaultLimit, true
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
		return 0, false
	}
	return min(limit, maxLimit), true
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrNotFound) {
		http.Error(w, "Not found", http.StatusNotFound)
		return
	}
	h.logger.Error("Snapshot query failed", zap.Error(err))
	http.Error(w, err.Error(), http.StatusInternalServerError)
}

func (h *Handler) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Warn("Failed to write response", zap.Error(err))
	}
}
