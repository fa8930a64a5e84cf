package handler

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"solar-system/pkg/config"
	"solar-system/simulator/model"
	"solar-system/simulator/simulation"
)

type Handler struct {
	engine *simulation.Engine
	logger *zap.Logger
}

func New(engine *simulation.Engine, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{engine: engine, logger: logger}
}

func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", h.Health)
	mux.HandleFunc("GET /positions", h.GetPositions)
	mux.HandleFunc("GET /snapshot", h.GetSnapshot)
	mux.HandleFunc("POST /step", h.Step)
	mux.HandleFunc("GET /planets", h.ListPlanets)
	mux.HandleFunc("POST /planets", h.AddPlanet)
	return mux
}

func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (h *Handler) GetPositions(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, h.engine.Snapshot().Bodies)
}

func (h *Handler) GetSnapshot(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, h.engine.Snapshot())
}

// Step advances the simulation once. An optional dt query parameter
// overrides the configured time step.
func (h *Handler) Step(w http.ResponseWriter, r *http.Request) {
	dt := h.engine.TimeStep()
	if raw := r.URL.Query().Get("dt"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			http.Error(w, "dt must be a finite number", http.StatusBadRequest)
			return
		}
		dt = v
	}
	h.writeJSON(w, http.StatusOK, h.engine.StepBy(r.Context(), dt))
}

type planetView struct {
	Name     string     `json:"name"`
	Radius   float64    `json:"radius"`
	Position model.Vec3 `json:"position"`
	Velocity model.Vec3 `json:"velocity"`
}

func (h *Handler) ListPlanets(w http.ResponseWriter, _ *http.Request) {
	planets := h.engine.Planets()
	out := make([]planetView, len(planets))
	for i, p := range planets {
		out[i] = planetView{Name: p.Name, Radius: p.Radius, Position: p.Position(), Velocity: p.State.Velocity}
	}
	h.writeJSON(w, http.StatusOK, out)
}

func (h *Handler) AddPlanet(w http.ResponseWriter, r *http.Request) {
	var pc config.PlanetConfig
	if err := json.NewDecoder(r.Body).Decode(&pc); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	p, err := pc.Planet()
	if errors.Is(err, config.ErrInvalidPlanet) {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.engine.AddPlanet(p)
	h.writeJSON(w, http.StatusCreated, planetView{Name: p.Name, Radius: p.Radius, Position: p.Position(), Velocity: p.State.Velocity})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Warn("Failed to write response", zap.Error(err))
	}
}
