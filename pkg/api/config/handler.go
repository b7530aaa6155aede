// Package config serves the effective forecast configuration so clients can
// show which models and horizons are available.
package config

import (
	"encoding/json"
	"net/http"

	"pnl_forecast/pkg/core/forecast"
	"pnl_forecast/pkg/core/projection"
)

type Response struct {
	LookbackMonths int             `json:"lookback_months"`
	DriverWindow   int             `json:"driver_window"`
	DefaultHorizon int             `json:"default_horizon"`
	Horizons       []int           `json:"horizons"`
	Candidates     []string        `json:"candidates"`
	Fallback       string          `json:"fallback"`
	Models         forecast.Params `json:"models"`
}

// Handler holds dependencies for config endpoints
type Handler struct {
	Engine *projection.Engine
}

// NewHandler creates a new config handler
func NewHandler(engine *projection.Engine) *Handler {
	return &Handler{
		Engine: engine,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.HandleConfig(w, r)
}

func (h *Handler) HandleConfig(w http.ResponseWriter, r *http.Request) {
	cfg := h.Engine.Config()
	resp := Response{
		LookbackMonths: cfg.LookbackMonths,
		DriverWindow:   cfg.DriverWindow,
		DefaultHorizon: cfg.DefaultHorizon,
		Horizons:       []int{3, 6, 12},
		Candidates:     h.Engine.Candidates(),
		Fallback:       forecast.NameManual,
		Models:         cfg.Models,
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}
