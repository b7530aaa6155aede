// Package forecast exposes the forecast engine over HTTP.
package forecast

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"pnl_forecast/pkg/core/assumption"
	"pnl_forecast/pkg/core/calc"
	"pnl_forecast/pkg/core/logger"
	"pnl_forecast/pkg/core/projection"
	"pnl_forecast/pkg/core/store"
)

// maxBodyBytes caps the compute request body.
const maxBodyBytes = 8 << 20

// Ledger is the read side of the ledger database.
type Ledger interface {
	Categories(ctx context.Context, tenantID string) ([]calc.Category, error)
	Transactions(ctx context.Context, tenantID string, from, to calc.Month) ([]calc.Transaction, error)
	Assumptions(ctx context.Context, tenantID, month string) (*assumption.Input, error)
}

// Handler holds the dependencies of the forecast endpoints.
type Handler struct {
	Engine *projection.Engine
	Ledger Ledger // nil disables the tenant endpoint
	Log    logger.Logger

	now func() time.Time
}

// NewHandler creates a handler. ledger may be nil.
func NewHandler(engine *projection.Engine, ledger Ledger, log logger.Logger) *Handler {
	if log == nil {
		log = logger.NewNop()
	}
	return &Handler{
		Engine: engine,
		Ledger: ledger,
		Log:    log,
		now:    time.Now,
	}
}

// Compute handles POST /api/forecast/compute. The body carries the whole
// ledger so no database is involved.
func (h *Handler) Compute(w http.ResponseWriter, r *http.Request) {
	var req projection.Request
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, h.Engine.Compute(req))
}

// TenantForecast handles GET /api/tenants/{tenantID}/forecast?month=&horizon=.
func (h *Handler) TenantForecast(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantID")
	if tenantID == "" {
		writeError(w, http.StatusBadRequest, "tenant id is required")
		return
	}
	if h.Ledger == nil {
		writeError(w, http.StatusServiceUnavailable, store.ErrNotConfigured.Error())
		return
	}

	q := r.URL.Query()
	target, ok := calc.ParseMonth(q.Get("month"))
	if !ok {
		target = calc.MonthOf(h.now())
	}
	horizon := projection.ParseHorizon(q.Get("horizon"))
	if q.Get("horizon") == "" {
		horizon = h.Engine.Config().DefaultHorizon
	}

	log := h.Log.With(logger.Fields{
		"tenant_id":  tenantID,
		"month":      target.String(),
		"request_id": middleware.GetReqID(r.Context()),
	})

	ctx := r.Context()
	lookback := h.Engine.Config().LookbackMonths

	categories, err := h.Ledger.Categories(ctx, tenantID)
	if err != nil {
		h.storeFailure(w, log, "load categories", err)
		return
	}
	transactions, err := h.Ledger.Transactions(ctx, tenantID, target.Add(-lookback), target)
	if err != nil {
		h.storeFailure(w, log, "load transactions", err)
		return
	}
	overrides, err := h.Ledger.Assumptions(ctx, tenantID, target.String())
	if err != nil {
		h.storeFailure(w, log, "load assumptions", err)
		return
	}

	res := h.Engine.Compute(projection.Request{
		TargetMonth:  target.String(),
		Horizon:      projection.Horizon(horizon),
		Categories:   categories,
		Transactions: transactions,
		Assumptions:  overrides,
	})
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) storeFailure(w http.ResponseWriter, log logger.Logger, op string, err error) {
	if errors.Is(err, store.ErrNotConfigured) {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	log.WithError(err).Error("ledger query failed", logger.Fields{"op": op})
	writeError(w, http.StatusBadGateway, "failed to "+op)
}

// Health handles GET /healthz.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
