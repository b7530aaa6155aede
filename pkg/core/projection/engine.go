package projection

import (
	"time"

	"github.com/shopspring/decimal"

	"pnl_forecast/pkg/core/assumption"
	"pnl_forecast/pkg/core/calc"
	"pnl_forecast/pkg/core/forecast"
	"pnl_forecast/pkg/core/logger"
)

// Config sizes the history the engine looks at.
type Config struct {
	LookbackMonths int             `yaml:"lookback_months"`
	DriverWindow   int             `yaml:"driver_window"`
	DefaultHorizon int             `yaml:"default_horizon"`
	Models         forecast.Params `yaml:"models"`
}

// DefaultConfig returns a 36 month lookback, 12 month driver window and a
// 6 month default horizon.
func DefaultConfig() Config {
	return Config{
		LookbackMonths: 36,
		DriverWindow:   12,
		DefaultHorizon: DefaultHorizon,
		Models:         forecast.DefaultParams(),
	}
}

// Observer receives a summary of every computed forecast.
type Observer interface {
	ObserveForecast(sel forecast.Selection, elapsed time.Duration)
}

type nopObserver struct{}

func (nopObserver) ObserveForecast(forecast.Selection, time.Duration) {}

// Engine computes forecasts. It holds no per-request state and is safe for
// concurrent use.
type Engine struct {
	cfg      Config
	selector *forecast.Selector
	registry *forecast.Registry
	log      logger.Logger
	observer Observer
	now      func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine and selector logger.
func WithLogger(l logger.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// WithClock sets the clock used to resolve malformed target months.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithObserver reports every computation to o.
func WithObserver(o Observer) Option {
	return func(e *Engine) {
		if o != nil {
			e.observer = o
		}
	}
}

// WithRegistry replaces the candidate revenue models.
func WithRegistry(r *forecast.Registry) Option {
	return func(e *Engine) {
		e.registry = r
	}
}

// NewEngine creates an engine. Zero-valued config fields take their defaults.
func NewEngine(cfg Config, opts ...Option) *Engine {
	d := DefaultConfig()
	if cfg.LookbackMonths <= 0 {
		cfg.LookbackMonths = d.LookbackMonths
	}
	if cfg.DriverWindow <= 0 {
		cfg.DriverWindow = d.DriverWindow
	}
	cfg.DefaultHorizon = NormalizeHorizon(cfg.DefaultHorizon)

	e := &Engine{
		cfg:      cfg,
		log:      logger.NewNop(),
		observer: nopObserver{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}

	selOpts := []forecast.SelectorOption{forecast.WithLogger(e.log)}
	if e.registry != nil {
		selOpts = append(selOpts, forecast.WithRegistry(e.registry))
	}
	e.selector = forecast.NewSelector(cfg.Models, selOpts...)
	return e
}

// Config returns the effective engine configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// Candidates returns the revenue models the engine backtests.
func (e *Engine) Candidates() []string {
	return e.selector.Candidates()
}

// Compute runs the whole pipeline for req. Bad input degrades to defaults:
// a malformed target month becomes the current month and an unsupported
// horizon becomes the default horizon.
func (e *Engine) Compute(req Request) Result {
	started := time.Now()

	target, ok := calc.ParseMonth(req.TargetMonth)
	if !ok {
		target = calc.MonthOf(e.now())
		e.log.Debug("target month not parseable, using current month", logger.Fields{
			"target_month": req.TargetMonth,
			"resolved":     target.String(),
		})
	}
	horizon := e.horizon(int(req.Horizon))

	var in assumption.Input
	if req.Assumptions != nil {
		in = req.Assumptions.Sanitized()
	}

	hist := calc.BuildMonthlyAggregates(target, e.cfg.LookbackMonths, req.Categories, req.Transactions)
	series := calc.TrimLeadingZeros(calc.RevenueSeries(hist.Aggregates))

	sel := e.selector.Select(series, horizon)
	drivers := assumption.EstimateDrivers(calc.Trailing(hist.Aggregates, e.cfg.DriverWindow), in)
	rows := Assemble(target, sel.Forecast, drivers, in)

	res := Result{
		TargetMonth: target.String(),
		Horizon:     horizon,
		Model: ModelDiagnostics{
			Selected:         sel.Model,
			ValidationMAPE:   sel.ValidationMAPE,
			ValidationWindow: sel.HoldoutSize,
			HistoryPoints:    len(series),
			Candidates:       sel.Candidates,
			FallbackReason:   sel.FallbackReason,
		},
		Drivers:     drivers,
		Projections: rows,
		History:     summarize(hist, e.cfg.LookbackMonths),
		ItemsUsed:   itemsUsed(req, hist, sel, drivers, in),
	}

	elapsed := time.Since(started)
	e.observer.ObserveForecast(sel, elapsed)
	e.log.Info("forecast computed", logger.Fields{
		"target_month":     res.TargetMonth,
		"horizon":          horizon,
		"model":            sel.Model,
		"months_with_data": hist.MonthsWithData,
		"duration_ms":      elapsed.Milliseconds(),
	})
	return res
}

func (e *Engine) horizon(h int) int {
	switch h {
	case 3, 6, 12:
		return h
	}
	return e.cfg.DefaultHorizon
}

func summarize(h calc.History, lookback int) HistorySummary {
	s := HistorySummary{
		LookbackMonths:      lookback,
		MonthsWithData:      h.MonthsWithData,
		TransactionsUsed:    h.TransactionsUsed,
		TransactionsSkipped: h.Skipped,
	}
	if len(h.Aggregates) > 0 {
		s.WindowStart = h.Aggregates[0].Month
		s.WindowEnd = h.Aggregates[len(h.Aggregates)-1].Month
	}

	revenue, cogs, opex := decimal.Zero, decimal.Zero, decimal.Zero
	for _, a := range h.Aggregates {
		revenue = revenue.Add(decimal.NewFromFloat(a.Revenue))
		cogs = cogs.Add(decimal.NewFromFloat(a.COGS))
		opex = opex.Add(decimal.NewFromFloat(a.Opex))
	}
	s.TotalRevenue = revenue.Round(2).InexactFloat64()
	s.TotalCOGS = cogs.Round(2).InexactFloat64()
	s.TotalOpex = opex.Round(2).InexactFloat64()
	if h.MonthsWithData > 0 {
		s.AverageMonthlyRevenue = revenue.Div(decimal.NewFromInt(int64(h.MonthsWithData))).Round(2).InexactFloat64()
	}
	return s
}

// itemsUsed lists the provenance of the result: which inputs contributed,
// which revenue model ran and where each driver came from.
func itemsUsed(req Request, h calc.History, sel forecast.Selection, d assumption.DriverBundle, in assumption.Input) []string {
	items := make([]string, 0, 8)
	if h.TransactionsUsed > 0 {
		items = append(items, "transactions")
	}
	if len(req.Categories) > 0 {
		items = append(items, "categories")
	}
	if h.MonthsWithData > 0 {
		items = append(items, "monthly_aggregates")
	}
	items = append(items, "revenue_model:"+sel.Model)
	for _, field := range in.Overrides() {
		items = append(items, "assumption:"+field)
	}
	for _, name := range d.Historical() {
		items = append(items, "historical:"+name)
	}
	return items
}
