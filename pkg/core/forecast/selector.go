package forecast

import (
	"fmt"
	"math"

	"pnl_forecast/pkg/core/logger"
	"pnl_forecast/pkg/core/numeric"
)

// CandidateStatus records how a candidate fared during backtesting.
type CandidateStatus string

const (
	StatusUsed             CandidateStatus = "used"
	StatusInsufficientData CandidateStatus = "insufficient_data"
	StatusFailed           CandidateStatus = "failed"
)

// Fallback reasons reported when the manual trend is selected.
const (
	ReasonInsufficientHistory = "insufficient_history"
	ReasonNoValidCandidate    = "no_valid_candidate"
	ReasonRefitFailed         = "refit_failed"
)

// Candidate is the backtest outcome of one model.
type Candidate struct {
	Model          string          `json:"model"`
	ValidationMAPE *float64        `json:"validation_mape_pct"`
	Status         CandidateStatus `json:"status"`
}

// Selection is the selector's decision plus the horizon forecast of the
// chosen model.
type Selection struct {
	Model          string      `json:"selected_model"`
	ValidationMAPE *float64    `json:"validation_mape_pct"`
	HoldoutSize    int         `json:"validation_window"`
	Candidates     []Candidate `json:"candidates"`
	FallbackReason string      `json:"fallback_reason,omitempty"`
	Forecast       []float64   `json:"-"`
}

// Selector backtests candidate models on a held-out tail and forecasts with
// the most accurate one.
type Selector struct {
	params     Params
	candidates []Model
	fallback   Model
	log        logger.Logger
}

// SelectorOption configures a Selector.
type SelectorOption func(*Selector)

// WithLogger routes candidate diagnostics to l.
func WithLogger(l logger.Logger) SelectorOption {
	return func(s *Selector) {
		if l != nil {
			s.log = l
		}
	}
}

// WithRegistry replaces the default candidate set with the models in r.
func WithRegistry(r *Registry) SelectorOption {
	return func(s *Selector) {
		if r != nil {
			s.candidates = r.Models()
		}
	}
}

// NewSelector creates a selector over the default candidates.
func NewSelector(p Params, opts ...SelectorOption) *Selector {
	p = p.withDefaults()
	s := &Selector{
		params:     p,
		candidates: DefaultRegistry(p).Models(),
		fallback:   &ManualTrendModel{p: p},
		log:        logger.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Candidates returns the names of the candidate models in evaluation order.
func (s *Selector) Candidates() []string {
	out := make([]string, len(s.candidates))
	for i, m := range s.candidates {
		out[i] = m.Name()
	}
	return out
}

// HoldoutSize returns the validation tail length for a series of length n.
func (s *Selector) HoldoutSize(n int) int {
	if n < s.params.HoldoutSplitLength {
		return 1
	}
	h := int(math.Floor(0.2 * float64(n)))
	if h < s.params.MinHoldout {
		h = s.params.MinHoldout
	}
	if h > s.params.MaxHoldout {
		h = s.params.MaxHoldout
	}
	return h
}

// Select picks a model for series and forecasts steps periods with it. It
// never fails: when nothing can be validated the manual trend is used.
func (s *Selector) Select(series []float64, steps int) Selection {
	n := len(series)
	informative := 0
	for _, v := range series {
		if v != 0 {
			informative++
		}
	}

	if informative < s.params.MinInformativePoints || n < 2 {
		sel := Selection{Candidates: make([]Candidate, 0, len(s.candidates))}
		for _, m := range s.candidates {
			sel.Candidates = append(sel.Candidates, Candidate{Model: m.Name(), Status: StatusInsufficientData})
		}
		s.log.Debug("forecast history too short for backtesting", logger.Fields{
			"points":      n,
			"informative": informative,
		})
		return s.useFallback(sel, series, steps, ReasonInsufficientHistory)
	}

	holdout := s.HoldoutSize(n)
	train, valid := series[:n-holdout], series[n-holdout:]

	sel := Selection{
		HoldoutSize: holdout,
		Candidates:  make([]Candidate, 0, len(s.candidates)),
	}

	var best Model
	var bestMAPE float64
	for _, m := range s.candidates {
		c := s.evaluate(m, train, valid)
		sel.Candidates = append(sel.Candidates, c)
		if c.Status != StatusUsed {
			continue
		}
		if best == nil || *c.ValidationMAPE < bestMAPE {
			best, bestMAPE = m, *c.ValidationMAPE
		}
	}

	if best == nil {
		return s.useFallback(sel, series, steps, ReasonNoValidCandidate)
	}

	out, err := safeFit(best, series, steps)
	if err != nil || len(out) != steps0(steps) || !numeric.AllFinite(out) {
		s.log.Warn("refit of selected model failed", logger.Fields{
			"model": best.Name(),
			"error": fmt.Sprint(err),
		})
		return s.useFallback(sel, series, steps, ReasonRefitFailed)
	}

	mape := bestMAPE
	sel.Model = best.Name()
	sel.ValidationMAPE = &mape
	sel.Forecast = out
	s.log.Debug("forecast model selected", logger.Fields{
		"model":    sel.Model,
		"mape_pct": mape,
		"holdout":  holdout,
	})
	return sel
}

func (s *Selector) evaluate(m Model, train, valid []float64) Candidate {
	c := Candidate{Model: m.Name()}
	if len(train) < m.MinTrainLength() {
		c.Status = StatusInsufficientData
		s.log.Debug("forecast candidate skipped", logger.Fields{
			"model":     c.Model,
			"train_len": len(train),
			"min_train": m.MinTrainLength(),
		})
		return c
	}

	pred, err := safeFit(m, train, len(valid))
	if err != nil || len(pred) != len(valid) || !numeric.AllFinite(pred) {
		c.Status = StatusFailed
		s.log.Debug("forecast candidate failed", logger.Fields{
			"model": c.Model,
			"error": fmt.Sprint(err),
		})
		return c
	}

	mape := numeric.MAPE(valid, pred)
	if mape == nil || !numeric.IsFinite(*mape) {
		c.Status = StatusInsufficientData
		return c
	}

	c.Status = StatusUsed
	c.ValidationMAPE = mape
	s.log.Debug("forecast candidate scored", logger.Fields{
		"model":    c.Model,
		"mape_pct": *mape,
	})
	return c
}

func (s *Selector) useFallback(sel Selection, series []float64, steps int, reason string) Selection {
	out, err := safeFit(s.fallback, series, steps)
	if err != nil {
		// The manual trend only rejects non-finite input; forecast flat zero.
		out = make([]float64, steps0(steps))
	}
	sel.Model = s.fallback.Name()
	sel.ValidationMAPE = nil
	sel.FallbackReason = reason
	sel.Forecast = out
	return sel
}

// safeFit runs m.Fit, turning a panic into an error so one misbehaving model
// cannot abort the run.
func safeFit(m Model, series []float64, steps int) (out []float64, err error) {
	defer func() {
		if r := recover(); r != nil {
			out = nil
			err = fmt.Errorf("model %s panicked: %v", m.Name(), r)
		}
	}()
	return m.Fit(series, steps)
}
