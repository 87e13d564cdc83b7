package models

import (
	"time"

	"github.com/google/uuid"
)

// RunReport aggregates everything one pipeline run produced: survivors of each
// stage, the volatility verdicts and every per-symbol failure.
type RunReport struct {
	ID            uuid.UUID          `json:"id"`
	StartedAt     time.Time          `json:"started_at"`
	FinishedAt    time.Time          `json:"finished_at"`
	Universe      int                `json:"universe"`
	PriceEligible []EquityDetails    `json:"price_eligible"`
	Eligible      []EligibleEquity   `json:"eligible"`
	Volatility    []VolatilityResult `json:"volatility"`
	Failures      []SymbolFailure    `json:"failures"`
}

// NewRunReport starts a report with a fresh id and start time.
func NewRunReport(now time.Time) *RunReport {
	return &RunReport{ID: uuid.New(), StartedAt: now}
}

// VolatileSymbols lists the symbols classified as volatile, in screening order.
func (r *RunReport) VolatileSymbols() []string {
	var out []string
	for _, v := range r.Volatility {
		if v.Volatile() {
			out = append(out, v.Symbol)
		}
	}
	return out
}

// Summary collapses the report into counts.
func (r *RunReport) Summary() RunSummary {
	return RunSummary{
		ID:            r.ID,
		StartedAt:     r.StartedAt,
		FinishedAt:    r.FinishedAt,
		Universe:      r.Universe,
		PriceEligible: len(r.PriceEligible),
		Eligible:      len(r.Eligible),
		Volatile:      len(r.VolatileSymbols()),
		Failures:      len(r.Failures),
	}
}

// RunSummary is the persisted, count-only view of a run.
type RunSummary struct {
	ID            uuid.UUID `json:"id"`
	StartedAt     time.Time `json:"started_at"`
	FinishedAt    time.Time `json:"finished_at"`
	Universe      int       `json:"universe"`
	PriceEligible int       `json:"price_eligible"`
	Eligible      int       `json:"eligible"`
	Volatile      int       `json:"volatile"`
	Failures      int       `json:"failures"`
}

// ScreeningResult is one persisted per-symbol row of a run.
type ScreeningResult struct {
	RunID   uuid.UUID `json:"run_id"`
	Symbol  string    `json:"symbol"`
	Stage   Stage     `json:"stage"`
	Outcome string    `json:"outcome"`
	Range   float64   `json:"range"`
	Deltas  []string  `json:"deltas,omitempty"`
	Detail  string    `json:"detail,omitempty"`
}

// Results flattens the report into persisted rows: one per eligible symbol
// (with its volatility verdict when screened) and one per failure. A no-data
// failure already carried by a verdict row is not repeated.
func (r *RunReport) Results() []ScreeningResult {
	verdicts := make(map[string]VolatilityResult, len(r.Volatility))
	for _, v := range r.Volatility {
		verdicts[v.Symbol] = v
	}

	out := make([]ScreeningResult, 0, len(r.Eligible)+len(r.Volatility)+len(r.Failures))
	seen := make(map[string]struct{}, len(r.Eligible))
	for _, e := range r.Eligible {
		seen[e.Symbol] = struct{}{}
		row := ScreeningResult{RunID: r.ID, Symbol: e.Symbol, Stage: StageMarketCap, Outcome: "eligible"}
		if v, ok := verdicts[e.Symbol]; ok {
			row = r.verdictRow(v)
		}
		out = append(out, row)
	}
	// Runs started from an eligibility file have verdicts without Eligible entries.
	for _, v := range r.Volatility {
		if _, ok := seen[v.Symbol]; !ok {
			out = append(out, r.verdictRow(v))
		}
	}
	for _, f := range r.Failures {
		if _, ok := verdicts[f.Symbol]; ok && f.Kind == FailureNoData {
			continue
		}
		out = append(out, ScreeningResult{
			RunID:   r.ID,
			Symbol:  f.Symbol,
			Stage:   f.Stage,
			Outcome: string(f.Kind),
			Detail:  f.Message(),
		})
	}
	return out
}

func (r *RunReport) verdictRow(v VolatilityResult) ScreeningResult {
	row := ScreeningResult{RunID: r.ID, Symbol: v.Symbol, Stage: StageVolatility, Outcome: string(v.Status), Range: v.Range}
	if v.Volatile() {
		row.Deltas = v.Deltas.Strings()
	}
	return row
}
