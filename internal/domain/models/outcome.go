package models

import "fmt"

// Stage identifies the pipeline step that produced an outcome.
type Stage string

const (
	StagePrice      Stage = "price"
	StageMarketCap  Stage = "market_cap"
	StageVolatility Stage = "volatility"
	StageReport     Stage = "report"
)

// FailureKind classifies a per-symbol failure.
type FailureKind string

const (
	// FailureInvalidSymbol is an empty or malformed identifier; skipped with a warning.
	FailureInvalidSymbol FailureKind = "invalid_symbol"
	// FailureFetch is any gateway error for a single symbol.
	FailureFetch FailureKind = "fetch_error"
	// FailureNoData is an empty historical result. Not an error, recorded for reporting.
	FailureNoData FailureKind = "no_data"
	// FailureWrite is a filesystem failure while persisting a report.
	FailureWrite FailureKind = "write_error"
)

// SymbolFailure is the typed outcome of a symbol that dropped out of a stage
// for a reason other than failing a screening predicate.
type SymbolFailure struct {
	Symbol string      `json:"symbol"`
	Stage  Stage       `json:"stage"`
	Kind   FailureKind `json:"kind"`
	Err    error       `json:"-"`
}

// Error implements error so failures can be logged or wrapped directly.
func (f SymbolFailure) Error() string {
	if f.Err == nil {
		return fmt.Sprintf("%s %s: %s", f.Stage, f.Symbol, f.Kind)
	}
	return fmt.Sprintf("%s %s: %s: %v", f.Stage, f.Symbol, f.Kind, f.Err)
}

// Unwrap exposes the underlying cause.
func (f SymbolFailure) Unwrap() error { return f.Err }

// Message returns the cause as text, or "" when there is none.
func (f SymbolFailure) Message() string {
	if f.Err == nil {
		return ""
	}
	return f.Err.Error()
}

// CountByKind tallies failures per kind.
func CountByKind(failures []SymbolFailure) map[FailureKind]int {
	out := make(map[FailureKind]int, len(failures))
	for _, f := range failures {
		out[f.Kind]++
	}
	return out
}
