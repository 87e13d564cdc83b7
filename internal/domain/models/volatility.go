package models

// VolatilityStatus is the classification of one screened symbol.
type VolatilityStatus string

const (
	// StatusVolatile means fluctuations >= neutrals; the delta series is persisted.
	StatusVolatile VolatilityStatus = "volatile"
	// StatusCalm means the series was analysed but did not qualify.
	StatusCalm VolatilityStatus = "calm"
	// StatusBelowRange means the high/low range was under the threshold.
	StatusBelowRange VolatilityStatus = "below_range"
	// StatusNoData means the provider returned no bars.
	StatusNoData VolatilityStatus = "no_data"
)

// VolatilityResult is the screener's verdict for one symbol. Deltas is only
// populated once the range threshold has been met.
type VolatilityResult struct {
	Symbol       string           `json:"symbol"`
	MaxHigh      float64          `json:"max_high"`
	MinLow       float64          `json:"min_low"`
	Range        float64          `json:"range"`
	Deltas       PriceDeltaSeries `json:"deltas,omitempty"`
	Fluctuations int              `json:"fluctuations"`
	Neutrals     int              `json:"neutrals"`
	Status       VolatilityStatus `json:"status"`
}

// Volatile reports whether the symbol qualified as volatile.
func (r VolatilityResult) Volatile() bool { return r.Status == StatusVolatile }
