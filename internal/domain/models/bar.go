package models

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ErrInvalidRange is returned when a DateRange has a missing bound or From > To.
var ErrInvalidRange = errors.New("invalid date range")

// HistoricalBar is one trading day of a symbol within a queried range.
type HistoricalBar struct {
	Date          time.Time `json:"date"`
	High          float64   `json:"high"`
	Low           float64   `json:"low"`
	Close         float64   `json:"close"`
	PreviousClose float64   `json:"previous_close"`
}

// DateRange is an inclusive [From, To] calendar window.
type DateRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// Validate reports ErrInvalidRange when a bound is missing or the range is inverted.
func (r DateRange) Validate() error {
	if r.From.IsZero() || r.To.IsZero() {
		return fmt.Errorf("%w: both bounds are required", ErrInvalidRange)
	}
	if r.From.After(r.To) {
		return fmt.Errorf("%w: from %s is after to %s", ErrInvalidRange, r.From.Format("2006-01-02"), r.To.Format("2006-01-02"))
	}
	return nil
}

// Equal reports whether both ranges cover the same calendar days.
func (r DateRange) Equal(o DateRange) bool {
	return r.From.Equal(o.From) && r.To.Equal(o.To)
}

// String renders the range as "YYYY-MM-DD..YYYY-MM-DD".
func (r DateRange) String() string {
	return r.From.Format("2006-01-02") + ".." + r.To.Format("2006-01-02")
}

// Chunks splits the range into consecutive inclusive windows of at most maxDays
// days, in chronological order. A non-positive maxDays returns the range itself.
func (r DateRange) Chunks(maxDays int) []DateRange {
	if maxDays <= 0 || r.From.After(r.To) {
		return []DateRange{r}
	}
	var out []DateRange
	start := r.From
	for !start.After(r.To) {
		end := start.AddDate(0, 0, maxDays-1)
		if end.After(r.To) {
			end = r.To
		}
		out = append(out, DateRange{From: start, To: end})
		start = end.AddDate(0, 0, 1)
	}
	return out
}

// PriceDeltaSeries is the ordered list of day-over-day close differences of a
// symbol, in the order the provider returned the bars.
type PriceDeltaSeries []decimal.Decimal

// Strings renders every delta as a decimal string with at most two fraction
// digits and no trailing zeros (e.g., "20", "-3.5").
func (s PriceDeltaSeries) Strings() []string {
	out := make([]string, len(s))
	for i, d := range s {
		out[i] = d.Round(2).String()
	}
	return out
}

// String joins the series with newlines, the on-disk report format.
func (s PriceDeltaSeries) String() string {
	return strings.Join(s.Strings(), "\n")
}
