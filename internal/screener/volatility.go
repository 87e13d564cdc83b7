package screener

import (
	"context"
	"math"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/guttosm/nsepulse/internal/domain/models"
	"github.com/guttosm/nsepulse/internal/gateway"
	"github.com/guttosm/nsepulse/internal/logger"
)

// Classification is the outcome of Analyze over a delta series.
type Classification struct {
	Fluctuations int
	Neutrals     int
	Volatile     bool
}

// VolatilityScreener decides whether a symbol fluctuated significantly over
// the configured window and, if so, produces its delta series.
type VolatilityScreener struct {
	gw       gateway.Gateway
	criteria Criteria
	parallel int
	log      zerolog.Logger
}

// NewVolatilityScreener creates a screener. parallel < 1 is treated as 1.
func NewVolatilityScreener(gw gateway.Gateway, criteria Criteria, parallel int) *VolatilityScreener {
	if parallel < 1 {
		parallel = 1
	}
	return &VolatilityScreener{gw: gw, criteria: criteria, parallel: parallel, log: logger.Component("volatility")}
}

// Screen evaluates one symbol:
//  1. fetch the high/low window; no bars yields StatusNoData;
//  2. range = max(high) - min(low); under the threshold yields StatusBelowRange;
//  3. compute the delta series once (from the same bars, or from the delta
//     window when it differs);
//  4. classify with Analyze.
//
// Only gateway failures are returned as errors.
func (s *VolatilityScreener) Screen(ctx context.Context, symbol string) (models.VolatilityResult, error) {
	res := models.VolatilityResult{Symbol: symbol}

	bars, err := s.gw.GetHistoricalBars(ctx, symbol, s.criteria.HighLowWindow)
	if err != nil {
		return res, err
	}
	if len(bars) == 0 {
		s.log.Info().Str("symbol", symbol).Str("window", s.criteria.HighLowWindow.String()).Msg("no historical data found")
		res.Status = models.StatusNoData
		return res, nil
	}

	res.MaxHigh, res.MinLow, res.Range = PriceRange(bars)
	if res.Range < s.criteria.RangeThreshold {
		s.log.Info().Str("symbol", symbol).Float64("range", res.Range).Float64("threshold", s.criteria.RangeThreshold).Msg("price difference below threshold, skipping analysis")
		res.Status = models.StatusBelowRange
		return res, nil
	}

	deltaBars := bars
	if !s.criteria.DeltaWindow.Equal(s.criteria.HighLowWindow) {
		deltaBars, err = s.gw.GetHistoricalBars(ctx, symbol, s.criteria.DeltaWindow)
		if err != nil {
			return res, err
		}
	}

	res.Deltas = PriceDeltas(deltaBars)
	c := Analyze(res.Deltas, s.criteria.MinFluctuation, s.criteria.Degenerate)
	res.Fluctuations, res.Neutrals = c.Fluctuations, c.Neutrals
	if c.Volatile {
		res.Status = models.StatusVolatile
		s.log.Info().Str("symbol", symbol).Int("fluctuations", c.Fluctuations).Int("neutrals", c.Neutrals).Strs("deltas", res.Deltas.Strings()).Msg("significant fluctuations")
	} else {
		res.Status = models.StatusCalm
	}
	return res, nil
}

// ScreenAll screens every symbol with bounded concurrency. Results keep input
// order; gateway failures become FailureFetch and no-data verdicts are also
// reported as FailureNoData so callers can count them.
func (s *VolatilityScreener) ScreenAll(ctx context.Context, symbols []string) ([]models.VolatilityResult, []models.SymbolFailure) {
	type slot struct {
		res     models.VolatilityResult
		failure *models.SymbolFailure
	}
	slots := make([]slot, len(symbols))

	fanOut(ctx, len(symbols), s.parallel, func(ctx context.Context, i int) {
		sym := symbols[i]
		res, err := s.Screen(ctx, sym)
		if err != nil {
			s.log.Error().Str("symbol", sym).Str("stage", string(models.StageVolatility)).Err(err).Msg("historical data fetch failed")
			slots[i].failure = &models.SymbolFailure{Symbol: sym, Stage: models.StageVolatility, Kind: models.FailureFetch, Err: err}
			return
		}
		slots[i].res = res
		if res.Status == models.StatusNoData {
			slots[i].failure = &models.SymbolFailure{Symbol: sym, Stage: models.StageVolatility, Kind: models.FailureNoData}
		}
	})

	var results []models.VolatilityResult
	var failures []models.SymbolFailure
	for _, sl := range slots {
		if sl.failure != nil {
			failures = append(failures, *sl.failure)
			if sl.failure.Kind == models.FailureFetch {
				continue
			}
		}
		results = append(results, sl.res)
	}
	return results, failures
}

// PriceRange returns max(high), min(low) and their difference over bars.
// An empty slice yields zeros.
func PriceRange(bars []models.HistoricalBar) (maxHigh, minLow, rng float64) {
	if len(bars) == 0 {
		return 0, 0, 0
	}
	maxHigh = math.Inf(-1)
	minLow = math.Inf(1)
	for _, b := range bars {
		if b.High > maxHigh {
			maxHigh = b.High
		}
		if b.Low < minLow {
			minLow = b.Low
		}
	}
	return maxHigh, minLow, maxHigh - minLow
}

// PriceDeltas returns ceil(close - previousClose), held to two decimals, for
// every bar in order. The subtraction is done in decimal: in float64,
// 2.2 - 1.2 is 1.0000000000000002 and would ceil to 2.
func PriceDeltas(bars []models.HistoricalBar) models.PriceDeltaSeries {
	out := make(models.PriceDeltaSeries, len(bars))
	for i, b := range bars {
		diff := decimal.NewFromFloat(b.Close).Sub(decimal.NewFromFloat(b.PreviousClose))
		out[i] = diff.Ceil().Round(2)
	}
	return out
}

// Analyze scans consecutive pairs of series: |d[i] - d[i-1]| > minFluctuation
// counts as a fluctuation, anything else as neutral. The series is volatile
// when fluctuations >= neutrals. A series without pairs is decided by policy.
//
// Analyze is pure: the same input always yields the same classification.
func Analyze(series models.PriceDeltaSeries, minFluctuation float64, policy DegeneratePolicy) Classification {
	threshold := decimal.NewFromFloat(minFluctuation)
	var c Classification
	for i := 1; i < len(series); i++ {
		if series[i].Sub(series[i-1]).Abs().GreaterThan(threshold) {
			c.Fluctuations++
		} else {
			c.Neutrals++
		}
	}

	if len(series) < 2 && policy == DegenerateSkip {
		return c
	}
	c.Volatile = c.Fluctuations >= c.Neutrals
	return c
}
