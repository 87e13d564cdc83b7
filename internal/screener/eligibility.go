package screener

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/guttosm/nsepulse/internal/domain/models"
	"github.com/guttosm/nsepulse/internal/gateway"
	"github.com/guttosm/nsepulse/internal/logger"
)

// EligibilityResult is the output of both eligibility stages.
type EligibilityResult struct {
	PriceEligible []models.EquityDetails
	Eligible      []models.EligibleEquity
	Failures      []models.SymbolFailure
}

// EligibilityFilter narrows the symbol universe with the price band, then the
// free-float/market-cap ratio.
//
// Each stage issues one gateway call per symbol with at most `parallel` in
// flight, waits for the whole batch, and returns survivors in input order.
// A failed call drops that symbol only.
type EligibilityFilter struct {
	gw       gateway.Gateway
	criteria Criteria
	parallel int
	log      zerolog.Logger
}

// NewEligibilityFilter creates a filter. parallel < 1 is treated as 1.
func NewEligibilityFilter(gw gateway.Gateway, criteria Criteria, parallel int) *EligibilityFilter {
	if parallel < 1 {
		parallel = 1
	}
	return &EligibilityFilter{gw: gw, criteria: criteria, parallel: parallel, log: logger.Component("eligibility")}
}

// Run executes both stages over symbols.
func (f *EligibilityFilter) Run(ctx context.Context, symbols []string) EligibilityResult {
	priced, failures := f.FilterByPrice(ctx, symbols)
	f.log.Info().Int("universe", len(symbols)).Int("price_eligible", len(priced)).Msg("price band done")

	eligible, capFailures := f.FilterByMarketCap(ctx, priced)
	f.log.Info().Int("eligible", len(eligible)).Msg("market cap filter done")

	return EligibilityResult{
		PriceEligible: priced,
		Eligible:      eligible,
		Failures:      append(failures, capFailures...),
	}
}

// FilterByPrice fetches equity details for every valid symbol and keeps those
// whose last price lies in the configured band. Invalid symbols are reported
// as FailureInvalidSymbol, duplicates are collapsed.
func (f *EligibilityFilter) FilterByPrice(ctx context.Context, symbols []string) ([]models.EquityDetails, []models.SymbolFailure) {
	valid, failures := f.validate(symbols)

	type slot struct {
		details models.EquityDetails
		keep    bool
		failure *models.SymbolFailure
	}
	slots := make([]slot, len(valid))

	start := time.Now()
	fanOut(ctx, len(valid), f.parallel, func(ctx context.Context, i int) {
		sym := valid[i]
		f.log.Debug().Str("symbol", sym).Msg("fetching equity details")
		d, err := f.gw.GetDetails(ctx, sym)
		if err != nil {
			f.log.Error().Str("symbol", sym).Str("stage", string(models.StagePrice)).Err(err).Msg("equity details fetch failed")
			slots[i].failure = &models.SymbolFailure{Symbol: sym, Stage: models.StagePrice, Kind: models.FailureFetch, Err: err}
			return
		}
		if d.Symbol == "" {
			d.Symbol = sym
		}
		slots[i] = slot{details: d, keep: f.criteria.InPriceBand(d.LastPrice)}
	})

	var out []models.EquityDetails
	for _, s := range slots {
		switch {
		case s.failure != nil:
			failures = append(failures, *s.failure)
		case s.keep:
			out = append(out, s.details)
		}
	}
	f.log.Debug().Dur("elapsed", time.Since(start)).Int("symbols", len(valid)).Msg("price stage batch joined")
	return out, failures
}

// FilterByMarketCap fetches trade info for every price survivor and keeps those
// meeting the total cap floor and the ffmc ratio band.
func (f *EligibilityFilter) FilterByMarketCap(ctx context.Context, priced []models.EquityDetails) ([]models.EligibleEquity, []models.SymbolFailure) {
	type slot struct {
		equity  models.EligibleEquity
		keep    bool
		failure *models.SymbolFailure
	}
	slots := make([]slot, len(priced))

	fanOut(ctx, len(priced), f.parallel, func(ctx context.Context, i int) {
		d := priced[i]
		ti, err := f.gw.GetTradeInfo(ctx, d.Symbol)
		if err != nil {
			f.log.Error().Str("symbol", d.Symbol).Str("stage", string(models.StageMarketCap)).Err(err).Msg("trade info fetch failed")
			slots[i].failure = &models.SymbolFailure{Symbol: d.Symbol, Stage: models.StageMarketCap, Kind: models.FailureFetch, Err: err}
			return
		}
		if ti.Symbol == "" {
			ti.Symbol = d.Symbol
		}
		slots[i] = slot{
			equity: models.EligibleEquity{Symbol: d.Symbol, LastPrice: d.LastPrice, TradeInfo: ti},
			keep:   f.criteria.MarketCapEligible(ti),
		}
		f.log.Debug().Str("symbol", d.Symbol).Float64("ffmc_ratio", ti.FFMCRatio()).Bool("eligible", slots[i].keep).Msg("trade info evaluated")
	})

	var out []models.EligibleEquity
	var failures []models.SymbolFailure
	for _, s := range slots {
		switch {
		case s.failure != nil:
			failures = append(failures, *s.failure)
		case s.keep:
			out = append(out, s.equity)
		}
	}
	return out, failures
}

// validate trims symbols, reports empty or malformed ones and drops duplicates.
func (f *EligibilityFilter) validate(symbols []string) ([]string, []models.SymbolFailure) {
	seen := make(map[string]struct{}, len(symbols))
	valid := make([]string, 0, len(symbols))
	var failures []models.SymbolFailure

	for _, raw := range symbols {
		sym, ok := NormalizeSymbol(raw)
		if !ok {
			f.log.Warn().Str("symbol", raw).Msg("invalid symbol encountered")
			failures = append(failures, models.SymbolFailure{Symbol: raw, Stage: models.StagePrice, Kind: models.FailureInvalidSymbol})
			continue
		}
		if _, dup := seen[sym]; dup {
			f.log.Debug().Str("symbol", sym).Msg("duplicate symbol skipped")
			continue
		}
		seen[sym] = struct{}{}
		valid = append(valid, sym)
	}
	return valid, failures
}

// NormalizeSymbol trims s and reports whether it is a usable identifier:
// non-empty and free of whitespace, commas and control characters.
func NormalizeSymbol(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	for _, r := range s {
		if r == ',' || r == '/' || r == '\\' || r <= ' ' || r == 0x7f {
			return "", false
		}
	}
	return s, true
}

// fanOut runs fn for every index in [0, n) with at most limit calls in flight
// and returns once all of them finished. fn must record its own outcome; it
// cannot fail the batch.
func fanOut(ctx context.Context, n, limit int, fn func(ctx context.Context, i int)) {
	g, gctx := errgroup.WithContext(ctx)
	sem := make(chan struct{}, limit)

	for i := 0; i < n; i++ {
		idx := i
		sem <- struct{}{}
		g.Go(func() error {
			defer func() { <-sem }()
			fn(gctx, idx)
			return nil
		})
	}
	_ = g.Wait() // goroutines never return errors
}
