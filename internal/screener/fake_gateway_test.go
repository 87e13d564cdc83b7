package screener

import (
	"context"
	"errors"
	"sync"

	"github.com/guttosm/nsepulse/internal/domain/models"
	"github.com/guttosm/nsepulse/internal/gateway"
)

var errOutage = errors.New("network error")

// fakeGateway is an in-memory Gateway. Symbols missing from a map return
// gateway.ErrNotFound; symbols in fail return errOutage.
type fakeGateway struct {
	symbols  []string
	listErr  error
	prices   map[string]float64
	trade    map[string]models.TradeInfo
	bars     map[string][]models.HistoricalBar
	fail     map[string]bool
	barsFail map[string]bool

	mu        sync.Mutex
	barCalls  map[string]int
	inFlight  int
	maxFlight int
}

var _ gateway.Gateway = (*fakeGateway)(nil)

func (f *fakeGateway) enter() func() {
	f.mu.Lock()
	f.inFlight++
	if f.inFlight > f.maxFlight {
		f.maxFlight = f.inFlight
	}
	f.mu.Unlock()
	return func() {
		f.mu.Lock()
		f.inFlight--
		f.mu.Unlock()
	}
}

func (f *fakeGateway) ListSymbols(context.Context) ([]string, error) {
	return f.symbols, f.listErr
}

func (f *fakeGateway) GetDetails(_ context.Context, symbol string) (models.EquityDetails, error) {
	defer f.enter()()
	if f.fail[symbol] {
		return models.EquityDetails{}, errOutage
	}
	p, ok := f.prices[symbol]
	if !ok {
		return models.EquityDetails{}, gateway.ErrNotFound
	}
	return models.EquityDetails{Symbol: symbol, LastPrice: p}, nil
}

func (f *fakeGateway) GetTradeInfo(_ context.Context, symbol string) (models.TradeInfo, error) {
	defer f.enter()()
	ti, ok := f.trade[symbol]
	if !ok {
		return models.TradeInfo{}, gateway.ErrNotFound
	}
	ti.Symbol = symbol
	return ti, nil
}

func (f *fakeGateway) GetHistoricalBars(_ context.Context, symbol string, _ models.DateRange) ([]models.HistoricalBar, error) {
	defer f.enter()()
	f.mu.Lock()
	if f.barCalls == nil {
		f.barCalls = map[string]int{}
	}
	f.barCalls[symbol]++
	f.mu.Unlock()
	if f.barsFail[symbol] {
		return nil, errOutage
	}
	return f.bars[symbol], nil
}

func (f *fakeGateway) calls(symbol string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.barCalls[symbol]
}

// barsOf builds bars from parallel high/low/close/previousClose slices; nil
// slices default to zero.
func barsOf(highs, lows, closes, prev []float64) []models.HistoricalBar {
	n := len(highs)
	out := make([]models.HistoricalBar, n)
	for i := 0; i < n; i++ {
		out[i].High = highs[i]
		out[i].Low = lows[i]
		if closes != nil {
			out[i].Close = closes[i]
		}
		if prev != nil {
			out[i].PreviousClose = prev[i]
		}
	}
	return out
}
