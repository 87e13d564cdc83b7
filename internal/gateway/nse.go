package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/guttosm/nsepulse/config"
	"github.com/guttosm/nsepulse/internal/domain/models"
	"github.com/guttosm/nsepulse/internal/logger"
)

const (
	nseDateLayout       = "02-01-2006" // DD-MM-YYYY
	historicalChunkDays = 40
)

// NSEClient is the Gateway implementation backed by the NSE India JSON API.
type NSEClient struct {
	cfg     config.NSEConfig
	client  *http.Client
	limiter *rate.Limiter

	mu     sync.Mutex
	primed bool
}

var _ Gateway = (*NSEClient)(nil)

// NewNSEClient creates a client using cfg and the given HTTP client. A nil
// client gets NewHTTPClient(cfg.Timeout). A zero cfg.RateLimit disables limiting.
func NewNSEClient(cfg config.NSEConfig, client *http.Client) *NSEClient {
	if client == nil {
		client = NewHTTPClient(cfg.Timeout)
	}
	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}
	return &NSEClient{cfg: cfg, client: client, limiter: rate.NewLimiter(limit, 1)}
}

// ListSymbols returns every symbol in the pre-open market snapshot, sorted.
func (c *NSEClient) ListSymbols(ctx context.Context) ([]string, error) {
	var body preOpenResponse
	if err := c.getJSON(ctx, "/api/market-data-pre-open", url.Values{"key": {"ALL"}}, &body); err != nil {
		return nil, fmt.Errorf("list symbols: %w", err)
	}
	symbols := make([]string, 0, len(body.Data))
	for _, d := range body.Data {
		symbols = append(symbols, d.Metadata.Symbol)
	}
	sort.Strings(symbols)
	return symbols, nil
}

// GetDetails returns the last traded price of symbol.
func (c *NSEClient) GetDetails(ctx context.Context, symbol string) (models.EquityDetails, error) {
	var body quoteResponse
	if err := c.getJSON(ctx, "/api/quote-equity", url.Values{"symbol": {symbol}}, &body); err != nil {
		return models.EquityDetails{}, fmt.Errorf("equity details %s: %w", symbol, err)
	}
	// NSE answers unknown symbols with an empty object rather than a 404.
	if body.Info.Symbol == "" {
		return models.EquityDetails{}, fmt.Errorf("equity details %s: %w", symbol, ErrNotFound)
	}
	return models.EquityDetails{Symbol: body.Info.Symbol, LastPrice: body.PriceInfo.LastPrice}, nil
}

// GetTradeInfo returns the market capitalisation figures of symbol.
func (c *NSEClient) GetTradeInfo(ctx context.Context, symbol string) (models.TradeInfo, error) {
	var body tradeInfoResponse
	q := url.Values{"symbol": {symbol}, "section": {"trade_info"}}
	if err := c.getJSON(ctx, "/api/quote-equity", q, &body); err != nil {
		return models.TradeInfo{}, fmt.Errorf("trade info %s: %w", symbol, err)
	}
	ti := body.MarketDeptOrderBook.TradeInfo
	return models.TradeInfo{Symbol: symbol, FFMC: ti.FFMC, TotalMarketCap: ti.TotalMarketCap}, nil
}

// GetHistoricalBars returns EQ-series daily bars for r. Ranges longer than 40
// days are fetched in consecutive chunks and concatenated in chunk order; bars
// inside a chunk keep the provider's order.
func (c *NSEClient) GetHistoricalBars(ctx context.Context, symbol string, r models.DateRange) ([]models.HistoricalBar, error) {
	if err := r.Validate(); err != nil {
		return nil, fmt.Errorf("historical %s: %w", symbol, err)
	}

	var bars []models.HistoricalBar
	for _, chunk := range r.Chunks(historicalChunkDays) {
		q := url.Values{
			"symbol": {symbol},
			"series": {`["EQ"]`},
			"from":   {chunk.From.Format(nseDateLayout)},
			"to":     {chunk.To.Format(nseDateLayout)},
		}
		var body historicalResponse
		if err := c.getJSON(ctx, "/api/historical/cm/equity", q, &body); err != nil {
			return nil, fmt.Errorf("historical %s %s: %w", symbol, chunk, err)
		}
		for _, d := range body.Data {
			bar := models.HistoricalBar{
				High:          d.High,
				Low:           d.Low,
				Close:         d.Close,
				PreviousClose: d.PreviousClose,
			}
			if ts, err := time.Parse("2006-01-02", strings.TrimSpace(d.Timestamp)); err == nil {
				bar.Date = ts
			}
			bars = append(bars, bar)
		}
	}
	return bars, nil
}

// prime loads the homepage once so the cookie jar holds the session cookies
// the API requires.
func (c *NSEClient) prime(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.primed {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/", nil)
	if err != nil {
		return err
	}
	c.decorate(req)
	res, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("prime session: %w", err)
	}
	_, _ = io.Copy(io.Discard, res.Body)
	_ = res.Body.Close()
	if res.StatusCode >= 400 {
		return fmt.Errorf("prime session: nse http %d", res.StatusCode)
	}

	c.primed = true
	logger.L().Debug().Str("base_url", c.cfg.BaseURL).Msg("nse session primed")
	return nil
}

func (c *NSEClient) getJSON(ctx context.Context, path string, q url.Values, out any) error {
	if err := c.prime(ctx); err != nil {
		return err
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	u := c.cfg.BaseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	c.decorate(req)
	req.Header.Set("Accept", "application/json")

	res, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		if err := res.Body.Close(); err != nil {
			logger.L().Warn().Err(err).Msg("failed to close response body")
		}
	}()

	switch {
	case res.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case res.StatusCode >= 400:
		return fmt.Errorf("nse http %d", res.StatusCode)
	}

	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func (c *NSEClient) decorate(req *http.Request) {
	if c.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", c.cfg.UserAgent)
	}
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
}
