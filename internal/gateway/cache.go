package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/guttosm/nsepulse/internal/domain/models"
	"github.com/guttosm/nsepulse/internal/logger"
)

// CachingGateway decorates a Gateway with Redis caching of historical bars and
// trade info. Symbol listing and quotes always go to the provider since the
// price band depends on the latest trade.
//
// Cache failures never fail a call: a miss, a Redis error or a corrupt entry
// all fall through to the inner gateway.
type CachingGateway struct {
	inner     Gateway
	rdb       *redis.Client
	ttl       time.Duration
	namespace string
}

var _ Gateway = (*CachingGateway)(nil)

// NewCachingGateway wraps inner. If ttl is 0 it defaults to 6 hours; an empty
// namespace becomes "nse".
func NewCachingGateway(rdb *redis.Client, ttl time.Duration, inner Gateway, namespace string) *CachingGateway {
	if ttl <= 0 {
		ttl = 6 * time.Hour
	}
	if namespace == "" {
		namespace = "nse"
	}
	return &CachingGateway{inner: inner, rdb: rdb, ttl: ttl, namespace: namespace}
}

func (c *CachingGateway) ListSymbols(ctx context.Context) ([]string, error) {
	return c.inner.ListSymbols(ctx)
}

func (c *CachingGateway) GetDetails(ctx context.Context, symbol string) (models.EquityDetails, error) {
	return c.inner.GetDetails(ctx, symbol)
}

// GetTradeInfo checks the cache first, then falls back to the inner gateway.
func (c *CachingGateway) GetTradeInfo(ctx context.Context, symbol string) (models.TradeInfo, error) {
	key := c.key("tradeinfo", symbol)
	var cached models.TradeInfo
	if c.load(ctx, key, &cached) {
		return cached, nil
	}

	ti, err := c.inner.GetTradeInfo(ctx, symbol)
	if err != nil {
		return models.TradeInfo{}, err
	}
	c.store(ctx, key, ti)
	return ti, nil
}

// GetHistoricalBars checks the cache first, then falls back to the inner
// gateway. Empty results are not cached so a later run can pick up new data.
func (c *CachingGateway) GetHistoricalBars(ctx context.Context, symbol string, r models.DateRange) ([]models.HistoricalBar, error) {
	key := c.key("bars", symbol, r.From.Format("20060102"), r.To.Format("20060102"))
	var cached []models.HistoricalBar
	if c.load(ctx, key, &cached) && len(cached) > 0 {
		return cached, nil
	}

	bars, err := c.inner.GetHistoricalBars(ctx, symbol, r)
	if err != nil {
		return nil, err
	}
	if len(bars) > 0 {
		c.store(ctx, key, bars)
	}
	return bars, nil
}

func (c *CachingGateway) load(ctx context.Context, key string, out any) bool {
	if c.rdb == nil {
		return false
	}
	b, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil || len(b) == 0 {
		return false
	}
	if err := json.Unmarshal(b, out); err != nil {
		// Delete corrupted cache entry
		_ = c.rdb.Del(ctx, key).Err()
		logger.L().Warn().Str("key", key).Err(err).Msg("dropped corrupt cache entry")
		return false
	}
	return true
}

func (c *CachingGateway) store(ctx context.Context, key string, v any) {
	if c.rdb == nil {
		return
	}
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, key, b, c.ttl).Err(); err != nil {
		logger.L().Debug().Str("key", key).Err(err).Msg("cache store failed")
	}
}

// key builds "<namespace>:<kind>:<part>:<part>" with parts upper-cased and
// stripped of separators.
func (c *CachingGateway) key(kind string, parts ...string) string {
	clean := make([]string, 0, len(parts)+2)
	clean = append(clean, c.namespace, kind)
	for _, p := range parts {
		clean = append(clean, safe(p))
	}
	return strings.Join(clean, ":")
}

func safe(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	return strings.NewReplacer(":", "_", " ", "_", "*", "_").Replace(s)
}

// String describes the cache for logs.
func (c *CachingGateway) String() string {
	return fmt.Sprintf("redis cache ns=%s ttl=%s", c.namespace, c.ttl)
}
