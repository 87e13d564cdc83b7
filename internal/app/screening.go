package app

import (
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/guttosm/nsepulse/config"
	"github.com/guttosm/nsepulse/internal/gateway"
	"github.com/guttosm/nsepulse/internal/logger"
	"github.com/guttosm/nsepulse/internal/report"
	"github.com/guttosm/nsepulse/internal/screener"
)

// InitGateway builds the NSE client, wrapped in the Redis cache when rdb is
// non-nil.
func InitGateway(cfg config.Config, rdb *redis.Client) gateway.Gateway {
	var gw gateway.Gateway = gateway.NewNSEClient(cfg.NSE, nil)
	if rdb == nil {
		return gw
	}
	cached := gateway.NewCachingGateway(rdb, cfg.Redis.TTL, gw, "nse")
	logger.L().Info().Str("cache", cached.String()).Msg("historical data cache enabled")
	return cached
}

// NewPipeline assembles the screening pipeline from cfg. recorder may be nil
// to skip run history.
func NewPipeline(cfg config.Config, gw gateway.Gateway, recorder screener.RunRecorder) (*screener.Pipeline, error) {
	criteria, err := screener.CriteriaFromConfig(cfg.Screen)
	if err != nil {
		return nil, fmt.Errorf("invalid screening criteria: %w", err)
	}
	writer := report.NewFileWriter(cfg.Output.EligibleFile, cfg.Output.StockDir)
	return screener.NewPipeline(gw, criteria, cfg.Screen.Concurrency, writer, recorder), nil
}
