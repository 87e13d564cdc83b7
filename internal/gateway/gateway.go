// Package gateway provides access to the equity market data provider.
package gateway

import (
	"context"
	"errors"

	"github.com/guttosm/nsepulse/internal/domain/models"
)

// ErrNotFound is returned when the provider does not know the requested symbol.
var ErrNotFound = errors.New("symbol not found")

// Gateway defines the contract for fetching market data.
//
// Implementations must be safe for concurrent use: the screener issues one
// call per symbol from several goroutines.
type Gateway interface {
	// ListSymbols returns the full symbol universe.
	ListSymbols(ctx context.Context) ([]string, error)
	// GetDetails returns the quote snapshot (last traded price) of a symbol.
	GetDetails(ctx context.Context, symbol string) (models.EquityDetails, error)
	// GetTradeInfo returns the free-float and total market capitalisation of a symbol.
	GetTradeInfo(ctx context.Context, symbol string) (models.TradeInfo, error)
	// GetHistoricalBars returns the daily bars for the range. An empty slice with a
	// nil error means the provider has no data.
	GetHistoricalBars(ctx context.Context, symbol string, r models.DateRange) ([]models.HistoricalBar, error)
}
