package screener

import (
	"fmt"

	"github.com/guttosm/nsepulse/config"
	"github.com/guttosm/nsepulse/internal/domain/models"
)

// DegeneratePolicy decides how a delta series with no consecutive pairs
// (length 0 or 1) is classified. Both counts are zero for such a series.
type DegeneratePolicy string

const (
	// DegenerateVolatile keeps the literal rule: 0 fluctuations >= 0 neutrals is volatile.
	DegenerateVolatile DegeneratePolicy = "volatile"
	// DegenerateSkip classifies series without pairs as calm.
	DegenerateSkip DegeneratePolicy = "skip"
)

// ParseDegeneratePolicy maps a config value to a policy.
func ParseDegeneratePolicy(s string) (DegeneratePolicy, error) {
	switch DegeneratePolicy(s) {
	case DegenerateVolatile, DegenerateSkip:
		return DegeneratePolicy(s), nil
	default:
		return "", fmt.Errorf("unknown degenerate policy %q", s)
	}
}

// Criteria holds every threshold of the screening pipeline.
type Criteria struct {
	PriceMin          float64
	PriceMax          float64
	MinTotalMarketCap float64
	FFMCRatioMin      float64
	FFMCRatioMax      float64
	RangeThreshold    float64
	MinFluctuation    float64
	HighLowWindow     models.DateRange
	DeltaWindow       models.DateRange
	Degenerate        DegeneratePolicy
}

// DefaultCriteria returns the stock thresholds: price 1000..4000, total cap
// >= 10000, ffmc ratio 50..75, range >= 300, fluctuation > 20.
func DefaultCriteria(highLow models.DateRange) Criteria {
	return Criteria{
		PriceMin:          1000,
		PriceMax:          4000,
		MinTotalMarketCap: 10000,
		FFMCRatioMin:      50,
		FFMCRatioMax:      75,
		RangeThreshold:    300,
		MinFluctuation:    20,
		HighLowWindow:     highLow,
		DeltaWindow:       highLow,
		Degenerate:        DegenerateVolatile,
	}
}

// CriteriaFromConfig builds Criteria from the screening configuration.
func CriteriaFromConfig(cfg config.ScreenConfig) (Criteria, error) {
	policy, err := ParseDegeneratePolicy(cfg.DegeneratePolicy)
	if err != nil {
		return Criteria{}, err
	}
	c := Criteria{
		PriceMin:          cfg.PriceMin,
		PriceMax:          cfg.PriceMax,
		MinTotalMarketCap: cfg.MinTotalMarketCap,
		FFMCRatioMin:      cfg.FFMCRatioMin,
		FFMCRatioMax:      cfg.FFMCRatioMax,
		RangeThreshold:    cfg.RangeThreshold,
		MinFluctuation:    cfg.MinFluctuation,
		HighLowWindow:     models.DateRange{From: cfg.HighLowFrom, To: cfg.HighLowTo},
		DeltaWindow:       models.DateRange{From: cfg.DeltaFrom, To: cfg.DeltaTo},
		Degenerate:        policy,
	}
	if err := c.HighLowWindow.Validate(); err != nil {
		return Criteria{}, fmt.Errorf("high/low window: %w", err)
	}
	if err := c.DeltaWindow.Validate(); err != nil {
		return Criteria{}, fmt.Errorf("delta window: %w", err)
	}
	return c, nil
}

// InPriceBand reports PriceMin <= price <= PriceMax.
func (c Criteria) InPriceBand(price float64) bool {
	return price >= c.PriceMin && price <= c.PriceMax
}

// MarketCapEligible reports totalMarketCap >= MinTotalMarketCap and
// FFMCRatioMin <= ratio <= FFMCRatioMax.
func (c Criteria) MarketCapEligible(ti models.TradeInfo) bool {
	if ti.TotalMarketCap < c.MinTotalMarketCap || ti.TotalMarketCap <= 0 {
		return false
	}
	ratio := ti.FFMCRatio()
	return ratio >= c.FFMCRatioMin && ratio <= c.FFMCRatioMax
}
