package models

// EquityDetails is the per-symbol quote snapshot used by the price band stage.
//
// Fields:
//   - Symbol: the NSE trading symbol (e.g., "RELIANCE").
//   - LastPrice: last traded price as reported by the provider.
type EquityDetails struct {
	Symbol    string  `json:"symbol"`
	LastPrice float64 `json:"last_price"`
}

// TradeInfo carries the market capitalisation figures for one symbol.
//
// Fields:
//   - FFMC: free-float market capitalisation.
//   - TotalMarketCap: total market capitalisation.
type TradeInfo struct {
	Symbol         string  `json:"symbol"`
	FFMC           float64 `json:"ffmc"`
	TotalMarketCap float64 `json:"total_market_cap"`
}

// FFMCRatio returns the free-float share of the total market cap as a
// percentage, (ffmc * 100) / totalMarketCap. It returns 0 when the total cap is
// not positive.
func (t TradeInfo) FFMCRatio() float64 {
	if t.TotalMarketCap <= 0 {
		return 0
	}
	return (t.FFMC * 100) / t.TotalMarketCap
}

// EligibleEquity is a symbol that passed both eligibility stages.
// LastPrice is the price recorded when the price band was evaluated.
type EligibleEquity struct {
	Symbol    string    `json:"symbol"`
	LastPrice float64   `json:"last_price"`
	TradeInfo TradeInfo `json:"trade_info"`
}
