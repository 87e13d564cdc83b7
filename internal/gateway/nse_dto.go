package gateway

// preOpenResponse is the subset of /api/market-data-pre-open used to list symbols.
type preOpenResponse struct {
	Data []struct {
		Metadata struct {
			Symbol string `json:"symbol"`
		} `json:"metadata"`
	} `json:"data"`
}

// quoteResponse is the subset of /api/quote-equity?symbol=X.
type quoteResponse struct {
	Info struct {
		Symbol string `json:"symbol"`
	} `json:"info"`
	PriceInfo struct {
		LastPrice float64 `json:"lastPrice"`
	} `json:"priceInfo"`
}

// tradeInfoResponse is the subset of /api/quote-equity?symbol=X&section=trade_info.
type tradeInfoResponse struct {
	MarketDeptOrderBook struct {
		TradeInfo struct {
			TotalMarketCap float64 `json:"totalMarketCap"`
			FFMC           float64 `json:"ffmc"`
		} `json:"tradeInfo"`
	} `json:"marketDeptOrderBook"`
}

// historicalResponse is one chunk of /api/historical/cm/equity.
type historicalResponse struct {
	Data []struct {
		Timestamp     string  `json:"CH_TIMESTAMP"`
		High          float64 `json:"CH_TRADE_HIGH_PRICE"`
		Low           float64 `json:"CH_TRADE_LOW_PRICE"`
		Close         float64 `json:"CH_CLOSING_PRICE"`
		PreviousClose float64 `json:"CH_PREVIOUS_CLS_PRICE"`
	} `json:"data"`
}
