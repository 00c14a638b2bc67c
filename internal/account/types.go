package account

// PriceInfo is one market's mid price
type PriceInfo struct {
	Coin  string `json:"coin"`
	Price string `json:"price"`
}

// OrderLevel is one aggregated book level
type OrderLevel struct {
	Price string `json:"price"`
	Size  string `json:"size"`
}

// Orderbook holds the top levels of each side
type Orderbook struct {
	Coin string       `json:"coin"`
	Bids []OrderLevel `json:"bids"`
	Asks []OrderLevel `json:"asks"`
}

// TokenBalance is a spot token balance
type TokenBalance struct {
	Coin  string `json:"coin"`
	Total string `json:"total"`
	Hold  string `json:"hold"`
}

// AssetInfo describes a perp asset
type AssetInfo struct {
	Name       string `json:"name"`
	SzDecimals int    `json:"sz_decimals"`
}

// ExchangeMeta is a summary of the perp universe
type ExchangeMeta struct {
	TotalAssets int         `json:"total_assets"`
	Assets      []AssetInfo `json:"assets"`
}

// Candle is one OHLCV bar
type Candle struct {
	TimeOpen  int64  `json:"time_open"`
	TimeClose int64  `json:"time_close"`
	Coin      string `json:"coin"`
	Interval  string `json:"interval"`
	Open      string `json:"open"`
	Close     string `json:"close"`
	High      string `json:"high"`
	Low       string `json:"low"`
	Volume    string `json:"volume"`
	NumTrades int    `json:"num_trades"`
}

// UserFill is one trade execution of the user
type UserFill struct {
	Coin          string  `json:"coin"`
	Px            string  `json:"px"`
	Sz            string  `json:"sz"`
	Side          string  `json:"side"`
	Time          int64   `json:"time"`
	StartPosition string  `json:"start_position"`
	Dir           string  `json:"dir"`
	ClosedPnl     string  `json:"closed_pnl"`
	Hash          string  `json:"hash"`
	Oid           uint64  `json:"oid"`
	Crossed       bool    `json:"crossed"`
	Fee           *string `json:"fee,omitempty"`
	Tid           *uint64 `json:"tid,omitempty"`
	FeeToken      *string `json:"fee_token,omitempty"`
}

// OpenOrder is a resting order of the user
type OpenOrder struct {
	Coin       string  `json:"coin"`
	Side       string  `json:"side"`
	LimitPx    string  `json:"limit_px"`
	Size       string  `json:"size"`
	OrigSize   string  `json:"orig_size"`
	Oid        uint64  `json:"oid"`
	Timestamp  int64   `json:"timestamp"`
	OrderType  string  `json:"order_type"`
	Tif        string  `json:"tif,omitempty"`
	ReduceOnly bool    `json:"reduce_only"`
	Cloid      *string `json:"cloid,omitempty"`
}
