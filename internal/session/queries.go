package session

import (
	"context"
	"strings"

	"hlexec/internal/account"
	"hlexec/internal/market"
)

// AllMids returns every mid price, configured markets first
func (s *Session) AllMids(ctx context.Context) ([]account.PriceInfo, error) {
	ctx, done, err := s.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer done()

	snapshot, err := s.oracle.FetchAllQuotes(ctx)
	if err != nil {
		return nil, err
	}
	return account.PriceList(snapshot, s.priorityMarkets()), nil
}

// PriceOf resolves a logical asset against a fresh snapshot. The boolean is
// false when no alias has a positive price.
func (s *Session) PriceOf(ctx context.Context, asset string) (market.Quote, bool, error) {
	ctx, done, err := s.begin(ctx)
	if err != nil {
		return market.Quote{}, false, err
	}
	defer done()

	return s.oracle.PriceOf(ctx, asset)
}

// L2Orderbook returns the top levels of a market's book
func (s *Session) L2Orderbook(ctx context.Context, coin string) (*account.Orderbook, error) {
	ctx, done, err := s.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer done()

	return s.account.L2Orderbook(ctx, coin)
}

// TokenBalances returns the spot balances of address
func (s *Session) TokenBalances(ctx context.Context, address string) ([]account.TokenBalance, error) {
	ctx, done, err := s.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer done()

	return s.account.TokenBalances(ctx, address)
}

// Meta summarizes the perp universe
func (s *Session) Meta(ctx context.Context) (*account.ExchangeMeta, error) {
	ctx, done, err := s.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer done()

	return s.account.Meta(ctx)
}

// SpotPairs lists spot pairs as "BASE/QUOTE"
func (s *Session) SpotPairs(ctx context.Context) ([]string, error) {
	ctx, done, err := s.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer done()

	return s.account.SpotPairs(ctx)
}

// Candles returns OHLCV bars between two millisecond timestamps
func (s *Session) Candles(ctx context.Context, coin, interval string, startTime, endTime int64) ([]account.Candle, error) {
	ctx, done, err := s.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer done()

	return s.account.Candles(ctx, coin, interval, startTime, endTime)
}

// UserFills returns fills of address from startTime, optionally up to endTime
func (s *Session) UserFills(ctx context.Context, address string, startTime int64, endTime *int64) ([]account.UserFill, error) {
	ctx, done, err := s.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer done()

	return s.account.UserFillsByTime(ctx, address, startTime, endTime)
}

// OpenOrders returns the resting orders of address
func (s *Session) OpenOrders(ctx context.Context, address string) ([]account.OpenOrder, error) {
	ctx, done, err := s.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer done()

	return s.account.OpenOrders(ctx, address)
}

// priorityMarkets lists the swap asset's aliases, then the other assets'
func (s *Session) priorityMarkets() []string {
	markets := s.aliases.Aliases(s.cfg.Trading.SwapAsset)
	for _, asset := range s.aliases.Assets() {
		if !strings.EqualFold(asset, s.cfg.Trading.SwapAsset) {
			markets = append(markets, s.aliases.Aliases(asset)...)
		}
	}
	return markets
}
