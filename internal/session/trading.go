package session

import (
	"context"

	"hlexec/internal/normalizer"
	"hlexec/internal/orders"
)

// SwapByNotional buys the configured swap asset for a quote-currency amount
func (s *Session) SwapByNotional(ctx context.Context, notional string) orders.OrderResult {
	return s.Execute(ctx, orders.SwapByNotional{Notional: notional})
}

// PlaceLimitOrder places a limit order on asset at the caller's price
func (s *Session) PlaceLimitOrder(ctx context.Context, asset string, isBuy bool, size, price, timeInForce string) orders.OrderResult {
	return s.Execute(ctx, orders.ExplicitLimit{
		Asset:       asset,
		IsBuy:       isBuy,
		Size:        size,
		Price:       price,
		TimeInForce: timeInForce,
	})
}

// PlaceBuyByNotional places a Gtc buy on the swap market sized from notional
// at limitPrice
func (s *Session) PlaceBuyByNotional(ctx context.Context, notional, limitPrice string) orders.OrderResult {
	return s.Execute(ctx, orders.ExplicitLimit{
		Asset:       s.swapMarket(),
		IsBuy:       true,
		Notional:    notional,
		Price:       limitPrice,
		TimeInForce: string(normalizer.GoodTillCancel),
	})
}

// PlaceSellOrder places a Gtc sell of size on the swap market at limitPrice
func (s *Session) PlaceSellOrder(ctx context.Context, size, limitPrice string) orders.OrderResult {
	return s.Execute(ctx, orders.ExplicitLimit{
		Asset:       s.swapMarket(),
		IsBuy:       false,
		Size:        size,
		Price:       limitPrice,
		TimeInForce: string(normalizer.GoodTillCancel),
	})
}

// CancelOrder cancels a resting order on asset
func (s *Session) CancelOrder(ctx context.Context, asset string, orderID uint64) orders.OrderResult {
	return s.Execute(ctx, orders.Cancel{Asset: asset, OrderID: orderID})
}

// Execute runs one order intent
func (s *Session) Execute(ctx context.Context, intent orders.Intent) orders.OrderResult {
	ctx, done, err := s.begin(ctx)
	if err != nil {
		return orders.OrderResult{Success: false, Message: "Session closed", Kind: orders.KindConfiguration}
	}
	defer done()

	return s.executor.Execute(ctx, intent)
}

// swapMarket is the preferred market of the swap asset
func (s *Session) swapMarket() string {
	return s.aliases.Aliases(s.cfg.Trading.SwapAsset)[0]
}
