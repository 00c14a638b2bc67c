package account

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"

	"hlexec/internal/hyperliquid"
)

const (
	// BookDepth is the number of levels returned per side
	BookDepth = 5
	// MetaPreview is the number of perp assets listed by Meta
	MetaPreview = 10
)

// InfoClient is the read-only part of the exchange API
type InfoClient interface {
	Meta(ctx context.Context) (*hyperliquid.Meta, error)
	SpotMeta(ctx context.Context) (*hyperliquid.SpotMeta, error)
	L2Book(ctx context.Context, coin string) (*hyperliquid.L2Book, error)
	SpotClearinghouseState(ctx context.Context, user string) (*hyperliquid.SpotClearinghouseState, error)
	CandleSnapshot(ctx context.Context, coin, interval string, startTime, endTime int64) ([]hyperliquid.Candle, error)
	UserFillsByTime(ctx context.Context, user string, startTime int64, endTime *int64) ([]hyperliquid.Fill, error)
	FrontendOpenOrders(ctx context.Context, user string) ([]hyperliquid.OpenOrder, error)
}

// Client maps info queries to DTOs. Every failure is returned as an error.
type Client struct {
	info   InfoClient
	logger zerolog.Logger
}

// NewClient creates an account client
func NewClient(info InfoClient, logger zerolog.Logger) *Client {
	return &Client{info: info, logger: logger}
}

// TokenBalances returns the spot balances of address
func (c *Client) TokenBalances(ctx context.Context, address string) ([]TokenBalance, error) {
	user, err := normalizeAddress(address)
	if err != nil {
		return nil, err
	}

	state, err := c.info.SpotClearinghouseState(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("failed to get balances: %w", err)
	}

	balances := make([]TokenBalance, 0, len(state.Balances))
	for _, b := range state.Balances {
		balances = append(balances, TokenBalance{Coin: b.Coin, Total: b.Total, Hold: b.Hold})
	}
	return balances, nil
}

// L2Orderbook returns the top BookDepth levels of each side
func (c *Client) L2Orderbook(ctx context.Context, coin string) (*Orderbook, error) {
	book, err := c.info.L2Book(ctx, coin)
	if err != nil {
		return nil, fmt.Errorf("failed to get L2 snapshot: %w", err)
	}

	return &Orderbook{
		Coin: coin,
		Bids: topLevels(book.Bids()),
		Asks: topLevels(book.Asks()),
	}, nil
}

// Candles returns OHLCV bars between two millisecond timestamps
func (c *Client) Candles(ctx context.Context, coin, interval string, startTime, endTime int64) ([]Candle, error) {
	if interval == "" {
		return nil, fmt.Errorf("interval is required")
	}
	if endTime < startTime {
		return nil, fmt.Errorf("end time %d is before start time %d", endTime, startTime)
	}

	raw, err := c.info.CandleSnapshot(ctx, coin, interval, startTime, endTime)
	if err != nil {
		return nil, fmt.Errorf("failed to get candles: %w", err)
	}

	candles := make([]Candle, 0, len(raw))
	for _, k := range raw {
		candles = append(candles, Candle{
			TimeOpen:  k.OpenTime,
			TimeClose: k.CloseTime,
			Coin:      k.Symbol,
			Interval:  k.Interval,
			Open:      k.Open,
			Close:     k.Close,
			High:      k.High,
			Low:       k.Low,
			Volume:    k.Volume,
			NumTrades: k.Trades,
		})
	}
	return candles, nil
}

// UserFillsByTime returns fills from startTime, optionally up to endTime
func (c *Client) UserFillsByTime(ctx context.Context, address string, startTime int64, endTime *int64) ([]UserFill, error) {
	user, err := normalizeAddress(address)
	if err != nil {
		return nil, err
	}

	raw, err := c.info.UserFillsByTime(ctx, user, startTime, endTime)
	if err != nil {
		return nil, fmt.Errorf("failed to get user fills: %w", err)
	}

	fills := make([]UserFill, 0, len(raw))
	for _, f := range raw {
		fill := UserFill{
			Coin:          f.Coin,
			Px:            f.Px,
			Sz:            f.Sz,
			Side:          f.Side,
			Time:          f.Time,
			StartPosition: f.StartPosition,
			Dir:           f.Dir,
			ClosedPnl:     f.ClosedPnl,
			Hash:          f.Hash,
			Oid:           f.Oid,
			Crossed:       f.Crossed,
			Fee:           optionalString(f.Fee),
			FeeToken:      optionalString(f.FeeToken),
		}
		if f.Tid != 0 {
			tid := f.Tid
			fill.Tid = &tid
		}
		fills = append(fills, fill)
	}
	return fills, nil
}

// OpenOrders returns the resting orders of address
func (c *Client) OpenOrders(ctx context.Context, address string) ([]OpenOrder, error) {
	user, err := normalizeAddress(address)
	if err != nil {
		return nil, err
	}

	raw, err := c.info.FrontendOpenOrders(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("failed to get open orders: %w", err)
	}

	orders := make([]OpenOrder, 0, len(raw))
	for _, o := range raw {
		orders = append(orders, OpenOrder{
			Coin:       o.Coin,
			Side:       o.Side,
			LimitPx:    o.LimitPx,
			Size:       o.Sz,
			OrigSize:   o.OrigSz,
			Oid:        o.Oid,
			Timestamp:  o.Timestamp,
			OrderType:  o.OrderType,
			Tif:        o.Tif,
			ReduceOnly: o.ReduceOnly,
			Cloid:      o.Cloid,
		})
	}
	return orders, nil
}

// Meta returns the first MetaPreview perp assets and the total count
func (c *Client) Meta(ctx context.Context) (*ExchangeMeta, error) {
	meta, err := c.info.Meta(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get meta: %w", err)
	}

	n := min(len(meta.Universe), MetaPreview)
	assets := make([]AssetInfo, 0, n)
	for _, a := range meta.Universe[:n] {
		assets = append(assets, AssetInfo{Name: a.Name, SzDecimals: a.SzDecimals})
	}

	return &ExchangeMeta{TotalAssets: len(meta.Universe), Assets: assets}, nil
}

// SpotPairs returns every spot pair as "BASE/QUOTE"
func (c *Client) SpotPairs(ctx context.Context) ([]string, error) {
	meta, err := c.info.SpotMeta(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get spot meta: %w", err)
	}

	pairs := make([]string, 0, len(meta.Universe))
	for _, pair := range meta.Universe {
		if name, ok := meta.PairName(pair); ok {
			pairs = append(pairs, name)
		}
	}
	return pairs, nil
}

// PriceList renders a mids snapshot with the priority markets first, in
// order, followed by the rest sorted by market id
func PriceList(mids map[string]string, priority []string) []PriceInfo {
	prices := make([]PriceInfo, 0, len(mids))
	seen := make(map[string]bool, len(priority))

	for _, coin := range priority {
		price, ok := mids[coin]
		if !ok || seen[coin] {
			continue
		}
		seen[coin] = true
		prices = append(prices, PriceInfo{Coin: coin, Price: price})
	}

	rest := make([]string, 0, len(mids))
	for coin := range mids {
		if !seen[coin] {
			rest = append(rest, coin)
		}
	}
	sort.Strings(rest)

	for _, coin := range rest {
		prices = append(prices, PriceInfo{Coin: coin, Price: mids[coin]})
	}
	return prices
}

func topLevels(levels []hyperliquid.L2Level) []OrderLevel {
	n := min(len(levels), BookDepth)
	out := make([]OrderLevel, 0, n)
	for _, level := range levels[:n] {
		out = append(out, OrderLevel{Price: level.Px, Size: level.Sz})
	}
	return out
}

// normalizeAddress validates a wallet address and lowercases it for the API
func normalizeAddress(address string) (string, error) {
	trimmed := strings.TrimSpace(address)
	if !common.IsHexAddress(trimmed) {
		return "", fmt.Errorf("invalid address: %s", address)
	}
	return strings.ToLower(common.HexToAddress(trimmed).Hex()), nil
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
