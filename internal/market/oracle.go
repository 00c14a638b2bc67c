package market

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

// QuoteSource returns the exchange's full mid price table
type QuoteSource interface {
	AllMids(ctx context.Context) (map[string]string, error)
}

// UnavailableError reports that no quote snapshot could be obtained
type UnavailableError struct {
	Err error
}

func (e *UnavailableError) Error() string {
	if e.Err == nil {
		return "price data unavailable"
	}
	return fmt.Sprintf("price data unavailable: %v", e.Err)
}

func (e *UnavailableError) Unwrap() error {
	return e.Err
}

// PriceOracle fetches quote snapshots and prices logical assets
type PriceOracle struct {
	source   QuoteSource
	resolver *Resolver
	logger   zerolog.Logger
}

// NewPriceOracle creates an oracle over a quote source
func NewPriceOracle(source QuoteSource, resolver *Resolver, logger zerolog.Logger) *PriceOracle {
	return &PriceOracle{
		source:   source,
		resolver: resolver,
		logger:   logger,
	}
}

// FetchAllQuotes performs one round-trip for the full mid price table
func (o *PriceOracle) FetchAllQuotes(ctx context.Context) (Snapshot, error) {
	mids, err := o.source.AllMids(ctx)
	if err != nil {
		o.logger.Error().Err(err).Msg("Failed to fetch mids")
		return nil, &UnavailableError{Err: err}
	}
	if mids == nil {
		return nil, &UnavailableError{Err: fmt.Errorf("empty payload")}
	}

	o.logger.Debug().Int("markets", len(mids)).Msg("Fetched mids")
	return Snapshot(mids), nil
}

// PriceOf fetches a snapshot and resolves asset against it. The boolean is
// false when no alias has a positive price.
func (o *PriceOracle) PriceOf(ctx context.Context, asset string) (Quote, bool, error) {
	snapshot, err := o.FetchAllQuotes(ctx)
	if err != nil {
		return Quote{}, false, err
	}

	quote, ok := o.resolver.ResolveAsset(asset, snapshot)
	if !ok {
		o.logger.Warn().Str("asset", asset).Msg("No market with a positive price")
	}
	return quote, ok, nil
}

// Resolver returns the oracle's resolver
func (o *PriceOracle) Resolver() *Resolver {
	return o.resolver
}

// UnknownMarketError reports a market identifier the exchange does not list
type UnknownMarketError struct {
	MarketID string
}

func (e *UnknownMarketError) Error() string {
	return fmt.Sprintf("unknown market: %s", e.MarketID)
}
