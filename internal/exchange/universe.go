package exchange

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"hlexec/internal/hyperliquid"
	"hlexec/internal/market"
)

// SpotAssetOffset is added to a spot pair index to form its asset index
const SpotAssetOffset = 10000

// MetaSource provides the perp and spot universes
type MetaSource interface {
	Meta(ctx context.Context) (*hyperliquid.Meta, error)
	SpotMeta(ctx context.Context) (*hyperliquid.SpotMeta, error)
}

// Universe caches the mapping from market identifiers to asset indices
type Universe struct {
	source    MetaSource
	assets    map[string]uint32
	cacheMu   sync.RWMutex
	refreshMu sync.Mutex
	cacheTime time.Time
	cacheTTL  time.Duration
	logger    zerolog.Logger
}

// NewUniverse creates an empty universe that loads on first use
func NewUniverse(source MetaSource, cacheTTL time.Duration, logger zerolog.Logger) *Universe {
	return &Universe{
		source:   source,
		assets:   make(map[string]uint32),
		cacheTTL: cacheTTL,
		logger:   logger,
	}
}

// AssetIndex resolves a market identifier such as "BTC", "@142" or
// "UBTC/USDC" to the asset index used in signed actions. Known identifiers
// are served from the cache whatever its age, so placing an order costs no
// extra round-trip. A miss reloads the universe only when it is stale.
func (u *Universe) AssetIndex(ctx context.Context, marketID string) (uint32, error) {
	u.cacheMu.RLock()
	index, exists := u.assets[marketID]
	u.cacheMu.RUnlock()
	if exists {
		return index, nil
	}

	if err := u.refresh(ctx, false); err != nil {
		return 0, fmt.Errorf("failed to load asset universe: %w", err)
	}

	u.cacheMu.RLock()
	index, exists = u.assets[marketID]
	u.cacheMu.RUnlock()

	if !exists {
		return 0, &market.UnknownMarketError{MarketID: marketID}
	}
	return index, nil
}

// Run refreshes the universe every cache TTL until ctx is done. Failed
// refreshes keep the previous entries.
func (u *Universe) Run(ctx context.Context) {
	if u.cacheTTL <= 0 {
		return
	}

	ticker := time.NewTicker(u.cacheTTL)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := u.refresh(ctx, true); err != nil && ctx.Err() == nil {
				u.logger.Warn().Err(err).Msg("Background universe refresh failed")
			}
		}
	}
}

// Refresh reloads the universe regardless of its age
func (u *Universe) Refresh(ctx context.Context) error {
	return u.refresh(ctx, true)
}

// Size returns the number of known market identifiers
func (u *Universe) Size() int {
	u.cacheMu.RLock()
	defer u.cacheMu.RUnlock()
	return len(u.assets)
}

func (u *Universe) refresh(ctx context.Context, force bool) error {
	u.refreshMu.Lock()
	defer u.refreshMu.Unlock()

	u.cacheMu.RLock()
	fresh := time.Since(u.cacheTime) < u.cacheTTL
	u.cacheMu.RUnlock()
	if !force && fresh {
		return nil
	}

	u.logger.Debug().Msg("Refreshing asset universe")

	var (
		meta     *hyperliquid.Meta
		spotMeta *hyperliquid.SpotMeta
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		meta, err = u.source.Meta(gctx)
		if err != nil {
			return fmt.Errorf("failed to get meta: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		spotMeta, err = u.source.SpotMeta(gctx)
		if err != nil {
			return fmt.Errorf("failed to get spot meta: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		u.logger.Error().Err(err).Msg("Failed to refresh asset universe")
		return err
	}

	assets := buildAssetMap(meta, spotMeta)

	u.cacheMu.Lock()
	u.assets = assets
	u.cacheTime = time.Now()
	u.cacheMu.Unlock()

	u.logger.Info().
		Int("perp_count", len(meta.Universe)).
		Int("spot_count", len(spotMeta.Universe)).
		Msg("Asset universe refreshed")

	return nil
}

// buildAssetMap indexes perps by name and spot pairs by "@index", by their
// listed name and by "BASE/QUOTE". A bare spot base token name maps to its
// USDC pair unless a perp already uses that name.
func buildAssetMap(meta *hyperliquid.Meta, spotMeta *hyperliquid.SpotMeta) map[string]uint32 {
	assets := make(map[string]uint32)

	for i, asset := range meta.Universe {
		assets[asset.Name] = uint32(i)
	}

	for _, pair := range spotMeta.Universe {
		index := uint32(SpotAssetOffset + pair.Index)
		assets["@"+strconv.Itoa(pair.Index)] = index
		if pair.Name != "" {
			if _, taken := assets[pair.Name]; !taken {
				assets[pair.Name] = index
			}
		}

		name, ok := spotMeta.PairName(pair)
		if !ok {
			continue
		}
		if _, taken := assets[name]; !taken {
			assets[name] = index
		}

		base, quote, _ := strings.Cut(name, "/")
		if quote == "USDC" {
			if _, taken := assets[base]; !taken {
				assets[base] = index
			}
		}
	}

	return assets
}
