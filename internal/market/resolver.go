package market

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"hlexec/internal/config"
)

// Snapshot maps market identifiers to mid price strings as the exchange sent them
type Snapshot map[string]string

// Quote is a market identifier with a strictly positive price
type Quote struct {
	MarketID string `json:"market_id"`
	Price    string `json:"price"`
}

// Decimal returns the parsed price. Quotes only come out of Resolve, so the
// price is known to parse.
func (q Quote) Decimal() decimal.Decimal {
	d, _ := decimal.NewFromString(q.Price)
	return d
}

// AliasTable maps logical assets to market identifiers in priority order
type AliasTable struct {
	assets map[string][]string
}

// NewAliasTable builds the table from the market configuration
func NewAliasTable(table *config.MarketTable) *AliasTable {
	t := &AliasTable{assets: make(map[string][]string)}
	if table == nil {
		return t
	}
	for asset, entry := range table.Assets {
		aliases := make([]string, len(entry.Aliases))
		copy(aliases, entry.Aliases)
		t.assets[strings.ToUpper(asset)] = aliases
	}
	return t
}

// Aliases returns the alias list of an asset. An unknown asset is its own
// only alias, so plain market identifiers resolve directly.
func (t *AliasTable) Aliases(asset string) []string {
	if aliases, ok := t.assets[strings.ToUpper(asset)]; ok {
		out := make([]string, len(aliases))
		copy(out, aliases)
		return out
	}
	return []string{asset}
}

// Has reports whether asset is a configured logical asset
func (t *AliasTable) Has(asset string) bool {
	_, ok := t.assets[strings.ToUpper(asset)]
	return ok
}

// Assets returns the configured logical assets, sorted
func (t *AliasTable) Assets() []string {
	assets := make([]string, 0, len(t.assets))
	for asset := range t.assets {
		assets = append(assets, asset)
	}
	sort.Strings(assets)
	return assets
}

// Resolve returns the first alias whose snapshot price is a positive number.
// Missing, non-numeric, zero and negative entries are skipped.
func Resolve(aliases []string, snapshot Snapshot) (Quote, bool) {
	for _, alias := range aliases {
		raw, ok := snapshot[alias]
		if !ok {
			continue
		}
		raw = strings.TrimSpace(raw)
		price, err := decimal.NewFromString(raw)
		if err != nil || !price.IsPositive() {
			continue
		}
		return Quote{MarketID: alias, Price: raw}, true
	}
	return Quote{}, false
}

// Resolver resolves logical assets against quote snapshots
type Resolver struct {
	aliases *AliasTable
}

// NewResolver creates a resolver over an alias table
func NewResolver(aliases *AliasTable) *Resolver {
	return &Resolver{aliases: aliases}
}

// Aliases exposes the resolver's alias table
func (r *Resolver) Aliases() *AliasTable {
	return r.aliases
}

// ResolveAsset resolves a logical asset or plain market identifier
func (r *Resolver) ResolveAsset(asset string, snapshot Snapshot) (Quote, bool) {
	return Resolve(r.aliases.Aliases(asset), snapshot)
}
