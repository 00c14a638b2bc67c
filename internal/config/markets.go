package config

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"
)

// DefaultClass is the rule class used for markets no asset entry claims
const DefaultClass = "default"

//go:embed markets.yaml
var defaultMarkets []byte

// MarketTable is the declarative market configuration, loaded once per process
type MarketTable struct {
	Assets  map[string]AssetEntry `yaml:"assets" json:"assets"`
	Classes map[string]ClassRules `yaml:"classes" json:"classes"`
}

// AssetEntry lists the market identifiers of one logical asset, priority descending
type AssetEntry struct {
	Class   string   `yaml:"class" json:"class"`
	Aliases []string `yaml:"aliases" json:"aliases"`
}

// ClassRules holds the precision rules of an asset class as decimal strings
type ClassRules struct {
	SizeDecimals    int32  `yaml:"size_decimals" json:"size_decimals"`
	PriceTick       string `yaml:"price_tick" json:"price_tick"`
	MinSize         string `yaml:"min_size" json:"min_size"`
	PriceSigFigs    int32  `yaml:"price_sig_figs" json:"price_sig_figs"`
	AlignLimitPrice bool   `yaml:"align_limit_price" json:"align_limit_price"`
}

// LoadMarketTable reads the table from path, or the embedded default when path is empty
func LoadMarketTable(path string) (*MarketTable, error) {
	data := defaultMarkets
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read market table %s: %w", path, err)
		}
		data = raw
	}
	return ParseMarketTable(data)
}

// ParseMarketTable decodes a YAML market table
func ParseMarketTable(data []byte) (*MarketTable, error) {
	var table MarketTable
	if err := yaml.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("failed to parse market table: %w", err)
	}
	if table.Assets == nil {
		table.Assets = make(map[string]AssetEntry)
	}
	if table.Classes == nil {
		table.Classes = make(map[string]ClassRules)
	}
	return &table, nil
}

// Validate checks class references and rule values
func (t *MarketTable) Validate() error {
	var err error

	if _, ok := t.Classes[DefaultClass]; !ok {
		err = multierr.Append(err, fmt.Errorf("market table has no %q class", DefaultClass))
	}

	for _, name := range sortedKeys(t.Classes) {
		rules := t.Classes[name]
		if rules.SizeDecimals < 0 || rules.SizeDecimals > 18 {
			err = multierr.Append(err, fmt.Errorf("class %s: size_decimals out of range: %d", name, rules.SizeDecimals))
		}
		if rules.PriceSigFigs < 0 {
			err = multierr.Append(err, fmt.Errorf("class %s: price_sig_figs must be non-negative", name))
		}
		err = multierr.Append(err, checkNonNegative(name, "price_tick", rules.PriceTick))
		err = multierr.Append(err, checkNonNegative(name, "min_size", rules.MinSize))
	}

	seen := make(map[string]string, len(t.Assets))
	for _, asset := range sortedKeys(t.Assets) {
		entry := t.Assets[asset]
		if other, dup := seen[strings.ToUpper(asset)]; dup {
			err = multierr.Append(err, fmt.Errorf("asset %s: duplicates %s", asset, other))
		}
		seen[strings.ToUpper(asset)] = asset
		if len(entry.Aliases) == 0 {
			err = multierr.Append(err, fmt.Errorf("asset %s: alias list is empty", asset))
		}
		if _, ok := t.Classes[entry.ClassName()]; !ok {
			err = multierr.Append(err, fmt.Errorf("asset %s: unknown class %s", asset, entry.ClassName()))
		}
	}

	return err
}

// Asset looks up a logical asset by name, ignoring case
func (t *MarketTable) Asset(name string) (AssetEntry, bool) {
	if entry, ok := t.Assets[name]; ok {
		return entry, true
	}
	for asset, entry := range t.Assets {
		if strings.EqualFold(asset, name) {
			return entry, true
		}
	}
	return AssetEntry{}, false
}

// ClassName returns the entry's class, falling back to the default class
func (e AssetEntry) ClassName() string {
	if e.Class == "" {
		return DefaultClass
	}
	return e.Class
}

func checkNonNegative(class, field, value string) error {
	if value == "" {
		return nil
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		return fmt.Errorf("class %s: invalid %s %q: %w", class, field, value, err)
	}
	if d.IsNegative() {
		return fmt.Errorf("class %s: %s must be non-negative: %s", class, field, value)
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
