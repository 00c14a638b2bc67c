package normalizer

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"hlexec/internal/config"
)

// Rules are the precision rules of one asset class
type Rules struct {
	Class        string
	SizeDecimals int32
	// PriceTick of zero leaves prices unaligned
	PriceTick decimal.Decimal
	MinSize   decimal.Decimal
	// PriceSigFigs caps significant figures of non-integer prices; zero disables it
	PriceSigFigs    int32
	AlignLimitPrice bool
}

// RulesFromConfig parses a configured class
func RulesFromConfig(class string, cfg config.ClassRules) (Rules, error) {
	rules := Rules{
		Class:           class,
		SizeDecimals:    cfg.SizeDecimals,
		PriceTick:       decimal.Zero,
		MinSize:         decimal.Zero,
		PriceSigFigs:    cfg.PriceSigFigs,
		AlignLimitPrice: cfg.AlignLimitPrice,
	}

	if cfg.PriceTick != "" {
		tick, err := decimal.NewFromString(cfg.PriceTick)
		if err != nil {
			return Rules{}, fmt.Errorf("class %s: invalid price_tick: %w", class, err)
		}
		rules.PriceTick = tick
	}
	if cfg.MinSize != "" {
		minSize, err := decimal.NewFromString(cfg.MinSize)
		if err != nil {
			return Rules{}, fmt.Errorf("class %s: invalid min_size: %w", class, err)
		}
		rules.MinSize = minSize
	}

	return rules, nil
}

// RuleBook maps logical assets and market identifiers to rules
type RuleBook struct {
	classes     map[string]Rules
	assetClass  map[string]string
	marketClass map[string]string
	mu          sync.RWMutex
}

// NewRuleBook builds a rule book from the market table
func NewRuleBook(table *config.MarketTable) (*RuleBook, error) {
	if table == nil {
		return nil, fmt.Errorf("market table is required")
	}

	book := &RuleBook{
		classes:     make(map[string]Rules),
		assetClass:  make(map[string]string),
		marketClass: make(map[string]string),
	}

	for name, cfg := range table.Classes {
		rules, err := RulesFromConfig(name, cfg)
		if err != nil {
			return nil, err
		}
		book.classes[name] = rules
	}
	if _, ok := book.classes[config.DefaultClass]; !ok {
		return nil, fmt.Errorf("market table has no %q class", config.DefaultClass)
	}

	// Sorted so that an alias shared by two assets maps deterministically
	assets := make([]string, 0, len(table.Assets))
	for asset := range table.Assets {
		assets = append(assets, asset)
	}
	sort.Strings(assets)

	for _, asset := range assets {
		entry := table.Assets[asset]
		class := entry.ClassName()
		if _, ok := book.classes[class]; !ok {
			return nil, fmt.Errorf("asset %s: unknown class %s", asset, class)
		}
		book.assetClass[strings.ToUpper(asset)] = class
		for _, alias := range entry.Aliases {
			if _, taken := book.marketClass[alias]; !taken {
				book.marketClass[alias] = class
			}
		}
	}

	return book, nil
}

// For returns the rules of a logical asset or market identifier, falling
// back to the default class
func (b *RuleBook) For(id string) Rules {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if class, ok := b.assetClass[strings.ToUpper(id)]; ok {
		return b.classes[class]
	}
	if class, ok := b.marketClass[id]; ok {
		return b.classes[class]
	}
	return b.classes[config.DefaultClass]
}

// Class returns the rules of a named class
func (b *RuleBook) Class(name string) (Rules, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	rules, ok := b.classes[name]
	return rules, ok
}

// Assign maps a market identifier to a class, e.g. one discovered at runtime
func (b *RuleBook) Assign(marketID, class string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.classes[class]; !ok {
		return fmt.Errorf("unknown class: %s", class)
	}
	b.marketClass[marketID] = class
	return nil
}
