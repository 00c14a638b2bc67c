package normalizer

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// DefaultSlippage biases aggressive prices 1% through the reference
var DefaultSlippage = decimal.RequireFromString("0.01")

// TimeInForce of a limit order, in the exchange's spelling
type TimeInForce string

const (
	GoodTillCancel    TimeInForce = "Gtc"
	ImmediateOrCancel TimeInForce = "Ioc"
	AddLiquidityOnly  TimeInForce = "Alo"
)

// ParseTimeInForce accepts short and long names in any case. Empty means Gtc.
func ParseTimeInForce(s string) (TimeInForce, error) {
	normalized := strings.ToLower(strings.NewReplacer("_", "", "-", "", " ", "").Replace(s))
	switch normalized {
	case "", "gtc", "goodtillcancel", "goodtilcancel":
		return GoodTillCancel, nil
	case "ioc", "immediateorcancel":
		return ImmediateOrCancel, nil
	case "alo", "addliquidityonly", "postonly":
		return AddLiquidityOnly, nil
	default:
		return "", fmt.Errorf("invalid time in force: %s", s)
	}
}

// Mode selects how the limit price is derived
type Mode int

const (
	// ModeAggressive prices off a reference quote with slippage, for swaps
	ModeAggressive Mode = iota
	// ModeLimit uses the caller's price
	ModeLimit
)

// Input is a raw order as supplied by a caller. Exactly one of Size and
// Notional should be set; Notional wins when both are.
type Input struct {
	MarketID string
	IsBuy    bool
	Size     string
	Notional string
	// Price is the caller's limit price in ModeLimit
	Price string
	// ReferencePrice is the quote to trade through in ModeAggressive
	ReferencePrice string
	// Slippage is applied as is in ModeAggressive; zero means none
	Slippage    decimal.Decimal
	TimeInForce TimeInForce
	ReduceOnly  bool
	Mode        Mode
}

// NormalizedOrder is an order at exchange precision. It can only be built
// by Normalize.
type NormalizedOrder struct {
	marketID     string
	isBuy        bool
	size         decimal.Decimal
	price        decimal.Decimal
	tif          TimeInForce
	reduceOnly   bool
	sizeDecimals int32
}

// MarketID is the market the order is sent to
func (o NormalizedOrder) MarketID() string { return o.marketID }

func (o NormalizedOrder) IsBuy() bool { return o.isBuy }

func (o NormalizedOrder) Size() decimal.Decimal { return o.size }

func (o NormalizedOrder) Price() decimal.Decimal { return o.price }

func (o NormalizedOrder) TimeInForce() TimeInForce { return o.tif }

func (o NormalizedOrder) ReduceOnly() bool { return o.reduceOnly }

// Notional is size times limit price
func (o NormalizedOrder) Notional() decimal.Decimal { return o.size.Mul(o.price) }

// SizeString renders the size at the class precision, e.g. "0.01000"
func (o NormalizedOrder) SizeString() string { return o.size.StringFixed(o.sizeDecimals) }

func (o NormalizedOrder) PriceString() string { return o.price.String() }

// IsZero reports whether the order was never normalized
func (o NormalizedOrder) IsZero() bool { return o.marketID == "" }

// Side renders the order side for logs
func (o NormalizedOrder) Side() string {
	if o.isBuy {
		return "buy"
	}
	return "sell"
}

// RoundSize rounds size half away from zero at the class precision and
// enforces the minimum after rounding
func RoundSize(rules Rules, size decimal.Decimal) (decimal.Decimal, error) {
	rounded := size.Round(rules.SizeDecimals)
	if !rounded.IsPositive() || rounded.LessThan(rules.MinSize) {
		return decimal.Zero, &Error{
			Kind:         OrderTooSmall,
			ComputedSize: rounded.StringFixed(rules.SizeDecimals),
			MinSize:      rules.MinSize.String(),
		}
	}
	return rounded, nil
}

// SizeFromNotional converts a quote-currency amount to a rounded size
func SizeFromNotional(rules Rules, notional, price decimal.Decimal) (decimal.Decimal, error) {
	if !price.IsPositive() {
		return decimal.Zero, &Error{Kind: ReferencePriceUnavailable}
	}
	return RoundSize(rules, notional.Div(price))
}

// AlignPrice rounds price to the nearest tick, then caps significant figures
// of non-integer results. Never decreases when price increases.
func AlignPrice(rules Rules, price decimal.Decimal) decimal.Decimal {
	aligned := price
	if rules.PriceTick.IsPositive() {
		aligned = price.Div(rules.PriceTick).Round(0).Mul(rules.PriceTick)
	}
	return capSignificantFigures(aligned, rules.PriceSigFigs)
}

// AggressivePrice moves the reference through the book by slippage
func AggressivePrice(reference decimal.Decimal, isBuy bool, slippage decimal.Decimal) decimal.Decimal {
	one := decimal.NewFromInt(1)
	if isBuy {
		return reference.Mul(one.Add(slippage))
	}
	return reference.Mul(one.Sub(slippage))
}

// Normalize turns raw input into an order at exchange precision
func Normalize(rules Rules, in Input) (NormalizedOrder, error) {
	if in.MarketID == "" {
		return NormalizedOrder{}, fmt.Errorf("market id is required")
	}

	// price is the limit sent to the exchange, sizingPrice converts notional
	var price, sizingPrice decimal.Decimal

	switch in.Mode {
	case ModeAggressive:
		reference, ok := parsePositive(in.ReferencePrice)
		if !ok {
			return NormalizedOrder{}, &Error{Kind: ReferencePriceUnavailable, MarketID: in.MarketID}
		}
		price = AlignPrice(rules, AggressivePrice(reference, in.IsBuy, in.Slippage))
		sizingPrice = reference
	case ModeLimit:
		limit, err := decimal.NewFromString(strings.TrimSpace(in.Price))
		if err != nil || !limit.IsPositive() {
			return NormalizedOrder{}, invalidFormat("price", in.Price)
		}
		price = limit
		if rules.AlignLimitPrice {
			price = AlignPrice(rules, limit)
		}
		sizingPrice = limit
	default:
		return NormalizedOrder{}, fmt.Errorf("unknown normalization mode: %d", in.Mode)
	}

	if !price.IsPositive() {
		return NormalizedOrder{}, invalidFormat("price", price.String())
	}

	size, err := normalizeSize(rules, in, sizingPrice)
	if err != nil {
		return NormalizedOrder{}, err
	}

	tif := in.TimeInForce
	if tif == "" {
		tif = GoodTillCancel
	}

	return NormalizedOrder{
		marketID:     in.MarketID,
		isBuy:        in.IsBuy,
		size:         size,
		price:        price,
		tif:          tif,
		reduceOnly:   in.ReduceOnly,
		sizeDecimals: rules.SizeDecimals,
	}, nil
}

func normalizeSize(rules Rules, in Input, sizingPrice decimal.Decimal) (decimal.Decimal, error) {
	if in.Notional != "" {
		notional, err := decimal.NewFromString(strings.TrimSpace(in.Notional))
		if err != nil {
			return decimal.Zero, invalidFormat("notional", in.Notional)
		}
		return SizeFromNotional(rules, notional, sizingPrice)
	}

	raw, err := decimal.NewFromString(strings.TrimSpace(in.Size))
	if err != nil {
		return decimal.Zero, invalidFormat("size", in.Size)
	}
	return RoundSize(rules, raw)
}

func parsePositive(s string) (decimal.Decimal, bool) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil || !d.IsPositive() {
		return decimal.Zero, false
	}
	return d, true
}

// capSignificantFigures rounds non-integer prices to sig significant
// figures. Integer prices are left as they are.
func capSignificantFigures(price decimal.Decimal, sig int32) decimal.Decimal {
	if sig <= 0 || !price.IsPositive() || price.Equal(price.Truncate(0)) {
		return price
	}

	var places int32
	if price.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		intDigits := int32(len(price.Truncate(0).String()))
		places = sig - intDigits
	} else {
		frac := strings.TrimPrefix(price.String(), "0.")
		leadingZeros := int32(len(frac) - len(strings.TrimLeft(frac, "0")))
		places = leadingZeros + sig
	}
	if places < 0 {
		places = 0
	}
	return price.Round(places)
}

// Normalizer applies a rule book and a fixed slippage to raw input
type Normalizer struct {
	rules    *RuleBook
	slippage decimal.Decimal
}

// New creates a normalizer
func New(rules *RuleBook, slippage decimal.Decimal) *Normalizer {
	return &Normalizer{rules: rules, slippage: slippage}
}

// Rules returns the rules that apply to a market identifier
func (n *Normalizer) Rules(marketID string) Rules {
	return n.rules.For(marketID)
}

// Slippage returns the configured slippage
func (n *Normalizer) Slippage() decimal.Decimal {
	return n.slippage
}

// Normalize looks up the market's rules and normalizes in with them
func (n *Normalizer) Normalize(in Input) (NormalizedOrder, error) {
	if in.Mode == ModeAggressive {
		in.Slippage = n.slippage
	}
	return Normalize(n.rules.For(in.MarketID), in)
}
