package normalizer

import (
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func btcRules() Rules {
	return Rules{
		Class:           "btc",
		SizeDecimals:    5,
		PriceTick:       d("1"),
		MinSize:         d("0.00001"),
		PriceSigFigs:    5,
		AlignLimitPrice: true,
	}
}

func defaultRules() Rules {
	return Rules{
		Class:        "default",
		SizeDecimals: 6,
		PriceTick:    decimal.Zero,
		MinSize:      d("0.000001"),
		PriceSigFigs: 5,
	}
}

func TestSizeFromNotional(t *testing.T) {
	t.Run("one thousand at one hundred thousand", func(t *testing.T) {
		size, err := SizeFromNotional(btcRules(), d("1000"), d("100000"))
		require.NoError(t, err)
		assert.Equal(t, "0.01000", size.StringFixed(5))
	})

	t.Run("half unit rounds up to the minimum", func(t *testing.T) {
		size, err := SizeFromNotional(btcRules(), d("0.5"), d("100000"))
		require.NoError(t, err)
		assert.Equal(t, "0.00001", size.StringFixed(5))
	})

	t.Run("fails against a larger minimum", func(t *testing.T) {
		rules := btcRules()
		rules.MinSize = d("0.0001")

		_, err := SizeFromNotional(rules, d("0.5"), d("100000"))

		var nerr *Error
		require.ErrorAs(t, err, &nerr)
		assert.Equal(t, OrderTooSmall, nerr.Kind)
		assert.Equal(t, "0.00001", nerr.ComputedSize)
		assert.Equal(t, "0.0001", nerr.MinSize)
	})

	t.Run("rounds to zero and fails", func(t *testing.T) {
		_, err := SizeFromNotional(btcRules(), d("0.4"), d("100000"))
		assert.True(t, IsKind(err, OrderTooSmall))
		assert.EqualError(t, err, "order size 0.00000 is below minimum 0.00001")
	})

	t.Run("requires a positive price", func(t *testing.T) {
		_, err := SizeFromNotional(btcRules(), d("1000"), decimal.Zero)
		assert.True(t, IsKind(err, ReferencePriceUnavailable))
	})
}

func TestRoundSize(t *testing.T) {
	t.Run("rounds half away from zero", func(t *testing.T) {
		size, err := RoundSize(btcRules(), d("0.000015"))
		require.NoError(t, err)
		assert.Equal(t, "0.00002", size.StringFixed(5))
	})

	t.Run("rejects non positive sizes", func(t *testing.T) {
		_, err := RoundSize(btcRules(), d("-1"))
		assert.True(t, IsKind(err, OrderTooSmall))

		_, err = RoundSize(btcRules(), decimal.Zero)
		assert.True(t, IsKind(err, OrderTooSmall))
	})

	t.Run("checks minimum strictly after rounding", func(t *testing.T) {
		rules := btcRules()
		rules.MinSize = d("0.00002")

		// 0.0000149 looks close to the minimum but rounds down to 0.00001
		_, err := RoundSize(rules, d("0.0000149"))
		assert.True(t, IsKind(err, OrderTooSmall))
	})
}

func TestAlignPrice(t *testing.T) {
	tests := []struct {
		name  string
		rules Rules
		price string
		want  string
	}{
		{"rounds to whole dollars", btcRules(), "101000.4", "101000"},
		{"rounds half up", btcRules(), "101000.5", "101001"},
		{"ten dollar tick", Rules{PriceTick: d("10")}, "101004.99", "101000"},
		{"ten dollar tick rounds up", Rules{PriceTick: d("10")}, "101005", "101010"},
		{"zero tick is identity", Rules{}, "3500.123456", "3500.123456"},
		{"caps significant figures", defaultRules(), "3535.2525", "3535.3"},
		{"caps small prices", defaultRules(), "0.000123456", "0.00012346"},
		{"keeps integers", defaultRules(), "123456", "123456"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AlignPrice(tt.rules, d(tt.price))
			assert.True(t, d(tt.want).Equal(got), "want %s, got %s", tt.want, got)
		})
	}
}

func TestAggressivePrice(t *testing.T) {
	slippage := d("0.01")

	assert.True(t, d("101000").Equal(AggressivePrice(d("100000"), true, slippage)))
	assert.True(t, d("99000").Equal(AggressivePrice(d("100000"), false, slippage)))
	assert.True(t, d("100000").Equal(AggressivePrice(d("100000"), true, decimal.Zero)))
}

func TestNormalize(t *testing.T) {
	t.Run("aggressive swap", func(t *testing.T) {
		order, err := Normalize(btcRules(), Input{
			MarketID:       "@142",
			IsBuy:          true,
			Notional:       "1000",
			ReferencePrice: "100000",
			Slippage:       d("0.01"),
			TimeInForce:    ImmediateOrCancel,
			Mode:           ModeAggressive,
		})
		require.NoError(t, err)

		assert.Equal(t, "@142", order.MarketID())
		assert.True(t, order.IsBuy())
		assert.Equal(t, "buy", order.Side())
		assert.Equal(t, "0.01000", order.SizeString())
		assert.Equal(t, "101000", order.PriceString())
		assert.Equal(t, ImmediateOrCancel, order.TimeInForce())
		assert.True(t, d("1010").Equal(order.Notional()))
		assert.False(t, order.IsZero())
	})

	t.Run("aggressive sell slips down", func(t *testing.T) {
		order, err := Normalize(btcRules(), Input{
			MarketID:       "BTC",
			Size:           "0.5",
			ReferencePrice: "100000.7",
			Slippage:       d("0.01"),
			Mode:           ModeAggressive,
		})
		require.NoError(t, err)

		assert.False(t, order.IsBuy())
		assert.Equal(t, "99001", order.PriceString())
		assert.Equal(t, GoodTillCancel, order.TimeInForce())
	})

	t.Run("aggressive without reference", func(t *testing.T) {
		for _, ref := range []string{"", "0", "-5", "abc"} {
			_, err := Normalize(btcRules(), Input{MarketID: "BTC", Notional: "1000", ReferencePrice: ref, Mode: ModeAggressive})
			assert.True(t, IsKind(err, ReferencePriceUnavailable), "reference %q", ref)
		}
	})

	t.Run("invalid notional", func(t *testing.T) {
		_, err := Normalize(btcRules(), Input{MarketID: "BTC", Notional: "lots", ReferencePrice: "100000", Mode: ModeAggressive})

		var nerr *Error
		require.ErrorAs(t, err, &nerr)
		assert.Equal(t, InvalidNumericFormat, nerr.Kind)
		assert.Equal(t, "notional", nerr.Field)
		assert.EqualError(t, err, `invalid notional format: "lots"`)
	})

	t.Run("limit order keeps user price without slippage", func(t *testing.T) {
		order, err := Normalize(defaultRules(), Input{
			MarketID: "ETH",
			IsBuy:    true,
			Size:     "1.2345678",
			Price:    "3500.123",
			Slippage: d("0.05"),
			Mode:     ModeLimit,
		})
		require.NoError(t, err)

		assert.Equal(t, "1.234568", order.SizeString())
		assert.Equal(t, "3500.123", order.PriceString())
	})

	t.Run("limit order aligns when class requires it", func(t *testing.T) {
		order, err := Normalize(btcRules(), Input{
			MarketID: "@142",
			IsBuy:    true,
			Size:     "0.001",
			Price:    "95000.6",
			Mode:     ModeLimit,
		})
		require.NoError(t, err)
		assert.Equal(t, "95001", order.PriceString())
	})

	t.Run("limit buy sized from notional", func(t *testing.T) {
		order, err := Normalize(btcRules(), Input{
			MarketID: "@142",
			IsBuy:    true,
			Notional: "100",
			Price:    "90000",
			Mode:     ModeLimit,
		})
		require.NoError(t, err)
		assert.Equal(t, "0.00111", order.SizeString())
		assert.Equal(t, "90000", order.PriceString())
	})

	t.Run("invalid size and price", func(t *testing.T) {
		_, err := Normalize(btcRules(), Input{MarketID: "BTC", Size: "x", Price: "1", Mode: ModeLimit})
		assert.EqualError(t, err, `invalid size format: "x"`)

		_, err = Normalize(btcRules(), Input{MarketID: "BTC", Size: "1", Price: "1.2.3", Mode: ModeLimit})
		assert.EqualError(t, err, `invalid price format: "1.2.3"`)

		_, err = Normalize(btcRules(), Input{MarketID: "BTC", Size: "1", Price: "0", Mode: ModeLimit})
		assert.True(t, IsKind(err, InvalidNumericFormat))
	})

	t.Run("price aligned to zero is rejected", func(t *testing.T) {
		rules := Rules{SizeDecimals: 2, PriceTick: d("10"), AlignLimitPrice: true}
		_, err := Normalize(rules, Input{MarketID: "X", Size: "1", Price: "4", Mode: ModeLimit})
		assert.True(t, IsKind(err, InvalidNumericFormat))
	})

	t.Run("requires market id", func(t *testing.T) {
		_, err := Normalize(btcRules(), Input{Size: "1", Price: "1", Mode: ModeLimit})
		assert.EqualError(t, err, "market id is required")
	})

	t.Run("rejects unknown mode", func(t *testing.T) {
		_, err := Normalize(btcRules(), Input{MarketID: "BTC", Mode: Mode(9)})
		assert.Error(t, err)
	})
}

func TestNormalizer(t *testing.T) {
	book := testRuleBook(t)
	n := New(book, d("0.01"))

	t.Run("applies configured slippage and rules", func(t *testing.T) {
		order, err := n.Normalize(Input{
			MarketID:       "UBTC/USDC",
			IsBuy:          true,
			Notional:       "1000",
			ReferencePrice: "100000",
			Slippage:       d("0.5"),
			Mode:           ModeAggressive,
		})
		require.NoError(t, err)
		assert.Equal(t, "101000", order.PriceString())
		assert.Equal(t, "0.01000", order.SizeString())
	})

	t.Run("unknown market uses default class", func(t *testing.T) {
		assert.Equal(t, "default", n.Rules("@999").Class)
		assert.True(t, d("0.01").Equal(n.Slippage()))
	})
}

func TestParseTimeInForce(t *testing.T) {
	tests := map[string]TimeInForce{
		"":                  GoodTillCancel,
		"Gtc":               GoodTillCancel,
		"GoodTillCancel":    GoodTillCancel,
		"good_till_cancel":  GoodTillCancel,
		"IOC":               ImmediateOrCancel,
		"ImmediateOrCancel": ImmediateOrCancel,
		"alo":               AddLiquidityOnly,
		"post-only":         AddLiquidityOnly,
	}

	for input, want := range tests {
		got, err := ParseTimeInForce(input)
		require.NoError(t, err, input)
		assert.Equal(t, want, got, input)
	}

	_, err := ParseTimeInForce("fok")
	assert.EqualError(t, err, "invalid time in force: fok")
}

func TestProperties(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	randomDecimal := func(maxInt int64, places int32) decimal.Decimal {
		return decimal.New(rng.Int63n(maxInt*1_000_000)+1, -6).Round(places + 3)
	}

	t.Run("rounding is idempotent", func(t *testing.T) {
		for i := 0; i < 500; i++ {
			value := randomDecimal(1000, 6)
			places := int32(rng.Intn(8))
			once := value.Round(places)
			assert.True(t, once.Equal(once.Round(places)), "value %s places %d", value, places)
		}
	})

	t.Run("notional sizing succeeds at or above minimum or fails too small", func(t *testing.T) {
		rules := btcRules()
		for i := 0; i < 500; i++ {
			notional := randomDecimal(5000, 2)
			price := randomDecimal(200000, 2)

			size, err := SizeFromNotional(rules, notional, price)
			if err != nil {
				assert.True(t, IsKind(err, OrderTooSmall), "notional %s price %s: %v", notional, price, err)
				continue
			}
			assert.True(t, size.GreaterThanOrEqual(rules.MinSize))
		}
	})

	t.Run("tick alignment is monotonic", func(t *testing.T) {
		for _, rules := range []Rules{btcRules(), defaultRules(), {PriceTick: d("10")}, {PriceTick: d("0.01"), PriceSigFigs: 5}} {
			for i := 0; i < 500; i++ {
				a := randomDecimal(200000, 4)
				b := a.Add(randomDecimal(100, 4))
				assert.True(t, AlignPrice(rules, a).LessThanOrEqual(AlignPrice(rules, b)),
					"align(%s)=%s > align(%s)=%s", a, AlignPrice(rules, a), b, AlignPrice(rules, b))
			}
		}
	})
}
