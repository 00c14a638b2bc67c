package market

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hlexec/internal/config"
)

var btcAliases = []string{"@142", "BTC", "UBTC", "BTC/USDC", "UBTC/USDC"}

func testAliasTable(t *testing.T) *AliasTable {
	t.Helper()
	table, err := config.LoadMarketTable("")
	require.NoError(t, err)
	return NewAliasTable(table)
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name     string
		aliases  []string
		snapshot Snapshot
		want     Quote
		found    bool
	}{
		{
			name:     "first alias wins",
			aliases:  btcAliases,
			snapshot: Snapshot{"@142": "99990", "BTC": "100000"},
			want:     Quote{MarketID: "@142", Price: "99990"},
			found:    true,
		},
		{
			name:     "falls back in priority order",
			aliases:  btcAliases,
			snapshot: Snapshot{"UBTC/USDC": "99950", "BTC": "100000"},
			want:     Quote{MarketID: "BTC", Price: "100000"},
			found:    true,
		},
		{
			name:     "zero price is skipped",
			aliases:  []string{"@142", "BTC", "UBTC"},
			snapshot: Snapshot{"BTC": "0"},
			found:    false,
		},
		{
			name:     "negative and non numeric prices are skipped",
			aliases:  btcAliases,
			snapshot: Snapshot{"@142": "-1", "BTC": "n/a", "UBTC": "99000.5"},
			want:     Quote{MarketID: "UBTC", Price: "99000.5"},
			found:    true,
		},
		{
			name:     "empty snapshot",
			aliases:  btcAliases,
			snapshot: Snapshot{},
			found:    false,
		},
		{
			name:     "duplicate aliases resolve to first match",
			aliases:  []string{"BTC", "BTC", "@142"},
			snapshot: Snapshot{"BTC": "100000", "@142": "99990"},
			want:     Quote{MarketID: "BTC", Price: "100000"},
			found:    true,
		},
		{
			name:     "whitespace is trimmed",
			aliases:  []string{"ETH"},
			snapshot: Snapshot{"ETH": " 3500.25 "},
			want:     Quote{MarketID: "ETH", Price: "3500.25"},
			found:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Resolve(tt.aliases, tt.snapshot)
			assert.Equal(t, tt.found, ok)
			if tt.found {
				assert.Equal(t, tt.want, got)
				assert.True(t, got.Decimal().IsPositive())
			} else {
				assert.Equal(t, Quote{}, got)
			}
		})
	}
}

func TestResolve_Deterministic(t *testing.T) {
	snapshot := Snapshot{"BTC": "100000", "UBTC": "99990", "@142": "0"}

	first, ok := Resolve(btcAliases, snapshot)
	require.True(t, ok)
	for i := 0; i < 100; i++ {
		got, ok := Resolve(btcAliases, snapshot)
		require.True(t, ok)
		assert.Equal(t, first, got)
	}
}

func TestAliasTable(t *testing.T) {
	table := testAliasTable(t)

	t.Run("returns configured aliases", func(t *testing.T) {
		assert.Equal(t, btcAliases, table.Aliases("BTC"))
		assert.Equal(t, btcAliases, table.Aliases("btc"))
		assert.True(t, table.Has("ETH"))
	})

	t.Run("unknown asset is its own alias", func(t *testing.T) {
		assert.Equal(t, []string{"@107"}, table.Aliases("@107"))
		assert.False(t, table.Has("@107"))
	})

	t.Run("returned slice is a copy", func(t *testing.T) {
		aliases := table.Aliases("BTC")
		aliases[0] = "mutated"
		assert.Equal(t, "@142", table.Aliases("BTC")[0])
	})

	t.Run("lists assets sorted", func(t *testing.T) {
		assert.Equal(t, []string{"BTC", "ETH"}, table.Assets())
	})

	t.Run("nil table is empty", func(t *testing.T) {
		empty := NewAliasTable(nil)
		assert.Empty(t, empty.Assets())
	})
}

func TestResolver_ResolveAsset(t *testing.T) {
	resolver := NewResolver(testAliasTable(t))

	quote, ok := resolver.ResolveAsset("BTC", Snapshot{"UBTC": "99000"})
	require.True(t, ok)
	assert.Equal(t, "UBTC", quote.MarketID)

	quote, ok = resolver.ResolveAsset("SOL", Snapshot{"SOL": "150.1"})
	require.True(t, ok)
	assert.Equal(t, Quote{MarketID: "SOL", Price: "150.1"}, quote)

	_, ok = resolver.ResolveAsset("ETH", Snapshot{"BTC": "100000"})
	assert.False(t, ok)
}
