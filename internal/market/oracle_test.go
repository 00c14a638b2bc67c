package market

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSource struct {
	mids  map[string]string
	err   error
	calls int
}

func (s *stubSource) AllMids(ctx context.Context) (map[string]string, error) {
	s.calls++
	return s.mids, s.err
}

func TestPriceOracle_FetchAllQuotes(t *testing.T) {
	resolver := NewResolver(testAliasTable(t))

	t.Run("returns snapshot in one call", func(t *testing.T) {
		source := &stubSource{mids: map[string]string{"BTC": "100000"}}
		oracle := NewPriceOracle(source, resolver, zerolog.Nop())

		snapshot, err := oracle.FetchAllQuotes(context.Background())

		require.NoError(t, err)
		assert.Equal(t, Snapshot{"BTC": "100000"}, snapshot)
		assert.Equal(t, 1, source.calls)
	})

	t.Run("wraps transport failure", func(t *testing.T) {
		cause := errors.New("connection refused")
		oracle := NewPriceOracle(&stubSource{err: cause}, resolver, zerolog.Nop())

		_, err := oracle.FetchAllQuotes(context.Background())

		var unavailable *UnavailableError
		require.ErrorAs(t, err, &unavailable)
		assert.ErrorIs(t, err, cause)
		assert.Equal(t, "price data unavailable: connection refused", err.Error())
	})

	t.Run("nil payload is unavailable, not empty", func(t *testing.T) {
		oracle := NewPriceOracle(&stubSource{}, resolver, zerolog.Nop())

		snapshot, err := oracle.FetchAllQuotes(context.Background())

		assert.Nil(t, snapshot)
		var unavailable *UnavailableError
		assert.ErrorAs(t, err, &unavailable)
	})
}

func TestPriceOracle_PriceOf(t *testing.T) {
	resolver := NewResolver(testAliasTable(t))

	t.Run("resolves asset aliases", func(t *testing.T) {
		source := &stubSource{mids: map[string]string{"@142": "0", "BTC": "100000"}}
		oracle := NewPriceOracle(source, resolver, zerolog.Nop())

		quote, ok, err := oracle.PriceOf(context.Background(), "BTC")

		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, Quote{MarketID: "BTC", Price: "100000"}, quote)
	})

	t.Run("absent price is explicit", func(t *testing.T) {
		source := &stubSource{mids: map[string]string{"BTC": "0"}}
		oracle := NewPriceOracle(source, resolver, zerolog.Nop())

		quote, ok, err := oracle.PriceOf(context.Background(), "BTC")

		require.NoError(t, err)
		assert.False(t, ok)
		assert.Equal(t, Quote{}, quote)
	})

	t.Run("propagates unavailable", func(t *testing.T) {
		oracle := NewPriceOracle(&stubSource{err: errors.New("boom")}, resolver, zerolog.Nop())

		_, _, err := oracle.PriceOf(context.Background(), "BTC")
		assert.Error(t, err)
	})
}

func TestUnavailableError(t *testing.T) {
	assert.Equal(t, "price data unavailable", (&UnavailableError{}).Error())
}
