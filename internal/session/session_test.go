package session

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hlexec/internal/config"
	"hlexec/internal/orders"
)

const testPrivateKey = "0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

// mockExchange serves /info from canned payloads and records /exchange bodies
type mockExchange struct {
	mu           sync.Mutex
	infoCalls    map[string]int
	exchangeBody []map[string]any
	exchangeResp string
	failMeta     bool
}

func newMockExchange(t *testing.T) (*mockExchange, *httptest.Server) {
	t.Helper()
	m := &mockExchange{
		infoCalls:    make(map[string]int),
		exchangeResp: `{"status":"ok","response":{"type":"order","data":{"statuses":[{"resting":{"oid":12345}}]}}}`,
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var req map[string]any
		_ = json.Unmarshal(body, &req)

		m.mu.Lock()
		defer m.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/exchange":
			m.exchangeBody = append(m.exchangeBody, req)
			w.Write([]byte(m.exchangeResp))
		case "/info":
			kind, _ := req["type"].(string)
			m.infoCalls[kind]++
			m.serveInfo(w, kind)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(server.Close)
	return m, server
}

func (m *mockExchange) serveInfo(w http.ResponseWriter, kind string) {
	switch kind {
	case "allMids":
		w.Write([]byte(`{"@142":"100000","BTC":"99950","ETH":"3500.5","AAVE":"301.2"}`))
	case "meta":
		if m.failMeta {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(`"internal error"`))
			return
		}
		w.Write([]byte(`{"universe":[{"name":"BTC","szDecimals":5,"maxLeverage":40},{"name":"ETH","szDecimals":4,"maxLeverage":25}]}`))
	case "spotMeta":
		w.Write([]byte(`{"tokens":[{"name":"USDC","index":0,"szDecimals":8,"weiDecimals":8},{"name":"UBTC","index":1,"szDecimals":5,"weiDecimals":10}],"universe":[{"name":"@142","tokens":[1,0],"index":142,"isCanonical":false}]}`))
	case "l2Book":
		w.Write([]byte(`{"coin":"BTC","time":1,"levels":[[{"px":"99990","sz":"1.2","n":3}],[{"px":"100010","sz":"0.5","n":1}]]}`))
	case "spotClearinghouseState":
		w.Write([]byte(`{"balances":[{"coin":"USDC","token":0,"hold":"0.0","total":"2500.0","entryNtl":"0.0"}]}`))
	default:
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`"unknown request"`))
	}
}

func (m *mockExchange) calls(kind string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.infoCalls[kind]
}

func (m *mockExchange) exchanges() []map[string]any {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]map[string]any(nil), m.exchangeBody...)
}

func testConfig(t *testing.T, baseURL string) *config.Config {
	t.Helper()
	markets, err := config.LoadMarketTable("")
	require.NoError(t, err)

	return &config.Config{
		Exchange: config.ExchangeConfig{
			BaseURL:          baseURL,
			Timeout:          2 * time.Second,
			QuoteSource:      "rest",
			UniverseCacheTTL: time.Minute,
		},
		Trading: config.TradingConfig{
			SwapAsset:       "BTC",
			SwapTimeInForce: "Ioc",
			Slippage:        "0.01",
		},
		Markets: markets,
	}
}

func TestNew_ReadOnly(t *testing.T) {
	mock, server := newMockExchange(t)

	s, err := New(testConfig(t, server.URL), zerolog.Nop())
	require.NoError(t, err)
	defer s.Close()

	assert.False(t, s.HasWallet())
	assert.Empty(t, s.Address())

	result := s.PlaceLimitOrder(context.Background(), "@142", true, "0.001", "90000", "Gtc")

	assert.False(t, result.Success)
	assert.Equal(t, orders.NoWalletMessage, result.Message)
	assert.Nil(t, result.OrderID)
	assert.Empty(t, mock.exchanges())
	assert.Zero(t, mock.calls("allMids"))
	assert.Zero(t, mock.calls("meta"))

	result = s.SwapByNotional(context.Background(), "1000")
	assert.False(t, result.Success)
	assert.Zero(t, mock.calls("allMids"))
}

func TestSession_Queries(t *testing.T) {
	_, server := newMockExchange(t)

	s, err := New(testConfig(t, server.URL), zerolog.Nop())
	require.NoError(t, err)
	defer s.Close()
	ctx := context.Background()

	t.Run("all mids lists configured markets first", func(t *testing.T) {
		mids, err := s.AllMids(ctx)
		require.NoError(t, err)
		require.Len(t, mids, 4)
		assert.Equal(t, "@142", mids[0].Coin)
		assert.Equal(t, "BTC", mids[1].Coin)
		assert.Equal(t, "ETH", mids[2].Coin)
		assert.Equal(t, "AAVE", mids[3].Coin)
	})

	t.Run("price of logical asset", func(t *testing.T) {
		quote, ok, err := s.PriceOf(ctx, "btc")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, "@142", quote.MarketID)
		assert.Equal(t, "100000", quote.Price)

		_, ok, err = s.PriceOf(ctx, "SOL")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("order book", func(t *testing.T) {
		book, err := s.L2Orderbook(ctx, "BTC")
		require.NoError(t, err)
		assert.Equal(t, "99990", book.Bids[0].Price)
		assert.Equal(t, "0.5", book.Asks[0].Size)
	})

	t.Run("balances", func(t *testing.T) {
		balances, err := s.TokenBalances(ctx, "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")
		require.NoError(t, err)
		require.Len(t, balances, 1)
		assert.Equal(t, "2500.0", balances[0].Total)
	})

	t.Run("meta and spot pairs", func(t *testing.T) {
		meta, err := s.Meta(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, meta.TotalAssets)

		pairs, err := s.SpotPairs(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"UBTC/USDC"}, pairs)
	})

	t.Run("unsupported query is a hard error", func(t *testing.T) {
		_, err := s.Candles(ctx, "BTC", "1h", 0, 1000)
		assert.Error(t, err)
	})
}

func TestNewWithWallet(t *testing.T) {
	t.Run("loads universe and swaps", func(t *testing.T) {
		mock, server := newMockExchange(t)

		s, err := NewWithWallet(testConfig(t, server.URL), testPrivateKey, zerolog.Nop())
		require.NoError(t, err)
		defer s.Close()

		assert.True(t, s.HasWallet())
		assert.Equal(t, "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266", s.Address())
		assert.Equal(t, 1, mock.calls("meta"))
		assert.Equal(t, 1, mock.calls("spotMeta"))

		result := s.SwapByNotional(context.Background(), "1000")

		require.True(t, result.Success, result.Message)
		require.NotNil(t, result.OrderID)
		assert.Equal(t, uint64(12345), *result.OrderID)
		assert.Nil(t, result.FilledSize)

		bodies := mock.exchanges()
		require.Len(t, bodies, 1)
		action := bodies[0]["action"].(map[string]any)
		assert.Equal(t, "order", action["type"])
		order := action["orders"].([]any)[0].(map[string]any)
		assert.Equal(t, float64(10142), order["a"])
		assert.Equal(t, true, order["b"])
		assert.Equal(t, "101000", order["p"])
		assert.Equal(t, "0.01", order["s"])
		assert.Equal(t, map[string]any{"limit": map[string]any{"tif": "Ioc"}}, order["t"])
		assert.NotNil(t, bodies[0]["signature"])
		assert.Nil(t, bodies[0]["vaultAddress"])
	})

	t.Run("cancel keeps order id", func(t *testing.T) {
		mock, server := newMockExchange(t)
		mock.exchangeResp = `{"status":"ok","response":{"type":"cancel","data":{"statuses":["success"]}}}`

		s, err := NewWithWallet(testConfig(t, server.URL), testPrivateKey, zerolog.Nop())
		require.NoError(t, err)
		defer s.Close()

		result := s.CancelOrder(context.Background(), "@142", 12345)

		assert.True(t, result.Success)
		assert.Equal(t, "Order 12345 cancelled successfully", result.Message)
		assert.Equal(t, uint64(12345), *result.OrderID)

		action := mock.exchanges()[0]["action"].(map[string]any)
		assert.Equal(t, "cancel", action["type"])
	})

	t.Run("sell and notional buy use the swap market", func(t *testing.T) {
		mock, server := newMockExchange(t)

		s, err := NewWithWallet(testConfig(t, server.URL), testPrivateKey, zerolog.Nop())
		require.NoError(t, err)
		defer s.Close()

		assert.True(t, s.PlaceBuyByNotional(context.Background(), "100", "90000").Success)
		assert.True(t, s.PlaceSellOrder(context.Background(), "0.001", "110000").Success)

		bodies := mock.exchanges()
		require.Len(t, bodies, 2)
		buy := bodies[0]["action"].(map[string]any)["orders"].([]any)[0].(map[string]any)
		assert.Equal(t, "0.00111", buy["s"])
		assert.Equal(t, map[string]any{"limit": map[string]any{"tif": "Gtc"}}, buy["t"])
		sell := bodies[1]["action"].(map[string]any)["orders"].([]any)[0].(map[string]any)
		assert.Equal(t, false, sell["b"])
		assert.Equal(t, float64(10142), sell["a"])
	})

	t.Run("rejects bad key", func(t *testing.T) {
		_, server := newMockExchange(t)

		_, err := NewWithWallet(testConfig(t, server.URL), "0xnothex", zerolog.Nop())
		assert.Error(t, err)

		_, err = NewWithWallet(testConfig(t, server.URL), "", zerolog.Nop())
		assert.EqualError(t, err, "private key is required")
	})

	t.Run("fails when universe cannot load", func(t *testing.T) {
		mock, server := newMockExchange(t)
		mock.failMeta = true

		_, err := NewWithWallet(testConfig(t, server.URL), testPrivateKey, zerolog.Nop())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to load asset universe")
	})
}

func TestSession_Close(t *testing.T) {
	_, server := newMockExchange(t)

	s, err := NewWithWallet(testConfig(t, server.URL), testPrivateKey, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = s.AllMids(context.Background())
	assert.ErrorIs(t, err, ErrClosed)

	result := s.SwapByNotional(context.Background(), "1000")
	assert.False(t, result.Success)
	assert.Equal(t, "Session closed", result.Message)
}

func TestSession_Independent(t *testing.T) {
	_, server := newMockExchange(t)
	cfg := testConfig(t, server.URL)

	first, err := New(cfg, zerolog.Nop())
	require.NoError(t, err)
	second, err := New(cfg, zerolog.Nop())
	require.NoError(t, err)
	defer second.Close()

	require.NoError(t, first.Close())

	_, err = second.AllMids(context.Background())
	assert.NoError(t, err)
}

func TestNew_RequiresConfig(t *testing.T) {
	_, err := New(nil, zerolog.Nop())
	assert.Error(t, err)

	cfg := testConfig(t, "http://localhost")
	cfg.Trading.SwapTimeInForce = "fok"
	_, err = New(cfg, zerolog.Nop())
	assert.EqualError(t, err, "invalid time in force: fok")

	cfg = testConfig(t, "http://localhost")
	cfg.Markets.Assets["BTC"] = config.AssetEntry{Class: "btc"}
	_, err = New(cfg, zerolog.Nop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "asset BTC: alias list is empty")

	cfg = testConfig(t, "http://localhost")
	cfg.Trading.SwapAsset = "DOGE"
	_, err = New(cfg, zerolog.Nop())
	assert.EqualError(t, err, "swap asset DOGE has no alias list")
}

func TestNew_SwapAssetIgnoresCase(t *testing.T) {
	mock, server := newMockExchange(t)

	cfg := testConfig(t, server.URL)
	cfg.Trading.SwapAsset = "btc"
	s, err := NewWithWallet(cfg, testPrivateKey, zerolog.Nop())
	require.NoError(t, err)
	defer s.Close()

	result := s.PlaceBuyByNotional(context.Background(), "111", "100000")
	require.True(t, result.Success, result.Message)

	bodies := mock.exchanges()
	require.Len(t, bodies, 1)
	order := bodies[0]["action"].(map[string]any)["orders"].([]any)[0].(map[string]any)
	assert.Equal(t, float64(10142), order["a"])
	assert.Equal(t, "0.00111", order["s"])

	prices, err := s.AllMids(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "@142", prices[0].Coin)
}
