package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"

	"hlexec/internal/account"
	"hlexec/internal/market"
	"hlexec/internal/models"
	"hlexec/internal/session"
)

// DefaultCandleWindow is used when a candle query omits start_time
const DefaultCandleWindow = 24 * time.Hour

// MarketService is the read-only surface of a session
type MarketService interface {
	AllMids(ctx context.Context) ([]account.PriceInfo, error)
	PriceOf(ctx context.Context, asset string) (market.Quote, bool, error)
	L2Orderbook(ctx context.Context, coin string) (*account.Orderbook, error)
	TokenBalances(ctx context.Context, address string) ([]account.TokenBalance, error)
	Meta(ctx context.Context) (*account.ExchangeMeta, error)
	SpotPairs(ctx context.Context) ([]string, error)
	Candles(ctx context.Context, coin, interval string, startTime, endTime int64) ([]account.Candle, error)
	UserFills(ctx context.Context, address string, startTime int64, endTime *int64) ([]account.UserFill, error)
	OpenOrders(ctx context.Context, address string) ([]account.OpenOrder, error)
}

// MarketHandlers serves market data and account queries
type MarketHandlers struct {
	service MarketService
	now     func() time.Time
}

// NewMarketHandlers creates new market handlers
func NewMarketHandlers(service MarketService) *MarketHandlers {
	return &MarketHandlers{service: service, now: time.Now}
}

// AllMids lists every mid price, configured markets first
func (h *MarketHandlers) AllMids() gin.HandlerFunc {
	return func(c *gin.Context) {
		prices, err := h.service.AllMids(c.Request.Context())
		if err != nil {
			writeQueryError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.NewListResponse(prices, len(prices)))
	}
}

// PriceOf resolves the price of a logical asset
func (h *MarketHandlers) PriceOf() gin.HandlerFunc {
	return func(c *gin.Context) {
		asset := c.Param("asset")
		quote, ok, err := h.service.PriceOf(c.Request.Context(), asset)
		if err != nil {
			writeQueryError(c, err)
			return
		}
		if !ok {
			c.JSON(http.StatusNotFound, models.NewErrorResponse(
				"NO_PRICE",
				fmt.Sprintf("No market with a positive price for %s", asset),
				c.GetString("request_id"),
			))
			return
		}

		c.JSON(http.StatusOK, models.PriceResponse{
			Asset:    asset,
			MarketID: quote.MarketID,
			Price:    quote.Price,
		})
	}
}

// Orderbook returns the top of a market's book
func (h *MarketHandlers) Orderbook() gin.HandlerFunc {
	return func(c *gin.Context) {
		book, err := h.service.L2Orderbook(c.Request.Context(), c.Param("coin"))
		if err != nil {
			writeQueryError(c, err)
			return
		}
		c.JSON(http.StatusOK, book)
	}
}

// Balances returns the spot balances of an address
func (h *MarketHandlers) Balances() gin.HandlerFunc {
	return func(c *gin.Context) {
		address, ok := addressParam(c)
		if !ok {
			return
		}
		balances, err := h.service.TokenBalances(c.Request.Context(), address)
		if err != nil {
			writeQueryError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.NewListResponse(balances, len(balances)))
	}
}

// Meta summarizes the perp universe
func (h *MarketHandlers) Meta() gin.HandlerFunc {
	return func(c *gin.Context) {
		meta, err := h.service.Meta(c.Request.Context())
		if err != nil {
			writeQueryError(c, err)
			return
		}
		c.JSON(http.StatusOK, meta)
	}
}

// SpotPairs lists spot pairs
func (h *MarketHandlers) SpotPairs() gin.HandlerFunc {
	return func(c *gin.Context) {
		pairs, err := h.service.SpotPairs(c.Request.Context())
		if err != nil {
			writeQueryError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.NewListResponse(pairs, len(pairs)))
	}
}

// Candles returns OHLCV bars. end_time defaults to now and start_time to
// one window before it.
func (h *MarketHandlers) Candles() gin.HandlerFunc {
	return func(c *gin.Context) {
		interval := c.Query("interval")
		if interval == "" {
			validationError(c, "interval is required")
			return
		}

		end, err := queryMillis(c, "end_time")
		if err != nil {
			validationError(c, err.Error())
			return
		}
		start, err := queryMillis(c, "start_time")
		if err != nil {
			validationError(c, err.Error())
			return
		}

		endTime := h.now().UnixMilli()
		if end != nil {
			endTime = *end
		}
		startTime := endTime - DefaultCandleWindow.Milliseconds()
		if start != nil {
			startTime = *start
		}

		candles, err := h.service.Candles(c.Request.Context(), c.Param("coin"), interval, startTime, endTime)
		if err != nil {
			writeQueryError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.NewListResponse(candles, len(candles)))
	}
}

// Fills returns the fills of an address from start_time
func (h *MarketHandlers) Fills() gin.HandlerFunc {
	return func(c *gin.Context) {
		address, ok := addressParam(c)
		if !ok {
			return
		}

		start, err := queryMillis(c, "start_time")
		if err != nil {
			validationError(c, err.Error())
			return
		}
		if start == nil {
			validationError(c, "start_time is required")
			return
		}
		end, err := queryMillis(c, "end_time")
		if err != nil {
			validationError(c, err.Error())
			return
		}

		fills, err := h.service.UserFills(c.Request.Context(), address, *start, end)
		if err != nil {
			writeQueryError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.NewListResponse(fills, len(fills)))
	}
}

// OpenOrders returns the resting orders of an address
func (h *MarketHandlers) OpenOrders() gin.HandlerFunc {
	return func(c *gin.Context) {
		address, ok := addressParam(c)
		if !ok {
			return
		}
		open, err := h.service.OpenOrders(c.Request.Context(), address)
		if err != nil {
			writeQueryError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.NewListResponse(open, len(open)))
	}
}

func addressParam(c *gin.Context) (string, bool) {
	address := c.Param("address")
	if !common.IsHexAddress(address) {
		validationError(c, fmt.Sprintf("invalid address: %s", address))
		return "", false
	}
	return address, true
}

func queryMillis(c *gin.Context, name string) (*int64, error) {
	raw, ok := c.GetQuery(name)
	if !ok || raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%s must be a millisecond timestamp", name)
	}
	return &v, nil
}

func validationError(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, models.NewErrorResponse(
		"VALIDATION_ERROR",
		message,
		c.GetString("request_id"),
	))
}

// writeQueryError maps read-only query failures to HTTP statuses
func writeQueryError(c *gin.Context, err error) {
	status, code := http.StatusBadGateway, "EXCHANGE_ERROR"

	var unavailable *market.UnavailableError
	switch {
	case errors.Is(err, session.ErrClosed):
		status, code = http.StatusServiceUnavailable, "SESSION_CLOSED"
	case errors.Is(err, context.DeadlineExceeded):
		status, code = http.StatusGatewayTimeout, "EXCHANGE_TIMEOUT"
	case errors.As(err, &unavailable):
		status, code = http.StatusServiceUnavailable, "MARKET_UNAVAILABLE"
	}

	c.JSON(status, models.NewErrorResponse(code, err.Error(), c.GetString("request_id")))
}
