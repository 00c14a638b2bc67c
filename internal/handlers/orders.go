package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"hlexec/internal/models"
	"hlexec/internal/orders"
)

// TradingService is the order surface of a session
type TradingService interface {
	Execute(ctx context.Context, intent orders.Intent) orders.OrderResult
	SwapByNotional(ctx context.Context, notional string) orders.OrderResult
	PlaceBuyByNotional(ctx context.Context, notional, limitPrice string) orders.OrderResult
	PlaceSellOrder(ctx context.Context, size, limitPrice string) orders.OrderResult
	CancelOrder(ctx context.Context, asset string, orderID uint64) orders.OrderResult
}

// OrderHandlers serves order placement and cancellation
type OrderHandlers struct {
	service TradingService
	logger  zerolog.Logger
}

// NewOrderHandlers creates new order handlers
func NewOrderHandlers(service TradingService, logger zerolog.Logger) *OrderHandlers {
	return &OrderHandlers{service: service, logger: logger}
}

// Swap buys the swap asset for a notional
func (h *OrderHandlers) Swap() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.SwapRequest
		if !bindRequest(c, &req) {
			return
		}
		if err := req.Validate(); err != nil {
			validationError(c, err.Error())
			return
		}

		h.respond(c, "swap", h.service.SwapByNotional(c.Request.Context(), req.Notional))
	}
}

// PlaceLimit places a limit order sized by size or notional
func (h *OrderHandlers) PlaceLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.LimitOrderRequest
		if !bindRequest(c, &req) {
			return
		}
		req.Normalize()
		if err := req.Validate(); err != nil {
			validationError(c, err.Error())
			return
		}

		result := h.service.Execute(c.Request.Context(), orders.ExplicitLimit{
			Asset:       req.Asset,
			IsBuy:       req.IsBuy(),
			Size:        req.Size,
			Notional:    req.Notional,
			Price:       req.Price,
			TimeInForce: req.TimeInForce,
		})
		h.respond(c, "limit", result)
	}
}

// Buy places a Gtc buy of the swap asset sized from a notional
func (h *OrderHandlers) Buy() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.BuyRequest
		if !bindRequest(c, &req) {
			return
		}
		if err := req.Validate(); err != nil {
			validationError(c, err.Error())
			return
		}

		h.respond(c, "buy", h.service.PlaceBuyByNotional(c.Request.Context(), req.Notional, req.LimitPrice))
	}
}

// Sell places a Gtc sell of the swap asset
func (h *OrderHandlers) Sell() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.SellRequest
		if !bindRequest(c, &req) {
			return
		}
		if err := req.Validate(); err != nil {
			validationError(c, err.Error())
			return
		}

		h.respond(c, "sell", h.service.PlaceSellOrder(c.Request.Context(), req.Size, req.LimitPrice))
	}
}

// Cancel cancels a resting order
func (h *OrderHandlers) Cancel() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.CancelRequest
		if !bindRequest(c, &req) {
			return
		}
		if err := req.Validate(); err != nil {
			validationError(c, err.Error())
			return
		}

		h.respond(c, "cancel", h.service.CancelOrder(c.Request.Context(), req.Asset, req.OrderID))
	}
}

func (h *OrderHandlers) respond(c *gin.Context, operation string, result orders.OrderResult) {
	status := StatusForResult(result)

	event := h.logger.Info()
	if !result.Success {
		event = h.logger.Warn().Str("kind", result.Kind.String())
	}
	event.
		Str("operation", operation).
		Str("request_id", c.GetString("request_id")).
		Int("status", status).
		Str("message", result.Message).
		Msg("Order request handled")

	c.JSON(status, models.NewOrderResponse(result))
}

// StatusForResult maps an order outcome to an HTTP status
func StatusForResult(result orders.OrderResult) int {
	if result.Success {
		return http.StatusOK
	}

	switch result.Kind {
	case orders.KindConfiguration:
		return http.StatusForbidden
	case orders.KindInputFormat, orders.KindOrderTooSmall:
		return http.StatusBadRequest
	case orders.KindMarketUnavailable:
		return http.StatusServiceUnavailable
	case orders.KindExchangeRejection:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusBadGateway
	}
}

func bindRequest(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, models.NewErrorResponse(
			"VALIDATION_ERROR",
			"Invalid request body",
			c.GetString("request_id"),
		))
		return false
	}
	return true
}
