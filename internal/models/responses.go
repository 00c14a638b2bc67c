package models

import (
	"time"

	"hlexec/internal/orders"
)

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// NewErrorResponse creates a new error response
func NewErrorResponse(errorCode, message, requestID string) *ErrorResponse {
	return &ErrorResponse{
		Error:     errorCode,
		Message:   message,
		RequestID: requestID,
		Timestamp: time.Now().Unix(),
	}
}

// HealthResponse represents the health status of the service
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Uptime  int64  `json:"uptime"`
	Wallet  bool   `json:"wallet"`
	Address string `json:"address,omitempty"`
}

// HealthCheck represents a single health check result
type HealthCheck struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// ReadinessResponse represents the readiness status of the service
type ReadinessResponse struct {
	Ready  bool                   `json:"ready"`
	Checks map[string]HealthCheck `json:"checks"`
}

// OrderResponse is the outcome of an order operation
type OrderResponse struct {
	Success    bool    `json:"success"`
	Message    string  `json:"message"`
	OrderID    *uint64 `json:"order_id,omitempty"`
	FilledSize *string `json:"filled_size,omitempty"`
	AvgPrice   *string `json:"avg_price,omitempty"`
	Error      string  `json:"error,omitempty"`
}

// NewOrderResponse renders an order result; Error names the failure kind
func NewOrderResponse(result orders.OrderResult) *OrderResponse {
	resp := &OrderResponse{
		Success:    result.Success,
		Message:    result.Message,
		OrderID:    result.OrderID,
		FilledSize: result.FilledSize,
		AvgPrice:   result.AvgPrice,
	}
	if !result.Success {
		resp.Error = result.Kind.String()
	}
	return resp
}

// PriceResponse is the resolved price of a logical asset
type PriceResponse struct {
	Asset    string `json:"asset"`
	MarketID string `json:"market_id"`
	Price    string `json:"price"`
}

// ListResponse wraps a list payload
type ListResponse struct {
	Data  any `json:"data"`
	Count int `json:"count"`
}

// NewListResponse creates a new list response
func NewListResponse(data any, count int) *ListResponse {
	return &ListResponse{
		Data:  data,
		Count: count,
	}
}
