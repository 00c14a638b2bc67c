package models

import (
	"fmt"
	"strings"
)

// SwapRequest buys the configured swap asset for a quote-currency amount
type SwapRequest struct {
	Notional string `json:"notional" binding:"required"`
}

// Validate validates the swap request
func (r *SwapRequest) Validate() error {
	if strings.TrimSpace(r.Notional) == "" {
		return fmt.Errorf("notional is required")
	}
	return nil
}

// LimitOrderRequest places a limit order at the caller's price. Exactly one
// of Size and Notional is set.
type LimitOrderRequest struct {
	Asset       string `json:"asset" binding:"required"`
	Side        string `json:"side" binding:"required"`
	Size        string `json:"size,omitempty"`
	Notional    string `json:"notional,omitempty"`
	Price       string `json:"price" binding:"required"`
	TimeInForce string `json:"time_in_force,omitempty"`
}

// Normalize normalizes the request data
func (r *LimitOrderRequest) Normalize() {
	r.Asset = strings.TrimSpace(r.Asset)
	r.Side = strings.ToLower(strings.TrimSpace(r.Side))
	if r.TimeInForce == "" {
		r.TimeInForce = "Gtc"
	}
}

// Validate validates the limit order request
func (r *LimitOrderRequest) Validate() error {
	if r.Asset == "" {
		return fmt.Errorf("asset is required")
	}
	if r.Side != "buy" && r.Side != "sell" {
		return fmt.Errorf("side must be 'buy' or 'sell'")
	}
	if (r.Size == "") == (r.Notional == "") {
		return fmt.Errorf("exactly one of size or notional is required")
	}
	if r.Price == "" {
		return fmt.Errorf("price is required")
	}
	return nil
}

// IsBuy reports whether the order buys
func (r *LimitOrderRequest) IsBuy() bool {
	return r.Side == "buy"
}

// BuyRequest buys the swap asset sized from a notional at a limit price
type BuyRequest struct {
	Notional   string `json:"notional" binding:"required"`
	LimitPrice string `json:"limit_price" binding:"required"`
}

// Validate validates the buy request
func (r *BuyRequest) Validate() error {
	if r.Notional == "" || r.LimitPrice == "" {
		return fmt.Errorf("notional and limit_price are required")
	}
	return nil
}

// SellRequest sells a size of the swap asset at a limit price
type SellRequest struct {
	Size       string `json:"size" binding:"required"`
	LimitPrice string `json:"limit_price" binding:"required"`
}

// Validate validates the sell request
func (r *SellRequest) Validate() error {
	if r.Size == "" || r.LimitPrice == "" {
		return fmt.Errorf("size and limit_price are required")
	}
	return nil
}

// CancelRequest cancels a resting order
type CancelRequest struct {
	Asset   string `json:"asset" binding:"required"`
	OrderID uint64 `json:"order_id" binding:"required"`
}

// Validate validates the cancel request
func (r *CancelRequest) Validate() error {
	if strings.TrimSpace(r.Asset) == "" {
		return fmt.Errorf("asset is required")
	}
	if r.OrderID == 0 {
		return fmt.Errorf("order_id is required")
	}
	return nil
}
