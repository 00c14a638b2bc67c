package orders

import (
	"context"
	"time"

	"hlexec/internal/hyperliquid"
	"hlexec/internal/normalizer"
)

// Intent is one order-affecting request. The set is closed: SwapByNotional,
// ExplicitLimit and Cancel.
type Intent interface {
	intent()
}

// SwapByNotional buys the configured swap asset for a quote-currency amount
// at an aggressive limit price
type SwapByNotional struct {
	Notional string
}

// ExplicitLimit places a limit order at the caller's price. Notional, when
// set, sizes the order from the limit price instead of Size.
type ExplicitLimit struct {
	Asset       string
	IsBuy       bool
	Size        string
	Notional    string
	Price       string
	TimeInForce string
}

// Cancel cancels a resting order by exchange order id
type Cancel struct {
	Asset   string
	OrderID uint64
}

func (SwapByNotional) intent() {}
func (ExplicitLimit) intent()  {}
func (Cancel) intent()         {}

// OrderResult is the terminal outcome of an order-affecting call. OrderID,
// FilledSize and AvgPrice are nil on failure, except that cancellations keep
// the id they were given.
type OrderResult struct {
	Success    bool
	Message    string
	OrderID    *uint64
	FilledSize *string
	AvgPrice   *string
	// Kind classifies failures; zero on success
	Kind Kind
}

// Sender submits normalized orders and cancellations to the exchange. A nil
// Sender means the session has no signing capability.
type Sender interface {
	PlaceOrder(ctx context.Context, order normalizer.NormalizedOrder) (*hyperliquid.ExchangeResponse, error)
	CancelOrder(ctx context.Context, marketID string, oid uint64) (*hyperliquid.ExchangeResponse, error)
}

// Recorder receives order outcomes and latencies
type Recorder interface {
	RecordOrderLatency(exchange, orderType string, latency float64)
	RecordOrderStatus(exchange, status string)
}

// OrderUpdate is an order outcome event
type OrderUpdate struct {
	EventType  string    `json:"event_type"`
	Operation  string    `json:"operation"`
	MarketID   string    `json:"market_id"`
	OrderID    uint64    `json:"order_id,omitempty"`
	Status     string    `json:"status"`
	Side       string    `json:"side,omitempty"`
	Price      string    `json:"price,omitempty"`
	Size       string    `json:"size,omitempty"`
	FilledSize string    `json:"filled_size,omitempty"`
	AvgPrice   string    `json:"avg_price,omitempty"`
	UpdateTime time.Time `json:"update_time"`
	Reason     string    `json:"reason,omitempty"`
}

// EventEmitter publishes order updates
type EventEmitter interface {
	EmitOrderUpdate(ctx context.Context, update *OrderUpdate) error
}

// Event statuses
const (
	StatusFilled    = "filled"
	StatusResting   = "resting"
	StatusCancelled = "cancelled"
	StatusRejected  = "rejected"
)

const orderUpdateEvent = "order_update.v1"
