package orders

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"hlexec/internal/market"
	"hlexec/internal/normalizer"
)

const exchangeName = "hyperliquid"

// SwapConfig selects the asset and time in force of notional swaps
type SwapConfig struct {
	Asset       string
	TimeInForce normalizer.TimeInForce
}

// Executor normalizes intents, submits them and classifies the outcome. It
// never retries an order-affecting call.
type Executor struct {
	sender     Sender
	oracle     *market.PriceOracle
	normalizer *normalizer.Normalizer
	swap       SwapConfig
	recorder   Recorder
	emitter    EventEmitter
	logger     zerolog.Logger
}

// Option configures an Executor
type Option func(*Executor)

// WithRecorder records outcomes and latencies
func WithRecorder(recorder Recorder) Option {
	return func(e *Executor) {
		e.recorder = recorder
	}
}

// WithEventEmitter publishes an OrderUpdate after every submitted call
func WithEventEmitter(emitter EventEmitter) Option {
	return func(e *Executor) {
		e.emitter = emitter
	}
}

// NewExecutor creates an executor. Pass a nil sender for read-only sessions.
func NewExecutor(sender Sender, oracle *market.PriceOracle, norm *normalizer.Normalizer, swap SwapConfig, logger zerolog.Logger, opts ...Option) *Executor {
	if swap.TimeInForce == "" {
		swap.TimeInForce = normalizer.ImmediateOrCancel
	}

	e := &Executor{
		sender:     sender,
		oracle:     oracle,
		normalizer: norm,
		swap:       swap,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// HasWallet reports whether orders can be signed and sent
func (e *Executor) HasWallet() bool {
	return e.sender != nil
}

// Execute dispatches an intent
func (e *Executor) Execute(ctx context.Context, intent Intent) OrderResult {
	switch in := intent.(type) {
	case SwapByNotional:
		return e.SwapByNotional(ctx, in.Notional)
	case ExplicitLimit:
		return e.PlaceLimit(ctx, in)
	case Cancel:
		return e.Cancel(ctx, in.Asset, in.OrderID)
	default:
		return failure(KindInputFormat, "Unsupported order intent %T", intent)
	}
}

// SwapByNotional fetches quotes, resolves the swap asset, sizes the order
// from notional and submits it, strictly in that order
func (e *Executor) SwapByNotional(ctx context.Context, notional string) OrderResult {
	if e.sender == nil {
		return noWallet()
	}

	snapshot, err := e.oracle.FetchAllQuotes(ctx)
	if err != nil {
		return e.record("swap", stageFailure(StagePriceFetch, err))
	}

	quote, ok := e.oracle.Resolver().ResolveAsset(e.swap.Asset, snapshot)
	if !ok {
		return e.record("swap", failure(KindMarketUnavailable, "Failed to get prices: no market with a positive price for %s", e.swap.Asset))
	}

	order, err := e.normalizer.Normalize(normalizer.Input{
		MarketID:       quote.MarketID,
		IsBuy:          true,
		Notional:       notional,
		ReferencePrice: quote.Price,
		TimeInForce:    e.swap.TimeInForce,
		Mode:           normalizer.ModeAggressive,
	})
	if err != nil {
		return e.record("swap", stageFailure(StageAmountParse, err))
	}

	e.logger.Debug().
		Str("market", quote.MarketID).
		Str("reference_price", quote.Price).
		Str("notional", notional).
		Msg("Resolved swap market")

	return e.submit(ctx, "swap", order)
}

// PlaceLimit normalizes and submits a limit order at the caller's price
func (e *Executor) PlaceLimit(ctx context.Context, in ExplicitLimit) OrderResult {
	if e.sender == nil {
		return noWallet()
	}

	tif, err := normalizer.ParseTimeInForce(in.TimeInForce)
	if err != nil {
		return e.record("limit", failure(KindInputFormat, "Invalid time in force: %s", in.TimeInForce))
	}

	order, err := e.normalizer.Normalize(normalizer.Input{
		MarketID:    in.Asset,
		IsBuy:       in.IsBuy,
		Size:        in.Size,
		Notional:    in.Notional,
		Price:       in.Price,
		TimeInForce: tif,
		Mode:        normalizer.ModeLimit,
	})
	if err != nil {
		return e.record("limit", stageFailure(StageAmountParse, err))
	}

	return e.submit(ctx, "limit", order)
}

// Submit sends an already normalized order
func (e *Executor) Submit(ctx context.Context, order normalizer.NormalizedOrder) OrderResult {
	if e.sender == nil {
		return noWallet()
	}
	return e.submit(ctx, "order", order)
}

func (e *Executor) submit(ctx context.Context, operation string, order normalizer.NormalizedOrder) OrderResult {
	if order.IsZero() {
		return e.record(operation, failure(KindInputFormat, "Order was not normalized"))
	}

	e.logger.Debug().
		Str("operation", operation).
		Str("market", order.MarketID()).
		Str("side", order.Side()).
		Str("size", order.SizeString()).
		Str("price", order.PriceString()).
		Str("tif", string(order.TimeInForce())).
		Msg("Placing order")

	start := time.Now()
	resp, err := e.sender.PlaceOrder(ctx, order)
	e.recordLatency(operation, start)

	var result OrderResult
	if err != nil {
		result = stageFailure(StageSubmission, err)
	} else {
		result = Classify(resp)
	}

	event := e.logger.Info()
	if !result.Success {
		event = e.logger.Error()
	}
	event.
		Str("operation", operation).
		Str("market", order.MarketID()).
		Bool("success", result.Success).
		Str("kind", result.Kind.String()).
		Str("message", result.Message).
		Msg("Order submitted")

	e.emit(ctx, operation, order.MarketID(), result, &order)
	return e.record(operation, result)
}

// Cancel cancels a resting order
func (e *Executor) Cancel(ctx context.Context, asset string, oid uint64) OrderResult {
	if e.sender == nil {
		return noWallet()
	}
	if asset == "" {
		result := failure(KindInputFormat, "Asset is required")
		result.OrderID = &oid
		return e.record("cancel", result)
	}

	e.logger.Debug().Str("market", asset).Uint64("order_id", oid).Msg("Cancelling order")

	start := time.Now()
	resp, err := e.sender.CancelOrder(ctx, asset, oid)
	e.recordLatency("cancel", start)

	var result OrderResult
	if err != nil {
		result = failure(kindOf(err, KindTransport), "Failed to cancel order: %v", err)
		result.OrderID = &oid
	} else {
		result = ClassifyCancel(oid, resp)
	}

	if result.Success {
		e.logger.Info().Str("market", asset).Uint64("order_id", oid).Msg("Order cancelled")
	} else {
		e.logger.Error().Str("market", asset).Uint64("order_id", oid).Str("message", result.Message).Msg("Cancel failed")
	}

	e.emit(ctx, "cancel", asset, result, nil)
	return e.record("cancel", result)
}

func (e *Executor) record(operation string, result OrderResult) OrderResult {
	if e.recorder != nil {
		e.recorder.RecordOrderStatus(exchangeName, operation+"_"+statusOf(operation, result))
	}
	return result
}

func (e *Executor) recordLatency(operation string, start time.Time) {
	if e.recorder != nil {
		e.recorder.RecordOrderLatency(exchangeName, operation, time.Since(start).Seconds())
	}
}

func (e *Executor) emit(ctx context.Context, operation, marketID string, result OrderResult, order *normalizer.NormalizedOrder) {
	if e.emitter == nil {
		return
	}

	update := &OrderUpdate{
		EventType:  orderUpdateEvent,
		Operation:  operation,
		MarketID:   marketID,
		Status:     statusOf(operation, result),
		UpdateTime: time.Now(),
	}
	if result.OrderID != nil {
		update.OrderID = *result.OrderID
	}
	if result.FilledSize != nil {
		update.FilledSize = *result.FilledSize
	}
	if result.AvgPrice != nil {
		update.AvgPrice = *result.AvgPrice
	}
	if !result.Success {
		update.Reason = result.Message
	}
	if order != nil {
		update.Side = order.Side()
		update.Price = order.PriceString()
		update.Size = order.SizeString()
	}

	if err := e.emitter.EmitOrderUpdate(ctx, update); err != nil {
		e.logger.Warn().Err(err).Str("operation", operation).Msg("Failed to emit order update")
	}
}

func statusOf(operation string, result OrderResult) string {
	switch {
	case !result.Success:
		return StatusRejected
	case operation == "cancel":
		return StatusCancelled
	case result.FilledSize != nil:
		return StatusFilled
	default:
		return StatusResting
	}
}
