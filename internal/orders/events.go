package orders

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// HTTPEventEmitter posts order updates as JSON to a webhook
type HTTPEventEmitter struct {
	url    string
	client *http.Client
}

// NewHTTPEventEmitter creates an emitter for url
func NewHTTPEventEmitter(url string) *HTTPEventEmitter {
	return &HTTPEventEmitter{
		url: url,
		client: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

// EmitOrderUpdate posts one update
func (e *HTTPEventEmitter) EmitOrderUpdate(ctx context.Context, update *OrderUpdate) error {
	if e.url == "" {
		return nil
	}

	data, err := json.Marshal(update)
	if err != nil {
		return fmt.Errorf("failed to marshal order update: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send order update: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	return nil
}

// LogEventEmitter writes order updates to the log
type LogEventEmitter struct {
	logger zerolog.Logger
}

// NewLogEventEmitter creates a log emitter
func NewLogEventEmitter(logger zerolog.Logger) *LogEventEmitter {
	return &LogEventEmitter{logger: logger}
}

// EmitOrderUpdate logs one update
func (e *LogEventEmitter) EmitOrderUpdate(ctx context.Context, update *OrderUpdate) error {
	e.logger.Info().
		Str("event_type", update.EventType).
		Str("operation", update.Operation).
		Str("market", update.MarketID).
		Uint64("order_id", update.OrderID).
		Str("status", update.Status).
		Str("side", update.Side).
		Str("price", update.Price).
		Str("size", update.Size).
		Str("filled_size", update.FilledSize).
		Str("avg_price", update.AvgPrice).
		Time("update_time", update.UpdateTime).
		Str("reason", update.Reason).
		Msg("Order update event")
	return nil
}
