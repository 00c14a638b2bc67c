package hyperliquid

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Client is a REST client for the Hyperliquid /info and /exchange endpoints
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	maxRetries int
	logger     zerolog.Logger
}

// Option configures the client
type Option func(*Client)

// WithTimeout sets the HTTP timeout
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithMaxRetries sets the maximum number of retries for info requests
func WithMaxRetries(maxRetries int) Option {
	return func(c *Client) {
		c.maxRetries = maxRetries
	}
}

// WithRateLimit sets rate limiting; a non-positive rate disables it
func WithRateLimit(requestsPerSecond float64, burst int) Option {
	return func(c *Client) {
		if requestsPerSecond <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), burst)
	}
}

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithLogger sets the logger
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a new Hyperliquid REST client
func NewClient(baseURL string, opts ...Option) *Client {
	client := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		limiter:    rate.NewLimiter(10, 5), // Default: 10 req/sec, burst 5
		maxRetries: 2,
		logger:     zerolog.Nop(),
	}

	for _, opt := range opts {
		opt(client)
	}

	return client
}

// BaseURL returns the base URL
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Timeout returns the HTTP timeout
func (c *Client) Timeout() time.Duration {
	return c.httpClient.Timeout
}

// MaxRetries returns the maximum number of retries
func (c *Client) MaxRetries() int {
	return c.maxRetries
}

// Info posts an info request and decodes the response into out
func (c *Client) Info(ctx context.Context, request any, out any) error {
	body, err := c.doRequest(ctx, "/info", request, true)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode info response: %w", err)
	}
	return nil
}

// AllMids fetches the mid price of every market
func (c *Client) AllMids(ctx context.Context) (map[string]string, error) {
	var mids map[string]string
	if err := c.Info(ctx, map[string]string{"type": "allMids"}, &mids); err != nil {
		return nil, ErrorWithContext(err, "AllMids")
	}
	if mids == nil {
		return nil, ErrorWithContext(fmt.Errorf("empty mids payload"), "AllMids")
	}
	return mids, nil
}

// Meta fetches the perpetuals universe
func (c *Client) Meta(ctx context.Context) (*Meta, error) {
	var meta Meta
	if err := c.Info(ctx, map[string]string{"type": "meta"}, &meta); err != nil {
		return nil, ErrorWithContext(err, "Meta")
	}
	return &meta, nil
}

// SpotMeta fetches the spot universe and token list
func (c *Client) SpotMeta(ctx context.Context) (*SpotMeta, error) {
	var meta SpotMeta
	if err := c.Info(ctx, map[string]string{"type": "spotMeta"}, &meta); err != nil {
		return nil, ErrorWithContext(err, "SpotMeta")
	}
	return &meta, nil
}

// L2Book fetches the order book snapshot of a market
func (c *Client) L2Book(ctx context.Context, coin string) (*L2Book, error) {
	if coin == "" {
		return nil, fmt.Errorf("coin is required")
	}

	var book L2Book
	if err := c.Info(ctx, map[string]string{"type": "l2Book", "coin": coin}, &book); err != nil {
		return nil, ErrorWithContext(err, "L2Book")
	}
	return &book, nil
}

// SpotClearinghouseState fetches the spot balances of a user
func (c *Client) SpotClearinghouseState(ctx context.Context, user string) (*SpotClearinghouseState, error) {
	if user == "" {
		return nil, fmt.Errorf("user address is required")
	}

	var state SpotClearinghouseState
	request := map[string]string{"type": "spotClearinghouseState", "user": user}
	if err := c.Info(ctx, request, &state); err != nil {
		return nil, ErrorWithContext(err, "SpotClearinghouseState")
	}
	return &state, nil
}

// CandleSnapshot fetches candles of a market between two millisecond timestamps
func (c *Client) CandleSnapshot(ctx context.Context, coin, interval string, startTime, endTime int64) ([]Candle, error) {
	if coin == "" {
		return nil, fmt.Errorf("coin is required")
	}

	request := map[string]any{
		"type": "candleSnapshot",
		"req": map[string]any{
			"coin":      coin,
			"interval":  interval,
			"startTime": startTime,
			"endTime":   endTime,
		},
	}

	var candles []Candle
	if err := c.Info(ctx, request, &candles); err != nil {
		return nil, ErrorWithContext(err, "CandleSnapshot")
	}
	return candles, nil
}

// UserFillsByTime fetches a user's fills from startTime, optionally bounded by endTime
func (c *Client) UserFillsByTime(ctx context.Context, user string, startTime int64, endTime *int64) ([]Fill, error) {
	if user == "" {
		return nil, fmt.Errorf("user address is required")
	}

	request := map[string]any{
		"type":      "userFillsByTime",
		"user":      user,
		"startTime": startTime,
	}
	if endTime != nil {
		request["endTime"] = *endTime
	}

	var fills []Fill
	if err := c.Info(ctx, request, &fills); err != nil {
		return nil, ErrorWithContext(err, "UserFillsByTime")
	}
	return fills, nil
}

// FrontendOpenOrders fetches a user's open orders
func (c *Client) FrontendOpenOrders(ctx context.Context, user string) ([]OpenOrder, error) {
	if user == "" {
		return nil, fmt.Errorf("user address is required")
	}

	var orders []OpenOrder
	request := map[string]string{"type": "frontendOpenOrders", "user": user}
	if err := c.Info(ctx, request, &orders); err != nil {
		return nil, ErrorWithContext(err, "FrontendOpenOrders")
	}
	return orders, nil
}

// Exchange posts a signed action. It is never retried.
func (c *Client) Exchange(ctx context.Context, request *ExchangeRequest) (*ExchangeResponse, error) {
	if request == nil {
		return nil, fmt.Errorf("exchange request is required")
	}

	body, err := c.doRequest(ctx, "/exchange", request, false)
	if err != nil {
		return nil, ErrorWithContext(err, "Exchange")
	}

	var resp ExchangeResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, ErrorWithContext(fmt.Errorf("failed to decode exchange response: %w", err), "Exchange")
	}
	return &resp, nil
}

// doRequest handles request execution with rate limiting and, when allowed, retries
func (c *Client) doRequest(ctx context.Context, path string, payload any, retry bool) ([]byte, error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	maxRetries := 0
	if retry {
		maxRetries = c.maxRetries
	}

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(encoded))
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		c.logger.Debug().
			Str("path", path).
			Int("attempt", attempt).
			Msg("Sending request")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			if attempt < maxRetries && IsRetryableError(err) {
				if waitErr := c.waitForRetry(ctx, attempt); waitErr != nil {
					return nil, waitErr
				}
				continue
			}
			return nil, err
		}

		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = err
			if attempt < maxRetries {
				if waitErr := c.waitForRetry(ctx, attempt); waitErr != nil {
					return nil, waitErr
				}
				continue
			}
			return nil, err
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return respBody, nil
		}

		resp.Body = io.NopCloser(bytes.NewReader(respBody))
		apiErr := ParseAPIError(resp)
		lastErr = apiErr

		if attempt < maxRetries && IsRetryableError(apiErr) {
			c.logger.Warn().
				Err(apiErr).
				Str("path", path).
				Int("attempt", attempt).
				Msg("Retrying request")
			if waitErr := c.waitForRetry(ctx, attempt); waitErr != nil {
				return nil, waitErr
			}
			continue
		}

		return nil, apiErr
	}

	return nil, lastErr
}

// waitForRetry implements exponential backoff with jitter
func (c *Client) waitForRetry(ctx context.Context, attempt int) error {
	baseDelay := 100 * time.Millisecond
	maxDelay := 2 * time.Second

	// Exponential backoff: 100ms, 200ms, 400ms, etc.
	delay := time.Duration(float64(baseDelay) * math.Pow(2, float64(attempt)))
	if delay > maxDelay {
		delay = maxDelay
	}

	// Add small jitter (±20%)
	jitterFactor := float64(time.Now().UnixNano()%100) / 100.0
	delay += time.Duration(float64(delay) * 0.2 * (2*jitterFactor - 1))

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
