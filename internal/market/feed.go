package market

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// FeedState represents the state of the mids feed connection
type FeedState int

const (
	FeedDisconnected FeedState = iota
	FeedConnecting
	FeedConnected
	FeedReconnecting
	FeedClosed
)

func (s FeedState) String() string {
	switch s {
	case FeedDisconnected:
		return "disconnected"
	case FeedConnecting:
		return "connecting"
	case FeedConnected:
		return "connected"
	case FeedReconnecting:
		return "reconnecting"
	case FeedClosed:
		return "closed"
	default:
		return "unknown"
	}
}

var errFeedClosed = errors.New("mids feed closed")

var (
	subscribeAllMids = []byte(`{"method":"subscribe","subscription":{"type":"allMids"}}`)
	pingMessage      = []byte(`{"method":"ping"}`)
)

type feedMessage struct {
	Channel string          `json:"channel"`
	Data    json.RawMessage `json:"data"`
}

type allMidsData struct {
	Mids map[string]string `json:"mids"`
}

// MidsFeed keeps the latest allMids snapshot from the websocket API and
// serves it as a QuoteSource
type MidsFeed struct {
	url    string
	logger zerolog.Logger

	pingInterval      time.Duration
	readTimeout       time.Duration
	writeTimeout      time.Duration
	reconnectInterval time.Duration
	maxReconnectDelay time.Duration
	staleAfter        time.Duration

	state    FeedState
	stateMu  sync.RWMutex
	observer func(FeedState)

	conn    *websocket.Conn
	closed  bool
	connMu  sync.Mutex
	writeMu sync.Mutex

	mids      map[string]string
	updatedAt time.Time
	midsMu    sync.RWMutex
	ready     chan struct{}
	readyOnce sync.Once

	cancel context.CancelFunc
	done   chan struct{}
}

// FeedOption configures the feed
type FeedOption func(*MidsFeed)

// WithPingInterval sets the keepalive interval
func WithPingInterval(interval time.Duration) FeedOption {
	return func(f *MidsFeed) {
		f.pingInterval = interval
	}
}

// WithReadTimeout sets how long the feed waits for any message
func WithReadTimeout(timeout time.Duration) FeedOption {
	return func(f *MidsFeed) {
		f.readTimeout = timeout
	}
}

// WithReconnectInterval sets the base reconnection interval
func WithReconnectInterval(interval time.Duration) FeedOption {
	return func(f *MidsFeed) {
		f.reconnectInterval = interval
	}
}

// WithStaleAfter sets the age after which a snapshot is no longer served
func WithStaleAfter(age time.Duration) FeedOption {
	return func(f *MidsFeed) {
		f.staleAfter = age
	}
}

// WithStateObserver is called on every connection state change
func WithStateObserver(observer func(FeedState)) FeedOption {
	return func(f *MidsFeed) {
		f.observer = observer
	}
}

// NewMidsFeed creates a feed for the given websocket URL
func NewMidsFeed(url string, logger zerolog.Logger, opts ...FeedOption) *MidsFeed {
	f := &MidsFeed{
		url:               url,
		logger:            logger,
		pingInterval:      30 * time.Second,
		readTimeout:       60 * time.Second,
		writeTimeout:      10 * time.Second,
		reconnectInterval: time.Second,
		maxReconnectDelay: 30 * time.Second,
		staleAfter:        time.Minute,
		state:             FeedDisconnected,
		ready:             make(chan struct{}),
		done:              make(chan struct{}),
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// URL returns the websocket URL
func (f *MidsFeed) URL() string {
	return f.url
}

// State returns the current connection state
func (f *MidsFeed) State() FeedState {
	f.stateMu.RLock()
	defer f.stateMu.RUnlock()
	return f.state
}

// setState records a transition. Closed is terminal.
func (f *MidsFeed) setState(state FeedState) {
	f.stateMu.Lock()
	if f.state == FeedClosed {
		f.stateMu.Unlock()
		return
	}
	changed := f.state != state
	f.state = state
	f.stateMu.Unlock()

	if changed && f.observer != nil {
		f.observer(state)
	}
}

// Start dials, subscribes to allMids and keeps the connection alive until
// ctx is cancelled or Close is called
func (f *MidsFeed) Start(ctx context.Context) error {
	if state := f.State(); state != FeedDisconnected {
		return fmt.Errorf("feed already started: %s", state)
	}

	f.setState(FeedConnecting)
	conn, err := f.dial(ctx)
	if err != nil {
		f.setState(FeedDisconnected)
		return err
	}

	runCtx, cancel := context.WithCancel(context.Background())
	f.cancel = cancel
	go func() {
		select {
		case <-ctx.Done():
			cancel()
			f.closeConn()
		case <-runCtx.Done():
		}
	}()

	f.setState(FeedConnected)
	go f.run(runCtx, conn)

	return nil
}

// AllMids returns a copy of the latest snapshot, waiting for the first one
func (f *MidsFeed) AllMids(ctx context.Context) (map[string]string, error) {
	if f.State() == FeedClosed {
		return nil, fmt.Errorf("mids feed closed")
	}

	select {
	case <-f.ready:
	case <-f.done:
		return nil, fmt.Errorf("mids feed closed")
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	f.midsMu.RLock()
	defer f.midsMu.RUnlock()

	if f.staleAfter > 0 && time.Since(f.updatedAt) > f.staleAfter {
		return nil, fmt.Errorf("mids snapshot is stale: last update %s ago", time.Since(f.updatedAt).Truncate(time.Millisecond))
	}

	out := make(map[string]string, len(f.mids))
	for k, v := range f.mids {
		out[k] = v
	}
	return out, nil
}

// Close stops the feed and closes the connection
func (f *MidsFeed) Close() error {
	if f.State() == FeedClosed {
		return nil
	}
	started := f.cancel != nil
	f.setState(FeedClosed)

	f.connMu.Lock()
	f.closed = true
	f.connMu.Unlock()

	if f.cancel != nil {
		f.cancel()
	}
	f.closeConn()

	if !started {
		close(f.done)
		return nil
	}

	select {
	case <-f.done:
	case <-time.After(time.Second):
		f.logger.Warn().Msg("Timed out waiting for mids feed shutdown")
	}
	return nil
}

func (f *MidsFeed) dial(ctx context.Context) (*websocket.Conn, error) {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}

	conn, _, err := dialer.DialContext(ctx, f.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", f.url, err)
	}

	conn.SetReadDeadline(time.Now().Add(f.readTimeout))
	conn.SetWriteDeadline(time.Now().Add(f.writeTimeout))
	if err := conn.WriteMessage(websocket.TextMessage, subscribeAllMids); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to subscribe to allMids: %w", err)
	}

	// a connection finished after Close must not outlive it
	f.connMu.Lock()
	if f.closed || ctx.Err() != nil {
		f.connMu.Unlock()
		conn.Close()
		return nil, errFeedClosed
	}
	f.conn = conn
	f.connMu.Unlock()

	f.logger.Info().Str("url", f.url).Msg("Mids feed connected")
	return conn, nil
}

func (f *MidsFeed) closeConn() {
	f.connMu.Lock()
	conn := f.conn
	f.conn = nil
	f.connMu.Unlock()

	if conn == nil {
		return
	}

	f.writeMu.Lock()
	conn.SetWriteDeadline(time.Now().Add(100 * time.Millisecond))
	conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	f.writeMu.Unlock()
	conn.Close()
}

// run serves one connection at a time and reconnects with exponential backoff
func (f *MidsFeed) run(ctx context.Context, conn *websocket.Conn) {
	defer close(f.done)

	attempts := 0
	for {
		connDone := make(chan struct{})
		go f.pingLoop(ctx, conn, connDone)
		err := f.readLoop(conn)
		close(connDone)

		if ctx.Err() != nil || f.State() == FeedClosed {
			return
		}

		f.logger.Warn().Err(err).Msg("Mids feed disconnected")
		f.closeConn()
		f.setState(FeedReconnecting)

		for {
			attempts++
			delay := f.reconnectInterval * time.Duration(1<<uint(min(attempts-1, 16)))
			if delay > f.maxReconnectDelay {
				delay = f.maxReconnectDelay
			}

			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
			}

			next, dialErr := f.dial(ctx)
			if dialErr == nil {
				if ctx.Err() != nil || f.State() == FeedClosed {
					f.closeConn()
					return
				}
				conn = next
				attempts = 0
				f.setState(FeedConnected)
				break
			}
			if errors.Is(dialErr, errFeedClosed) || ctx.Err() != nil {
				return
			}
			f.logger.Error().Err(dialErr).Int("attempt", attempts).Msg("Mids feed reconnect failed")
		}
	}
}

func (f *MidsFeed) readLoop(conn *websocket.Conn) error {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		conn.SetReadDeadline(time.Now().Add(f.readTimeout))
		f.handleMessage(data)
	}
}

func (f *MidsFeed) pingLoop(ctx context.Context, conn *websocket.Conn, connDone <-chan struct{}) {
	ticker := time.NewTicker(f.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			f.closeConn()
			return
		case <-connDone:
			return
		case <-ticker.C:
			f.writeMu.Lock()
			conn.SetWriteDeadline(time.Now().Add(f.writeTimeout))
			err := conn.WriteMessage(websocket.TextMessage, pingMessage)
			f.writeMu.Unlock()
			if err != nil {
				f.logger.Debug().Err(err).Msg("Mids feed ping failed")
				return
			}
		}
	}
}

func (f *MidsFeed) handleMessage(data []byte) {
	var msg feedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		f.logger.Debug().Err(err).Msg("Ignoring malformed feed message")
		return
	}

	switch msg.Channel {
	case "allMids":
		var payload allMidsData
		if err := json.Unmarshal(msg.Data, &payload); err != nil || payload.Mids == nil {
			f.logger.Debug().Msg("Ignoring malformed allMids payload")
			return
		}

		f.midsMu.Lock()
		f.mids = payload.Mids
		f.updatedAt = time.Now()
		f.midsMu.Unlock()
		f.readyOnce.Do(func() { close(f.ready) })
	case "pong", "subscriptionResponse":
	default:
		f.logger.Debug().Str("channel", msg.Channel).Msg("Ignoring feed message")
	}
}
