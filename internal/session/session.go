package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"hlexec/internal/account"
	"hlexec/internal/auth"
	"hlexec/internal/config"
	"hlexec/internal/exchange"
	"hlexec/internal/hyperliquid"
	"hlexec/internal/market"
	"hlexec/internal/normalizer"
	"hlexec/internal/orders"
)

// ErrClosed is returned by queries on a closed session
var ErrClosed = errors.New("session closed")

// Session owns the connection to the exchange for one user. The signing
// capability is fixed at construction. Calls on one session run one at a
// time; separate sessions are independent.
type Session struct {
	cfg      *config.Config
	client   *hyperliquid.Client
	signer   *auth.Signer
	universe *exchange.Universe
	feed     *market.MidsFeed
	aliases  *market.AliasTable
	oracle   *market.PriceOracle
	account  *account.Client
	executor *orders.Executor

	ctx    context.Context
	cancel context.CancelFunc
	mu     sync.Mutex
	logger zerolog.Logger
}

type options struct {
	httpClient *http.Client
	recorder   orders.Recorder
	emitter    orders.EventEmitter
	observer   func(market.FeedState)
}

// Option configures a Session
type Option func(*options)

// WithHTTPClient replaces the transport's HTTP client
func WithHTTPClient(client *http.Client) Option {
	return func(o *options) {
		o.httpClient = client
	}
}

// WithRecorder records order outcomes
func WithRecorder(recorder orders.Recorder) Option {
	return func(o *options) {
		o.recorder = recorder
	}
}

// WithEventEmitter publishes order updates
func WithEventEmitter(emitter orders.EventEmitter) Option {
	return func(o *options) {
		o.emitter = emitter
	}
}

// WithFeedObserver is told about mids feed state changes
func WithFeedObserver(observer func(market.FeedState)) Option {
	return func(o *options) {
		o.observer = observer
	}
}

// New creates a read-only session
func New(cfg *config.Config, logger zerolog.Logger, opts ...Option) (*Session, error) {
	return newSession(cfg, "", logger, opts...)
}

// NewWithWallet creates a session that can sign orders with privateKey
func NewWithWallet(cfg *config.Config, privateKey string, logger zerolog.Logger, opts ...Option) (*Session, error) {
	if privateKey == "" {
		return nil, fmt.Errorf("private key is required")
	}
	return newSession(cfg, privateKey, logger, opts...)
}

func newSession(cfg *config.Config, privateKey string, logger zerolog.Logger, opts ...Option) (*Session, error) {
	if cfg == nil || cfg.Markets == nil {
		return nil, fmt.Errorf("configuration with a market table is required")
	}
	if err := cfg.Markets.Validate(); err != nil {
		return nil, fmt.Errorf("invalid market table: %w", err)
	}
	if _, ok := cfg.Markets.Asset(cfg.Trading.SwapAsset); !ok {
		return nil, fmt.Errorf("swap asset %s has no alias list", cfg.Trading.SwapAsset)
	}

	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	slippage, err := decimal.NewFromString(cfg.Trading.Slippage)
	if err != nil {
		return nil, fmt.Errorf("invalid slippage %q: %w", cfg.Trading.Slippage, err)
	}
	swapTIF, err := normalizer.ParseTimeInForce(cfg.Trading.SwapTimeInForce)
	if err != nil {
		return nil, err
	}
	rules, err := normalizer.NewRuleBook(cfg.Markets)
	if err != nil {
		return nil, err
	}

	clientOpts := []hyperliquid.Option{
		hyperliquid.WithTimeout(cfg.Exchange.Timeout),
		hyperliquid.WithMaxRetries(cfg.Exchange.MaxRetries),
		hyperliquid.WithRateLimit(cfg.Exchange.RateLimit, cfg.Exchange.RateBurst),
		hyperliquid.WithLogger(logger),
	}
	if o.httpClient != nil {
		clientOpts = append(clientOpts, hyperliquid.WithHTTPClient(o.httpClient))
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		cfg:     cfg,
		client:  hyperliquid.NewClient(cfg.Exchange.BaseURL, clientOpts...),
		aliases: market.NewAliasTable(cfg.Markets),
		ctx:     ctx,
		cancel:  cancel,
		logger:  logger,
	}
	s.universe = exchange.NewUniverse(s.client, cfg.Exchange.UniverseCacheTTL, logger)
	s.account = account.NewClient(s.client, logger)

	var source market.QuoteSource = s.client
	if cfg.Exchange.QuoteSource == "ws" {
		var feedOpts []market.FeedOption
		if o.observer != nil {
			feedOpts = append(feedOpts, market.WithStateObserver(o.observer))
		}
		s.feed = market.NewMidsFeed(cfg.Exchange.WSURL, logger, feedOpts...)
		if err := s.feed.Start(ctx); err != nil {
			cancel()
			return nil, fmt.Errorf("failed to start mids feed: %w", err)
		}
		source = s.feed
	}
	s.oracle = market.NewPriceOracle(source, market.NewResolver(s.aliases), logger)

	// sender stays a nil interface for read-only sessions
	var sender orders.Sender
	if privateKey != "" {
		trader, err := s.newTrader(privateKey)
		if err != nil {
			s.Close()
			return nil, err
		}
		sender = trader
	}

	var executorOpts []orders.Option
	if o.recorder != nil {
		executorOpts = append(executorOpts, orders.WithRecorder(o.recorder))
	}
	if o.emitter != nil {
		executorOpts = append(executorOpts, orders.WithEventEmitter(o.emitter))
	}
	swap := orders.SwapConfig{Asset: cfg.Trading.SwapAsset, TimeInForce: swapTIF}
	s.executor = orders.NewExecutor(sender, s.oracle, normalizer.New(rules, slippage), swap, logger, executorOpts...)

	logger.Info().
		Str("base_url", cfg.Exchange.BaseURL).
		Str("quote_source", cfg.Exchange.QuoteSource).
		Bool("wallet", s.HasWallet()).
		Str("address", s.Address()).
		Msg("Session created")

	return s, nil
}

// newTrader builds the signer and loads the asset universe
func (s *Session) newTrader(privateKey string) (*exchange.Trader, error) {
	signer, err := auth.NewSigner(privateKey, s.cfg.IsMainnet())
	if err != nil {
		return nil, err
	}
	s.signer = signer

	trader, err := exchange.NewTrader(s.client, signer, s.universe, s.cfg.Exchange.VaultAddress, s.logger)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(s.ctx, s.cfg.Exchange.Timeout)
	defer cancel()
	if err := s.universe.Refresh(ctx); err != nil {
		return nil, fmt.Errorf("failed to load asset universe: %w", err)
	}
	go s.universe.Run(s.ctx)

	return trader, nil
}

// HasWallet reports whether the session can place orders
func (s *Session) HasWallet() bool {
	return s.signer != nil
}

// Address returns the wallet address, or an empty string for read-only sessions
func (s *Session) Address() string {
	if s.signer == nil {
		return ""
	}
	return s.signer.Address().Hex()
}

// Close releases the session. Calls in flight are cancelled and later calls
// fail.
func (s *Session) Close() error {
	s.cancel()
	if s.feed != nil {
		return s.feed.Close()
	}
	return nil
}

// begin serializes calls and ties ctx to the session lifetime
func (s *Session) begin(ctx context.Context) (context.Context, func(), error) {
	s.mu.Lock()
	if s.ctx.Err() != nil {
		s.mu.Unlock()
		return nil, nil, ErrClosed
	}

	opCtx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(s.ctx, cancel)
	return opCtx, func() {
		stop()
		cancel()
		s.mu.Unlock()
	}, nil
}
