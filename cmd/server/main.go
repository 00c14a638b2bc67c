package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"hlexec/internal/api"
	"hlexec/internal/config"
	"hlexec/internal/market"
	"hlexec/internal/metrics"
	"hlexec/internal/session"
)

func main() {
	// Bootstrap logger until the config says otherwise
	logger := newLogger(config.LoggingConfig{Level: "info"}, os.Stderr)

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to load configuration")
	}
	logger = newLogger(cfg.Logging, os.Stderr)

	logger.Info().
		Int("port", cfg.Server.Port).
		Str("version", cfg.Server.Version).
		Str("base_url", cfg.Exchange.BaseURL).
		Bool("testnet", cfg.Exchange.Testnet).
		Str("swap_asset", cfg.Trading.SwapAsset).
		Msg("Starting hlexec")

	collector := metrics.NewCollector()

	sess, err := newSession(cfg, collector, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create session")
	}
	defer sess.Close()

	server, err := api.NewServer(serverConfig(cfg.Server), sess, collector, logger.With().Str("component", "api").Logger())
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create server")
	}

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- server.Start()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("Server error")
		}
	case sig := <-shutdown:
		logger.Info().Str("signal", sig.String()).Msg("Shutdown signal received")

		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			logger.Error().Err(err).Msg("Failed to shutdown server gracefully")
		}
	}

	logger.Info().Msg("Shutdown complete")
}

// newSession opens a wallet session when a private key is configured
func newSession(cfg *config.Config, collector *metrics.Collector, logger zerolog.Logger) (*session.Session, error) {
	sessionLogger := logger.With().Str("component", "session").Logger()
	opts := []session.Option{
		session.WithRecorder(collector),
		session.WithEventEmitter(newEventEmitter(cfg.Trading, sessionLogger)),
		session.WithFeedObserver(func(state market.FeedState) {
			collector.RecordWebSocketConnection(state.String())
		}),
	}

	if cfg.Trading.PrivateKey == "" {
		logger.Warn().Msg("HL_PRIVATE_KEY not set, order endpoints are disabled")
		return session.New(cfg, sessionLogger, opts...)
	}
	return session.NewWithWallet(cfg, cfg.Trading.PrivateKey, sessionLogger, opts...)
}
