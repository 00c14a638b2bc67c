package main

import (
	"io"
	"time"

	"github.com/rs/zerolog"

	"hlexec/internal/api"
	"hlexec/internal/config"
	"hlexec/internal/orders"
)

// newLogger builds the process logger from the logging config
func newLogger(cfg config.LoggingConfig, out io.Writer) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339

	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	if cfg.Format != "json" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}

// serverConfig maps the env config onto the HTTP server settings
func serverConfig(cfg config.ServerConfig) api.ServerConfig {
	return api.ServerConfig{
		Port:           cfg.Port,
		ReadTimeout:    cfg.ReadTimeout,
		WriteTimeout:   cfg.WriteTimeout,
		IdleTimeout:    cfg.IdleTimeout,
		MaxHeaderBytes: 1 << 20, // 1 MB
		APIKey:         cfg.APIKey,
		Version:        cfg.Version,
		RateLimit:      cfg.RateLimit,
		CORSOrigins:    cfg.CORSOrigins,
	}
}

// newEventEmitter posts order updates to the events URL, or logs them
func newEventEmitter(cfg config.TradingConfig, logger zerolog.Logger) orders.EventEmitter {
	if cfg.EventsURL != "" {
		logger.Info().Str("url", cfg.EventsURL).Msg("Order updates will be sent via HTTP")
		return orders.NewHTTPEventEmitter(cfg.EventsURL)
	}
	logger.Info().Msg("Order updates will be logged")
	return orders.NewLogEventEmitter(logger)
}
