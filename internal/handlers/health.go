package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"hlexec/internal/account"
	"hlexec/internal/models"
)

// ReadinessChecker interface for checking service readiness
type ReadinessChecker interface {
	Check(ctx context.Context) (map[string]models.HealthCheck, bool, error)
}

// MetricsCollector interface for collecting Prometheus metrics
type MetricsCollector interface {
	Collect() (string, error)
}

// Wallet describes the signing capability of the session
type Wallet interface {
	HasWallet() bool
	Address() string
}

// HealthHandlers contains health check handlers
type HealthHandlers struct {
	version   string
	startTime time.Time
	wallet    Wallet
}

// NewHealthHandlers creates new health handlers
func NewHealthHandlers(version string, startTime time.Time, wallet Wallet) *HealthHandlers {
	return &HealthHandlers{
		version:   version,
		startTime: startTime,
		wallet:    wallet,
	}
}

// HealthCheck returns a handler for health check endpoint
func (h *HealthHandlers) HealthCheck() gin.HandlerFunc {
	return func(c *gin.Context) {
		response := models.HealthResponse{
			Status:  "healthy",
			Version: h.version,
			Uptime:  int64(time.Since(h.startTime).Seconds()),
		}
		if h.wallet != nil {
			response.Wallet = h.wallet.HasWallet()
			response.Address = h.wallet.Address()
		}

		c.JSON(http.StatusOK, response)
	}
}

// Readiness returns a handler for readiness check endpoint
func (h *HealthHandlers) Readiness(checker ReadinessChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		checks, ready, err := checker.Check(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, models.ReadinessResponse{
				Ready: false,
				Checks: map[string]models.HealthCheck{
					"error": {
						Status:  "unhealthy",
						Message: "Failed to check readiness",
						Error:   err.Error(),
					},
				},
			})
			return
		}

		status := http.StatusOK
		if !ready {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, models.ReadinessResponse{Ready: ready, Checks: checks})
	}
}

// Metrics returns a handler for Prometheus metrics endpoint
func (h *HealthHandlers) Metrics(collector MetricsCollector) gin.HandlerFunc {
	return func(c *gin.Context) {
		metrics, err := collector.Collect()
		if err != nil {
			c.JSON(http.StatusInternalServerError, models.NewErrorResponse(
				"METRICS_ERROR",
				"Failed to collect metrics",
				c.GetString("request_id"),
			))
			return
		}

		c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(metrics))
	}
}

// MidsProbe is the read the exchange readiness check performs
type MidsProbe interface {
	AllMids(ctx context.Context) ([]account.PriceInfo, error)
}

// ExchangeReadiness reports ready when a mids snapshot can be fetched
type ExchangeReadiness struct {
	probe   MidsProbe
	timeout time.Duration
}

// NewExchangeReadiness creates a readiness checker bounded by timeout
func NewExchangeReadiness(probe MidsProbe, timeout time.Duration) *ExchangeReadiness {
	return &ExchangeReadiness{probe: probe, timeout: timeout}
}

// Check fetches mids once
func (r *ExchangeReadiness) Check(ctx context.Context) (map[string]models.HealthCheck, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	mids, err := r.probe.AllMids(ctx)
	if err != nil {
		return map[string]models.HealthCheck{
			"exchange": {Status: "unhealthy", Message: "Failed to fetch mids", Error: err.Error()},
		}, false, nil
	}
	if len(mids) == 0 {
		return map[string]models.HealthCheck{
			"exchange": {Status: "unhealthy", Message: "Empty mids snapshot"},
		}, false, nil
	}

	return map[string]models.HealthCheck{
		"exchange": {Status: "healthy", Message: "Mids available"},
	}, true, nil
}
