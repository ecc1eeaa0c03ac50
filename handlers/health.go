package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/heptiolabs/healthcheck"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewHealth returns a healthcheck handler with a goroutine liveness check.
// Readiness checks are added by the caller per configured backend.
func NewHealth() healthcheck.Handler {
	h := healthcheck.NewHandler()
	h.AddLivenessCheck("goroutine-threshold", healthcheck.GoroutineCountCheck(10000))
	return h
}

// PingCheck adapts a context aware ping into a readiness check bounded by timeout.
func PingCheck(ping func(context.Context) error, timeout time.Duration) healthcheck.Check {
	return healthcheck.Timeout(func() error {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return ping(ctx)
	}, timeout)
}

// RegisterHealth exposes /health (always 200) plus /live and /ready from h.
func RegisterHealth(r gin.IRouter, h healthcheck.Handler) {
	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "healthy")
	})
	r.GET("/live", gin.WrapH(h))
	r.GET("/ready", gin.WrapH(h))
}

// RegisterMetrics exposes the gatherer's collectors at /metrics.
func RegisterMetrics(r gin.IRouter, g prometheus.Gatherer) {
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(g, promhttp.HandlerOpts{})))
}
