// Package telemetry holds the bridge's Prometheus metrics and tracing setup.
//
// stdout carries the MCP stream, so nothing here ever writes to it: traces
// go to the writer handed to InstallTracing (stderr in production) and
// metrics are only exposed when a listen address is configured.
package telemetry

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the bridge.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	CallsTotal     *prometheus.CounterVec
	CallDuration   *prometheus.HistogramVec
	RefreshesTotal *prometheus.CounterVec
	RefreshWaiters prometheus.Counter
	ToolCallsTotal *prometheus.CounterVec
}

// NewMetrics creates and registers all metrics with the given registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		CallsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "cribl_bridge",
				Name:      "api_calls_total",
				Help:      "Total Cribl API calls by method and outcome",
			},
			[]string{"method", "outcome"}, // outcome=ok/http_error/transport_error/refresh_error/error
		),
		CallDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "cribl_bridge",
				Name:      "api_call_duration_seconds",
				Help:      "Cribl API call duration in seconds, credential refresh included",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method"},
		),
		RefreshesTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "cribl_bridge",
				Name:      "credential_refreshes_total",
				Help:      "Credential exchanges performed, by mode and result",
			},
			[]string{"mode", "result"},
		),
		RefreshWaiters: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Namespace: "cribl_bridge",
				Name:      "credential_refresh_waits_total",
				Help:      "Callers that waited on a credential refresh",
			},
		),
		ToolCallsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "cribl_bridge",
				Name:      "tool_calls_total",
				Help:      "MCP tool invocations by tool and result",
			},
			[]string{"tool", "result"},
		),
	}
}

// ObserveCall records one gateway call.
func (m *Metrics) ObserveCall(method, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.CallsTotal.WithLabelValues(method, outcome).Inc()
	m.CallDuration.WithLabelValues(method).Observe(elapsed.Seconds())
}

// ObserveRefresh records one credential exchange.
func (m *Metrics) ObserveRefresh(mode string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.RefreshesTotal.WithLabelValues(mode, result).Inc()
}

// ObserveRefreshWait records a caller that had to wait for a refresh.
func (m *Metrics) ObserveRefreshWait() {
	if m == nil {
		return
	}
	m.RefreshWaiters.Inc()
}

// ObserveTool records one tool invocation.
func (m *Metrics) ObserveTool(tool string, isError bool) {
	if m == nil {
		return
	}
	result := "ok"
	if isError {
		result = "error"
	}
	m.ToolCallsTotal.WithLabelValues(tool, result).Inc()
}

// ServeMetrics exposes reg on addr under /metrics until ctx is done.
func ServeMetrics(ctx context.Context, addr string, reg prometheus.Gatherer, logger *slog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("metrics listener started", "addr", ln.Addr().String())
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
