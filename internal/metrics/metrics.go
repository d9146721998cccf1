// Package metrics exposes Prometheus metrics about watch iterations.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors for one srcwatch process.
type Metrics struct {
	registry *prometheus.Registry

	iterations   prometheus.Counter
	stepFailures *prometheus.CounterVec
	exitCode     prometheus.Gauge
	stepDuration *prometheus.HistogramVec
}

// New creates the collectors on a private registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		iterations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "srcwatch_iterations_total",
			Help: "Number of change-triggered iterations completed",
		}),
		stepFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "srcwatch_step_failures_total",
				Help: "Number of failed formatter or program runs",
			},
			[]string{"step"},
		),
		exitCode: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "srcwatch_program_exit_code",
			Help: "Exit code of the most recent downstream program run",
		}),
		stepDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "srcwatch_step_duration_seconds",
				Help:    "Wall time of each iteration step",
				Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
			},
			[]string{"step"},
		),
	}

	m.registry.MustRegister(m.iterations, m.stepFailures, m.exitCode, m.stepDuration)

	return m
}

// ObserveStep records the duration and outcome of one step.
func (m *Metrics) ObserveStep(step string, d time.Duration, failed bool) {
	m.stepDuration.WithLabelValues(step).Observe(d.Seconds())

	if failed {
		m.stepFailures.WithLabelValues(step).Inc()
	}
}

// ObserveIteration records a completed iteration and the program's exit code.
func (m *Metrics) ObserveIteration(exitCode int) {
	m.iterations.Inc()
	m.exitCode.Set(float64(exitCode))
}

// NewRouter serves /metrics and /health.
func NewRouter(m *Metrics) *mux.Router {
	router := mux.NewRouter()
	router.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	router.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"healthy"}`))
	}).Methods(http.MethodGet)

	return router
}

// Serve listens on addr until ctx is done.
func Serve(ctx context.Context, addr string, m *Metrics, logger *slog.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           NewRouter(m),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("serving metrics", slog.String("addr", addr))

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serving metrics on %s: %w", addr, err)
	}

	return nil
}
