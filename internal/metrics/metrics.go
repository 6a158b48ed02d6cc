// Package metrics exposes session progress as Prometheus metrics.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/coopco/dodgem/internal/bump"
)

const namespace = "dodgem"

// Collector updates metrics from engine events.
type Collector struct {
	gatherer prometheus.Gatherer

	bumps        *prometheus.CounterVec
	bumpDuration prometheus.Histogram
	cycles       *prometheus.CounterVec
	listings     prometheus.Gauge
	nextRun      prometheus.Gauge
	state        *prometheus.GaugeVec
	authFailures prometheus.Counter
}

// NewCollector registers the metrics on a fresh registry.
func NewCollector() *Collector {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	c := &Collector{
		gatherer: reg,
		bumps: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bumps_total",
			Help:      "Bump attempts by outcome status.",
		}, []string{"status"}),
		bumpDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "bump_duration_seconds",
			Help:      "Time taken by one bump attempt.",
			Buckets:   []float64{1, 2, 5, 10, 20, 30, 60, 120},
		}),
		cycles: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cycles_total",
			Help:      "Cycles by result.",
		}, []string{"result"}),
		listings: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "listings_found",
			Help:      "Active listings found by the latest discovery.",
		}),
		nextRun: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "next_run_timestamp_seconds",
			Help:      "Unix time of the next planned cycle.",
		}),
		state: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "state",
			Help:      "1 for the scheduler's current state, 0 otherwise.",
		}, []string{"state"}),
		authFailures: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_failures_total",
			Help:      "Failed logins.",
		}),
	}
	c.setState(bump.Uninitialized)
	return c
}

func (c *Collector) Emit(e bump.Event) {
	switch e.Kind {
	case bump.EventStateChanged:
		c.setState(e.State)
	case bump.EventAuthFailed:
		c.authFailures.Inc()
	case bump.EventListingsFound:
		c.listings.Set(float64(e.Count))
	case bump.EventBumpFinished:
		if e.Outcome == nil {
			return
		}
		c.bumps.WithLabelValues(e.Outcome.Status.String()).Inc()
		c.bumpDuration.Observe(e.Outcome.Elapsed.Seconds())
	case bump.EventCycleCompleted:
		c.cycles.WithLabelValues("completed").Inc()
		c.setNextRun(e.NextRun)
	case bump.EventCycleFailed:
		c.cycles.WithLabelValues("failed").Inc()
		c.setNextRun(e.NextRun)
	}
}

func (c *Collector) setNextRun(t time.Time) {
	if !t.IsZero() {
		c.nextRun.Set(float64(t.Unix()))
	}
}

func (c *Collector) setState(current bump.State) {
	for s := bump.Uninitialized; s <= bump.Failed; s++ {
		v := 0.0
		if s == current {
			v = 1
		}
		c.state.WithLabelValues(s.String()).Set(v)
	}
}

// Handler serves the collector's metrics in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.gatherer, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is cancelled.
func (c *Collector) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Warn("metrics: shutdown failed", "error", err)
		}
	}()

	slog.Info("metrics: listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to serve metrics: %w", err)
	}
	return nil
}
