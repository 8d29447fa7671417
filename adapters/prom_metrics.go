package adapters

import (
	"antplus-to-mqtt/application"
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

const PromMetricsNamespace = "antplus"

type PromMetrics struct {
	published       prometheus.Counter
	publishFailed   prometheus.Counter
	expiryResets    prometheus.Counter
	pendingExpiries prometheus.Gauge

	gatherer prometheus.Gatherer
}

// NewPromMetrics registers the bridge metrics on reg. A nil reg uses a
// fresh registry.
func NewPromMetrics(reg *prometheus.Registry) (*PromMetrics, error) {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	p := &PromMetrics{
		published: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: PromMetricsNamespace,
			Name:      "published_total",
			Help:      "Sensor values published to the broker.",
		}),
		publishFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: PromMetricsNamespace,
			Name:      "publish_failed_total",
			Help:      "Publishes rejected by the broker client.",
		}),
		expiryResets: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: PromMetricsNamespace,
			Name:      "expiry_resets_total",
			Help:      "Topics reset to zero after their sensor went silent.",
		}),
		pendingExpiries: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: PromMetricsNamespace,
			Name:      "pending_expiries",
			Help:      "Topics currently waiting for an expiry reset.",
		}),
		gatherer: reg,
	}

	for _, c := range []prometheus.Collector{p.published, p.publishFailed, p.expiryResets, p.pendingExpiries} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func (p *PromMetrics) IncPublished() {
	p.published.Inc()
}

func (p *PromMetrics) IncPublishFailed() {
	p.publishFailed.Inc()
}

func (p *PromMetrics) IncExpiryReset() {
	p.expiryResets.Inc()
}

func (p *PromMetrics) SetPendingExpiries(n int) {
	p.pendingExpiries.Set(float64(n))
}

func (p *PromMetrics) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(p.gatherer, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}

// Serve exposes the metrics on addr until ctx is done.
func (p *PromMetrics) Serve(ctx context.Context, addr string, log zerolog.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           p.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info().Str("addr", addr).Msg("metrics server listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

var _ application.Metrics = &PromMetrics{}
