package destination

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"tempo/internal/core"
	"tempo/internal/logging"
)

// Prometheus exposes the latest measurement as gauges. Numeric and boolean
// results become samples of <namespace>_result{result="<label>"}; other
// values are skipped. When listen is set, Open serves /metrics on it.
type Prometheus struct {
	listen   string
	registry *prometheus.Registry
	logger   *zap.Logger

	iterations prometheus.Gauge
	percentage prometheus.Gauge
	runTime    prometheus.Gauge
	results    *prometheus.GaugeVec

	mu     sync.Mutex
	server *http.Server
	addr   net.Addr
}

// NewPrometheus creates the gauges in a registry of their own. Every sample
// carries the reporter label when reporter is not empty.
func NewPrometheus(namespace, reporter, listen string) *Prometheus {
	if namespace == "" {
		namespace = "tempo"
	}
	var labels prometheus.Labels
	if reporter != "" {
		labels = prometheus.Labels{"reporter": reporter}
	}
	d := &Prometheus{
		listen:   listen,
		registry: prometheus.NewRegistry(),
		logger:   logging.Named("prometheus"),
		iterations: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "iterations", ConstLabels: labels,
			Help: "Iterations counted by the reporter.",
		}),
		percentage: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "percentage", ConstLabels: labels,
			Help: "Progress of the run in percent.",
		}),
		runTime: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "run_time_seconds", ConstLabels: labels,
			Help: "Elapsed time of the run.",
		}),
		results: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "result", ConstLabels: labels,
			Help: "Latest value of each reporter result.",
		}, []string{"result"}),
	}
	d.registry.MustRegister(d.iterations, d.percentage, d.runTime, d.results)
	return d
}

// Registry returns the registry holding the gauges.
func (d *Prometheus) Registry() *prometheus.Registry {
	return d.registry
}

// Addr returns the address /metrics is served on, nil when not serving.
func (d *Prometheus) Addr() net.Addr {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.addr
}

func (d *Prometheus) Open() error {
	if d.listen == "" {
		return nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.server != nil {
		return nil
	}
	ln, err := net.Listen("tcp", d.listen)
	if err != nil {
		return fmt.Errorf("prometheus listen %s: %w", d.listen, err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(d.registry, promhttp.HandlerOpts{}))
	d.server = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	d.addr = ln.Addr()

	srv := d.server
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			d.logger.Error("Metrics server failed", zap.Error(err))
		}
	}()
	d.logger.Info("Serving metrics", zap.Stringer("addr", d.addr))
	return nil
}

func (d *Prometheus) Report(m *core.Measurement) error {
	d.iterations.Set(float64(m.Iteration() + 1))
	d.percentage.Set(float64(m.Percentage()))
	d.runTime.Set(m.Time().Seconds())
	m.Each(func(name string, value any) {
		if f, ok := toFloat(value); ok {
			d.results.WithLabelValues(name).Set(f)
		}
	})
	return nil
}

func (d *Prometheus) Close() error {
	d.mu.Lock()
	srv := d.server
	d.server, d.addr = nil, nil
	d.mu.Unlock()
	if srv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}

func (d *Prometheus) String() string { return "prometheus" }

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	case bool:
		if n {
			return 1, true
		}
		return 0, true
	case time.Duration:
		return n.Seconds(), true
	default:
		return 0, false
	}
}
