package cmd

import (
	"expvar"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/CraigKelly/blr/model"
)

var (
	progressOnce sync.Once
	progressMap  *expvar.Map
)

// progress returns the process-wide expvar map. expvar names may only be
// published once per process.
func progress() *expvar.Map {
	progressOnce.Do(func() {
		progressMap = expvar.NewMap("blr-progress")
	})
	return progressMap
}

// monitor reports progress of the check command over HTTP, both as expvar
// JSON (/debug/vars) and in the Prometheus text format (/metrics).
type monitor struct {
	log     *slog.Logger
	started bool
	stopped chan struct{}
	server  *http.Server
	addr    net.Addr

	Chains    *expvar.Int
	BatchSize *expvar.Int
	MaxDraws  *expvar.Int
	Draws     *expvar.Int
	Checks    *expvar.Int
	RunTime   *expvar.Float

	LastMaxMeanError *expvar.Float
	LastMaxCovError  *expvar.Float
	LastMaxHellinger *expvar.Float

	registry      *prometheus.Registry
	drawsTotal    prometheus.Counter
	checksTotal   prometheus.Counter
	checkMaxError *prometheus.GaugeVec
	runSeconds    prometheus.Gauge
}

func newMonitor(log *slog.Logger) *monitor {
	m := &monitor{
		log:              log,
		Chains:           new(expvar.Int),
		BatchSize:        new(expvar.Int),
		MaxDraws:         new(expvar.Int),
		Draws:            new(expvar.Int),
		Checks:           new(expvar.Int),
		RunTime:          new(expvar.Float),
		LastMaxMeanError: new(expvar.Float),
		LastMaxCovError:  new(expvar.Float),
		LastMaxHellinger: new(expvar.Float),

		registry: prometheus.NewRegistry(),
		drawsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "blr",
			Name:      "draws_total",
			Help:      "Samples drawn by the empirical moment check.",
		}),
		checksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "blr",
			Name:      "checks_total",
			Help:      "Projection comparisons completed.",
		}),
		checkMaxError: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "blr",
			Name:      "check_max_error",
			Help:      "Worst discrepancy seen by the last projection comparison.",
		}, []string{"measure"}),
		runSeconds: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "blr",
			Name:      "sampling_seconds",
			Help:      "Wall time of the last sampling run.",
		}),
	}
	m.registry.MustRegister(m.drawsTotal, m.checksTotal, m.checkMaxError, m.runSeconds)
	return m
}

// Start publishes the counters and serves them over HTTP at addr
func (m *monitor) Start(addr string) error {
	if m.started {
		return errors.Errorf("BUG: You may only start the process monitor once")
	}

	info := progress()
	info.Set("Chain-Count", m.Chains)
	info.Set("Batch-Size", m.BatchSize)
	info.Set("Max-Draws", m.MaxDraws)
	info.Set("Total-Draws", m.Draws)
	info.Set("Checks", m.Checks)
	info.Set("Run-Time", m.RunTime)
	info.Set("Last-Max-Mean-Error", m.LastMaxMeanError)
	info.Set("Last-Max-Cov-Error", m.LastMaxCovError)
	info.Set("Last-Max-Hellinger", m.LastMaxHellinger)

	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return errors.Wrapf(err, "Could not listen on %s", addr)
	}
	m.addr = lis.Addr()

	mux := http.NewServeMux()
	mux.Handle("/debug/vars", expvar.Handler())
	mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/debug/vars", http.StatusTemporaryRedirect)
	})

	m.started = true
	m.stopped = make(chan struct{})
	m.server = &http.Server{Handler: mux}

	go func() {
		defer close(m.stopped)
		m.server.Serve(lis)
	}()

	m.log.Info("HTTP now available (see /debug/vars and /metrics)", "addr", m.addr.String())
	return nil
}

// Addr is the address actually listened on (nil before Start)
func (m *monitor) Addr() net.Addr {
	return m.addr
}

// SetRun records the shape of a sampling run
func (m *monitor) SetRun(chains int, batchSize int, maxDraws int64) {
	m.Chains.Set(int64(chains))
	m.BatchSize.Set(int64(batchSize))
	m.MaxDraws.Set(maxDraws)
}

// AddDraws is safe to call from several chains at once
func (m *monitor) AddDraws(n int64) {
	m.Draws.Add(n)
	m.drawsTotal.Add(float64(n))
}

// RecordCheck keeps the worst errors of a finished comparison
func (m *monitor) RecordCheck(es *model.ErrorSuite) {
	m.Checks.Add(1)
	m.checksTotal.Inc()

	m.LastMaxMeanError.Set(es.MaxMeanAbsError)
	m.LastMaxCovError.Set(es.MaxCovAbsError)
	m.LastMaxHellinger.Set(es.MaxHellinger)
	m.checkMaxError.WithLabelValues("mean").Set(es.MaxMeanAbsError)
	m.checkMaxError.WithLabelValues("cov").Set(es.MaxCovAbsError)
	m.checkMaxError.WithLabelValues("hellinger").Set(es.MaxHellinger)
}

// SetRunTime records how long the last sampling run took
func (m *monitor) SetRunTime(d time.Duration) {
	m.RunTime.Set(d.Seconds())
	m.runSeconds.Set(d.Seconds())
}

// Stop shuts down the HTTP server. The published counters stay in place.
func (m *monitor) Stop() {
	if !m.started {
		return
	}

	m.server.Close()

	select {
	case <-m.stopped:
		m.log.Info("HTTP info stopped")
	case <-time.After(2 * time.Second):
		m.log.Warn("HTTP would NOT stop: just continuing on")
	}
}
