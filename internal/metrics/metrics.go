package metrics

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the signal engine.
type Metrics struct {
	TicksTotal       prometheus.Counter
	EvaluationsTotal prometheus.Counter
	SignalChanges    *prometheus.CounterVec // labels: signal
	EvaluateDur      prometheus.Histogram

	// Bar pipeline
	SyntheticBars  prometheus.Counter
	CacheSize      prometheus.Gauge
	CacheMergeAdds prometheus.Counter
	CacheMergeUpds prometheus.Counter
	CacheFlushDur  prometheus.Histogram

	// Backtest validator
	ValidationsTotal *prometheus.CounterVec // labels: signal, result
	PendingSignals   prometheus.Gauge

	// Stores
	SQLiteCommitDur prometheus.Histogram
	RedisPublishDur prometheus.Histogram
}

// NewMetrics registers and returns all Prometheus metrics.
func NewMetrics() *Metrics {
	m := &Metrics{
		TicksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sigengine_ticks_total",
			Help: "Total price ticks consumed",
		}),
		EvaluationsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sigengine_evaluations_total",
			Help: "Total signal evaluations performed",
		}),
		SignalChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sigengine_signal_changes_total",
			Help: "Signal transitions (by new signal)",
		}, []string{"signal"}),
		EvaluateDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "sigengine_evaluate_duration_seconds",
			Help:    "Full evaluation cycle latency",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
		}),

		SyntheticBars: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sigengine_synthetic_bars_total",
			Help: "Synthetic bars generated to pad short history",
		}),
		CacheSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sigengine_cache_bars",
			Help: "Bars currently held in the cache",
		}),
		CacheMergeAdds: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sigengine_cache_merge_added_total",
			Help: "Bars appended to the cache by merge",
		}),
		CacheMergeUpds: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sigengine_cache_merge_updated_total",
			Help: "Bars overwritten in the cache by merge (timestamp collision)",
		}),
		CacheFlushDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "sigengine_cache_flush_duration_seconds",
			Help:    "Cache flush-to-disk latency",
			Buckets: prometheus.DefBuckets,
		}),

		ValidationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sigengine_validations_total",
			Help: "Resolved backtest entries (by signal and result)",
		}, []string{"signal", "result"}),
		PendingSignals: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sigengine_pending_signals",
			Help: "Signals awaiting backtest resolution",
		}),

		SQLiteCommitDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "sigengine_sqlite_commit_duration_seconds",
			Help:    "SQLite archive commit latency",
			Buckets: prometheus.DefBuckets,
		}),
		RedisPublishDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "sigengine_redis_publish_duration_seconds",
			Help:    "Redis snapshot publish latency",
			Buckets: prometheus.DefBuckets,
		}),
	}

	prometheus.MustRegister(
		m.TicksTotal,
		m.EvaluationsTotal,
		m.SignalChanges,
		m.EvaluateDur,
		m.SyntheticBars,
		m.CacheSize,
		m.CacheMergeAdds,
		m.CacheMergeUpds,
		m.CacheFlushDur,
		m.ValidationsTotal,
		m.PendingSignals,
		m.SQLiteCommitDur,
		m.RedisPublishDur,
	)

	return m
}

// HealthStatus represents the engine health.
type HealthStatus struct {
	mu sync.RWMutex

	LastTickTime time.Time `json:"last_tick_time"`
	CacheBars    int       `json:"cache_bars"`
	LastSignal   string    `json:"last_signal"`
	StartedAt    time.Time `json:"started_at"`
}

// NewHealthStatus returns a default health status.
func NewHealthStatus() *HealthStatus {
	return &HealthStatus{StartedAt: time.Now()}
}

func (h *HealthStatus) SetLastTickTime(t time.Time) {
	h.mu.Lock()
	h.LastTickTime = t
	h.mu.Unlock()
}

func (h *HealthStatus) SetCacheBars(n int) {
	h.mu.Lock()
	h.CacheBars = n
	h.mu.Unlock()
}

func (h *HealthStatus) SetLastSignal(s string) {
	h.mu.Lock()
	h.LastSignal = s
	h.mu.Unlock()
}

// ServeHTTP handles the /healthz endpoint. The engine counts as degraded
// when no tick has arrived for over a minute.
func (h *HealthStatus) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	overallStatus := "healthy"
	httpCode := http.StatusOK
	tickAge := ""
	if h.LastTickTime.IsZero() {
		overallStatus = "starting"
	} else {
		age := time.Since(h.LastTickTime)
		tickAge = age.Round(time.Millisecond).String()
		if age > time.Minute {
			overallStatus = "degraded"
			httpCode = http.StatusServiceUnavailable
		}
	}

	status := struct {
		Status       string `json:"status"`
		Uptime       string `json:"uptime"`
		LastTickTime string `json:"last_tick_time"`
		TickAge      string `json:"tick_age"`
		CacheBars    int    `json:"cache_bars"`
		LastSignal   string `json:"last_signal"`
	}{
		Status:       overallStatus,
		Uptime:       time.Since(h.StartedAt).Round(time.Second).String(),
		LastTickTime: h.LastTickTime.Format(time.RFC3339),
		TickAge:      tickAge,
		CacheBars:    h.CacheBars,
		LastSignal:   h.LastSignal,
	}

	w.Header().Set("Content-Type", "application/json")
	if httpCode != http.StatusOK {
		w.WriteHeader(httpCode)
	}
	json.NewEncoder(w).Encode(status)
}

// Server runs an HTTP server exposing /metrics and /healthz.
type Server struct {
	addr string
	srv  *http.Server
}

// NewServer creates a metrics and health server.
func NewServer(addr string, health *HealthStatus) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", health.ServeHTTP)

	return &Server{
		addr: addr,
		srv: &http.Server{
			Addr:    addr,
			Handler: mux,
		},
	}
}

// Start launches the HTTP server in a goroutine.
func (s *Server) Start() {
	go func() {
		log.Printf("[metrics] server listening on %s", s.addr)
		if err := s.srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Printf("[metrics] server error: %v", err)
		}
	}()
}

// Stop gracefully shuts down the metrics server.
func (s *Server) Stop(ctx context.Context) {
	s.srv.Shutdown(ctx)
}
