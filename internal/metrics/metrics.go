package metrics

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the signal bot.
type Metrics struct {
	// Evaluation pipeline
	EvaluationsTotal *prometheus.CounterVec // labels: result=ok|unavailable|error
	EvaluationDur    prometheus.Histogram
	StatusTotal      *prometheus.CounterVec // labels: status
	RiskScore        *prometheus.GaugeVec   // labels: symbol
	NextDelay        *prometheus.GaugeVec   // labels: symbol
	Volatility       *prometheus.GaugeVec   // labels: symbol

	// Paper ledger
	PaperFillsTotal *prometheus.CounterVec // labels: action
	PaperCash       prometheus.Gauge
	PaperRealized   prometheus.Gauge
	PaperEquity     prometheus.Gauge
	PaperOpen       prometheus.Gauge

	// Delivery
	NotificationsTotal *prometheus.CounterVec // labels: kind=report|ad, result=sent|failed
	JournalErrors      prometheus.Counter

	// Redis circuit breaker
	RedisCircuitBreakerState prometheus.Gauge // 0=closed, 1=open, 2=half-open
	RedisCircuitBreakerTrips prometheus.Counter

	// Decision stream
	WSClients prometheus.Gauge
}

// NewMetrics creates all metrics and registers them with reg. A nil reg
// registers with the default registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		EvaluationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "signalbot_evaluations_total",
			Help: "Symbol evaluations by outcome",
		}, []string{"result"}),
		EvaluationDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "signalbot_evaluation_duration_seconds",
			Help:    "Wall time of one symbol evaluation including data fetch",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		StatusTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "signalbot_decisions_total",
			Help: "Decisions by status",
		}, []string{"status"}),
		RiskScore: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "signalbot_risk_score",
			Help: "Latest risk score (0-100) per symbol",
		}, []string{"symbol"}),
		NextDelay: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "signalbot_next_delay_seconds",
			Help: "Latest dynamic re-check delay per symbol",
		}, []string{"symbol"}),
		Volatility: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "signalbot_volatility_ratio",
			Help: "Latest ATR / close per symbol",
		}, []string{"symbol"}),

		PaperFillsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "signalbot_paper_fills_total",
			Help: "Simulated fills by action",
		}, []string{"action"}),
		PaperCash: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "signalbot_paper_cash",
			Help: "Paper ledger cash",
		}),
		PaperRealized: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "signalbot_paper_realized_pnl",
			Help: "Paper ledger realized PnL",
		}),
		PaperEquity: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "signalbot_paper_equity",
			Help: "Paper ledger cash plus marked open positions",
		}),
		PaperOpen: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "signalbot_paper_open_positions",
			Help: "Open paper positions",
		}),

		NotificationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "signalbot_notifications_total",
			Help: "Outbound messages by kind and result",
		}, []string{"kind", "result"}),
		JournalErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "signalbot_journal_errors_total",
			Help: "Paper fills that could not be written to the journal",
		}),

		RedisCircuitBreakerState: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "signalbot_redis_circuit_breaker_state",
			Help: "Redis circuit breaker state (0=closed, 1=open, 2=half-open)",
		}),
		RedisCircuitBreakerTrips: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "signalbot_redis_circuit_breaker_trips_total",
			Help: "Times the Redis circuit breaker tripped open",
		}),

		WSClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "signalbot_ws_clients",
			Help: "Connected decision stream clients",
		}),
	}

	reg.MustRegister(
		m.EvaluationsTotal,
		m.EvaluationDur,
		m.StatusTotal,
		m.RiskScore,
		m.NextDelay,
		m.Volatility,
		m.PaperFillsTotal,
		m.PaperCash,
		m.PaperRealized,
		m.PaperEquity,
		m.PaperOpen,
		m.NotificationsTotal,
		m.JournalErrors,
		m.RedisCircuitBreakerState,
		m.RedisCircuitBreakerTrips,
		m.WSClients,
	)

	return m
}

// Pinger is a dependency that can be probed for liveness.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthStatus represents the system health.
type HealthStatus struct {
	mu sync.RWMutex

	LoopRunning    bool      `json:"loop_running"`
	LastEvalAt     time.Time `json:"last_eval_at"`
	LastEvalError  string    `json:"last_eval_error"`
	RedisEnabled   bool      `json:"redis_enabled"`
	RedisConnected bool      `json:"redis_connected"`
	SQLiteOK       bool      `json:"sqlite_ok"`

	// Liveness probe results
	RedisLatencyMs  float64   `json:"redis_latency_ms"`
	SQLiteLatencyMs float64   `json:"sqlite_latency_ms"`
	LastCheckAt     time.Time `json:"last_check_at"`
	StartedAt       time.Time `json:"started_at"`
}

// NewHealthStatus returns a default health status.
func NewHealthStatus() *HealthStatus {
	return &HealthStatus{
		StartedAt: time.Now(),
	}
}

func (h *HealthStatus) SetLoopRunning(v bool) {
	h.mu.Lock()
	h.LoopRunning = v
	h.mu.Unlock()
}

// RecordEvaluation stores the time and outcome of the latest evaluation.
// Unavailable market data is not treated as a health problem.
func (h *HealthStatus) RecordEvaluation(at time.Time, err error) {
	h.mu.Lock()
	h.LastEvalAt = at
	h.LastEvalError = ""
	if err != nil {
		h.LastEvalError = err.Error()
	}
	h.mu.Unlock()
}

func (h *HealthStatus) SetRedisEnabled(v bool) {
	h.mu.Lock()
	h.RedisEnabled = v
	h.mu.Unlock()
}

// CheckRedis pings Redis and records latency + connectivity.
func (h *HealthStatus) CheckRedis(ctx context.Context, p Pinger) {
	start := time.Now()
	err := p.Ping(ctx)
	latency := time.Since(start)

	h.mu.Lock()
	h.RedisEnabled = true
	h.RedisConnected = err == nil
	h.RedisLatencyMs = float64(latency.Microseconds()) / 1000.0
	h.LastCheckAt = time.Now()
	h.mu.Unlock()
}

// CheckSQLite pings the journal database and records latency + health.
func (h *HealthStatus) CheckSQLite(ctx context.Context, p Pinger) {
	start := time.Now()
	err := p.Ping(ctx)
	latency := time.Since(start)

	h.mu.Lock()
	h.SQLiteOK = err == nil
	h.SQLiteLatencyMs = float64(latency.Microseconds()) / 1000.0
	h.LastCheckAt = time.Now()
	h.mu.Unlock()
}

// Probe runs one round of dependency checks. Nil probes are skipped.
func (h *HealthStatus) Probe(ctx context.Context, redis, sqlite Pinger) {
	probeCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if redis != nil {
		h.CheckRedis(probeCtx, redis)
	}
	if sqlite != nil {
		h.CheckSQLite(probeCtx, sqlite)
	}
}

// StartLivenessChecker runs periodic dependency checks until ctx is done.
func (h *HealthStatus) StartLivenessChecker(ctx context.Context, redis, sqlite Pinger, interval time.Duration) {
	h.Probe(ctx, redis, sqlite)
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				h.Probe(ctx, redis, sqlite)
			}
		}
	}()
}

// ServeHTTP handles the /healthz endpoint.
func (h *HealthStatus) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	overallStatus := "healthy"
	httpCode := http.StatusOK

	redisDown := h.RedisEnabled && !h.RedisConnected
	if !h.LoopRunning || redisDown || !h.SQLiteOK {
		overallStatus = "degraded"
		httpCode = http.StatusServiceUnavailable
	}
	if !h.LoopRunning && !h.SQLiteOK {
		overallStatus = "unhealthy"
	}

	evalAge := ""
	if !h.LastEvalAt.IsZero() {
		evalAge = time.Since(h.LastEvalAt).Round(time.Millisecond).String()
	}

	status := struct {
		Status          string  `json:"status"`
		Uptime          string  `json:"uptime"`
		LoopRunning     bool    `json:"loop_running"`
		LastEvalAt      string  `json:"last_eval_at"`
		EvalAge         string  `json:"eval_age"`
		LastEvalError   string  `json:"last_eval_error,omitempty"`
		RedisEnabled    bool    `json:"redis_enabled"`
		RedisConnected  bool    `json:"redis_connected"`
		RedisLatencyMs  float64 `json:"redis_latency_ms"`
		SQLiteOK        bool    `json:"sqlite_ok"`
		SQLiteLatencyMs float64 `json:"sqlite_latency_ms"`
		LastCheckAt     string  `json:"last_check_at"`
	}{
		Status:          overallStatus,
		Uptime:          time.Since(h.StartedAt).Round(time.Second).String(),
		LoopRunning:     h.LoopRunning,
		LastEvalAt:      h.LastEvalAt.Format(time.RFC3339),
		EvalAge:         evalAge,
		LastEvalError:   h.LastEvalError,
		RedisEnabled:    h.RedisEnabled,
		RedisConnected:  h.RedisConnected,
		RedisLatencyMs:  h.RedisLatencyMs,
		SQLiteOK:        h.SQLiteOK,
		SQLiteLatencyMs: h.SQLiteLatencyMs,
		LastCheckAt:     h.LastCheckAt.Format(time.RFC3339),
	}

	w.Header().Set("Content-Type", "application/json")
	if httpCode != http.StatusOK {
		w.WriteHeader(httpCode)
	}
	json.NewEncoder(w).Encode(status)
}

// Server runs an HTTP server exposing /metrics and /healthz.
type Server struct {
	health *HealthStatus
	addr   string
	srv    *http.Server
}

// NewServer creates a metrics and health server. gatherer may be nil for
// the default registry.
func NewServer(addr string, health *HealthStatus, gatherer prometheus.Gatherer) *Server {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", health.ServeHTTP)

	return &Server{
		health: health,
		addr:   addr,
		srv: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// Handler exposes the mux for tests.
func (s *Server) Handler() http.Handler { return s.srv.Handler }

// Start launches the HTTP server in a goroutine.
func (s *Server) Start() {
	go func() {
		slog.Info("metrics server listening", "addr", s.addr)
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics server error", "error", err)
		}
	}()
}

// Stop gracefully shuts down the metrics server.
func (s *Server) Stop(ctx context.Context) {
	s.srv.Shutdown(ctx)
}
