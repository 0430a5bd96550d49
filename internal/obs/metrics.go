package obs

import "github.com/prometheus/client_golang/prometheus"

// Metrics collects Prometheus series for a single agent runtime process.
//
// Unlike a package relying on promauto's default registry, Metrics owns its
// own *prometheus.Registry so an embedding application can run more than one
// runtime instance (e.g. in tests) without collector name collisions.
type Metrics struct {
	// TurnsTotal counts orchestrator turns by outcome (continue|complete|budget_exceeded|max_turns).
	TurnsTotal *prometheus.CounterVec

	// LLMRequestDuration measures predict_step latency in seconds.
	// Labels: provider, model, outcome (success|retry|error).
	LLMRequestDuration *prometheus.HistogramVec

	// LLMTokensTotal tracks accumulated token usage.
	// Labels: provider, model, kind (prompt|completion|cache_read).
	LLMTokensTotal *prometheus.CounterVec

	// LLMCostUSD tracks accumulated response_cost.
	// Labels: provider, model.
	LLMCostUSD *prometheus.CounterVec

	// ActionsTotal counts computer actions dispatched by type and outcome.
	// Labels: action, outcome (ok|error).
	ActionsTotal *prometheus.CounterVec

	// ActionDuration measures computer handler dispatch latency in seconds.
	// Labels: action.
	ActionDuration *prometheus.HistogramVec

	// GroundingCacheHits counts grounding cache lookups by outcome (hit|miss).
	GroundingCacheHits *prometheus.CounterVec

	// ActiveRuns is a gauge of in-flight agent runs.
	ActiveRuns prometheus.Gauge

	registry *prometheus.Registry
}

// NewMetrics builds a fresh registry and registers every collector on it.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		TurnsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cua_turns_total",
			Help: "Total orchestrator turns by outcome.",
		}, []string{"outcome"}),
		LLMRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "cua_llm_request_duration_seconds",
			Help:    "Duration of predict_step calls in seconds.",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 45, 90},
		}, []string{"provider", "model", "outcome"}),
		LLMTokensTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cua_llm_tokens_total",
			Help: "Accumulated token usage by provider, model, and kind.",
		}, []string{"provider", "model", "kind"}),
		LLMCostUSD: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cua_llm_cost_usd_total",
			Help: "Accumulated response_cost in USD by provider and model.",
		}, []string{"provider", "model"}),
		ActionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cua_actions_total",
			Help: "Total computer actions dispatched by action type and outcome.",
		}, []string{"action", "outcome"}),
		ActionDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "cua_action_duration_seconds",
			Help:    "Duration of computer handler dispatch by action type.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10},
		}, []string{"action"}),
		GroundingCacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cua_grounding_cache_total",
			Help: "Grounding cache lookups by outcome (hit|miss).",
		}, []string{"outcome"}),
		ActiveRuns: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "cua_active_runs",
			Help: "Number of agent runs currently executing.",
		}),
	}
	reg.MustRegister(m.TurnsTotal, m.LLMRequestDuration, m.LLMTokensTotal, m.LLMCostUSD,
		m.ActionsTotal, m.ActionDuration, m.GroundingCacheHits, m.ActiveRuns)
	return m
}

// Registry returns the Prometheus registry owning this Metrics' collectors,
// for embedding into an HTTP /metrics handler.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }
