package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors for the decision loop. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	EvaluationsTotal *prometheus.CounterVec // labels: symbol, action
	FailuresTotal    *prometheus.CounterVec // labels: stage, kind
	FetchDuration    *prometheus.HistogramVec
	FetchedBars      *prometheus.GaugeVec
	Confidence       prometheus.Histogram
	PredictedPrice   *prometheus.GaugeVec
	CommentaryTotal  *prometheus.CounterVec // labels: capability, outcome
	EODRuns          prometheus.Counter

	registry *prometheus.Registry
}

// NewMetrics creates the collectors and registers them on reg. A nil reg
// gets a fresh registry, which Handler then serves.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	m := &Metrics{
		EvaluationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "quant_evaluations_total",
			Help: "Completed pipeline evaluations by symbol and action",
		}, []string{"symbol", "action"}),
		FailuresTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "quant_failures_total",
			Help: "Failed steps by stage (fetch, analyze, commentary, record) and error kind",
		}, []string{"stage", "kind"}),
		FetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "quant_fetch_duration_seconds",
			Help:    "Candle fetch latency by source",
			Buckets: prometheus.DefBuckets,
		}, []string{"source"}),
		FetchedBars: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "quant_fetched_bars",
			Help: "Bars returned by the last fetch per symbol",
		}, []string{"symbol"}),
		Confidence: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "quant_confidence",
			Help:    "Distribution of predictor confidence",
			Buckets: []float64{55, 60, 65, 70, 75, 80, 85, 90, 95},
		}),
		PredictedPrice: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "quant_predicted_price",
			Help: "Latest predicted next close per symbol",
		}, []string{"symbol"}),
		CommentaryTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "quant_commentary_total",
			Help: "Commentary requests by capability and outcome",
		}, []string{"capability", "outcome"}),
		EODRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "quant_eod_runs_total",
			Help: "End-of-day summaries written",
		}),
		registry: reg,
	}

	reg.MustRegister(
		m.EvaluationsTotal,
		m.FailuresTotal,
		m.FetchDuration,
		m.FetchedBars,
		m.Confidence,
		m.PredictedPrice,
		m.CommentaryTotal,
		m.EODRuns,
	)
	return m
}

func (m *Metrics) ObserveFetch(source, symbol string, d time.Duration, bars int) {
	if m == nil {
		return
	}
	m.FetchDuration.WithLabelValues(source).Observe(d.Seconds())
	m.FetchedBars.WithLabelValues(symbol).Set(float64(bars))
}

func (m *Metrics) ObserveDecision(symbol, action string, confidence, predicted float64) {
	if m == nil {
		return
	}
	m.EvaluationsTotal.WithLabelValues(symbol, action).Inc()
	m.Confidence.Observe(confidence)
	m.PredictedPrice.WithLabelValues(symbol).Set(predicted)
}

func (m *Metrics) ObserveFailure(stage, kind string) {
	if m == nil {
		return
	}
	m.FailuresTotal.WithLabelValues(stage, kind).Inc()
}

func (m *Metrics) ObserveCommentary(capability string, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.CommentaryTotal.WithLabelValues(capability, outcome).Inc()
}

func (m *Metrics) ObserveEOD() {
	if m == nil {
		return
	}
	m.EODRuns.Inc()
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
