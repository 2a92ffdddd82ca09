package probedeform

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics collects deformer counters and timings. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	weightRecomputes *prometheus.CounterVec
	weightFallbacks  *prometheus.CounterVec
	factorDuration   *prometheus.HistogramVec
	deformDuration   *prometheus.HistogramVec
}

// NewMetrics registers the deformer metrics with reg. A nil reg uses the
// default registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Metrics{
		weightRecomputes: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "probedeform_weight_recomputes_total",
				Help: "Total number of probe weight recomputations",
			},
			[]string{"model"},
		),
		weightFallbacks: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "probedeform_weight_fallbacks_total",
				Help: "Total number of diffusion solves replaced by a fallback",
			},
			[]string{"reason"}, // reason: coincident_anchors, singular_system, system_too_large
		),
		factorDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "probedeform_factorization_duration_seconds",
				Help:    "Time spent factoring a diffusion system",
				Buckets: []float64{.0005, .001, .005, .01, .05, .1, .5, 1, 5},
			},
			[]string{"model"},
		),
		deformDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "probedeform_deform_duration_seconds",
				Help:    "Time spent recomputing vertex positions",
				Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1},
			},
			[]string{"model"},
		),
	}
}

func (m *Metrics) weightRecomputed(model WeightModel) {
	if m == nil {
		return
	}
	m.weightRecomputes.WithLabelValues(model.String()).Inc()
}

func (m *Metrics) weightFellBack(reason string) {
	if m == nil {
		return
	}
	m.weightFallbacks.WithLabelValues(reason).Inc()
}

func (m *Metrics) factored(model WeightModel, d time.Duration) {
	if m == nil {
		return
	}
	m.factorDuration.WithLabelValues(model.String()).Observe(d.Seconds())
}

func (m *Metrics) deformed(model DeformModel, d time.Duration) {
	if m == nil {
		return
	}
	m.deformDuration.WithLabelValues(model.String()).Observe(d.Seconds())
}
