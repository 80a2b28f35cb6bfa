// Package metrics exposes Prometheus instruments for the simulation service.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	global *Metrics
	once   sync.Once
)

// Metrics holds the service instruments.
type Metrics struct {
	SessionsActive  prometheus.Gauge
	FoldsTotal      *prometheus.CounterVec
	FoldsRejected   prometheus.Counter
	DyePointsTotal  prometheus.Counter
	UnfoldsTotal    *prometheus.CounterVec
	UnfoldDuration  prometheus.Histogram
	PatternsSaved   prometheus.Counter
	PresetsLoaded   prometheus.Gauge
	PresetsReloaded *prometheus.CounterVec
}

// New registers the instruments on first use and returns the shared set.
//
// Metrics:
//   - tiedye_sessions_active
//   - tiedye_folds_total{kind,op}
//   - tiedye_folds_rejected_total
//   - tiedye_dye_points_total
//   - tiedye_unfolds_total{result}
//   - tiedye_unfold_duration_seconds
//   - tiedye_patterns_saved_total
//   - tiedye_presets_loaded
//   - tiedye_preset_reloads_total{result}
func New() *Metrics {
	once.Do(func() {
		global = &Metrics{
			SessionsActive: promauto.NewGauge(prometheus.GaugeOpts{
				Namespace: "tiedye",
				Name:      "sessions_active",
				Help:      "Number of live simulation sessions",
			}),
			FoldsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
				Namespace: "tiedye",
				Name:      "folds_total",
				Help:      "Fold stack changes by fold kind and operation",
			}, []string{"kind", "op"}), // op: apply, undo, redo
			FoldsRejected: promauto.NewCounter(prometheus.CounterOpts{
				Namespace: "tiedye",
				Name:      "folds_rejected_total",
				Help:      "Folds refused because the layer cap was reached",
			}),
			DyePointsTotal: promauto.NewCounter(prometheus.CounterOpts{
				Namespace: "tiedye",
				Name:      "dye_points_total",
				Help:      "Recorded dye applications",
			}),
			UnfoldsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
				Namespace: "tiedye",
				Name:      "unfolds_total",
				Help:      "Unfold runs by result",
			}, []string{"result"}), // ok, busy, canceled, error
			UnfoldDuration: promauto.NewHistogram(prometheus.HistogramOpts{
				Namespace: "tiedye",
				Name:      "unfold_duration_seconds",
				Help:      "Duration of completed unfold runs",
				Buckets:   prometheus.ExponentialBuckets(0.001, 2, 14), // 1ms to ~8s
			}),
			PatternsSaved: promauto.NewCounter(prometheus.CounterOpts{
				Namespace: "tiedye",
				Name:      "patterns_saved_total",
				Help:      "Patterns exported to the gallery",
			}),
			PresetsLoaded: promauto.NewGauge(prometheus.GaugeOpts{
				Namespace: "tiedye",
				Name:      "presets_loaded",
				Help:      "Recipes currently held in the preset library",
			}),
			PresetsReloaded: promauto.NewCounterVec(prometheus.CounterOpts{
				Namespace: "tiedye",
				Name:      "preset_reloads_total",
				Help:      "Recipe reloads triggered by the directory watcher",
			}, []string{"result"}),
		}
	})
	return global
}

// RecordFold counts one fold stack change.
func (m *Metrics) RecordFold(kind, op string) {
	m.FoldsTotal.WithLabelValues(kind, op).Inc()
}

// RecordUnfold counts an unfold run and observes its duration when it
// completed.
func (m *Metrics) RecordUnfold(result string, seconds float64) {
	m.UnfoldsTotal.WithLabelValues(result).Inc()
	if result == "ok" {
		m.UnfoldDuration.Observe(seconds)
	}
}
