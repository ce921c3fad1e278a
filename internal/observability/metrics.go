package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "climate_etl"

// Metrics holds the Prometheus counters, histograms, and gauges for a run.
type Metrics struct {
	FilesLoaded     *prometheus.CounterVec // labels: kind={raster,region}, outcome={success,missing,error}
	CellsClipped    *prometheus.GaugeVec   // labels: variable
	SeriesComputed  prometheus.Counter
	AnalysisErrors  *prometheus.CounterVec   // labels: analysis={trend,decomposition,correlation,climatology,figure,sink}
	StageDuration   *prometheus.HistogramVec // labels: stage
	OutputsWritten  *prometheus.CounterVec   // labels: kind={csv,figure,sink}
	PipelineRunning prometheus.Gauge
}

// NewMetrics creates and registers all pipeline metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.FilesLoaded,
		m.CellsClipped,
		m.SeriesComputed,
		m.AnalysisErrors,
		m.StageDuration,
		m.OutputsWritten,
		m.PipelineRunning,
	)
	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		FilesLoaded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_loaded_total",
			Help:      "Input files read, by kind and outcome.",
		}, []string{"kind", "outcome"}),
		CellsClipped: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cells_clipped",
			Help:      "Grid cells kept inside the region by the last clip of each variable.",
		}, []string{"variable"}),
		SeriesComputed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "series_computed_total",
			Help:      "Monthly and annual series produced by aggregation.",
		}),
		AnalysisErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analysis_errors_total",
			Help:      "Analyses skipped because they failed, by analysis.",
		}, []string{"analysis"}),
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of each pipeline stage.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"stage"}),
		OutputsWritten: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outputs_written_total",
			Help:      "Artifacts written, by kind.",
		}, []string{"kind"}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_running",
			Help:      "1 while a run is in progress, 0 otherwise.",
		}),
	}
}
