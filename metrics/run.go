package metrics

import (
	"fmt"

	"github.com/KaurMahima/healthcare-sql-analytics/utils"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "healthcare_pipeline"

// RunMetrics is the summary of a single stage run, written once at exit in
// the node-exporter textfile format.
type RunMetrics struct {
	registry *prometheus.Registry
	clock    utils.TimeProvider
	stage    string

	lastRun       prometheus.Gauge
	success       prometheus.Gauge
	filesAcquired prometheus.Gauge
	rowsLoaded    prometheus.Gauge
}

func NewRunMetrics(stage string, clock utils.TimeProvider) *RunMetrics {
	if clock == nil {
		clock = utils.RealTimeProvider{}
	}
	labels := prometheus.Labels{"stage": stage}

	m := &RunMetrics{
		registry: prometheus.NewRegistry(),
		clock:    clock,
		stage:    stage,
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "last_run_timestamp_seconds",
			Help:        "Unix time the stage last finished",
			ConstLabels: labels,
		}),
		success: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "last_run_success",
			Help:        "1 if the last run of the stage succeeded, 0 otherwise",
			ConstLabels: labels,
		}),
		filesAcquired: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "files_acquired",
			Help:        "Entries in the raw directory after the last acquisition",
			ConstLabels: labels,
		}),
		rowsLoaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "rows_loaded",
			Help:        "Rows in the materialized table after the last run",
			ConstLabels: labels,
		}),
	}

	m.registry.MustRegister(m.lastRun, m.success, m.filesAcquired, m.rowsLoaded)
	return m
}

func (m *RunMetrics) SetFilesAcquired(n int) {
	m.filesAcquired.Set(float64(n))
}

func (m *RunMetrics) SetRowsLoaded(n int64) {
	m.rowsLoaded.Set(float64(n))
}

// Finish records the outcome of the run and stamps it with the current time.
func (m *RunMetrics) Finish(err error) {
	if err == nil {
		m.success.Set(1)
	} else {
		m.success.Set(0)
	}
	m.lastRun.Set(float64(m.clock.Now().Unix()))
}

// WriteTextfile atomically writes the gathered metrics to path.
// An empty path disables the output.
func (m *RunMetrics) WriteTextfile(path string) error {
	if path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("error writing %s metrics to %s: %w", m.stage, path, err)
	}
	return nil
}

func (m *RunMetrics) Registry() *prometheus.Registry {
	return m.registry
}
