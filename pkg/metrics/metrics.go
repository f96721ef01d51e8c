// Package metrics collects per-run Prometheus metrics for compaction and can
// export them in the node_exporter textfile format.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "fcas"

// Compaction holds the collectors updated during one compaction run.
type Compaction struct {
	registry *prometheus.Registry

	FilesRead     prometheus.Counter
	RowsRead      prometheus.Counter
	ChunksWritten prometheus.Counter
	RowsWritten   prometheus.Counter
	BytesWritten  prometheus.Counter
	WorkingSet    prometheus.Gauge
	FlushDuration prometheus.Histogram
	RunDuration   prometheus.Gauge
	LastSuccess   prometheus.Gauge
}

// NewCompaction registers a fresh set of collectors on a private registry.
func NewCompaction() *Compaction {
	m := &Compaction{
		registry: prometheus.NewRegistry(),
		FilesRead: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "compaction", Name: "files_read_total",
			Help: "Input files read.",
		}),
		RowsRead: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "compaction", Name: "rows_read_total",
			Help: "Rows read from input files.",
		}),
		ChunksWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "compaction", Name: "chunks_written_total",
			Help: "Chunk files written.",
		}),
		RowsWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "compaction", Name: "rows_written_total",
			Help: "Rows written to chunk files.",
		}),
		BytesWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "compaction", Name: "bytes_written_total",
			Help: "Encoded bytes written to chunk files.",
		}),
		WorkingSet: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "compaction", Name: "working_set_bytes",
			Help: "Estimated size of the in-memory working set.",
		}),
		FlushDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "compaction", Name: "flush_duration_seconds",
			Help:    "Time spent sorting, encoding and writing one chunk.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		}),
		RunDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "compaction", Name: "run_duration_seconds",
			Help: "Wall time of the last run.",
		}),
		LastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "compaction", Name: "last_success_timestamp_seconds",
			Help: "Unix time the last successful run finished.",
		}),
	}
	m.registry.MustRegister(
		m.FilesRead, m.RowsRead, m.ChunksWritten, m.RowsWritten, m.BytesWritten,
		m.WorkingSet, m.FlushDuration, m.RunDuration, m.LastSuccess,
	)
	return m
}

// Registry exposes the underlying registry.
func (m *Compaction) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveRun records the end of a run.
func (m *Compaction) ObserveRun(d time.Duration, ok bool) {
	m.RunDuration.Set(d.Seconds())
	if ok {
		m.LastSuccess.SetToCurrentTime()
	}
}

// WriteTextfile writes the current values to path in the Prometheus text
// format. The write is atomic.
func (m *Compaction) WriteTextfile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("writing metrics to %s: %w", path, err)
	}
	return nil
}
