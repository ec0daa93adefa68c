package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/listing-reconcile/internal/matcher"
	"github.com/listing-reconcile/internal/writer"
)

const namespace = "listing_reconcile"

// Run holds the metrics of one batch run. It uses its own registry so the
// textfile only carries run metrics.
type Run struct {
	registry *prometheus.Registry

	listings        *prometheus.CounterVec
	loadErrors      prometheus.Counter
	partitionLoads  prometheus.Counter
	evictions       prometheus.Counter
	matchingSeconds prometheus.Gauge
	rows            *prometheus.CounterVec
	fallbackChunks  prometheus.Counter
	writeSeconds    prometheus.Gauge
	lastRun         prometheus.Gauge
}

// NewRun registers the run metrics under a fresh registry.
func NewRun(label string) *Run {
	constLabels := prometheus.Labels{"run": label}
	r := &Run{
		registry: prometheus.NewRegistry(),
		listings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "listings_total",
			Help: "Listings processed, by outcome.", ConstLabels: constLabels,
		}, []string{"outcome"}),
		loadErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "partition_load_errors_total",
			Help: "Failed partition loads.", ConstLabels: constLabels,
		}),
		partitionLoads: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "partition_loads_total",
			Help: "Partitions fetched from the datastore.", ConstLabels: constLabels,
		}),
		evictions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "partition_evictions_total",
			Help: "Partitions evicted from the cache.", ConstLabels: constLabels,
		}),
		matchingSeconds: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "matching_duration_seconds",
			Help: "Duration of the matching pass.", ConstLabels: constLabels,
		}),
		rows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "write_rows_total",
			Help: "Phone updates, by result.", ConstLabels: constLabels,
		}, []string{"result"}),
		fallbackChunks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "write_fallback_chunks_total",
			Help: "Chunks written row by row after a bulk failure.", ConstLabels: constLabels,
		}),
		writeSeconds: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "write_duration_seconds",
			Help: "Duration of the write pass.", ConstLabels: constLabels,
		}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "last_run_timestamp_seconds",
			Help: "Unix time the run finished.", ConstLabels: constLabels,
		}),
	}
	r.registry.MustRegister(
		r.listings, r.loadErrors, r.partitionLoads, r.evictions, r.matchingSeconds,
		r.rows, r.fallbackChunks, r.writeSeconds, r.lastRun,
	)
	return r
}

// ObserveMatching records the matching pass.
func (r *Run) ObserveMatching(s *matcher.Stats) {
	r.listings.WithLabelValues(matcher.OutcomeSkipped.String()).Add(float64(s.Skipped))
	r.listings.WithLabelValues(matcher.OutcomeMatched.String()).Add(float64(s.Matched))
	r.listings.WithLabelValues(matcher.OutcomeAlreadySatisfied.String()).Add(float64(s.AlreadySatisfied))
	r.listings.WithLabelValues(matcher.OutcomeUnmatched.String()).Add(float64(s.Unmatched))
	r.listings.WithLabelValues(matcher.OutcomeFailed.String()).Add(float64(s.Failed))
	r.loadErrors.Add(float64(s.LoadErrors))
	r.partitionLoads.Add(float64(s.PartitionLoads))
	r.evictions.Add(float64(s.Evictions))
	r.matchingSeconds.Set(s.ProcessingTime.Seconds())
}

// ObserveWriting records the write pass.
func (r *Run) ObserveWriting(s *writer.WriteStats) {
	r.rows.WithLabelValues("written").Add(float64(s.Written))
	r.rows.WithLabelValues("skipped").Add(float64(s.Skipped))
	r.rows.WithLabelValues("failed").Add(float64(s.Failed))
	r.fallbackChunks.Add(float64(s.FallbackChunks))
	r.writeSeconds.Set(s.Duration.Seconds())
}

// WriteFile marks the run finished and writes all metrics in the text
// exposition format, for the node exporter's textfile collector.
func (r *Run) WriteFile(path string) error {
	r.lastRun.SetToCurrentTime()
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
