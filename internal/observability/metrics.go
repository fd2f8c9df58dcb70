// Package observability provides Prometheus metrics for the application.
package observability

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "ytbatch"

// Metrics holds all application metrics.
type Metrics struct {
	registry *prometheus.Registry

	// Run metrics
	Identifiers      prometheus.Gauge
	Batches          prometheus.Gauge
	BatchesCompleted prometheus.Counter
	WorkersBusy      prometheus.Gauge

	// Item metrics
	ItemsTotal      *prometheus.CounterVec
	ItemsInProgress prometheus.Gauge
	ItemDuration    prometheus.Histogram
	DownloadBytes   prometheus.Counter

	// Downloader metrics
	DownloaderErrors *prometheus.CounterVec

	// Proxy metrics
	ProxyRequestsTotal *prometheus.CounterVec
	ProxyFailures      *prometheus.CounterVec
	ProxiesAvailable   prometheus.Gauge

	// Dependency metrics
	BinaryInstalls *prometheus.CounterVec
}

// New creates all application metrics on a private registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	factory := promauto.With(reg)

	metrics := &Metrics{
		registry: reg,

		Identifiers: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "run",
			Name:      "identifiers",
			Help:      "Number of identifiers loaded from the input file",
		}),
		Batches: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "run",
			Name:      "batches",
			Help:      "Number of batches the input was partitioned into",
		}),
		BatchesCompleted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "run",
			Name:      "batches_completed_total",
			Help:      "Total number of batches a worker finished",
		}),
		WorkersBusy: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "run",
			Name:      "workers_busy",
			Help:      "Number of workers currently processing a batch",
		}),

		ItemsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "items",
			Name:      "total",
			Help:      "Total number of items processed by outcome",
		}, []string{"downloader", "status"}),
		ItemsInProgress: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "items",
			Name:      "in_progress",
			Help:      "Number of items currently downloading",
		}),
		ItemDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "items",
			Name:      "duration_seconds",
			Help:      "Histogram of per-item fetch duration in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
		}),
		DownloadBytes: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "items",
			Name:      "download_bytes_total",
			Help:      "Total bytes written to the output directory",
		}),

		DownloaderErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "downloader",
			Name:      "errors_total",
			Help:      "Total number of download errors",
		}, []string{"downloader", "error_type"}),

		ProxyRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "proxy",
			Name:      "requests_total",
			Help:      "Total number of requests made through proxies",
		}, []string{"proxy"}),
		ProxyFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "proxy",
			Name:      "failures_total",
			Help:      "Total number of proxy failures",
		}, []string{"proxy"}),
		ProxiesAvailable: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "proxy",
			Name:      "available",
			Help:      "Number of currently available proxies",
		}),

		BinaryInstalls: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "depmanager",
			Name:      "installs_total",
			Help:      "Total number of binary downloads by binary name",
		}, []string{"binary"}),
	}

	return metrics
}

// Handler returns the Prometheus HTTP handler for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Gatherer exposes the underlying registry.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	return m.registry
}

// WriteTextfile dumps all metrics in the text exposition format, for node_exporter's textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}

	return nil
}

// ItemTimer marks an item as in progress and returns a function recording its duration.
func (m *Metrics) ItemTimer() func() {
	start := time.Now()

	m.ItemsInProgress.Inc()

	return func() {
		m.ItemsInProgress.Dec()
		m.ItemDuration.Observe(time.Since(start).Seconds())
	}
}

// RecordItem records one item outcome and the bytes it produced.
func (m *Metrics) RecordItem(downloader, status string, bytes int64) {
	m.ItemsTotal.WithLabelValues(downloader, status).Inc()

	if bytes > 0 {
		m.DownloadBytes.Add(float64(bytes))
	}
}

// RecordDownloaderError records a download error.
func (m *Metrics) RecordDownloaderError(downloader, errorType string) {
	m.DownloaderErrors.WithLabelValues(downloader, errorType).Inc()
}

// SetRunShape records the size of the input and its partition.
func (m *Metrics) SetRunShape(identifiers, batches int) {
	m.Identifiers.Set(float64(identifiers))
	m.Batches.Set(float64(batches))
}

// WorkerBusy marks a worker as busy and returns a function marking the batch done.
func (m *Metrics) WorkerBusy() func() {
	m.WorkersBusy.Inc()

	return func() {
		m.WorkersBusy.Dec()
		m.BatchesCompleted.Inc()
	}
}

// RecordProxyRequest records a proxy request.
func (m *Metrics) RecordProxyRequest(proxy string) {
	m.ProxyRequestsTotal.WithLabelValues(proxy).Inc()
}

// RecordProxyFailure records a proxy failure.
func (m *Metrics) RecordProxyFailure(proxy string) {
	m.ProxyFailures.WithLabelValues(proxy).Inc()
}

// SetProxiesAvailable sets the number of available proxies.
func (m *Metrics) SetProxiesAvailable(count int) {
	m.ProxiesAvailable.Set(float64(count))
}

// RecordBinaryInstall records a binary download.
func (m *Metrics) RecordBinaryInstall(binary string) {
	m.BinaryInstalls.WithLabelValues(binary).Inc()
}
