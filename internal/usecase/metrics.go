package usecase

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles Prometheus collectors for the reconciliation pipeline.
type Metrics struct {
	Registry        *prometheus.Registry
	RunsTotal       prometheus.Counter
	RunDuration     prometheus.Histogram
	CatalogRequests *prometheus.CounterVec
	CatalogErrors   *prometheus.CounterVec
	SpecialsCurrent *prometheus.GaugeVec
	SamplesAppended prometheus.Counter
	ProductsTracked prometheus.Gauge
}

// NewMetrics constructs and registers all metrics on a dedicated registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	runs := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tracker_reconciliation_runs_total",
			Help: "Total reconciliation runs started.",
		},
	)
	runDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tracker_reconciliation_duration_seconds",
			Help:    "Wall-clock duration of reconciliation runs.",
			Buckets: prometheus.DefBuckets,
		},
	)
	catalogRequests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tracker_catalog_requests_total",
			Help: "Bulk catalog fetches issued, by retailer.",
		},
		[]string{"retailer"},
	)
	catalogErrors := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tracker_catalog_errors_total",
			Help: "Failed catalog fetches, by retailer.",
		},
		[]string{"retailer"},
	)
	specials := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tracker_specials_current",
			Help: "Products on special after the last run, by retailer.",
		},
		[]string{"retailer"},
	)
	samples := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tracker_history_samples_appended_total",
			Help: "Price-history points appended.",
		},
	)
	tracked := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "tracker_products_tracked",
			Help: "Number of tracked products.",
		},
	)

	registry.MustRegister(runs, runDuration, catalogRequests, catalogErrors, specials, samples, tracked)

	return &Metrics{
		Registry:        registry,
		RunsTotal:       runs,
		RunDuration:     runDuration,
		CatalogRequests: catalogRequests,
		CatalogErrors:   catalogErrors,
		SpecialsCurrent: specials,
		SamplesAppended: samples,
		ProductsTracked: tracked,
	}
}

// IncRun increments the run counter.
func (m *Metrics) IncRun() {
	if m == nil {
		return
	}
	m.RunsTotal.Inc()
}

// ObserveRun records a run duration.
func (m *Metrics) ObserveRun(d time.Duration) {
	if m == nil {
		return
	}
	m.RunDuration.Observe(d.Seconds())
}

// IncCatalogRequest increments the fetch counter for a retailer.
func (m *Metrics) IncCatalogRequest(retailer string) {
	if m == nil {
		return
	}
	m.CatalogRequests.WithLabelValues(retailer).Inc()
}

// IncCatalogError increments the fetch error counter for a retailer.
func (m *Metrics) IncCatalogError(retailer string) {
	if m == nil {
		return
	}
	m.CatalogErrors.WithLabelValues(retailer).Inc()
}

// SetSpecials sets the current specials gauge for a retailer.
func (m *Metrics) SetSpecials(retailer string, n int) {
	if m == nil {
		return
	}
	m.SpecialsCurrent.WithLabelValues(retailer).Set(float64(n))
}

// IncSample increments the appended-history-point counter.
func (m *Metrics) IncSample() {
	if m == nil {
		return
	}
	m.SamplesAppended.Inc()
}

// SetTracked sets the tracked-product gauge.
func (m *Metrics) SetTracked(n int) {
	if m == nil {
		return
	}
	m.ProductsTracked.Set(float64(n))
}
